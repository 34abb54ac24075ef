package workflow

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"ncmdump/internal/config"
	"ncmdump/internal/history"
	"ncmdump/internal/logging"
	"ncmdump/internal/media/ffprobe"
	"ncmdump/internal/ncm"
	"ncmdump/internal/repair"
	"ncmdump/internal/services"
	"ncmdump/internal/tagging"
	"ncmdump/internal/testsupport"
	"ncmdump/internal/transcode"
)

func TestRunConvertsBatch(t *testing.T) {
	env := newBatchEnv(t)
	plain := testsupport.SampleMP3(3)
	env.container(t, "plain.ncm", ncm.ContainerSpec{Audio: plain})
	env.container(t, "covered.ncm", ncm.ContainerSpec{Cover: testsupport.SamplePNG(t, 4, 4)})
	if err := os.WriteFile(filepath.Join(env.inputDir, "broken.ncm"), []byte("not a container"), 0o644); err != nil {
		t.Fatalf("write broken: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.inputDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	summary := env.run(t)
	if len(summary.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(summary.Results))
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Count(history.StatusCompleted) != 2 || summary.Failures() != 1 {
		t.Fatalf("unexpected counts completed=%d failures=%d", summary.Count(history.StatusCompleted), summary.Failures())
	}

	plainResult := resultFor(t, summary, "plain.ncm")
	if plainResult.Output != filepath.Join(env.cfg.Paths.OutputDir, "plain.mp3") {
		t.Fatalf("unexpected output %s", plainResult.Output)
	}
	if plainResult.Hint != string(ncm.FormatMP3) || plainResult.Transcoded {
		t.Fatalf("unexpected result %#v", plainResult)
	}
	got, err := os.ReadFile(plainResult.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatal("output should equal the original stream")
	}

	covered := resultFor(t, summary, "covered.ncm")
	data, err := os.ReadFile(covered.Output)
	if err != nil {
		t.Fatalf("read covered output: %v", err)
	}
	tags, err := tagging.ReadTags(data)
	if err != nil {
		t.Fatalf("ReadTags: %v", err)
	}
	if tags.Title != "covered" {
		t.Fatalf("expected title from source name, got %#v", tags)
	}
	if covered.Cover != "" {
		t.Fatalf("embed mode should not export, got %s", covered.Cover)
	}

	broken := resultFor(t, summary, "broken.ncm")
	if broken.Status != history.StatusRejected || !errors.Is(broken.Err, ncm.ErrHeaderInvalid) {
		t.Fatalf("unexpected broken result %#v", broken)
	}

	records, err := env.store.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 history records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.RunID != summary.RunID {
			t.Fatalf("record %d has run id %q", rec.ID, rec.RunID)
		}
		if filepath.Base(rec.SourcePath) == "broken.ncm" && rec.ErrorKind != ncm.KindHeaderInvalid.String() {
			t.Fatalf("unexpected error kind %q", rec.ErrorKind)
		}
	}
}

func TestRunSkipsConvertedOnSecondRun(t *testing.T) {
	env := newBatchEnv(t)
	env.container(t, "a.ncm", ncm.ContainerSpec{Audio: testsupport.SampleMP3(3)})
	env.container(t, "b.ncm", ncm.ContainerSpec{Audio: testsupport.SampleMP3(4)})

	first := env.run(t)
	if first.Count(history.StatusCompleted) != 2 {
		t.Fatalf("expected two conversions, got %#v", first.Results)
	}

	second := env.run(t)
	if second.Count(history.StatusSkipped) != 2 {
		t.Fatalf("expected two skips, got %#v", second.Results)
	}
	for _, r := range second.Results {
		if r.Reason != "already converted" || r.Output == "" {
			t.Fatalf("unexpected skip %#v", r)
		}
	}

	forced := env.run(t, WithForce(true))
	if forced.Count(history.StatusSkipped) != 2 {
		t.Fatalf("expected existing outputs to be kept, got %#v", forced.Results)
	}
	if r := forced.Results[0]; r.Reason != "output exists" {
		t.Fatalf("unexpected reason %q", r.Reason)
	}

	env.cfg.Output.OverwriteExisting = true
	overwritten := env.run(t, WithForce(true))
	if overwritten.Count(history.StatusCompleted) != 2 {
		t.Fatalf("expected forced reconversion, got %#v", overwritten.Results)
	}
}

func TestRunRecordsRepair(t *testing.T) {
	env := newBatchEnv(t)
	env.container(t, "damaged.ncm", ncm.ContainerSpec{
		Junk:                make([]byte, 333),
		CoverLengthOverride: testsupport.Uint32(0xFFFFFFFF),
	})

	summary := env.run(t)
	result := resultFor(t, summary, "damaged.ncm")
	if result.Status != history.StatusCompleted {
		t.Fatalf("expected conversion, got %#v", result)
	}
	if !result.Repaired || result.RepairRule != "mpeg-sync" || result.RepairOffset != 333 || result.Confidence != repair.ConfidenceHigh {
		t.Fatalf("unexpected repair result %#v", result)
	}

	records, err := env.store.List(context.Background(), history.ListOptions{Status: history.StatusCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].RepairRule != "mpeg-sync" || records[0].RepairOffset != 333 {
		t.Fatalf("unexpected records %#v", records)
	}
}

func TestRunExportsCover(t *testing.T) {
	env := newBatchEnv(t, testsupport.WithCoverMode(config.CoverExport))
	cover := testsupport.SamplePNG(t, 3, 3)
	env.container(t, "song.ncm", ncm.ContainerSpec{Cover: cover})

	result := resultFor(t, env.run(t), "song.ncm")
	want := filepath.Join(env.cfg.Paths.OutputDir, "song.png")
	if result.Cover != want {
		t.Fatalf("expected cover %s, got %s", want, result.Cover)
	}
	got, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read cover: %v", err)
	}
	if !bytes.Equal(got, cover) {
		t.Fatal("exported cover differs from embedded bytes")
	}
}

func TestRunDisambiguatesNames(t *testing.T) {
	env := newBatchEnv(t)
	env.container(t, filepath.Join("one", "x.ncm"), ncm.ContainerSpec{Audio: testsupport.SampleMP3(3)})
	env.container(t, filepath.Join("two", "x.ncm"), ncm.ContainerSpec{Audio: testsupport.SampleMP3(4)})

	summary := env.run(t)
	if summary.Count(history.StatusCompleted) != 2 {
		t.Fatalf("expected both to convert, got %#v", summary.Results)
	}
	for _, name := range []string{"x.mp3", "x (2).mp3"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestRunTranscodesWithStubs(t *testing.T) {
	env := newBatchEnv(t,
		testsupport.WithOutputFormat(config.FormatFLAC),
		testsupport.WithStubbedBinaries(),
		testsupport.WithCoverMode(config.CoverNone),
	)
	env.container(t, "song.ncm", ncm.ContainerSpec{})

	result := resultFor(t, env.run(t), "song.ncm")
	if result.Status != history.StatusCompleted || !result.Transcoded || result.Format != "flac" {
		t.Fatalf("unexpected result %#v", result)
	}
	if filepath.Ext(result.Output) != ".flac" {
		t.Fatalf("unexpected output %s", result.Output)
	}
}

func TestRunRejectsSilentTranscode(t *testing.T) {
	env := newBatchEnv(t,
		testsupport.WithOutputFormat(config.FormatM4A),
		testsupport.WithStubbedBinaries(),
		testsupport.WithCoverMode(config.CoverNone),
	)
	env.container(t, "song.ncm", ncm.ContainerSpec{})
	silent := func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, nil
	}
	transcoder := transcode.New(env.cfg, nil, transcode.WithProbe(silent))

	result := resultFor(t, env.run(t, WithTranscoder(transcoder)), "song.ncm")
	if result.Status != history.StatusRejected || !errors.Is(result.Err, ffprobe.ErrNoAudio) {
		t.Fatalf("unexpected result %#v", result)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "song.m4a")); !os.IsNotExist(err) {
		t.Fatalf("expected no output, stat err %v", err)
	}
}

func TestRunFailsPreflightWithoutFFmpeg(t *testing.T) {
	env := newBatchEnv(t, testsupport.WithOutputFormat(config.FormatWAV))
	path := env.container(t, "song.ncm", ncm.ContainerSpec{})

	summary, err := NewManager(env.cfg, env.store, nil).Run(context.Background(), []string{path})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(summary.Results) != 0 {
		t.Fatalf("expected no results, got %#v", summary.Results)
	}
}

func TestRunRefusesLockedOutput(t *testing.T) {
	env := newBatchEnv(t)
	path := env.container(t, "song.ncm", ncm.ContainerSpec{})

	lock := flock.New(filepath.Join(env.cfg.Paths.OutputDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	_, err = NewManager(env.cfg, env.store, nil).Run(context.Background(), []string{path})
	if !errors.Is(err, ErrBatchLocked) {
		t.Fatalf("expected ErrBatchLocked, got %v", err)
	}
}

func TestRunWithoutHistory(t *testing.T) {
	env := newBatchEnv(t)
	path := env.container(t, "song.ncm", ncm.ContainerSpec{})

	summary, err := NewManager(env.cfg, nil, nil).Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Count(history.StatusCompleted) != 1 {
		t.Fatalf("unexpected results %#v", summary.Results)
	}
}

func TestRunRejectsMissingInput(t *testing.T) {
	env := newBatchEnv(t)
	missing := filepath.Join(env.inputDir, "gone.ncm")

	summary, err := NewManager(env.cfg, env.store, nil).Run(context.Background(), []string{missing})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := resultFor(t, summary, "gone.ncm")
	if got.Status != history.StatusRejected {
		t.Fatalf("expected rejected, got %s (%v)", got.Status, got.Err)
	}
	if !errors.Is(got.Err, services.ErrNotFound) || !errors.Is(got.Err, os.ErrNotExist) {
		t.Fatalf("expected not-found error, got %v", got.Err)
	}
}

func TestRunLogsOneComponentPerRecord(t *testing.T) {
	env := newBatchEnv(t)
	path := env.container(t, "song.ncm", ncm.ContainerSpec{})
	logPath := filepath.Join(t.TempDir(), "run.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	if _, err := NewManager(env.cfg, env.store, logger).Run(context.Background(), []string{path}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	sawDecoder := false
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if n := strings.Count(line, `"component":`); n > 1 {
			t.Fatalf("record carries %d component keys: %s", n, line)
		}
		if strings.Contains(line, `"component":"ncm"`) {
			sawDecoder = true
		}
	}
	if !sawDecoder {
		t.Fatalf("expected decoder records in log:\n%s", content)
	}
}

func TestRunCancelled(t *testing.T) {
	env := newBatchEnv(t)
	path := env.container(t, "song.ncm", ncm.ContainerSpec{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewManager(env.cfg, env.store, nil).Run(ctx, []string{path})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(summary.Results) != 0 {
		t.Fatalf("expected no files to start, got %#v", summary.Results)
	}
}

func TestRunUsesContextRunID(t *testing.T) {
	env := newBatchEnv(t)
	path := env.container(t, "song.ncm", ncm.ContainerSpec{})
	ctx := services.WithRunID(context.Background(), "fixed-run")

	summary, err := NewManager(env.cfg, env.store, nil).Run(ctx, []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID != "fixed-run" {
		t.Fatalf("unexpected run id %q", summary.RunID)
	}
}
