package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ncmdump/internal/config"
	"ncmdump/internal/history"
	"ncmdump/internal/ncm"
	"ncmdump/internal/testsupport"
)

type batchEnv struct {
	cfg      *config.Config
	store    *history.Store
	inputDir string
}

func newBatchEnv(t *testing.T, opts ...testsupport.ConfigOption) *batchEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	inputDir := filepath.Join(testsupport.BaseDir(cfg), "input")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}
	return &batchEnv{
		cfg:      cfg,
		store:    testsupport.MustOpenHistory(t, cfg),
		inputDir: inputDir,
	}
}

func (e *batchEnv) container(t *testing.T, name string, spec ncm.ContainerSpec) string {
	t.Helper()
	if len(spec.Audio) == 0 {
		spec.Audio = testsupport.SampleMP3(3)
	}
	return testsupport.WriteContainer(t, e.inputDir, name, spec)
}

func (e *batchEnv) run(t *testing.T, opts ...ManagerOption) *Summary {
	t.Helper()
	inputs, err := CollectInputs(e.cfg, []string{e.inputDir})
	if err != nil {
		t.Fatalf("CollectInputs: %v", err)
	}
	summary, err := NewManager(e.cfg, e.store, nil, opts...).Run(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary
}

func resultFor(t *testing.T, summary *Summary, name string) Result {
	t.Helper()
	for _, r := range summary.Results {
		if filepath.Base(r.Source) == name {
			return r
		}
	}
	t.Fatalf("no result for %s in %#v", name, summary.Results)
	return Result{}
}
