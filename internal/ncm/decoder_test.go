package ncm_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ncmdump/internal/ncm"
	"ncmdump/internal/repair"
	"ncmdump/internal/streamcipher"
	"ncmdump/internal/testsupport"
)

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := ncm.NewDecoder().DecodeBytes(context.Background(), make([]byte, 8))
	if !errors.Is(err, ncm.ErrHeaderInvalid) {
		t.Fatalf("expected ErrHeaderInvalid, got %v", err)
	}

	for _, short := range [][]byte{[]byte("XY"), []byte("CTEX")} {
		if _, err := ncm.Parse(short); !errors.Is(err, ncm.ErrHeaderInvalid) {
			t.Fatalf("short input %q: expected ErrHeaderInvalid, got %v", short, err)
		}
	}

	data := testsupport.BuildContainer(t, ncm.ContainerSpec{Audio: testsupport.SampleMP3(2)})
	data[0] = 'X'
	_, err = ncm.NewDecoder().DecodeBytes(context.Background(), data)
	if !errors.Is(err, ncm.ErrHeaderInvalid) {
		t.Fatalf("expected ErrHeaderInvalid for corrupted magic, got %v", err)
	}
	if kind := ncm.KindOf(err); kind != ncm.KindHeaderInvalid {
		t.Fatalf("unexpected kind %v", kind)
	}
}

func TestDecodeWellFormed(t *testing.T) {
	audio := testsupport.SampleMP3(3)[:1024]
	cover := []byte("\x89PNG\r\n\x1a\ncover")
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Audio:       audio,
		Cover:       cover,
		ModifyCount: 7,
		Checksum:    ncm.ChecksumOf(audio),
	})

	got, err := ncm.NewDecoder().DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Offset != 0 || got.Repaired {
		t.Fatalf("expected no repair, got offset=%d repaired=%v", got.Offset, got.Repaired)
	}
	if !bytes.Equal(got.Bytes, audio) || !bytes.Equal(got.Stream(), audio) {
		t.Fatal("decrypted bytes differ from the original audio")
	}
	if got.Format != ncm.FormatMP3 {
		t.Fatalf("expected mp3 hint, got %s", got.Format)
	}
	if got.Checksum != ncm.ChecksumMatch {
		t.Fatalf("expected checksum match, got %s", got.Checksum)
	}
	if !bytes.Equal(got.Cover, cover) || got.ModifyCount != 7 {
		t.Fatalf("unexpected metadata: cover=%q modify=%d", got.Cover, got.ModifyCount)
	}
}

func TestDecodeChecksumMismatchIsNotFatal(t *testing.T) {
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Audio:    testsupport.SampleMP3(1),
		Checksum: 0xDEADBEEF,
	})
	got, err := ncm.NewDecoder().DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Checksum != ncm.ChecksumMismatch {
		t.Fatalf("expected mismatch, got %s", got.Checksum)
	}

	data = testsupport.BuildContainer(t, ncm.ContainerSpec{Audio: testsupport.SampleMP3(1)})
	got, err = ncm.NewDecoder().DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Checksum != ncm.ChecksumUnset {
		t.Fatalf("expected unset, got %s", got.Checksum)
	}
}

func TestDecodeTruncationNeverPanics(t *testing.T) {
	tests := []struct {
		name  string
		cover []byte
	}{
		{"no cover", nil},
		{"with cover", make([]byte, 4160)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testsupport.BuildContainer(t, ncm.ContainerSpec{
				Audio: testsupport.SampleMP3(1),
				Cover: tt.cover,
			})
			container, err := ncm.Parse(data)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(container.Cover) != len(tt.cover) {
				t.Fatalf("expected %d cover bytes, got %d", len(tt.cover), len(container.Cover))
			}
			keyStart := 8 + 2 + 4
			keyEnd := keyStart + len(container.KeyBlock)

			for cut := 0; cut <= container.AudioOffset; cut++ {
				_, err := ncm.NewDecoder().DecodeBytes(context.Background(), data[:cut])
				if err == nil {
					t.Fatalf("cut at %d: expected error", cut)
				}
				want := ncm.ErrTruncated
				if cut >= keyStart && cut < keyEnd {
					want = ncm.ErrKeyLengthInvalid
				}
				if !errors.Is(err, want) {
					t.Fatalf("cut at %d: expected %v, got %v", cut, want, err)
				}
			}
		})
	}
}

func TestParseRejectsKeyLengths(t *testing.T) {
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{Audio: testsupport.SampleMP3(1)})
	for _, length := range []uint32{0, ncm.MaxBlockSize + 1, 0xFFFFFFFF} {
		mutated := bytes.Clone(data)
		mutated[10] = byte(length)
		mutated[11] = byte(length >> 8)
		mutated[12] = byte(length >> 16)
		mutated[13] = byte(length >> 24)
		if _, err := ncm.Parse(mutated); !errors.Is(err, ncm.ErrKeyLengthInvalid) {
			t.Fatalf("length %d: expected ErrKeyLengthInvalid, got %v", length, err)
		}
	}
}

func TestDecodeRepairsCorruptedCoverLength(t *testing.T) {
	audio := testsupport.SampleMP3(4)
	junk := make([]byte, 333)
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Audio:               audio,
		Junk:                junk,
		CoverLengthOverride: testsupport.Uint32(0xFFFFFFFF),
		Checksum:            ncm.ChecksumOf(audio),
	})

	container, err := ncm.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !container.NeedsRepair || len(container.Cover) != 0 {
		t.Fatalf("expected repair flag and empty cover, got %+v", container.NeedsRepair)
	}

	got, err := ncm.NewDecoder().DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if !got.Repaired || got.Offset != len(junk) {
		t.Fatalf("expected repaired offset %d, got %d (repaired=%v)", len(junk), got.Offset, got.Repaired)
	}
	if got.RepairRule != "mpeg-sync" || got.Confidence != repair.ConfidenceHigh {
		t.Fatalf("unexpected rule %q confidence %q", got.RepairRule, got.Confidence)
	}
	if !bytes.Equal(got.Stream(), audio) {
		t.Fatal("relocated stream differs from the original audio")
	}
	if !bytes.Equal(got.Bytes[:got.Offset], junk) {
		t.Fatal("bytes before the offset should be retained as-is")
	}
	if got.Checksum != ncm.ChecksumMatch {
		t.Fatalf("expected checksum match, got %s", got.Checksum)
	}
}

func TestDecodeRepairFailsWithoutSignature(t *testing.T) {
	key := testsupport.FixtureKey(t)
	// Encrypting the keystream itself yields an all-zero payload.
	plain, err := streamcipher.Keystream(key, 4096)
	if err != nil {
		t.Fatalf("Keystream: %v", err)
	}
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Key:                 key,
		Audio:               plain,
		CoverLengthOverride: testsupport.Uint32(0xFFFFFFFF),
	})

	_, err = ncm.NewDecoder().DecodeBytes(context.Background(), data)
	if !errors.Is(err, ncm.ErrRepairFailed) {
		t.Fatalf("expected ErrRepairFailed, got %v", err)
	}
	if !errors.Is(err, repair.ErrNoSignature) {
		t.Fatalf("expected wrapped ErrNoSignature, got %v", err)
	}
}

func TestDecodeCutInsideCoverIsTruncated(t *testing.T) {
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Audio: testsupport.SampleMP3(1),
		Cover: make([]byte, 4160),
	})
	container, err := ncm.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cut := container.AudioOffset - 2000

	_, err = ncm.NewDecoder().DecodeBytes(context.Background(), data[:cut])
	if !errors.Is(err, ncm.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if errors.Is(err, ncm.ErrRepairFailed) {
		t.Fatalf("plausible cover length reported as repair failure: %v", err)
	}
	if !errors.Is(err, repair.ErrNoSignature) {
		t.Fatalf("expected wrapped ErrNoSignature, got %v", err)
	}
}

func TestDecodeRepairHonoursCancellation(t *testing.T) {
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Audio:               testsupport.SampleMP3(1),
		Junk:                make([]byte, 100),
		CoverLengthOverride: testsupport.Uint32(0xFFFFFFFF),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ncm.NewDecoder().DecodeBytes(ctx, data); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeFormatHints(t *testing.T) {
	tests := []struct {
		name  string
		audio []byte
		want  ncm.FormatHint
		ext   string
	}{
		{"flac", append([]byte("fLaC\x00\x00\x00\x22"), make([]byte, 64)...), ncm.FormatFLAC, "flac"},
		{"wav", append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...), ncm.FormatWAV, "wav"},
		{"m4a", append([]byte("\x00\x00\x00\x20ftypM4A "), make([]byte, 64)...), ncm.FormatM4A, "m4a"},
		{"id3", append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), testsupport.SampleMP3(1)...), ncm.FormatID3Wrapped, "mp3"},
		{"unknown", []byte("plain text payload"), ncm.FormatUnknown, "bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testsupport.BuildContainer(t, ncm.ContainerSpec{Audio: tt.audio})
			got, err := ncm.NewDecoder().DecodeBytes(context.Background(), data)
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if got.Format != tt.want || got.Format.Extension() != tt.ext {
				t.Fatalf("expected %s/%s, got %s/%s", tt.want, tt.ext, got.Format, got.Format.Extension())
			}
		})
	}
}

func TestConcurrentDecodesAgree(t *testing.T) {
	audio := testsupport.SampleMP3(8)
	data := testsupport.BuildContainer(t, ncm.ContainerSpec{
		Audio:               audio,
		Junk:                make([]byte, 64),
		CoverLengthOverride: testsupport.Uint32(ncm.MaxBlockSize + 1),
	})
	original := bytes.Clone(data)
	decoder := ncm.NewDecoder()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := decoder.DecodeBytes(context.Background(), data)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got.Stream(), audio) {
				errs <- errors.New("stream mismatch")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent decode: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Fatal("decoding modified the input buffer")
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	audio := testsupport.SampleMP3(2)
	path := testsupport.WriteContainer(t, dir, "song.ncm", ncm.ContainerSpec{Audio: audio})

	got, err := ncm.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Stream(), audio) {
		t.Fatal("decoded stream mismatch")
	}

	small := ncm.NewDecoder(ncm.WithMaxInputSize(16))
	if _, err := small.Decode(context.Background(), path); !errors.Is(err, ncm.ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
	if _, err := ncm.Decode(filepath.Join(dir, "missing.ncm")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDecodeErrorClassification(t *testing.T) {
	_, err := ncm.Parse([]byte("CTENFDAM\x01"))
	var de *ncm.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if de.Kind != ncm.KindTruncated || de.ErrorKind() != "validation" {
		t.Fatalf("unexpected classification: %v / %s", de.Kind, de.ErrorKind())
	}
	if errors.Is(err, ncm.ErrHeaderInvalid) {
		t.Fatal("truncation should not match ErrHeaderInvalid")
	}
}
