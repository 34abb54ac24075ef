package repair_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"ncmdump/internal/repair"
	"ncmdump/internal/streamcipher"
)

var mpegFrame = []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x00, 0x00, 0x00}

// fixture encrypts plain behind junk zero bytes with a key chosen so that the
// only scanning hit, if any, sits at want. want < 0 means no hit anywhere.
func fixture(t *testing.T, junk int, plain []byte, want int) ([]byte, []byte) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		key := []byte(fmt.Sprintf("repair-fixture-%d", i))
		ks, err := streamcipher.Keystream(key, repair.ProbeLength)
		if err != nil {
			t.Fatalf("Keystream: %v", err)
		}
		if repair.Sniff(ks) != repair.SignatureNone || ks[0] == 0xFF {
			continue
		}
		enc, err := streamcipher.Apply(key, plain)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		payload := append(make([]byte, junk), enc...)
		if onlyHitAt(payload, ks, want) {
			return payload, ks
		}
	}
	t.Fatal("no fixture key satisfied the constraints")
	return nil, nil
}

func onlyHitAt(payload, ks []byte, want int) bool {
	probe := make([]byte, 4)
	for p := range payload {
		n := len(payload) - p
		if n > len(probe) {
			n = len(probe)
		}
		for i := 0; i < n; i++ {
			probe[i] = payload[p+i] ^ ks[i]
		}
		hit := repair.IsFrameSync(probe[:n]) || bytes.HasPrefix(probe[:n], []byte("ID3"))
		if hit != (p == want) {
			return false
		}
	}
	return true
}

func TestLocateStrictSyncAtKnownOffset(t *testing.T) {
	payload, ks := fixture(t, 517, mpegFrame, 517)

	match, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if match.Offset != 517 {
		t.Fatalf("expected offset 517, got %d", match.Offset)
	}
	if match.Rule.Kind != repair.KindMPEGSync || match.Confidence != repair.ConfidenceHigh {
		t.Fatalf("unexpected rule: %+v", match)
	}

	again, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if err != nil || again.Offset != match.Offset || again.Rule.Kind != match.Rule.Kind {
		t.Fatalf("expected deterministic result, got %+v / %v", again, err)
	}
}

func TestLocateID3(t *testing.T) {
	plain := append([]byte("ID3\x04\x00\x00"), make([]byte, 6)...)
	payload, ks := fixture(t, 40, plain, 40)

	match, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if match.Offset != 40 || match.Rule.Kind != repair.KindID3 {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestWithRulesLimitsSearch(t *testing.T) {
	plain := append([]byte("ID3\x04\x00\x00"), make([]byte, 6)...)
	payload, ks := fixture(t, 40, plain, 40)

	syncOnly := repair.WithRules([]repair.Rule{{Kind: repair.KindMPEGSync, Name: "mpeg-sync", Confidence: repair.ConfidenceHigh}})
	if _, err := repair.NewLocator(syncOnly).Locate(context.Background(), payload, ks); !errors.Is(err, repair.ErrNoSignature) {
		t.Fatalf("expected ErrNoSignature without the id3 rule, got %v", err)
	}

	match, err := repair.NewLocator(repair.WithRules(nil)).Locate(context.Background(), payload, ks)
	if err != nil || match.Rule.Kind != repair.KindID3 {
		t.Fatalf("empty rule list should keep the defaults, got %+v / %v", match, err)
	}
}

func TestStrictSyncRejectsReservedFieldsAndFallsBackToWideSweep(t *testing.T) {
	// Version bits 01 are reserved.
	reserved := []byte{0xFF, 0xEB, 0x90, 0x64}
	if repair.IsMPEGFrameHeader(reserved) {
		t.Fatal("reserved version accepted as strict header")
	}
	payload, ks := fixture(t, 100, reserved, 100)

	match, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if match.Offset != 100 || match.Rule.Kind != repair.KindWideSync {
		t.Fatalf("expected wide sweep at 100, got %+v", match)
	}
	if match.Confidence != repair.ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", match.Confidence)
	}
}

func TestIsMPEGFrameHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   bool
	}{
		{"mpeg1 layer3", []byte{0xFF, 0xFB, 0x90, 0x64}, true},
		{"mpeg2 layer3", []byte{0xFF, 0xF3, 0x50, 0xC4}, true},
		{"reserved layer", []byte{0xFF, 0xF9, 0x90, 0x64}, false},
		{"bad bitrate", []byte{0xFF, 0xFB, 0xF0, 0x64}, false},
		{"reserved sample rate", []byte{0xFF, 0xFB, 0x9C, 0x64}, false},
		{"no sync", []byte{0xFF, 0x1B, 0x90, 0x64}, false},
		{"short", []byte{0xFF, 0xFB, 0x90}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repair.IsMPEGFrameHeader(tt.header); got != tt.want {
				t.Fatalf("IsMPEGFrameHeader(%x) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   repair.Signature
	}{
		{[]byte("ID3\x03"), repair.SignatureID3},
		{[]byte("fLaC\x00\x00\x00\x22"), repair.SignatureFLAC},
		{[]byte("RIFF\x24\x00\x00\x00WAVE"), repair.SignatureWAVE},
		{[]byte("\x00\x00\x00\x20ftypM4A "), repair.SignatureMP4},
		{[]byte{0xFF, 0xFB, 0x90, 0x64}, repair.SignatureMPEG},
		{[]byte("RIFF\x24\x00\x00\x00AVI "), repair.SignatureNone},
		{nil, repair.SignatureNone},
	}
	for _, tt := range tests {
		if got := repair.Sniff(tt.prefix); got != tt.want {
			t.Fatalf("Sniff(%q) = %s, want %s", tt.prefix, got, tt.want)
		}
	}
}

func TestFixedOffsetFallback(t *testing.T) {
	plain := append([]byte("fLaC"), make([]byte, 8)...)
	payload, ks := fixture(t, 1024, plain, -1)

	match, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if match.Offset != 1024 || match.Rule.Kind != repair.KindFixedOffset {
		t.Fatalf("expected fixed offset 1024, got %+v", match)
	}
}

func TestNoSignatureInZeroRegion(t *testing.T) {
	payload, ks := fixture(t, 4096, nil, -1)

	_, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if !errors.Is(err, repair.ErrNoSignature) {
		t.Fatalf("expected ErrNoSignature, got %v", err)
	}
}

func TestScanWindowBoundsSearch(t *testing.T) {
	payload, ks := fixture(t, 3000, mpegFrame, 3000)

	_, err := repair.NewLocator(repair.WithWindow(repair.MinWindow)).Locate(context.Background(), payload, ks)
	if !errors.Is(err, repair.ErrNoSignature) {
		t.Fatalf("expected sync beyond the window to be ignored, got %v", err)
	}

	match, err := repair.NewLocator().Locate(context.Background(), payload, ks)
	if err != nil || match.Offset != 3000 {
		t.Fatalf("expected default window to find offset 3000, got %+v / %v", match, err)
	}
}

func TestClampWindow(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, repair.DefaultWindow},
		{-5, repair.DefaultWindow},
		{10, repair.MinWindow},
		{16 * 1024, 16 * 1024},
		{1 << 20, repair.MaxWindow},
	}
	for _, tt := range tests {
		if got := repair.ClampWindow(tt.in); got != tt.want {
			t.Fatalf("ClampWindow(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLocateHonoursCancellation(t *testing.T) {
	payload, ks := fixture(t, 2000, mpegFrame, 2000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repair.NewLocator().Locate(ctx, payload, ks); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLocateRequiresKeystreamPrefix(t *testing.T) {
	if _, err := repair.NewLocator().Locate(context.Background(), []byte{1, 2, 3}, []byte{1}); err == nil {
		t.Fatal("expected error for short keystream")
	}
}
