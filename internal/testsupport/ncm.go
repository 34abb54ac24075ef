package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"ncmdump/internal/ncm"
	"ncmdump/internal/repair"
	"ncmdump/internal/streamcipher"
)

const mp3FrameSize = 417

// SampleMP3 returns frames MPEG-1 Layer III frames (128 kbps, 44.1 kHz) with
// silent bodies.
func SampleMP3(frames int) []byte {
	if frames <= 0 {
		frames = 1
	}
	out := make([]byte, frames*mp3FrameSize)
	for i := 0; i < frames; i++ {
		copy(out[i*mp3FrameSize:], []byte{0xFF, 0xFB, 0x90, 0x64})
	}
	return out
}

// FixtureKey returns a stream key whose leading keystream bytes carry no
// audio signature, so zero-filled junk never decrypts to a false match.
func FixtureKey(t testing.TB) []byte {
	t.Helper()
	for i := 0; i < 10000; i++ {
		key := []byte(fmt.Sprintf("fixture-stream-key-%04d", i))
		ks, err := streamcipher.Keystream(key, repair.ProbeLength)
		if err != nil {
			t.Fatalf("keystream: %v", err)
		}
		if ks[0] != 0xFF && repair.Sniff(ks) == repair.SignatureNone {
			return key
		}
	}
	t.Fatal("no usable fixture key")
	return nil
}

// BuildContainer marshals spec, filling in a fixture key when none is set.
func BuildContainer(t testing.TB, spec ncm.ContainerSpec) []byte {
	t.Helper()
	if len(spec.Key) == 0 {
		spec.Key = FixtureKey(t)
	}
	data, err := ncm.Marshal(spec)
	if err != nil {
		t.Fatalf("ncm.Marshal: %v", err)
	}
	return data
}

// WriteContainer writes a marshalled container to dir/name and returns the path.
func WriteContainer(t testing.TB, dir, name string, spec ncm.ContainerSpec) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, BuildContainer(t, spec), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Uint32 returns a pointer to v.
func Uint32(v uint32) *uint32 {
	return &v
}
