package streamcipher

import (
	"bytes"
	"crypto/rc4"
	"errors"
	"testing"
)

func patterned(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i*7)
	}
	return out
}

func TestMatchesStandardRC4(t *testing.T) {
	payload := patterned(4096, 3)
	for _, size := range []int{1, 5, 16, 17, 64, 255, 256} {
		key := patterned(size, 0x41)
		ref, err := rc4.NewCipher(key)
		if err != nil {
			t.Fatalf("rc4.NewCipher(%d): %v", size, err)
		}
		want := make([]byte, len(payload))
		ref.XORKeyStream(want, payload)

		got, err := Apply(key, payload)
		if err != nil {
			t.Fatalf("Apply(%d): %v", size, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("key size %d: output diverges from crypto/rc4", size)
		}
	}
}

func TestApplyIsInvolution(t *testing.T) {
	key := bytes.Repeat([]byte("0123456789abcdefghijklmnopqrstuvwxyz"), 8)
	if len(key) <= 256 {
		t.Fatalf("fixture key should exceed 256 bytes, got %d", len(key))
	}
	payload := patterned(10_000, 9)
	once, err := Apply(key, payload)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if bytes.Equal(once, payload) {
		t.Fatal("expected ciphertext to differ from plaintext")
	}
	twice, err := Apply(key, once)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(twice, payload) {
		t.Fatal("applying the cipher twice did not restore the payload")
	}
}

func TestChunkedMatchesSingleShot(t *testing.T) {
	key := []byte("chunked-key")
	payload := patterned(3000, 1)
	want, err := Apply(key, payload)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	c, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := make([]byte, 0, len(payload))
	for _, size := range []int{1, 7, 512, 1000, 1480} {
		chunk := payload[len(got) : len(got)+size]
		out := make([]byte, size)
		c.XORKeyStream(out, chunk)
		got = append(got, out...)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("chunked output differs from single-shot output")
	}
}

func TestInPlace(t *testing.T) {
	key := []byte("in-place")
	payload := patterned(128, 5)
	want, _ := Apply(key, payload)
	c, _ := New(key)
	c.XORKeyStream(payload, payload)
	if !bytes.Equal(payload, want) {
		t.Fatal("in-place output differs")
	}
}

func TestKeystreamPrefix(t *testing.T) {
	key := []byte("prefix")
	ks, err := Keystream(key, 32)
	if err != nil {
		t.Fatalf("Keystream: %v", err)
	}
	payload := patterned(64, 11)
	enc, _ := Apply(key, payload)
	for i := range ks {
		if enc[i] != payload[i]^ks[i] {
			t.Fatalf("keystream byte %d mismatch", i)
		}
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	_, err := New(nil)
	var sizeErr KeySizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected KeySizeError, got %v", err)
	}
	if _, err := Apply([]byte{}, []byte("x")); err == nil {
		t.Fatal("expected Apply to reject an empty key")
	}
}
