package streamcipher

import (
	"crypto/cipher"
	"strconv"
)

// KeySizeError is returned for an empty key.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "streamcipher: invalid key size " + strconv.Itoa(int(k))
}

// Cipher holds keystream state. It is not safe for concurrent use.
type Cipher struct {
	s    [256]byte
	i, j uint8
}

var _ cipher.Stream = (*Cipher)(nil)

// New runs the key schedule over key.
func New(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, KeySizeError(0)
	}
	c := &Cipher{}
	for i := range c.s {
		c.s[i] = uint8(i)
	}
	var j uint8
	for i := 0; i < 256; i++ {
		j += c.s[i] + key[i%len(key)]
		c.s[i], c.s[j] = c.s[j], c.s[i]
	}
	return c, nil
}

// XORKeyStream XORs each byte of src with the next keystream byte. dst and
// src may overlap entirely. Panics when dst is shorter than src.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	if len(src) == 0 {
		return
	}
	if len(dst) < len(src) {
		panic("streamcipher: output smaller than input")
	}
	_ = dst[len(src)-1]
	i, j := c.i, c.j
	for k, v := range src {
		i++
		j += c.s[i]
		c.s[i], c.s[j] = c.s[j], c.s[i]
		dst[k] = v ^ c.s[c.s[i]+c.s[j]]
	}
	c.i, c.j = i, j
}

// Apply returns payload XORed with the keystream for key. Applying it twice
// with the same key yields the original payload.
func Apply(key, payload []byte) ([]byte, error) {
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(payload))
	c.XORKeyStream(out, payload)
	return out, nil
}

// Keystream returns the first n keystream bytes for key.
func Keystream(key []byte, n int) ([]byte, error) {
	if n < 0 {
		n = 0
	}
	return Apply(key, make([]byte, n))
}
