package ncm

import (
	"bytes"
	"crypto/aes"
	"errors"
	"fmt"
)

// ErrNonASCIIKey reports a stream key that cannot be stored in a key block.
var ErrNonASCIIKey = errors.New("ncm: stream key must be ASCII")

// KeyMaterial is the recovered stream cipher key.
type KeyMaterial []byte

// RecoverKey unwraps an encrypted key block: XOR mask, AES-128-ECB with the
// core key, padding removal, then the fixed prefix check.
func RecoverKey(block []byte) (KeyMaterial, error) {
	if len(block) == 0 || len(block)%aes.BlockSize != 0 {
		return nil, decodeErr(KindKeyDecryptionFailed, "key block", 0,
			fmt.Errorf("length %d is not a positive multiple of %d", len(block), aes.BlockSize))
	}
	buf := make([]byte, len(block))
	for i, b := range block {
		buf[i] = b ^ keyBlockMask
	}
	blockCipher, err := aes.NewCipher(coreKey[:])
	if err != nil {
		return nil, decodeErr(KindKeyDecryptionFailed, "core key", 0, err)
	}
	for off := 0; off < len(buf); off += aes.BlockSize {
		blockCipher.Decrypt(buf[off:off+aes.BlockSize], buf[off:off+aes.BlockSize])
	}

	plain := unpad(buf)
	for i, b := range plain {
		if b >= 0x80 {
			return nil, decodeErr(KindKeyDecryptionFailed, "key text", i, errors.New("non-ASCII byte"))
		}
	}
	if !bytes.HasPrefix(plain, keyPrefix) {
		return nil, decodeErr(KindKeyParseFailed, "key prefix", 0, nil)
	}
	key := plain[len(keyPrefix):]
	if len(key) == 0 {
		return nil, decodeErr(KindKeyParseFailed, "key material", len(keyPrefix), errors.New("empty key"))
	}
	return KeyMaterial(bytes.Clone(key)), nil
}

// SealKey produces the key block that RecoverKey turns back into key. Keys
// must be ASCII since RecoverKey rejects anything else.
func SealKey(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("ncm: empty key")
	}
	for i, b := range key {
		if b >= 0x80 {
			return nil, fmt.Errorf("%w: byte %d is 0x%02x", ErrNonASCIIKey, i, b)
		}
	}
	if len(keyPrefix)+len(key)+aes.BlockSize > MaxBlockSize {
		return nil, fmt.Errorf("ncm: key of %d bytes exceeds the key block limit", len(key))
	}
	plain := pad(append(bytes.Clone(keyPrefix), key...))
	blockCipher, err := aes.NewCipher(coreKey[:])
	if err != nil {
		return nil, err
	}
	for off := 0; off < len(plain); off += aes.BlockSize {
		blockCipher.Encrypt(plain[off:off+aes.BlockSize], plain[off:off+aes.BlockSize])
	}
	for i := range plain {
		plain[i] ^= keyBlockMask
	}
	return plain, nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, falling back to trailing NUL removal when the
// padding is malformed.
func unpad(b []byte) []byte {
	if len(b) > 0 {
		n := int(b[len(b)-1])
		if n >= 1 && n <= aes.BlockSize && n <= len(b) {
			valid := true
			for _, v := range b[len(b)-n:] {
				if int(v) != n {
					valid = false
					break
				}
			}
			if valid {
				return b[:len(b)-n]
			}
		}
	}
	return bytes.TrimRight(b, "\x00")
}
