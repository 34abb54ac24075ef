// Package streamcipher implements the RC4 keystream used to encrypt NCM audio
// payloads.
//
// Unlike crypto/rc4, keys of any non-zero length are accepted; NCM key
// material routinely exceeds 256 bytes. Cipher satisfies crypto/cipher.Stream
// so payloads can be decrypted in one call or in chunks with identical
// results.
package streamcipher
