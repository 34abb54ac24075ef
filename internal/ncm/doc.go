// Package ncm decodes NCM encrypted music containers.
//
// Decoding is a pipeline of pure transforms over an in-memory buffer:
//
//   - Parse splits the container into its length-prefixed blocks.
//   - RecoverKey unwraps the per-file stream key from the AES-ECB key block.
//   - The RC4 keystream from internal/streamcipher decrypts the audio payload.
//   - When the cover length is implausible, internal/repair relocates the true
//     start of the audio stream before decryption.
//
// Decoder ties the stages together, classifies failures as DecodeError
// values, and attaches a format hint and checksum verdict to the result.
// Marshal builds containers in the same layout for fixtures and sample
// generation.
package ncm
