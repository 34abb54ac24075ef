package ncm

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"ncmdump/internal/streamcipher"
)

// ContainerSpec describes a container for Marshal.
type ContainerSpec struct {
	Version     uint16
	Key         []byte
	Audio       []byte
	Cover       []byte
	ModifyCount uint32
	Checksum    uint32

	// CoverLengthOverride replaces the stored cover length.
	CoverLengthOverride *uint32
	// Junk is written between the cover and the encrypted audio.
	Junk []byte
}

// ChecksumOf returns the CRC-32 (IEEE) stored in the checksum field.
func ChecksumOf(audio []byte) uint32 {
	return crc32.ChecksumIEEE(audio)
}

// Marshal builds an encrypted container from plain key and audio.
func Marshal(spec ContainerSpec) ([]byte, error) {
	if len(spec.Audio) == 0 {
		return nil, errors.New("ncm: empty audio")
	}
	if len(spec.Cover) > MaxBlockSize {
		return nil, errors.New("ncm: cover exceeds maximum block size")
	}
	keyBlock, err := SealKey(spec.Key)
	if err != nil {
		return nil, err
	}
	audio, err := streamcipher.Apply(spec.Key, spec.Audio)
	if err != nil {
		return nil, err
	}

	coverLen := uint32(len(spec.Cover))
	if spec.CoverLengthOverride != nil {
		coverLen = *spec.CoverLengthOverride
	}

	out := make([]byte, 0, 30+len(keyBlock)+len(spec.Cover)+len(spec.Junk)+len(audio))
	out = append(out, Magic[:]...)
	out = binary.LittleEndian.AppendUint16(out, spec.Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(keyBlock)))
	out = append(out, keyBlock...)
	out = binary.LittleEndian.AppendUint32(out, spec.ModifyCount)
	out = binary.LittleEndian.AppendUint32(out, spec.Checksum)
	out = binary.LittleEndian.AppendUint32(out, coverLen)
	out = append(out, spec.Cover...)
	out = append(out, spec.Junk...)
	out = append(out, audio...)
	return out, nil
}
