package ncm

import (
	"bytes"

	"ncmdump/internal/bytecursor"
)

// Container is the parsed block structure of an NCM file. Slices alias the
// input buffer.
type Container struct {
	Magic       [8]byte
	Version     uint16
	KeyBlock    []byte
	ModifyCount uint32
	Checksum    uint32

	// DeclaredCoverLength is the cover length as stored, even when it was
	// rejected.
	DeclaredCoverLength uint32
	Cover               []byte

	// Audio is the still-encrypted payload starting at AudioOffset.
	Audio       []byte
	AudioOffset int

	// NeedsRepair is set when the cover length was implausible and Audio
	// begins right after the cover length field.
	NeedsRepair bool
}

// Parse splits data into container blocks. It never reads beyond data.
func Parse(data []byte) (*Container, error) {
	c := bytecursor.New(data)
	out := &Container{}

	magic, err := c.ReadExact(len(Magic))
	if err != nil {
		// A short prefix of the magic is a cut container, anything else is
		// not a container at all.
		if bytes.HasPrefix(Magic[:], data) {
			return nil, decodeErr(KindTruncated, "magic", c.Offset(), err)
		}
		return nil, decodeErr(KindHeaderInvalid, "magic", 0, err)
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, decodeErr(KindHeaderInvalid, "magic", 0, nil)
	}
	copy(out.Magic[:], magic)

	if out.Version, err = c.ReadU16LE(); err != nil {
		return nil, decodeErr(KindTruncated, "version", c.Offset(), err)
	}

	keyLen, err := c.ReadU32LE()
	if err != nil {
		return nil, decodeErr(KindTruncated, "key length", c.Offset(), err)
	}
	if keyLen == 0 || keyLen > MaxBlockSize || int64(keyLen) > int64(c.Remaining()) {
		return nil, decodeErr(KindKeyLengthInvalid, "key block", c.Offset(), nil)
	}
	if out.KeyBlock, err = c.ReadExact(int(keyLen)); err != nil {
		return nil, decodeErr(KindTruncated, "key block", c.Offset(), err)
	}

	if out.ModifyCount, err = c.ReadU32LE(); err != nil {
		return nil, decodeErr(KindTruncated, "modify count", c.Offset(), err)
	}
	if out.Checksum, err = c.ReadU32LE(); err != nil {
		return nil, decodeErr(KindTruncated, "checksum", c.Offset(), err)
	}

	coverLen, err := c.ReadU32LE()
	if err != nil {
		return nil, decodeErr(KindTruncated, "cover length", c.Offset(), err)
	}
	out.DeclaredCoverLength = coverLen
	if coverLen > MaxBlockSize || int64(coverLen) > int64(c.Remaining()) {
		out.NeedsRepair = true
	} else if out.Cover, err = c.ReadExact(int(coverLen)); err != nil {
		return nil, decodeErr(KindTruncated, "cover", c.Offset(), err)
	}

	out.AudioOffset = c.Offset()
	out.Audio = c.Rest()
	if len(out.Audio) == 0 {
		return nil, decodeErr(KindTruncated, "audio payload", out.AudioOffset, nil)
	}
	return out, nil
}
