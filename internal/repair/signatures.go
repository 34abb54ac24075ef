package repair

import "bytes"

// ProbeLength is the number of decrypted bytes needed to recognise any known
// container signature.
const ProbeLength = 12

// Signature identifies a recognised container or stream header.
type Signature int

const (
	SignatureNone Signature = iota
	SignatureMPEG
	SignatureID3
	SignatureFLAC
	SignatureWAVE
	SignatureMP4
)

func (s Signature) String() string {
	switch s {
	case SignatureMPEG:
		return "mpeg"
	case SignatureID3:
		return "id3"
	case SignatureFLAC:
		return "flac"
	case SignatureWAVE:
		return "wave"
	case SignatureMP4:
		return "mp4"
	default:
		return "none"
	}
}

var (
	magicID3  = []byte("ID3")
	magicFLAC = []byte("fLaC")
	magicRIFF = []byte("RIFF")
	magicWAVE = []byte("WAVE")
	magicFtyp = []byte("ftyp")
)

// Sniff reports the container signature at the start of b.
func Sniff(b []byte) Signature {
	switch {
	case bytes.HasPrefix(b, magicID3):
		return SignatureID3
	case bytes.HasPrefix(b, magicFLAC):
		return SignatureFLAC
	case len(b) >= 12 && bytes.Equal(b[0:4], magicRIFF) && bytes.Equal(b[8:12], magicWAVE):
		return SignatureWAVE
	case len(b) >= 8 && bytes.Equal(b[4:8], magicFtyp):
		return SignatureMP4
	case IsMPEGFrameHeader(b):
		return SignatureMPEG
	default:
		return SignatureNone
	}
}

// IsMPEGFrameHeader reports whether b starts with a plausible MPEG audio frame
// header: an 11-bit sync with no reserved version, layer, bitrate, or sample
// rate field.
func IsMPEGFrameHeader(b []byte) bool {
	if len(b) < 4 || !IsFrameSync(b) {
		return false
	}
	version := (b[1] >> 3) & 0x03
	layer := (b[1] >> 1) & 0x03
	bitrate := b[2] >> 4
	sampleRate := (b[2] >> 2) & 0x03
	return version != 0x01 && layer != 0x00 && bitrate != 0x0F && sampleRate != 0x03
}

// IsFrameSync reports whether b starts with the 11-bit MPEG sync pattern.
func IsFrameSync(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}
