package ncm

import "ncmdump/internal/repair"

// FormatHint names the container detected at the start of a decrypted stream.
type FormatHint string

const (
	FormatMP3        FormatHint = "mp3"
	FormatID3Wrapped FormatHint = "id3-wrapped-mp3"
	FormatWAV        FormatHint = "wav"
	FormatFLAC       FormatHint = "flac"
	FormatM4A        FormatHint = "m4a"
	FormatUnknown    FormatHint = "unknown"
)

// DetectFormat sniffs the leading bytes of a decrypted stream.
func DetectFormat(stream []byte) FormatHint {
	switch repair.Sniff(stream) {
	case repair.SignatureMPEG:
		return FormatMP3
	case repair.SignatureID3:
		return FormatID3Wrapped
	case repair.SignatureWAVE:
		return FormatWAV
	case repair.SignatureFLAC:
		return FormatFLAC
	case repair.SignatureMP4:
		return FormatM4A
	default:
		return FormatUnknown
	}
}

// Extension returns the natural file extension, without a dot.
func (f FormatHint) Extension() string {
	switch f {
	case FormatMP3, FormatID3Wrapped:
		return "mp3"
	case FormatWAV:
		return "wav"
	case FormatFLAC:
		return "flac"
	case FormatM4A:
		return "m4a"
	default:
		return "bin"
	}
}

// Known reports whether the hint names a recognised container.
func (f FormatHint) Known() bool {
	return f != "" && f != FormatUnknown
}
