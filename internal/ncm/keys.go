package ncm

// Fixed container constants. These are part of the format, not configuration.
var (
	// Magic is the 8-byte container signature "CTENFDAM".
	Magic = [8]byte{0x43, 0x54, 0x45, 0x4E, 0x46, 0x44, 0x41, 0x4D}

	// coreKey is the AES-128 key wrapping every key block ("hzHRAmso5kInbaxW").
	coreKey = [16]byte{0x68, 0x7A, 0x48, 0x52, 0x41, 0x6D, 0x73, 0x6F, 0x35, 0x6B, 0x49, 0x6E, 0x62, 0x61, 0x78, 0x57}

	keyPrefix = []byte("neteasecloudmusic")
)

const (
	keyBlockMask = 0x64

	// MaxBlockSize bounds the key and cover blocks.
	MaxBlockSize = 1 << 20
)
