package repair

// Kind tags the matching strategy of a Rule.
type Kind int

const (
	KindMPEGSync Kind = iota + 1
	KindID3
	KindWideSync
	KindFixedOffset
)

// Confidence grades how much a match can be trusted.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Rule is one entry of the ordered signature list.
type Rule struct {
	Kind       Kind
	Name       string
	Confidence Confidence
	// Offsets lists candidate positions for KindFixedOffset, relative to the
	// nominal payload start.
	Offsets []int
}

// DefaultFixedOffsets are the positions probed when no signature is found by
// scanning.
var DefaultFixedOffsets = []int{0, 1024, 2048, 4096, 8192}

// DefaultRules returns the rule list in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: KindMPEGSync, Name: "mpeg-sync", Confidence: ConfidenceHigh},
		{Kind: KindID3, Name: "id3", Confidence: ConfidenceHigh},
		{Kind: KindWideSync, Name: "wide-sync", Confidence: ConfidenceLow},
		{Kind: KindFixedOffset, Name: "fixed-offset", Confidence: ConfidenceHigh, Offsets: append([]int(nil), DefaultFixedOffsets...)},
	}
}

// width is the number of decrypted bytes a scanning rule inspects.
func (r Rule) width() int {
	switch r.Kind {
	case KindMPEGSync:
		return 4
	case KindID3:
		return 3
	case KindWideSync:
		return 2
	default:
		return ProbeLength
	}
}

func (r Rule) matches(plain []byte) bool {
	switch r.Kind {
	case KindMPEGSync:
		return IsMPEGFrameHeader(plain)
	case KindID3:
		return Sniff(plain) == SignatureID3
	case KindWideSync:
		return IsFrameSync(plain)
	case KindFixedOffset:
		return Sniff(plain) != SignatureNone
	default:
		return false
	}
}
