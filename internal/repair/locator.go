package repair

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultWindow = 8 * 1024
	MinWindow     = 2 * 1024
	MaxWindow     = 64 * 1024

	cancelCheckInterval = 1024
)

// ErrNoSignature reports that no rule matched.
var ErrNoSignature = errors.New("no audio signature found")

// Match describes the located stream start.
type Match struct {
	Offset     int
	Rule       Rule
	Confidence Confidence
}

// Locator scans a payload with an ordered rule list.
type Locator struct {
	rules  []Rule
	window int
}

// Option configures a Locator.
type Option func(*Locator)

// WithWindow bounds how many leading payload positions scanning rules test.
// Values are clamped to [MinWindow, MaxWindow]; zero keeps the default.
func WithWindow(n int) Option {
	return func(l *Locator) {
		if n != 0 {
			l.window = ClampWindow(n)
		}
	}
}

// WithRules replaces the default rule list.
func WithRules(rules []Rule) Option {
	return func(l *Locator) {
		if len(rules) > 0 {
			l.rules = append([]Rule(nil), rules...)
		}
	}
}

// NewLocator returns a locator using DefaultRules and DefaultWindow unless
// overridden.
func NewLocator(opts ...Option) *Locator {
	l := &Locator{rules: DefaultRules(), window: DefaultWindow}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ClampWindow bounds a scan window to the supported range.
func ClampWindow(n int) int {
	switch {
	case n <= 0:
		return DefaultWindow
	case n < MinWindow:
		return MinWindow
	case n > MaxWindow:
		return MaxWindow
	default:
		return n
	}
}

// Locate finds the first rule match in payload. keystream must hold at least
// ProbeLength leading keystream bytes for the key the payload was encrypted
// with.
func (l *Locator) Locate(ctx context.Context, payload, keystream []byte) (Match, error) {
	if len(keystream) < ProbeLength {
		return Match{}, fmt.Errorf("repair: keystream prefix has %d bytes, need %d", len(keystream), ProbeLength)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	plain := make([]byte, ProbeLength)
	for _, rule := range l.rules {
		var (
			offset int
			ok     bool
			err    error
		)
		if rule.Kind == KindFixedOffset {
			offset, ok = probeOffsets(rule, payload, keystream, plain)
		} else {
			offset, ok, err = l.scan(ctx, rule, payload, keystream, plain)
			if err != nil {
				return Match{}, err
			}
		}
		if ok {
			return Match{Offset: offset, Rule: rule, Confidence: rule.Confidence}, nil
		}
	}
	return Match{}, ErrNoSignature
}

func (l *Locator) scan(ctx context.Context, rule Rule, payload, keystream, plain []byte) (int, bool, error) {
	width := rule.width()
	limit := len(payload) - width
	if limit >= l.window {
		limit = l.window - 1
	}
	for p := 0; p <= limit; p++ {
		if p%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
		}
		if rule.matches(decryptProbe(plain[:width], payload[p:p+width], keystream)) {
			return p, true, nil
		}
	}
	return 0, false, nil
}

func probeOffsets(rule Rule, payload, keystream, plain []byte) (int, bool) {
	for _, offset := range rule.Offsets {
		if offset < 0 || offset >= len(payload) {
			continue
		}
		end := offset + ProbeLength
		if end > len(payload) {
			end = len(payload)
		}
		if rule.matches(decryptProbe(plain[:end-offset], payload[offset:end], keystream)) {
			return offset, true
		}
	}
	return 0, false
}

func decryptProbe(dst, src, keystream []byte) []byte {
	for i := range src {
		dst[i] = src[i] ^ keystream[i]
	}
	return dst[:len(src)]
}
