package ncm

import (
	"errors"
	"fmt"
)

// Kind classifies decode failures.
type Kind int

const (
	KindHeaderInvalid Kind = iota + 1
	KindTruncated
	KindKeyLengthInvalid
	KindKeyDecryptionFailed
	KindKeyParseFailed
	KindRepairFailed
)

var (
	ErrHeaderInvalid       = errors.New("header invalid")
	ErrTruncated           = errors.New("truncated")
	ErrKeyLengthInvalid    = errors.New("key length invalid")
	ErrKeyDecryptionFailed = errors.New("key decryption failed")
	ErrKeyParseFailed      = errors.New("key parse failed")
	ErrRepairFailed        = errors.New("repair failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindHeaderInvalid:
		return ErrHeaderInvalid
	case KindTruncated:
		return ErrTruncated
	case KindKeyLengthInvalid:
		return ErrKeyLengthInvalid
	case KindKeyDecryptionFailed:
		return ErrKeyDecryptionFailed
	case KindKeyParseFailed:
		return ErrKeyParseFailed
	case KindRepairFailed:
		return ErrRepairFailed
	default:
		return nil
	}
}

func (k Kind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DecodeError reports why a container could not be decoded.
type DecodeError struct {
	Kind   Kind
	Op     string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "ncm: " + e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	msg += fmt.Sprintf(" (offset %d)", e.Offset)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *DecodeError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// ErrorKind classifies decode failures as invalid input for status mapping.
func (e *DecodeError) ErrorKind() string {
	return "validation"
}

func decodeErr(kind Kind, op string, offset int, err error) error {
	return &DecodeError{Kind: kind, Op: op, Offset: offset, Err: err}
}

// KindOf returns the decode error kind carried by err, or 0.
func KindOf(err error) Kind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
