package bytecursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated reports a read that would run past the end of the buffer.
var ErrTruncated = errors.New("unexpected end of data")

// Cursor is a forward-only reader over a byte slice. Returned slices alias
// the underlying buffer.
type Cursor struct {
	data []byte
	off  int
}

// New returns a cursor positioned at the start of data.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Offset reports the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining reports the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.off
}

// ReadExact returns the next n bytes and advances past them.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if err := c.check(n); err != nil {
		return nil, err
	}
	out := c.data[c.off : c.off+n : c.off+n]
	c.off += n
	return out, nil
}

// ReadU16LE decodes a little-endian uint16.
func (c *Cursor) ReadU16LE() (uint16, error) {
	if err := c.check(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.data[c.off:])
	c.off += 2
	return v, nil
}

// ReadU32LE decodes a little-endian uint32.
func (c *Cursor) ReadU32LE() (uint32, error) {
	if err := c.check(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.off:])
	c.off += 4
	return v, nil
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) error {
	if err := c.check(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// Peek returns up to n upcoming bytes without advancing.
func (c *Cursor) Peek(n int) []byte {
	if n < 0 {
		n = 0
	}
	end := c.off + n
	if end > len(c.data) {
		end = len(c.data)
	}
	return c.data[c.off:end:end]
}

// Rest consumes and returns every unread byte.
func (c *Cursor) Rest() []byte {
	out := c.data[c.off:]
	c.off = len(c.data)
	return out
}

func (c *Cursor) check(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d at offset %d", ErrTruncated, n, c.off)
	}
	if n > c.Remaining() {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.off, c.Remaining())
	}
	return nil
}
