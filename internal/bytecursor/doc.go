// Package bytecursor reads little-endian fields out of an in-memory buffer
// with explicit bounds checks.
//
// A Cursor never reads past the end of its buffer and never moves when a read
// fails, so callers can report the exact offset at which input ran out. All
// failures wrap ErrTruncated.
package bytecursor
