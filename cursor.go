package wwise

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

// Cursor is a little-endian reader with a movable position over a
// random-access byte source. It backs both the package reader and the bank
// decoder; a mapped file and an in-memory slice are read the same way.
type Cursor struct {
	r    io.ReaderAt
	size int64
	pos  int64
}

// NewCursor returns a cursor over the first size bytes of r.
func NewCursor(r io.ReaderAt, size int64) *Cursor {
	return &Cursor{r: r, size: size}
}

// NewBytesCursor returns a cursor over an in-memory buffer.
func NewBytesCursor(b []byte) *Cursor {
	return NewCursor(bytes.NewReader(b), int64(len(b)))
}

// Size returns the total number of bytes in the source.
func (c *Cursor) Size() int64 {
	return c.size
}

// Pos returns the current read position.
func (c *Cursor) Pos() int64 {
	return c.pos
}

// Len returns the number of bytes between the position and the end.
func (c *Cursor) Len() int64 {
	if c.pos >= c.size {
		return 0
	}

	return c.size - c.pos
}

// Seek implements io.Seeker. Seeking past the end is allowed; the next read
// fails.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var abs int64

	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.pos + offset
	case io.SeekEnd:
		abs = c.size + offset
	default:
		return c.pos, fmt.Errorf("invalid whence %d", whence)
	}

	if abs < 0 {
		return c.pos, fmt.Errorf("negative position %d", abs)
	}

	c.pos = abs

	return abs, nil
}

// Read implements io.Reader so the cursor can feed stream parsers.
func (c *Cursor) Read(p []byte) (int, error) {
	if c.pos >= c.size {
		return 0, io.EOF
	}

	if rem := c.size - c.pos; int64(len(p)) > rem {
		p = p[:rem]
	}

	n, err := c.r.ReadAt(p, c.pos)
	c.pos += int64(n)

	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}

	return n, err
}

// BytesAt returns a copy of n bytes at off without moving the position.
func (c *Cursor) BytesAt(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+int64(n) > c.size {
		return nil, fmt.Errorf("%w: %d bytes at offset %d (size %d)", ErrTruncatedInput, n, off, c.size)
	}

	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}

	if _, err := c.r.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", n, off, err)
	}

	return buf, nil
}

// Bytes reads n bytes at the position and advances past them.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	buf, err := c.BytesAt(c.pos, n)
	if err != nil {
		return nil, err
	}

	c.pos += int64(n)

	return buf, nil
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 || c.pos+n > c.size {
		return fmt.Errorf("%w: skip %d bytes at offset %d (size %d)", ErrTruncatedInput, n, c.pos, c.size)
	}

	c.pos += n

	return nil
}

// Uint16At reads a little-endian uint16 at off without moving the position.
func (c *Cursor) Uint16At(off int64) (uint16, error) {
	b, err := c.BytesAt(off, 2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

// Uint32At reads a little-endian uint32 at off without moving the position.
func (c *Cursor) Uint32At(off int64) (uint32, error) {
	b, err := c.BytesAt(off, 4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// Uint32 reads a little-endian uint32 and advances.
func (c *Cursor) Uint32() (uint32, error) {
	v, err := c.Uint32At(c.pos)
	if err != nil {
		return 0, err
	}

	c.pos += 4

	return v, nil
}

// Uint64 reads a little-endian uint64 and advances.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// UTF16StringAt decodes a NUL-terminated little-endian UTF-16 string at off.
// The position is not moved.
func (c *Cursor) UTF16StringAt(off int64) (string, error) {
	var units []uint16

	for p := off; ; p += 2 {
		u, err := c.Uint16At(p)
		if err != nil {
			return "", fmt.Errorf("unterminated string at offset %d: %w", off, err)
		}

		if u == 0 {
			break
		}

		units = append(units, u)
	}

	return string(utf16.Decode(units)), nil
}
