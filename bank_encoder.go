package wwise

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errNilWriter = errors.New("can't write to a nil writer")

// bankEncoder serializes chunks as tag, little-endian length, payload.
type bankEncoder struct {
	w io.Writer

	WrittenBytes int
}

func newBankEncoder(w io.Writer) *bankEncoder {
	return &bankEncoder{w: w}
}

// AddLE serializes and adds the passed value using little endian.
func (e *bankEncoder) AddLE(src any) error {
	e.WrittenBytes += binary.Size(src)

	err := binary.Write(e.w, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write little endian: %w", err)
	}

	return nil
}

func (e *bankEncoder) writeChunk(c Chunk) error {
	if e.w == nil {
		return errNilWriter
	}

	id := c.ChunkID()
	payload := c.Payload()

	if err := e.AddLE(id); err != nil {
		return fmt.Errorf("failed to write chunk id %s: %w", id, err)
	}

	if err := e.AddLE(uint32(len(payload))); err != nil {
		return fmt.Errorf("failed to write chunk size %s: %w", id, err)
	}

	n, err := e.w.Write(payload)
	e.WrittenBytes += n

	if err != nil {
		return fmt.Errorf("failed to write chunk payload %s: %w", id, err)
	}

	return nil
}
