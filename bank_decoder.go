package wwise

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/riff"
	"golang.org/x/exp/mmap"
)

// BankDecoder reads a sound bank chunk stream.
type BankDecoder struct {
	cur    *Cursor
	parser *riff.Parser
	chunks *ChunkRegistry
}

// NewBankDecoder creates a decoder over the first size bytes of r.
func NewBankDecoder(r io.ReaderAt, size int64) *BankDecoder {
	cur := NewCursor(r, size)

	return &BankDecoder{
		cur:    cur,
		parser: riff.New(cur),
		chunks: NewChunkRegistry(),
	}
}

// Registry returns the registry used to dispatch chunk tags. Register on it
// before calling Decode.
func (d *BankDecoder) Registry() *ChunkRegistry {
	return d.chunks
}

// SetRegistry replaces the chunk registry.
func (d *BankDecoder) SetRegistry(r *ChunkRegistry) {
	d.chunks = r
}

// Decode reads every chunk until fewer than a chunk header's worth of bytes
// remain. Known tags are decoded and stored in stream order, a repeated tag
// replacing the earlier chunk in place. Unknown tags are skipped and listed
// in Bank.Skipped. When both DIDX and DATA are present the data is split
// into WEM blobs.
func (d *BankDecoder) Decode() (*Bank, error) {
	bnk := &Bank{}

	for order := 0; d.cur.Len() >= chunkHeaderSize; order++ {
		id, size, err := d.parser.IDnSize()
		if err != nil {
			return nil, fmt.Errorf("error reading chunk header at %d: %w", d.cur.Pos(), err)
		}

		if order == 0 && id != CIDBankHeader {
			return nil, fmt.Errorf("%w: bank starts with %q, want %q", ErrMalformedHeader, id, CIDBankHeader)
		}

		if int64(size) > d.cur.Len() {
			return nil, fmt.Errorf("%w: chunk %s declares %d bytes, %d remain", ErrTruncatedInput, id, size, d.cur.Len())
		}

		payload, err := d.cur.Bytes(int(size))
		if err != nil {
			return nil, err
		}

		chunk, handled, err := d.chunks.Decode(id, payload)
		if err != nil {
			return nil, err
		}

		if !handled {
			bnk.Skipped = append(bnk.Skipped, SkippedChunk{ID: id, Size: size, Order: order})
			continue
		}

		bnk.put(chunk)
	}

	if len(bnk.chunks) == 0 {
		return nil, fmt.Errorf("%w: no bank header", ErrMalformedHeader)
	}

	data := bnk.Data()
	if idx := bnk.Index(); data != nil && idx != nil {
		if err := data.Split(idx); err != nil {
			return nil, err
		}
	}

	return bnk, nil
}

// ParseBank decodes a bank held in memory.
func ParseBank(b []byte) (*Bank, error) {
	return NewBankDecoder(bytes.NewReader(b), int64(len(b))).Decode()
}

// OpenBank maps the file at path and decodes it. Chunk payloads are copied
// out of the mapping, so the file is closed before returning.
func OpenBank(path string) (*Bank, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	bnk, decErr := NewBankDecoder(ra, int64(ra.Len())).Decode()

	if err := ra.Close(); err != nil && decErr == nil {
		decErr = err
	}

	if decErr != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, decErr)
	}

	return bnk, nil
}
