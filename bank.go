package wwise

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WemExt is the file extension given to raw audio blobs.
const WemExt = "wem"

// Bank is a decoded sound bank. Chunks are kept in load order and written
// back in that order. An absent DIDX or DATA chunk is distinct from one with
// no entries: the accessors return nil for the former.
//
// A Bank is not safe for concurrent use.
type Bank struct {
	chunks []Chunk
	// Skipped lists chunks with no registered decoder, in stream order.
	Skipped []SkippedChunk
}

// NewBank assembles a bank from chunks in the given order. Nil chunks are
// ignored so absent sections can be passed through.
func NewBank(chunks ...Chunk) *Bank {
	b := &Bank{}
	for _, c := range chunks {
		if c == nil || isNilChunk(c) {
			continue
		}

		b.put(c)
	}

	return b
}

func isNilChunk(c Chunk) bool {
	switch v := c.(type) {
	case *BankHeader:
		return v == nil
	case *Index:
		return v == nil
	case *Data:
		return v == nil
	case *Hierarchy:
		return v == nil
	case *RawChunk:
		return v == nil
	}

	return false
}

// put stores c, replacing a chunk with the same tag in place.
func (b *Bank) put(c Chunk) {
	id := c.ChunkID()
	for i := range b.chunks {
		if b.chunks[i].ChunkID() == id {
			b.chunks[i] = c
			return
		}
	}

	b.chunks = append(b.chunks, c)
}

// Chunk returns the chunk stored under id, or nil.
func (b *Bank) Chunk(id [4]byte) Chunk {
	for _, c := range b.chunks {
		if c.ChunkID() == id {
			return c
		}
	}

	return nil
}

// Chunks returns the stored chunks in write order.
func (b *Bank) Chunks() []Chunk {
	return append([]Chunk(nil), b.chunks...)
}

// Header returns the BKHD chunk, or nil.
func (b *Bank) Header() *BankHeader {
	h, _ := b.Chunk(CIDBankHeader).(*BankHeader)
	return h
}

// Index returns the DIDX chunk, or nil if absent.
func (b *Bank) Index() *Index {
	x, _ := b.Chunk(CIDIndex).(*Index)
	return x
}

// Data returns the DATA chunk, or nil if absent.
func (b *Bank) Data() *Data {
	d, _ := b.Chunk(CIDData).(*Data)
	return d
}

// Hierarchy returns the HIRC chunk, or nil.
func (b *Bank) Hierarchy() *Hierarchy {
	h, _ := b.Chunk(CIDHierarchy).(*Hierarchy)
	return h
}

// WemIDs returns the IDs of the WEMs held by the bank in layout order.
func (b *Bank) WemIDs() []uint32 {
	if d := b.Data(); d != nil {
		return d.IDs()
	}

	return nil
}

func (b *Bank) splitData() (*Data, error) {
	d := b.Data()
	if d == nil {
		return nil, fmt.Errorf("%w: no data chunk", ErrMissingIndexForData)
	}

	if !d.IsSplit() {
		if err := d.Split(b.Index()); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Wem returns a copy of the WEM stored under id.
func (b *Bank) Wem(id uint32) ([]byte, error) {
	d, err := b.splitData()
	if err != nil {
		return nil, err
	}

	wem, ok := d.Wem(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrWemNotFound, id)
	}

	return append([]byte(nil), wem...), nil
}

// Extract writes <dir>/<id>.wem for each id, or for every WEM when no ids
// are given. A failing id does not stop the others; the number of files
// written is returned with the joined per-id errors.
func (b *Bank) Extract(dir string, ids ...uint32) (int, error) {
	d, err := b.splitData()
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		ids = d.IDs()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	var (
		written int
		errs    []error
	)

	for _, id := range ids {
		wem, ok := d.Wem(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrWemNotFound, id))
			continue
		}

		path := filepath.Join(dir, strconv.FormatUint(uint64(id), 10)+"."+WemExt)
		if err := os.WriteFile(path, wem, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("wem %d: %w", id, err))
			continue
		}

		written++
	}

	return written, errors.Join(errs...)
}

// Replace swaps the WEM stored under id for wem and lays the data out
// again. The id must already exist.
func (b *Bank) Replace(id uint32, wem []byte) error {
	d, err := b.splitData()
	if err != nil {
		return err
	}

	if _, ok := d.Wem(id); !ok {
		return fmt.Errorf("%w: %d", ErrReplaceTargetNotFound, id)
	}

	d.wems.Set(id, append([]byte(nil), wem...))

	return b.CorrectOffsets()
}

// dataStart returns the absolute file offset of the DATA payload given the
// current chunk order and the length DIDX will have once rewritten.
func (b *Bank) dataStart(indexLen int) int {
	pos := 0
	for _, c := range b.chunks {
		n := c.Len()

		switch c.ChunkID() {
		case CIDData:
			return pos + chunkHeaderSize
		case CIDIndex:
			n = indexLen
		}

		pos += chunkHeaderSize + n
	}

	return pos + chunkHeaderSize
}

// CorrectOffsets rebuilds the DATA payload so that every WEM after the first
// starts on a 16-byte boundary of the file, then rewrites DIDX to match. A
// bank with neither chunk is left alone.
func (b *Bank) CorrectOffsets() error {
	d, idx := b.Data(), b.Index()

	switch {
	case d == nil && idx == nil:
		return nil
	case d == nil || idx == nil:
		return ErrMissingIndexForData
	}

	if err := d.Split(idx); err != nil {
		return err
	}

	entries, err := d.layout(b.dataStart(d.Count() * indexEntrySize))
	if err != nil {
		return err
	}

	*idx = *NewIndex(entries)

	return nil
}

// Encode writes the bank to w. When name is not empty the bank ID is first
// set to the hash of its base name without extension.
func (b *Bank) Encode(w io.Writer, name string) error {
	if name != "" {
		h := b.Header()
		if h == nil {
			return fmt.Errorf("%w: no bank header", ErrMalformedHeader)
		}

		h.SetBankID(HashName(stem(name)))
	}

	enc := newBankEncoder(w)
	for _, c := range b.chunks {
		if err := enc.writeChunk(c); err != nil {
			return err
		}
	}

	return nil
}

// Bytes serializes the bank without touching its ID.
func (b *Bank) Bytes() []byte {
	var buf bytes.Buffer

	// bytes.Buffer writes do not fail.
	_ = b.Encode(&buf, "")

	return buf.Bytes()
}

// Save writes the bank to path, naming it after the file.
func (b *Bank) Save(path string) error {
	var buf bytes.Buffer
	if err := b.Encode(&buf, path); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save bank: %w", err)
	}

	return nil
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
