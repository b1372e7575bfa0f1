package wwise

import (
	"encoding/binary"
	"fmt"
)

var (
	// CIDBankHeader is the chunk ID of the bank header.
	CIDBankHeader = [4]byte{'B', 'K', 'H', 'D'}
	// CIDIndex is the chunk ID of the data index.
	CIDIndex = [4]byte{'D', 'I', 'D', 'X'}
	// CIDData is the chunk ID of the WEM data blob.
	CIDData = [4]byte{'D', 'A', 'T', 'A'}
	// CIDHierarchy is the chunk ID of the object hierarchy.
	CIDHierarchy = [4]byte{'H', 'I', 'R', 'C'}
)

const (
	chunkHeaderSize = 8
	indexEntrySize  = 12
	bankHeaderMin   = 8
)

// Chunk is one tagged, length-prefixed section of a sound bank.
type Chunk interface {
	// ChunkID returns the four-character tag.
	ChunkID() [4]byte
	// Len returns the payload length, excluding the 8-byte tag and length.
	Len() int
	// Payload returns the serialized payload.
	Payload() []byte
}

// RawChunk keeps a chunk verbatim. It is produced for tags registered with
// RawChunkDecoder; unregistered tags are skipped instead.
type RawChunk struct {
	ID   [4]byte
	Data []byte
}

func (c *RawChunk) ChunkID() [4]byte { return c.ID }
func (c *RawChunk) Len() int         { return len(c.Data) }
func (c *RawChunk) Payload() []byte  { return c.Data }

func (c *RawChunk) Clone() *RawChunk {
	out := *c
	out.Data = append([]byte(nil), c.Data...)

	return &out
}

// SkippedChunk records a chunk the decoder stepped over because no decoder
// was registered for its tag.
type SkippedChunk struct {
	ID   [4]byte
	Size uint32
	// Order is the position of the chunk in the source stream.
	Order int
}

// BankHeader is the BKHD chunk: version, bank ID, then opaque data.
type BankHeader struct {
	data []byte
}

func newBankHeader(payload []byte) (*BankHeader, error) {
	if len(payload) < bankHeaderMin {
		return nil, fmt.Errorf("%w: bank header of %d bytes", ErrTruncatedInput, len(payload))
	}

	return &BankHeader{data: payload}, nil
}

func (h *BankHeader) ChunkID() [4]byte { return CIDBankHeader }
func (h *BankHeader) Len() int         { return len(h.data) }
func (h *BankHeader) Payload() []byte  { return h.data }

// Version returns the bank format version.
func (h *BankHeader) Version() uint32 {
	return binary.LittleEndian.Uint32(h.data[0:4])
}

// BankID returns the identity hash of the bank.
func (h *BankHeader) BankID() uint32 {
	return binary.LittleEndian.Uint32(h.data[4:8])
}

// SetBankID overwrites the identity hash.
func (h *BankHeader) SetBankID(id uint32) {
	binary.LittleEndian.PutUint32(h.data[4:8], id)
}

func (h *BankHeader) Clone() *BankHeader {
	return &BankHeader{data: append([]byte(nil), h.data...)}
}

// IndexEntry locates one WEM inside the DATA payload.
type IndexEntry struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

// Index is the DIDX chunk.
type Index struct {
	entries *orderedMap[IndexEntry]
}

func newIndex(payload []byte) (*Index, error) {
	if len(payload)%indexEntrySize != 0 {
		return nil, fmt.Errorf("%w: index length %d is not a multiple of %d", ErrMalformedHeader, len(payload), indexEntrySize)
	}

	idx := &Index{entries: newOrderedMap[IndexEntry](len(payload) / indexEntrySize)}

	for off := 0; off < len(payload); off += indexEntrySize {
		e := IndexEntry{
			ID:     binary.LittleEndian.Uint32(payload[off:]),
			Offset: binary.LittleEndian.Uint32(payload[off+4:]),
			Size:   binary.LittleEndian.Uint32(payload[off+8:]),
		}
		idx.entries.Set(e.ID, e)
	}

	return idx, nil
}

// NewIndex builds an index from entries, keeping their order.
func NewIndex(entries []IndexEntry) *Index {
	idx := &Index{entries: newOrderedMap[IndexEntry](len(entries))}
	for _, e := range entries {
		idx.entries.Set(e.ID, e)
	}

	return idx
}

func (x *Index) ChunkID() [4]byte { return CIDIndex }
func (x *Index) Len() int         { return x.entries.Len() * indexEntrySize }

func (x *Index) Payload() []byte {
	buf := make([]byte, 0, x.Len())
	for _, e := range x.Entries() {
		buf = binary.LittleEndian.AppendUint32(buf, e.ID)
		buf = binary.LittleEndian.AppendUint32(buf, e.Offset)
		buf = binary.LittleEndian.AppendUint32(buf, e.Size)
	}

	return buf
}

// Entries returns the entries in iteration order.
func (x *Index) Entries() []IndexEntry {
	out := make([]IndexEntry, 0, x.entries.Len())
	for _, id := range x.entries.keys {
		out = append(out, x.entries.vals[id])
	}

	return out
}

// Lookup returns the entry for id.
func (x *Index) Lookup(id uint32) (IndexEntry, bool) {
	return x.entries.Get(id)
}

// Count returns the number of entries.
func (x *Index) Count() int {
	return x.entries.Len()
}

func (x *Index) Clone() *Index {
	return &Index{entries: x.entries.Clone()}
}

// Data is the DATA chunk. Until Split is called it holds a single payload;
// afterwards it also owns one blob per WEM ID.
type Data struct {
	payload []byte
	wems    *orderedMap[[]byte]
}

func newData(payload []byte) (*Data, error) {
	return &Data{payload: payload}, nil
}

func (d *Data) ChunkID() [4]byte { return CIDData }
func (d *Data) Len() int         { return len(d.payload) }
func (d *Data) Payload() []byte  { return d.payload }

// IsSplit reports whether the payload has been partitioned into WEMs.
func (d *Data) IsSplit() bool {
	return d.wems != nil
}

// Split slices the payload into per-ID WEM blobs in index order. Calling it
// again on an already split chunk does nothing.
func (d *Data) Split(idx *Index) error {
	if d.wems != nil {
		return nil
	}

	if idx == nil {
		return ErrMissingIndexForData
	}

	wems := newOrderedMap[[]byte](idx.Count())

	for _, e := range idx.Entries() {
		end := uint64(e.Offset) + uint64(e.Size)
		if end > uint64(len(d.payload)) {
			return fmt.Errorf("%w: wem %d spans %d..%d of a %d byte data chunk",
				ErrTruncatedInput, e.ID, e.Offset, end, len(d.payload))
		}

		wems.Set(e.ID, append([]byte(nil), d.payload[e.Offset:end]...))
	}

	d.wems = wems

	return nil
}

// IDs returns the WEM IDs in layout order, or nil if not split.
func (d *Data) IDs() []uint32 {
	if d.wems == nil {
		return nil
	}

	return d.wems.Keys()
}

// Wem returns the blob owned for id.
func (d *Data) Wem(id uint32) ([]byte, bool) {
	if d.wems == nil {
		return nil, false
	}

	return d.wems.Get(id)
}

// Count returns the number of WEM blobs.
func (d *Data) Count() int {
	if d.wems == nil {
		return 0
	}

	return d.wems.Len()
}

func (d *Data) Clone() *Data {
	out := &Data{payload: d.payload}
	if d.wems != nil {
		out.wems = d.wems.Clone()
	}

	return out
}

// layout rebuilds the payload from the WEM blobs so that every blob after
// the first starts at a 16-byte aligned file offset, given that the payload
// itself starts at startPos. No padding follows the last blob.
func (d *Data) layout(startPos int) ([]IndexEntry, error) {
	if d.wems == nil || d.wems.Len() == 0 {
		return nil, ErrEmptyData
	}

	keys := d.wems.keys
	entries := make([]IndexEntry, 0, len(keys))

	size := 0
	for _, id := range keys {
		size += len(d.wems.vals[id]) + 15
	}

	payload := make([]byte, 0, size)

	for i, id := range keys {
		wem := d.wems.vals[id]
		entries = append(entries, IndexEntry{ID: id, Offset: uint32(len(payload)), Size: uint32(len(wem))})
		payload = append(payload, wem...)

		var pad int

		switch {
		case i == len(keys)-1:
			pad = 0
		case i == 0:
			pad = align16(len(wem) + startPos)
		default:
			pad = align16(len(wem))
		}

		payload = append(payload, make([]byte, pad)...)
	}

	d.payload = payload

	return entries, nil
}

// Hierarchy is the HIRC chunk. Only the object count is interpreted.
type Hierarchy struct {
	Count uint32
	Body  []byte
}

func newHierarchy(payload []byte) (*Hierarchy, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: hierarchy of %d bytes", ErrTruncatedInput, len(payload))
	}

	return &Hierarchy{
		Count: binary.LittleEndian.Uint32(payload[0:4]),
		Body:  payload[4:],
	}, nil
}

func (h *Hierarchy) ChunkID() [4]byte { return CIDHierarchy }
func (h *Hierarchy) Len() int         { return 4 + len(h.Body) }

func (h *Hierarchy) Payload() []byte {
	buf := make([]byte, 0, h.Len())
	buf = binary.LittleEndian.AppendUint32(buf, h.Count)

	return append(buf, h.Body...)
}
