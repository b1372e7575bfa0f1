// Package fixture builds sound banks, package archives and WEM blobs byte by
// byte for tests.
package fixture

import (
	"encoding/binary"
	"unicode/utf16"
)

// Chunk frames payload as tag, little-endian length, payload.
func Chunk(id string, payload []byte) []byte {
	if len(id) != 4 {
		panic("chunk id must be 4 bytes: " + id)
	}

	out := make([]byte, 0, 8+len(payload))
	out = append(out, id...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))

	return append(out, payload...)
}

// BankHeader returns a BKHD payload with the given version and bank ID,
// followed by pad zero bytes.
func BankHeader(version, bankID uint32, pad int) []byte {
	out := make([]byte, 0, 8+pad)
	out = binary.LittleEndian.AppendUint32(out, version)
	out = binary.LittleEndian.AppendUint32(out, bankID)

	return append(out, make([]byte, pad)...)
}

// Wem is one audio blob of a bank.
type Wem struct {
	ID   uint32
	Data []byte
}

// Bank describes a sound bank to build.
type Bank struct {
	Version uint32
	ID      uint32
	// HeaderPad is appended to the 8 known BKHD bytes.
	HeaderPad int
	// Wems are laid out in order, each starting on a 16-byte boundary
	// relative to the DATA payload. No DIDX or DATA is written when nil.
	Wems []Wem
	// NoHierarchy drops the HIRC chunk.
	NoHierarchy    bool
	HierarchyCount uint32
	HierarchyBody  []byte
	// Extra chunks are appended after HIRC.
	Extra [][]byte
}

// Bytes serializes the bank.
func (b Bank) Bytes() []byte {
	out := Chunk("BKHD", BankHeader(b.Version, b.ID, b.HeaderPad))

	if b.Wems != nil {
		index, data := b.layout()
		out = append(out, Chunk("DIDX", index)...)
		out = append(out, Chunk("DATA", data)...)
	}

	if !b.NoHierarchy {
		hirc := binary.LittleEndian.AppendUint32(nil, b.HierarchyCount)
		out = append(out, Chunk("HIRC", append(hirc, b.HierarchyBody...))...)
	}

	for _, c := range b.Extra {
		out = append(out, c...)
	}

	return out
}

func (b Bank) layout() ([]byte, []byte) {
	var index, data []byte

	for i, w := range b.Wems {
		if i > 0 {
			data = append(data, make([]byte, (16-len(data)%16)%16)...)
		}

		index = binary.LittleEndian.AppendUint32(index, w.ID)
		index = binary.LittleEndian.AppendUint32(index, uint32(len(data)))
		index = binary.LittleEndian.AppendUint32(index, uint32(len(w.Data)))
		data = append(data, w.Data...)
	}

	if index == nil {
		index = []byte{}
	}

	return index, data
}

// RIFFWem returns a minimal RIFF/WAVE blob whose fmt chunk carries the format
// tag at offset 0x14, followed by a data chunk.
func RIFFWem(formatTag, channels uint16, sampleRate uint32, payload []byte) []byte {
	fmtChunk := make([]byte, 0, 16)
	fmtChunk = binary.LittleEndian.AppendUint16(fmtChunk, formatTag)
	fmtChunk = binary.LittleEndian.AppendUint16(fmtChunk, channels)
	fmtChunk = binary.LittleEndian.AppendUint32(fmtChunk, sampleRate)
	fmtChunk = binary.LittleEndian.AppendUint32(fmtChunk, sampleRate*uint32(channels)*2)
	fmtChunk = binary.LittleEndian.AppendUint16(fmtChunk, channels*2)
	fmtChunk = binary.LittleEndian.AppendUint16(fmtChunk, 16)

	body := []byte("WAVE")
	body = append(body, Chunk("fmt ", fmtChunk)...)
	body = append(body, Chunk("data", payload)...)

	if len(payload)%2 == 1 {
		body = append(body, 0)
	}

	return Chunk("RIFF", body)
}

// Language is one entry of a package language table.
type Language struct {
	ID   uint32
	Name string
}

// Entry is one record of a package table.
type Entry struct {
	ID       uint64
	Language uint32
	Data     []byte
}

// Package describes a package archive to build.
type Package struct {
	Languages []Language
	Banks     []Entry
	Sounds    []Entry
	Externals []Entry
	// WithExternals writes the fourth section size and table.
	WithExternals bool
	// Wide writes 0x18 byte records: 64-bit sizes for banks and sounds,
	// 64-bit IDs for externals.
	Wide bool
	// BlockSize scales stored offsets; payloads are aligned to it. Zero
	// stores absolute offsets.
	BlockSize uint32
	Flag      uint32
}

type placed struct {
	entry  Entry
	offset uint32
}

// Bytes serializes the archive.
func (p Package) Bytes() []byte {
	langs := p.languageSection()

	tableSize := func(n int, wide bool) uint32 {
		rec := 0x14
		if wide {
			rec = 0x18
		}

		return uint32(4 + n*rec)
	}

	banksSize := tableSize(len(p.Banks), p.Wide)
	soundsSize := tableSize(len(p.Sounds), p.Wide)
	externalsSize := tableSize(len(p.Externals), p.Wide)

	headerSize := uint32(len(langs)) + banksSize + soundsSize + 0x10
	if p.WithExternals {
		headerSize += externalsSize + 4
	}

	pos := 8 + headerSize
	block := p.BlockSize
	if block == 0 {
		block = 1
	}

	place := func(entries []Entry) []placed {
		out := make([]placed, 0, len(entries))
		for _, e := range entries {
			pos += (block - pos%block) % block
			out = append(out, placed{entry: e, offset: pos})
			pos += uint32(len(e.Data))
		}

		return out
	}

	banks := place(p.Banks)
	sounds := place(p.Sounds)

	var externals []placed
	if p.WithExternals {
		externals = place(p.Externals)
	}

	out := []byte("AKPK")
	out = binary.LittleEndian.AppendUint32(out, headerSize)
	out = binary.LittleEndian.AppendUint32(out, p.Flag)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(langs)))
	out = binary.LittleEndian.AppendUint32(out, banksSize)
	out = binary.LittleEndian.AppendUint32(out, soundsSize)

	if p.WithExternals {
		out = binary.LittleEndian.AppendUint32(out, externalsSize)
	}

	out = append(out, langs...)
	out = p.appendTable(out, banks, p.Wide, false)
	out = p.appendTable(out, sounds, p.Wide, false)

	if p.WithExternals {
		out = p.appendTable(out, externals, p.Wide, true)
	}

	for _, group := range [][]placed{banks, sounds, externals} {
		for _, pl := range group {
			out = append(out, make([]byte, int(pl.offset)-len(out))...)
			out = append(out, pl.entry.Data...)
		}
	}

	return out
}

func (p Package) appendTable(out []byte, entries []placed, wide, externals bool) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(len(entries)))

	for _, pl := range entries {
		e := pl.entry
		offset := pl.offset

		if p.BlockSize != 0 {
			offset /= p.BlockSize
		}

		if wide && externals {
			out = binary.LittleEndian.AppendUint64(out, e.ID)
		} else {
			out = binary.LittleEndian.AppendUint32(out, uint32(e.ID))
		}

		out = binary.LittleEndian.AppendUint32(out, p.BlockSize)

		if wide && !externals {
			out = binary.LittleEndian.AppendUint64(out, uint64(len(e.Data)))
		} else {
			out = binary.LittleEndian.AppendUint32(out, uint32(len(e.Data)))
		}

		out = binary.LittleEndian.AppendUint32(out, offset)
		out = binary.LittleEndian.AppendUint32(out, e.Language)
	}

	return out
}

// languageSection lays out the count, the (offset, id) pairs and the UTF-16
// names. Offsets are relative to the start of the section.
func (p Package) languageSection() []byte {
	head := binary.LittleEndian.AppendUint32(nil, uint32(len(p.Languages)))
	strStart := 4 + 8*len(p.Languages)

	var names []byte

	for _, l := range p.Languages {
		head = binary.LittleEndian.AppendUint32(head, uint32(strStart+len(names)))
		head = binary.LittleEndian.AppendUint32(head, l.ID)

		for _, u := range utf16.Encode([]rune(l.Name)) {
			names = binary.LittleEndian.AppendUint16(names, u)
		}

		names = append(names, 0, 0)
	}

	out := append(head, names...)

	return append(out, make([]byte, (4-len(out)%4)%4)...)
}
