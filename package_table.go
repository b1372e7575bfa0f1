package wwise

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// TableKind names the three entry tables of a package archive.
type TableKind int

const (
	TableBanks TableKind = iota
	TableSounds
	TableExternals
)

func (k TableKind) String() string {
	switch k {
	case TableBanks:
		return "banks"
	case TableSounds:
		return "sounds"
	case TableExternals:
		return "externals"
	default:
		return "table(" + strconv.Itoa(int(k)) + ")"
	}
}

const (
	tableEntrySize    = 0x14
	tableEntrySizeAlt = 0x18

	// bankVersionCeiling is the largest plausible bank version; anything
	// above is a newer layout that cannot be introspected.
	bankVersionCeiling = 0x1000
)

// PackageEntry is one parsed record of a package table.
type PackageEntry struct {
	Table TableKind
	// Index is the record's position within its table.
	Index     int
	ID        uint64
	BlockSize uint32
	// Offset is the absolute byte offset of the payload.
	Offset   int64
	Size     uint64
	Language uint32
	// Name is the slash-separated output name, language folder included.
	Name string
}

// parseTable reads the table at the cursor, which must be size bytes long,
// and leaves the cursor at its end.
func (p *PackageReader) parseTable(kind TableKind, size uint32) ([]PackageEntry, error) {
	if size == 0 {
		return nil, nil
	}

	start := p.cur.Pos()
	defer p.cur.Seek(start+int64(size), io.SeekStart)

	count, err := p.cur.Uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s count: %w", kind, err)
	}

	if count == 0 {
		return nil, nil
	}

	if size < 4 || (size-4)%count != 0 {
		return nil, fmt.Errorf("%w: %s table of %d bytes cannot hold %d records", ErrMalformedHeader, kind, size, count)
	}

	entrySize := (size - 4) / count
	if entrySize < tableEntrySize {
		return nil, fmt.Errorf("%w: %s record size %#x", ErrMalformedHeader, kind, entrySize)
	}

	alt := entrySize == tableEntrySizeAlt
	wideID := alt && kind == TableExternals

	entries := make([]PackageEntry, 0, count)

	for i := 0; i < int(count); i++ {
		if _, err := p.cur.Seek(start+4+int64(i)*int64(entrySize), io.SeekStart); err != nil {
			return nil, err
		}

		e, err := p.readRecord(kind, alt, wideID)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s record %d: %w", kind, i, err)
		}

		e.Index = i

		if kind == TableBanks && p.BankVersion == 0 {
			p.detectBankVersion(e.Offset)
		}

		ext := BankExt
		if kind != TableBanks {
			ext, err = SoundExt(p.cur, e.Offset, p.BankVersion)
			if err != nil {
				p.fail(kind, i, e.ID, err)
				continue
			}
		}

		if p.OnlyBanks && ext != BankExt {
			continue
		}

		if p.OnlySounds && ext != WemExt {
			continue
		}

		e.Name, err = p.entryName(e, wideID, ext)
		if err != nil {
			p.fail(kind, i, e.ID, err)
			continue
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func (p *PackageReader) readRecord(kind TableKind, alt, wideID bool) (PackageEntry, error) {
	e := PackageEntry{Table: kind}

	var err error

	if wideID {
		e.ID, err = p.cur.Uint64()
	} else {
		var id uint32
		id, err = p.cur.Uint32()
		e.ID = uint64(id)
	}

	if err != nil {
		return e, err
	}

	if e.BlockSize, err = p.cur.Uint32(); err != nil {
		return e, err
	}

	if alt && !wideID {
		e.Size, err = p.cur.Uint64()
	} else {
		var size uint32
		size, err = p.cur.Uint32()
		e.Size = uint64(size)
	}

	if err != nil {
		return e, err
	}

	rawOffset, err := p.cur.Uint32()
	if err != nil {
		return e, err
	}

	e.Offset = int64(rawOffset)
	if e.BlockSize != 0 {
		e.Offset *= int64(e.BlockSize)
	}

	if e.Language, err = p.cur.Uint32(); err != nil {
		return e, err
	}

	return e, nil
}

// detectBankVersion peeks the version out of the BKHD chunk of the bank
// stored at offset. An unreadable bank leaves the version undetected.
func (p *PackageReader) detectBankVersion(offset int64) {
	v, err := p.cur.Uint32At(offset + chunkHeaderSize)
	if err != nil {
		return
	}

	if v > bankVersionCeiling {
		v = legacyBankVersion
	}

	p.BankVersion = v
}

// entryName builds the output name of e. Language 0 is the root; other
// languages get a folder. Wide IDs are printed as 16 hex digits, narrow
// ones in decimal. A language name that is not a single path element is
// rejected.
func (p *PackageReader) entryName(e PackageEntry, wideID bool, ext string) (string, error) {
	var stem string
	if wideID {
		stem = fmt.Sprintf("%016x", e.ID)
	} else {
		stem = strconv.FormatUint(e.ID, 10)
	}

	name := stem + "." + ext

	if e.Language != 0 {
		lang := p.languageName(e.Language)
		if !validFolderName(lang) {
			return "", fmt.Errorf("%w: language %d is named %q", ErrUnsafeName, e.Language, lang)
		}

		name = path.Join(lang, name)
	}

	if p.Prefix != "" {
		name = path.Join(p.Prefix, name)
	}

	return name, nil
}

func validFolderName(name string) bool {
	return name != "." && !strings.ContainsAny(name, `/\:`) && filepath.IsLocal(name)
}

func (p *PackageReader) languageName(id uint32) string {
	if name, ok := p.Languages[id]; ok && name != "" {
		return name
	}

	return strconv.FormatUint(uint64(id), 10)
}
