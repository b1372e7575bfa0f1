package wwise

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"
)

// PackageMagic is the tag every package archive starts with.
var PackageMagic = [4]byte{'A', 'K', 'P', 'K'}

// packageFixedSize covers the flag and the three mandatory section sizes,
// the part of header_size that is not section content.
const packageFixedSize = 0x10

// PackageHeader is the fixed header of a package archive.
type PackageHeader struct {
	Tag [4]byte
	// HeaderSize counts the bytes after its own field, excluding padding.
	HeaderSize    uint32
	Flag          uint32
	LanguagesSize uint32
	BanksSize     uint32
	SoundsSize    uint32
	// ExternalsSize is only read by packages written after 2012, detected by
	// the three section sizes not filling HeaderSize.
	ExternalsSize uint32
	HasExternals  bool
}

// defaultLanguages maps the language IDs that are fixed across packages.
// The archive's own table overrides them.
func defaultLanguages() map[uint32]string {
	return map[uint32]string{
		0: "sfx",
		1: "english",
		2: "chinese",
		3: "japanese",
		4: "korean",
	}
}

// PackageReader extracts the banks and sounds of one package archive. A
// reader holds the per-archive state discovered while parsing, so it must
// not be reused for a second archive.
type PackageReader struct {
	cur    *Cursor
	closer io.Closer

	Header    PackageHeader
	Languages map[uint32]string

	// BankVersion selects legacy extension sniffing below 62. Zero means it
	// is detected from the first bank entry.
	BankVersion uint32
	// OnlyBanks keeps only .bnk entries.
	OnlyBanks bool
	// OnlySounds keeps only .wem entries.
	OnlySounds bool
	// Prefix is prepended as a leading directory to every output name.
	Prefix string

	// Failures lists entries skipped because their codec could not be
	// sniffed or their payload lies outside the archive.
	Failures []*EntryError

	sectionsStart int64
	entries       []PackageEntry
	parsed        bool
}

// NewPackageReader reads the package header from the first size bytes of r.
func NewPackageReader(r io.ReaderAt, size int64) (*PackageReader, error) {
	p := &PackageReader{
		cur:       NewCursor(r, size),
		Languages: defaultLanguages(),
	}

	if err := p.readHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// OpenPackage maps the archive at path. Close releases the mapping.
func OpenPackage(path string) (*PackageReader, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	p, err := NewPackageReader(ra, int64(ra.Len()))
	if err != nil {
		ra.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	p.closer = ra

	return p, nil
}

// Close releases the underlying file if the reader was created by
// OpenPackage. It has no effect otherwise.
func (p *PackageReader) Close() error {
	var err error
	if p.closer != nil {
		err = p.closer.Close()
		p.closer = nil
	}

	return err
}

func (p *PackageReader) readHeader() error {
	tag, err := p.cur.Bytes(4)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	copy(p.Header.Tag[:], tag)

	if p.Header.Tag != PackageMagic {
		return fmt.Errorf("%w: tag %q, want %q", ErrMalformedHeader, p.Header.Tag, PackageMagic)
	}

	fields := []*uint32{
		&p.Header.HeaderSize,
		&p.Header.Flag,
		&p.Header.LanguagesSize,
		&p.Header.BanksSize,
		&p.Header.SoundsSize,
	}

	for _, f := range fields {
		if *f, err = p.cur.Uint32(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedHeader, err)
		}
	}

	h := &p.Header

	sum := uint64(h.LanguagesSize) + uint64(h.BanksSize) + uint64(h.SoundsSize) + packageFixedSize
	if sum < uint64(h.HeaderSize) {
		h.HasExternals = true

		if h.ExternalsSize, err = p.cur.Uint32(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedHeader, err)
		}
	}

	p.sectionsStart = p.cur.Pos()

	return nil
}

// headerOnly reports an archive that is nothing but its header.
func (p *PackageReader) headerOnly() bool {
	return int64(p.Header.HeaderSize) == p.cur.Size()-8
}

// Entries parses the language table and the bank, sound and external
// tables. The result is computed once per reader.
func (p *PackageReader) Entries() ([]PackageEntry, error) {
	if p.parsed {
		return p.entries, nil
	}

	if p.headerOnly() {
		p.parsed = true
		return nil, nil
	}

	if _, err := p.cur.Seek(p.sectionsStart, io.SeekStart); err != nil {
		return nil, err
	}

	if err := p.readLanguages(); err != nil {
		return nil, err
	}

	if _, err := p.cur.Seek(p.sectionsStart+int64(p.Header.LanguagesSize), io.SeekStart); err != nil {
		return nil, err
	}

	banks, err := p.parseTable(TableBanks, p.Header.BanksSize)
	if err != nil {
		return nil, err
	}

	// the bank table may be empty, leaving nothing to detect from
	if p.BankVersion == 0 {
		p.BankVersion = legacyBankVersion
	}

	sounds, err := p.parseTable(TableSounds, p.Header.SoundsSize)
	if err != nil {
		return nil, err
	}

	externals, err := p.parseTable(TableExternals, p.Header.ExternalsSize)
	if err != nil {
		return nil, err
	}

	p.entries = append(append(banks, sounds...), externals...)
	p.parsed = true

	return p.entries, nil
}

// readLanguages reads the language count and the (offset, id) pairs at the
// cursor. Name offsets are relative to the start of the section.
func (p *PackageReader) readLanguages() error {
	start := p.cur.Pos()

	count, err := p.cur.Uint32()
	if err != nil {
		return fmt.Errorf("failed to read language count: %w", err)
	}

	for i := uint32(0); i < count; i++ {
		rel, err := p.cur.Uint32()
		if err != nil {
			return fmt.Errorf("failed to read language %d: %w", i, err)
		}

		id, err := p.cur.Uint32()
		if err != nil {
			return fmt.Errorf("failed to read language %d: %w", i, err)
		}

		name, err := p.cur.UTF16StringAt(start + int64(rel))
		if err != nil {
			return fmt.Errorf("failed to read language %d name: %w", id, err)
		}

		p.Languages[id] = name
	}

	return nil
}

// Extract reads the payload of every entry, keyed by output name. Names
// shared between tables keep the last table's payload. Entries whose payload
// lies outside the archive are skipped and recorded in Failures.
func (p *PackageReader) Extract() (map[string][]byte, error) {
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(entries))

	for _, e := range entries {
		data, err := p.ReadEntry(e)
		if err != nil {
			p.fail(e.Table, e.Index, e.ID, err)
			continue
		}

		files[e.Name] = data
	}

	return files, nil
}

// ReadEntry returns the payload of e.
func (p *PackageReader) ReadEntry(e PackageEntry) ([]byte, error) {
	if e.Size > uint64(p.cur.Size()) {
		return nil, fmt.Errorf("%w: entry size %d exceeds archive size %d", ErrTruncatedInput, e.Size, p.cur.Size())
	}

	return p.cur.BytesAt(e.Offset, int(e.Size))
}

// WriteFiles extracts the archive below dir, creating language folders. It
// returns the number of files written.
func (p *PackageReader) WriteFiles(dir string) (int, error) {
	files, err := p.Extract()
	if err != nil {
		return 0, err
	}

	var (
		written int
		errs    []error
	)

	for name, data := range files {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnsafeName, name))
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(name))

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			errs = append(errs, err)
			continue
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			errs = append(errs, err)
			continue
		}

		written++
	}

	return written, errors.Join(errs...)
}

func (p *PackageReader) fail(table TableKind, index int, id uint64, err error) {
	p.Failures = append(p.Failures, &EntryError{Table: table, Index: index, ID: id, Err: err})
}
