package wwise

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"testing"

	"github.com/cwbudde/wwise/internal/fixture"
)

func newPackage(t *testing.T, b []byte) *PackageReader {
	t.Helper()

	p, err := NewPackageReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatal(err)
	}

	return p
}

func extractNames(t *testing.T, p *PackageReader) map[string][]byte {
	t.Helper()

	files, err := p.Extract()
	if err != nil {
		t.Fatal(err)
	}

	return files
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func checkNames(t *testing.T, files map[string][]byte, want ...string) {
	t.Helper()

	if got := sortedKeys(files); !slices.Equal(got, want) {
		t.Fatalf("names %v, want %v", got, want)
	}
}

var modernBank = fixture.Bank{Version: 0x86, ID: 7}.Bytes()

func TestPackageHeaderWithoutExternals(t *testing.T) {
	src := fixture.Package{
		Banks:     []fixture.Entry{{ID: 10, Data: modernBank}},
		Sounds:    []fixture.Entry{{ID: 20, Data: []byte("sound")}},
		Externals: []fixture.Entry{{ID: 30, Data: []byte("never written")}},
	}.Bytes()

	p := newPackage(t, src)

	h := p.Header
	if h.LanguagesSize+h.BanksSize+h.SoundsSize+packageFixedSize != h.HeaderSize {
		t.Fatalf("section sizes do not add up to header size %d", h.HeaderSize)
	}

	if h.HasExternals || h.ExternalsSize != 0 {
		t.Fatalf("unexpected externals section of %d bytes", h.ExternalsSize)
	}

	if p.sectionsStart != 24 {
		t.Fatalf("sections start at %d, want 24", p.sectionsStart)
	}

	files := extractNames(t, p)
	checkNames(t, files, "10.bnk", "20.wem")

	if !bytes.Equal(files["10.bnk"], modernBank) || string(files["20.wem"]) != "sound" {
		t.Fatal("payload mismatch")
	}
}

func TestPackageHeaderWithExternals(t *testing.T) {
	src := fixture.Package{
		Banks:         []fixture.Entry{{ID: 10, Data: modernBank}},
		Externals:     []fixture.Entry{{ID: 30, Data: []byte("external")}},
		WithExternals: true,
	}.Bytes()

	p := newPackage(t, src)

	h := p.Header
	if !h.HasExternals {
		t.Fatal("expected an externals section")
	}

	if h.LanguagesSize+h.BanksSize+h.SoundsSize+packageFixedSize >= h.HeaderSize {
		t.Fatal("section sizes should leave room for the externals size")
	}

	if h.ExternalsSize != 4+0x14 {
		t.Fatalf("externals size %d", h.ExternalsSize)
	}

	if p.sectionsStart != 28 {
		t.Fatalf("sections start at %d, want 28", p.sectionsStart)
	}

	files := extractNames(t, p)
	checkNames(t, files, "10.bnk", "30.wem")

	if string(files["30.wem"]) != "external" {
		t.Fatalf("external payload %q", files["30.wem"])
	}
}

func TestPackageHeaderSumExceedsHeaderSize(t *testing.T) {
	var raw []byte
	raw = append(raw, "AKPK"...)

	for _, v := range []uint32{66, 0, 20, 12, 0x18, 0xDEADBEEF} {
		raw = binary.LittleEndian.AppendUint32(raw, v)
	}

	p := newPackage(t, raw)

	if p.Header.HasExternals || p.Header.ExternalsSize != 0 {
		t.Fatal("expected no externals section")
	}

	if p.sectionsStart != 24 {
		t.Fatalf("sections start at %d, want 24", p.sectionsStart)
	}
}

func TestPackageBadTag(t *testing.T) {
	src := fixture.Package{Banks: []fixture.Entry{{ID: 1, Data: modernBank}}}.Bytes()
	copy(src, "PKAK")

	if _, err := NewPackageReader(bytes.NewReader(src), int64(len(src))); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}

	if _, err := NewPackageReader(bytes.NewReader(src[:10]), 10); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader on a short header, got %v", err)
	}
}

func TestPackageLanguageFolders(t *testing.T) {
	src := fixture.Package{
		Languages: []fixture.Language{
			{ID: 0, Name: "SFX"},
			{ID: 1, Name: "English(US)"},
			{ID: 9, Name: "Français"},
		},
		Banks: []fixture.Entry{
			{ID: 1, Language: 0, Data: modernBank},
			{ID: 2, Language: 1, Data: modernBank},
		},
		Sounds: []fixture.Entry{
			{ID: 3, Language: 9, Data: []byte("fr")},
			{ID: 4, Language: 3, Data: []byte("jp")},
			{ID: 5, Language: 42, Data: []byte("unknown")},
		},
	}.Bytes()

	p := newPackage(t, src)
	checkNames(t, extractNames(t, p),
		"1.bnk",
		"42/5.wem",
		"English(US)/2.bnk",
		"Français/3.wem",
		"japanese/4.wem",
	)

	if p.Languages[1] != "English(US)" || p.Languages[4] != "korean" {
		t.Fatalf("languages %v", p.Languages)
	}
}

func TestPackageRejectsEscapingLanguageNames(t *testing.T) {
	for _, name := range []string{"../../escaped", `..\..\escaped`, "..", "/abs", "voice/en"} {
		t.Run(name, func(t *testing.T) {
			src := fixture.Package{
				Languages: []fixture.Language{{ID: 1, Name: name}},
				Sounds: []fixture.Entry{
					{ID: 8, Data: []byte("kept")},
					{ID: 9, Language: 1, Data: []byte("escaped")},
				},
			}.Bytes()

			root := t.TempDir()
			dir := filepath.Join(root, "a", "b")

			p := newPackage(t, src)

			n, err := p.WriteFiles(dir)
			if err != nil {
				t.Fatal(err)
			}

			if n != 1 {
				t.Fatalf("wrote %d files, want 1", n)
			}

			if len(p.Failures) != 1 || !errors.Is(p.Failures[0], ErrUnsafeName) {
				t.Fatalf("failures %v", p.Failures)
			}

			if f := p.Failures[0]; f.Table != TableSounds || f.ID != 9 || f.Index != 1 {
				t.Fatalf("failure %+v", f)
			}

			var stray []string
			err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					stray = append(stray, path)
				}

				return err
			})
			if err != nil {
				t.Fatal(err)
			}

			if want := []string{filepath.Join(dir, "8.wem")}; !slices.Equal(stray, want) {
				t.Fatalf("files on disk %v, want %v", stray, want)
			}
		})
	}
}

func TestWriteFilesRejectsEscapingPrefix(t *testing.T) {
	src := fixture.Package{Sounds: []fixture.Entry{{ID: 1, Data: []byte{1}}}}.Bytes()

	root := t.TempDir()
	dir := filepath.Join(root, "out")

	p := newPackage(t, src)
	p.Prefix = "../up"

	n, err := p.WriteFiles(dir)
	if !errors.Is(err, ErrUnsafeName) || n != 0 {
		t.Fatalf("n=%d err=%v, want ErrUnsafeName", n, err)
	}

	if _, err := os.Stat(filepath.Join(root, "up", "1.wem")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file written outside the output folder: %v", err)
	}
}

func TestPackageEntryNames(t *testing.T) {
	t.Run("narrow id is printed as its little-endian value", func(t *testing.T) {
		src := fixture.Package{
			Sounds: []fixture.Entry{{ID: 0x04030201, Data: []byte{1}}},
		}.Bytes()

		checkNames(t, extractNames(t, newPackage(t, src)), "67305985.wem")
	})

	t.Run("wide external id is printed as hex", func(t *testing.T) {
		src := fixture.Package{
			Banks:         []fixture.Entry{{ID: 1, Data: modernBank}},
			Sounds:        []fixture.Entry{{ID: 2, Data: []byte{2}}},
			Externals:     []fixture.Entry{{ID: 0x0102030405060708, Data: []byte{3}}},
			WithExternals: true,
			Wide:          true,
		}.Bytes()

		files := extractNames(t, newPackage(t, src))
		checkNames(t, files, "0102030405060708.wem", "1.bnk", "2.wem")

		if !bytes.Equal(files["0102030405060708.wem"], []byte{3}) {
			t.Fatalf("external payload %v", files["0102030405060708.wem"])
		}
	})

	t.Run("prefix", func(t *testing.T) {
		src := fixture.Package{
			Languages: []fixture.Language{{ID: 2, Name: "chs"}},
			Sounds:    []fixture.Entry{{ID: 9, Language: 2, Data: []byte{9}}},
		}.Bytes()

		p := newPackage(t, src)
		p.Prefix = "dlc"

		checkNames(t, extractNames(t, p), "dlc/chs/9.wem")
	})
}

func TestPackageBankVersionDetection(t *testing.T) {
	ogg := fixture.RIFFWem(0xFFFF, 2, 44100, []byte("vorbis"))
	pcm := fixture.RIFFWem(0x0001, 1, 22050, []byte("pcm"))
	xma := fixture.RIFFWem(0x0166, 2, 48000, []byte("xma"))

	sounds := []fixture.Entry{
		{ID: 1, Data: ogg},
		{ID: 2, Data: pcm},
		{ID: 3, Data: xma},
	}

	tests := []struct {
		name        string
		bankVersion uint32
		preset      uint32
		noBanks     bool
		wantVersion uint32
		want        []string
	}{
		{
			name:        "legacy bank sniffs codecs",
			bankVersion: 40,
			wantVersion: 40,
			want:        []string{"1.ogg", "100.bnk", "2.wav", "3.xma"},
		},
		{
			name:        "modern bank",
			bankVersion: 62,
			wantVersion: 62,
			want:        []string{"1.wem", "100.bnk", "2.wem", "3.wem"},
		},
		{
			name:        "implausible version falls back to modern",
			bankVersion: 0x2000,
			wantVersion: legacyBankVersion,
			want:        []string{"1.wem", "100.bnk", "2.wem", "3.wem"},
		},
		{
			name:        "preset version wins over the bank",
			bankVersion: 0x86,
			preset:      40,
			wantVersion: 40,
			want:        []string{"1.ogg", "100.bnk", "2.wav", "3.xma"},
		},
		{
			name:        "no banks",
			noBanks:     true,
			wantVersion: legacyBankVersion,
			want:        []string{"1.wem", "2.wem", "3.wem"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := fixture.Package{Sounds: sounds}
			if !tt.noBanks {
				pkg.Banks = []fixture.Entry{{ID: 100, Data: fixture.Bank{Version: tt.bankVersion}.Bytes()}}
			}

			p := newPackage(t, pkg.Bytes())
			p.BankVersion = tt.preset

			checkNames(t, extractNames(t, p), tt.want...)

			if p.BankVersion != tt.wantVersion {
				t.Fatalf("bank version %d, want %d", p.BankVersion, tt.wantVersion)
			}
		})
	}
}

func TestPackageFilters(t *testing.T) {
	src := fixture.Package{
		Banks:  []fixture.Entry{{ID: 1, Data: modernBank}},
		Sounds: []fixture.Entry{{ID: 2, Data: []byte{2}}, {ID: 3, Data: []byte{3}}},
	}.Bytes()

	banks := newPackage(t, src)
	banks.OnlyBanks = true
	checkNames(t, extractNames(t, banks), "1.bnk")

	sounds := newPackage(t, src)
	sounds.OnlySounds = true
	checkNames(t, extractNames(t, sounds), "2.wem", "3.wem")
}

func TestPackageNonIntegralRecordSize(t *testing.T) {
	src := fixture.Package{Banks: []fixture.Entry{{ID: 1, Data: modernBank}}}.Bytes()

	// bank count lives right after the empty language section
	binary.LittleEndian.PutUint32(src[28:], 3)

	if _, err := newPackage(t, src).Entries(); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestPackageReadsRecordsAtDeclaredStride(t *testing.T) {
	const (
		soundsSize = 4 + 2*0x1C
		headerSize = 4 + 4 + soundsSize + packageFixedSize
		dataStart  = 8 + headerSize
	)

	var raw []byte
	raw = append(raw, "AKPK"...)

	for _, v := range []uint32{headerSize, 0, 4, 4, soundsSize, 0, 0, 2} {
		raw = binary.LittleEndian.AppendUint32(raw, v)
	}

	records := []struct{ id, size, offset uint32 }{
		{1, 3, dataStart},
		{2, 4, dataStart + 3},
	}

	for _, r := range records {
		for _, v := range []uint32{r.id, 0, r.size, r.offset, 0} {
			raw = binary.LittleEndian.AppendUint32(raw, v)
		}

		raw = append(raw, bytes.Repeat([]byte{0xEE}, 8)...)
	}

	raw = append(raw, "onetwo!"...)

	p := newPackage(t, raw)
	files := extractNames(t, p)

	checkNames(t, files, "1.wem", "2.wem")

	if string(files["1.wem"]) != "one" || string(files["2.wem"]) != "two!" {
		t.Fatalf("payloads %q", files)
	}

	if len(p.Failures) != 0 {
		t.Fatalf("failures %v", p.Failures)
	}
}

func TestPackageEntryOutOfBounds(t *testing.T) {
	src := fixture.Package{
		Banks:  []fixture.Entry{{ID: 1, Data: modernBank}},
		Sounds: []fixture.Entry{{ID: 2, Data: []byte("lost")}, {ID: 3, Data: []byte("kept")}},
	}.Bytes()

	// offset field of the first sound record
	binary.LittleEndian.PutUint32(src[68:], 0x7FFFFFF0)

	p := newPackage(t, src)
	checkNames(t, extractNames(t, p), "1.bnk", "3.wem")

	if len(p.Failures) != 1 {
		t.Fatalf("failures %v", p.Failures)
	}

	f := p.Failures[0]
	if !errors.Is(f, ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", f)
	}

	if f.Table != TableSounds || f.ID != 2 || f.Index != 0 {
		t.Fatalf("failure %+v", f)
	}
}

func TestPackageBlockSize(t *testing.T) {
	src := fixture.Package{
		Banks:     []fixture.Entry{{ID: 1, Data: modernBank}},
		Sounds:    []fixture.Entry{{ID: 2, Data: []byte("odd")}, {ID: 3, Data: []byte("even!")}},
		BlockSize: 16,
	}.Bytes()

	p := newPackage(t, src)

	entries, err := p.Entries()
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}

	for _, e := range entries {
		if e.BlockSize != 16 || e.Offset%16 != 0 {
			t.Fatalf("entry %d block size %d offset %d", e.ID, e.BlockSize, e.Offset)
		}
	}

	files := extractNames(t, p)
	if string(files["2.wem"]) != "odd" || string(files["3.wem"]) != "even!" {
		t.Fatalf("payloads %q", files)
	}
}

func TestPackageHeaderOnly(t *testing.T) {
	p := newPackage(t, fixture.Package{}.Bytes())

	entries, err := p.Entries()
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 || len(extractNames(t, p)) != 0 {
		t.Fatal("expected no entries")
	}
}

func TestPackageLaterTableWinsOnNameCollision(t *testing.T) {
	src := fixture.Package{
		Sounds:        []fixture.Entry{{ID: 5, Data: []byte("sound")}},
		Externals:     []fixture.Entry{{ID: 5, Data: []byte("external")}},
		WithExternals: true,
	}.Bytes()

	files := extractNames(t, newPackage(t, src))
	if len(files) != 1 || string(files["5.wem"]) != "external" {
		t.Fatalf("files %q", files)
	}
}

func TestPackageEntriesAreCached(t *testing.T) {
	src := fixture.Package{Sounds: []fixture.Entry{{ID: 1, Data: []byte{1}}}}.Bytes()
	p := newPackage(t, src)

	first, err := p.Entries()
	if err != nil {
		t.Fatal(err)
	}

	p.Prefix = "ignored"

	second, err := p.Entries()
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("entries changed: %+v then %+v", first, second)
	}
}

func TestOpenPackageAndWriteFiles(t *testing.T) {
	src := fixture.Package{
		Languages: []fixture.Language{{ID: 1, Name: "english"}},
		Banks:     []fixture.Entry{{ID: 1, Data: modernBank}},
		Sounds:    []fixture.Entry{{ID: 2, Language: 1, Data: []byte("voice")}},
	}.Bytes()

	dir := t.TempDir()
	archive := filepath.Join(dir, "Init.pck")

	if err := os.WriteFile(archive, src, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := OpenPackage(archive)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err := p.Close(); err != nil {
			t.Error(err)
		}
	})

	out := filepath.Join(dir, "out")

	n, err := p.WriteFiles(out)
	if err != nil {
		t.Fatal(err)
	}

	if n != 2 {
		t.Fatalf("wrote %d files, want 2", n)
	}

	voice, err := os.ReadFile(filepath.Join(out, "english", "2.wem"))
	if err != nil || string(voice) != "voice" {
		t.Fatalf("voice = %q, %v", voice, err)
	}

	bank, err := os.ReadFile(filepath.Join(out, "1.bnk"))
	if err != nil || !bytes.Equal(bank, modernBank) {
		t.Fatalf("bank = %v, %v", bank, err)
	}
}

func TestOpenPackageMissingFile(t *testing.T) {
	if _, err := OpenPackage(filepath.Join(t.TempDir(), "missing.pck")); err == nil {
		t.Fatal("expected an error")
	}
}
