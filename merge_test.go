package wwise

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/cwbudde/wwise/internal/fixture"
)

func mustParse(t *testing.T, b []byte) *Bank {
	t.Helper()

	bnk, err := ParseBank(b)
	if err != nil {
		t.Fatal(err)
	}

	return bnk
}

func TestMergeUnitesAndSortsByID(t *testing.T) {
	srcA := fixture.Bank{
		Version: 0x86,
		ID:      0xAAAA,
		Wems: []fixture.Wem{
			{ID: 30, Data: []byte("thirty")},
			{ID: 10, Data: []byte("ten from a")},
		},
		HierarchyCount: 2,
		HierarchyBody:  []byte{1, 2},
	}
	srcB := fixture.Bank{
		Version: 0x86,
		ID:      0xBBBB,
		Wems: []fixture.Wem{
			{ID: 20, Data: []byte("twenty")},
			{ID: 10, Data: []byte("ten from b")},
		},
		HierarchyCount: 3,
		HierarchyBody:  []byte{3, 4, 5},
	}

	rawA := srcA.Bytes()
	a, b := mustParse(t, rawA), mustParse(t, srcB.Bytes())

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := merged.WemIDs(), []uint32{10, 20, 30}; !slices.Equal(got, want) {
		t.Fatalf("merged ids %v, want %v", got, want)
	}

	ten, err := merged.Wem(10)
	if err != nil || string(ten) != "ten from b" {
		t.Fatalf("id 10 = %q, %v; later operand should win", ten, err)
	}

	idxIDs := make([]uint32, 0)
	for _, e := range merged.Index().Entries() {
		idxIDs = append(idxIDs, e.ID)
	}

	if !slices.Equal(idxIDs, []uint32{10, 20, 30}) {
		t.Fatalf("index ids %v", idxIDs)
	}

	h := merged.Hierarchy()
	if h.Count != 5 || !bytes.Equal(h.Body, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("hierarchy %d %v", h.Count, h.Body)
	}

	if merged.Header().BankID() != 0xAAAA {
		t.Fatalf("header should come from the left bank, id %#x", merged.Header().BankID())
	}

	if !bytes.Equal(a.Bytes(), rawA) {
		t.Fatal("merge modified its left operand")
	}

	if got, want := a.WemIDs(), []uint32{30, 10}; !slices.Equal(got, want) {
		t.Fatalf("left operand order changed to %v", got)
	}

	if merged.Save(t.TempDir()+"/merged.bnk") != nil || a.Header().BankID() != 0xAAAA {
		t.Fatal("saving the merged bank renamed the left operand")
	}
}

func TestMergeResultIsAlignedAndRoundTrips(t *testing.T) {
	a := mustParse(t, fixture.Bank{
		Version:   0x86,
		HeaderPad: 3,
		Wems:      []fixture.Wem{{ID: 5, Data: bytes.Repeat([]byte{5}, 9)}},
	}.Bytes())
	b := mustParse(t, fixture.Bank{
		Version: 0x86,
		Wems: []fixture.Wem{
			{ID: 1, Data: bytes.Repeat([]byte{1}, 3)},
			{ID: 9, Data: bytes.Repeat([]byte{9}, 21)},
		},
	}.Bytes())

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}

	start := 8 + merged.Header().Len() + 8 + merged.Index().Len() + 8
	for _, e := range merged.Index().Entries()[1:] {
		if (start+int(e.Offset))%16 != 0 {
			t.Fatalf("wem %d at %d is not aligned", e.ID, start+int(e.Offset))
		}
	}

	again := mustParse(t, merged.Bytes())
	for _, id := range []uint32{1, 5, 9} {
		got, err := again.Wem(id)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(got, bytes.Repeat([]byte{byte(id)}, len(got))) || len(got) == 0 {
			t.Fatalf("wem %d corrupted: %v", id, got)
		}
	}
}

func TestMergeWithAbsentSide(t *testing.T) {
	empty := mustParse(t, fixture.Bank{Version: 0x86, HierarchyCount: 1}.Bytes())
	full := mustParse(t, fixture.Bank{
		Version: 0x86,
		Wems: []fixture.Wem{
			{ID: 8, Data: []byte("eight")},
			{ID: 4, Data: []byte("four")},
		},
		HierarchyCount: 1,
	}.Bytes())

	for name, pair := range map[string][2]*Bank{
		"absent left":  {empty, full},
		"absent right": {full, empty},
	} {
		t.Run(name, func(t *testing.T) {
			merged, err := Merge(pair[0], pair[1])
			if err != nil {
				t.Fatal(err)
			}

			got := wemMap(t, merged)
			if len(got) != 2 || string(got[8]) != "eight" || string(got[4]) != "four" {
				t.Fatalf("merged content %v", got)
			}

			if merged.Hierarchy().Count != 2 {
				t.Fatalf("hierarchy count %d", merged.Hierarchy().Count)
			}
		})
	}

	if got, want := full.WemIDs(), []uint32{8, 4}; !slices.Equal(got, want) {
		t.Fatalf("source bank changed order to %v", got)
	}
}

func TestMergeBothAbsent(t *testing.T) {
	a := mustParse(t, fixture.Bank{Version: 0x86}.Bytes())
	b := mustParse(t, fixture.Bank{Version: 0x86}.Bytes())

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}

	if merged.Index() != nil || merged.Data() != nil {
		t.Fatal("expected index and data to stay absent")
	}

	if len(merged.Chunks()) != 2 {
		t.Fatalf("expected header and hierarchy only, got %d chunks", len(merged.Chunks()))
	}
}

func TestMergeRequiresBothHierarchies(t *testing.T) {
	with := mustParse(t, fixture.Bank{Version: 0x86}.Bytes())
	without := mustParse(t, fixture.Bank{Version: 0x86, NoHierarchy: true}.Bytes())

	if _, err := Merge(with, without); !errors.Is(err, ErrHierarchyMergeRequiresBothSides) {
		t.Fatalf("expected ErrHierarchyMergeRequiresBothSides, got %v", err)
	}

	if _, err := Merge(without, with); !errors.Is(err, ErrHierarchyMergeRequiresBothSides) {
		t.Fatalf("expected ErrHierarchyMergeRequiresBothSides, got %v", err)
	}
}

func TestMergeRejectsIndexWithoutData(t *testing.T) {
	hirc := fixture.Chunk("HIRC", []byte{1, 0, 0, 0})

	var didx []byte
	for _, v := range []uint32{5, 2, 4} {
		didx = binary.LittleEndian.AppendUint32(didx, v)
	}

	var dataOnly, indexOnly []byte
	dataOnly = append(dataOnly, fixture.Chunk("BKHD", fixture.BankHeader(0x86, 1, 0))...)
	dataOnly = append(dataOnly, fixture.Chunk("DATA", []byte("AAAAAAAA"))...)
	dataOnly = append(dataOnly, hirc...)
	indexOnly = append(indexOnly, fixture.Chunk("BKHD", fixture.BankHeader(0x86, 2, 0))...)
	indexOnly = append(indexOnly, fixture.Chunk("DIDX", didx)...)
	indexOnly = append(indexOnly, hirc...)

	a, b := mustParse(t, dataOnly), mustParse(t, indexOnly)
	full := mustParse(t, fixture.Bank{
		Version:        0x86,
		Wems:           []fixture.Wem{{ID: 1, Data: []byte("one")}},
		HierarchyCount: 1,
	}.Bytes())

	for name, pair := range map[string][2]*Bank{
		"data left index right": {a, b},
		"index left data right": {b, a},
		"data only left":        {a, full},
		"index only right":      {full, b},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Merge(pair[0], pair[1]); !errors.Is(err, ErrMissingIndexForData) {
				t.Fatalf("expected ErrMissingIndexForData, got %v", err)
			}
		})
	}
}
