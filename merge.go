package wwise

import "fmt"

// Merge combines two banks into a new one; neither input is modified.
//
// The header comes from a. DIDX and DATA are taken from whichever side has
// them, and each side must carry both or neither; when both sides do, the entries are united with b winning on ID collision
// and re-sorted by ascending ID. Both sides must carry a HIRC chunk, whose
// counts are summed and bodies concatenated a then b. The result has its
// offsets corrected.
func Merge(a, b *Bank) (*Bank, error) {
	hdr := a.Header()
	if hdr == nil {
		return nil, fmt.Errorf("%w: left bank has no header", ErrMalformedHeader)
	}

	ha, hb := a.Hierarchy(), b.Hierarchy()
	if ha == nil || hb == nil {
		return nil, ErrHierarchyMergeRequiresBothSides
	}

	for _, side := range []struct {
		name string
		bnk  *Bank
	}{{"left", a}, {"right", b}} {
		if (side.bnk.Index() == nil) != (side.bnk.Data() == nil) {
			return nil, fmt.Errorf("%w: %s bank", ErrMissingIndexForData, side.name)
		}
	}

	idx, err := mergeIndex(a.Index(), b.Index())
	if err != nil {
		return nil, err
	}

	data, err := mergeData(a, b)
	if err != nil {
		return nil, err
	}

	hirc := &Hierarchy{
		Count: ha.Count + hb.Count,
		Body:  append(append(make([]byte, 0, len(ha.Body)+len(hb.Body)), ha.Body...), hb.Body...),
	}

	out := NewBank(hdr.Clone(), idx, data, hirc)
	if err := out.CorrectOffsets(); err != nil {
		return nil, fmt.Errorf("failed to lay out merged bank: %w", err)
	}

	return out, nil
}

func mergeIndex(a, b *Index) (*Index, error) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil:
		return b.Clone(), nil
	case b == nil:
		return a.Clone(), nil
	}

	out := a.Clone()
	out.entries.Update(b.entries)
	out.entries.SortKeys()

	return out, nil
}

func mergeData(a, b *Bank) (*Data, error) {
	da, db := a.Data(), b.Data()

	switch {
	case da == nil && db == nil:
		return nil, nil
	case da == nil:
		return db.Clone(), nil
	case db == nil:
		return da.Clone(), nil
	}

	if _, err := a.splitData(); err != nil {
		return nil, err
	}

	if _, err := b.splitData(); err != nil {
		return nil, err
	}

	wems := da.wems.Clone()
	wems.Update(db.wems)
	wems.SortKeys()

	return &Data{wems: wems}, nil
}
