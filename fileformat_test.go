package rasterbuf

import "testing"

func TestFileHeaderRoundTrip(t *testing.T) {
	stream := newMemStream(fileHeaderSize)
	h := fileHeader{
		Width: 100, Height: 200,
		X: -5, Y: 10,
		FormatName:    "RGBA u8",
		TileWidth:     64,
		TileHeight:    64,
		BytesPerPixel: 4,
		TileCount:     3,
	}
	if err := writeFileHeader(stream, h); err != nil {
		t.Fatalf("writeFileHeader: %v", err)
	}

	got, err := readFileHeader(stream)
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if got != h {
		t.Fatalf("header round-trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestFileHeaderRejectsBadMagic(t *testing.T) {
	stream := newMemStream(fileHeaderSize)
	if _, err := readFileHeader(stream); err == nil {
		t.Fatalf("expected an error reading a header-shaped but unwritten stream")
	}
}

func TestFileIndexRoundTrip(t *testing.T) {
	stream := newMemStream(fileHeaderSize + 3*fileIndexSize)
	entries := []fileIndexEntry{
		{X: 0, Y: 0, Z: 0, Offset: 256},
		{X: 1, Y: 0, Z: 0, Offset: 512},
		{X: 0, Y: 1, Z: 1, Offset: 768},
	}
	if err := writeFileIndex(stream, entries); err != nil {
		t.Fatalf("writeFileIndex: %v", err)
	}

	got, err := readFileIndex(stream, len(entries))
	if err != nil {
		t.Fatalf("readFileIndex: %v", err)
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestMortonKeyGroupsNearbyTilesCloser(t *testing.T) {
	// (0,0,0) and (1,0,0) are adjacent; (31,31,0) is far away in x and y.
	near := mortonKey(1, 0, 0)
	origin := mortonKey(0, 0, 0)
	far := mortonKey(31, 31, 0)

	if near-origin >= far-origin {
		t.Errorf("expected the adjacent tile's morton key to be closer to the origin's than the far tile's")
	}
}

func TestSortIndexByMortonIsStableOrdering(t *testing.T) {
	entries := []fileIndexEntry{
		{X: 5, Y: 5, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}
	sortIndexByMorton(entries)

	for i := 1; i < len(entries); i++ {
		prev := mortonKey(entries[i-1].X, entries[i-1].Y, entries[i-1].Z)
		cur := mortonKey(entries[i].X, entries[i].Y, entries[i].Z)
		if prev > cur {
			t.Errorf("entries not sorted by morton key at index %d", i)
		}
	}
}
