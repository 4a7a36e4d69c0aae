package rasterbuf

import "testing"

func TestAcquireStorageKeepsSimultaneousBuffersIndependent(t *testing.T) {
	s1, err := AcquireStorage(40, 40, FormatYU8, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s1.Release()

	// s1 is still referenced, so a second, unrelated acquire of the same
	// geometry and format must not alias it.
	s2, err := AcquireStorage(40, 40, FormatYU8, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Release()

	if s1 == s2 {
		t.Errorf("AcquireStorage must not hand out a storage that is still referenced")
	}

	s3, err := AcquireStorage(41, 40, FormatYU8, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s3.Release()
	if s1 == s3 {
		t.Errorf("different tile geometry should not share a storage")
	}
}

func TestAcquireStorageReusesOnceIdle(t *testing.T) {
	s1, err := AcquireStorage(42, 42, FormatYU8, false)
	if err != nil {
		t.Fatal(err)
	}
	s1.Release()

	s2, err := AcquireStorage(42, 42, FormatYU8, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Release()

	if s1 != s2 {
		t.Errorf("AcquireStorage should reuse a fully released storage of the same geometry")
	}
}

func TestStorageHotTile(t *testing.T) {
	s, err := AcquireStorage(50, 50, FormatYU8, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()

	if s.HotTile(0, 0) != nil {
		t.Fatalf("fresh storage should have no hot tile")
	}

	tile := s.GetTile(0, 0, 0)
	s.SetHotTile(0, 0, tile)
	if s.HotTile(0, 0) != tile {
		t.Errorf("HotTile should return the tile just set")
	}

	s.ClearHotTile(1, 1) // mismatched coords, should be a no-op
	if s.HotTile(0, 0) != tile {
		t.Errorf("ClearHotTile with mismatched coords must not clear the hot tile")
	}

	s.DropHotTile()
	if s.HotTile(0, 0) != nil {
		t.Errorf("DropHotTile should unconditionally clear the hot tile")
	}
}

func TestCacheVoidClearsStorageHotTile(t *testing.T) {
	backend := NewRAMBackend(8, 8, FormatRGBAU8)
	s := buildChain(backend)

	tile := s.GetTile(0, 0, 0)
	s.SetHotTile(0, 0, tile)
	if s.HotTile(0, 0) == nil {
		t.Fatal("expected a hot tile to be set")
	}

	s.Void(0, 0, 0)

	if s.HotTile(0, 0) != nil {
		t.Errorf("Void at (0,0,0) should clear the storage's hot tile")
	}
}

func TestStorageVoidPyramidAbove(t *testing.T) {
	backend := NewRAMBackend(16, 16, FormatRGBAU8)
	s := buildChain(backend)

	// reading a level above 0 over an empty backend is answered by the empty
	// handler's zero fill, so zoom never synthesizes and never raises
	// maxSeenZoom
	tile := s.GetTile(0, 0, 1)
	if tile == nil {
		t.Fatal("expected the empty handler's zero fill at level 1")
	}
	tile.Unref()

	if s.maxSeenZoom != 0 {
		t.Fatalf("maxSeenZoom = %d, want 0: the empty handler answers before zoom synthesizes", s.maxSeenZoom)
	}

	// let the invalidation walk cover level 1, where the zero fill read
	// above is now cached; this should not panic
	s.maxSeenZoom = 1
	s.voidPyramidAbove(0, 0)
}
