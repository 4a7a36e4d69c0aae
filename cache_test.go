package rasterbuf

import "testing"

// fakeSource is a minimal TileSource for exercising CacheHandler in
// isolation, tracking how many times each command actually reached it.
type fakeSource struct {
	Handler
	gets, sets, voids int
	tiles             map[tileKey]*Tile
}

func newFakeSource() *fakeSource {
	return &fakeSource{tiles: map[tileKey]*Tile{}}
}

func (f *fakeSource) GetTile(x, y, z int) *Tile {
	f.gets++
	if t, ok := f.tiles[tileKey{x, y, z}]; ok {
		return t
	}
	return nil
}

func (f *fakeSource) SetTile(x, y, z int, t *Tile) bool {
	f.sets++
	f.tiles[tileKey{x, y, z}] = t
	return true
}

func (f *fakeSource) Void(x, y, z int) {
	f.voids++
	delete(f.tiles, tileKey{x, y, z})
}

func TestCacheHandlerHitAvoidsInnerGet(t *testing.T) {
	withFreshConfig(t, func() {
		inner := newFakeSource()
		c := NewCacheHandler(inner)

		tile := newTile(0, 0, 0, 8)
		c.SetTile(0, 0, 0, tile)

		got := c.GetTile(0, 0, 0)
		if got == nil {
			t.Fatal("expected cache hit")
		}
		got.Unref()
		if inner.gets != 0 {
			t.Errorf("cache hit should never reach the inner source, got %d GetTile calls", inner.gets)
		}
	})
}

func TestCacheHandlerMissForwardsAndCaches(t *testing.T) {
	withFreshConfig(t, func() {
		inner := newFakeSource()
		inner.tiles[tileKey{1, 1, 0}] = newTile(1, 1, 0, 8)
		c := NewCacheHandler(inner)

		got := c.GetTile(1, 1, 0)
		if got == nil {
			t.Fatal("expected a tile to be forwarded from the inner source")
		}
		got.Unref()
		if inner.gets != 1 {
			t.Errorf("expected exactly one inner GetTile on miss, got %d", inner.gets)
		}
		if !c.IsCached(1, 1, 0) {
			t.Errorf("tile should now be cached after the miss path")
		}
	})
}

func TestCacheHandlerVoidRemovesEntry(t *testing.T) {
	withFreshConfig(t, func() {
		inner := newFakeSource()
		c := NewCacheHandler(inner)
		c.SetTile(2, 2, 0, newTile(2, 2, 0, 8))

		c.Void(2, 2, 0)
		if c.IsCached(2, 2, 0) {
			t.Errorf("Void should remove the cache entry")
		}
		if inner.voids != 1 {
			t.Errorf("Void should forward to the inner source, got %d calls", inner.voids)
		}
	})
}

func TestCacheHandlerEvictsOverBudget(t *testing.T) {
	withFreshConfig(t, func() {
		Configure(Config{SwapDir: "RAM", CacheBudget: 10})

		inner := newFakeSource()
		c := NewCacheHandler(inner)

		c.SetTile(0, 0, 0, newTile(0, 0, 0, 8))
		c.SetTile(1, 0, 0, newTile(1, 0, 0, 8))

		if c.IsCached(0, 0, 0) {
			t.Errorf("oldest entry should have been evicted once the budget was exceeded")
		}
		if !c.IsCached(1, 0, 0) {
			t.Errorf("most recently inserted entry should remain cached")
		}
	})
}

// withFreshConfig restores the process-wide config after the callback. It
// does not remove the cache entries the callback inserts; those stay in the
// shared LRU.
func withFreshConfig(t *testing.T, fn func()) {
	t.Helper()
	prev := CurrentConfig()
	defer Configure(prev)
	fn()
}
