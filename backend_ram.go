package rasterbuf

import "sync"

// RAMBackend is the terminal source for storages with swap disabled: tiles
// that reach it are kept in a plain map for the process lifetime (or until
// Void'd) and never touch disk.
type RAMBackend struct {
	backendBase
	mu    sync.Mutex
	tiles map[tileKey]*Tile
}

// NewRAMBackend builds an empty RAM-backed terminal source for the given
// tile geometry and native format.
func NewRAMBackend(tileW, tileH int, format Format) *RAMBackend {
	return &RAMBackend{
		backendBase: backendBase{tileW: tileW, tileH: tileH, format: format, extent: InfiniteRect()},
		tiles:       make(map[tileKey]*Tile),
	}
}

func (b *RAMBackend) GetTile(x, y, z int) *Tile {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tiles[tileKey{x, y, z}]
	if !ok {
		return nil
	}
	return t.Ref()
}

func (b *RAMBackend) SetTile(x, y, z int, tile *Tile) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tiles[tileKey{x, y, z}] = tile.Ref()
	return true
}

func (b *RAMBackend) IsCached(x, y, z int) bool {
	return false
}

func (b *RAMBackend) Exist(x, y, z int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tiles[tileKey{x, y, z}]
	return ok
}

func (b *RAMBackend) Void(x, y, z int) {
	b.mu.Lock()
	t, ok := b.tiles[tileKey{x, y, z}]
	if ok {
		delete(b.tiles, tileKey{x, y, z})
	}
	b.mu.Unlock()
	if ok {
		t.Unref()
	}
}

func (b *RAMBackend) Refetch(x, y, z int) {
	// The RAM backend holds the only copy of a tile's content; there is
	// nothing upstream to re-pull from, so Refetch degrades to Void.
	b.Void(x, y, z)
}

func (b *RAMBackend) Reinit() {
	b.mu.Lock()
	old := b.tiles
	b.tiles = make(map[tileKey]*Tile)
	b.mu.Unlock()
	for _, t := range old {
		t.Unref()
	}
}

func (b *RAMBackend) Flush() error {
	return nil
}

func (b *RAMBackend) Idle() bool {
	return false
}
