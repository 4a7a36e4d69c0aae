package rasterbuf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DirBackend is a terminal source that keeps one file per tile inside a
// directory, rather than packing every tile into a single stream the way
// FileBackend does. It trades the compact single-file layout for simpler
// crash recovery (a torn write only affects the one tile file it touched)
// and is useful for swap directories shared across many independently
// growing storages.
type DirBackend struct {
	backendBase
	mu  sync.Mutex
	dir string
	// exists caches which (x,y,z) have a file on disk so Exist/IsCached
	// don't stat the filesystem on every call.
	exists map[tileKey]bool
}

// NewDirBackend opens (creating if necessary) dir as a per-tile swap
// directory for the given geometry.
func NewDirBackend(dir string, tileW, tileH int, format Format) (*DirBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	b := &DirBackend{
		backendBase: backendBase{tileW: tileW, tileH: tileH, format: format, extent: InfiniteRect()},
		dir:         dir,
		exists:      make(map[tileKey]bool),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		var x, y, z int
		if _, err := fmt.Sscanf(e.Name(), "%d_%d_%d.tile", &x, &y, &z); err == nil {
			b.exists[tileKey{x, y, z}] = true
		}
	}
	return b, nil
}

func (b *DirBackend) tilePath(x, y, z int) string {
	return filepath.Join(b.dir, fmt.Sprintf("%d_%d_%d.tile", x, y, z))
}

func (b *DirBackend) GetTile(x, y, z int) *Tile {
	b.mu.Lock()
	present := b.exists[tileKey{x, y, z}]
	b.mu.Unlock()
	if !present {
		return nil
	}
	data, err := os.ReadFile(b.tilePath(x, y, z))
	if err != nil {
		logf("rasterbuf: dir backend read tile (%d,%d,%d) failed: %v", x, y, z, err)
		return nil
	}
	t := newBareTile(x, y, z, len(data))
	t.SetData(data)
	return t
}

func (b *DirBackend) SetTile(x, y, z int, tile *Tile) bool {
	staging := newMemStream(len(tile.Data()))
	if _, err := staging.Write(tile.Data()); err != nil {
		return false
	}
	if err := os.WriteFile(b.tilePath(x, y, z), staging.Bytes(), 0o644); err != nil {
		logf("rasterbuf: dir backend write tile (%d,%d,%d) failed: %v", x, y, z, err)
		noteDirtyWriteFailure()
		return false
	}
	b.mu.Lock()
	b.exists[tileKey{x, y, z}] = true
	b.mu.Unlock()
	return true
}

func (b *DirBackend) IsCached(x, y, z int) bool {
	return false
}

func (b *DirBackend) Exist(x, y, z int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exists[tileKey{x, y, z}]
}

func (b *DirBackend) Void(x, y, z int) {
	b.mu.Lock()
	delete(b.exists, tileKey{x, y, z})
	b.mu.Unlock()
	_ = os.Remove(b.tilePath(x, y, z))
}

func (b *DirBackend) Refetch(x, y, z int) {}

func (b *DirBackend) Reinit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.exists {
		_ = os.Remove(b.tilePath(key.x, key.y, key.z))
	}
	b.exists = make(map[tileKey]bool)
}

func (b *DirBackend) Flush() error {
	return nil
}

func (b *DirBackend) Idle() bool {
	return false
}
