package rasterbuf

import (
	"os"
	"sync"
)

// storageKey is the deterministic identity a tile storage is pooled under:
// a request for a (tile_w, tile_h, F0, ram-or-swap) key gets back an idle
// Storage of that key, if one is parked, instead of a fresh chain.
type storageKey struct {
	tileW, tileH int
	formatName   string
	swap         bool
}

var (
	storageCacheMu sync.Mutex
	// idleStorages holds, per key, the storages of that geometry/format/swap
	// combination that are not currently held by any buffer - the only ones
	// eligible to be handed back out by AcquireStorage. A storage with an
	// outstanding reference is never aliased to an unrelated caller.
	idleStorages = map[storageKey][]*Storage{}
	// allStorages lists every storage ever built, in creation order, so
	// ShutdownStorages can flush all of them (idle or not).
	allStorages []*Storage
)

// Storage owns one handler chain (head -> cache -> zoom -> empty ->
// backend) and the terminal backend at its root. It is the thing a Buffer
// holds a shared reference to; storages are reference-counted and returned
// to the process-wide identity cache on last release rather than destroyed
// outright.
type Storage struct {
	tileW, tileH int
	format       Format
	tileSize     int

	head    TileSource
	cache   *CacheHandler
	backend Backend

	mu          sync.Mutex
	hotTile     *Tile
	hotX, hotY  int
	maxSeenZoom int

	refcount int
	key      storageKey
}

// AcquireStorage returns a storage for the given geometry, reusing an idle
// (fully released) one of the same (tileW, tileH, format, swap) key if one
// is parked waiting for reuse, and building a fresh handler chain otherwise.
// Two independent, simultaneously-live buffers of the same geometry and
// format never alias the same storage - only a storage with no outstanding
// references is eligible to be handed back out. swap selects between a
// file-backed backend (using the configured swap directory) and a RAM
// backend.
func AcquireStorage(tileW, tileH int, format Format, swap bool) (*Storage, error) {
	key := storageKey{tileW: tileW, tileH: tileH, formatName: format.Name, swap: swap}

	storageCacheMu.Lock()
	if pool := idleStorages[key]; len(pool) > 0 {
		s := pool[len(pool)-1]
		idleStorages[key] = pool[:len(pool)-1]
		storageCacheMu.Unlock()

		s.mu.Lock()
		s.refcount = 1
		s.mu.Unlock()
		return s, nil
	}
	storageCacheMu.Unlock()

	s, err := newStorage(tileW, tileH, format, swap)
	if err != nil {
		return nil, err
	}
	s.key = key
	s.refcount = 1

	storageCacheMu.Lock()
	allStorages = append(allStorages, s)
	storageCacheMu.Unlock()

	return s, nil
}

func newStorage(tileW, tileH int, format Format, swap bool) (*Storage, error) {
	var backend Backend
	if swap && swapEnabled() {
		f, err := os.Create(nextSwapPath())
		if err != nil {
			return nil, err
		}
		fb, err := NewFileBackend(f, tileW, tileH, format)
		if err != nil {
			return nil, err
		}
		backend = fb
	} else {
		backend = NewRAMBackend(tileW, tileH, format)
	}
	return buildChain(backend), nil
}

// buildChain assembles the standard head -> cache -> zoom -> empty ->
// backend chain over an already-constructed backend.
func buildChain(backend Backend) *Storage {
	tileSize := backend.TileSize()
	s := &Storage{
		tileW: backend.TileWidth(), tileH: backend.TileHeight(),
		format: backend.Format(), tileSize: tileSize,
		backend: backend,
	}

	empty := NewEmptyHandler(backend, tileSize)
	zoom := NewZoomHandler(empty, nil, s)
	cache := NewCacheHandler(zoom)
	zoom.cache = cache
	cache.storage = s

	s.head = cache
	s.cache = cache

	if CurrentConfig().DebugTileOps {
		s.head = NewLogHandler(cache, backend.Format().Name)
	}
	s.refcount = 1
	return s
}

// Release drops one reference; when the last reference goes, the storage is
// parked in the idle pool for its key rather than torn down, so a later
// request for the same geometry can reuse it once it is genuinely free.
func (s *Storage) Release() {
	s.mu.Lock()
	s.refcount--
	idle := s.refcount == 0
	s.mu.Unlock()

	if idle {
		storageCacheMu.Lock()
		idleStorages[s.key] = append(idleStorages[s.key], s)
		storageCacheMu.Unlock()
	}
}

// ShutdownStorages flushes and removes every storage ever built (idle or
// still referenced), in the order they were first created. Intended for
// orderly process shutdown or test cleanup, never called automatically.
func ShutdownStorages() {
	storageCacheMu.Lock()
	storages := allStorages
	allStorages = nil
	idleStorages = map[storageKey][]*Storage{}
	storageCacheMu.Unlock()

	for _, s := range storages {
		if err := s.Flush(); err != nil {
			logf("rasterbuf: shutdown flush failed: %v", err)
		}
	}
}

func (s *Storage) TileWidth() int  { return s.tileW }
func (s *Storage) TileHeight() int { return s.tileH }
func (s *Storage) Format() Format  { return s.format }
func (s *Storage) TileSize() int   { return s.tileSize }

func (s *Storage) GetTile(x, y, z int) *Tile         { return s.head.GetTile(x, y, z) }
func (s *Storage) SetTile(x, y, z int, t *Tile) bool { return s.head.SetTile(x, y, z, t) }
func (s *Storage) IsCached(x, y, z int) bool         { return s.head.IsCached(x, y, z) }
func (s *Storage) Exist(x, y, z int) bool            { return s.head.Exist(x, y, z) }
func (s *Storage) Void(x, y, z int)                  { s.head.Void(x, y, z) }
func (s *Storage) Refetch(x, y, z int)               { s.head.Refetch(x, y, z) }
func (s *Storage) Reinit()                           { s.head.Reinit() }
func (s *Storage) Flush() error                      { return s.head.Flush() }
func (s *Storage) Idle() bool                        { return s.head.Idle() }

// setTile is the write-through path used by Tile.store(): it writes
// directly to the terminal backend, bypassing cache/zoom/empty, since by
// the time a tile is being stored the cache already holds the entry that
// triggered the write and re-entering the chain would just reinsert it.
func (s *Storage) setTile(x, y, z int, t *Tile) bool {
	return s.backend.SetTile(x, y, z, t)
}

// voidPyramidAbove invalidates every synthesized mipmap level from 1 up to
// maxSeenZoom along the path above a level-0 tile at (x, y), following a
// write that changed its revision.
func (s *Storage) voidPyramidAbove(x, y int) {
	s.mu.Lock()
	top := s.maxSeenZoom
	s.mu.Unlock()

	px, py := x, y
	for z := 1; z <= top; z++ {
		px, py = px>>1, py>>1
		s.head.Void(px, py, z)
	}
}

// HotTile returns the storage's single-pixel fast-path cache, used by
// Buffer's set/get to avoid a full GetTile round trip on repeated access to
// the same tile. tx, ty are tile indices at level 0.
func (s *Storage) HotTile(tx, ty int) *Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hotTile != nil && s.hotX == tx && s.hotY == ty {
		return s.hotTile
	}
	return nil
}

func (s *Storage) SetHotTile(tx, ty int, t *Tile) {
	s.mu.Lock()
	s.hotTile = t
	s.hotX, s.hotY = tx, ty
	s.mu.Unlock()
}

// ClearHotTile drops the cached single-pixel-path pointer if it currently
// refers to (tx, ty), used by CacheHandler.Void so a stale pointer is
// never handed back to a caller.
func (s *Storage) ClearHotTile(tx, ty int) {
	s.mu.Lock()
	if s.hotTile != nil && s.hotX == tx && s.hotY == ty {
		s.hotTile = nil
	}
	s.mu.Unlock()
}

// DropHotTile unconditionally clears the single-pixel-path pointer, used
// by Buffer.Flush.
func (s *Storage) DropHotTile() {
	s.mu.Lock()
	s.hotTile = nil
	s.mu.Unlock()
}
