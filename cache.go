package rasterbuf

import "sync"

// The tile cache is a single process-wide structure shared by every storage
// in the program, one process-wide map rather than one per storage: a hash
// map keyed by (handler, x, y, z) plus a doubly-linked MRU/LRU queue and a
// running byte counter, all guarded by one mutex. Critical sections only
// ever touch pointers; pixel work always happens outside the lock.
var (
	globalCacheMu    sync.Mutex
	globalCacheMap   = map[cacheKey]*cacheNode{}
	mruHead, mruTail *cacheNode
	totalCacheBytes  int64
)

type cacheKey struct {
	handler *CacheHandler
	x, y, z int
}

type cacheNode struct {
	key        cacheKey
	tile       *Tile
	prev, next *cacheNode
}

// CacheHandler enforces a global byte budget over the tiles it has seen,
// evicting least-recently-used entries as new ones arrive. It is exposed as
// a direct field on Storage (see storage.go) because the hot single-pixel
// and scatter/gather paths need to poke it without going through the full
// command dispatcher.
type CacheHandler struct {
	Handler
	storage *Storage
}

// NewCacheHandler wraps inner with a cache link.
func NewCacheHandler(inner TileSource) *CacheHandler {
	return &CacheHandler{Handler: Handler{Inner: inner}}
}

func (c *CacheHandler) key(x, y, z int) cacheKey {
	return cacheKey{handler: c, x: x, y: y, z: z}
}

func cacheUnlink(n *cacheNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		mruHead = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		mruTail = n.prev
	}
	n.prev, n.next = nil, nil
}

func cachePushFront(n *cacheNode) {
	n.prev = nil
	n.next = mruHead
	if mruHead != nil {
		mruHead.prev = n
	}
	mruHead = n
	if mruTail == nil {
		mruTail = n
	}
}

// GetTile returns a cached tile on hit (promoting it to the MRU end), or
// forwards to the inner source on miss and caches a non-null result before
// returning it.
func (c *CacheHandler) GetTile(x, y, z int) *Tile {
	k := c.key(x, y, z)

	globalCacheMu.Lock()
	if n, ok := globalCacheMap[k]; ok {
		cacheUnlink(n)
		cachePushFront(n)
		t := n.tile.Ref()
		globalCacheMu.Unlock()
		return t
	}
	globalCacheMu.Unlock()

	t := c.Handler.GetTile(x, y, z)
	if t == nil {
		return nil
	}
	c.insert(k, t)
	return t
}

// SetTile installs tile at (x,y,z) in the cache, displacing any existing
// entry at the same key. It does not itself touch the backend - dirty
// tiles are written through on Flush, on eviction, or when their last
// reference drops.
func (c *CacheHandler) SetTile(x, y, z int, tile *Tile) bool {
	c.insert(c.key(x, y, z), tile)
	return true
}

func (c *CacheHandler) insert(k cacheKey, tile *Tile) {
	globalCacheMu.Lock()
	if old, ok := globalCacheMap[k]; ok {
		cacheUnlink(old)
		totalCacheBytes -= int64(len(old.tile.Data()))
		delete(globalCacheMap, k)
		globalCacheMu.Unlock()
		old.tile.Unref()
		globalCacheMu.Lock()
	}

	n := &cacheNode{key: k, tile: tile.Ref()}
	globalCacheMap[k] = n
	cachePushFront(n)
	totalCacheBytes += int64(len(tile.Data()))
	globalCacheMu.Unlock()

	c.evict()
}

// evict drops LRU-tail entries until the global byte counter is back within
// budget. The actual write-back of a dirty evicted tile happens inside its
// Unref, not here, matching the contract that eviction only ever drops the
// cache's own reference.
func (c *CacheHandler) evict() {
	budget := CurrentConfig().CacheBudget
	for {
		globalCacheMu.Lock()
		if totalCacheBytes <= budget || mruTail == nil {
			globalCacheMu.Unlock()
			return
		}
		n := mruTail
		cacheUnlink(n)
		totalCacheBytes -= int64(len(n.tile.Data()))
		delete(globalCacheMap, n.key)
		globalCacheMu.Unlock()

		n.tile.Unref()
	}
}

func (c *CacheHandler) IsCached(x, y, z int) bool {
	globalCacheMu.Lock()
	_, ok := globalCacheMap[c.key(x, y, z)]
	globalCacheMu.Unlock()
	if ok {
		return true
	}
	return c.Handler.IsCached(x, y, z)
}

func (c *CacheHandler) Exist(x, y, z int) bool {
	globalCacheMu.Lock()
	_, ok := globalCacheMap[c.key(x, y, z)]
	globalCacheMu.Unlock()
	if ok {
		return true
	}
	return c.Handler.Exist(x, y, z)
}

func (c *CacheHandler) removeEntry(x, y, z int, markStored bool) {
	k := c.key(x, y, z)
	globalCacheMu.Lock()
	n, ok := globalCacheMap[k]
	if !ok {
		globalCacheMu.Unlock()
		return
	}
	cacheUnlink(n)
	totalCacheBytes -= int64(len(n.tile.Data()))
	delete(globalCacheMap, k)
	globalCacheMu.Unlock()

	if markStored {
		n.tile.Void()
	}
	n.tile.Unref()
}

func (c *CacheHandler) Void(x, y, z int) {
	c.removeEntry(x, y, z, true)
	if z == 0 && c.storage != nil {
		c.storage.ClearHotTile(x, y)
	}
	c.Handler.Void(x, y, z)
}

func (c *CacheHandler) Refetch(x, y, z int) {
	c.removeEntry(x, y, z, false)
	c.Handler.Refetch(x, y, z)
}

// Flush writes every tile currently cached under this handler through to
// the backend, then forwards to the inner source.
func (c *CacheHandler) Flush() error {
	globalCacheMu.Lock()
	var dirty []*Tile
	for k, n := range globalCacheMap {
		if k.handler == c && !n.tile.IsStored() {
			dirty = append(dirty, n.tile.Ref())
		}
	}
	globalCacheMu.Unlock()

	for _, t := range dirty {
		t.store()
		t.Unref()
	}
	return c.Handler.Flush()
}

// Idle performs one unit of opportunistic work: find the dirty entry
// furthest from the MRU end (i.e. nearest the LRU tail) among this
// handler's entries and store it. Returns false if there was no dirty
// candidate.
func (c *CacheHandler) Idle() bool {
	globalCacheMu.Lock()
	var victim *Tile
	for n := mruTail; n != nil; n = n.prev {
		if n.key.handler == c && !n.tile.IsStored() {
			victim = n.tile.Ref()
			break
		}
	}
	globalCacheMu.Unlock()

	if victim == nil {
		return c.Handler.Idle()
	}
	victim.store()
	victim.Unref()
	return true
}

// Reinit drops every entry belonging to this handler before forwarding the
// wipe to the inner source.
func (c *CacheHandler) Reinit() {
	globalCacheMu.Lock()
	var toDrop []*cacheNode
	for k, n := range globalCacheMap {
		if k.handler == c {
			toDrop = append(toDrop, n)
		}
	}
	for _, n := range toDrop {
		cacheUnlink(n)
		totalCacheBytes -= int64(len(n.tile.Data()))
		delete(globalCacheMap, n.key)
	}
	globalCacheMu.Unlock()

	for _, n := range toDrop {
		n.tile.Unref()
	}
	c.Handler.Reinit()
}

// CacheBytesInUse returns the current process-wide cache byte total, for
// tests and diagnostics.
func CacheBytesInUse() int64 {
	globalCacheMu.Lock()
	defer globalCacheMu.Unlock()
	return totalCacheBytes
}
