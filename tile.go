package rasterbuf

import "sync"

// cowMu guards the sibling ring pointers and refcount of every Tile in the
// process: one global mutex serializing copy-on-write
// bookkeeping instead of a per-tile lock.
var cowMu sync.Mutex

// tileDestroyFunc releases a tile's data slab. Set to nil for tiles whose
// data is a plain Go byte slice (left to the garbage collector) and non-nil
// for data handed in from elsewhere (e.g. a caller-owned buffer wrapped by
// SetDataFull).
type tileDestroyFunc func()

// Tile is the atomic unit of storage: a fixed-size byte slab addressed by
// (x, y, z) within one storage, plus the bookkeeping needed to cache, share,
// and write it back. A handler chain exchanges *Tile values by reference;
// the refcount keeps track of how many callers are still holding one.
type Tile struct {
	x, y, z int
	size    int
	data    []byte

	storage *Storage // back-reference, non-owning

	refcount int
	locked   bool

	rev       uint64
	storedRev uint64

	isZeroTile bool

	next, prev *Tile // sibling ring; next == self means unique ownership

	destroyNotify tileDestroyFunc
	unlockNotify  func(t *Tile)
}

// newBareTile allocates a Tile with no data slab, its own one-element
// sibling ring, and a refcount of one.
func newBareTile(x, y, z, size int) *Tile {
	t := &Tile{
		x: x, y: y, z: z,
		size:      size,
		refcount:  1,
		rev:       1,
		storedRev: 1,
	}
	t.next = t
	t.prev = t
	return t
}

// newTile allocates a Tile that owns a freshly zeroed data slab of size
// bytes.
func newTile(x, y, z, size int) *Tile {
	t := newBareTile(x, y, z, size)
	t.data = make([]byte, size)
	return t
}

// newZeroTile builds a tile over the given zero slab, marked as a zero
// tile; it is never written to directly without first being locked, which
// triggers unclone.
func newZeroTile(x, y, z int, zeroData []byte) *Tile {
	t := newBareTile(x, y, z, len(zeroData))
	t.data = zeroData
	t.isZeroTile = true
	return t
}

// Ref increments the tile's reference count and returns the same tile, so
// call sites can write `t = t.Ref()` the way a cache entry hands out a
// shared pointer.
func (t *Tile) Ref() *Tile {
	cowMu.Lock()
	t.refcount++
	cowMu.Unlock()
	return t
}

// Unref drops a reference. When the last reference is dropped the tile is
// first stored (if dirty) and then detached from its sibling ring; if it
// was the ring's last member its data slab is released via destroyNotify.
func (t *Tile) Unref() {
	cowMu.Lock()
	t.refcount--
	last := t.refcount == 0
	cowMu.Unlock()
	if !last {
		return
	}

	t.store()

	cowMu.Lock()
	if t.data != nil {
		if t.next == t {
			cowMu.Unlock()
			if t.destroyNotify != nil {
				t.destroyNotify()
			}
			t.data = nil
			return
		}
		t.prev.next = t.next
		t.next.prev = t.prev
	}
	cowMu.Unlock()
}

// Data returns the tile's pixel bytes. Callers that intend to mutate the
// result must hold the tile locked first - see Lock.
func (t *Tile) Data() []byte {
	return t.data
}

// SetData replaces the tile's data slab outright, used when a backend hands
// back freshly read bytes.
func (t *Tile) SetData(data []byte) {
	t.data = data
	t.size = len(data)
}

// SetDataFull is like SetData but additionally registers a release callback
// for data the tile does not itself own; the callback runs when the last
// tile sharing the data is released.
func (t *Tile) SetDataFull(data []byte, destroyNotify tileDestroyFunc) {
	t.data = data
	t.size = len(data)
	t.destroyNotify = destroyNotify
}

// unclone gives the tile a private copy of its data when it currently
// shares a slab with siblings, detaching it from the ring first. Safe to
// call on an already-unique tile (no-op).
func (t *Tile) unclone() {
	cowMu.Lock()
	if t.next == t {
		cowMu.Unlock()
		return
	}
	t.prev.next = t.next
	t.next.prev = t.prev
	t.prev = t
	t.next = t
	cowMu.Unlock()

	if t.isZeroTile {
		t.data = make([]byte, t.size)
		t.isZeroTile = false
	} else {
		cp := make([]byte, len(t.data))
		copy(cp, t.data)
		t.data = cp
	}
	t.destroyNotify = nil
}

// Dup creates a new tile that shares this tile's data slab, inserting it
// into the sibling ring. The duplicate starts with its own lifecycle
// (refcount 1) but participates in the same copy-on-write group.
func (t *Tile) Dup() *Tile {
	dup := newBareTile(t.x, t.y, t.z, t.size)

	cowMu.Lock()
	dup.storage = t.storage
	dup.data = t.data
	dup.isZeroTile = t.isZeroTile
	dup.destroyNotify = t.destroyNotify

	dup.next = t.next
	t.next = dup
	dup.prev = t
	dup.next.prev = dup
	cowMu.Unlock()

	return dup
}

// Lock marks the tile as held for writing (it neither waits for nor detects
// another writer) and guarantees unique ownership of its data slab afterward (uncloning it first if it was shared). Lock is
// not reentrant; a tile must be Unlock()'d before it is locked again.
func (t *Tile) Lock() {
	t.locked = true
	t.unclone()
}

// Unlock releases write exclusion. If this was the last nested unlock (this
// package never nests locks, so always true) the tile's revision advances
// and, for a level-0 tile, the mipmap pyramid above it is invalidated. Any
// registered unlock notify runs first, before the revision bump and pyramid
// invalidation it typically depends on.
func (t *Tile) Unlock() {
	if t.unlockNotify != nil {
		t.unlockNotify(t)
	}
	t.rev++
	if t.z == 0 && t.storage != nil {
		t.storage.voidPyramidAbove(t.x, t.y)
	}
	t.locked = false
}

// IsStored reports whether the tile's current revision has already been
// written through to the backend.
func (t *Tile) IsStored() bool {
	return t.storedRev == t.rev
}

// MarkStored records that the tile's current revision now matches what the
// backend holds, without performing any I/O itself.
func (t *Tile) MarkStored() {
	t.storedRev = t.rev
}

// store writes the tile through to its owning storage's backend if it is
// dirty, and is idempotent - repeated calls after the first are a no-op
// until the tile is modified again.
func (t *Tile) store() bool {
	if t.IsStored() {
		return true
	}
	if t.storage == nil {
		return false
	}
	ok := t.storage.setTile(t.x, t.y, t.z, t)
	if ok {
		t.MarkStored()
	}
	return ok
}

// Void marks the tile as stored (so a pending write-back never happens) and
// propagates pyramid invalidation the same way Unlock does, used when a
// handler drops cached content out from under a tile without going through
// the normal write path.
func (t *Tile) Void() {
	t.MarkStored()
	if t.z == 0 && t.storage != nil {
		t.storage.voidPyramidAbove(t.x, t.y)
	}
}
