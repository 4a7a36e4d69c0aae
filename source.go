package rasterbuf

// TileSource is the single polymorphic entry point every link in a storage's
// handler chain implements: cache, zoom, empty, and the terminal backends
// all satisfy the same narrow interface, so a chain is just one TileSource
// wrapping another.
//
// Every method corresponds to one command from the protocol a caller drives
// a chain with. A handler that does not care about a given command forwards
// it unchanged to its inner source (see Handler below); a terminal backend
// must answer GetTile, SetTile, Exist and Void at minimum.
type TileSource interface {
	// GetTile returns the tile at (x, y, z) with its refcount bumped, or nil
	// if it is not present and cannot be produced.
	GetTile(x, y, z int) *Tile
	// SetTile persists the given tile at (x, y, z).
	SetTile(x, y, z int, tile *Tile) bool
	// IsCached reports whether a GetTile at (x, y, z) would complete without
	// touching the backend.
	IsCached(x, y, z int) bool
	// Exist reports whether (x, y, z) has ever been materialized.
	Exist(x, y, z int) bool
	// Void drops any materialization of (x, y, z); the next GetTile must
	// re-derive the tile or return zero content.
	Void(x, y, z int)
	// Refetch invalidates cached content but keeps tile identity, so the
	// next read re-pulls from the backend.
	Refetch(x, y, z int)
	// Reinit performs a full wipe of cached state, used when an owning
	// storage's extent changes.
	Reinit()
	// Flush writes all dirty tiles through to the backend.
	Flush() error
	// Idle performs opportunistic background work (cache washing) and
	// reports whether any work was done. Callers drive this explicitly;
	// nothing in this package schedules it on its own.
	Idle() bool
}

// Handler is embedded by every non-terminal link in a chain (cache, zoom,
// empty) so each one only has to override the commands it actually cares
// about; everything else bubbles down to Inner unchanged.
type Handler struct {
	Inner TileSource
}

func (h *Handler) GetTile(x, y, z int) *Tile {
	if h.Inner == nil {
		return nil
	}
	return h.Inner.GetTile(x, y, z)
}

func (h *Handler) SetTile(x, y, z int, tile *Tile) bool {
	if h.Inner == nil {
		return false
	}
	return h.Inner.SetTile(x, y, z, tile)
}

func (h *Handler) IsCached(x, y, z int) bool {
	if h.Inner == nil {
		return false
	}
	return h.Inner.IsCached(x, y, z)
}

func (h *Handler) Exist(x, y, z int) bool {
	if h.Inner == nil {
		return false
	}
	return h.Inner.Exist(x, y, z)
}

func (h *Handler) Void(x, y, z int) {
	if h.Inner != nil {
		h.Inner.Void(x, y, z)
	}
}

func (h *Handler) Refetch(x, y, z int) {
	if h.Inner != nil {
		h.Inner.Refetch(x, y, z)
	}
}

func (h *Handler) Reinit() {
	if h.Inner != nil {
		h.Inner.Reinit()
	}
}

func (h *Handler) Flush() error {
	if h.Inner == nil {
		return nil
	}
	return h.Inner.Flush()
}

func (h *Handler) Idle() bool {
	if h.Inner == nil {
		return false
	}
	return h.Inner.Idle()
}
