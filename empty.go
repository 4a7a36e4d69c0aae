package rasterbuf

// EmptyHandler holds one shared zero-filled tile of the chain's geometry
// and hands out copy-on-write duplicates of it whenever the inner source
// has nothing for a GET. This is the last link before the terminal backend
// in a freshly built chain (see storage.go), so every miss that reaches it
// still produces well-formed pixel data instead of a bare null.
type EmptyHandler struct {
	Handler
	zero *Tile
}

// NewEmptyHandler builds an empty handler whose shared zero tile has the
// given byte size, wrapping inner (normally the terminal backend).
func NewEmptyHandler(inner TileSource, tileSize int) *EmptyHandler {
	zero := newBareTile(0, 0, 0, tileSize)
	zero.data = make([]byte, tileSize)
	zero.isZeroTile = true
	return &EmptyHandler{Handler: Handler{Inner: inner}, zero: zero}
}

func (e *EmptyHandler) GetTile(x, y, z int) *Tile {
	if t := e.Handler.GetTile(x, y, z); t != nil {
		return t
	}
	dup := e.zero.Dup()
	dup.x, dup.y, dup.z = x, y, z
	return dup
}
