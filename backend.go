package rasterbuf

// Backend is a terminal TileSource: the bottom of every handler chain. It
// additionally exposes the geometry the rest of the chain needs to convert
// between buffer space and tile indices, and the extent a freshly opened
// file-backed buffer should report.
type Backend interface {
	TileSource
	TileWidth() int
	TileHeight() int
	Format() Format
	TileSize() int
	// Extent returns the backend's notion of its own rectangle, used to
	// seed a buffer's extent when opening an existing file-backed backend.
	// A new backend reports the infinite plane and a reopened file backend
	// the extent in its header, until SetExtent stores another.
	Extent() Rect
	// SetExtent updates the stored extent metadata; every backend keeps it,
	// and Buffer.Flush calls it. File-backed backends write it to the header
	// on their own Flush.
	SetExtent(r Rect)
}

// backendBase holds the geometry common to every backend variant.
type backendBase struct {
	tileW, tileH int
	format       Format
	extent       Rect
}

func (b *backendBase) TileWidth() int    { return b.tileW }
func (b *backendBase) TileHeight() int   { return b.tileH }
func (b *backendBase) Format() Format    { return b.format }
func (b *backendBase) TileSize() int     { return b.tileW * b.tileH * b.format.BytesPerPixel() }
func (b *backendBase) Extent() Rect      { return b.extent }
func (b *backendBase) SetExtent(r Rect)  { b.extent = r }

type tileKey struct{ x, y, z int }
