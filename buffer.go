package rasterbuf

// AbyssPolicy selects what a read sees for pixels outside a buffer's abyss
// rectangle.
type AbyssPolicy int

const (
	AbyssNone AbyssPolicy = iota
	AbyssBlack
	AbyssWhite
	AbyssClamp
	AbyssLoop
)

// DefaultTileSize is used by NewBuffer when the caller does not care about
// tiling geometry.
const DefaultTileSize = 128

// Buffer is a view over a tile storage: an extent, an abyss sub-rectangle,
// a coordinate shift, and an optional soft format override. A buffer owns a
// shared reference to its storage (or to its parent, for sub-buffers) but
// never owns pixel data directly - every pixel access goes through the
// storage's handler chain.
type Buffer struct {
	extent Rect
	abyss  Rect

	shiftX, shiftY int
	softFormat     Format

	storage *Storage
	parent  *Buffer

	path string
}

// NewBuffer allocates a RAM-backed buffer with the given extent and native
// format, using DefaultTileSize tiling.
func NewBuffer(extent Rect, format Format) (*Buffer, error) {
	return NewBufferWithTiling(extent, format, DefaultTileSize, DefaultTileSize, false)
}

// NewBufferWithTiling is NewBuffer with explicit tile geometry and an
// explicit choice of swap-backed vs RAM-backed storage.
func NewBufferWithTiling(extent Rect, format Format, tileW, tileH int, swap bool) (*Buffer, error) {
	storage, err := AcquireStorage(tileW, tileH, format, swap)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		extent:     extent,
		abyss:      extent,
		softFormat: format,
		storage:    storage,
	}, nil
}

// NewBufferForBackend opens a buffer directly over an already-constructed
// backend (e.g. one produced by OpenFileBackend), seeding its extent from
// the backend's own recorded extent.
func NewBufferForBackend(backend Backend) (*Buffer, error) {
	s := buildChain(backend)
	return &Buffer{
		extent:     backend.Extent(),
		abyss:      backend.Extent(),
		softFormat: backend.Format(),
		storage:    s,
	}, nil
}

// NewSubBuffer creates a child view of parent restricted (and possibly
// shifted, via extent's own coordinates) to extent. Shift and abyss compose
// with the parent's per the coordinate math rules.
func NewSubBuffer(parent *Buffer, extent Rect) *Buffer {
	child := &Buffer{
		extent:     extent,
		softFormat: parent.softFormat,
		storage:    parent.storage,
		parent:     parent,
		shiftX:     parent.shiftX,
		shiftY:     parent.shiftY,
	}
	child.abyss = extent.Intersect(Rect{
		X: parent.abyss.X - child.shiftX + parent.shiftX,
		Y: parent.abyss.Y - child.shiftY + parent.shiftY,
		W: parent.abyss.W,
		H: parent.abyss.H,
	})
	return child
}

func (b *Buffer) Extent() Rect { return b.extent }

// SetExtent changes the buffer's visible rectangle. Per the public surface
// contract this only succeeds when nothing downstream depends on the prior
// extent; a plain top-level buffer always satisfies that, so this
// implementation only refuses the call for sub-buffers (which are defined
// by their extent).
func (b *Buffer) SetExtent(r Rect) bool {
	if b.parent != nil {
		return false
	}
	b.extent = r
	b.abyss = r
	return true
}

func (b *Buffer) Abyss() Rect { return b.abyss }

func (b *Buffer) Format() Format { return b.softFormat }

// SetFormat overrides the format pixels are reported/accepted in. The new
// format must have the same bytes-per-pixel as the storage's native
// format.
func (b *Buffer) SetFormat(f Format) error {
	if f.BytesPerPixel() != b.storage.Format().BytesPerPixel() {
		return ErrIncompatibleFormat{Native: b.storage.Format(), Wanted: f}
	}
	b.softFormat = f
	return nil
}

// tileGeometry returns the tile width/height and native format shared by
// every tile in this buffer's storage.
func (b *Buffer) tileGeometry() (tw, th int, native Format) {
	return b.storage.TileWidth(), b.storage.TileHeight(), b.storage.Format()
}

// storageCoord maps a buffer-space point at level z into storage-space
// tile indices plus the in-tile pixel offset, applying this buffer's shift
// and the z-scaling rule from the coordinate math.
func (b *Buffer) storageCoord(x, y, z int) (tx, ty, offX, offY int) {
	tw, th, _ := b.tileGeometry()
	factor := 1 << uint(z)
	sx := floorDiv(x+b.shiftX, factor)
	sy := floorDiv(y+b.shiftY, factor)
	tx = floorDiv(sx, tw)
	ty = floorDiv(sy, th)
	offX = sx - tx*tw
	offY = sy - ty*th
	return
}

// scaledAbyss returns this buffer's abyss rectangle scaled for mipmap level
// z, per the symmetric abyss-scaling rule in the coordinate math.
func (b *Buffer) scaledAbyss(z int) Rect {
	if z == 0 {
		return b.abyss
	}
	factor := 1 << uint(z)
	x0 := floorDiv(b.shiftX+b.abyss.X, factor)
	y0 := floorDiv(b.shiftY+b.abyss.Y, factor)
	x1 := ceilDiv(b.shiftX+b.abyss.X+b.abyss.W, factor)
	y1 := ceilDiv(b.shiftY+b.abyss.Y+b.abyss.H, factor)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

// Set writes one pixel in writeFmt (converted to the storage's native
// format if it differs), bypassing the iterator. Writes outside the abyss
// are silently dropped.
func (b *Buffer) Set(x, y int, writeFmt Format, pixel []byte) {
	if !b.abyss.Contains(x, y) {
		return
	}
	tx, ty, offX, offY := b.storageCoord(x, y, 0)
	tile := b.fetchHotTile(tx, ty)

	native := b.storage.Format()
	bpp := native.BytesPerPixel()

	tile.Lock()
	dst := tile.Data()
	off := (offY*b.storage.TileWidth() + offX) * bpp
	if writeFmt.Equal(native) {
		copy(dst[off:off+bpp], pixel)
	} else {
		Convert(writeFmt, native, pixel, dst[off:off+bpp], 1)
	}
	tile.Unlock()
}

// Get reads one pixel in readFmt (converted from the storage's native
// format if it differs). Pixels outside the abyss are resolved via policy
// without touching storage.
func (b *Buffer) Get(x, y int, readFmt Format, policy AbyssPolicy, out []byte) {
	if !b.abyss.Contains(x, y) {
		b.abyssPixel(x, y, readFmt, policy, out)
		return
	}
	tx, ty, offX, offY := b.storageCoord(x, y, 0)
	tile := b.fetchHotTile(tx, ty)

	native := b.storage.Format()
	bpp := native.BytesPerPixel()
	off := (offY*b.storage.TileWidth() + offX) * bpp
	src := tile.Data()[off : off+bpp]
	if readFmt.Equal(native) {
		copy(out, src)
	} else {
		Convert(native, readFmt, src, out, 1)
	}
}

// fetchHotTile resolves the tile at level-0 indices (tx,ty), consulting and
// refreshing the storage's single-pixel fast-path pointer.
func (b *Buffer) fetchHotTile(tx, ty int) *Tile {
	if t := b.storage.HotTile(tx, ty); t != nil {
		return t
	}
	t := b.storage.GetTile(tx, ty, 0)
	b.storage.SetHotTile(tx, ty, t)
	return t
}

// abyssPixel fills out with the resolved value for a point outside the
// abyss, per the abyss policy table. CLAMP and LOOP recurse back into Get
// at the resolved in-abyss point; NONE/BLACK/WHITE never touch storage.
func (b *Buffer) abyssPixel(x, y int, readFmt Format, policy AbyssPolicy, out []byte) {
	switch policy {
	case AbyssBlack:
		readFmt.fromRGBAFloat(blackRGBA(), out)
	case AbyssWhite:
		readFmt.fromRGBAFloat(whiteRGBA(), out)
	case AbyssClamp:
		cx := clampInt(x, b.abyss.X, b.abyss.Right()-1)
		cy := clampInt(y, b.abyss.Y, b.abyss.Bottom()-1)
		b.Get(cx, cy, readFmt, AbyssNone, out)
	case AbyssLoop:
		lx := b.abyss.X + floorMod(x-b.abyss.X, maxInt(b.abyss.W, 1))
		ly := b.abyss.Y + floorMod(y-b.abyss.Y, maxInt(b.abyss.H, 1))
		b.Get(lx, ly, readFmt, AbyssNone, out)
	default: // AbyssNone
		for i := range out {
			out[i] = 0
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Flush drops the buffer's single-pixel fast-path pointer, refreshes the
// backend's header extent fields (for backends that support a header), and
// forwards the FLUSH command down the chain.
func (b *Buffer) Flush() error {
	b.storage.DropHotTile()
	b.storage.backend.SetExtent(b.extent)
	return b.storage.Flush()
}

// Close releases the buffer's reference to its storage. A sub-buffer holds
// no storage reference of its own, so closing one leaves the storage as it
// is. It does not flush; call Flush first if pending writes must reach the
// backend.
func (b *Buffer) Close() {
	if b.parent != nil {
		return
	}
	b.storage.Release()
}
