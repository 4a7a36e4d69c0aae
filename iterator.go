package rasterbuf

// IterMode selects whether an iterator slot is read, written, or both.
type IterMode int

const (
	IterRead IterMode = iota
	IterWrite
	IterReadWrite
)

// IterSlot describes one buffer participating in a multi-buffer walk.
type IterSlot struct {
	Buf    *Buffer
	Rect   Rect
	Format Format
	Mode   IterMode
	Abyss  AbyssPolicy
}

// slotRun holds the per-slot state of the run currently exposed to the
// caller: either a zero-copy pointer straight into a tile (locked for
// write slots), or an aux-format staging buffer that gets scattered back on
// the next Next() call (or on Close).
type slotRun struct {
	data     []byte
	roi      Rect
	zeroCopy bool
	tile     *Tile // non-nil while a zero-copy run holds the tile
	dirty    bool  // true once a WRITE/READWRITE slot's data may have changed
}

// Iterator walks up to K buffers together in tile-major order: increasing
// tile row, then tile column within the row, then top-to-bottom scanlines
// within each tile. Slot 0's buffer and rectangle define the walk; every
// other slot's current rectangle is the same offset applied to its own
// Rect. Dropping an iterator without calling Close leaves pending writes
// unflushed - callers must call Close (or Next until it returns false,
// which calls it for them).
type Iterator struct {
	slots []IterSlot

	tw, th int // slot 0's tile geometry, drives the walk

	txStart, txEnd int
	tyStart, tyEnd int
	curTX, curTY   int
	curRow         int
	rowsThisTile   int
	started        bool
	finished       bool

	current []slotRun
	length  int
}

// NewIterator builds a walk over slots. slots[0] must be non-empty
// (Rect.W > 0 && Rect.H > 0); every other slot's Rect must have the same
// width and height.
func NewIterator(slots []IterSlot) *Iterator {
	it := &Iterator{slots: slots}
	tw, th, _ := slots[0].Buf.tileGeometry()
	it.tw, it.th = tw, th

	r := slots[0].Rect
	shiftX, shiftY := slots[0].Buf.shiftX, slots[0].Buf.shiftY
	sx0, sy0 := r.X+shiftX, r.Y+shiftY
	sx1, sy1 := r.Right()+shiftX-1, r.Bottom()+shiftY-1

	it.txStart, it.txEnd = floorDiv(sx0, tw), floorDiv(sx1, tw)
	it.tyStart, it.tyEnd = floorDiv(sy0, th), floorDiv(sy1, th)
	it.curTX, it.curTY = it.txStart, it.tyStart
	it.curRow = 0

	it.current = make([]slotRun, len(slots))
	return it
}

// Data returns the pixel bytes of slot i's current run, valid until the
// next call to Next or Close.
func (it *Iterator) Data(i int) []byte { return it.current[i].data }

// Roi returns slot i's rectangle for the current run, in that slot's own
// buffer coordinates.
func (it *Iterator) Roi(i int) Rect { return it.current[i].roi }

// Length returns the pixel count of the current run (equal across every
// slot).
func (it *Iterator) Length() int { return it.length }

// Next advances to the next run, finalizing the previous one first. It
// returns false once the walk is exhausted, having already finalized and
// released everything.
func (it *Iterator) Next() bool {
	it.finalizeCurrent()
	if it.finished {
		return false
	}

	for {
		if it.curTY > it.tyEnd {
			it.finished = true
			return false
		}

		tileRowY0 := it.curTY * it.th
		shiftY0 := it.slots[0].Buf.shiftY
		bufRow := tileRowY0 + it.curRow - shiftY0
		r0 := it.slots[0].Rect

		if it.curRow >= it.th || bufRow >= r0.Bottom() {
			it.curRow = 0
			it.curTX++
			if it.curTX > it.txEnd {
				it.curTX = it.txStart
				it.curTY++
				continue
			}
			continue
		}
		if bufRow < r0.Y {
			it.curRow++
			continue
		}

		shiftX0 := it.slots[0].Buf.shiftX
		tileX0 := it.curTX * it.tw
		runX0 := maxInt(tileX0, r0.X+shiftX0)
		runX1 := minInt(tileX0+it.tw, r0.Right()+shiftX0)
		if runX1 <= runX0 {
			it.curRow++
			continue
		}

		bufX0 := runX0 - shiftX0
		width := runX1 - runX0
		it.buildRun(bufX0, bufRow, width)
		it.curRow++
		it.length = width
		return true
	}
}

// buildRun populates it.current for a run whose slot-0 rectangle is
// (x0, y0, width, 1), translating that same offset into every other
// slot's coordinates.
func (it *Iterator) buildRun(x0, y0, width int) {
	r0 := it.slots[0].Rect
	dx, dy := x0-r0.X, y0-r0.Y

	for i := range it.slots {
		s := it.slots[i]
		roi := Rect{X: s.Rect.X + dx, Y: s.Rect.Y + dy, W: width, H: 1}
		it.current[i] = it.openRun(s, roi)
	}
}

// openRun resolves one slot's run, taking the zero-copy path (a pointer
// straight into the tile, which is locked first for write slots) when the
// slot uses the storage's native format and the run is a whole,
// tile-aligned scanline; otherwise it gathers into an aux-format staging
// buffer.
func (it *Iterator) openRun(s IterSlot, roi Rect) slotRun {
	tw, _, native := s.Buf.tileGeometry()

	if s.Format.Equal(native) {
		sx := roi.X + s.Buf.shiftX
		if sx%tw == 0 && roi.W == tw {
			tx, ty, _, offY := s.Buf.storageCoord(roi.X, roi.Y, 0)
			tile := s.Buf.storage.GetTile(tx, ty, 0)
			if s.Mode != IterRead {
				tile.Lock()
			}
			bpp := native.BytesPerPixel()
			off := offY * tw * bpp
			data := tile.Data()[off : off+tw*bpp]
			return slotRun{data: data, roi: roi, zeroCopy: true, tile: tile}
		}
	}

	bpp := s.Format.BytesPerPixel()
	buf := make([]byte, roi.W*bpp)
	if s.Mode != IterWrite {
		Gather(s.Buf, roi, s.Format, s.Abyss, buf, 0)
	}
	return slotRun{data: buf, roi: roi, zeroCopy: false}
}

// finalizeCurrent writes back and releases every slot's current run. For
// a zero-copy run this just unlocks the tile (the pixel data was already
// modified in place, if at all); for an aux-buffer WRITE/READWRITE slot it
// scatters the staging buffer back through format conversion.
func (it *Iterator) finalizeCurrent() {
	if !it.started {
		it.started = true
		return
	}
	for i, run := range it.current {
		if run.data == nil {
			continue
		}
		s := it.slots[i]
		if run.zeroCopy {
			if s.Mode != IterRead {
				run.tile.Unlock()
			}
			run.tile.Unref()
			continue
		}
		if s.Mode != IterRead {
			Scatter(s.Buf, run.roi, s.Format, run.data, 0)
		}
	}
	for i := range it.current {
		it.current[i] = slotRun{}
	}
}

// Close finalizes and releases any pending run without advancing further.
// Safe to call after Next has already returned false.
func (it *Iterator) Close() {
	it.finalizeCurrent()
	it.finished = true
}
