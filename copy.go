package rasterbuf

// Copy moves the pixels of srcRect in src into dstRect of dst. When the two
// buffers share tile geometry and native format and the shifted rectangles
// align on tile boundaries, the aligned interior is moved by duplicating
// tile siblings (no pixel data is touched); the four border bands left over
// go through the ordinary iterator-based conversion path, as does the whole
// rectangle when the fast path doesn't apply.
func Copy(src *Buffer, srcRect Rect, dst *Buffer, dstRect Rect) {
	if !canTilePlaneCopy(src, srcRect, dst, dstRect) {
		copyByIterator(src, srcRect, dst, dstRect)
		return
	}

	dx := dstRect.X - srcRect.X
	dy := dstRect.Y - srcRect.Y

	tw, th, _ := src.tileGeometry()
	aligned := tileAlignedSubRect(dstRect, dst.shiftX, dst.shiftY, tw, th)
	if aligned.IsEmpty() {
		copyByIterator(src, srcRect, dst, dstRect)
		return
	}

	tilePlaneCopy(src, dst, aligned, dx, dy, tw, th)

	for _, band := range borderBands(dstRect, aligned) {
		copyByIterator(src, band.Shifted(-dx, -dy), dst, band)
	}
}

// Dup returns a new top-level buffer holding a copy of buf's full extent,
// sharing tile data with buf via the sibling ring wherever the tile-plane
// fast path applies.
func Dup(buf *Buffer) (*Buffer, error) {
	out, err := NewBufferWithTiling(buf.extent, buf.storage.Format(), buf.storage.TileWidth(), buf.storage.TileHeight(), false)
	if err != nil {
		return nil, err
	}
	Copy(buf, buf.extent, out, buf.extent)
	return out, nil
}

// canTilePlaneCopy reports whether src and dst share tile geometry, native
// format, and the shift between the two rectangles lands on a tile
// boundary - the precondition for sharing tile data instead of converting
// pixels.
func canTilePlaneCopy(src *Buffer, srcRect Rect, dst *Buffer, dstRect Rect) bool {
	if src.storage.TileWidth() != dst.storage.TileWidth() || src.storage.TileHeight() != dst.storage.TileHeight() {
		return false
	}
	if !src.storage.Format().Equal(dst.storage.Format()) {
		return false
	}
	if srcRect.W != dstRect.W || srcRect.H != dstRect.H {
		return false
	}
	tw, th := src.storage.TileWidth(), src.storage.TileHeight()
	srcOrigin := srcRect.X + src.shiftX
	dstOrigin := dstRect.X + dst.shiftX
	if (dstOrigin-srcOrigin)%tw != 0 {
		return false
	}
	srcOriginY := srcRect.Y + src.shiftY
	dstOriginY := dstRect.Y + dst.shiftY
	return (dstOriginY-srcOriginY)%th == 0
}

// tileAlignedSubRect returns the largest sub-rectangle of r that starts and
// ends on tile boundaries in storage coordinates (given shiftX/shiftY).
func tileAlignedSubRect(r Rect, shiftX, shiftY, tw, th int) Rect {
	sx0, sy0 := r.X+shiftX, r.Y+shiftY
	sx1, sy1 := r.Right()+shiftX, r.Bottom()+shiftY

	ax0 := ceilDiv(sx0, tw) * tw
	ay0 := ceilDiv(sy0, th) * th
	ax1 := floorDiv(sx1, tw) * tw
	ay1 := floorDiv(sy1, th) * th

	if ax1 <= ax0 || ay1 <= ay0 {
		return Rect{}
	}
	return Rect{X: ax0 - shiftX, Y: ay0 - shiftY, W: ax1 - ax0, H: ay1 - ay0}
}

// tilePlaneCopy walks the aligned rectangle one tile at a time, fetching
// the source tile, duplicating it as a sibling, and installing the
// duplicate directly into the destination's cache at the shifted tile
// index.
func tilePlaneCopy(src, dst *Buffer, aligned Rect, dx, dy, tw, th int) {
	for ty := aligned.Y; ty < aligned.Bottom(); ty += th {
		for tx := aligned.X; tx < aligned.Right(); tx += tw {
			stx, sty, _, _ := src.storageCoord(tx, ty, 0)
			dtx, dty, _, _ := dst.storageCoord(tx+dx, ty+dy, 0)

			srcTile := src.storage.GetTile(stx, sty, 0)
			if srcTile == nil {
				continue
			}
			sib := srcTile.Dup()
			srcTile.Unref()
			dst.storage.cache.SetTile(dtx, dty, 0, sib)
		}
	}
}

// borderBands returns the up-to-four rectangles of outer minus the aligned
// inner rectangle: top, bottom, left, right, in that order, skipping any
// that are empty.
func borderBands(outer, inner Rect) []Rect {
	var bands []Rect
	if inner.Y > outer.Y {
		bands = append(bands, Rect{X: outer.X, Y: outer.Y, W: outer.W, H: inner.Y - outer.Y})
	}
	if inner.Bottom() < outer.Bottom() {
		bands = append(bands, Rect{X: outer.X, Y: inner.Bottom(), W: outer.W, H: outer.Bottom() - inner.Bottom()})
	}
	if inner.X > outer.X {
		bands = append(bands, Rect{X: outer.X, Y: inner.Y, W: inner.X - outer.X, H: inner.H})
	}
	if inner.Right() < outer.Right() {
		bands = append(bands, Rect{X: inner.Right(), Y: inner.Y, W: outer.Right() - inner.Right(), H: inner.H})
	}
	return bands
}

// copyByIterator falls back to a two-slot read/write walk with format
// conversion, used for the border bands of a tile-plane copy and for any
// copy that doesn't qualify for the fast path at all.
func copyByIterator(src *Buffer, srcRect Rect, dst *Buffer, dstRect Rect) {
	if srcRect.IsEmpty() || dstRect.IsEmpty() {
		return
	}
	format := dst.storage.Format()
	it := NewIterator([]IterSlot{
		{Buf: src, Rect: srcRect, Format: format, Mode: IterRead, Abyss: AbyssNone},
		{Buf: dst, Rect: dstRect, Format: format, Mode: IterWrite, Abyss: AbyssNone},
	})
	for it.Next() {
		copy(it.Data(1), it.Data(0))
	}
	it.Close()
}
