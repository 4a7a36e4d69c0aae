package rasterbuf

import "math"

// Gather copies the rectangle rect out of b into dst, converting from the
// storage's native format to format and resolving any portion of rect that
// falls outside b's abyss according to policy. rowstride is the byte
// stride between rows in dst; 0 means "tight, computed from rect.W and
// format's bytes-per-pixel".
//
// Traversal is row-major over rect, not tile-major; within a row,
// Buffer.Get's hot-tile pointer saves a chain lookup for consecutive pixels
// of the same tile. There is no separate code path per abyss
// specialization - the specialization is just which policy Buffer.Get
// resolves against for pixels outside the abyss.
func Gather(b *Buffer, rect Rect, format Format, policy AbyssPolicy, dst []byte, rowstride int) {
	bpp := format.BytesPerPixel()
	if rowstride == 0 {
		rowstride = rect.W * bpp
	}
	for row := 0; row < rect.H; row++ {
		y := rect.Y + row
		rowOff := row * rowstride
		for col := 0; col < rect.W; col++ {
			x := rect.X + col
			off := rowOff + col*bpp
			b.Get(x, y, format, policy, dst[off:off+bpp])
		}
	}
}

// Scatter writes src into the rectangle rect of b, converting from format
// to the storage's native format. Pixels of rect outside b's abyss are
// silently dropped, matching Buffer.Set's single-pixel contract and the
// "abyss NONE scatter never touches tiles outside the extent" round-trip
// law.
func Scatter(b *Buffer, rect Rect, format Format, src []byte, rowstride int) {
	bpp := format.BytesPerPixel()
	if rowstride == 0 {
		rowstride = rect.W * bpp
	}
	for row := 0; row < rect.H; row++ {
		y := rect.Y + row
		rowOff := row * rowstride
		for col := 0; col < rect.W; col++ {
			x := rect.X + col
			off := rowOff + col*bpp
			b.Set(x, y, format, src[off:off+bpp])
		}
	}
}

// nearestEpsilon is the tie-break epsilon used by nearest-neighbor
// resampling's floor(x + eps) rule.
const nearestEpsilon = 1e-6

// ScaledGet reads rect (in destination pixel units) out of b at the given
// scale, writing format-converted pixels into dst. scale == 1 degenerates
// to a plain Gather at level 0. For scale outside (0.5, 2.0), or for
// component types the box filter does not apply to, nearest-neighbor
// resampling is used instead.
func ScaledGet(b *Buffer, rect Rect, scale float64, format Format, policy AbyssPolicy, dst []byte, rowstride int) {
	bpp := format.BytesPerPixel()
	if rowstride == 0 {
		rowstride = rect.W * bpp
	}
	if scale == 1 {
		Gather(b, rect, format, policy, dst, rowstride)
		return
	}

	z := 0
	if scale > 0 && scale < 1 {
		z = int(math.Floor(math.Log2(1 / scale)))
		if z < 0 {
			z = 0
		}
	}
	factor := float64(int(1) << uint(z))
	native := b.storage.Format()

	useBoxFilter := scale > 0.5 && scale < 2.0 && native.IsBoxFilter

	for row := 0; row < rect.H; row++ {
		dy := rect.Y + row
		for col := 0; col < rect.W; col++ {
			dx := rect.X + col
			// Source coordinate, in level-z pixel units, that this
			// destination pixel samples from.
			sx := (float64(dx) / scale) / factor
			sy := (float64(dy) / scale) / factor

			off := row*rowstride + col*bpp
			out := dst[off : off+bpp]

			if useBoxFilter {
				boxFilterSample(b, sx, sy, z, format, policy, out)
			} else {
				ix := int(math.Floor(sx + nearestEpsilon))
				iy := int(math.Floor(sy + nearestEpsilon))
				levelGet(b, ix, iy, z, format, policy, out)
			}
		}
	}
}

// levelGet reads one pixel at level z. Level 0 goes through the ordinary
// single-pixel fast path; level > 0 reads the synthesized mipmap tile
// directly, since Buffer's hot-tile shortcut only tracks level 0.
func levelGet(b *Buffer, x, y, z int, format Format, policy AbyssPolicy, out []byte) {
	if z == 0 {
		b.Get(x, y, format, policy, out)
		return
	}
	abyss := b.scaledAbyss(z)
	if !abyss.Contains(x, y) {
		switch policy {
		case AbyssBlack:
			format.fromRGBAFloat(blackRGBA(), out)
		case AbyssWhite:
			format.fromRGBAFloat(whiteRGBA(), out)
		case AbyssClamp:
			cx := clampInt(x, abyss.X, abyss.Right()-1)
			cy := clampInt(y, abyss.Y, abyss.Bottom()-1)
			levelGet(b, cx, cy, z, format, AbyssNone, out)
		case AbyssLoop:
			lx := abyss.X + floorMod(x-abyss.X, maxInt(abyss.W, 1))
			ly := abyss.Y + floorMod(y-abyss.Y, maxInt(abyss.H, 1))
			levelGet(b, lx, ly, z, format, AbyssNone, out)
		default:
			for i := range out {
				out[i] = 0
			}
		}
		return
	}
	tx, ty, offX, offY := b.storageCoord(x*(1<<uint(z)), y*(1<<uint(z)), z)
	tile := b.storage.GetTile(tx, ty, z)
	native := b.storage.Format()
	bpp := native.BytesPerPixel()
	tw := b.storage.TileWidth()
	srcOff := (offY*tw + offX) * bpp
	src := tile.Data()[srcOff : srcOff+bpp]
	if format.Equal(native) {
		copy(out, src)
	} else {
		Convert(native, format, src, out, 1)
	}
	tile.Unref()
}

// boxFilterSample applies a 2x2 box filter with bilinear weights around
// (sx, sy) at level z, with one pixel of source padding handled by
// levelGet's own abyss resolution at the edges.
func boxFilterSample(b *Buffer, sx, sy float64, z int, format Format, policy AbyssPolicy, out []byte) {
	x0 := int(math.Floor(sx - 0.5))
	y0 := int(math.Floor(sy - 0.5))
	fx := (sx - 0.5) - float64(x0)
	fy := (sy - 0.5) - float64(y0)

	native := b.storage.Format()
	var corners [4][4]float64
	raw := make([]byte, native.BytesPerPixel())
	coords := [4][2]int{{x0, y0}, {x0 + 1, y0}, {x0, y0 + 1}, {x0 + 1, y0 + 1}}
	for i, c := range coords {
		levelGet(b, c[0], c[1], z, native, policy, raw)
		corners[i] = native.toRGBAFloat(raw)
	}

	var blended [4]float64
	for k := 0; k < 4; k++ {
		top := corners[0][k]*(1-fx) + corners[1][k]*fx
		bottom := corners[2][k]*(1-fx) + corners[3][k]*fx
		blended[k] = top*(1-fy) + bottom*fy
	}
	format.fromRGBAFloat(blended, out)
}
