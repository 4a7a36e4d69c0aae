package rasterbuf

// ZoomHandler synthesizes mipmap level z >= 1 on demand from the four level
// z-1 tiles below it, by recursive descent against its own GetTile (so
// already-synthesized or cached higher levels short-circuit the descent).
// It sits directly above the empty handler in a freshly built chain (see
// storage.go) and needs a direct line to the owning storage's cache
// handler, because a synthesized tile is inserted into the cache rather
// than forwarded back up through the chain it was built from.
type ZoomHandler struct {
	Handler
	cache   *CacheHandler
	storage *Storage
}

// NewZoomHandler wraps inner (normally the empty handler) with mipmap
// synthesis, inserting results into cache and tracking max_seen_zoom on
// storage.
func NewZoomHandler(inner TileSource, cache *CacheHandler, storage *Storage) *ZoomHandler {
	return &ZoomHandler{Handler: Handler{Inner: inner}, cache: cache, storage: storage}
}

func (z *ZoomHandler) GetTile(x, y, z0 int) *Tile {
	if z0 == 0 {
		return z.Handler.GetTile(x, y, 0)
	}

	if t := z.Handler.GetTile(x, y, z0); t != nil {
		return t
	}

	var children [4]*Tile
	any := false
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			c := z.GetTile(2*x+i, 2*y+j, z0-1)
			children[i*2+j] = c
			if c != nil {
				any = true
			}
		}
	}
	if !any {
		return nil
	}

	tileSize := z.storage.TileSize()
	synth := newTile(x, y, z0, tileSize)

	tw, th := z.storage.tileW, z.storage.tileH
	format := z.storage.format
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			c := children[i*2+j]
			if c == nil {
				continue
			}
			downsampleQuadrant(synth.Data(), tw, th, format, c.Data(), i*(tw/2), j*(th/2))
			c.Unref()
		}
	}

	if z0 > z.storage.maxSeenZoom {
		z.storage.maxSeenZoom = z0
	}

	z.cache.SetTile(x, y, z0, synth)
	return synth
}

// downsampleQuadrant halves src (a full tw x th tile at the level below)
// into the tw/2 x th/2 block of dst starting at (qx, qy), using a 2x2 box
// filter for floating-point/8-bit-multi-component formats and top-left
// nearest-neighbor subsampling otherwise.
func downsampleQuadrant(dst []byte, tw, th int, format Format, src []byte, qx, qy int) {
	bpp := format.BytesPerPixel()
	hw, hh := tw/2, th/2

	for oy := 0; oy < hh; oy++ {
		for ox := 0; ox < hw; ox++ {
			sx, sy := ox*2, oy*2
			dstOff := ((qy+oy)*tw + (qx + ox)) * bpp
			dstPixel := dst[dstOff : dstOff+bpp]

			if !format.IsBoxFilter {
				srcOff := (sy*tw + sx) * bpp
				copy(dstPixel, src[srcOff:srcOff+bpp])
				continue
			}

			var sum [4]float64
			for _, d := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				px, py := sx+d[0], sy+d[1]
				off := (py*tw + px) * bpp
				rgba := format.toRGBAFloat(src[off : off+bpp])
				for k := range sum {
					sum[k] += rgba[k]
				}
			}
			var avg [4]float64
			for k := range avg {
				avg[k] = sum[k] / 4
			}
			format.fromRGBAFloat(avg, dstPixel)
		}
	}
}
