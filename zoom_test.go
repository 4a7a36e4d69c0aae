package rasterbuf

import "testing"

// zoomFakeSource is a minimal TileSource standing in for the empty/backend
// pair below a zoom handler, so tests can supply real level-0 content
// without the empty handler's blanket zero-fill shadowing it.
type zoomFakeSource struct {
	Handler
	tiles map[tileKey]*Tile
}

func newZoomFakeSource() *zoomFakeSource {
	return &zoomFakeSource{tiles: map[tileKey]*Tile{}}
}

func (f *zoomFakeSource) GetTile(x, y, z int) *Tile {
	if t, ok := f.tiles[tileKey{x, y, z}]; ok {
		return t.Ref()
	}
	return nil
}

func uniformTile(x, y, z, size int, fill func(i int) byte) *Tile {
	t := newTile(x, y, z, size)
	data := t.Data()
	for i := range data {
		data[i] = fill(i)
	}
	return t
}

func TestDownsampleQuadrantBoxFilter(t *testing.T) {
	// 4x4 RGBA u8 tile, uniform red, downsampled into a 2x2 quadrant should
	// stay uniform red: averaging four identical pixels is a no-op.
	tw, th := 4, 4
	bpp := FormatRGBAU8.BytesPerPixel()
	src := make([]byte, tw*th*bpp)
	for p := 0; p < tw*th; p++ {
		copy(src[p*bpp:p*bpp+bpp], []byte{200, 10, 10, 255})
	}
	dst := make([]byte, tw*th*bpp)

	downsampleQuadrant(dst, tw, th, FormatRGBAU8, src, 0, 0)

	for oy := 0; oy < th/2; oy++ {
		for ox := 0; ox < tw/2; ox++ {
			off := (oy*tw + ox) * bpp
			px := dst[off : off+bpp]
			if px[0] != 200 || px[1] != 10 || px[2] != 10 || px[3] != 255 {
				t.Fatalf("quadrant pixel (%d,%d) = %v, want uniform red", ox, oy, px)
			}
		}
	}
}

func TestDownsampleQuadrantNearestForNonBoxFilterFormat(t *testing.T) {
	if FormatYInt128.IsBoxFilter {
		t.Fatal("test assumes FormatYInt128 is not a box-filter format")
	}

	tw, th := 4, 4
	bpp := FormatYInt128.BytesPerPixel()
	src := make([]byte, tw*th*bpp)
	// Mark every source pixel's first byte with its linear index so the
	// nearest-neighbor picks are unambiguous.
	for p := 0; p < tw*th; p++ {
		src[p*bpp] = byte(p)
	}
	dst := make([]byte, tw*th*bpp)

	downsampleQuadrant(dst, tw, th, FormatYInt128, src, 0, 0)

	// Output (0,0) should come from source (0,0) (index 0); output (1,0)
	// from source (2,0) (index 2), per top-left 2x2 subsampling.
	if got := dst[0]; got != 0 {
		t.Errorf("dst(0,0) first byte = %d, want 0", got)
	}
	off := (0*tw + 1) * bpp
	if got := dst[off]; got != 2 {
		t.Errorf("dst(1,0) first byte = %d, want 2 (source index 2)", got)
	}
}

func TestZoomHandlerSynthesizesFromChildrenAndCaches(t *testing.T) {
	tw, th := 4, 4
	bpp := FormatRGBAU8.BytesPerPixel()
	tileSize := tw * th * bpp

	inner := newZoomFakeSource()
	colors := [2][2][4]byte{
		{{255, 0, 0, 255}, {0, 255, 0, 255}},
		{{0, 0, 255, 255}, {255, 255, 0, 255}},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			c := colors[i][j]
			tile := uniformTile(i, j, 0, tileSize, func(idx int) byte { return c[idx%4] })
			inner.tiles[tileKey{i, j, 0}] = tile
		}
	}

	s := &Storage{tileW: tw, tileH: th, format: FormatRGBAU8, tileSize: tileSize}
	zoom := NewZoomHandler(inner, nil, s)
	cache := NewCacheHandler(zoom)
	zoom.cache = cache

	synth := cache.GetTile(0, 0, 1)
	if synth == nil {
		t.Fatal("expected a synthesized level-1 tile")
	}
	defer synth.Unref()

	data := synth.Data()
	check := func(qx, qy int, want [4]byte) {
		off := (qy*tw + qx) * bpp
		got := data[off : off+bpp]
		for k := range want {
			if got[k] != want[k] {
				t.Errorf("quadrant at (%d,%d) byte %d = %d, want %d", qx, qy, k, got[k], want[k])
			}
		}
	}
	check(0, 0, colors[0][0])
	check(tw/2, 0, colors[1][0])
	check(0, th/2, colors[0][1])
	check(tw/2, th/2, colors[1][1])

	if s.maxSeenZoom < 1 {
		t.Errorf("maxSeenZoom should be raised to 1, got %d", s.maxSeenZoom)
	}
	if !cache.IsCached(0, 0, 1) {
		t.Errorf("synthesized tile should have been inserted into the cache")
	}
}

func TestZoomHandlerReturnsNilWhenNoChildExists(t *testing.T) {
	tw, th := 4, 4
	tileSize := tw * th * FormatRGBAU8.BytesPerPixel()

	inner := newZoomFakeSource()
	s := &Storage{tileW: tw, tileH: th, format: FormatRGBAU8, tileSize: tileSize}
	zoom := NewZoomHandler(inner, nil, s)
	cache := NewCacheHandler(zoom)
	zoom.cache = cache

	if tile := cache.GetTile(5, 5, 1); tile != nil {
		t.Errorf("expected nil synthesis result when no child tile exists anywhere, got %v", tile)
	}
}
