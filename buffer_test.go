package rasterbuf

import (
	"sync/atomic"
	"testing"
)

// testTileSize hands out a distinct tile size to every caller, so each test
// gets a storage that was never used (and never left any tile data behind)
// by an earlier test reusing the same idle entry in the process-wide
// storage pool.
var testTileSizeCounter int64 = 8

func testTileSize() int {
	return int(atomic.AddInt64(&testTileSizeCounter, 1))
}

func newTestBuffer(t *testing.T, extent Rect) *Buffer {
	t.Helper()
	ts := testTileSize()
	buf, err := NewBufferWithTiling(extent, FormatRGBAU8, ts, ts, false)
	if err != nil {
		t.Fatalf("NewBufferWithTiling: %v", err)
	}
	t.Cleanup(buf.Close)
	return buf
}

func TestBufferSetGetRoundTrip(t *testing.T) {
	buf := newTestBuffer(t, Rect{X: 0, Y: 0, W: 32, H: 32})

	pixel := []byte{10, 20, 30, 255}
	buf.Set(5, 5, FormatRGBAU8, pixel)

	out := make([]byte, 4)
	buf.Get(5, 5, FormatRGBAU8, AbyssNone, out)
	for i := range pixel {
		if out[i] != pixel[i] {
			t.Fatalf("roundtrip mismatch at %d: got %d want %d", i, out[i], pixel[i])
		}
	}
}

func TestBufferSetOutsideAbyssDropped(t *testing.T) {
	buf := newTestBuffer(t, Rect{X: 0, Y: 0, W: 16, H: 16})
	buf.Set(100, 100, FormatRGBAU8, []byte{1, 2, 3, 4})
	// Nothing to assert directly beyond "this does not panic": writes
	// outside the abyss must be silently ignored.
}

func TestBufferAbyssPolicies(t *testing.T) {
	buf := newTestBuffer(t, Rect{X: 0, Y: 0, W: 16, H: 16})
	buf.Set(0, 0, FormatRGBAU8, []byte{9, 9, 9, 255})

	out := make([]byte, 4)

	buf.Get(-1, 0, FormatRGBAU8, AbyssBlack, out)
	if out[0] != 0 || out[3] != 255 {
		t.Errorf("BLACK abyss = %v, want opaque black", out)
	}

	buf.Get(-1, 0, FormatRGBAU8, AbyssWhite, out)
	if out[0] != 255 || out[3] != 255 {
		t.Errorf("WHITE abyss = %v, want opaque white", out)
	}

	buf.Get(-1, 0, FormatRGBAU8, AbyssNone, out)
	for _, b := range out {
		if b != 0 {
			t.Errorf("NONE abyss = %v, want all zero", out)
			break
		}
	}

	buf.Get(-1, 0, FormatRGBAU8, AbyssClamp, out)
	if out[0] != 9 {
		t.Errorf("CLAMP abyss = %v, want clamp to (0,0) pixel value 9", out)
	}

	buf.Get(16, 0, FormatRGBAU8, AbyssLoop, out)
	if out[0] != 9 {
		t.Errorf("LOOP abyss = %v, want wrap to (0,0) pixel value 9", out)
	}
}

func TestBufferFormatConversionOnSetGet(t *testing.T) {
	buf := newTestBuffer(t, Rect{X: 0, Y: 0, W: 16, H: 16})
	buf.Set(3, 3, FormatYU8, []byte{128})

	out := make([]byte, 4)
	buf.Get(3, 3, FormatRGBAU8, AbyssNone, out)
	if out[0] != 128 || out[1] != 128 || out[2] != 128 || out[3] != 255 {
		t.Errorf("gray write read back as rgba = %v", out)
	}
}

func TestBufferSetFormatRejectsIncompatibleBpp(t *testing.T) {
	buf := newTestBuffer(t, Rect{X: 0, Y: 0, W: 16, H: 16})
	if err := buf.SetFormat(FormatYU8); err == nil {
		t.Errorf("expected SetFormat to reject a format with different bytes-per-pixel")
	}
	if err := buf.SetFormat(FormatRGBAFloat); err != nil {
		t.Errorf("SetFormat with matching bpp should not error, got %v", err)
	}
}

func TestSubBufferExtentSetRejected(t *testing.T) {
	parent := newTestBuffer(t, Rect{X: 0, Y: 0, W: 64, H: 64})
	child := NewSubBuffer(parent, Rect{X: 8, Y: 8, W: 16, H: 16})
	if child.SetExtent(Rect{X: 0, Y: 0, W: 8, H: 8}) {
		t.Errorf("sub-buffer SetExtent should be refused")
	}
}

func TestBufferMultiTileSetGet(t *testing.T) {
	buf := newTestBuffer(t, Rect{X: 0, Y: 0, W: 64, H: 64})
	for y := 0; y < 64; y += 7 {
		for x := 0; x < 64; x += 7 {
			pixel := []byte{byte(x), byte(y), 0, 255}
			buf.Set(x, y, FormatRGBAU8, pixel)
		}
	}
	out := make([]byte, 4)
	for y := 0; y < 64; y += 7 {
		for x := 0; x < 64; x += 7 {
			buf.Get(x, y, FormatRGBAU8, AbyssNone, out)
			if out[0] != byte(x) || out[1] != byte(y) {
				t.Fatalf("pixel (%d,%d) = %v, want [%d %d 0 255]", x, y, out, byte(x), byte(y))
			}
		}
	}
}
