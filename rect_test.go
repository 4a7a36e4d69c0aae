package rasterbuf

import "testing"

func TestRectContains(t *testing.T) {
	r := Rect{X: -5, Y: 10, W: 20, H: 5}
	tests := []struct {
		x, y int
		want bool
	}{
		{-5, 10, true},
		{14, 14, true},
		{15, 10, false}, // right edge excluded
		{-5, 15, false}, // bottom edge excluded
		{-6, 10, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	got := a.Intersect(b)
	want := Rect{X: 5, Y: 5, W: 5, H: 5}
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}

	c := Rect{X: 100, Y: 100, W: 10, H: 10}
	if !a.Intersect(c).IsEmpty() {
		t.Errorf("disjoint rects should intersect to empty")
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 2, 3},
		{-7, 2, -4},
		{-1, 2, -1},
		{0, 2, 0},
		{-8, 2, -4},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFloorMod(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 2, 1},
		{-1, 2, 1},
		{-7, 3, 2},
		{0, 5, 0},
	}
	for _, tt := range tests {
		if got := floorMod(tt.a, tt.b); got != tt.want {
			t.Errorf("floorMod(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRectInfinite(t *testing.T) {
	r := InfiniteRect()
	if !r.IsInfinite() {
		t.Errorf("InfiniteRect should report IsInfinite")
	}
	if Rect{W: 10, H: 10}.IsInfinite() {
		t.Errorf("finite rect should not report IsInfinite")
	}
}
