package rasterbuf

import "testing"

func TestRAMBackendGetSetExistVoid(t *testing.T) {
	b := NewRAMBackend(8, 8, FormatRGBAU8)

	if b.Exist(0, 0, 0) {
		t.Fatalf("fresh backend should report no tile present")
	}
	if tile := b.GetTile(0, 0, 0); tile != nil {
		t.Fatalf("GetTile on a fresh backend should return nil")
	}

	tile := newTile(0, 0, 0, b.TileSize())
	tile.Data()[0] = 77
	b.SetTile(0, 0, 0, tile)

	if !b.Exist(0, 0, 0) {
		t.Errorf("Exist should be true after SetTile")
	}
	got := b.GetTile(0, 0, 0)
	if got == nil {
		t.Fatal("expected a tile back after SetTile")
	}
	if got.Data()[0] != 77 {
		t.Errorf("GetTile returned data() = %d, want 77", got.Data()[0])
	}
	got.Unref()

	b.Void(0, 0, 0)
	if b.Exist(0, 0, 0) {
		t.Errorf("Void should remove the tile")
	}
}

func TestRAMBackendReinitDropsAllTiles(t *testing.T) {
	b := NewRAMBackend(8, 8, FormatRGBAU8)
	b.SetTile(0, 0, 0, newTile(0, 0, 0, b.TileSize()))
	b.SetTile(1, 0, 0, newTile(1, 0, 0, b.TileSize()))

	b.Reinit()

	if b.Exist(0, 0, 0) || b.Exist(1, 0, 0) {
		t.Errorf("Reinit should drop every tile")
	}
}
