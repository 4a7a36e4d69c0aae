package rasterbuf

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestDebugTileOpsWrapsChainHeadInLogHandler(t *testing.T) {
	withFreshConfig(t, func() {
		var buf bytes.Buffer
		SetLogger(log.New(&buf, "", 0))
		defer SetLogger(nil)

		Configure(Config{SwapDir: "RAM", CacheBudget: 1024 * 1024, DebugTileOps: true})

		backend := NewRAMBackend(8, 8, FormatRGBAU8)
		s := buildChain(backend)

		if _, ok := s.head.(*LogHandler); !ok {
			t.Fatalf("head = %T, want *LogHandler when DebugTileOps is set", s.head)
		}

		tile := s.GetTile(0, 0, 0)
		tile.Unref()

		if !strings.Contains(buf.String(), "get (0,0,0)") {
			t.Errorf("expected a logged get op, got log output: %q", buf.String())
		}
	})
}

func TestDebugTileOpsOffLeavesCacheAsHead(t *testing.T) {
	withFreshConfig(t, func() {
		Configure(Config{SwapDir: "RAM", CacheBudget: 1024 * 1024, DebugTileOps: false})

		backend := NewRAMBackend(8, 8, FormatRGBAU8)
		s := buildChain(backend)

		if _, ok := s.head.(*CacheHandler); !ok {
			t.Fatalf("head = %T, want *CacheHandler when DebugTileOps is unset", s.head)
		}
	})
}

func TestLogHandlerForwardsAndReportsSetAndVoid(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(log.New(&buf, "", 0))
	defer SetLogger(nil)

	backend := NewRAMBackend(4, 4, FormatRGBAU8)
	inner := NewEmptyHandler(backend, backend.TileSize())
	l := NewLogHandler(inner, "test-tag")

	tile := newTile(0, 0, 0, backend.TileSize())
	if !l.SetTile(0, 0, 0, tile) {
		t.Fatal("SetTile through LogHandler should succeed")
	}
	l.Void(0, 0, 0)

	out := buf.String()
	if !strings.Contains(out, "test-tag") {
		t.Errorf("expected the handler's tag in the log output, got %q", out)
	}
	if !strings.Contains(out, "set (0,0,0)") || !strings.Contains(out, "void (0,0,0)") {
		t.Errorf("expected both set and void to be logged, got %q", out)
	}
}
