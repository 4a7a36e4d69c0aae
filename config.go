package rasterbuf

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Config is the single configuration record threaded through storage
// construction: the swap directory, the cache byte budget, and the debug
// flag. A process normally sets this once at startup via Configure;
// individual storages read it through the package-level getters below.
type Config struct {
	// SwapDir names a directory where file-backed storages materialize
	// their swap files. The literal "RAM" disables swap entirely, so every
	// new storage is RAM-backed regardless of what its caller requested.
	SwapDir string
	// CacheBudget is the process-wide cache's byte budget, enforced by the
	// cache handler (see cache.go).
	CacheBudget int64
	// DebugTileOps, when set, wraps every newly built chain's head in a
	// logging handler that reports get, set, void, refetch, reinit and
	// flush commands through logf (see log_handler.go).
	DebugTileOps bool
}

// DefaultConfig is the zero-configuration starting point: no swap, a
// modest cache budget, debugging off.
func DefaultConfig() Config {
	return Config{
		SwapDir:     "RAM",
		CacheBudget: 100 * 1024 * 1024,
	}
}

var (
	configMu  sync.RWMutex
	config    = DefaultConfig()
	swapSeqNo int64
)

// Configure installs the process-wide configuration. The swap and debug
// settings are read when a storage is built, so storages already built keep
// the ones that were active then; the cache budget is read on every cache
// insertion, so a new budget applies at once.
func Configure(c Config) {
	configMu.Lock()
	defer configMu.Unlock()
	config = c
}

// CurrentConfig returns a copy of the active process-wide configuration.
func CurrentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// swapEnabled reports whether the active configuration names a real swap
// directory rather than the "RAM" sentinel.
func swapEnabled() bool {
	return CurrentConfig().SwapDir != "RAM"
}

// nextSwapPath derives a fresh, unique swap file path inside the configured
// swap directory from the process id and a monotonic counter, per the
// configuration contract.
func nextSwapPath() string {
	n := atomic.AddInt64(&swapSeqNo, 1)
	name := fmt.Sprintf("rasterbuf-%d-%d.swap", os.Getpid(), n)
	return CurrentConfig().SwapDir + string(os.PathSeparator) + name
}
