package rasterbuf

// LogHandler wraps an inner source and logs the get, set, void, refetch,
// reinit and flush commands that pass through it via logf, for the "debug
// log-each-op flag" configuration surface (see Config.DebugTileOps).
// IsCached, Exist and Idle are forwarded without a log line. It never changes the outcome of a
// command, only reports it, so inserting or removing it from a chain is
// always safe.
type LogHandler struct {
	Handler
	tag string
}

// NewLogHandler wraps inner with a handler that logs each command at the
// given tag (normally the storage's format/geometry, so interleaved logs
// from multiple storages stay distinguishable).
func NewLogHandler(inner TileSource, tag string) *LogHandler {
	return &LogHandler{Handler: Handler{Inner: inner}, tag: tag}
}

func (l *LogHandler) GetTile(x, y, z int) *Tile {
	t := l.Handler.GetTile(x, y, z)
	logf("rasterbuf[%s]: get (%d,%d,%d) hit=%v", l.tag, x, y, z, t != nil)
	return t
}

func (l *LogHandler) SetTile(x, y, z int, tile *Tile) bool {
	ok := l.Handler.SetTile(x, y, z, tile)
	logf("rasterbuf[%s]: set (%d,%d,%d) ok=%v", l.tag, x, y, z, ok)
	return ok
}

func (l *LogHandler) Void(x, y, z int) {
	logf("rasterbuf[%s]: void (%d,%d,%d)", l.tag, x, y, z)
	l.Handler.Void(x, y, z)
}

func (l *LogHandler) Refetch(x, y, z int) {
	logf("rasterbuf[%s]: refetch (%d,%d,%d)", l.tag, x, y, z)
	l.Handler.Refetch(x, y, z)
}

func (l *LogHandler) Reinit() {
	logf("rasterbuf[%s]: reinit", l.tag)
	l.Handler.Reinit()
}

func (l *LogHandler) Flush() error {
	logf("rasterbuf[%s]: flush", l.tag)
	return l.Handler.Flush()
}
