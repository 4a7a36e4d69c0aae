package rasterbuf

import (
	"io"
	"sync"
)

// FileBackend is the terminal source for a swap-enabled storage: tiles that
// reach it are written through to an io.ReadWriteSeeker (normally an
// *os.File, or a memStream in tests) using the fixed header-plus-index
// layout described by fileformat.go.
//
// Tile payloads only get a stable on-disk offset at Flush time, since the
// index's size (and so the payload region's starting offset) depends on
// the final tile count for that flush. Between flushes, every live tile's
// bytes are simply held in memory; Flush lays all of them out contiguously,
// in Morton order, right after a freshly sized index.
type FileBackend struct {
	backendBase
	mu     sync.Mutex
	stream io.ReadWriteSeeker
	tiles  map[tileKey][]byte
}

// NewFileBackend formats a brand-new, empty file-backed terminal source
// over stream, writing an initial zero-tile header.
func NewFileBackend(stream io.ReadWriteSeeker, tileW, tileH int, format Format) (*FileBackend, error) {
	b := &FileBackend{
		backendBase: backendBase{tileW: tileW, tileH: tileH, format: format, extent: InfiniteRect()},
		stream:      stream,
		tiles:       make(map[tileKey][]byte),
	}
	if err := b.writeHeaderLocked(); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenFileBackend reads an existing file-backed terminal source's header,
// tile index and tile payloads back from stream.
func OpenFileBackend(stream io.ReadWriteSeeker) (*FileBackend, error) {
	ra, ok := stream.(io.ReaderAt)
	if !ok {
		return nil, ErrUnsupported("file backend requires an io.ReaderAt-capable stream")
	}
	h, err := readFileHeader(ra)
	if err != nil {
		return nil, err
	}
	format, ok := LookupFormat(h.FormatName)
	if !ok {
		return nil, ErrFormat("unknown format name in file header: " + h.FormatName)
	}
	entries, err := readFileIndex(ra, int(h.TileCount))
	if err != nil {
		return nil, err
	}
	b := &FileBackend{
		backendBase: backendBase{
			tileW:  int(h.TileWidth),
			tileH:  int(h.TileHeight),
			format: format,
			extent: Rect{X: int(h.X), Y: int(h.Y), W: int(h.Width), H: int(h.Height)},
		},
		stream: stream,
		tiles:  make(map[tileKey][]byte, len(entries)),
	}
	tileSize := b.TileSize()
	for _, e := range entries {
		data := make([]byte, tileSize)
		if _, err := ra.ReadAt(data, int64(e.Offset)); err != nil {
			return nil, err
		}
		b.tiles[tileKey{int(e.X), int(e.Y), int(e.Z)}] = data
	}
	return b, nil
}

func (b *FileBackend) writeAt(p []byte, off int64) error {
	if wa, ok := b.stream.(io.WriterAt); ok {
		_, err := wa.WriteAt(p, off)
		return err
	}
	if _, err := b.stream.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := b.stream.Write(p)
	return err
}

func (b *FileBackend) writeHeaderLocked() error {
	wa, ok := b.stream.(io.WriterAt)
	if !ok {
		return b.writeAt(headerBytes(b.fileHeader()), 0)
	}
	return writeFileHeader(wa, b.fileHeader())
}

func headerBytes(h fileHeader) []byte {
	buf := make([]byte, fileHeaderSize)
	w := &byteWriterAt{buf: buf}
	_ = writeFileHeader(w, h)
	return buf
}

// byteWriterAt adapts a plain []byte into io.WriterAt for writeFileHeader
// and writeFileIndex when the backing stream offers no native WriterAt.
type byteWriterAt struct{ buf []byte }

func (w *byteWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n := copy(w.buf[off:], p)
	return n, nil
}

func (b *FileBackend) fileHeader() fileHeader {
	return fileHeader{
		Width: int32(b.extent.W), Height: int32(b.extent.H),
		X: int32(b.extent.X), Y: int32(b.extent.Y),
		FormatName:    b.format.Name,
		TileWidth:     uint32(b.tileW),
		TileHeight:    uint32(b.tileH),
		BytesPerPixel: uint32(b.format.BytesPerPixel()),
		TileCount:     int32(len(b.tiles)),
	}
}

func (b *FileBackend) GetTile(x, y, z int) *Tile {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.tiles[tileKey{x, y, z}]
	if !ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t := newBareTile(x, y, z, len(cp))
	t.SetData(cp)
	return t
}

func (b *FileBackend) SetTile(x, y, z int, tile *Tile) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(tile.Data()))
	copy(cp, tile.Data())
	b.tiles[tileKey{x, y, z}] = cp
	return true
}

func (b *FileBackend) IsCached(x, y, z int) bool {
	return false
}

func (b *FileBackend) Exist(x, y, z int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tiles[tileKey{x, y, z}]
	return ok
}

func (b *FileBackend) Void(x, y, z int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tiles, tileKey{x, y, z})
}

func (b *FileBackend) Refetch(x, y, z int) {}

func (b *FileBackend) Reinit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tiles = make(map[tileKey][]byte)
	_ = b.writeHeaderLocked()
}

// Flush rewrites the header, the tile index (sorted by Morton order) and
// every live tile's payload, refreshing the extent fields from the
// backend's current extent. The index always sits immediately after the
// header and is sized from the current tile count, so the payload region's
// start offset is recomputed fresh on every call - nothing is ever
// relocated after the fact.
func (b *FileBackend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]tileKey, 0, len(b.tiles))
	for k := range b.tiles {
		keys = append(keys, k)
	}
	entries := make([]fileIndexEntry, len(keys))
	for i, k := range keys {
		entries[i] = fileIndexEntry{X: int32(k.x), Y: int32(k.y), Z: int32(k.z)}
	}
	sortIndexByMorton(entries)

	tileSize := int64(b.TileSize())
	base := fileTilesOffset(len(entries))
	for i := range entries {
		entries[i].Offset = uint32(base + int64(i)*tileSize)
	}

	if wa, ok := b.stream.(io.WriterAt); ok {
		if err := writeFileHeader(wa, b.fileHeader()); err != nil {
			return err
		}
		if err := writeFileIndex(wa, entries); err != nil {
			return err
		}
		for i, e := range entries {
			data := b.tiles[tileKey{int(e.X), int(e.Y), int(e.Z)}]
			if _, err := wa.WriteAt(data, base+int64(i)*tileSize); err != nil {
				return err
			}
		}
		return nil
	}

	if err := b.writeAt(headerBytes(b.fileHeader()), 0); err != nil {
		return err
	}
	idxBuf := make([]byte, len(entries)*fileIndexSize)
	iw := &byteWriterAt{buf: idxBuf}
	if err := writeFileIndex(iw, entries); err != nil {
		return err
	}
	if err := b.writeAt(idxBuf, fileHeaderSize); err != nil {
		return err
	}
	for i, e := range entries {
		data := b.tiles[tileKey{int(e.X), int(e.Y), int(e.Z)}]
		if err := b.writeAt(data, base+int64(i)*tileSize); err != nil {
			return err
		}
	}
	return nil
}

func (b *FileBackend) Idle() bool {
	return false
}
