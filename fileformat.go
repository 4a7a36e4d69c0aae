package rasterbuf

import (
	"encoding/binary"
	"io"
	"sort"
)

// File-backend layout: a fixed 256-byte header, followed by a sorted index
// of fixed-size entries, followed by fixed-size tile payloads. Everything
// is little-endian.
const (
	fileHeaderSize  = 256
	fileIndexSize   = 24
	fileMagicString = "_G_E_G_L"
)

var fileMagic = func() [16]byte {
	var m [16]byte
	copy(m[:], fileMagicString)
	return m
}()

// fileHeader mirrors the on-disk header layout exactly; field order and
// sizes below match the byte offsets named in the format.
type fileHeader struct {
	Width, Height int32
	X, Y          int32
	FormatName    string // stored NUL-padded ASCII, 32 bytes
	TileWidth     uint32
	TileHeight    uint32
	BytesPerPixel uint32
	TileCount     int32
}

func writeFileHeader(w io.WriterAt, h fileHeader) error {
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:16], fileMagic[:])
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.Width))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.Height))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.X))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.Y))
	nameBytes := []byte(h.FormatName)
	if len(nameBytes) > 32 {
		nameBytes = nameBytes[:32]
	}
	copy(buf[32:64], nameBytes)
	binary.LittleEndian.PutUint32(buf[64:68], h.TileWidth)
	binary.LittleEndian.PutUint32(buf[68:72], h.TileHeight)
	binary.LittleEndian.PutUint32(buf[72:76], h.BytesPerPixel)
	binary.LittleEndian.PutUint32(buf[76:80], uint32(h.TileCount))
	// bytes [80:256) stay zero (reserved)
	_, err := w.WriteAt(buf, 0)
	return err
}

func readFileHeader(r io.ReaderAt) (fileHeader, error) {
	buf := make([]byte, fileHeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return fileHeader{}, err
	}
	if string(buf[0:8]) != fileMagicString {
		return fileHeader{}, ErrFormat("bad magic in file header")
	}
	var h fileHeader
	h.Width = int32(binary.LittleEndian.Uint32(buf[16:20]))
	h.Height = int32(binary.LittleEndian.Uint32(buf[20:24]))
	h.X = int32(binary.LittleEndian.Uint32(buf[24:28]))
	h.Y = int32(binary.LittleEndian.Uint32(buf[28:32]))
	nameEnd := 32
	for nameEnd < 64 && buf[nameEnd] != 0 {
		nameEnd++
	}
	h.FormatName = string(buf[32:nameEnd])
	h.TileWidth = binary.LittleEndian.Uint32(buf[64:68])
	h.TileHeight = binary.LittleEndian.Uint32(buf[68:72])
	h.BytesPerPixel = binary.LittleEndian.Uint32(buf[72:76])
	h.TileCount = int32(binary.LittleEndian.Uint32(buf[76:80]))
	return h, nil
}

// fileIndexEntry is one 24-byte index record: tile coordinates, its byte
// offset in the file, a flags word (currently unused) and a reserved word.
type fileIndexEntry struct {
	X, Y, Z int32
	Offset  uint32
	Flags   uint32
}

// fileTilesOffset returns the byte offset the tile payloads start at for a
// file whose index holds tileCount entries: the index always sits
// immediately after the fixed header, so the payload region simply starts
// wherever that index ends.
func fileTilesOffset(tileCount int) int64 {
	return fileHeaderSize + int64(tileCount)*fileIndexSize
}

// writeFileIndex writes entries immediately after the header, the index's
// one fixed position in the file.
func writeFileIndex(w io.WriterAt, entries []fileIndexEntry) error {
	buf := make([]byte, fileIndexSize)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(e.X))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Y))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(e.Z))
		binary.LittleEndian.PutUint32(buf[12:16], e.Offset)
		binary.LittleEndian.PutUint32(buf[16:20], e.Flags)
		binary.LittleEndian.PutUint32(buf[20:24], 0)
		if _, err := w.WriteAt(buf, fileHeaderSize+int64(i)*fileIndexSize); err != nil {
			return err
		}
	}
	return nil
}

// readFileIndex reads count entries immediately after the header.
func readFileIndex(r io.ReaderAt, count int) ([]fileIndexEntry, error) {
	buf := make([]byte, fileIndexSize)
	entries := make([]fileIndexEntry, count)
	for i := range entries {
		if _, err := r.ReadAt(buf, fileHeaderSize+int64(i)*fileIndexSize); err != nil {
			return nil, err
		}
		entries[i].X = int32(binary.LittleEndian.Uint32(buf[0:4]))
		entries[i].Y = int32(binary.LittleEndian.Uint32(buf[4:8]))
		entries[i].Z = int32(binary.LittleEndian.Uint32(buf[8:12]))
		entries[i].Offset = binary.LittleEndian.Uint32(buf[12:16])
		entries[i].Flags = binary.LittleEndian.Uint32(buf[16:20])
	}
	return entries, nil
}

// mortonKey interleaves the 10 least-significant bits of each of x, y, z
// into a 30-bit Z-order curve key, used to sort the on-disk tile index so
// spatially nearby tiles land near each other on disk.
func mortonKey(x, y, z int32) uint64 {
	return spread10(uint32(x)) | spread10(uint32(y))<<1 | spread10(uint32(z))<<2
}

// spread10 takes the low 10 bits of v and spaces them out so each occupies
// every third bit position, ready to be OR'd with two other spread values.
func spread10(v uint32) uint64 {
	v &= 0x3ff
	x := uint64(v)
	x = (x | x<<16) & 0x030000FF
	x = (x | x<<8) & 0x0300F00F
	x = (x | x<<4) & 0x030C30C3
	x = (x | x<<2) & 0x09249249
	return x
}

// sortIndexByMorton orders entries by the Z-order key of their (x,y,z), as
// the file format requires.
func sortIndexByMorton(entries []fileIndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return mortonKey(entries[i].X, entries[i].Y, entries[i].Z) <
			mortonKey(entries[j].X, entries[j].Y, entries[j].Z)
	})
}
