package rasterbuf

import "io"

// memStream is a growable in-memory io.ReadWriteSeeker. The file-backed
// backend (backend_file.go) is written against io.ReadWriteSeeker so that
// tests can exercise the exact same header/index/tile-payload code path
// against memStream instead of a real file, and so the dir-per-tile backend
// can stage a tile's bytes before handing them to os.WriteFile.
type memStream struct {
	buf []byte
	pos int
}

func newMemStream(initialSize int) *memStream {
	return &memStream{buf: make([]byte, initialSize)}
}

func (b *memStream) Read(p []byte) (int, error) {
	if len(p) > 0 && b.pos < len(b.buf) {
		n := copy(p, b.buf[b.pos:])
		b.pos += n
		return n, nil
	} else if b.pos >= len(b.buf) {
		return 0, io.EOF
	} else if len(p) == 0 {
		return 0, nil
	}
	return 0, io.ErrUnexpectedEOF
}

func (b *memStream) Write(p []byte) (int, error) {
	need := b.pos + len(p)
	for need > len(b.buf) {
		b.buf = append(b.buf, make([]byte, max(len(b.buf), 64))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *memStream) Seek(offset int64, whence int) (int64, error) {
	var newOffset int
	switch whence {
	case io.SeekStart:
		newOffset = int(offset)
	case io.SeekCurrent:
		newOffset = b.pos + int(offset)
	case io.SeekEnd:
		newOffset = len(b.buf) + int(offset)
	default:
		panic("rasterbuf: invalid whence in memStream.Seek")
	}
	if newOffset < 0 {
		return 0, ErrInvalidArgument("seek before start of stream")
	}
	for newOffset > len(b.buf) {
		b.buf = append(b.buf, make([]byte, max(len(b.buf), 64))...)
	}
	b.pos = newOffset
	return int64(b.pos), nil
}

// ReadAt and WriteAt let memStream stand in for a real file's random-access
// behavior, which FileBackend relies on for its header/index reads and
// writes independent of the stream's current Read/Write position.
func (b *memStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidArgument("negative ReadAt offset")
	}
	if int(off) >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *memStream) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidArgument("negative WriteAt offset")
	}
	need := int(off) + len(p)
	for need > len(b.buf) {
		b.buf = append(b.buf, make([]byte, max(len(b.buf), 64))...)
	}
	return copy(b.buf[off:], p), nil
}

func (b *memStream) Bytes() []byte {
	return b.buf
}
