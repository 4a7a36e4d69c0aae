package rasterbuf

import "fmt"

// ErrFormat indicates the on-disk file-backend layout did not match what
// the reader expects (bad magic, or a format name no registered format has).
type ErrFormat string

func (e ErrFormat) Error() string {
	return "rasterbuf: format error - " + string(e)
}

// ErrUnsupported indicates a requested operation or configuration is not
// implemented by this backend/handler.
type ErrUnsupported string

func (e ErrUnsupported) Error() string {
	return "rasterbuf: unsupported - " + string(e)
}

// ErrTileNotFound names a missing tile by coordinates. No code path in this
// package returns it: a GET miss just returns a nil tile, see source.go.
type ErrTileNotFound struct {
	X, Y, Z int
}

func (e ErrTileNotFound) Error() string {
	return fmt.Sprintf("rasterbuf: tile not found - (%d,%d,z=%d)", e.X, e.Y, e.Z)
}

// ErrIncompatibleFormat is returned by SetFormat when the requested soft
// format's bytes-per-pixel does not match the storage's native format.
type ErrIncompatibleFormat struct {
	Native Format
	Wanted Format
}

func (e ErrIncompatibleFormat) Error() string {
	return fmt.Sprintf("rasterbuf: format %q (%d bpp) incompatible with native format %q (%d bpp)",
		e.Wanted.Name, e.Wanted.BytesPerPixel(), e.Native.Name, e.Native.BytesPerPixel())
}

// ErrInvalidArgument marks a precondition violation that is refused rather
// than panicking; the in-memory stream returns it for negative offsets.
type ErrInvalidArgument string

func (e ErrInvalidArgument) Error() string {
	return "rasterbuf: invalid argument - " + string(e)
}
