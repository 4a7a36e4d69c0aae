// Command rasterbuf-inspect loads an image or a native file-backed buffer
// and reports its geometry, or converts between the two forms. It exists
// as a thin driver over the library, mirroring the convert-tool style of
// reading flags per subcommand.
package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gracefulearth/rasterbuf"
	"github.com/gracefulearth/rasterbuf/imageio"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "to-raster":
		err = runToRaster(os.Args[2:])
	case "to-image":
		err = runToImage(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: rasterbuf-inspect <info|to-raster|to-image> [flags]")
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	src := fs.String("src", "", "path to a .raster file or an image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	buf, closeFn, err := openAny(*src)
	if err != nil {
		return err
	}
	defer closeFn()

	extent := buf.Extent()
	fmt.Printf("extent: %dx%d at (%d,%d)\n", extent.W, extent.H, extent.X, extent.Y)
	fmt.Printf("format: %s (%d bytes/pixel)\n", buf.Format().Name, buf.Format().BytesPerPixel())
	fmt.Printf("tiles cached (process-wide): %d bytes\n", rasterbuf.CacheBytesInUse())
	return nil
}

func runToRaster(args []string) error {
	fs := flag.NewFlagSet("to-raster", flag.ExitOnError)
	src := fs.String("src", "", "source image file")
	dst := fs.String("dst", "", "destination .raster file")
	tileSize := fs.Int("tileSize", rasterbuf.DefaultTileSize, "tile width/height for the destination")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := os.Open(*src)
	if err != nil {
		return err
	}
	defer in.Close()

	buf, err := imageio.Decode(in, *src)
	if err != nil {
		return err
	}
	defer buf.Close()

	out, err := os.Create(*dst)
	if err != nil {
		return err
	}
	defer out.Close()

	backend, err := rasterbuf.NewFileBackend(out, *tileSize, *tileSize, buf.Format())
	if err != nil {
		return err
	}
	raster, err := rasterbuf.NewBufferForBackend(backend)
	if err != nil {
		return err
	}
	defer raster.Close()

	rasterbuf.Copy(buf, buf.Extent(), raster, buf.Extent())
	return raster.Flush()
}

func runToImage(args []string) error {
	fs := flag.NewFlagSet("to-image", flag.ExitOnError)
	src := fs.String("src", "", "source .raster file")
	dst := fs.String("dst", "", "destination image file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := os.Open(*src)
	if err != nil {
		return err
	}
	defer in.Close()

	backend, err := rasterbuf.OpenFileBackend(in)
	if err != nil {
		return err
	}
	buf, err := rasterbuf.NewBufferForBackend(backend)
	if err != nil {
		return err
	}
	defer buf.Close()

	out, err := os.Create(*dst)
	if err != nil {
		return err
	}
	defer out.Close()

	return imageio.Encode(out, buf, *dst)
}

// openAny opens src as a native .raster file if it carries that extension,
// otherwise as an image decoded through imageio.
func openAny(src string) (buf *rasterbuf.Buffer, closeFn func(), err error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, nil, err
	}

	if strings.ToLower(path.Ext(src)) == ".raster" {
		backend, err := rasterbuf.OpenFileBackend(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		buf, err := rasterbuf.NewBufferForBackend(backend)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return buf, func() { buf.Close(); f.Close() }, nil
	}

	buf, err = imageio.Decode(f, src)
	f.Close()
	if err != nil {
		return nil, nil, err
	}
	return buf, func() { buf.Close() }, nil
}
