// Package imageio bridges rasterbuf.Buffer to the standard image.Image
// interface and a handful of codecs, so a buffer can be loaded from or
// saved to ordinary image files.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/gen2brain/webp"
	"github.com/gracefulearth/go-colorext"
	"github.com/gracefulearth/image/bmp"
	"github.com/gracefulearth/image/tiff"

	"github.com/gracefulearth/rasterbuf"
)

// FromImage copies img into a freshly allocated RAM-backed buffer, picking
// a native format from img's color model. Unsupported color models fall
// back to 8-bit RGBA.
func FromImage(img image.Image) (*rasterbuf.Buffer, error) {
	bounds := img.Bounds()
	extent := rasterbuf.Rect{X: bounds.Min.X, Y: bounds.Min.Y, W: bounds.Dx(), H: bounds.Dy()}

	format := formatForModel(img.ColorModel())
	buf, err := rasterbuf.NewBuffer(extent, format)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, format.BytesPerPixel())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			encodePixel(format, img.At(x, y), raw)
			buf.Set(x, y, format, raw)
		}
	}
	return buf, nil
}

// ToImage reads buf's extent back out into a standard image.Image, using
// buf's own format to decide the image's color model.
func ToImage(buf *rasterbuf.Buffer) image.Image {
	extent := buf.Extent()
	rect := image.Rect(extent.X, extent.Y, extent.Right(), extent.Bottom())
	format := buf.Format()

	img := newImageFor(format, rect)
	raw := make([]byte, format.BytesPerPixel())
	for y := extent.Y; y < extent.Bottom(); y++ {
		for x := extent.X; x < extent.Right(); x++ {
			buf.Get(x, y, format, rasterbuf.AbyssBlack, raw)
			setPixel(img, format, x, y, raw)
		}
	}
	return img
}

// Decode reads an image from r, dispatched on the file extension in name
// (".png", ".jpg"/".jpeg", ".bmp", ".tif"/".tiff", ".webp"), and loads it
// into a new buffer via FromImage.
func Decode(r io.Reader, name string) (*rasterbuf.Buffer, error) {
	var img image.Image
	var err error
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	case ".bmp":
		img, err = bmp.Decode(r)
	case ".tif", ".tiff":
		img, err = tiff.Decode(r)
	case ".webp":
		img, err = webp.Decode(r)
	default:
		return nil, fmt.Errorf("imageio: unsupported image extension %q", path.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// Encode writes buf to w, dispatched on the file extension in name.
func Encode(w io.Writer, buf *rasterbuf.Buffer, name string) error {
	img := ToImage(buf)
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, nil)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, nil)
	default:
		return fmt.Errorf("imageio: unsupported image extension %q", path.Ext(name))
	}
}

func formatForModel(model color.Model) rasterbuf.Format {
	switch model {
	case color.GrayModel:
		return rasterbuf.FormatYU8
	case color.Gray16Model:
		return rasterbuf.FormatYU16
	case colorext.GrayS16Model:
		return rasterbuf.FormatYU16
	default:
		return rasterbuf.FormatRGBAU8
	}
}

func encodePixel(format rasterbuf.Format, c color.Color, raw []byte) {
	order := format.ByteOrder
	switch format.Name {
	case rasterbuf.FormatYU8.Name:
		g := color.GrayModel.Convert(c).(color.Gray)
		raw[0] = g.Y
	case rasterbuf.FormatYU16.Name:
		if gs16, ok := c.(colorext.GrayS16); ok {
			order.PutUint16(raw, uint16(gs16.Y))
			return
		}
		g := color.Gray16Model.Convert(c).(color.Gray16)
		order.PutUint16(raw, g.Y)
	default:
		r, g, b, a := c.RGBA()
		raw[0] = byte(r >> 8)
		raw[1] = byte(g >> 8)
		raw[2] = byte(b >> 8)
		raw[3] = byte(a >> 8)
	}
}

func newImageFor(format rasterbuf.Format, rect image.Rectangle) image.Image {
	switch format.Name {
	case rasterbuf.FormatYU8.Name:
		return image.NewGray(rect)
	case rasterbuf.FormatYU16.Name:
		return image.NewGray16(rect)
	default:
		return image.NewNRGBA(rect)
	}
}

func setPixel(img image.Image, format rasterbuf.Format, x, y int, raw []byte) {
	order := format.ByteOrder
	switch dst := img.(type) {
	case *image.Gray:
		dst.SetGray(x, y, color.Gray{Y: raw[0]})
	case *image.Gray16:
		dst.SetGray16(x, y, color.Gray16{Y: order.Uint16(raw)})
	case *image.NRGBA:
		dst.SetNRGBA(x, y, color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: raw[3]})
	}
}
