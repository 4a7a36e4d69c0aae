package rasterbuf

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/chenxingqiang/go-floatx"
	"github.com/kshard/float8"
	"github.com/shogo82148/float128"
	"github.com/shogo82148/int128"
	"github.com/x448/float16"
)

// ComponentType is the scalar storage type of one component (channel) of a
// pixel format. It is a small closed enum of scalar storage kinds, scoped
// to the numeric types a raster pixel component actually needs.
type ComponentType uint8

const (
	CompUint8 ComponentType = iota
	CompUint16
	CompFloat8
	CompFloat16
	CompBFloat16
	CompFloat32
	CompFloat64
	CompFloat128
	CompInt128
)

// Size returns the storage size in bytes of one component of this type.
func (c ComponentType) Size() int {
	switch c {
	case CompUint8:
		return 1
	case CompUint16:
		return 2
	case CompFloat8:
		return 1
	case CompFloat16, CompBFloat16:
		return 2
	case CompFloat32:
		return 4
	case CompFloat64:
		return 8
	case CompFloat128, CompInt128:
		return 16
	default:
		panic("rasterbuf: unknown component type")
	}
}

// IsFloatOrByte reports whether this component type participates in the
// box-filter downsample class (floating-point or 8-bit multi-component
// formats), as opposed to the nearest-neighbor class used for everything else.
func (c ComponentType) IsFloatOrByte() bool {
	switch c {
	case CompUint8, CompFloat8, CompFloat16, CompBFloat16, CompFloat32, CompFloat64, CompFloat128:
		return true
	default:
		return false
	}
}

// toFloat64 decodes one component at raw[0:c.Size()] into a normalized
// float64 in its natural numeric range (integers stay in [0, max-int-value];
// floats pass through as-is). order is used for multi-byte integer/float
// component types.
func (c ComponentType) toFloat64(raw []byte, order binary.ByteOrder) float64 {
	switch c {
	case CompUint8:
		return float64(raw[0])
	case CompUint16:
		return float64(order.Uint16(raw))
	case CompFloat8:
		return float64(float8.Float8(raw[0]).Float32())
	case CompFloat16:
		return float64(float16.Frombits(order.Uint16(raw)).Float32())
	case CompBFloat16:
		return float64(floatx.BF16Frombits(order.Uint16(raw)).Float32())
	case CompFloat32:
		return float64(math.Float32frombits(order.Uint32(raw)))
	case CompFloat64:
		return math.Float64frombits(order.Uint64(raw))
	case CompFloat128:
		hi := order.Uint64(raw[:8])
		lo := order.Uint64(raw[8:])
		return quadToFloat64(float128.FromBits(hi, lo))
	case CompInt128:
		hi := int64(order.Uint64(raw[:8]))
		lo := order.Uint64(raw[8:])
		iv := int128.Int128{H: hi, L: lo}
		if iv.H < 0 {
			// Negate the two's-complement value first so the low word's
			// magnitude is not lost to float64 rounding against the high word.
			nl := ^iv.L + 1
			nh := ^uint64(iv.H)
			if nl == 0 {
				nh++
			}
			return -(float64(nh)*maxUint64Plus1 + float64(nl))
		}
		return float64(iv.H)*maxUint64Plus1 + float64(iv.L)
	default:
		panic("rasterbuf: unknown component type")
	}
}

const maxUint64Plus1 = 18446744073709551616.0

func (c ComponentType) fromFloat64(v float64, order binary.ByteOrder, dst []byte) {
	switch c {
	case CompUint8:
		dst[0] = byte(clamp(v, 0, 255))
	case CompUint16:
		order.PutUint16(dst, uint16(clamp(v, 0, 65535)))
	case CompFloat8:
		dst[0] = byte(float8.FromFloat32(float32(v)))
	case CompFloat16:
		order.PutUint16(dst, float16.Fromfloat32(float32(v)).Bits())
	case CompBFloat16:
		order.PutUint16(dst, uint16(floatx.BF16FromFloat32(float32(v))))
	case CompFloat32:
		order.PutUint32(dst, math.Float32bits(float32(v)))
	case CompFloat64:
		order.PutUint64(dst, math.Float64bits(v))
	case CompFloat128:
		hi, lo := quadFromFloat64(v).Bits()
		order.PutUint64(dst[:8], hi)
		order.PutUint64(dst[8:], lo)
	case CompInt128:
		i := int64(v)
		h := int64(0)
		if i < 0 {
			h = -1
		}
		order.PutUint64(dst[:8], uint64(h))
		order.PutUint64(dst[8:], uint64(i))
	default:
		panic("rasterbuf: unknown component type")
	}
}

// quadToFloat64 and quadFromFloat64 widen/narrow between float64 and the
// 128-bit quad type by reusing the IEEE-754 double encoding and re-biasing
// its exponent into the quad's wider exponent field, rather than guessing at
// a Float64()/FromFloat64() method the quad package may not expose.
func quadToFloat64(q float128.Float128) float64 {
	hi, lo := q.Bits()
	sign := hi >> 63
	exp := (hi >> 48) & 0x7fff
	mantHi := hi & 0xffffffffffff
	if exp == 0 && mantHi == 0 && lo == 0 {
		if sign == 1 {
			return math.Copysign(0, -1)
		}
		return 0
	}
	unbiased := int64(exp) - 16383
	dblExp := unbiased + 1023
	if dblExp < 0 {
		dblExp = 0
	}
	if dblExp > 0x7ff {
		dblExp = 0x7ff
	}
	dblMant := (mantHi << 4) | (lo >> 60)
	dblMant &= (1 << 52) - 1
	bits := (sign << 63) | (uint64(dblExp) << 52) | dblMant
	return math.Float64frombits(bits)
}

func quadFromFloat64(v float64) float128.Float128 {
	bits := math.Float64bits(v)
	sign := bits >> 63
	dblExp := (bits >> 52) & 0x7ff
	dblMant := bits & ((1 << 52) - 1)
	var hi, lo uint64
	if dblExp == 0 && dblMant == 0 {
		hi, lo = sign<<63, 0
	} else {
		unbiased := int64(dblExp) - 1023
		quadExp := uint64(unbiased+16383) & 0x7fff
		hi = (sign << 63) | (quadExp << 48) | (dblMant >> 4)
		lo = dblMant << 60
	}
	return float128.FromBits(hi, lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Format is the pixel format registry's opaque identifier. Storage and
// buffer code depend only on its byte stride, equality, and Convert -
// Format is otherwise a plain value type. It holds a slice, so it is not
// comparable with == and cannot be a map key; compare formats with Equal
// (by name).
type Format struct {
	Name        string
	Components  []ComponentType // per-channel storage type, e.g. [u8,u8,u8,u8] for RGBA8
	ByteOrder   binary.ByteOrder
	IsBoxFilter bool // true for formats whose components are floating-point or 8-bit, false for nearest-neighbor-only ones
}

// BytesPerPixel is the stride of one pixel in this format.
func (f Format) BytesPerPixel() int {
	n := 0
	for _, c := range f.Components {
		n += c.Size()
	}
	return n
}

// Equal reports whether two formats are the identical registered format.
func (f Format) Equal(o Format) bool {
	return f.Name == o.Name
}

// toRGBAFloat decodes one pixel at raw[:bpp] into normalized RGBA floats,
// replicating a single-channel value across RGB and defaulting alpha to 1.
func (f Format) toRGBAFloat(raw []byte) [4]float64 {
	var out [4]float64
	out[3] = 1
	off := 0
	n := len(f.Components)
	for i, c := range f.Components {
		v := c.toFloat64(raw[off:], f.ByteOrder)
		if !isIntegerComponent(c) {
			// floats are already 0..1 normalized by convention in this registry
		} else {
			v /= maxValue(c)
		}
		switch {
		case n == 1:
			if i == 0 {
				out[0], out[1], out[2] = v, v, v
			}
		case n == 2:
			if i == 0 {
				out[0], out[1], out[2] = v, v, v
			} else {
				out[3] = v
			}
		default:
			if i < 4 {
				out[i] = v
			}
		}
		off += c.Size()
	}
	return out
}

func (f Format) fromRGBAFloat(rgba [4]float64, dst []byte) {
	off := 0
	n := len(f.Components)
	get := func(i int) float64 {
		switch {
		case n == 1:
			return (rgba[0] + rgba[1] + rgba[2]) / 3
		case n == 2:
			if i == 0 {
				return (rgba[0] + rgba[1] + rgba[2]) / 3
			}
			return rgba[3]
		default:
			if i < 4 {
				return rgba[i]
			}
			return 0
		}
	}
	for i, c := range f.Components {
		v := get(i)
		if isIntegerComponent(c) {
			v *= maxValue(c)
		}
		c.fromFloat64(v, f.ByteOrder, dst[off:])
		off += c.Size()
	}
}

func isIntegerComponent(c ComponentType) bool {
	return c == CompUint8 || c == CompUint16
}

func maxValue(c ComponentType) float64 {
	switch c {
	case CompUint8:
		return 255
	case CompUint16:
		return 65535
	default:
		return 1
	}
}

// Convert performs a format-converting copy of n pixels from src (in srcFmt)
// to dst (in dstFmt), including the identity case where the two formats are
// the same and the conversion degenerates to a plain byte copy.
func Convert(srcFmt, dstFmt Format, src, dst []byte, n int) {
	if srcFmt.Equal(dstFmt) {
		copy(dst[:n*dstFmt.BytesPerPixel()], src[:n*srcFmt.BytesPerPixel()])
		return
	}
	sbpp := srcFmt.BytesPerPixel()
	dbpp := dstFmt.BytesPerPixel()
	for i := 0; i < n; i++ {
		srcPixel := src[i*sbpp : i*sbpp+sbpp]
		dstPixel := dst[i*dbpp : i*dbpp+dbpp]
		rgba := srcFmt.toRGBAFloat(srcPixel)
		dstFmt.fromRGBAFloat(rgba, dstPixel)
	}
}

// Built-in formats exercised by buffer tests and the imageio bridge. Formats
// are process-wide singletons, registered once, since a pixel format is a
// small closed enum rather than a dynamically allocated type.
var (
	FormatYFloat    = Format{Name: "Y float", Components: []ComponentType{CompFloat32}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	FormatYU8       = Format{Name: "Y u8", Components: []ComponentType{CompUint8}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	FormatYU16      = Format{Name: "Y u16", Components: []ComponentType{CompUint16}, ByteOrder: binary.LittleEndian, IsBoxFilter: false}
	FormatRGBAU8    = Format{Name: "RGBA u8", Components: []ComponentType{CompUint8, CompUint8, CompUint8, CompUint8}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	FormatRGBAFloat = Format{Name: "RGBA float", Components: []ComponentType{CompFloat32, CompFloat32, CompFloat32, CompFloat32}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	FormatRGBAHalf  = Format{Name: "RGBA half", Components: []ComponentType{CompFloat16, CompFloat16, CompFloat16, CompFloat16}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	// FormatYBFloat16/FormatY128/FormatYInt128 exist to give the bfloat16,
	// float128, and int128 domain deps (go-floatx, float128, int128) a home
	// in high-dynamic-range / scientific-raster channel formats.
	FormatYBFloat16 = Format{Name: "Y bfloat16", Components: []ComponentType{CompBFloat16}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	FormatY128      = Format{Name: "Y float128", Components: []ComponentType{CompFloat128}, ByteOrder: binary.LittleEndian, IsBoxFilter: true}
	FormatYInt128   = Format{Name: "Y int128", Components: []ComponentType{CompInt128}, ByteOrder: binary.LittleEndian, IsBoxFilter: false}
)

var (
	formatRegistryMu sync.RWMutex
	formatRegistry   = map[string]Format{}
)

func init() {
	for _, f := range []Format{FormatYFloat, FormatYU8, FormatYU16, FormatRGBAU8, FormatRGBAFloat, FormatRGBAHalf, FormatYBFloat16, FormatY128, FormatYInt128} {
		RegisterFormat(f)
	}
}

// RegisterFormat adds (or overwrites) a named format in the process-wide
// registry, so callers can look it up later by name (e.g. from the file
// backend's header, which stores format names as ASCII).
func RegisterFormat(f Format) {
	formatRegistryMu.Lock()
	defer formatRegistryMu.Unlock()
	formatRegistry[f.Name] = f
}

// LookupFormat returns a previously registered format by name.
func LookupFormat(name string) (Format, bool) {
	formatRegistryMu.RLock()
	defer formatRegistryMu.RUnlock()
	f, ok := formatRegistry[name]
	return f, ok
}

// blackRGBA / whiteRGBA are the canonical colors used by the BLACK/WHITE
// abyss policies.
func blackRGBA() [4]float64 {
	return [4]float64{0, 0, 0, 1}
}

func whiteRGBA() [4]float64 {
	return [4]float64{1, 1, 1, 1}
}
