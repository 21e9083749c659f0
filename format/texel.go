package format

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Unpack converts a packed texel buffer into RGBA float32 values, four per
// texel, the way a shader samples them: missing color channels read as 0 and
// a missing alpha reads as 1.
func (d Descriptor) Unpack(data []byte) ([]float32, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(data) != d.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %s", ErrBufferSize, len(data), d.Size(), d)
	}

	n := d.Width * d.Height
	out := make([]float32, n*4)
	es := d.Element.Size()
	ps := d.PixelSize()
	var c [4]float32
	for i := range n {
		px := data[i*ps : (i+1)*ps]
		for k := range d.Channels.Count() {
			c[k] = d.Element.decode(px[k*es : (k+1)*es])
		}
		dst := out[i*4 : i*4+4]
		switch d.Channels {
		case Luminance, Red:
			dst[0], dst[1], dst[2], dst[3] = c[0], 0, 0, 1
		case LuminanceAlpha, RG:
			dst[0], dst[1], dst[2], dst[3] = c[0], c[1], 0, 1
		case RGBA:
			dst[0], dst[1], dst[2], dst[3] = c[0], c[1], c[2], c[3]
		case BGRA:
			dst[0], dst[1], dst[2], dst[3] = c[2], c[1], c[0], c[3]
		}
	}
	return out, nil
}

// Pack converts RGBA float32 values, four per texel, into a packed texel
// buffer. Normalized types are clamped and rounded to nearest.
func (d Descriptor) Pack(rgba []float32) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	n := d.Width * d.Height
	if len(rgba) != n*4 {
		return nil, fmt.Errorf("%w: got %d values, want %d for %s", ErrBufferSize, len(rgba), n*4, d)
	}

	out := make([]byte, d.Size())
	es := d.Element.Size()
	ps := d.PixelSize()
	var c [4]float32
	for i := range n {
		src := rgba[i*4 : i*4+4]
		switch d.Channels {
		case BGRA:
			c[0], c[1], c[2], c[3] = src[2], src[1], src[0], src[3]
		default:
			c[0], c[1], c[2], c[3] = src[0], src[1], src[2], src[3]
		}
		px := out[i*ps : (i+1)*ps]
		for k := range d.Channels.Count() {
			d.Element.encode(px[k*es:(k+1)*es], c[k])
		}
	}
	return out, nil
}

func (e ElementType) decode(b []byte) float32 {
	switch e {
	case Uint8:
		return float32(b[0]) / math.MaxUint8
	case Int8:
		return max(float32(int8(b[0]))/math.MaxInt8, -1)
	case Uint16:
		return float32(binary.LittleEndian.Uint16(b)) / math.MaxUint16
	case Int16:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/math.MaxInt16, -1)
	case Uint32:
		return float32(binary.LittleEndian.Uint32(b))
	case Int32:
		return float32(int32(binary.LittleEndian.Uint32(b)))
	case Float16:
		return halfToFloat(binary.LittleEndian.Uint16(b))
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (e ElementType) encode(b []byte, v float32) {
	switch e {
	case Uint8:
		b[0] = uint8(unorm(v, math.MaxUint8))
	case Int8:
		b[0] = uint8(int8(snorm(v, math.MaxInt8)))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(unorm(v, math.MaxUint16)))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(snorm(v, math.MaxInt16))))
	case Uint32:
		f := math.Round(float64(v))
		binary.LittleEndian.PutUint32(b, uint32(min(max(f, 0), math.MaxUint32)))
	case Int32:
		f := math.Round(float64(v))
		binary.LittleEndian.PutUint32(b, uint32(int32(min(max(f, math.MinInt32), math.MaxInt32))))
	case Float16:
		binary.LittleEndian.PutUint16(b, floatToHalf(v))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	}
}

func unorm(v float32, scale float64) int64 {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	return int64(math.Round(min(max(f, 0), 1) * scale))
}

func snorm(v float32, scale float64) int64 {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	return int64(math.Round(min(max(f, -1), 1) * scale))
}

// halfToFloat widens an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		f := float32(mant) / (1 << 24)
		if sign != 0 {
			return -f
		}
		return f
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	}
}

// floatToHalf narrows to IEEE 754 binary16, rounding to nearest even.
func floatToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	if exp == 0xff {
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	e := exp - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}
	if e <= 0 {
		if e < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint(14 - e)
		hm := mant >> shift
		rem := mant & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && hm&1 == 1) {
			hm++
		}
		return sign | uint16(hm)
	}

	h := uint16(e)<<10 | uint16(mant>>13)
	rem := mant & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		h++
	}
	return sign | h
}
