// Package format describes the shape of GPU-resident texture buffers.
//
// A [Descriptor] is a plain value: it is copied freely and every texture owns
// its own copy. Only a fixed set of channel layout and element type
// combinations maps to a GPU texture format; [Descriptor.Validate] rejects
// the rest.
//
// Texel data exchanged with the engine is tightly packed, row-major, top row
// first, with multi-byte elements stored little-endian.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// Errors returned by descriptor validation and texel conversion.
var (
	// ErrInvalidSize is returned when a width or height is not positive.
	ErrInvalidSize = errors.New("format: width and height must be positive")

	// ErrUnsupportedFormat is returned for a channel layout and element type
	// combination that has no GPU texture format.
	ErrUnsupportedFormat = errors.New("format: unsupported channel layout and element type")

	// ErrMipmapRange is returned when the base mipmap level exceeds the max level.
	ErrMipmapRange = errors.New("format: base mipmap level exceeds max level")

	// ErrBufferSize is returned when a texel buffer does not match the descriptor size.
	ErrBufferSize = errors.New("format: buffer size does not match descriptor")
)

// ChannelLayout lists which channels a texel holds and in what order.
type ChannelLayout uint8

const (
	// Luminance is a single grey channel, sampled as red.
	Luminance ChannelLayout = iota + 1

	// LuminanceAlpha is grey plus alpha, sampled as red and green.
	LuminanceAlpha

	// Red is a single red channel.
	Red

	// RG is red and green.
	RG

	// RGBA is red, green, blue and alpha.
	RGBA

	// BGRA is blue, green, red and alpha in memory, sampled as RGBA.
	BGRA

	channelLayoutEnd
)

var channelLayoutNames = [channelLayoutEnd]string{
	Luminance:      "Luminance",
	LuminanceAlpha: "LuminanceAlpha",
	Red:            "Red",
	RG:             "RG",
	RGBA:           "RGBA",
	BGRA:           "BGRA",
}

// Count returns the number of channels, or 0 for an unknown layout.
func (c ChannelLayout) Count() int {
	switch c {
	case Luminance, Red:
		return 1
	case LuminanceAlpha, RG:
		return 2
	case RGBA, BGRA:
		return 4
	default:
		return 0
	}
}

// HasAlpha reports whether the layout carries an alpha channel.
func (c ChannelLayout) HasAlpha() bool {
	return c == LuminanceAlpha || c == RGBA || c == BGRA
}

// IsValid reports whether c is a known layout.
func (c ChannelLayout) IsValid() bool {
	return c > 0 && c < channelLayoutEnd
}

// String returns the layout name.
func (c ChannelLayout) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("ChannelLayout(%d)", uint8(c))
	}
	return channelLayoutNames[c]
}

// ParseChannelLayout returns the layout with the given name (case-insensitive).
func ParseChannelLayout(s string) (ChannelLayout, error) {
	for c := Luminance; c < channelLayoutEnd; c++ {
		if strings.EqualFold(channelLayoutNames[c], s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown channel layout %q", ErrUnsupportedFormat, s)
}

// ElementType is the storage type of a single channel.
//
// Integer types of 8 and 16 bits are normalized when sampled: unsigned values
// map to [0, 1] and signed values to [-1, 1]. 32-bit integers are sampled as
// raw integers and are not filterable.
type ElementType uint8

const (
	// Uint8 is an unsigned normalized byte.
	Uint8 ElementType = iota + 1

	// Int8 is a signed normalized byte.
	Int8

	// Uint16 is an unsigned normalized short.
	Uint16

	// Int16 is a signed normalized short.
	Int16

	// Uint32 is an unsigned integer.
	Uint32

	// Int32 is a signed integer.
	Int32

	// Float16 is an IEEE 754 half-precision float.
	Float16

	// Float32 is an IEEE 754 single-precision float.
	Float32

	elementTypeEnd
)

var elementTypeNames = [elementTypeEnd]string{
	Uint8:   "Uint8",
	Int8:    "Int8",
	Uint16:  "Uint16",
	Int16:   "Int16",
	Uint32:  "Uint32",
	Int32:   "Int32",
	Float16: "Float16",
	Float32: "Float32",
}

// Size returns the size of one channel in bytes, or 0 for an unknown type.
func (e ElementType) Size() int {
	switch e {
	case Uint8, Int8:
		return 1
	case Uint16, Int16, Float16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	default:
		return 0
	}
}

// IsNormalized reports whether sampling maps the stored integer to a float range.
func (e ElementType) IsNormalized() bool {
	return e >= Uint8 && e <= Int16
}

// IsInteger reports whether the type is sampled as a raw integer.
func (e ElementType) IsInteger() bool {
	return e == Uint32 || e == Int32
}

// IsFloat reports whether the type is a floating point type.
func (e ElementType) IsFloat() bool {
	return e == Float16 || e == Float32
}

// IsValid reports whether e is a known element type.
func (e ElementType) IsValid() bool {
	return e > 0 && e < elementTypeEnd
}

// String returns the element type name.
func (e ElementType) String() string {
	if !e.IsValid() {
		return fmt.Sprintf("ElementType(%d)", uint8(e))
	}
	return elementTypeNames[e]
}

// ParseElementType returns the element type with the given name (case-insensitive).
func ParseElementType(s string) (ElementType, error) {
	for e := Uint8; e < elementTypeEnd; e++ {
		if strings.EqualFold(elementTypeNames[e], s) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown element type %q", ErrUnsupportedFormat, s)
}

type formatKey struct {
	channels ChannelLayout
	element  ElementType
}

// textureFormats is the fixed set of supported combinations.
var textureFormats = map[formatKey]gputypes.TextureFormat{
	{Luminance, Uint8}:   gputypes.TextureFormatR8Unorm,
	{Luminance, Int8}:    gputypes.TextureFormatR8Snorm,
	{Luminance, Uint16}:  gputypes.TextureFormatR16Unorm,
	{Luminance, Int16}:   gputypes.TextureFormatR16Snorm,
	{Luminance, Uint32}:  gputypes.TextureFormatR32Uint,
	{Luminance, Int32}:   gputypes.TextureFormatR32Sint,
	{Luminance, Float16}: gputypes.TextureFormatR16Float,
	{Luminance, Float32}: gputypes.TextureFormatR32Float,

	{Red, Uint8}:   gputypes.TextureFormatR8Unorm,
	{Red, Int8}:    gputypes.TextureFormatR8Snorm,
	{Red, Uint16}:  gputypes.TextureFormatR16Unorm,
	{Red, Int16}:   gputypes.TextureFormatR16Snorm,
	{Red, Uint32}:  gputypes.TextureFormatR32Uint,
	{Red, Int32}:   gputypes.TextureFormatR32Sint,
	{Red, Float16}: gputypes.TextureFormatR16Float,
	{Red, Float32}: gputypes.TextureFormatR32Float,

	{LuminanceAlpha, Uint8}:   gputypes.TextureFormatRG8Unorm,
	{LuminanceAlpha, Int8}:    gputypes.TextureFormatRG8Snorm,
	{LuminanceAlpha, Uint16}:  gputypes.TextureFormatRG16Unorm,
	{LuminanceAlpha, Int16}:   gputypes.TextureFormatRG16Snorm,
	{LuminanceAlpha, Uint32}:  gputypes.TextureFormatRG32Uint,
	{LuminanceAlpha, Int32}:   gputypes.TextureFormatRG32Sint,
	{LuminanceAlpha, Float16}: gputypes.TextureFormatRG16Float,
	{LuminanceAlpha, Float32}: gputypes.TextureFormatRG32Float,

	{RG, Uint8}:   gputypes.TextureFormatRG8Unorm,
	{RG, Int8}:    gputypes.TextureFormatRG8Snorm,
	{RG, Uint16}:  gputypes.TextureFormatRG16Unorm,
	{RG, Int16}:   gputypes.TextureFormatRG16Snorm,
	{RG, Uint32}:  gputypes.TextureFormatRG32Uint,
	{RG, Int32}:   gputypes.TextureFormatRG32Sint,
	{RG, Float16}: gputypes.TextureFormatRG16Float,
	{RG, Float32}: gputypes.TextureFormatRG32Float,

	{RGBA, Uint8}:   gputypes.TextureFormatRGBA8Unorm,
	{RGBA, Int8}:    gputypes.TextureFormatRGBA8Snorm,
	{RGBA, Uint16}:  gputypes.TextureFormatRGBA16Unorm,
	{RGBA, Int16}:   gputypes.TextureFormatRGBA16Snorm,
	{RGBA, Uint32}:  gputypes.TextureFormatRGBA32Uint,
	{RGBA, Int32}:   gputypes.TextureFormatRGBA32Sint,
	{RGBA, Float16}: gputypes.TextureFormatRGBA16Float,
	{RGBA, Float32}: gputypes.TextureFormatRGBA32Float,

	{BGRA, Uint8}: gputypes.TextureFormatBGRA8Unorm,
}

// Supported reports whether the combination maps to a GPU texture format.
func Supported(channels ChannelLayout, element ElementType) bool {
	_, ok := textureFormats[formatKey{channels, element}]
	return ok
}
