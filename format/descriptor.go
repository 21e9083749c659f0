package format

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// Descriptor describes a texture: its size, texel layout and sampling state.
//
// Descriptor is comparable; two descriptors are [Descriptor.Equal] when every
// field matches.
type Descriptor struct {
	Width    int
	Height   int
	Channels ChannelLayout
	Element  ElementType

	// MinFilter and MagFilter select the minification and magnification filters.
	MinFilter gputypes.FilterMode
	MagFilter gputypes.FilterMode

	// WrapS and WrapT select the horizontal and vertical address modes.
	WrapS gputypes.AddressMode
	WrapT gputypes.AddressMode

	// BaseLevel and MaxLevel bound the mipmap levels the texture exposes.
	BaseLevel int
	MaxLevel  int
}

// New returns a descriptor with nearest filtering, clamp-to-edge wrapping and
// a single mipmap level.
func New(width, height int, channels ChannelLayout, element ElementType) Descriptor {
	return Descriptor{
		Width:     width,
		Height:    height,
		Channels:  channels,
		Element:   element,
		MinFilter: gputypes.FilterModeNearest,
		MagFilter: gputypes.FilterModeNearest,
		WrapS:     gputypes.AddressModeClampToEdge,
		WrapT:     gputypes.AddressModeClampToEdge,
	}
}

// Validate checks the size, the format combination and the mipmap range.
func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, d.Width, d.Height)
	}
	if !Supported(d.Channels, d.Element) {
		return fmt.Errorf("%w: %s/%s", ErrUnsupportedFormat, d.Channels, d.Element)
	}
	if d.Width > math.MaxInt/d.PixelSize()/d.Height {
		return fmt.Errorf("%w: %dx%d overflows the buffer size", ErrInvalidSize, d.Width, d.Height)
	}
	if d.BaseLevel < 0 || d.MaxLevel < 0 || d.BaseLevel > d.MaxLevel {
		return fmt.Errorf("%w: base %d, max %d", ErrMipmapRange, d.BaseLevel, d.MaxLevel)
	}
	return nil
}

// TextureFormat returns the GPU texture format, or
// [gputypes.TextureFormatUndefined] for an unsupported combination.
func (d Descriptor) TextureFormat() gputypes.TextureFormat {
	return textureFormats[formatKey{d.Channels, d.Element}]
}

// MipLevelCount returns the number of mipmap levels to allocate.
func (d Descriptor) MipLevelCount() uint32 {
	if d.MaxLevel <= 0 {
		return 1
	}
	return uint32(d.MaxLevel) + 1
}

// PixelSize returns the size of one texel in bytes.
func (d Descriptor) PixelSize() int {
	return d.Channels.Count() * d.Element.Size()
}

// RowSize returns the size of one tightly packed row in bytes.
func (d Descriptor) RowSize() int {
	return d.Width * d.PixelSize()
}

// Size returns the size of the base level in bytes.
func (d Descriptor) Size() int {
	return d.RowSize() * d.Height
}

// Filterable reports whether the texture can be sampled with linear filtering.
func (d Descriptor) Filterable() bool {
	return d.Element.IsNormalized() || d.Element == Float16
}

// IsCompatibleWith reports whether two descriptors have the same size,
// channel layout and element type. Sampling state is ignored.
func (d Descriptor) IsCompatibleWith(o Descriptor) bool {
	return d.Width == o.Width && d.Height == o.Height &&
		d.Channels == o.Channels && d.Element == o.Element
}

// Equal reports whether every field of the two descriptors matches.
func (d Descriptor) Equal(o Descriptor) bool {
	return d == o
}

// WithSize returns a copy of d with a new size.
func (d Descriptor) WithSize(width, height int) Descriptor {
	d.Width, d.Height = width, height
	return d
}

// WithFiltering returns a copy of d with new filters.
func (d Descriptor) WithFiltering(minFilter, magFilter gputypes.FilterMode) Descriptor {
	d.MinFilter, d.MagFilter = minFilter, magFilter
	return d
}

// WithWrapping returns a copy of d with new address modes.
func (d Descriptor) WithWrapping(s, t gputypes.AddressMode) Descriptor {
	d.WrapS, d.WrapT = s, t
	return d
}

// WithMipmaps returns a copy of d with a new mipmap range.
func (d Descriptor) WithMipmaps(base, maxLevel int) Descriptor {
	d.BaseLevel, d.MaxLevel = base, maxLevel
	return d
}

// String returns a compact description such as "640x480 RGBA/Uint8".
func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d %s/%s", d.Width, d.Height, d.Channels, d.Element)
}
