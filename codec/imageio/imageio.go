// Package imageio converts image files to and from texel buffers.
//
// PNG and JPEG go through the standard library, BMP and TIFF through
// golang.org/x/image, and NetPBM files through package netpbm. Decoded images
// become Luminance textures when grey and RGBA textures otherwise, with
// 16-bit elements when the source has 16-bit samples.
package imageio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ronan-kerviche/glip-lib-sub003/codec/netpbm"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// ErrUnsupportedFormat is returned for an unknown file type or a texture
// layout the encoder cannot represent.
var ErrUnsupportedFormat = errors.New("imageio: unsupported format")

// Format is an image file type.
type Format int

// Supported file types.
const (
	PNG Format = iota + 1
	JPEG
	BMP
	TIFF
	NetPBM
)

var formatNames = map[Format]string{
	PNG:    "png",
	JPEG:   "jpeg",
	BMP:    "bmp",
	TIFF:   "tiff",
	NetPBM: "netpbm",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFromPath returns the file type for the extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".bmp":
		return BMP, nil
	case ".tif", ".tiff":
		return TIFF, nil
	case ".pgm", ".ppm", ".pnm":
		return NetPBM, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// DefaultQuality is the JPEG quality used unless WithQuality is given.
const DefaultQuality = 90

type options struct {
	quality int
}

// Option configures Encode and Save.
type Option func(*options)

// WithQuality sets the JPEG quality, clamped to [1, 100].
func WithQuality(q int) Option {
	return func(o *options) {
		o.quality = min(max(q, 1), 100)
	}
}

// Decode reads a PNG, JPEG, BMP or TIFF image, detecting the type from its
// content.
func Decode(r io.Reader) (format.Descriptor, []byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return format.Descriptor{}, nil, fmt.Errorf("imageio: decode: %w", err)
	}
	desc, data := FromImage(img)
	return desc, data, nil
}

// FromImage converts img to a texel buffer.
func FromImage(img image.Image) (format.Descriptor, []byte) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		desc := format.New(w, h, format.Luminance, format.Uint8)
		data := make([]byte, desc.Size())
		for y := range h {
			copy(data[y*w:(y+1)*w], src.Pix[y*src.Stride:])
		}
		return desc, data

	case *image.Gray16:
		desc := format.New(w, h, format.Luminance, format.Uint16)
		data := make([]byte, desc.Size())
		for y := range h {
			row := src.Pix[y*src.Stride:]
			for x := range w {
				// image.Gray16 is big-endian.
				binary.LittleEndian.PutUint16(data[2*(y*w+x):], binary.BigEndian.Uint16(row[2*x:]))
			}
		}
		return desc, data

	case *image.NRGBA:
		desc := format.New(w, h, format.RGBA, format.Uint8)
		data := make([]byte, desc.Size())
		for y := range h {
			copy(data[y*w*4:(y+1)*w*4], src.Pix[y*src.Stride:])
		}
		return desc, data

	case *image.RGBA64, *image.NRGBA64:
		desc := format.New(w, h, format.RGBA, format.Uint16)
		data := make([]byte, desc.Size())
		for y := range h {
			for x := range w {
				c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				off := 8 * (y*w + x)
				binary.LittleEndian.PutUint16(data[off:], c.R)
				binary.LittleEndian.PutUint16(data[off+2:], c.G)
				binary.LittleEndian.PutUint16(data[off+4:], c.B)
				binary.LittleEndian.PutUint16(data[off+6:], c.A)
			}
		}
		return desc, data
	}

	desc := format.New(w, h, format.RGBA, format.Uint8)
	data := make([]byte, desc.Size())
	for y := range h {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			off := 4 * (y*w + x)
			data[off], data[off+1], data[off+2], data[off+3] = c.R, c.G, c.B, c.A
		}
	}
	return desc, data
}

// ToImage wraps a texel buffer in an image.Image. Luminance and Red textures
// become grey images; RGBA and BGRA textures become non-premultiplied images.
// Only Uint8 and Uint16 elements are supported, and BGRA only with Uint8.
func ToImage(desc format.Descriptor, data []byte) (image.Image, error) {
	if len(data) != desc.Size() {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", format.ErrBufferSize, desc.Size(), len(data))
	}
	w, h := desc.Width, desc.Height
	rect := image.Rect(0, 0, w, h)

	switch {
	case (desc.Channels == format.Luminance || desc.Channels == format.Red) && desc.Element == format.Uint8:
		img := image.NewGray(rect)
		copy(img.Pix, data)
		return img, nil

	case (desc.Channels == format.Luminance || desc.Channels == format.Red) && desc.Element == format.Uint16:
		img := image.NewGray16(rect)
		for i := range w * h {
			binary.BigEndian.PutUint16(img.Pix[2*i:], binary.LittleEndian.Uint16(data[2*i:]))
		}
		return img, nil

	case desc.Channels == format.RGBA && desc.Element == format.Uint8:
		img := image.NewNRGBA(rect)
		copy(img.Pix, data)
		return img, nil

	case desc.Channels == format.RGBA && desc.Element == format.Uint16:
		img := image.NewNRGBA64(rect)
		for i := range 4 * w * h {
			binary.BigEndian.PutUint16(img.Pix[2*i:], binary.LittleEndian.Uint16(data[2*i:]))
		}
		return img, nil

	case desc.Channels == format.BGRA && desc.Element == format.Uint8:
		img := image.NewNRGBA(rect)
		for i := 0; i < len(data); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = data[i+2], data[i+1], data[i], data[i+3]
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, desc)
}

// Encode writes a texel buffer in the given file type.
func Encode(w io.Writer, f Format, desc format.Descriptor, data []byte, opts ...Option) error {
	if f == NetPBM {
		return netpbm.Encode(w, desc, data)
	}
	o := options{quality: DefaultQuality}
	for _, opt := range opts {
		opt(&o)
	}
	img, err := ToImage(desc, data)
	if err != nil {
		return err
	}

	switch f {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: o.quality})
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("imageio: encode %s: %w", f, err)
	}
	return nil
}

// Load reads an image file. NetPBM files are recognized by their extension.
func Load(path string) (format.Descriptor, []byte, error) {
	if f, err := FormatFromPath(path); err == nil && f == NetPBM {
		return netpbm.Load(path)
	}
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return format.Descriptor{}, nil, fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return Decode(file)
}

// Save writes an image file, choosing the type from the extension of path.
func Save(path string, desc format.Descriptor, data []byte, opts ...Option) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}
	if err := Encode(file, f, desc, data, opts...); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
