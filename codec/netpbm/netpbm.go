// Package netpbm reads and writes binary PGM (P5) and PPM (P6) images as
// texel buffers.
//
// Samples are stored as read: a maxval up to 255 gives Uint8 texels and a
// maxval up to 65535 gives Uint16 texels, without rescaling. PPM images are
// expanded to RGBA with an opaque alpha channel on load, and alpha is dropped
// on save.
package netpbm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// Errors returned by Decode and Encode.
var (
	// ErrUnsupportedFormat is returned for a magic number other than P5 or P6,
	// or a texture layout that has no NetPBM equivalent.
	ErrUnsupportedFormat = errors.New("netpbm: unsupported format")

	// ErrInvalidHeader is returned when the width, height or maxval cannot be read.
	ErrInvalidHeader = errors.New("netpbm: invalid header")

	// ErrMaxval is returned for a maxval of 0 or above 65535.
	ErrMaxval = errors.New("netpbm: maxval out of range")

	// ErrBodySize is returned when the payload does not match the header.
	ErrBodySize = errors.New("netpbm: body size mismatch")
)

const writerComment = "# glip netpbm writer"

// Decode reads a P5 or P6 image.
func Decode(r io.Reader) (format.Descriptor, []byte, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return format.Descriptor{}, nil, fmt.Errorf("netpbm: read: %w", err)
	}
	return parse(buf)
}

func parse(buf []byte) (format.Descriptor, []byte, error) {
	if len(buf) < 2 {
		return format.Descriptor{}, nil, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(buf))
	}
	var channels int
	switch magic := string(buf[:2]); magic {
	case "P5":
		channels = 1
	case "P6":
		channels = 3
	default:
		return format.Descriptor{}, nil, fmt.Errorf("%w: magic %q", ErrUnsupportedFormat, magic)
	}

	h := header{buf: buf, pos: 2}
	var fields [3]int
	for i, name := range []string{"width", "height", "maxval"} {
		v, err := h.next()
		if err != nil {
			return format.Descriptor{}, nil, fmt.Errorf("%w: %s: %w", ErrInvalidHeader, name, err)
		}
		fields[i] = v
	}
	width, height, maxval := fields[0], fields[1], fields[2]
	if width <= 0 || height <= 0 {
		return format.Descriptor{}, nil, fmt.Errorf("%w: %dx%d", format.ErrInvalidSize, width, height)
	}

	element := format.Uint8
	switch {
	case maxval <= 0 || maxval > 65535:
		return format.Descriptor{}, nil, fmt.Errorf("%w: %d", ErrMaxval, maxval)
	case maxval > 255:
		element = format.Uint16
	}

	// The decoded texture is at least as large as the body, so validating it
	// first keeps the size arithmetic below from overflowing.
	out := format.Luminance
	if channels == 3 {
		out = format.RGBA
	}
	desc := format.New(width, height, out, element)
	if err := desc.Validate(); err != nil {
		return format.Descriptor{}, nil, fmt.Errorf("netpbm: %w", err)
	}

	// A single whitespace character separates the header from the body.
	var body []byte
	if h.pos < len(buf) {
		body = buf[h.pos+1:]
	}
	samples := width * height * channels
	if want := samples * element.Size(); len(body) != want {
		return format.Descriptor{}, nil, fmt.Errorf("%w: want %d bytes, got %d", ErrBodySize, want, len(body))
	}

	if channels == 1 {
		data := make([]byte, desc.Size())
		if element == format.Uint8 {
			copy(data, body)
		} else {
			for i := range samples {
				binary.LittleEndian.PutUint16(data[2*i:], binary.BigEndian.Uint16(body[2*i:]))
			}
		}
		return desc, data, nil
	}

	data := make([]byte, desc.Size())
	for px := range width * height {
		for c := range 4 {
			if element == format.Uint8 {
				v := byte(255)
				if c < 3 {
					v = body[3*px+c]
				}
				data[4*px+c] = v
				continue
			}
			v := uint16(65535)
			if c < 3 {
				v = binary.BigEndian.Uint16(body[2*(3*px+c):])
			}
			binary.LittleEndian.PutUint16(data[2*(4*px+c):], v)
		}
	}
	return desc, data, nil
}

// header scans whitespace separated integers, skipping '#' comments.
type header struct {
	buf []byte
	pos int
}

func (h *header) next() (int, error) {
	for h.pos < len(h.buf) {
		c := h.buf[h.pos]
		if c == '#' {
			for h.pos < len(h.buf) && h.buf[h.pos] != '\n' {
				h.pos++
			}
			continue
		}
		if !isSpace(c) {
			break
		}
		h.pos++
	}
	start := h.pos
	for h.pos < len(h.buf) && !isSpace(h.buf[h.pos]) && h.buf[h.pos] != '#' {
		h.pos++
	}
	if start == h.pos {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(string(h.buf[start:h.pos]))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Encode writes data as a P5 image for single channel layouts or a P6 image
// for RGBA and BGRA. Only Uint8 and Uint16 elements are supported.
func Encode(w io.Writer, desc format.Descriptor, data []byte) error {
	if len(data) != desc.Size() {
		return fmt.Errorf("%w: want %d bytes, got %d", format.ErrBufferSize, desc.Size(), len(data))
	}
	var magic string
	var order []int
	switch desc.Channels {
	case format.Luminance, format.Red:
		magic, order = "P5", []int{0}
	case format.RGBA:
		magic, order = "P6", []int{0, 1, 2}
	case format.BGRA:
		magic, order = "P6", []int{2, 1, 0}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, desc.Channels)
	}
	var maxval int
	switch desc.Element {
	case format.Uint8:
		maxval = 255
	case format.Uint16:
		maxval = 65535
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, desc.Element)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\n%s\n%d %d\n%d\n", magic, writerComment, desc.Width, desc.Height, maxval)

	n := desc.Channels.Count()
	size := desc.Element.Size()
	for px := range desc.Width * desc.Height {
		for _, c := range order {
			off := (px*n + c) * size
			if size == 1 {
				b.WriteByte(data[off])
				continue
			}
			b.Write(binary.BigEndian.AppendUint16(nil, binary.LittleEndian.Uint16(data[off:])))
		}
	}
	if _, err := b.WriteTo(w); err != nil {
		return fmt.Errorf("netpbm: write: %w", err)
	}
	return nil
}

// Load reads a NetPBM file.
func Load(path string) (format.Descriptor, []byte, error) {
	buf, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return format.Descriptor{}, nil, fmt.Errorf("netpbm: open file: %w", err)
	}
	return parse(buf)
}

// Save writes a NetPBM file.
func Save(path string, desc format.Descriptor, data []byte) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("netpbm: create file: %w", err)
	}
	if err := Encode(f, desc, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
