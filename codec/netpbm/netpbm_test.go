package netpbm

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// =============================================================================
// Decode
// =============================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		channels format.ChannelLayout
		element  format.ElementType
		want     []byte
	}{
		{
			name:     "grey 8-bit",
			in:       "P5\n2 1\n255\n\x10\x20",
			channels: format.Luminance,
			element:  format.Uint8,
			want:     []byte{0x10, 0x20},
		},
		{
			name:     "grey 16-bit big-endian",
			in:       "P5 1 2 65535\n\x01\x02\xff\x00",
			channels: format.Luminance,
			element:  format.Uint16,
			want:     []byte{0x02, 0x01, 0x00, 0xff},
		},
		{
			name:     "rgb expands to rgba",
			in:       "P6\n# comment\n1 1\n# another\n255\n\x01\x02\x03",
			channels: format.RGBA,
			element:  format.Uint8,
			want:     []byte{1, 2, 3, 255},
		},
		{
			name:     "rgb 16-bit",
			in:       "P6\n1 1\n1023\n\x00\x01\x00\x02\x03\xff",
			channels: format.RGBA,
			element:  format.Uint16,
			want:     []byte{0x01, 0x00, 0x02, 0x00, 0xff, 0x03, 0xff, 0xff},
		},
		{
			name:     "low maxval is not rescaled",
			in:       "P5\n1 1\n15\n\x0f",
			channels: format.Luminance,
			element:  format.Uint8,
			want:     []byte{0x0f},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, data, err := Decode(bytes.NewReader([]byte(tt.in)))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if desc.Channels != tt.channels || desc.Element != tt.element {
				t.Errorf("Decode() format = %s, want %s/%s", desc, tt.channels, tt.element)
			}
			if !bytes.Equal(data, tt.want) {
				t.Errorf("Decode() data = %v, want %v", data, tt.want)
			}
			if len(data) != desc.Size() {
				t.Errorf("len(data) = %d, want %d", len(data), desc.Size())
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrInvalidHeader},
		{"ascii pgm", "P2\n1 1\n255\n0", ErrUnsupportedFormat},
		{"missing maxval", "P5\n1 1\n", ErrInvalidHeader},
		{"non numeric width", "P5\nx 1\n255\n\x00", ErrInvalidHeader},
		{"zero width", "P5\n0 1\n255\n", format.ErrInvalidSize},
		{"size overflow", "P5\n4294967296 4294967296\n255\n", format.ErrInvalidSize},
		{"rgb size overflow", "P6\n3037000500 3037000500\n65535\n", format.ErrInvalidSize},
		{"maxval above 16 bits", "P5\n1 1\n65536\n\x00\x00\x00", ErrMaxval},
		{"zero maxval", "P5\n1 1\n0\n\x00", ErrMaxval},
		{"short body", "P6\n2 1\n255\n\x00\x00\x00", ErrBodySize},
		{"trailing bytes", "P5\n1 1\n255\n\x00\x00", ErrBodySize},
		{"odd 16-bit body", "P5\n1 1\n300\n\x00", ErrBodySize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(bytes.NewReader([]byte(tt.in)))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// =============================================================================
// Encode
// =============================================================================

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		desc format.Descriptor
		data []byte
		want string
	}{
		{
			name: "grey 8-bit",
			desc: format.New(2, 1, format.Luminance, format.Uint8),
			data: []byte{7, 9},
			want: "P5\n# glip netpbm writer\n2 1\n255\n\x07\x09",
		},
		{
			name: "grey 16-bit",
			desc: format.New(1, 1, format.Red, format.Uint16),
			data: []byte{0x34, 0x12},
			want: "P5\n# glip netpbm writer\n1 1\n65535\n\x12\x34",
		},
		{
			name: "rgba drops alpha",
			desc: format.New(1, 1, format.RGBA, format.Uint8),
			data: []byte{1, 2, 3, 4},
			want: "P6\n# glip netpbm writer\n1 1\n255\n\x01\x02\x03",
		},
		{
			name: "bgra is swizzled",
			desc: format.New(1, 1, format.BGRA, format.Uint8),
			data: []byte{1, 2, 3, 4},
			want: "P6\n# glip netpbm writer\n1 1\n255\n\x03\x02\x01",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			if err := Encode(&b, tt.desc, tt.data); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got := b.String(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		desc format.Descriptor
		data []byte
		want error
	}{
		{"buffer size", format.New(2, 2, format.Luminance, format.Uint8), []byte{0}, format.ErrBufferSize},
		{"two channels", format.New(1, 1, format.RG, format.Uint8), []byte{0, 0}, ErrUnsupportedFormat},
		{"float element", format.New(1, 1, format.Luminance, format.Float32), make([]byte, 4), ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Encode(&bytes.Buffer{}, tt.desc, tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Encode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// =============================================================================
// Files
// =============================================================================

func TestSaveLoad(t *testing.T) {
	desc := format.New(3, 2, format.RGBA, format.Uint16)
	data := make([]byte, desc.Size())
	for i := range data {
		data[i] = byte(i * 11)
	}
	// Alpha does not survive a round trip through P6.
	for px := range 6 {
		data[px*8+6], data[px*8+7] = 0xff, 0xff
	}

	path := filepath.Join(t.TempDir(), "image.ppm")
	if err := Save(path, desc, data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, gotData, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(desc) {
		t.Errorf("Load() format = %s, want %s", got, desc)
	}
	if !bytes.Equal(gotData, data) {
		t.Errorf("Load() data = %v, want %v", gotData, data)
	}

	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.pgm")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}
