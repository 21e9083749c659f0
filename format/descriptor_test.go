package format

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr error
	}{
		{"valid", New(4, 4, RGBA, Uint8), nil},
		{"zero width", New(0, 4, RGBA, Uint8), ErrInvalidSize},
		{"negative height", New(4, -1, RGBA, Uint8), ErrInvalidSize},
		{"size overflow", New(math.MaxInt, 2, Luminance, Uint8), ErrInvalidSize},
		{"row overflow", New(math.MaxInt/2, 1, RGBA, Float32), ErrInvalidSize},
		{"unsupported", New(4, 4, BGRA, Float32), ErrUnsupportedFormat},
		{"mipmap range", New(4, 4, RGBA, Uint8).WithMipmaps(2, 1), ErrMipmapRange},
		{"mipmap ok", New(4, 4, RGBA, Uint8).WithMipmaps(0, 2), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescriptor_Sizes(t *testing.T) {
	d := New(5, 3, RGBA, Uint16)
	if got := d.PixelSize(); got != 8 {
		t.Errorf("PixelSize() = %d, want 8", got)
	}
	if got := d.RowSize(); got != 40 {
		t.Errorf("RowSize() = %d, want 40", got)
	}
	if got := d.Size(); got != 120 {
		t.Errorf("Size() = %d, want 120", got)
	}
	if got := New(2, 2, Luminance, Uint8).Size(); got != 4 {
		t.Errorf("Size() = %d, want 4", got)
	}
}

func TestDescriptor_Compatibility(t *testing.T) {
	a := New(8, 8, RGBA, Uint8)
	b := a.WithFiltering(gputypes.FilterModeLinear, gputypes.FilterModeLinear).
		WithWrapping(gputypes.AddressModeRepeat, gputypes.AddressModeRepeat)

	if !a.IsCompatibleWith(b) {
		t.Error("IsCompatibleWith() = false for descriptors differing only in sampling")
	}
	if a.Equal(b) {
		t.Error("Equal() = true for descriptors with different sampling")
	}
	if !a.Equal(New(8, 8, RGBA, Uint8)) {
		t.Error("Equal() = false for identical descriptors")
	}
	if a.IsCompatibleWith(a.WithSize(8, 9)) {
		t.Error("IsCompatibleWith() = true for different sizes")
	}
}

func TestDescriptor_MipLevelCount(t *testing.T) {
	if got := New(4, 4, RGBA, Uint8).MipLevelCount(); got != 1 {
		t.Errorf("MipLevelCount() = %d, want 1", got)
	}
	if got := New(4, 4, RGBA, Uint8).WithMipmaps(0, 2).MipLevelCount(); got != 3 {
		t.Errorf("MipLevelCount() = %d, want 3", got)
	}
}

func TestDescriptor_String(t *testing.T) {
	if got := New(640, 480, RGBA, Uint8).String(); got != "640x480 RGBA/Uint8" {
		t.Errorf("String() = %q", got)
	}
}
