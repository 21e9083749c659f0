package cpu

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// texture is a base level stored as RGBA float32, four values per texel.
type texture struct {
	desc   format.Descriptor
	texels []float32
}

func newTexture(desc format.Descriptor) *texture {
	return &texture{desc: desc, texels: make([]float32, desc.Width*desc.Height*4)}
}

func (t *texture) at(x, y int) []float32 {
	i := (y*t.desc.Width + x) * 4
	return t.texels[i : i+4 : i+4]
}

func (t *texture) load(x, y int) [4]float32 {
	x = clampInt(x, 0, t.desc.Width-1)
	y = clampInt(y, 0, t.desc.Height-1)
	return [4]float32(t.at(x, y))
}

func (t *texture) sample(u, v float32, minify bool) [4]float32 {
	mode := t.desc.MagFilter
	if minify {
		mode = t.desc.MinFilter
	}
	w, h := t.desc.Width, t.desc.Height
	if mode != gputypes.FilterModeLinear {
		x := wrap(int(math.Floor(float64(u)*float64(w))), w, t.desc.WrapS)
		y := wrap(int(math.Floor(float64(v)*float64(h))), h, t.desc.WrapT)
		return [4]float32(t.at(x, y))
	}

	fx := float64(u)*float64(w) - 0.5
	fy := float64(v)*float64(h) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	ax, ay := float32(fx-x0), float32(fy-y0)
	xa := wrap(int(x0), w, t.desc.WrapS)
	xb := wrap(int(x0)+1, w, t.desc.WrapS)
	ya := wrap(int(y0), h, t.desc.WrapT)
	yb := wrap(int(y0)+1, h, t.desc.WrapT)

	c00, c10 := t.at(xa, ya), t.at(xb, ya)
	c01, c11 := t.at(xa, yb), t.at(xb, yb)
	var out [4]float32
	for k := range 4 {
		top := c00[k] + (c10[k]-c00[k])*ax
		bottom := c01[k] + (c11[k]-c01[k])*ax
		out[k] = top + (bottom-top)*ay
	}
	return out
}

// quantize rounds rows [y0, y1) to the precision of the texture format.
func (t *texture) quantize(y0, y1 int) error {
	row := t.desc.WithSize(t.desc.Width, 1)
	n := t.desc.Width * 4
	for y := y0; y < y1; y++ {
		texels := t.texels[y*n : (y+1)*n]
		packed, err := row.Pack(texels)
		if err != nil {
			return err
		}
		unpacked, err := row.Unpack(packed)
		if err != nil {
			return err
		}
		copy(texels, unpacked)
	}
	return nil
}

// wrap maps a texel coordinate into [0, n) with an address mode.
func wrap(i, n int, mode gputypes.AddressMode) int {
	switch mode {
	case gputypes.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case gputypes.AddressModeMirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		return clampInt(i, 0, n-1)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
