package filter

import (
	"math"
	"strings"
)

// ColorMatrix is a 4x5 color transformation in row-major order:
//
//	[R']   [a00 a01 a02 a03 a04]   [R]
//	[G'] = [a10 a11 a12 a13 a14] * [G]
//	[B']   [a20 a21 a22 a23 a24]   [B]
//	[A']   [a30 a31 a32 a33 a34]   [A]
//	                               [1]
//
// The fifth column is the bias. Colors are straight alpha in [0, 1].
type ColorMatrix [20]float32

// Rec. 709 luminance weights.
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// IdentityMatrix passes colors through unchanged.
func IdentityMatrix() ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0, 0, // R
		0, 1, 0, 0, 0, // G
		0, 0, 1, 0, 0, // B
		0, 0, 0, 1, 0, // A
	}
}

// BrightnessMatrix scales the color channels.
// factor: 0.0 = black, 1.0 = unchanged, 2.0 = twice as bright
func BrightnessMatrix(factor float32) ColorMatrix {
	return ColorMatrix{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// ContrastMatrix scales the color channels around mid gray.
// factor: 0.0 = gray, 1.0 = unchanged, 2.0 = high contrast
func ContrastMatrix(factor float32) ColorMatrix {
	offset := 0.5 * (1 - factor)
	return ColorMatrix{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	}
}

// SaturationMatrix blends between the luminance (0) and the color (1).
func SaturationMatrix(factor float32) ColorMatrix {
	inv := 1 - factor
	return ColorMatrix{
		lumR*inv + factor, lumG * inv, lumB * inv, 0, 0,
		lumR * inv, lumG*inv + factor, lumB * inv, 0, 0,
		lumR * inv, lumG * inv, lumB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// GrayscaleMatrix replaces colors with their Rec. 709 luminance.
func GrayscaleMatrix() ColorMatrix { return SaturationMatrix(0) }

// SepiaMatrix applies a sepia tone.
func SepiaMatrix() ColorMatrix {
	return ColorMatrix{
		0.393, 0.769, 0.189, 0, 0,
		0.349, 0.686, 0.168, 0, 0,
		0.272, 0.534, 0.131, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// InvertMatrix inverts the color channels and keeps alpha.
func InvertMatrix() ColorMatrix {
	return ColorMatrix{
		-1, 0, 0, 0, 1,
		0, -1, 0, 0, 1,
		0, 0, -1, 0, 1,
		0, 0, 0, 1, 0,
	}
}

// HueRotateMatrix rotates hue by the given angle in degrees.
func HueRotateMatrix(degrees float32) ColorMatrix {
	rad := float64(degrees) * math.Pi / 180
	cos := float32(math.Cos(rad))
	sin := float32(math.Sin(rad))

	const (
		r = 0.213
		g = 0.715
		b = 0.072
	)
	return ColorMatrix{
		r + cos*(1-r) + sin*(-r), g + cos*(-g) + sin*(-g), b + cos*(-b) + sin*(1-b), 0, 0,
		r + cos*(-r) + sin*(0.143), g + cos*(1-g) + sin*(0.140), b + cos*(-b) + sin*(-0.283), 0, 0,
		r + cos*(-r) + sin*(-(1 - r)), g + cos*(-g) + sin*(g), b + cos*(1-b) + sin*(b), 0, 0,
		0, 0, 0, 1, 0,
	}
}

// OpacityMatrix multiplies alpha by factor.
func OpacityMatrix(factor float32) ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, factor, 0,
	}
}

// Preset returns a named matrix. Presets taking a parameter use amount;
// the others ignore it. Names are case-insensitive.
func Preset(name string, amount float32) (ColorMatrix, bool) {
	switch strings.ToLower(name) {
	case "identity":
		return IdentityMatrix(), true
	case "brightness":
		return BrightnessMatrix(amount), true
	case "contrast":
		return ContrastMatrix(amount), true
	case "saturation":
		return SaturationMatrix(amount), true
	case "grayscale":
		return GrayscaleMatrix(), true
	case "sepia":
		return SepiaMatrix(), true
	case "invert":
		return InvertMatrix(), true
	case "hue":
		return HueRotateMatrix(amount), true
	case "opacity":
		return OpacityMatrix(amount), true
	}
	return ColorMatrix{}, false
}

// Apply transforms one color.
func (m *ColorMatrix) Apply(c [4]float32) [4]float32 {
	var out [4]float32
	for row := range 4 {
		r := m[row*5 : row*5+5]
		out[row] = r[0]*c[0] + r[1]*c[1] + r[2]*c[2] + r[3]*c[3] + r[4]
	}
	return out
}

// Then returns the matrix applying m first, then next.
func (m *ColorMatrix) Then(next *ColorMatrix) ColorMatrix {
	var out ColorMatrix
	for row := range 4 {
		for col := range 4 {
			var sum float32
			for k := range 4 {
				sum += next[row*5+k] * m[k*5+col]
			}
			out[row*5+col] = sum
		}
		out[row*5+4] = next[row*5+0]*m[4] + next[row*5+1]*m[9] +
			next[row*5+2]*m[14] + next[row*5+3]*m[19] + next[row*5+4]
	}
	return out
}

// Rows returns the matrix as the five vectors of the color_matrix program
// uniform block: one row per output channel, then the bias column.
func (m *ColorMatrix) Rows() (red, green, blue, alpha, bias [4]float32) {
	row := func(i int) [4]float32 { return [4]float32(m[i*5 : i*5+4]) }
	return row(0), row(1), row(2), row(3), [4]float32{m[4], m[9], m[14], m[19]}
}

// FromRows builds a matrix from the color_matrix uniform vectors.
func FromRows(red, green, blue, alpha, bias [4]float32) ColorMatrix {
	var m ColorMatrix
	for i, r := range [4][4]float32{red, green, blue, alpha} {
		copy(m[i*5:i*5+4], r[:])
		m[i*5+4] = bias[i]
	}
	return m
}
