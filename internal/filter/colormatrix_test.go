package filter

import (
	"math"
	"testing"
)

func approx(a, b [4]float32) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-4 {
			return false
		}
	}
	return true
}

func TestColorMatrixApply(t *testing.T) {
	in := [4]float32{0.2, 0.4, 0.6, 0.8}
	tests := []struct {
		name string
		m    ColorMatrix
		want [4]float32
	}{
		{"identity", IdentityMatrix(), in},
		{"brightness", BrightnessMatrix(0.5), [4]float32{0.1, 0.2, 0.3, 0.8}},
		{"contrast zero", ContrastMatrix(0), [4]float32{0.5, 0.5, 0.5, 0.8}},
		{"contrast two", ContrastMatrix(2), [4]float32{-0.1, 0.3, 0.7, 0.8}},
		{"invert", InvertMatrix(), [4]float32{0.8, 0.6, 0.4, 0.8}},
		{"opacity", OpacityMatrix(0.5), [4]float32{0.2, 0.4, 0.6, 0.4}},
		{"saturation one", SaturationMatrix(1), in},
		{"hue zero", HueRotateMatrix(0), in},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Apply(in); !approx(got, tt.want) {
				t.Errorf("Apply(%v) = %v, want %v", in, got, tt.want)
			}
		})
	}
}

func TestGrayscaleMatrix(t *testing.T) {
	m := GrayscaleMatrix()

	white := m.Apply([4]float32{1, 1, 1, 1})
	if !approx(white, [4]float32{1, 1, 1, 1}) {
		t.Errorf("Apply(white) = %v, want white", white)
	}

	red := m.Apply([4]float32{1, 0, 0, 1})
	if red[0] != red[1] || red[1] != red[2] {
		t.Errorf("Apply(red) = %v, want equal channels", red)
	}
	if math.Abs(float64(red[0])-lumR) > 1e-6 {
		t.Errorf("Apply(red)[0] = %v, want %v", red[0], lumR)
	}
}

func TestSepiaMatrixKeepsAlpha(t *testing.T) {
	m := SepiaMatrix()
	got := m.Apply([4]float32{0.5, 0.5, 0.5, 0.25})
	if got[3] != 0.25 {
		t.Errorf("Apply()[3] = %v, want 0.25", got[3])
	}
	if !(got[0] > got[1] && got[1] > got[2]) {
		t.Errorf("Apply() = %v, want warm tone (r > g > b)", got)
	}
}

func TestHueRotateFullTurn(t *testing.T) {
	m := HueRotateMatrix(360)
	in := [4]float32{0.9, 0.3, 0.1, 1}
	if got := m.Apply(in); !approx(got, in) {
		t.Errorf("HueRotateMatrix(360).Apply(%v) = %v, want unchanged", in, got)
	}
}

func TestColorMatrixThen(t *testing.T) {
	a := BrightnessMatrix(0.5)
	b := ContrastMatrix(1.5)
	combined := a.Then(&b)

	in := [4]float32{0.2, 0.7, 0.9, 0.6}
	want := b.Apply(a.Apply(in))
	if got := combined.Apply(in); !approx(got, want) {
		t.Errorf("Then().Apply(%v) = %v, want %v", in, got, want)
	}

	inv := InvertMatrix()
	twice := inv.Then(&inv)
	if got := twice.Apply(in); !approx(got, in) {
		t.Errorf("invert twice = %v, want %v", got, in)
	}
}

func TestColorMatrixRows(t *testing.T) {
	m := ContrastMatrix(2)
	red, green, blue, alpha, bias := m.Rows()

	if red != [4]float32{2, 0, 0, 0} {
		t.Errorf("red = %v, want [2 0 0 0]", red)
	}
	if alpha != [4]float32{0, 0, 0, 1} {
		t.Errorf("alpha = %v, want [0 0 0 1]", alpha)
	}
	if bias != [4]float32{-0.5, -0.5, -0.5, 0} {
		t.Errorf("bias = %v, want [-0.5 -0.5 -0.5 0]", bias)
	}
	if back := FromRows(red, green, blue, alpha, bias); back != m {
		t.Errorf("FromRows(Rows()) = %v, want %v", back, m)
	}
}

func TestPreset(t *testing.T) {
	tests := []struct {
		name   string
		amount float32
		want   ColorMatrix
		ok     bool
	}{
		{"identity", 0, IdentityMatrix(), true},
		{"Invert", 0, InvertMatrix(), true},
		{"brightness", 0.3, BrightnessMatrix(0.3), true},
		{"hue", 90, HueRotateMatrix(90), true},
		{"posterize", 0, ColorMatrix{}, false},
	}

	for _, tt := range tests {
		got, ok := Preset(tt.name, tt.amount)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Preset(%q, %v) = %v, %v, want %v, %v", tt.name, tt.amount, got, ok, tt.want, tt.ok)
		}
	}
}
