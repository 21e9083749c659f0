package cpu

import (
	"github.com/ronan-kerviche/glip-lib-sub003/internal/filter"
	"github.com/ronan-kerviche/glip-lib-sub003/shader/library"
)

func init() {
	RegisterKernel(library.Identity, identityKernel)
	RegisterKernel(library.Invert, invertKernel)
	RegisterKernel(library.Add, addKernel)
	RegisterKernel(library.Multiply, multiplyKernel)
	RegisterKernel(library.ColorMatrix, colorMatrixKernel)
	RegisterKernel(library.GaussianH, gaussianKernel(1, 0))
	RegisterKernel(library.GaussianV, gaussianKernel(0, 1))
	RegisterKernel(library.Threshold, thresholdKernel)
	RegisterKernel(library.GameOfLife, gameOfLifeKernel)
}

func identityKernel(f *Fragment) {
	f.Set(0, f.Sample(0))
}

func invertKernel(f *Fragment) {
	c := f.Sample(0)
	f.Set(0, [4]float32{1 - c[0], 1 - c[1], 1 - c[2], c[3]})
}

func addKernel(f *Fragment) {
	a, b := f.Sample(0), f.Sample(1)
	f.Set(0, [4]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]})
}

func multiplyKernel(f *Fragment) {
	a, b := f.Sample(0), f.Sample(1)
	f.Set(0, [4]float32{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]})
}

func colorMatrixKernel(f *Fragment) {
	m := filter.FromRows(f.Vec4("red"), f.Vec4("green"), f.Vec4("blue"), f.Vec4("alpha"), f.Vec4("bias"))
	f.Set(0, m.Apply(f.Sample(0)))
}

// gaussianKernel returns one pass of a separable blur along (dx, dy).
// Texel reads are clamped to the texture.
func gaussianKernel(dx, dy int) Kernel {
	return func(f *Fragment) {
		sigma := f.Float("sigma")
		if sigma <= 0 {
			f.Set(0, f.Load(0, f.X, f.Y))
			return
		}
		weights := filter.CachedGaussianKernel(float64(sigma))
		r := len(weights) / 2
		var sum [4]float32
		for i, w := range weights {
			c := f.Load(0, f.X+(i-r)*dx, f.Y+(i-r)*dy)
			for k := range sum {
				sum[k] += w * c[k]
			}
		}
		f.Set(0, sum)
	}
}

func thresholdKernel(f *Fragment) {
	c := f.Sample(0)
	luma := 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
	var v float32
	if luma >= f.Float("level") {
		v = 1
	}
	f.Set(0, [4]float32{v, v, v, c[3]})
}

func gameOfLifeKernel(f *Fragment) {
	w, h := f.Size(0)
	alive := func(x, y int) int {
		x = (x%w + w) % w
		y = (y%h + h) % h
		if f.Load(0, x, y)[0] >= 0.5 {
			return 1
		}
		return 0
	}

	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx != 0 || dy != 0 {
				n += alive(f.X+dx, f.Y+dy)
			}
		}
	}
	var v float32
	if n == 3 || (n == 2 && alive(f.X, f.Y) == 1) {
		v = 1
	}
	f.Set(0, [4]float32{v, v, v, 1})
}
