package cpu

import (
	"slices"
	"sync"
)

// Kernel computes one fragment. It reads inputs and uniforms from f and
// writes its results with f.Set.
type Kernel func(f *Fragment)

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Kernel)
)

// RegisterKernel registers the kernel evaluating the fragment entry point
// named entry. A later registration replaces an earlier one.
func RegisterKernel(entry string, k Kernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[entry] = k
}

// Kernels returns the registered entry point names, sorted.
func Kernels() []string {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupKernel(entry string) (Kernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := kernels[entry]
	return k, ok
}

// Fragment is the state of one kernel invocation.
type Fragment struct {
	// X and Y are the integer coordinates of the texel being computed, as
	// @builtin(position).xy truncated.
	X, Y int
	// U and V are the interpolated texture coordinates of the texel centre.
	U, V float32
	// Width and Height are the render target size.
	Width, Height int

	// Depth is the fragment depth, 0 for the full-screen quad.
	Depth float32

	inputs   []*texture
	uniforms map[string][]float32
	outputs  [][4]float32
	discard  bool
}

// NumInputs returns the number of bound textures.
func (f *Fragment) NumInputs() int { return len(f.inputs) }

// NumOutputs returns the number of fragment outputs.
func (f *Fragment) NumOutputs() int { return len(f.outputs) }

// Size returns the size of input i.
func (f *Fragment) Size(i int) (width, height int) {
	d := f.inputs[i].desc
	return d.Width, d.Height
}

// Sample samples input i at the fragment texture coordinates, like
// textureSample.
func (f *Fragment) Sample(i int) [4]float32 {
	return f.SampleAt(i, f.U, f.V)
}

// SampleAt samples input i at (u, v) with the filtering and wrapping of
// its format.Descriptor.
func (f *Fragment) SampleAt(i int, u, v float32) [4]float32 {
	t := f.inputs[i]
	minify := t.desc.Width > f.Width || t.desc.Height > f.Height
	return t.sample(u, v, minify)
}

// Load reads texel (x, y) of input i, like textureLoad. Coordinates are
// clamped to the texture.
func (f *Fragment) Load(i, x, y int) [4]float32 {
	return f.inputs[i].load(x, y)
}

// Uniform returns the value of a uniform, or nil when it was never set.
func (f *Fragment) Uniform(name string) []float32 {
	return f.uniforms[name]
}

// Float returns the first component of a uniform, or 0.
func (f *Fragment) Float(name string) float32 {
	if v := f.uniforms[name]; len(v) > 0 {
		return v[0]
	}
	return 0
}

// Vec4 returns the first four components of a uniform. Missing components
// are 0.
func (f *Fragment) Vec4(name string) [4]float32 {
	var out [4]float32
	copy(out[:], f.uniforms[name])
	return out
}

// Set writes fragment output i. Outputs that are never set are zero.
func (f *Fragment) Set(i int, c [4]float32) {
	f.outputs[i] = c
}

// Discard drops the fragment. No output is written.
func (f *Fragment) Discard() { f.discard = true }

func (f *Fragment) reset(x, y int) {
	f.X, f.Y = x, y
	f.U = (float32(x) + 0.5) / float32(f.Width)
	f.V = (float32(y) + 0.5) / float32(f.Height)
	f.Depth = 0
	f.discard = false
	clear(f.outputs)
}
