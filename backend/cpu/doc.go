// Package cpu implements backend.Device on the CPU.
//
// The device does not compile WGSL. A program is bound to a Go [Kernel]
// looked up by the name of its fragment entry point. Each draw runs the
// kernel once per output texel, at the texel centre, with rows spread over
// a worker pool. Fixed-function state follows WebGPU: outputs are cleared
// to transparent black on request, the full-screen quad writes depth 0
// against a depth buffer cleared to 1, and blending uses the WebGPU factors
// and operations with a zero blend constant.
//
// Textures are held as RGBA float32 values. After a draw, every written
// texel is converted to the texture format and back, so values read by a
// later draw carry the precision of the format.
//
// Kernels for the programs of shader/library are registered by this package.
// Other programs need [RegisterKernel] or [WithKernel].
//
// Importing the package registers the "cpu" backend:
//
//	import _ "github.com/ronan-kerviche/glip-lib-sub003/backend/cpu"
//
//	dev, err := backend.Open(backend.Config{Backend: backend.NameCPU})
package cpu
