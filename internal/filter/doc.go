// Package filter holds the reference math of the built-in image programs:
// separable Gaussian kernels and 4x5 color matrices on straight-alpha RGBA
// values in [0, 1].
//
// The CPU device evaluates the library programs with these functions, and
// the CLI builds color matrix uniforms from the presets.
package filter
