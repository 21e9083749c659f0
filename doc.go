// Package glip is an image-processing pipeline engine for GPU shader passes.
//
// # Overview
//
// A processing graph is described once as a set of layouts and then
// instantiated any number of times against a GPU device:
//
//   - format: texture shapes (size, channels, element type, sampling)
//   - shader: WGSL sources and their introspected input/output variables
//   - layout: ports, filter layouts (one shader pass) and pipeline layouts
//     (a graph of filters and nested pipelines)
//   - stream: the socket table that resolves connections to textures
//   - pipeline: runtime Filter and Pipeline objects, buffer cells
//   - backend: the device contract, with a CPU reference device
//     (backend/cpu) and a wgpu HAL device (backend/native)
//
// # Quick Start
//
//	dev := cpu.New()
//	ctx, _ := pipeline.NewContext(dev)
//	defer ctx.Close()
//
//	frag, _ := shader.Parse("identity", identityWGSL)
//	pass, _ := layout.NewFilterLayout("Identity", format.New(4, 4, format.RGBA, format.Uint8), frag)
//
//	pl, _ := layout.NewPipelineLayout("Main")
//	pl.AddInputPort("Input")
//	pl.AddOutputPort("Output")
//	pl.Add(pass, "Pass")
//	pl.ConnectToInput("Input", "Pass", "inTex")
//	pl.ConnectToOutput("Pass", "outTex", "Output")
//
//	p, _ := pipeline.New(ctx, pl, "main")
//	_ = p.Process(input)
//	out, _ := p.Output(0)
//	data, _ := ctx.ReadTexture(out)
//
// # Logging
//
// The engine is silent by default. Call [SetLogger] to route diagnostics
// through a [log/slog] logger. Sub-packages read it through [Logger].
package glip

// Version information
const (
	// Version is the current version of the library
	Version = "0.4.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 4

	// VersionPatch is the patch version
	VersionPatch = 0
)
