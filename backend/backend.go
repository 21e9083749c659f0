package backend

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// TextureID is an opaque handle to a device texture.
type TextureID uint64

// GeometryID is an opaque handle to uploaded vertex and index data.
type GeometryID uint64

// ProgramID is an opaque handle to a compiled render program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Device is the GPU capability set used by the graph engine.
//
// Devices are not required to be safe for concurrent use. The pipeline
// package calls them from one goroutine at a time.
type Device interface {
	// Info describes the adapter behind the device.
	Info() gpucontext.AdapterInfo

	// Limits returns the device limits. The pipeline checks filter port
	// counts against MaxSampledTexturesPerShaderStage and
	// MaxColorAttachments.
	Limits() gputypes.Limits

	// CreateTexture allocates a texture. Its content is zero.
	CreateTexture(desc format.Descriptor) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture replaces the texture content. data is packed as described
	// by the texture's format.Descriptor.
	WriteTexture(id TextureID, data []byte) error

	// ReadTexture returns the packed texture content.
	ReadTexture(id TextureID) ([]byte, error)

	// TextureFormat returns the format the texture was created with.
	TextureFormat(id TextureID) (format.Descriptor, error)

	// CreateGeometry uploads a model.
	CreateGeometry(m *geometry.Model) (GeometryID, error)

	// DestroyGeometry releases a geometry.
	DestroyGeometry(id GeometryID)

	// CreateProgram compiles and links a render program. Failures wrap
	// ErrResourceAllocation.
	CreateProgram(desc *ProgramDescriptor) (ProgramID, error)

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// Draw executes one render pass.
	Draw(pass *DrawPass) error

	// Close releases every resource still held by the device.
	Close() error
}

// ProgramDescriptor describes a render program: the two shader stages, the
// binding of filter ports to shader variables and the fixed-function state.
type ProgramDescriptor struct {
	Label string

	Vertex   *shader.Source
	Fragment *shader.Source

	// Inputs lists the texture variable bound to each input slot of a draw.
	Inputs []string

	// Outputs lists the fragment output written to each output slot. Every
	// output has the Target format.
	Outputs []string
	Target  format.Descriptor

	// Model is the geometry layout the program is drawn with.
	Model *geometry.Model

	// Blend is nil when blending is disabled.
	Blend *gputypes.BlendState

	// DepthCompare is CompareFunctionUndefined when depth testing is
	// disabled.
	DepthCompare gputypes.CompareFunction
}

// DepthTest reports whether the program tests depth.
func (d *ProgramDescriptor) DepthTest() bool {
	return d.DepthCompare != gputypes.CompareFunctionUndefined
}

// DrawPass is one execution of a program.
type DrawPass struct {
	Program  ProgramID
	Geometry GeometryID

	// Inputs holds one texture per program input, in program order.
	Inputs []TextureID

	// Outputs holds one texture per program output. The textures must match
	// the program's target format.
	Outputs []TextureID

	// Uniforms maps uniform names to their values. Integer uniforms are
	// converted from the given values. Missing uniforms keep zero values.
	Uniforms map[string][]float32

	// Clear zeroes the outputs before drawing.
	Clear bool
}
