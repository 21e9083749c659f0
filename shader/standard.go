package shader

import "sync"

// Standard vertex attribute locations. Geometry meant for the standard vertex
// stage stores 2D positions at location 0 and texture coordinates at
// location 1.
const (
	PositionLocation = 0
	TexCoordLocation = 1
)

// StandardVertexEntry is the entry point name of the standard vertex stage.
const StandardVertexEntry = "vs_standard"

// standardVertexCode passes the quad position through and forwards the
// texture coordinate to the fragment stage at location 0.
const standardVertexCode = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) texCoord: vec2<f32>,
}

@vertex
fn vs_standard(@location(0) pos: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var result: VertexOutput;
    result.position = vec4<f32>(pos.x, pos.y, 0.0, 1.0);
    result.texCoord = uv;
    return result;
}
`

var standardVertex = sync.OnceValue(func() *Source {
	return MustParse("StandardVertex", standardVertexCode)
})

// StandardVertex returns the shared vertex stage used when a filter does not
// provide one.
func StandardVertex() *Source {
	return standardVertex()
}

// IsStandardVertex reports whether s is the shared standard vertex stage.
func (s *Source) IsStandardVertex() bool {
	return s == standardVertex()
}
