package layout

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
	"github.com/ronan-kerviche/glip-lib-sub003/shader/library"
)

const heightVertex = `
@group(0) @binding(0) var inTex: texture_2d<f32>;
@group(0) @binding(4) var heightMap: texture_2d<f32>;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) texCoord: vec2<f32>,
}

@vertex
fn vs_height(@location(0) pos: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    let h: f32 = textureLoad(heightMap, vec2<i32>(0, 0), 0).r;
    let base: f32 = textureLoad(inTex, vec2<i32>(0, 0), 0).r;
    var result: VertexOutput;
    result.position = vec4<f32>(pos.x, pos.y, h + base, 1.0);
    result.texCoord = uv;
    return result;
}
`

func rgba8(w, h int) format.Descriptor {
	return format.New(w, h, format.RGBA, format.Uint8)
}

func TestNewFilterLayout_Ports(t *testing.T) {
	f, err := NewFilterLayout("Identity", rgba8(4, 4), library.MustLoad(library.Identity))
	if err != nil {
		t.Fatalf("NewFilterLayout() error = %v", err)
	}

	if got := f.InputPortNames(); !slices.Equal(got, []string{"inTex"}) {
		t.Errorf("InputPortNames() = %v, want [inTex]", got)
	}
	if got := f.OutputPortNames(); !slices.Equal(got, []string{"outTex"}) {
		t.Errorf("OutputPortNames() = %v, want [outTex]", got)
	}
	out, _ := f.OutputPort(0)
	if out.Format == nil || !out.Format.Equal(rgba8(4, 4)) {
		t.Errorf("output port format = %v, want %v", out.Format, rgba8(4, 4))
	}
	in, _ := f.InputPort(0)
	if in.Format != nil {
		t.Errorf("input port format = %v, want nil", in.Format)
	}
	if f.Kind() != KindFilter {
		t.Errorf("Kind() = %v, want Filter", f.Kind())
	}
}

func TestNewFilterLayout_Defaults(t *testing.T) {
	f, err := NewFilterLayout("Identity", rgba8(4, 4), library.MustLoad(library.Identity))
	if err != nil {
		t.Fatalf("NewFilterLayout() error = %v", err)
	}
	if !f.Clearing() {
		t.Error("Clearing() = false, want true by default")
	}
	if _, ok := f.Blending(); ok {
		t.Error("blending enabled by default")
	}
	if _, ok := f.DepthTest(); ok {
		t.Error("depth test enabled by default")
	}
	if !f.IsStandardVertex() {
		t.Error("IsStandardVertex() = false")
	}
	if !f.IsStandardGeometry() {
		t.Error("IsStandardGeometry() = false")
	}
}

func TestNewFilterLayout_Options(t *testing.T) {
	grid, _ := geometry.PointsGrid2D(8, 8)
	f, err := NewFilterLayout("Points", rgba8(8, 8), library.MustLoad(library.Identity),
		WithGeometry(grid),
		WithClearing(false),
		WithBlending(gputypes.BlendFactorOne, gputypes.BlendFactorOne, gputypes.BlendOperationAdd),
		WithDepthTest(gputypes.CompareFunctionLess),
	)
	if err != nil {
		t.Fatalf("NewFilterLayout() error = %v", err)
	}
	if f.Clearing() {
		t.Error("Clearing() = true, want false")
	}
	b, ok := f.Blending()
	if !ok || b.Src != gputypes.BlendFactorOne || b.Operation != gputypes.BlendOperationAdd {
		t.Errorf("Blending() = %+v, %v", b, ok)
	}
	if st := b.State(); st.Color != st.Alpha || st.Color.DstFactor != gputypes.BlendFactorOne {
		t.Errorf("State() = %+v", st)
	}
	if cmp, ok := f.DepthTest(); !ok || cmp != gputypes.CompareFunctionLess {
		t.Errorf("DepthTest() = %v, %v, want Less, true", cmp, ok)
	}
	if f.IsStandardGeometry() {
		t.Error("IsStandardGeometry() = true for a points grid")
	}

	// The layout keeps its own copy of the model.
	grid.Vertices[0] = 42
	if f.Geometry().Vertices[0] == 42 {
		t.Error("layout shares the caller's model")
	}

	f.DisableBlending()
	f.DisableDepthTest()
	f.EnableClearing()
	if _, ok := f.Blending(); ok {
		t.Error("blending still enabled")
	}
	if _, ok := f.DepthTest(); ok {
		t.Error("depth test still enabled")
	}
	if !f.Clearing() {
		t.Error("clearing still disabled")
	}
}

func TestNewFilterLayout_VertexInputs(t *testing.T) {
	vertex := shader.MustParse("height", heightVertex)
	f, err := NewFilterLayout("Relief", rgba8(4, 4), library.MustLoad(library.Identity), WithVertexSource(vertex))
	if err != nil {
		t.Fatalf("NewFilterLayout() error = %v", err)
	}
	if got, want := f.InputPortNames(), []string{"inTex", "heightMap"}; !slices.Equal(got, want) {
		t.Errorf("InputPortNames() = %v, want %v", got, want)
	}
	if f.IsStandardVertex() {
		t.Error("IsStandardVertex() = true with a custom vertex stage")
	}
}

func TestNewFilterLayout_Errors(t *testing.T) {
	identity := library.MustLoad(library.Identity)

	tests := []struct {
		name     string
		typeName string
		output   format.Descriptor
		fragment *shader.Source
		opts     []FilterOption
		want     error
	}{
		{"invalid name", "a::b", rgba8(4, 4), identity, nil, ErrInvalidName},
		{"nil fragment", "F", rgba8(4, 4), nil, nil, shader.ErrIntrospection},
		{"vertex as fragment", "F", rgba8(4, 4), shader.StandardVertex(), nil, shader.ErrIntrospection},
		{"fragment as vertex", "F", rgba8(4, 4), identity, []FilterOption{WithVertexSource(identity)}, shader.ErrIntrospection},
		{"zero size", "F", rgba8(0, 4), identity, nil, format.ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilterLayout(tt.typeName, tt.output, tt.fragment, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewFilterLayout() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFilterLayout_UniformNames(t *testing.T) {
	f, err := NewFilterLayout("Matrix", rgba8(4, 4), library.MustLoad(library.ColorMatrix))
	if err != nil {
		t.Fatalf("NewFilterLayout() error = %v", err)
	}
	want := []string{"red", "green", "blue", "alpha", "bias"}
	if got := f.UniformNames(); !slices.Equal(got, want) {
		t.Errorf("UniformNames() = %v, want %v", got, want)
	}
}

func TestFilterLayout_RenameKeepsVariables(t *testing.T) {
	f, _ := NewFilterLayout("Identity", rgba8(4, 4), library.MustLoad(library.Identity))
	if err := f.RenameInputPort(0, "source"); err != nil {
		t.Fatalf("RenameInputPort() error = %v", err)
	}
	if got := f.InputVariables(); !slices.Equal(got, []string{"inTex"}) {
		t.Errorf("InputVariables() = %v, want [inTex]", got)
	}
	c := f.Clone()
	c.RenameInputPort(0, "other")
	if name, _ := f.InputPortName(0); name != "source" {
		t.Errorf("clone rename leaked: InputPortName(0) = %q", name)
	}
}
