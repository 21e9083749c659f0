package layout

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// Blending is the blend equation applied to color and alpha alike.
type Blending struct {
	Src       gputypes.BlendFactor
	Dst       gputypes.BlendFactor
	Operation gputypes.BlendOperation
}

// State returns the equivalent GPU blend state.
func (b Blending) State() *gputypes.BlendState {
	c := gputypes.BlendComponent{SrcFactor: b.Src, DstFactor: b.Dst, Operation: b.Operation}
	return &gputypes.BlendState{Color: c, Alpha: c}
}

// FilterLayout describes one shader pass: the WGSL stages, the output
// format, the geometry drawn and the render settings.
//
// Input ports are the texture variables of the fragment stage followed by
// those of the vertex stage not already present. Output ports are the
// fragment outputs in location order; they all carry the output format.
type FilterLayout struct {
	ComponentLayout

	output   format.Descriptor
	fragment *shader.Source
	vertex   *shader.Source
	model    *geometry.Model

	// inputVars and outputVars are the shader variables behind each port,
	// in port order. They survive port renames.
	inputVars  []string
	outputVars []string

	clearing bool
	blending *Blending
	depth    *gputypes.CompareFunction
}

// FilterOption configures a FilterLayout at construction.
type FilterOption func(*FilterLayout)

// WithVertexSource sets the vertex stage. The default is
// [shader.StandardVertex].
func WithVertexSource(v *shader.Source) FilterOption {
	return func(f *FilterLayout) { f.vertex = v }
}

// WithGeometry sets the model drawn by the filter. The default is
// [geometry.StandardQuad].
func WithGeometry(m *geometry.Model) FilterOption {
	return func(f *FilterLayout) { f.model = m }
}

// WithBlending enables blending with the given factors and operation.
func WithBlending(src, dst gputypes.BlendFactor, op gputypes.BlendOperation) FilterOption {
	return func(f *FilterLayout) { f.EnableBlending(src, dst, op) }
}

// WithDepthTest enables depth testing with the given comparison.
func WithDepthTest(compare gputypes.CompareFunction) FilterOption {
	return func(f *FilterLayout) { f.EnableDepthTest(compare) }
}

// WithClearing sets whether the target is cleared before each run.
// Clearing is enabled by default.
func WithClearing(enabled bool) FilterOption {
	return func(f *FilterLayout) { f.clearing = enabled }
}

// NewFilterLayout derives a filter layout from a fragment source.
func NewFilterLayout(typeName string, output format.Descriptor, fragment *shader.Source, opts ...FilterOption) (*FilterLayout, error) {
	if err := ValidateName(typeName); err != nil {
		return nil, err
	}
	if err := output.Validate(); err != nil {
		return nil, fmt.Errorf("layout: filter %s: %w", typeName, err)
	}
	if fragment == nil || !fragment.HasStage(shader.StageFragment) {
		return nil, fmt.Errorf("%w: filter %s: no fragment entry point", shader.ErrIntrospection, typeName)
	}

	f := &FilterLayout{
		ComponentLayout: ComponentLayout{typeName: typeName},
		output:          output,
		fragment:        fragment,
		clearing:        true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.vertex == nil {
		f.vertex = shader.StandardVertex()
	}
	if !f.vertex.HasStage(shader.StageVertex) {
		return nil, fmt.Errorf("%w: filter %s: %s has no vertex entry point", shader.ErrIntrospection, typeName, f.vertex.Label())
	}
	if f.model == nil {
		f.model = geometry.StandardQuad()
	} else {
		if err := f.model.Validate(); err != nil {
			return nil, fmt.Errorf("layout: filter %s: %w", typeName, err)
		}
		f.model = f.model.Clone()
	}

	outputs := fragment.OutputNames()
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: filter %s: fragment stage has no outputs", shader.ErrIntrospection, typeName)
	}

	f.inputVars = fragment.InputNames()
	for _, name := range f.vertex.InputNames() {
		if !slices.Contains(f.inputVars, name) {
			f.inputVars = append(f.inputVars, name)
		}
	}
	for _, name := range f.inputVars {
		if _, err := f.addPort(Input, name, nil); err != nil {
			return nil, err
		}
	}
	for _, name := range outputs {
		desc := output
		if _, err := f.addPort(Output, name, &desc); err != nil {
			return nil, err
		}
	}
	f.outputVars = outputs
	return f, nil
}

// Kind returns KindFilter.
func (f *FilterLayout) Kind() Kind { return KindFilter }

// OutputFormat returns the format of every output.
func (f *FilterLayout) OutputFormat() format.Descriptor { return f.output }

// Fragment returns the fragment source.
func (f *FilterLayout) Fragment() *shader.Source { return f.fragment }

// Vertex returns the vertex source.
func (f *FilterLayout) Vertex() *shader.Source { return f.vertex }

// Geometry returns the model drawn by the filter. It must not be modified.
func (f *FilterLayout) Geometry() *geometry.Model { return f.model }

// IsStandardVertex reports whether the filter uses the standard vertex stage.
func (f *FilterLayout) IsStandardVertex() bool { return f.vertex.IsStandardVertex() }

// IsStandardGeometry reports whether the filter draws the standard quad.
func (f *FilterLayout) IsStandardGeometry() bool { return f.model.IsStandard() }

// InputVariables returns the shader texture variable behind each input port.
func (f *FilterLayout) InputVariables() []string { return slices.Clone(f.inputVars) }

// OutputVariables returns the fragment output behind each output port.
func (f *FilterLayout) OutputVariables() []string { return slices.Clone(f.outputVars) }

// UniformNames returns the settable uniforms of the fragment stage, then
// those of the vertex stage not already listed.
func (f *FilterLayout) UniformNames() []string {
	var names []string
	for _, src := range []*shader.Source{f.fragment, f.vertex} {
		for _, u := range src.Uniforms() {
			if !slices.Contains(names, u.Name) {
				names = append(names, u.Name)
			}
		}
	}
	return names
}

// Clearing reports whether the target is cleared before each run.
func (f *FilterLayout) Clearing() bool { return f.clearing }

// EnableClearing makes the filter clear its target before each run.
func (f *FilterLayout) EnableClearing() { f.clearing = true }

// DisableClearing makes the filter draw over the previous target content.
func (f *FilterLayout) DisableClearing() { f.clearing = false }

// Blending returns the blend equation and whether blending is enabled.
func (f *FilterLayout) Blending() (Blending, bool) {
	if f.blending == nil {
		return Blending{}, false
	}
	return *f.blending, true
}

// EnableBlending enables blending.
func (f *FilterLayout) EnableBlending(src, dst gputypes.BlendFactor, op gputypes.BlendOperation) {
	f.blending = &Blending{Src: src, Dst: dst, Operation: op}
}

// DisableBlending disables blending.
func (f *FilterLayout) DisableBlending() { f.blending = nil }

// DepthTest returns the depth comparison and whether depth testing is
// enabled.
func (f *FilterLayout) DepthTest() (gputypes.CompareFunction, bool) {
	if f.depth == nil {
		return gputypes.CompareFunctionUndefined, false
	}
	return *f.depth, true
}

// EnableDepthTest enables depth testing.
func (f *FilterLayout) EnableDepthTest(compare gputypes.CompareFunction) {
	f.depth = &compare
}

// DisableDepthTest disables depth testing.
func (f *FilterLayout) DisableDepthTest() { f.depth = nil }

// Clone returns a deep copy of the layout. Shader sources are immutable and
// shared.
func (f *FilterLayout) Clone() *FilterLayout {
	c := *f
	c.ComponentLayout = f.ComponentLayout.clone()
	c.model = f.model.Clone()
	c.inputVars = slices.Clone(f.inputVars)
	c.outputVars = slices.Clone(f.outputVars)
	if f.blending != nil {
		b := *f.blending
		c.blending = &b
	}
	if f.depth != nil {
		d := *f.depth
		c.depth = &d
	}
	return &c
}

func (f *FilterLayout) cloneComponent() Component { return f.Clone() }
