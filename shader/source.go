// Package shader parses WGSL sources and exposes the variables a pipeline
// needs to wire them: sampled textures (inputs), fragment outputs, samplers,
// uniforms and entry points.
//
// Parsing and lowering are done by github.com/gogpu/naga. Introspection reads
// the lowered IR module:
//   - inputs are the texture globals, in declaration order;
//   - outputs are the fragment result members bound to a location, sorted by
//     location. A fragment result that is not a struct is named after its
//     entry point;
//   - uniforms are the members of var<uniform> blocks (or the variable itself
//     when it is not a struct).
package shader

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrIntrospection is returned when a source cannot be parsed or lacks the
// entry point it is used for.
var ErrIntrospection = errors.New("shader: introspection failed")

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota
	// StageFragment is the fragment stage.
	StageFragment
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// EntryPoint is a shader entry point.
type EntryPoint struct {
	Name  string
	Stage Stage
}

// Binding is a resource variable bound with @group/@binding.
type Binding struct {
	Name    string
	Group   uint32
	Binding uint32

	// SampleType is set for textures.
	SampleType gputypes.TextureSampleType
	// Comparison is set for comparison samplers.
	Comparison bool
}

// Output is a fragment output bound to a color attachment location.
type Output struct {
	Name     string
	Location uint32
}

// ScalarKind is the scalar type of a uniform.
type ScalarKind uint8

const (
	KindFloat ScalarKind = iota
	KindSint
	KindUint
)

// Uniform is one settable uniform value inside a uniform block.
type Uniform struct {
	// Name is the member name, or the variable name for a non-struct block.
	Name string
	// Block is the name of the var<uniform> variable holding the value.
	Block   string
	Group   uint32
	Binding uint32

	// Offset is the byte offset inside the block.
	Offset uint32
	Kind   ScalarKind

	// Columns is 1 for scalars and vectors. Rows is the component count of
	// a column.
	Columns int
	Rows    int
	// ColumnStride is the distance in bytes between matrix columns.
	ColumnStride uint32

	// BlockSize is the size of the whole block in bytes, 16-byte aligned.
	BlockSize uint32
}

// Components returns the number of scalar components.
func (u Uniform) Components() int {
	return u.Columns * u.Rows
}

// Source is a parsed WGSL source. A Source is immutable and safe to share.
type Source struct {
	label    string
	code     string
	module   *ir.Module
	entries  []EntryPoint
	textures []Binding
	samplers []Binding
	uniforms []Uniform
	outputs  []Output
}

// Parse parses and lowers WGSL code. The label names the source in errors.
// All failures wrap [ErrIntrospection].
func Parse(label, code string) (*Source, error) {
	ast, err := naga.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIntrospection, label, err)
	}
	module, err := naga.LowerWithSource(ast, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIntrospection, label, err)
	}
	s := &Source{label: label, code: code, module: module}
	if err := s.introspect(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIntrospection, label, err)
	}
	return s, nil
}

// MustParse is like Parse but panics on error. It is meant for sources
// embedded in the program.
func MustParse(label, code string) *Source {
	s, err := Parse(label, code)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Source) introspect() error {
	m := s.module
	for i := range m.GlobalVariables {
		gv := &m.GlobalVariables[i]
		if int(gv.Type) >= len(m.Types) {
			return fmt.Errorf("global %q has an invalid type", gv.Name)
		}
		inner := m.Types[gv.Type].Inner
		switch gv.Space {
		case ir.SpaceHandle:
			if gv.Binding == nil {
				return fmt.Errorf("resource %q has no binding", gv.Name)
			}
			b := Binding{Name: gv.Name, Group: gv.Binding.Group, Binding: gv.Binding.Binding}
			switch t := inner.(type) {
			case ir.ImageType:
				b.SampleType = sampleType(t)
				s.textures = append(s.textures, b)
			case ir.SamplerType:
				b.Comparison = t.Comparison
				s.samplers = append(s.samplers, b)
			}
		case ir.SpaceUniform:
			if gv.Binding == nil {
				return fmt.Errorf("uniform %q has no binding", gv.Name)
			}
			s.uniforms = append(s.uniforms, uniformsOf(m, gv)...)
		}
	}

	for _, ep := range m.EntryPoints {
		switch ep.Stage {
		case ir.StageVertex:
			s.entries = append(s.entries, EntryPoint{Name: ep.Name, Stage: StageVertex})
		case ir.StageFragment:
			s.entries = append(s.entries, EntryPoint{Name: ep.Name, Stage: StageFragment})
			if s.outputs == nil {
				s.outputs = outputsOf(m, &ep)
			}
		}
	}

	seen := make(map[string]bool)
	for _, o := range s.outputs {
		if seen[o.Name] {
			return fmt.Errorf("duplicate fragment output %q", o.Name)
		}
		seen[o.Name] = true
	}
	return nil
}

func sampleType(t ir.ImageType) gputypes.TextureSampleType {
	if t.Class == ir.ImageClassDepth {
		return gputypes.TextureSampleTypeDepth
	}
	switch t.SampledKind {
	case ir.ScalarSint:
		return gputypes.TextureSampleTypeSint
	case ir.ScalarUint:
		return gputypes.TextureSampleTypeUint
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

func outputsOf(m *ir.Module, ep *ir.EntryPoint) []Output {
	res := ep.Function.Result
	if res == nil {
		return []Output{}
	}
	if res.Binding != nil {
		if loc, ok := (*res.Binding).(ir.LocationBinding); ok {
			return []Output{{Name: ep.Name, Location: loc.Location}}
		}
		return []Output{}
	}
	st, ok := m.Types[res.Type].Inner.(ir.StructType)
	if !ok {
		return []Output{}
	}
	outs := make([]Output, 0, len(st.Members))
	for _, mem := range st.Members {
		if mem.Binding == nil {
			continue
		}
		if loc, ok := (*mem.Binding).(ir.LocationBinding); ok {
			outs = append(outs, Output{Name: mem.Name, Location: loc.Location})
		}
	}
	slices.SortStableFunc(outs, func(a, b Output) int {
		return int(a.Location) - int(b.Location)
	})
	return outs
}

func uniformsOf(m *ir.Module, gv *ir.GlobalVariable) []Uniform {
	var out []Uniform
	base := Uniform{Block: gv.Name, Group: gv.Binding.Group, Binding: gv.Binding.Binding}

	if st, ok := m.Types[gv.Type].Inner.(ir.StructType); ok {
		base.BlockSize = align16(st.Span)
		for _, mem := range st.Members {
			u := base
			u.Name = mem.Name
			u.Offset = mem.Offset
			if !shapeOf(m, mem.Type, &u) {
				continue
			}
			out = append(out, u)
		}
		return out
	}

	u := base
	u.Name = gv.Name
	if !shapeOf(m, gv.Type, &u) {
		return nil
	}
	size := u.ColumnStride * uint32(u.Columns)
	if u.Columns == 1 {
		size = 4 * uint32(u.Rows)
	}
	u.BlockSize = align16(size)
	return append(out, u)
}

// shapeOf fills the kind and shape of a numeric type. Arrays, nested structs
// and booleans are not settable and report false.
func shapeOf(m *ir.Module, h ir.TypeHandle, u *Uniform) bool {
	if int(h) >= len(m.Types) {
		return false
	}
	var scalar ir.ScalarType
	switch t := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		scalar, u.Columns, u.Rows = t, 1, 1
	case ir.VectorType:
		scalar, u.Columns, u.Rows = t.Scalar, 1, int(t.Size)
	case ir.MatrixType:
		scalar, u.Columns, u.Rows = t.Scalar, int(t.Columns), int(t.Rows)
	default:
		return false
	}
	if scalar.Width != 4 {
		return false
	}
	switch scalar.Kind {
	case ir.ScalarFloat:
		u.Kind = KindFloat
	case ir.ScalarSint:
		u.Kind = KindSint
	case ir.ScalarUint:
		u.Kind = KindUint
	default:
		return false
	}
	u.ColumnStride = 16
	if u.Rows == 2 {
		u.ColumnStride = 8
	}
	return true
}

func align16(n uint32) uint32 {
	if n < 16 {
		return 16
	}
	return (n + 15) &^ 15
}

// Label returns the label given to Parse.
func (s *Source) Label() string { return s.label }

// Code returns the WGSL code.
func (s *Source) Code() string { return s.code }

// Module returns the lowered IR module. It must not be modified.
func (s *Source) Module() *ir.Module { return s.module }

// EntryPoints returns the entry points in declaration order.
func (s *Source) EntryPoints() []EntryPoint { return slices.Clone(s.entries) }

// EntryPoint returns the first entry point of the given stage.
func (s *Source) EntryPoint(stage Stage) (EntryPoint, bool) {
	for _, e := range s.entries {
		if e.Stage == stage {
			return e, true
		}
	}
	return EntryPoint{}, false
}

// HasStage reports whether the source has an entry point for stage.
func (s *Source) HasStage(stage Stage) bool {
	_, ok := s.EntryPoint(stage)
	return ok
}

// InputNames returns the texture variable names in declaration order.
func (s *Source) InputNames() []string {
	names := make([]string, len(s.textures))
	for i, t := range s.textures {
		names[i] = t.Name
	}
	return names
}

// OutputNames returns the fragment output names in location order.
func (s *Source) OutputNames() []string {
	names := make([]string, len(s.outputs))
	for i, o := range s.outputs {
		names[i] = o.Name
	}
	return names
}

// Textures returns the texture bindings in declaration order.
func (s *Source) Textures() []Binding { return slices.Clone(s.textures) }

// Samplers returns the sampler bindings in declaration order.
func (s *Source) Samplers() []Binding { return slices.Clone(s.samplers) }

// Outputs returns the fragment outputs in location order.
func (s *Source) Outputs() []Output { return slices.Clone(s.outputs) }

// Uniforms returns the settable uniforms in declaration order.
func (s *Source) Uniforms() []Uniform { return slices.Clone(s.uniforms) }

// Uniform returns the uniform with the given name.
func (s *Source) Uniform(name string) (Uniform, bool) {
	for _, u := range s.uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return Uniform{}, false
}

// SamplerFor returns the sampler paired with a texture: the sampler named
// after the texture with a "Sampler" suffix, or the only sampler of the
// source.
func (s *Source) SamplerFor(texture string) (Binding, bool) {
	for _, b := range s.samplers {
		if b.Name == texture+"Sampler" {
			return b, true
		}
	}
	if len(s.samplers) == 1 {
		return s.samplers[0], true
	}
	return Binding{}, false
}

// Validate runs the naga IR validator and returns the issues it reports.
// A nil result means the module passed.
func (s *Source) Validate() []error {
	issues, err := naga.Validate(s.module)
	if err != nil {
		return []error{err}
	}
	if len(issues) == 0 {
		return nil
	}
	errs := make([]error, len(issues))
	for i, v := range issues {
		errs[i] = v
	}
	return errs
}

// String returns the label and the introspected interface.
func (s *Source) String() string {
	return fmt.Sprintf("%s(in: %s; out: %s)", s.label,
		strings.Join(s.InputNames(), ", "), strings.Join(s.OutputNames(), ", "))
}
