package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"time"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/layout"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
	"github.com/ronan-kerviche/glip-lib-sub003/stream"
)

// Filter is the runtime instance of a FilterLayout inside a Pipeline. It owns
// its program and a handle on its geometry. Its render targets belong to the
// buffer cells of the pipeline.
type Filter struct {
	ctx    *Context
	layout *layout.FilterLayout
	name   string
	path   string // relative to the pipeline
	label  string // pipeline name first

	program  backend.ProgramID
	geometry *geometry.Handle[backend.GeometryID]

	// inputs are linked to their sources; outputs are bound to the target
	// cell textures.
	inputs  []stream.Socket
	outputs []stream.Socket

	uniforms map[string][]float32
	clear    bool

	runs   int
	broken error
}

func newFilter(ctx *Context, fl *layout.FilterLayout, name, path, label string) (*Filter, error) {
	limits := ctx.device.Limits()
	if n := fl.NumInputPorts(); n > int(limits.MaxSampledTexturesPerShaderStage) {
		return nil, fmt.Errorf("%w: %d inputs, the device has %d texture units",
			ErrTooManyPorts, n, limits.MaxSampledTexturesPerShaderStage)
	}
	if n := fl.NumOutputPorts(); n > int(limits.MaxColorAttachments) {
		return nil, fmt.Errorf("%w: %d outputs, the device has %d render targets",
			ErrTooManyPorts, n, limits.MaxColorAttachments)
	}

	f := &Filter{
		ctx:      ctx,
		layout:   fl,
		name:     name,
		path:     path,
		label:    label,
		uniforms: make(map[string][]float32),
		clear:    fl.Clearing(),
	}

	desc := &backend.ProgramDescriptor{
		Label:    label,
		Vertex:   fl.Vertex(),
		Fragment: fl.Fragment(),
		Inputs:   fl.InputVariables(),
		Outputs:  fl.OutputVariables(),
		Target:   fl.OutputFormat(),
		Model:    fl.Geometry(),
	}
	if b, ok := fl.Blending(); ok {
		desc.Blend = b.State()
	}
	if c, ok := fl.DepthTest(); ok {
		desc.DepthCompare = c
	}

	var err error
	if f.program, err = ctx.device.CreateProgram(desc); err != nil {
		return nil, &backend.PhaseError{Phase: backend.PhaseInit, Resource: "program", Err: err}
	}
	if f.geometry, err = ctx.geometries.Acquire(fl.Geometry()); err != nil {
		_ = f.release()
		return nil, &backend.PhaseError{Phase: backend.PhaseInit, Resource: "geometry", Err: err}
	}

	for i, port := range fl.InputPortNames() {
		s, err := ctx.sockets.Query(layout.JoinPath(label, layout.ExtendedPortName(port, i)))
		if err != nil {
			_ = f.release()
			return nil, err
		}
		f.inputs = append(f.inputs, s)
	}
	// Output sockets stay free until the first cell is bound.
	for i, port := range fl.OutputPortNames() {
		s, err := ctx.sockets.Query(layout.JoinPath(label, layout.ExtendedPortName(port, i)))
		if err != nil {
			_ = f.release()
			return nil, err
		}
		f.outputs = append(f.outputs, s)
	}
	return f, nil
}

// Name returns the instance name of the filter.
func (f *Filter) Name() string { return f.name }

// Path returns the path of the filter relative to its pipeline.
func (f *Filter) Path() string { return f.path }

// Layout returns the layout the filter was built from. It must not be
// modified.
func (f *Filter) Layout() *layout.FilterLayout { return f.layout }

// IsBroken reports whether the first run of the filter failed.
func (f *Filter) IsBroken() bool { return f.broken != nil }

// Err returns the error that broke the filter, or nil.
func (f *Filter) Err() error { return f.broken }

// WasRun reports whether the filter has drawn at least once.
func (f *Filter) WasRun() bool { return f.runs > 0 }

// Runs returns the number of successful draws.
func (f *Filter) Runs() int { return f.runs }

// SetClearing overrides the clearing setting of the layout for this
// instance.
func (f *Filter) SetClearing(enabled bool) { f.clear = enabled }

// uniform looks name up in the fragment stage, then in the vertex stage.
func (f *Filter) uniform(name string) (shader.Uniform, bool) {
	if u, ok := f.layout.Fragment().Uniform(name); ok {
		return u, true
	}
	return f.layout.Vertex().Uniform(name)
}

// SetUniform sets the value of a uniform for the next runs. Matrices are
// given column by column.
func (f *Filter) SetUniform(name string, values ...float32) error {
	u, ok := f.uniform(name)
	if !ok {
		return &FilterError{Filter: f.label, Err: fmt.Errorf("%w: %q, have %v", ErrUnknownUniform, name, f.layout.UniformNames())}
	}
	if len(values) != u.Components() {
		return &FilterError{Filter: f.label, Err: fmt.Errorf("%w: uniform %q takes %d values, got %d", ErrArgumentCount, name, u.Components(), len(values))}
	}
	f.uniforms[name] = slices.Clone(values)
	return nil
}

// Uniform returns the value last set for a uniform.
func (f *Filter) Uniform(name string) ([]float32, bool) {
	v, ok := f.uniforms[name]
	return slices.Clone(v), ok
}

// run resolves the filter sockets and draws. A draw error on the first run
// breaks the filter.
func (f *Filter) run() error {
	if f.broken != nil {
		return &FilterError{Filter: f.label, Err: fmt.Errorf("%w: %w", ErrFilterBroken, f.broken)}
	}

	pass := &backend.DrawPass{
		Program:  f.program,
		Geometry: f.geometry.ID(),
		Inputs:   make([]backend.TextureID, len(f.inputs)),
		Outputs:  make([]backend.TextureID, len(f.outputs)),
		Uniforms: f.uniforms,
		Clear:    f.clear,
	}
	for i, s := range f.inputs {
		tex, err := f.ctx.sockets.Resolve(s)
		if err != nil {
			return &FilterError{Filter: f.label, Err: err}
		}
		pass.Inputs[i] = tex
	}
	for i, s := range f.outputs {
		tex, err := f.ctx.sockets.Resolve(s)
		if err != nil {
			return &FilterError{Filter: f.label, Err: err}
		}
		if slices.Contains(pass.Inputs, tex) {
			return &FilterError{Filter: f.label, Err: fmt.Errorf("%w: output %d is also an input", ErrFeedbackHazard, i)}
		}
		pass.Outputs[i] = tex
	}

	start := time.Now()
	err := f.ctx.device.Draw(pass)
	f.ctx.metrics.ObserveDraw(f.label, time.Since(start), err)
	if err == nil {
		f.runs++
		glip.Logger().Debug("pipeline: draw", "filter", f.label, "inputs", pass.Inputs, "outputs", pass.Outputs)
		return nil
	}

	err = &backend.PhaseError{Phase: backend.PhaseDraw, Resource: "program", Err: err}
	if f.runs == 0 {
		f.broken = err
		f.ctx.metrics.FilterBroken(f.label)
		glip.Logger().Warn("pipeline: filter broken", "filter", f.label, "err", err)
	}
	return &FilterError{Filter: f.label, Err: err}
}

// release frees the program, the geometry handle and the sockets.
func (f *Filter) release() error {
	var errs []error
	if f.program != backend.InvalidID {
		f.ctx.device.DestroyProgram(f.program)
		f.program = backend.InvalidID
	}
	if f.geometry != nil {
		if err := f.geometry.Release(); err != nil {
			errs = append(errs, &backend.PhaseError{Phase: backend.PhaseTeardown, Resource: "geometry", Err: err})
		}
		f.geometry = nil
	}
	for _, s := range slices.Concat(f.inputs, f.outputs) {
		if err := f.ctx.sockets.Release(s); err != nil {
			errs = append(errs, err)
		}
	}
	f.inputs, f.outputs = nil, nil
	if f.broken != nil {
		f.ctx.metrics.BrokenFilterReleased()
	}
	return errors.Join(errs...)
}
