package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/layout"
	"github.com/ronan-kerviche/glip-lib-sub003/stream"
)

// Pipeline is the runtime instance of a checked PipelineLayout.
//
// Every pipeline input port, at every nesting level, is a socket. The
// top-level ones are bound by SetInput; nested ones are linked to their
// source. Every filter input and pipeline output is a socket linked to its
// source, and every filter output is a socket bound to the render target of
// the current buffer cell. Process resolves the chains and draws the
// filters in dependency order.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	ctx    *Context
	id     uuid.UUID
	name   string
	layout *layout.PipelineLayout
	root   *level

	// filters is in creation order, which indexes cell textures; order is
	// the execution order.
	filters []*Filter
	order   []*Filter
	byPath  map[string]*Filter

	// producers maps a filter output socket to its filter and port.
	producers map[stream.Socket]outputRef
	sockets   []stream.Socket

	cells    map[int]*cell
	current  int
	nextCell int

	released bool
}

type outputRef struct {
	filter, port int
}

// level is one instantiated PipelineLayout.
type level struct {
	layout   *layout.PipelineLayout
	inputs   []stream.Socket
	outputs  []stream.Socket
	elements []element
}

// element is a filter or a nested level.
type element struct {
	filter *Filter
	sub    *level
}

func (e element) inputs() []stream.Socket {
	if e.filter != nil {
		return e.filter.inputs
	}
	return e.sub.inputs
}

func (e element) outputs() []stream.Socket {
	if e.filter != nil {
		return e.filter.outputs
	}
	return e.sub.outputs
}

// New checks l and instantiates it under the given instance name. An empty
// name selects layout.DefaultName. The pipeline starts with one buffer
// cell, which is the target cell.
func New(ctx *Context, l *layout.PipelineLayout, name string) (*Pipeline, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errors.New("pipeline: nil layout")
	}
	if name == "" {
		name = layout.DefaultName
	}
	if err := layout.ValidateName(name); err != nil {
		return nil, err
	}
	if err := l.Check(); err != nil {
		return nil, err
	}
	if err := ctx.claimName(name); err != nil {
		return nil, err
	}

	p := &Pipeline{
		ctx:       ctx,
		id:        uuid.New(),
		name:      name,
		layout:    l.Clone(),
		byPath:    make(map[string]*Filter),
		producers: make(map[stream.Socket]outputRef),
		cells:     make(map[int]*cell),
	}
	if err := p.instantiate(); err != nil {
		_ = p.Release()
		return nil, fmt.Errorf("pipeline: %s: %w", layout.ExtendedName(name, l.TypeName()), err)
	}
	glip.Logger().Info("pipeline: instantiated",
		"pipeline", p.name, "id", p.id, "type", l.TypeName(), "filters", len(p.filters))
	return p, nil
}

func (p *Pipeline) instantiate() error {
	root, err := p.build(p.layout, "")
	if err != nil {
		return err
	}
	p.root = root
	if p.order, err = flatten(root); err != nil {
		return err
	}
	id, err := p.CreateBuffersCell()
	if err != nil {
		return err
	}
	if err := p.ChangeTargetBuffersCell(id); err != nil {
		return err
	}
	p.ctx.updateSockets()
	return nil
}

func (p *Pipeline) query(description string) (stream.Socket, error) {
	s, err := p.ctx.sockets.Query(description)
	if err != nil {
		return stream.NullSocket, err
	}
	p.sockets = append(p.sockets, s)
	return s, nil
}

// build instantiates pl, whose elements are found under prefix, then
// connects the sockets of its elements.
func (p *Pipeline) build(pl *layout.PipelineLayout, prefix string) (*level, error) {
	lv := &level{layout: pl}
	label := p.name
	if prefix != "" {
		label = layout.JoinPath(p.name, prefix)
	}

	for i, port := range pl.InputPortNames() {
		s, err := p.query(layout.JoinPath(label, layout.ExtendedPortName(port, i)))
		if err != nil {
			return nil, err
		}
		lv.inputs = append(lv.inputs, s)
	}
	for i, port := range pl.OutputPortNames() {
		s, err := p.query(layout.JoinPath(label, layout.ExtendedPortName(port, i)))
		if err != nil {
			return nil, err
		}
		lv.outputs = append(lv.outputs, s)
	}

	for i, name := range pl.ElementNames() {
		c, err := pl.ElementAt(i)
		if err != nil {
			return nil, err
		}
		path := name
		if prefix != "" {
			path = layout.JoinPath(prefix, name)
		}

		switch c := c.(type) {
		case *layout.FilterLayout:
			f, err := newFilter(p.ctx, c, name, path, layout.JoinPath(p.name, path))
			if err != nil {
				return nil, &FilterError{Filter: layout.JoinPath(p.name, path), Err: err}
			}
			p.filters = append(p.filters, f)
			p.byPath[path] = f
			for port, s := range f.outputs {
				p.producers[s] = outputRef{filter: len(p.filters) - 1, port: port}
			}
			lv.elements = append(lv.elements, element{filter: f})
		case *layout.PipelineLayout:
			sub, err := p.build(c, path)
			if err != nil {
				return nil, err
			}
			lv.elements = append(lv.elements, element{sub: sub})
		default:
			return nil, fmt.Errorf("element %s: unsupported component %T", path, c)
		}
	}

	for _, c := range pl.Connections() {
		src, err := lv.socket(c.Source, true)
		if err != nil {
			return nil, err
		}
		dst, err := lv.socket(c.Destination, false)
		if err != nil {
			return nil, err
		}
		if err := p.ctx.sockets.Connect(dst, src); err != nil {
			return nil, fmt.Errorf("connection %s: %w", c, err)
		}
	}
	return lv, nil
}

// socket returns the socket behind a connection endpoint.
func (lv *level) socket(ep layout.Endpoint, source bool) (stream.Socket, error) {
	if ep.Element == layout.This {
		if source {
			i, err := lv.layout.InputPortIndex(ep.Port)
			if err != nil {
				return stream.NullSocket, err
			}
			return lv.inputs[i], nil
		}
		i, err := lv.layout.OutputPortIndex(ep.Port)
		if err != nil {
			return stream.NullSocket, err
		}
		return lv.outputs[i], nil
	}

	e, err := lv.layout.ElementIndex(ep.Element)
	if err != nil {
		return stream.NullSocket, err
	}
	c, err := lv.layout.ElementAt(e)
	if err != nil {
		return stream.NullSocket, err
	}
	if source {
		i, err := c.OutputPortIndex(ep.Port)
		if err != nil {
			return stream.NullSocket, err
		}
		return lv.elements[e].outputs()[i], nil
	}
	i, err := c.InputPortIndex(ep.Port)
	if err != nil {
		return stream.NullSocket, err
	}
	return lv.elements[e].inputs()[i], nil
}

// flatten returns the filters of lv in execution order, nested levels
// expanded in place.
func flatten(lv *level) ([]*Filter, error) {
	order, err := lv.layout.ExecutionOrder()
	if err != nil {
		return nil, err
	}
	var out []*Filter
	for _, i := range order {
		e := lv.elements[i]
		if e.filter != nil {
			out = append(out, e.filter)
			continue
		}
		sub, err := flatten(e.sub)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// ID identifies the pipeline in logs.
func (p *Pipeline) ID() uuid.UUID { return p.id }

// Name returns the instance name.
func (p *Pipeline) Name() string { return p.name }

// Layout returns the layout the pipeline was built from. It must not be
// modified.
func (p *Pipeline) Layout() *layout.PipelineLayout { return p.layout }

// Context returns the context of the pipeline.
func (p *Pipeline) Context() *Context { return p.ctx }

// NumInputs returns the number of input ports.
func (p *Pipeline) NumInputs() int { return p.layout.NumInputPorts() }

// NumOutputs returns the number of output ports.
func (p *Pipeline) NumOutputs() int { return p.layout.NumOutputPorts() }

func (p *Pipeline) alive() error {
	if p.released {
		return fmt.Errorf("%w: pipeline %s", ErrReleased, p.name)
	}
	return nil
}

// Filter returns the filter at path, such as "Sub::Pass". Type and port
// qualifiers are ignored.
func (p *Pipeline) Filter(path string) (*Filter, error) {
	names, err := layout.SplitPath(path)
	if err != nil {
		return nil, err
	}
	f, ok := p.byPath[layout.JoinPath(names...)]
	if !ok {
		return nil, fmt.Errorf("%w: filter %q in pipeline %s", layout.ErrUnknownElement, path, p.name)
	}
	return f, nil
}

// Filters returns the filters in execution order.
func (p *Pipeline) Filters() []*Filter { return slices.Clone(p.order) }

// SetUniform sets a uniform of the filter at path.
func (p *Pipeline) SetUniform(path, name string, values ...float32) error {
	f, err := p.Filter(path)
	if err != nil {
		return err
	}
	return f.SetUniform(name, values...)
}

// SetInput binds input port i to a texture.
func (p *Pipeline) SetInput(i int, tex backend.TextureID) error {
	if err := p.alive(); err != nil {
		return err
	}
	if err := p.checkInput(i, tex); err != nil {
		return err
	}
	return p.ctx.sockets.Bind(p.root.inputs[i], tex)
}

// checkInput reports whether tex can be bound to input port i.
func (p *Pipeline) checkInput(i int, tex backend.TextureID) error {
	if i < 0 || i >= len(p.root.inputs) {
		return fmt.Errorf("%w: input %d of %d in pipeline %s", layout.ErrIndexOutOfRange, i, len(p.root.inputs), p.name)
	}
	if _, err := p.ctx.device.TextureFormat(tex); err != nil {
		return fmt.Errorf("pipeline: %s: input %d: %w", p.name, i, err)
	}
	return nil
}

// SetInputByName binds the named input port to a texture.
func (p *Pipeline) SetInputByName(name string, tex backend.TextureID) error {
	i, err := p.layout.InputPortIndex(name)
	if err != nil {
		return err
	}
	return p.SetInput(i, tex)
}

// Process runs every filter once. When inputs are given, there must be one
// per input port and they replace the current inputs.
//
// Process fails with ErrFeedbackHazard when an input is a render target of
// the target cell: reading the previous frame requires another cell.
func (p *Pipeline) Process(inputs ...backend.TextureID) error {
	start := time.Now()
	err := p.process(inputs)
	p.ctx.metrics.ObserveProcess(p.name, time.Since(start), err)
	return err
}

func (p *Pipeline) process(inputs []backend.TextureID) error {
	if err := p.alive(); err != nil {
		return err
	}
	if len(inputs) > 0 {
		if len(inputs) != len(p.root.inputs) {
			return fmt.Errorf("%w: pipeline %s takes %d inputs, got %d", ErrArgumentCount, p.name, len(p.root.inputs), len(inputs))
		}
		// Either every input is replaced or none is.
		for i, tex := range inputs {
			if err := p.checkInput(i, tex); err != nil {
				return err
			}
		}
		for i, tex := range inputs {
			if err := p.ctx.sockets.Bind(p.root.inputs[i], tex); err != nil {
				return err
			}
		}
	}
	if err := p.checkFeedback(); err != nil {
		return err
	}

	for _, f := range p.order {
		if err := f.run(); err != nil {
			return err
		}
	}
	glip.Logger().Debug("pipeline: processed", "pipeline", p.name, "cell", p.current, "filters", len(p.order))
	return nil
}

// checkFeedback rejects bound inputs that are render targets of the target
// cell.
func (p *Pipeline) checkFeedback() error {
	c := p.cells[p.current]
	for i, s := range p.root.inputs {
		tex, err := p.ctx.sockets.Resolve(s)
		if err != nil {
			// Unset inputs fail in the filters reading them.
			continue
		}
		if ref, ok := c.owner(tex); ok {
			port, _ := p.layout.InputPortName(i)
			return fmt.Errorf("%w: input %q of pipeline %s is output %d of %s in the target cell %d",
				ErrFeedbackHazard, port, p.name, ref.port, p.filters[ref.filter].label, c.id)
		}
	}
	return nil
}

// Output returns the texture behind output port i in the target cell.
func (p *Pipeline) Output(i int) (backend.TextureID, error) {
	return p.OutputInCell(i, p.current)
}

// OutputByName returns the texture behind the named output port in the
// target cell.
func (p *Pipeline) OutputByName(name string) (backend.TextureID, error) {
	i, err := p.layout.OutputPortIndex(name)
	if err != nil {
		return backend.InvalidID, err
	}
	return p.Output(i)
}

// OutputInCell returns the texture behind output port i in a buffer cell.
func (p *Pipeline) OutputInCell(i, cellID int) (backend.TextureID, error) {
	if err := p.alive(); err != nil {
		return backend.InvalidID, err
	}
	if i < 0 || i >= len(p.root.outputs) {
		return backend.InvalidID, fmt.Errorf("%w: output %d of %d in pipeline %s", layout.ErrIndexOutOfRange, i, len(p.root.outputs), p.name)
	}
	c, ok := p.cells[cellID]
	if !ok {
		return backend.InvalidID, fmt.Errorf("%w: %d in pipeline %s", ErrUnknownCell, cellID, p.name)
	}
	chain, err := p.ctx.sockets.Trace(p.root.outputs[i])
	if err != nil {
		return backend.InvalidID, err
	}
	last := chain[len(chain)-1]
	ref, ok := p.producers[last]
	if !ok {
		return backend.InvalidID, fmt.Errorf("%w: output %d of pipeline %s ends on socket %d", stream.ErrUnresolvedSocket, i, p.name, last)
	}
	return c.textures[ref.filter][ref.port], nil
}

// Release frees the buffer cells, the filters and the sockets of the
// pipeline. Release is idempotent.
func (p *Pipeline) Release() error {
	if p.released {
		return nil
	}
	p.released = true

	var errs []error
	for id, c := range p.cells {
		c.destroy(p.ctx.device)
		delete(p.cells, id)
	}
	labels := make([]string, 0, len(p.filters))
	for _, f := range p.filters {
		labels = append(labels, f.label)
		if err := f.release(); err != nil {
			errs = append(errs, &FilterError{Filter: f.label, Err: err})
		}
	}
	for _, s := range p.sockets {
		if err := p.ctx.sockets.Release(s); err != nil {
			errs = append(errs, err)
		}
	}
	p.sockets = nil
	p.ctx.metrics.Forget(p.name, labels)
	p.ctx.updateSockets()
	p.ctx.releaseName(p.name)

	err := errors.Join(errs...)
	if err != nil {
		glip.Logger().Warn("pipeline: release", "pipeline", p.name, "err", err)
	}
	glip.Logger().Info("pipeline: released", "pipeline", p.name, "id", p.id)
	return err
}
