// Package layout describes processing graphs before they are instantiated.
//
// A [FilterLayout] is one shader pass whose ports come from its WGSL source.
// A [PipelineLayout] composes filters and other pipelines, each added under
// an instance name, and connects their ports. Layouts are builders: they are
// mutated while authoring and read through the [Component] interface once
// added to a pipeline, which stores its own deep copy.
//
// Port indices follow insertion order and stay stable for the lifetime of a
// layout.
package layout

import (
	"fmt"
	"slices"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// Kind distinguishes filters from pipelines.
type Kind uint8

const (
	KindFilter Kind = iota
	KindPipeline
)

// String returns "Filter" or "Pipeline".
func (k Kind) String() string {
	if k == KindPipeline {
		return "Pipeline"
	}
	return "Filter"
}

// Component is the read-only view of a layout. It is implemented by
// [*FilterLayout] and [*PipelineLayout] only.
type Component interface {
	TypeName() string
	Kind() Kind

	NumInputPorts() int
	NumOutputPorts() int
	InputPort(i int) (Port, error)
	OutputPort(i int) (Port, error)
	InputPortIndex(name string) (int, error)
	OutputPortIndex(name string) (int, error)
	InputPortName(i int) (string, error)
	OutputPortName(i int) (string, error)
	InputPortNames() []string
	OutputPortNames() []string

	cloneComponent() Component
}

// ComponentLayout is an ordered set of named input and output ports under a
// type name. FilterLayout and PipelineLayout embed it.
type ComponentLayout struct {
	typeName string
	inputs   []Port
	outputs  []Port
}

// NewComponentLayout returns an empty component layout.
func NewComponentLayout(typeName string) (*ComponentLayout, error) {
	if err := ValidateName(typeName); err != nil {
		return nil, err
	}
	return &ComponentLayout{typeName: typeName}, nil
}

// TypeName returns the type tag of the layout.
func (c *ComponentLayout) TypeName() string { return c.typeName }

// AddInputPort appends an input port and returns its index.
func (c *ComponentLayout) AddInputPort(name string) (int, error) {
	return c.addPort(Input, name, nil)
}

// AddOutputPort appends an output port and returns its index.
func (c *ComponentLayout) AddOutputPort(name string) (int, error) {
	return c.addPort(Output, name, nil)
}

func (c *ComponentLayout) addPort(dir Direction, name string, f *format.Descriptor) (int, error) {
	if err := ValidateName(name); err != nil {
		return -1, &PortError{Component: c.typeName, Port: name, Direction: dir, Err: err}
	}
	ports := c.ports(dir)
	if slices.ContainsFunc(*ports, func(p Port) bool { return p.Name == name }) {
		return -1, &PortError{Component: c.typeName, Port: name, Direction: dir, Err: ErrDuplicatePort}
	}
	*ports = append(*ports, Port{Name: name, Direction: dir, Format: f})
	return len(*ports) - 1, nil
}

func (c *ComponentLayout) ports(dir Direction) *[]Port {
	if dir == Output {
		return &c.outputs
	}
	return &c.inputs
}

// NumInputPorts returns the number of input ports.
func (c *ComponentLayout) NumInputPorts() int { return len(c.inputs) }

// NumOutputPorts returns the number of output ports.
func (c *ComponentLayout) NumOutputPorts() int { return len(c.outputs) }

// InputPort returns the input port at index i.
func (c *ComponentLayout) InputPort(i int) (Port, error) { return c.port(Input, i) }

// OutputPort returns the output port at index i.
func (c *ComponentLayout) OutputPort(i int) (Port, error) { return c.port(Output, i) }

func (c *ComponentLayout) port(dir Direction, i int) (Port, error) {
	ports := *c.ports(dir)
	if i < 0 || i >= len(ports) {
		return Port{}, &PortError{
			Component: c.typeName,
			Port:      fmt.Sprintf("#%d", i),
			Direction: dir,
			Err:       fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(ports)),
		}
	}
	return ports[i], nil
}

// InputPortIndex returns the index of the named input port. The wildcard
// "*" resolves to the only input port.
func (c *ComponentLayout) InputPortIndex(name string) (int, error) {
	return c.portIndex(Input, name)
}

// OutputPortIndex returns the index of the named output port. The wildcard
// "*" resolves to the only output port.
func (c *ComponentLayout) OutputPortIndex(name string) (int, error) {
	return c.portIndex(Output, name)
}

func (c *ComponentLayout) portIndex(dir Direction, name string) (int, error) {
	ports := *c.ports(dir)
	if name == Wildcard {
		if len(ports) != 1 {
			return -1, &PortError{
				Component: c.typeName,
				Port:      name,
				Direction: dir,
				Err:       fmt.Errorf("%w: %d %s ports", ErrAmbiguousWildcard, len(ports), dir),
			}
		}
		return 0, nil
	}
	for i, p := range ports {
		if p.Name == name {
			return i, nil
		}
	}
	return -1, &PortError{Component: c.typeName, Port: name, Direction: dir, Err: ErrUnknownPort}
}

// HasInputPort reports whether an input port with the given name exists.
func (c *ComponentLayout) HasInputPort(name string) bool {
	_, err := c.portIndex(Input, name)
	return err == nil
}

// HasOutputPort reports whether an output port with the given name exists.
func (c *ComponentLayout) HasOutputPort(name string) bool {
	_, err := c.portIndex(Output, name)
	return err == nil
}

// InputPortName returns the name of the input port at index i.
func (c *ComponentLayout) InputPortName(i int) (string, error) {
	p, err := c.port(Input, i)
	return p.Name, err
}

// OutputPortName returns the name of the output port at index i.
func (c *ComponentLayout) OutputPortName(i int) (string, error) {
	p, err := c.port(Output, i)
	return p.Name, err
}

// InputPortNames returns the input port names in index order.
func (c *ComponentLayout) InputPortNames() []string { return portNames(c.inputs) }

// OutputPortNames returns the output port names in index order.
func (c *ComponentLayout) OutputPortNames() []string { return portNames(c.outputs) }

func portNames(ports []Port) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names
}

// RenameInputPort renames the input port at index i.
func (c *ComponentLayout) RenameInputPort(i int, name string) error {
	return c.renamePort(Input, i, name)
}

// RenameOutputPort renames the output port at index i.
func (c *ComponentLayout) RenameOutputPort(i int, name string) error {
	return c.renamePort(Output, i, name)
}

func (c *ComponentLayout) renamePort(dir Direction, i int, name string) error {
	if _, err := c.port(dir, i); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return &PortError{Component: c.typeName, Port: name, Direction: dir, Err: err}
	}
	ports := *c.ports(dir)
	for j, p := range ports {
		if j != i && p.Name == name {
			return &PortError{Component: c.typeName, Port: name, Direction: dir, Err: ErrDuplicatePort}
		}
	}
	ports[i].Name = name
	return nil
}

func (c *ComponentLayout) clone() ComponentLayout {
	return ComponentLayout{
		typeName: c.typeName,
		inputs:   slices.Clone(c.inputs),
		outputs:  slices.Clone(c.outputs),
	}
}
