package layout

import (
	"errors"
	"fmt"
	"slices"
)

// thisElement is the element index standing for the enclosing pipeline.
const thisElement = -1

// Endpoint is one end of a connection: an element and one of its ports.
// Element is [This] for the pipeline's own ports.
type Endpoint struct {
	Element string
	Port    string
}

// String returns "Element::Port".
func (e Endpoint) String() string { return JoinPath(e.Element, e.Port) }

// Connection links a source to a destination. The source is an element
// output or a pipeline input; the destination is an element input or a
// pipeline output.
type Connection struct {
	Source      Endpoint
	Destination Endpoint
}

// String returns "Source -> Destination".
func (c Connection) String() string {
	return c.Source.String() + " -> " + c.Destination.String()
}

type connection struct {
	srcElement, srcPort int
	dstElement, dstPort int
}

type element struct {
	name   string
	layout Component
}

// PipelineLayout is a graph of named elements and the connections between
// their ports and the pipeline's own ports.
type PipelineLayout struct {
	ComponentLayout

	elements    []element
	connections []connection
}

// NewPipelineLayout returns an empty pipeline layout.
func NewPipelineLayout(typeName string) (*PipelineLayout, error) {
	if err := ValidateName(typeName); err != nil {
		return nil, err
	}
	return &PipelineLayout{ComponentLayout: ComponentLayout{typeName: typeName}}, nil
}

// Kind returns KindPipeline.
func (p *PipelineLayout) Kind() Kind { return KindPipeline }

// Add stores a deep copy of c as a new element and returns its index. Later
// changes to c do not affect the pipeline.
func (p *PipelineLayout) Add(c Component, name string) (int, error) {
	if c == nil {
		return -1, fmt.Errorf("layout: %s: add %q: nil component", p.typeName, name)
	}
	if err := ValidateName(name); err != nil {
		return -1, err
	}
	if name == This || slices.ContainsFunc(p.elements, func(e element) bool { return e.name == name }) {
		return -1, fmt.Errorf("%w: %q in pipeline %s", ErrDuplicateInstanceName, name, p.typeName)
	}
	p.elements = append(p.elements, element{name: name, layout: c.cloneComponent()})
	return len(p.elements) - 1, nil
}

// NumElements returns the number of elements.
func (p *PipelineLayout) NumElements() int { return len(p.elements) }

// ElementNames returns the element names in insertion order.
func (p *PipelineLayout) ElementNames() []string {
	names := make([]string, len(p.elements))
	for i, e := range p.elements {
		names[i] = e.name
	}
	return names
}

// ElementIndex returns the index of the named element.
func (p *PipelineLayout) ElementIndex(name string) (int, error) {
	for i, e := range p.elements {
		if e.name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in pipeline %s", ErrUnknownElement, name, p.typeName)
}

// ElementName returns the name of the element at index i.
func (p *PipelineLayout) ElementName(i int) (string, error) {
	if i < 0 || i >= len(p.elements) {
		return "", fmt.Errorf("%w: element %d of %d in pipeline %s", ErrIndexOutOfRange, i, len(p.elements), p.typeName)
	}
	return p.elements[i].name, nil
}

// ElementAt returns the layout of the element at index i. It must not be
// modified.
func (p *PipelineLayout) ElementAt(i int) (Component, error) {
	if i < 0 || i >= len(p.elements) {
		return nil, fmt.Errorf("%w: element %d of %d in pipeline %s", ErrIndexOutOfRange, i, len(p.elements), p.typeName)
	}
	return p.elements[i].layout, nil
}

// Element returns the layout of the named element. It must not be modified.
func (p *PipelineLayout) Element(name string) (Component, error) {
	i, err := p.ElementIndex(name)
	if err != nil {
		return nil, err
	}
	return p.elements[i].layout, nil
}

// Resolve returns the element designated by a path such as "Sub::Pass",
// relative to this pipeline. Type and port qualifiers are ignored.
func (p *PipelineLayout) Resolve(path string) (Component, error) {
	names, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	var cur Component = p
	for i, name := range names {
		pl, ok := cur.(*PipelineLayout)
		if !ok {
			return nil, fmt.Errorf("%w: %q is a filter in %q", ErrUnknownElement, names[i-1], path)
		}
		if cur, err = pl.Element(name); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// extendedName returns the display name of an element, or of the pipeline
// itself for thisElement.
func (p *PipelineLayout) extendedName(elem int) string {
	if elem == thisElement {
		return ExtendedName(This, p.typeName)
	}
	e := p.elements[elem]
	return ExtendedName(e.name, e.layout.TypeName())
}

// componentOf returns the element index for a name, or thisElement.
func (p *PipelineLayout) componentOf(name string, dir Direction, port string) (int, Component, error) {
	if name == This {
		return thisElement, p, nil
	}
	i, err := p.ElementIndex(name)
	if err != nil {
		return -1, nil, &PortError{Component: name, Port: port, Direction: dir, Err: fmt.Errorf("%w: no element %q", ErrUnknownPort, name)}
	}
	return i, p.elements[i].layout, nil
}

// resolveSource finds the port index of a connection source. A source is an
// element output, or an input of the pipeline itself.
func (p *PipelineLayout) resolveSource(name, port string) (int, int, error) {
	elem, c, err := p.componentOf(name, Output, port)
	if err != nil {
		return -1, -1, err
	}
	portOf, otherOf := c.OutputPortIndex, c.InputPortIndex
	dir := Output
	if elem == thisElement {
		portOf, otherOf = c.InputPortIndex, c.OutputPortIndex
		dir = Input
	}
	return p.resolvePort(elem, dir, port, portOf, otherOf)
}

// resolveDestination finds the port index of a connection destination. A
// destination is an element input, or an output of the pipeline itself.
func (p *PipelineLayout) resolveDestination(name, port string) (int, int, error) {
	elem, c, err := p.componentOf(name, Input, port)
	if err != nil {
		return -1, -1, err
	}
	portOf, otherOf := c.InputPortIndex, c.OutputPortIndex
	dir := Input
	if elem == thisElement {
		portOf, otherOf = c.OutputPortIndex, c.InputPortIndex
		dir = Output
	}
	return p.resolvePort(elem, dir, port, portOf, otherOf)
}

func (p *PipelineLayout) resolvePort(elem int, dir Direction, port string, portOf, otherOf func(string) (int, error)) (int, int, error) {
	idx, err := portOf(port)
	if err == nil {
		return elem, idx, nil
	}
	if port != Wildcard {
		if _, otherErr := otherOf(port); otherErr == nil {
			return -1, -1, &PortError{Component: p.extendedName(elem), Port: port, Direction: dir, Err: ErrDirectionMismatch}
		}
	}
	var pe *PortError
	if errors.As(err, &pe) {
		return -1, -1, &PortError{Component: p.extendedName(elem), Port: port, Direction: dir, Err: pe.Err}
	}
	return -1, -1, err
}

// Connect links an element output (or pipeline input, with srcElement set
// to [This]) to an element input (or pipeline output, with dstElement set
// to [This]).
func (p *PipelineLayout) Connect(srcElement, srcPort, dstElement, dstPort string) error {
	se, sp, err := p.resolveSource(srcElement, srcPort)
	if err != nil {
		return err
	}
	de, dp, err := p.resolveDestination(dstElement, dstPort)
	if err != nil {
		return err
	}
	return p.connect(connection{srcElement: se, srcPort: sp, dstElement: de, dstPort: dp})
}

// ConnectToInput links a pipeline input to an element input.
func (p *PipelineLayout) ConnectToInput(pipelinePort, dstElement, dstPort string) error {
	return p.Connect(This, pipelinePort, dstElement, dstPort)
}

// ConnectToOutput links an element output to a pipeline output.
func (p *PipelineLayout) ConnectToOutput(srcElement, srcPort, pipelinePort string) error {
	return p.Connect(srcElement, srcPort, This, pipelinePort)
}

// ConnectByIndex is Connect with indices. Element index -1 designates the
// pipeline itself.
func (p *PipelineLayout) ConnectByIndex(srcElement, srcPort, dstElement, dstPort int) error {
	c := connection{srcElement: srcElement, srcPort: srcPort, dstElement: dstElement, dstPort: dstPort}
	for _, e := range []int{srcElement, dstElement} {
		if e < thisElement || e >= len(p.elements) {
			return fmt.Errorf("%w: element %d of %d in pipeline %s", ErrIndexOutOfRange, e, len(p.elements), p.typeName)
		}
	}
	src := p.sourceComponent(srcElement)
	if _, err := src(srcPort); err != nil {
		return err
	}
	dst := p.destinationComponent(dstElement)
	if _, err := dst(dstPort); err != nil {
		return err
	}
	return p.connect(c)
}

func (p *PipelineLayout) sourceComponent(elem int) func(int) (string, error) {
	if elem == thisElement {
		return p.InputPortName
	}
	return p.elements[elem].layout.OutputPortName
}

func (p *PipelineLayout) destinationComponent(elem int) func(int) (string, error) {
	if elem == thisElement {
		return p.OutputPortName
	}
	return p.elements[elem].layout.InputPortName
}

func (p *PipelineLayout) connect(c connection) error {
	if c.srcElement == thisElement && c.dstElement == thisElement {
		name, _ := p.InputPortName(c.srcPort)
		return &PortError{
			Component: p.extendedName(thisElement),
			Port:      name,
			Direction: Input,
			Err:       fmt.Errorf("%w: a pipeline input cannot feed a pipeline output directly", ErrDirectionMismatch),
		}
	}
	if existing, ok := p.sourceOf(c.dstElement, c.dstPort); ok {
		dst := p.endpoint(c.dstElement, c.dstPort, false)
		src := p.endpoint(existing.srcElement, existing.srcPort, true)
		return &PortError{
			Component: p.extendedName(c.dstElement),
			Port:      dst.Port,
			Direction: Input,
			Err:       fmt.Errorf("%w: already fed by %s", ErrPortAlreadyConnected, src),
		}
	}
	p.connections = append(p.connections, c)
	return nil
}

// Disconnect removes the connection feeding a destination.
func (p *PipelineLayout) Disconnect(dstElement, dstPort string) error {
	de, dp, err := p.resolveDestination(dstElement, dstPort)
	if err != nil {
		return err
	}
	for i, c := range p.connections {
		if c.dstElement == de && c.dstPort == dp {
			p.connections = slices.Delete(p.connections, i, i+1)
			return nil
		}
	}
	return &PortError{Component: p.extendedName(de), Port: dstPort, Direction: Input, Err: ErrUnconnectedPort}
}

func (p *PipelineLayout) sourceOf(dstElement, dstPort int) (connection, bool) {
	for _, c := range p.connections {
		if c.dstElement == dstElement && c.dstPort == dstPort {
			return c, true
		}
	}
	return connection{}, false
}

func (p *PipelineLayout) endpoint(elem, port int, source bool) Endpoint {
	name := This
	var portName string
	switch {
	case elem == thisElement && source:
		portName, _ = p.InputPortName(port)
	case elem == thisElement:
		portName, _ = p.OutputPortName(port)
	case source:
		name = p.elements[elem].name
		portName, _ = p.elements[elem].layout.OutputPortName(port)
	default:
		name = p.elements[elem].name
		portName, _ = p.elements[elem].layout.InputPortName(port)
	}
	return Endpoint{Element: name, Port: portName}
}

func (p *PipelineLayout) public(c connection) Connection {
	return Connection{
		Source:      p.endpoint(c.srcElement, c.srcPort, true),
		Destination: p.endpoint(c.dstElement, c.dstPort, false),
	}
}

// Connections returns every connection in creation order.
func (p *PipelineLayout) Connections() []Connection {
	out := make([]Connection, len(p.connections))
	for i, c := range p.connections {
		out[i] = p.public(c)
	}
	return out
}

// Source returns the connection feeding a destination.
func (p *PipelineLayout) Source(dstElement, dstPort string) (Connection, error) {
	de, dp, err := p.resolveDestination(dstElement, dstPort)
	if err != nil {
		return Connection{}, err
	}
	c, ok := p.sourceOf(de, dp)
	if !ok {
		return Connection{}, p.unconnected(de, dp)
	}
	return p.public(c), nil
}

// Destinations returns the connections fed by a source.
func (p *PipelineLayout) Destinations(srcElement, srcPort string) ([]Connection, error) {
	se, sp, err := p.resolveSource(srcElement, srcPort)
	if err != nil {
		return nil, err
	}
	var out []Connection
	for _, c := range p.connections {
		if c.srcElement == se && c.srcPort == sp {
			out = append(out, p.public(c))
		}
	}
	return out, nil
}

// ConnectionsTo returns the connections whose destination is the named
// element ([This] for the pipeline outputs).
func (p *PipelineLayout) ConnectionsTo(name string) ([]Connection, error) {
	return p.connectionsOf(name, func(c connection) int { return c.dstElement })
}

// ConnectionsFrom returns the connections whose source is the named element
// ([This] for the pipeline inputs).
func (p *PipelineLayout) ConnectionsFrom(name string) ([]Connection, error) {
	return p.connectionsOf(name, func(c connection) int { return c.srcElement })
}

func (p *PipelineLayout) connectionsOf(name string, side func(connection) int) ([]Connection, error) {
	elem := thisElement
	if name != This {
		i, err := p.ElementIndex(name)
		if err != nil {
			return nil, err
		}
		elem = i
	}
	var out []Connection
	for _, c := range p.connections {
		if side(c) == elem {
			out = append(out, p.public(c))
		}
	}
	return out, nil
}

// Clone returns a deep copy of the layout.
func (p *PipelineLayout) Clone() *PipelineLayout {
	c := &PipelineLayout{
		ComponentLayout: p.ComponentLayout.clone(),
		elements:        make([]element, len(p.elements)),
		connections:     slices.Clone(p.connections),
	}
	for i, e := range p.elements {
		c.elements[i] = element{name: e.name, layout: e.layout.cloneComponent()}
	}
	return c
}

func (p *PipelineLayout) cloneComponent() Component { return p.Clone() }
