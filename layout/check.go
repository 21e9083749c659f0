package layout

import (
	"fmt"
	"slices"
	"strings"
)

// Check verifies that the pipeline can be instantiated. Every element input
// and every pipeline output must have a source, the element graph must be
// acyclic, and nested pipelines must pass their own check. All problems are
// collected into a single *CheckError; nil means the layout is complete.
//
// Unused pipeline inputs and element outputs are allowed.
func (p *PipelineLayout) Check() error {
	var errs []error

	for i, e := range p.elements {
		for port := range e.layout.NumInputPorts() {
			if _, ok := p.sourceOf(i, port); !ok {
				errs = append(errs, p.unconnected(i, port))
			}
		}
	}
	for port := range p.NumOutputPorts() {
		if _, ok := p.sourceOf(thisElement, port); !ok {
			errs = append(errs, p.unconnected(thisElement, port))
		}
	}

	if _, err := p.ExecutionOrder(); err != nil {
		errs = append(errs, err)
	}

	for _, e := range p.elements {
		sub, ok := e.layout.(*PipelineLayout)
		if !ok {
			continue
		}
		if err := sub.Check(); err != nil {
			errs = append(errs, fmt.Errorf("element %s: %w", ExtendedName(e.name, sub.typeName), err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &CheckError{Pipeline: p.extendedName(thisElement), Errs: errs}
}

// unconnected returns the error for a destination without a source.
func (p *PipelineLayout) unconnected(elem, port int) error {
	ep := p.endpoint(elem, port, false)
	dir := Input
	if elem == thisElement {
		dir = Output
	}
	return &PortError{Component: p.extendedName(elem), Port: ep.Port, Direction: dir, Err: ErrUnconnectedPort}
}

// ExecutionOrder returns element indices so that every element comes after
// the elements feeding it. Among ready elements the lowest index goes first,
// so the order is deterministic. Unconnected inputs impose no constraint.
func (p *PipelineLayout) ExecutionOrder() ([]int, error) {
	n := len(p.elements)
	indegree := make([]int, n)
	next := make([][]int, n)
	for _, c := range p.connections {
		if c.srcElement == thisElement || c.dstElement == thisElement {
			continue
		}
		next[c.srcElement] = append(next[c.srcElement], c.dstElement)
		indegree[c.dstElement]++
	}

	var ready []int
	for i := range n {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]int, 0, n)
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, d := range next[cur] {
			indegree[d]--
			if indegree[d] == 0 {
				// Keep ready sorted to honor the lowest index first.
				i, _ := slices.BinarySearch(ready, d)
				ready = slices.Insert(ready, i, d)
			}
		}
	}

	if len(order) != n {
		var stuck []string
		for i := range n {
			if indegree[i] > 0 {
				stuck = append(stuck, p.extendedName(i))
			}
		}
		return nil, fmt.Errorf("%w in %s between %s", ErrCycle, p.extendedName(thisElement), strings.Join(stuck, ", "))
	}
	return order, nil
}
