package layout

import "github.com/ronan-kerviche/glip-lib-sub003/format"

// Direction is the direction of a port.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Port is a named attachment point of a component.
type Port struct {
	Name      string
	Direction Direction
	// Format is the texture format of the port, nil when the port accepts
	// any format. Filter outputs carry the filter's output format.
	Format *format.Descriptor
}
