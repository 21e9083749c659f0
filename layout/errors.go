package layout

import (
	"errors"
	"fmt"
	"strings"
)

// Authoring errors. Errors returned by this package wrap one of these, so
// callers test them with errors.Is.
var (
	// ErrInvalidName is returned for an empty name or one holding a
	// structural symbol.
	ErrInvalidName = errors.New("layout: invalid name")

	// ErrDuplicatePort is returned when a port name is already used in the
	// same direction.
	ErrDuplicatePort = errors.New("layout: duplicate port")

	// ErrDuplicateInstanceName is returned when an element name is already
	// used in the pipeline, or is the reserved name THIS.
	ErrDuplicateInstanceName = errors.New("layout: duplicate instance name")

	// ErrUnknownPort is returned when a connection endpoint does not exist.
	ErrUnknownPort = errors.New("layout: unknown port")

	// ErrUnknownElement is returned when an element name or path does not
	// resolve.
	ErrUnknownElement = errors.New("layout: unknown element")

	// ErrIndexOutOfRange is returned for a port or element index outside the
	// valid range.
	ErrIndexOutOfRange = errors.New("layout: index out of range")

	// ErrDirectionMismatch is returned when a connection source is not an
	// output-capable endpoint or its destination is not input-capable.
	ErrDirectionMismatch = errors.New("layout: direction mismatch")

	// ErrPortAlreadyConnected is returned when a destination already has a
	// source.
	ErrPortAlreadyConnected = errors.New("layout: port already connected")

	// ErrAmbiguousWildcard is returned when "*" is used while the number of
	// ports in that direction is not exactly one.
	ErrAmbiguousWildcard = errors.New("layout: ambiguous wildcard")

	// ErrUnconnectedPort is reported by Check for a port without a source.
	ErrUnconnectedPort = errors.New("layout: unconnected port")

	// ErrCycle is reported by Check when elements depend on each other.
	ErrCycle = errors.New("layout: dependency cycle")
)

// PortError locates a port related failure.
type PortError struct {
	// Component is the extended name of the component owning the port.
	Component string
	// Port is the port name as given by the caller, or the port's name.
	Port      string
	Direction Direction
	Err       error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("%v: %s %s port %q", e.Err, e.Component, e.Direction, e.Port)
}

func (e *PortError) Unwrap() error { return e.Err }

// CheckError collects every problem found by [PipelineLayout.Check].
type CheckError struct {
	// Pipeline is the extended name of the checked pipeline.
	Pipeline string
	Errs     []error
}

func (e *CheckError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "layout: check of %s found %d error(s)", e.Pipeline, len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("\n  ")
		b.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n  "))
	}
	return b.String()
}

// Unwrap returns the collected errors.
func (e *CheckError) Unwrap() []error { return e.Errs }
