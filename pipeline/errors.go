package pipeline

import (
	"errors"
	"fmt"
)

// Runtime errors.
var (
	// ErrNilDevice is returned by NewContext without a device.
	ErrNilDevice = errors.New("pipeline: nil device")

	// ErrTooManyPorts is returned when a filter has more inputs than the
	// device has texture units, or more outputs than render targets.
	ErrTooManyPorts = errors.New("pipeline: too many ports")

	// ErrFilterBroken is returned by every run of a filter whose first run
	// failed.
	ErrFilterBroken = errors.New("pipeline: filter is broken")

	// ErrUnknownCell is returned for a buffer cell that does not exist.
	ErrUnknownCell = errors.New("pipeline: unknown buffer cell")

	// ErrCellInUse is returned when releasing the target buffer cell.
	ErrCellInUse = errors.New("pipeline: buffer cell in use")

	// ErrFeedbackHazard is returned when a process call would read a texture
	// it writes.
	ErrFeedbackHazard = errors.New("pipeline: feedback hazard")

	// ErrArgumentCount is returned when a call receives the wrong number of
	// textures or uniform values.
	ErrArgumentCount = errors.New("pipeline: wrong argument count")

	// ErrUnknownUniform is returned when a filter has no uniform of the given
	// name.
	ErrUnknownUniform = errors.New("pipeline: unknown uniform")

	// ErrDuplicateName is returned by New when a live pipeline of the
	// context already has the name.
	ErrDuplicateName = errors.New("pipeline: duplicate pipeline name")

	// ErrReleased is returned after Release or Close.
	ErrReleased = errors.New("pipeline: released")
)

// FilterError locates a failure in a filter of a pipeline.
type FilterError struct {
	// Filter is the qualified path of the filter, pipeline name first.
	Filter string
	Err    error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("pipeline: filter %s: %v", e.Filter, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }
