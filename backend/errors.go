package backend

import (
	"errors"
	"fmt"
)

// Common backend errors.
var (
	// ErrResourceAllocation is returned when a texture, geometry or program
	// cannot be created, including shader compile and link failures.
	ErrResourceAllocation = errors.New("backend: resource allocation failed")

	// ErrBackendNotFound is returned by Open for an unregistered backend.
	ErrBackendNotFound = errors.New("backend: not found")

	// ErrInvalidID is returned for an unknown or destroyed resource ID.
	ErrInvalidID = errors.New("backend: invalid resource id")

	// ErrSizeMismatch is returned when data does not match a texture size,
	// or a draw binds textures of the wrong count or format.
	ErrSizeMismatch = errors.New("backend: size mismatch")

	// ErrTextureAliasing is returned when a draw reads a texture it also
	// writes.
	ErrTextureAliasing = errors.New("backend: texture bound as input and output")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("backend: device closed")
)

// Phase identifies the stage of a filter's life in which a device error
// happened.
type Phase uint8

const (
	PhaseInit Phase = iota
	PhaseDraw
	PhaseTeardown
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseDraw:
		return "draw"
	case PhaseTeardown:
		return "teardown"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// PhaseError attaches a phase and a resource name to a device error.
type PhaseError struct {
	Phase    Phase
	Resource string
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Resource, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
