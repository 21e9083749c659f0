package native

import "errors"

// Package errors for the native device.
var (
	// ErrNoGPU is returned when no hardware adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNilDevice is returned when New is given a nil device or queue.
	ErrNilDevice = errors.New("native: HAL device is nil")

	// ErrNotHAL is returned when a DeviceProvider does not expose HAL
	// objects.
	ErrNotHAL = errors.New("native: provider device is not a HAL device")

	// ErrReadback is returned when a texture cannot be copied back to host
	// memory.
	ErrReadback = errors.New("native: texture readback failed")
)
