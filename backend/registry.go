package backend

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"
)

// Backend names.
const (
	NameNative = "native"
	NameCPU    = "cpu"
)

// Config selects and configures a device for Open.
type Config struct {
	// Backend is the registered backend name. Empty selects the best
	// available one, native first.
	Backend string

	// Workers bounds CPU parallelism for backends that use it. Zero means
	// one worker per CPU.
	Workers int
}

// Factory opens a device.
type Factory func(cfg Config) (Device, error)

var registry = gpucontext.NewRegistry[Factory](
	gpucontext.WithPriority(NameNative, NameCPU),
)

// Register registers a device factory under name. It is typically called
// from init functions. A later registration replaces an earlier one.
func Register(name string, f Factory) {
	registry.Register(name, func() Factory { return f })
}

// Unregister removes a backend. This is useful for testing.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	names := registry.Available()
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	return registry.Has(name)
}

// Open opens a device with the named backend, or the best available one
// when cfg.Backend is empty. When the best backend fails to open, the next
// one in priority order is tried.
func Open(cfg Config) (Device, error) {
	if cfg.Backend != "" {
		f := registry.Get(cfg.Backend)
		if f == nil {
			return nil, fmt.Errorf("%w: %q (available: %v)", ErrBackendNotFound, cfg.Backend, Available())
		}
		return f(cfg)
	}

	var errs []error
	for _, name := range candidates() {
		f := registry.Get(name)
		if f == nil {
			continue
		}
		dev, err := f(cfg)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend registered", ErrBackendNotFound)
	}
	return nil, fmt.Errorf("%w: %v", ErrBackendNotFound, errs)
}

// candidates lists registered names, the preferred one first.
func candidates() []string {
	best := registry.BestName()
	names := []string{best}
	for _, name := range []string{NameNative, NameCPU} {
		if name != best && registry.Has(name) {
			names = append(names, name)
		}
	}
	for _, name := range Available() {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}
