package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
)

func init() {
	backend.Register(backend.NameNative, func(backend.Config) (backend.Device, error) {
		return Open()
	})
}

// Open opens the first hardware adapter of the best HAL backend compiled
// into the binary. It returns ErrNoGPU when only software or empty backends
// are available.
func Open() (*Device, error) {
	b, err := hal.SelectBestBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	if b.Variant() == gputypes.BackendEmpty {
		return nil, fmt.Errorf("%w: only the %s backend is available", ErrNoGPU, b.Variant())
	}

	instance, err := b.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s instance: %w", ErrNoGPU, b.Variant(), err)
	}
	adapters := instance.EnumerateAdapters(nil)
	for _, a := range adapters {
		if a.Info.DeviceType == gputypes.DeviceTypeCPU {
			continue
		}
		limits := a.Capabilities.Limits
		if limits.MaxTextureDimension2D == 0 {
			limits = gputypes.DefaultLimits()
		}
		open, err := a.Adapter.Open(0, limits)
		if err != nil {
			glip.Logger().Warn("native: adapter open failed", "adapter", a.Info.Name, "err", err)
			continue
		}
		return New(open.Device, open.Queue,
			WithAdapterInfo(adapterInfo(a.Info)),
			WithDeviceLimits(limits),
			withRelease(func() {
				a.Adapter.Destroy()
				instance.Destroy()
			}),
		)
	}
	instance.Destroy()
	return nil, fmt.Errorf("%w: %d %s adapters, none usable", ErrNoGPU, len(adapters), b.Variant())
}

func adapterInfo(info gputypes.AdapterInfo) gpucontext.AdapterInfo {
	out := gpucontext.AdapterInfo{Name: info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		out.Type = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		out.Type = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		out.Type = gpucontext.AdapterTypeSoftware
	}
	return out
}
