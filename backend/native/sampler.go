package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// samplerKey is the sampling state of a texture format.
type samplerKey struct {
	min, mag     gputypes.FilterMode
	wrapS, wrapT gputypes.AddressMode
	compare      bool
}

// defaultSampler is used by samplers that no texture is paired with.
var defaultSampler = samplerKey{
	min:   gputypes.FilterModeNearest,
	mag:   gputypes.FilterModeNearest,
	wrapS: gputypes.AddressModeClampToEdge,
	wrapT: gputypes.AddressModeClampToEdge,
}

// samplerKeyOf returns the sampling state of desc. Formats that cannot be
// filtered are sampled with nearest filtering.
func samplerKeyOf(desc format.Descriptor, filterable bool) samplerKey {
	k := samplerKey{
		min:   orNearest(desc.MinFilter),
		mag:   orNearest(desc.MagFilter),
		wrapS: orClamp(desc.WrapS),
		wrapT: orClamp(desc.WrapT),
	}
	if !filterable {
		k.min, k.mag = gputypes.FilterModeNearest, gputypes.FilterModeNearest
	}
	return k
}

func orNearest(f gputypes.FilterMode) gputypes.FilterMode {
	if f == gputypes.FilterModeUndefined {
		return gputypes.FilterModeNearest
	}
	return f
}

func orClamp(a gputypes.AddressMode) gputypes.AddressMode {
	if a == gputypes.AddressModeUndefined {
		return gputypes.AddressModeClampToEdge
	}
	return a
}

// sampler returns the shared sampler for k.
func (d *Device) sampler(k samplerKey) (hal.Sampler, error) {
	return d.samplers.GetOrCreate(k, func() (hal.Sampler, error) {
		desc := &hal.SamplerDescriptor{
			Label:        fmt.Sprintf("glip sampler %v/%v", k.min, k.wrapS),
			AddressModeU: k.wrapS,
			AddressModeV: k.wrapT,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    k.mag,
			MinFilter:    k.min,
			MipmapFilter: gputypes.FilterModeNearest,
			LodMaxClamp:  32,
			Anisotropy:   1,
		}
		if k.compare {
			desc.Compare = gputypes.CompareFunctionLessEqual
		}
		return d.device.CreateSampler(desc)
	})
}
