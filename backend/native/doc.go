// Package native implements backend.Device on a wgpu HAL device.
//
// Programs become render pipelines: the vertex and fragment sources are
// handed to the HAL as WGSL, bind group layouts are derived from the
// introspected textures, samplers and uniform blocks, and every fragment
// output becomes a color target. Each Draw records one render pass,
// creates a transient bind group and submits it.
//
// Samplers are not part of a program. They are built from the format of the
// texture bound to the paired input at draw time and shared through a small
// cache, so two filters reading textures with the same filtering and
// wrapping use the same sampler.
//
// # Device selection
//
// Importing the package registers a factory under backend.NameNative. The
// factory picks the best HAL backend compiled into the binary and opens its
// first adapter. Software and empty backends are skipped so that
// backend.Open falls through to the CPU device. HAL backends are enabled by
// blank imports:
//
//	import (
//		_ "github.com/gogpu/wgpu/hal/vulkan"
//		_ "github.com/ronan-kerviche/glip-lib-sub003/backend/native"
//	)
//
// A host application that already owns a device passes it to [New], or to
// [NewFromProvider] when it implements gpucontext.DeviceProvider.
package native
