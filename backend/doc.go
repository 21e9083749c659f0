// Package backend defines the contract between the processing graph and the
// GPU.
//
// A [Device] allocates textures, geometry and shader programs behind opaque
// IDs and executes one draw pass at a time. The graph engine never touches a
// GPU API directly: it compiles a program per filter, binds input textures
// and renders into output textures through this interface.
//
// # Implementations
//
// Two devices ship with the module and register themselves on import:
//
//   - backend/cpu evaluates filters with Go kernels on the CPU. It is exact,
//     deterministic and needs no GPU.
//   - backend/native drives a wgpu HAL device (Vulkan, Metal, DX12, GLES).
//
// Use [Open] to pick one by name, or the best available:
//
//	import _ "github.com/ronan-kerviche/glip-lib-sub003/backend/cpu"
//
//	dev, err := backend.Open(backend.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Resource IDs
//
// IDs are plain integers. [InvalidID] is never issued. IDs become invalid
// after their Destroy call and must not be reused.
package backend
