//go:build !nogpu

package main

import (
	// Native device and the Vulkan HAL backend it opens.
	_ "github.com/gogpu/wgpu/hal/vulkan"
	_ "github.com/ronan-kerviche/glip-lib-sub003/backend/native"
)
