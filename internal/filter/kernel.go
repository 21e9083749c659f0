package filter

import (
	"math"

	"github.com/ronan-kerviche/glip-lib-sub003/internal/cache"
)

// GaussianKernel generates a 1D Gaussian kernel for the standard deviation
// sigma. The kernel is normalized so all values sum to 1.0.
//
// The kernel size is 2 * ceil(sigma * 3) + 1, which covers 99.7% of the
// distribution. For sigma <= 0 it returns [1.0] (identity).
func GaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1.0}
	}

	half := KernelRadius(sigma)
	kernel := make([]float32, 2*half+1)

	// The 1/(σ√(2π)) factor cancels out in the normalization.
	twoSigmaSq := 2 * sigma * sigma
	sum := 0.0
	weights := make([]float64, len(kernel))
	for i := range kernel {
		x := float64(i - half)
		weights[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += weights[i]
	}
	for i, w := range weights {
		kernel[i] = float32(w / sum)
	}
	return kernel
}

// KernelRadius returns the number of taps on each side of the center for
// sigma.
func KernelRadius(sigma float64) int {
	if sigma <= 0 {
		return 0
	}
	return int(math.Ceil(sigma * 3))
}

// kernels caches Gaussian kernels keyed by sigma quantized to 1/100.
var kernels = cache.New[int, []float32](64)

// CachedGaussianKernel returns a shared Gaussian kernel for sigma. The
// returned slice must not be modified.
func CachedGaussianKernel(sigma float64) []float32 {
	key := int(math.Round(sigma * 100))
	k, _ := kernels.GetOrCreate(key, func() ([]float32, error) {
		return GaussianKernel(float64(key) / 100), nil
	})
	return k
}

// KernelCacheStats returns statistics of the kernel cache.
func KernelCacheStats() cache.Stats { return kernels.Stats() }
