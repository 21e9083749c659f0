package cpu

import "github.com/gogpu/gputypes"

// blend combines a fragment color with the destination texel as a WebGPU
// color target does. The blend constant is zero.
func blend(state *gputypes.BlendState, src, dst [4]float32) [4]float32 {
	var out [4]float32
	for k := range 3 {
		out[k] = blendChannel(&state.Color, k, src, dst)
	}
	out[3] = blendChannel(&state.Alpha, 3, src, dst)
	return out
}

func blendChannel(c *gputypes.BlendComponent, k int, src, dst [4]float32) float32 {
	s, d := src[k], dst[k]
	switch c.Operation {
	case gputypes.BlendOperationMin:
		return min(s, d)
	case gputypes.BlendOperationMax:
		return max(s, d)
	}
	fs := s * factor(c.SrcFactor, k, src, dst)
	fd := d * factor(c.DstFactor, k, src, dst)
	switch c.Operation {
	case gputypes.BlendOperationSubtract:
		return fs - fd
	case gputypes.BlendOperationReverseSubtract:
		return fd - fs
	default:
		return fs + fd
	}
}

// factor returns the blend factor applied to channel k.
func factor(f gputypes.BlendFactor, k int, src, dst [4]float32) float32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorOne:
		return 1
	case gputypes.BlendFactorSrc:
		return src[k]
	case gputypes.BlendFactorOneMinusSrc:
		return 1 - src[k]
	case gputypes.BlendFactorSrcAlpha:
		return src[3]
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - src[3]
	case gputypes.BlendFactorDst:
		return dst[k]
	case gputypes.BlendFactorOneMinusDst:
		return 1 - dst[k]
	case gputypes.BlendFactorDstAlpha:
		return dst[3]
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 1 - dst[3]
	case gputypes.BlendFactorSrcAlphaSaturated:
		if k == 3 {
			return 1
		}
		return min(src[3], 1-dst[3])
	case gputypes.BlendFactorConstant:
		return 0
	case gputypes.BlendFactorOneMinusConstant:
		return 1
	default:
		return 1
	}
}

// depthPasses applies a depth compare function to a fragment depth and the
// stored depth.
func depthPasses(f gputypes.CompareFunction, frag, stored float32) bool {
	switch f {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return frag < stored
	case gputypes.CompareFunctionEqual:
		return frag == stored
	case gputypes.CompareFunctionLessEqual:
		return frag <= stored
	case gputypes.CompareFunctionGreater:
		return frag > stored
	case gputypes.CompareFunctionNotEqual:
		return frag != stored
	case gputypes.CompareFunctionGreaterEqual:
		return frag >= stored
	default:
		return true
	}
}
