package raster

import (
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// Blend combines a fragment color with the destination pixel.
type Blend func(src, dst [4]float32) [4]float32

// Replace writes the source color unchanged.
func Replace(src, _ [4]float32) [4]float32 {
	return src
}

// BlendFunc evaluates a wgpu.BlendState on the host, so one pipeline description drives both the
// GPU and the software path. A nil state replaces the destination.
//
// Parameters:
//   - state: the blend state, or nil for no blending
//
// Returns:
//   - Blend: the equivalent host blend function
func BlendFunc(state *wgpu.BlendState) Blend {
	if state == nil {
		return Replace
	}
	color, alpha := state.Color, state.Alpha
	return func(src, dst [4]float32) [4]float32 {
		var out [4]float32
		for ch := range 3 {
			out[ch] = blendComponent(color, src[ch], dst[ch], src[3], dst[3])
		}
		out[3] = blendComponent(alpha, src[3], dst[3], src[3], dst[3])
		return out
	}
}

func blendComponent(c wgpu.BlendComponent, src, dst, srcAlpha, dstAlpha float32) float32 {
	s := src * blendFactor(c.SrcFactor, src, dst, srcAlpha, dstAlpha)
	d := dst * blendFactor(c.DstFactor, src, dst, srcAlpha, dstAlpha)
	var v float32
	switch c.Operation {
	case wgpu.BlendOperationSubtract:
		v = s - d
	case wgpu.BlendOperationReverseSubtract:
		v = d - s
	case wgpu.BlendOperationMin:
		v = math32.Min(src, dst)
	case wgpu.BlendOperationMax:
		v = math32.Max(src, dst)
	default:
		v = s + d
	}
	return math32.Max(0, math32.Min(1, v))
}

func blendFactor(f wgpu.BlendFactor, src, dst, srcAlpha, dstAlpha float32) float32 {
	switch f {
	case wgpu.BlendFactorZero:
		return 0
	case wgpu.BlendFactorOne:
		return 1
	case wgpu.BlendFactorSrc:
		return src
	case wgpu.BlendFactorOneMinusSrc:
		return 1 - src
	case wgpu.BlendFactorSrcAlpha:
		return srcAlpha
	case wgpu.BlendFactorOneMinusSrcAlpha:
		return 1 - srcAlpha
	case wgpu.BlendFactorDst:
		return dst
	case wgpu.BlendFactorOneMinusDst:
		return 1 - dst
	case wgpu.BlendFactorDstAlpha:
		return dstAlpha
	case wgpu.BlendFactorOneMinusDstAlpha:
		return 1 - dstAlpha
	default:
		return 1
	}
}
