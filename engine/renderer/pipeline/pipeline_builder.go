package pipeline

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this program.
//
// Parameters:
//   - s: the vertex shader to use for this program
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this program
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this program.
//
// Parameters:
//   - s: the fragment shader to use for this program
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this program
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithKernel sets the host implementation run by the software backend.
//
// Parameters:
//   - k: the kernel mirroring the WGSL stages
//
// Returns:
//   - PipelineBuilderOption: a function that sets the kernel for this program
func WithKernel(k raster.Kernel) PipelineBuilderOption {
	return func(p *pipeline) {
		p.kernel = k
	}
}

// WithBlendEnabled sets whether blending is enabled for this program. Disabled blending replaces
// the destination.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this program
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithBlendState sets the blend state for this program and enables blending.
//
// Parameters:
//   - blendState: the blend state to use, e.g. BlendAlpha() or BlendAdditive()
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this program
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
		p.blendEnabled = blendState != nil
	}
}

// WithCullMode sets the cull mode for this program.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the front face winding order for this program.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this program.
//
// Parameters:
//   - writeMask: the color write mask to use, e.g. wgpu.ColorWriteMaskAll
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this program
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithTarget sets the kind of color attachment this program renders into.
//
// Parameters:
//   - target: TargetOffscreen for intermediate targets, TargetSurface for the presentation surface
//
// Returns:
//   - PipelineBuilderOption: a function that sets the target kind for this program
func WithTarget(target TargetKind) PipelineBuilderOption {
	return func(p *pipeline) {
		p.target = target
	}
}
