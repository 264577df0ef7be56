package renderer

import "github.com/Carmen-Shannon/oxy-lumen/common"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithVirtualResolution sets the size of every render target. It is fixed for the renderer's
// lifetime and independent of the surface size. The default is 128x128.
//
// Parameters:
//   - width: the virtual width in pixels
//   - height: the virtual height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the virtual resolution option to a renderer
func WithVirtualResolution(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.virtualWidth = width
		r.virtualHeight = height
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). It has no effect on BackendTypeSoftware.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithTargetBudget caps the number of render targets live within one frame. Allocations past the
// budget fail with ErrTargetAllocation. Zero, the default, means unlimited.
//
// Parameters:
//   - budget: the maximum number of live targets per frame
//
// Returns:
//   - RendererBuilderOption: a function that applies the target budget option to a renderer
func WithTargetBudget(budget int) RendererBuilderOption {
	return func(r *renderer) {
		r.targetBudget = budget
	}
}

// WithShaderValidation compiles every WGSL stage with naga during registration on the software
// backend, so malformed shaders fail with ErrShaderCompile without a GPU.
//
// Parameters:
//   - validate: true to validate WGSL on registration
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader validation option to a renderer
func WithShaderValidation(validate bool) RendererBuilderOption {
	return func(r *renderer) {
		r.validateShaders = validate
	}
}

// WithSampler overrides the sampler shared by every texture binding on the wgpu backend.
// Zero-valued fields keep the defaults of nearest filtering and mirrored wrapping, which the
// software backend always uses.
//
// Parameters:
//   - sampler: the sampler configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the sampler option to a renderer
func WithSampler(sampler common.SamplerStagingData) RendererBuilderOption {
	return func(r *renderer) {
		r.sampler = sampler
	}
}
