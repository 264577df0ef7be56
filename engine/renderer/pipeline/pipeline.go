package pipeline

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// TargetKind identifies the color attachment format a program renders into.
type TargetKind int

const (
	// TargetOffscreen renders into RGBA8 intermediate targets such as the G-buffer.
	TargetOffscreen TargetKind = iota

	// TargetSurface renders into the presentation surface in its native format.
	TargetSurface
)

// pipeline is the implementation of the Pipeline interface.
// It holds the shader stages, fixed-function state, host kernel and, once registered on a GPU
// backend, the compiled render pipeline and its bind group layouts.
type pipeline struct {
	// pipelineKey is the unique identifier for this program, used for registry lookups
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// renderPipeline and bindGroupLayouts are populated by the wgpu backend on registration
	renderPipeline   *wgpu.RenderPipeline
	bindGroupLayouts []*wgpu.BindGroupLayout

	// kernel is the host implementation used by the software backend
	kernel raster.Kernel

	blendEnabled bool
	blendState   *wgpu.BlendState
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	target       TargetKind

	released bool
}

// Pipeline defines the interface for a shader program: a vertex and fragment shader pair plus the
// fixed-function state and host kernel needed to draw the shared quad with it.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this program, used for registry lookups.
	//
	// Returns:
	//   - string: the unique key for this program
	PipelineKey() string

	// Shader retrieves the shader for the given stage, or nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader for that stage, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Bindings returns the resource declarations of both stages, vertex first.
	//
	// Returns:
	//   - []shader.Binding: the declared resources
	Bindings() []shader.Binding

	// TextureNames returns the variable names of every texture binding, which form the
	// program's sampler contract.
	//
	// Returns:
	//   - []string: texture variable names in binding order
	TextureNames() []string

	// Pipeline returns the compiled GPU pipeline, or nil on the software backend or before registration.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the compiled pipeline
	Pipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the compiled GPU pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// BindGroupLayouts returns the GPU bind group layouts indexed by group.
	//
	// Returns:
	//   - []*wgpu.BindGroupLayout: one layout per group index
	BindGroupLayouts() []*wgpu.BindGroupLayout

	// SetBindGroupLayouts stores the GPU bind group layouts created on registration.
	//
	// Parameters:
	//   - layouts: one layout per group index
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// Kernel returns the host implementation of the program.
	//
	// Returns:
	//   - raster.Kernel: the kernel, which may be invalid if none was supplied
	Kernel() raster.Kernel

	// BlendEnabled returns whether blending is enabled for this program.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// BlendState returns the blend state configured for this program.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state for this program
	BlendState() *wgpu.BlendState

	// CullMode returns the cull mode configured for this program.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this program.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this program.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this program.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask
	WriteMask() wgpu.ColorWriteMask

	// Target returns the kind of color attachment this program renders into.
	//
	// Returns:
	//   - TargetKind: TargetOffscreen or TargetSurface
	Target() TargetKind

	// Release frees the GPU objects owned by the program. Further draws with it are invalid.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once released
	Released() bool
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. Shaders are attached with
// WithVertexShader and WithFragmentShader; the default state is alpha blending into an
// offscreen target with a triangle list topology and no culling.
//
// Parameters:
//   - pipelineKey: the unique key for this program
//   - opts: a variadic list of PipelineBuilderOption functions to configure the program
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		blendEnabled: true,
		blendState:   BlendAlpha(),
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
		target:       TargetOffscreen,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BlendAlpha returns the standard source-over blend state.
func BlendAlpha() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// BlendAdditive returns a blend state that sums color and keeps the larger alpha, so repeated
// draws of the same coverage accumulate light without inflating opacity.
func BlendAdditive() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationMax,
		},
	}
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) Bindings() []shader.Binding {
	var out []shader.Binding
	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
		if s != nil {
			out = append(out, s.Bindings()...)
		}
	}
	return out
}

func (p *pipeline) TextureNames() []string {
	var names []string
	for _, b := range p.Bindings() {
		if b.Kind == shader.BindingKindTexture {
			names = append(names, b.Name)
		}
	}
	return names
}

func (p *pipeline) Pipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) BindGroupLayouts() []*wgpu.BindGroupLayout {
	return p.bindGroupLayouts
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.bindGroupLayouts = layouts
}

func (p *pipeline) Kernel() raster.Kernel {
	return p.kernel
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Target() TargetKind {
	return p.target
}

func (p *pipeline) Release() {
	if p.released {
		return
	}
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
	p.released = true
}

func (p *pipeline) Released() bool {
	return p.released
}
