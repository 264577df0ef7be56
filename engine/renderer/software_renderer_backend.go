package renderer

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/gogpu/naga"
)

// softwareRendererBackendImpl executes programs through their raster kernels in host memory.
// The surface is an offscreen texture that becomes the presented frame on Present.
type softwareRendererBackendImpl struct {
	mu *sync.Mutex

	validate bool

	surface   *raster.Texture
	presented *raster.Texture

	frameOpen bool
}

type softwareTarget struct {
	tex *raster.Texture
}

func (t *softwareTarget) release() {
	t.tex = nil
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(validate bool) RendererBackend {
	return &softwareRendererBackendImpl{
		mu:       &sync.Mutex{},
		validate: validate,
	}
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("renderer: invalid surface size %dx%d", width, height)
	}
	b.surface = raster.NewTexture(width, height)
	b.presented = nil
	return nil
}

// SetPresentMode has no meaning without a display.
func (b *softwareRendererBackendImpl) SetPresentMode(PresentMode) {}

func (b *softwareRendererBackendImpl) RegisterProgram(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return fmt.Errorf("%w: %s: both vertex and fragment shaders must be set", ErrShaderCompile, p.PipelineKey())
	}
	if !p.Kernel().Valid() {
		return fmt.Errorf("%w: %s: program has no raster kernel", ErrShaderCompile, p.PipelineKey())
	}
	if !b.validate {
		return nil
	}
	for _, s := range []shader.Shader{vertexShader, fragmentShader} {
		if _, err := naga.Compile(s.Source()); err != nil {
			return fmt.Errorf("%w: %s: %s stage: %w", ErrShaderCompile, p.PipelineKey(), s.ShaderType(), err)
		}
	}
	return nil
}

func (b *softwareRendererBackendImpl) NewTarget(label string, width, height int) (targetBacking, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid size %dx%d", ErrTargetAllocation, label, width, height)
	}
	return &softwareTarget{tex: raster.NewTexture(width, height)}, nil
}

func (b *softwareRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frameOpen = true
	return nil
}

func (b *softwareRendererBackendImpl) Clear(target targetBacking, color [4]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.texture(target)
	if err != nil {
		return err
	}
	dst.Clear(color)
	return nil
}

func (b *softwareRendererBackendImpl) Draw(p pipeline.Pipeline, target targetBacking, textures map[string]targetBacking, uniforms shader.Uniforms) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.texture(target)
	if err != nil {
		return err
	}

	// Pack every uniform block so missing values fail the same way they do on the GPU.
	for _, binding := range p.Bindings() {
		if binding.Kind != shader.BindingKindUniform {
			continue
		}
		if _, packErr := binding.Uniform.Pack(uniforms); packErr != nil {
			return fmt.Errorf("renderer: %s: %w", p.PipelineKey(), packErr)
		}
	}

	env := &raster.Env{
		Uniforms: uniforms,
		Textures: make(map[string]*raster.Texture, len(textures)),
	}
	for name, t := range textures {
		tex, texErr := b.texture(t)
		if texErr != nil {
			return texErr
		}
		env.Textures[name] = tex
	}

	blend := raster.Replace
	if p.BlendEnabled() {
		blend = raster.BlendFunc(p.BlendState())
	}
	raster.DrawQuad(dst, common.QuadVertices, p.Kernel(), env, blend)
	return nil
}

// texture resolves a backing to its host texture; nil is the surface. Callers hold b.mu.
func (b *softwareRendererBackendImpl) texture(target targetBacking) (*raster.Texture, error) {
	if target == nil {
		if b.surface == nil {
			return nil, fmt.Errorf("renderer: surface not configured")
		}
		return b.surface, nil
	}
	t, ok := target.(*softwareTarget)
	if !ok || t.tex == nil {
		return nil, ErrStaleTarget
	}
	return t.tex, nil
}

func (b *softwareRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.presented == nil || b.presented.Width() != b.surface.Width() || b.presented.Height() != b.surface.Height() {
		b.presented = raster.NewTexture(b.surface.Width(), b.surface.Height())
	}
	b.presented.CopyFrom(b.surface)
	b.frameOpen = false
	return nil
}

func (b *softwareRendererBackendImpl) AbortFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frameOpen = false
}

func (b *softwareRendererBackendImpl) ReadTarget(target targetBacking) (*image.NRGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.texture(target)
	if err != nil {
		return nil, err
	}
	return tex.ToImage(), nil
}

func (b *softwareRendererBackendImpl) PresentedFrame() (*image.NRGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.presented == nil {
		return nil, fmt.Errorf("%w: nothing presented yet", ErrNoFrame)
	}
	return b.presented.ToImage(), nil
}

func (b *softwareRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surface = nil
	b.presented = nil
}
