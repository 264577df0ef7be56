package renderer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// targetFormat is the color format of every offscreen render target.
const targetFormat = wgpu.TextureFormatRGBA8Unorm

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// quadBuffer holds common.QuadVertices for the lifetime of the backend
	quadBuffer *wgpu.Buffer
	sampler    *wgpu.Sampler

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// frameProviders own the per-draw uniform buffers and bind groups, released when the frame ends
	frameProviders []bind_group_provider.BindGroupProvider
}

type wgpuTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *wgpuTarget) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// wgpuRendererBackend extends RendererBackend with access to the underlying WebGPU objects.
type wgpuRendererBackend interface {
	RendererBackend

	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampler common.SamplerStagingData) (wgpuRendererBackend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("renderer: the wgpu backend requires a window surface")
	}

	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	quad := common.SliceToBytes(common.QuadVertices[:])
	w.quadBuffer, err = d.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Quad Vertex Buffer",
		Size:  uint64(len(quad)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: create quad buffer: %w", err)
	}
	w.queue.WriteBuffer(w.quadBuffer, 0, quad)

	w.sampler, err = d.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Target Sampler",
		AddressModeU:  common.Coalesce(sampler.AddressModeU, wgpu.AddressModeMirrorRepeat),
		AddressModeV:  common.Coalesce(sampler.AddressModeV, wgpu.AddressModeMirrorRepeat),
		AddressModeW:  common.Coalesce(sampler.AddressModeW, wgpu.AddressModeMirrorRepeat),
		MagFilter:     common.Coalesce(sampler.MagFilter, wgpu.FilterModeNearest),
		MinFilter:     common.Coalesce(sampler.MinFilter, wgpu.FilterModeNearest),
		MipmapFilter:  common.Coalesce(sampler.MipmapFilter, wgpu.MipmapFilterModeNearest),
		LodMinClamp:   common.Coalesce(sampler.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(sampler.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(sampler.MaxAnisotropy, 1),
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: create sampler: %w", err)
	}

	common.Logger().Info("wgpu device ready", "fallback", forceFallbackAdapter)
	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("renderer: invalid surface size %dx%d", width, height)
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return errors.New("renderer: surface reports no supported formats")
	}
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// RegisterProgram creates the shader modules, bind group layouts, pipeline layout and render
// pipeline for p. Surface programs use the surface format; all others render RGBA8.
func (b *wgpuRendererBackendImpl) RegisterProgram(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return fmt.Errorf("%w: %s: both vertex and fragment shaders must be set", ErrShaderCompile, p.PipelineKey())
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrShaderCompile, vertexShader.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrShaderCompile, fragmentShader.Key(), err)
	}
	defer fs.Release()

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	maxGroup := -1
	for g := range merged {
		if g > maxGroup {
			maxGroup = g
		}
	}
	// Unused group indices below maxGroup still need a layout; they get an empty one.
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range bindGroupLayouts {
		desc, ok := merged[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s empty group %d", p.PipelineKey(), g)}
		}
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			releaseLayouts(bindGroupLayouts)
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		releaseLayouts(bindGroupLayouts)
		return err
	}
	defer pipelineLayout.Release()

	format := targetFormat
	if p.Target() == pipeline.TargetSurface {
		format = *b.surfaceFormat
	}
	colorTarget := wgpu.ColorTargetState{
		Format:    format,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		colorTarget.Blend = p.BlendState()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{colorTarget},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		releaseLayouts(bindGroupLayouts)
		return fmt.Errorf("%w: %s: %w", ErrShaderCompile, p.PipelineKey(), err)
	}

	p.SetRenderPipeline(created)
	p.SetBindGroupLayouts(bindGroupLayouts)
	return nil
}

func releaseLayouts(layouts []*wgpu.BindGroupLayout) {
	for _, l := range layouts {
		if l != nil {
			l.Release()
		}
	}
}

func (b *wgpuRendererBackendImpl) NewTarget(label string, width, height int) (targetBacking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        targetFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTargetAllocation, label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: %s view: %w", ErrTargetAllocation, label, err)
	}
	return &wgpuTarget{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return errors.New("renderer: previous frame not yet submitted")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

// attachment returns the view to render into, acquiring the swapchain texture on first use
// of the surface within a frame. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) attachment(target targetBacking) (*wgpu.TextureView, error) {
	if target != nil {
		t, ok := target.(*wgpuTarget)
		if !ok || t.view == nil {
			return nil, ErrStaleTarget
		}
		return t.view, nil
	}
	if b.frameView != nil {
		return b.frameView, nil
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("renderer: acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("renderer: create surface view: %w", err)
	}
	b.frameSurface = surfaceTexture
	b.frameView = view
	return view, nil
}

func (b *wgpuRendererBackendImpl) Clear(target targetBacking, color [4]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	view, err := b.attachment(target)
	if err != nil {
		return err
	}

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(color[0]), G: float64(color[1]), B: float64(color[2]), A: float64(color[3]),
				},
			},
		},
	})
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(p pipeline.Pipeline, target targetBacking, textures map[string]targetBacking, uniforms shader.Uniforms) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	renderPipeline := p.Pipeline()
	if renderPipeline == nil {
		return fmt.Errorf("%w: %q has no compiled pipeline", ErrProgramNotFound, p.PipelineKey())
	}

	bindGroups, err := b.bindGroups(p, textures, uniforms)
	if err != nil {
		return err
	}
	view, err := b.attachment(target)
	if err != nil {
		return err
	}

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(renderPipeline)
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	pass.SetVertexBuffer(0, b.quadBuffer, 0, wgpu.WholeSize)
	pass.Draw(uint32(len(common.QuadVertices)), 1, 0, 0)
	pass.End()
	pass.Release()
	return nil
}

// bindGroups builds one bind group per layout of p. Uniform structs are packed into fresh
// buffers, texture variables bind the named target views and samplers bind the shared
// sampler. Every provider created here lives until the frame ends. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) bindGroups(p pipeline.Pipeline, textures map[string]targetBacking, uniforms shader.Uniforms) ([]*wgpu.BindGroup, error) {
	layouts := p.BindGroupLayouts()
	providers := make([]bind_group_provider.BindGroupProvider, len(layouts))
	for g, layout := range layouts {
		providers[g] = bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s group %d", p.PipelineKey(), g),
			bind_group_provider.WithBindGroupLayout(layout),
		)
		b.frameProviders = append(b.frameProviders, providers[g])
	}

	var writes []bind_group_provider.BufferWrite
	seen := make(map[[2]int]bool)
	for _, binding := range p.Bindings() {
		key := [2]int{binding.Group, binding.Binding}
		if seen[key] || binding.Group >= len(layouts) {
			continue
		}
		seen[key] = true
		provider := providers[binding.Group]

		switch binding.Kind {
		case shader.BindingKindUniform:
			data, err := binding.Uniform.Pack(uniforms)
			if err != nil {
				return nil, fmt.Errorf("renderer: %s: %w", p.PipelineKey(), err)
			}
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: p.PipelineKey() + " " + binding.Name,
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, err
			}
			provider.SetBuffer(binding.Binding, buf)
			writes = append(writes, bind_group_provider.BufferWrite{Provider: provider, Binding: binding.Binding, Data: data})
		case shader.BindingKindTexture:
			t, ok := textures[binding.Name].(*wgpuTarget)
			if !ok || t.view == nil {
				return nil, fmt.Errorf("%w: %q samples %q", ErrMissingTexture, p.PipelineKey(), binding.Name)
			}
			provider.SetTextureView(binding.Binding, t.view)
		case shader.BindingKindSampler:
			provider.SetSampler(binding.Binding, b.sampler)
		default:
			return nil, fmt.Errorf("%w: %s: unsupported binding %q", ErrShaderCompile, p.PipelineKey(), binding.Name)
		}
	}

	if _, err := bind_group_provider.Flush(writes, func(w bind_group_provider.BufferWrite) error {
		return b.queue.WriteBuffer(w.Provider.Buffer(w.Binding), w.Offset, w.Data)
	}); err != nil {
		return nil, err
	}

	groups := make([]*wgpu.BindGroup, len(providers))
	for g, provider := range providers {
		if err := provider.Create(b.device); err != nil {
			return nil, err
		}
		groups[g] = provider.BindGroup()
	}
	return groups, nil
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.releaseFrame()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	if b.frameSurface != nil {
		b.surface.Present()
	}
	b.releaseFrame()
	return nil
}

func (b *wgpuRendererBackendImpl) AbortFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseFrame()
}

// releaseFrame drops the encoder, the swapchain texture and every per-draw object. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	for _, p := range b.frameProviders {
		p.Release()
	}
	b.frameProviders = b.frameProviders[:0]
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

// ReadTarget is not supported; GPU targets never leave the device.
func (b *wgpuRendererBackendImpl) ReadTarget(targetBacking) (*image.NRGBA, error) {
	return nil, ErrReadbackUnsupported
}

func (b *wgpuRendererBackendImpl) PresentedFrame() (*image.NRGBA, error) {
	return nil, ErrReadbackUnsupported
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.quadBuffer != nil {
		b.quadBuffer.Release()
		b.quadBuffer = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

// mergeBindGroupLayouts merges the per-stage layout descriptors of a program. Bindings declared
// by both stages keep one entry whose visibility covers both.
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
