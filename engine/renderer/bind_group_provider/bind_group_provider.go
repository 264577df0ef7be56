package bind_group_provider

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProvider collects the resources of one bind group of one draw and creates the
// wgpu.BindGroup from them.
//
// Usage pattern:
//  1. The backend creates a provider for each group layout of the program being drawn
//  2. It attaches a uniform buffer, the sampled target views and the shared sampler by binding
//  3. Create builds the bind group against the program's layout
//  4. The provider lives until the frame ends, then Release frees what it owns
//
// A provider owns its bind group and its uniform buffers. Texture views, samplers and the
// layout are borrowed and never released by the provider.
type BindGroupProvider interface {
	// Release releases the bind group and the uniform buffers. Safe to call more than once.
	Release()

	// Label returns the debug label for this provider.
	Label() string

	// BindGroup returns the created bind group, or nil before Create.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group is created against.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the uniform buffer at binding, or nil.
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at binding, or nil.
	Sampler(binding int) *wgpu.Sampler

	// SetBuffer attaches an owned uniform buffer at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer, released with the provider
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView attaches a borrowed texture view at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler attaches a borrowed sampler at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// Entries returns the bind group entries in ascending binding order.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: one entry per attached resource
	//   - error: an error if a binding has more than one resource attached
	Entries() ([]wgpu.BindGroupEntry, error)

	// Create builds the bind group on device. Calling it again replaces the previous bind group.
	//
	// Parameters:
	//   - device: the device that owns the layout
	//
	// Returns:
	//   - error: an error if the entries are inconsistent or the device rejects them
	Create(device *wgpu.Device) error
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is owned: created by Create and released by Release.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is borrowed from the program.
	bindGroupLayout *wgpu.BindGroupLayout

	// buffers are owned uniform buffers keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews are borrowed render target views keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers are borrowed samplers keyed by binding index.
	samplers map[int]*wgpu.Sampler
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label used for the bind group
//   - options: functional options to configure the provider
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Entries() ([]wgpu.BindGroupEntry, error) {
	byBinding := make(map[int]wgpu.BindGroupEntry, len(p.buffers)+len(p.textureViews)+len(p.samplers))
	add := func(binding int, entry wgpu.BindGroupEntry) error {
		if _, dup := byBinding[binding]; dup {
			return fmt.Errorf("%s: binding %d has more than one resource", p.label, binding)
		}
		entry.Binding = uint32(binding)
		byBinding[binding] = entry
		return nil
	}

	for binding, buf := range p.buffers {
		if err := add(binding, wgpu.BindGroupEntry{Buffer: buf, Size: wgpu.WholeSize}); err != nil {
			return nil, err
		}
	}
	for binding, tv := range p.textureViews {
		if err := add(binding, wgpu.BindGroupEntry{TextureView: tv}); err != nil {
			return nil, err
		}
	}
	for binding, s := range p.samplers {
		if err := add(binding, wgpu.BindGroupEntry{Sampler: s}); err != nil {
			return nil, err
		}
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(byBinding))
	for _, binding := range slices.Sorted(maps.Keys(byBinding)) {
		entries = append(entries, byBinding[binding])
	}
	return entries, nil
}

func (p *bindGroupProvider) Create(device *wgpu.Device) error {
	if p.bindGroupLayout == nil {
		return fmt.Errorf("%s: no bind group layout", p.label)
	}
	entries, err := p.Entries()
	if err != nil {
		return err
	}
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label,
		Layout:  p.bindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	return nil
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	clear(p.textureViews)
	clear(p.samplers)
}
