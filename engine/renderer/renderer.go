package renderer

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

const (
	// DefaultVirtualWidth and DefaultVirtualHeight are the render target size used when
	// WithVirtualResolution is not given.
	DefaultVirtualWidth  = 128
	DefaultVirtualHeight = 128
)

// DrawCall describes one draw of the shared full-screen quad.
type DrawCall struct {
	// Program is the registry key of the program to draw with.
	Program string
	// Target is the destination. Nil draws to the presentation surface.
	Target RenderTarget
	// Textures binds render targets to the program's texture variables by name.
	Textures map[string]RenderTarget
	// Uniforms supplies values for the program's uniform struct fields by name.
	Uniforms shader.Uniforms
}

// Stats is a snapshot of renderer counters.
type Stats struct {
	// ProgramsCompiled counts successful program registrations, replacements included.
	ProgramsCompiled int
	// TargetsLive is the number of render targets owned by the open frame.
	TargetsLive int
	// FramesPresented counts frames that reached the surface.
	FramesPresented int
	// FramesAborted counts frames discarded without presenting.
	FramesAborted int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	programCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	surfaceWidth, surfaceHeight int
	virtualWidth, virtualHeight int

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	targetBudget         int
	validateShaders      bool
	sampler              common.SamplerStagingData

	frameOpen    bool
	frameID      uint64
	frameTargets []*renderTarget

	stats Stats
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the shader program registry and the frame lifecycle. Every draw is a single
// full-screen quad rendered with a registered program into a frame-scoped RenderTarget or the
// presentation surface. Commands recorded between BeginFrame and Present become visible only at
// Present; AbortFrame discards them, so a failed frame never reaches the surface.
type Renderer interface {
	// Program retrieves the registered program with the given key.
	// If the program does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the program to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the program associated with the key, or nil if not found
	Program(key string) pipeline.Pipeline

	// Programs returns a copy of the registry.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of program keys to their registered programs
	Programs() map[string]pipeline.Pipeline

	// RegisterPrograms compiles each program through the backend and stores it by PipelineKey.
	// Keys that are already registered are skipped, so repeated calls compile nothing.
	//
	// Parameters:
	//   - programs: the programs to register
	//
	// Returns:
	//   - error: an error wrapping ErrShaderCompile if compilation fails
	RegisterPrograms(programs ...pipeline.Pipeline) error

	// ReplaceProgram compiles p and stores it under its key, releasing the program it replaces.
	// On failure the registry is unchanged.
	//
	// Parameters:
	//   - p: the program to compile and store
	//
	// Returns:
	//   - error: an error wrapping ErrShaderCompile if compilation fails
	ReplaceProgram(p pipeline.Pipeline) error

	// VirtualSize returns the render target size.
	//
	// Returns:
	//   - int: the virtual width in pixels
	//   - int: the virtual height in pixels
	VirtualSize() (int, int)

	// SurfaceSize returns the presentation surface size.
	//
	// Returns:
	//   - int: the surface width in pixels
	//   - int: the surface height in pixels
	SurfaceSize() (int, int)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	Resize(width, height int) error

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// BeginFrame opens a frame. Must be paired with Present or AbortFrame.
	//
	// Returns:
	//   - error: ErrFrameInProgress if a frame is already open, or a backend error
	BeginFrame() error

	// NewRenderTarget allocates a transparent-black target at the virtual resolution that lives
	// until the frame ends.
	//
	// Parameters:
	//   - label: a debug label
	//
	// Returns:
	//   - RenderTarget: the new target
	//   - error: ErrNoFrame outside a frame, or an error wrapping ErrTargetAllocation
	NewRenderTarget(label string) (RenderTarget, error)

	// Clear overwrites a target, or the surface when target is nil, with a solid color.
	//
	// Parameters:
	//   - target: the target to clear, nil for the surface
	//   - color: the RGBA clear color
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, ErrStaleTarget for targets of another frame
	Clear(target RenderTarget, color [4]float32) error

	// Draw records one quad draw.
	//
	// Parameters:
	//   - dc: the draw description
	//
	// Returns:
	//   - error: ErrProgramNotFound, ErrMissingTexture, ErrTargetMismatch, ErrStaleTarget or a backend error
	Draw(dc DrawCall) error

	// Present submits the frame and displays the surface, then releases the frame's targets.
	// If submission fails the frame is aborted instead.
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, or a backend error
	Present() error

	// AbortFrame discards the open frame without presenting. It is a no-op outside a frame.
	AbortFrame()

	// ReadTarget copies a live target's pixels to the host.
	//
	// Parameters:
	//   - target: a target of the open frame
	//
	// Returns:
	//   - *image.NRGBA: the pixels, row 0 at the top
	//   - error: ErrReadbackUnsupported on the wgpu backend
	ReadTarget(target RenderTarget) (*image.NRGBA, error)

	// PresentedFrame returns the pixels of the last presented surface.
	//
	// Returns:
	//   - *image.NRGBA: the pixels, row 0 at the top
	//   - error: ErrReadbackUnsupported on the wgpu backend
	PresentedFrame() (*image.NRGBA, error)

	// Stats returns a snapshot of the renderer counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// Release aborts any open frame, releases every registered program and frees the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and surface.
// The wgpu backend needs a surface with a platform descriptor, typically a window.Window; the
// software backend accepts any Surface, including NewOffscreenSurface.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - surface: the presentation surface
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the backend could not be initialized
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		programCache:  make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		surfaceWidth:  surface.Width(),
		surfaceHeight: surface.Height(),
		virtualWidth:  DefaultVirtualWidth,
		virtualHeight: DefaultVirtualHeight,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.virtualWidth <= 0 || r.virtualHeight <= 0 {
		return nil, fmt.Errorf("renderer: invalid virtual resolution %dx%d", r.virtualWidth, r.virtualHeight)
	}

	var err error
	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.validateShaders)
	case BackendTypeWGPU:
		r.backend, err = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, r.sampler)
	default:
		err = fmt.Errorf("renderer: unknown backend type %d", backendType)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if err := r.backend.ConfigureSurface(r.surfaceWidth, r.surfaceHeight); err != nil {
		r.backend.Release()
		return nil, err
	}

	common.Logger().Info("renderer created",
		"backend", backendType.String(),
		"surface", fmt.Sprintf("%dx%d", r.surfaceWidth, r.surfaceHeight),
		"virtual", fmt.Sprintf("%dx%d", r.virtualWidth, r.virtualHeight))
	return r, nil
}

func (r *renderer) Program(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.programCache[key]
}

func (r *renderer) Programs() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.programCache)
}

func (r *renderer) RegisterPrograms(programs ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range programs {
		key := p.PipelineKey()
		if _, exists := r.programCache[key]; exists {
			continue
		}
		if err := r.compile(p); err != nil {
			return err
		}
		r.programCache[key] = p
	}
	return nil
}

func (r *renderer) ReplaceProgram(p pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.compile(p); err != nil {
		return err
	}
	key := p.PipelineKey()
	if old, exists := r.programCache[key]; exists && old != p {
		old.Release()
	}
	r.programCache[key] = p
	return nil
}

// compile registers p with the backend. Callers hold r.mu.
func (r *renderer) compile(p pipeline.Pipeline) error {
	if err := r.backend.RegisterProgram(p); err != nil {
		if !errors.Is(err, ErrShaderCompile) {
			err = fmt.Errorf("%w: %s: %w", ErrShaderCompile, p.PipelineKey(), err)
		}
		return err
	}
	r.stats.ProgramsCompiled++
	common.Logger().Debug("program registered", "program", p.PipelineKey(), "backend", r.backendType.String())
	return nil
}

func (r *renderer) VirtualSize() (int, int) {
	return r.virtualWidth, r.virtualHeight
}

func (r *renderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surfaceWidth, r.surfaceHeight
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return err
	}
	r.surfaceWidth, r.surfaceHeight = width, height
	return nil
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frameOpen {
		return ErrFrameInProgress
	}
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.frameOpen = true
	r.frameID++
	return nil
}

func (r *renderer) NewRenderTarget(label string) (RenderTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frameOpen {
		return nil, ErrNoFrame
	}
	if r.targetBudget > 0 && len(r.frameTargets) >= r.targetBudget {
		return nil, fmt.Errorf("%w: %s: budget of %d targets exhausted", ErrTargetAllocation, label, r.targetBudget)
	}

	backing, err := r.backend.NewTarget(label, r.virtualWidth, r.virtualHeight)
	if err != nil {
		if !errors.Is(err, ErrTargetAllocation) {
			err = fmt.Errorf("%w: %s: %w", ErrTargetAllocation, label, err)
		}
		return nil, err
	}

	t := &renderTarget{
		label:   label,
		width:   r.virtualWidth,
		height:  r.virtualHeight,
		frame:   r.frameID,
		backing: backing,
	}
	r.frameTargets = append(r.frameTargets, t)
	return t, nil
}

func (r *renderer) Clear(target RenderTarget, color [4]float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frameOpen {
		return ErrNoFrame
	}
	backing, err := r.resolve(target)
	if err != nil {
		return err
	}
	return r.backend.Clear(backing, color)
}

func (r *renderer) Draw(dc DrawCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frameOpen {
		return ErrNoFrame
	}

	p, exists := r.programCache[dc.Program]
	if !exists || p.Released() {
		return fmt.Errorf("%w: %q", ErrProgramNotFound, dc.Program)
	}

	switch {
	case p.Target() == pipeline.TargetSurface && dc.Target != nil:
		return fmt.Errorf("%w: %q renders to the surface, got target %q", ErrTargetMismatch, dc.Program, dc.Target.Label())
	case p.Target() == pipeline.TargetOffscreen && dc.Target == nil:
		return fmt.Errorf("%w: %q renders offscreen, got the surface", ErrTargetMismatch, dc.Program)
	}

	target, err := r.resolve(dc.Target)
	if err != nil {
		return err
	}

	names := p.TextureNames()
	textures := make(map[string]targetBacking, len(names))
	for _, name := range names {
		t, ok := dc.Textures[name]
		if !ok || t == nil {
			return fmt.Errorf("%w: %q samples %q", ErrMissingTexture, dc.Program, name)
		}
		if dc.Target != nil && t == dc.Target {
			return fmt.Errorf("%w: %q samples its own target %q", ErrTargetMismatch, dc.Program, t.Label())
		}
		backing, resolveErr := r.resolve(t)
		if resolveErr != nil {
			return resolveErr
		}
		textures[name] = backing
	}

	return r.backend.Draw(p, target, textures, dc.Uniforms)
}

// resolve maps a RenderTarget of the open frame to its backing. A nil target resolves to nil,
// which backends treat as the surface. Callers hold r.mu.
func (r *renderer) resolve(target RenderTarget) (targetBacking, error) {
	if target == nil {
		return nil, nil
	}
	t, ok := target.(*renderTarget)
	if !ok || t.backing == nil || t.frame != r.frameID {
		return nil, fmt.Errorf("%w: %q", ErrStaleTarget, target.Label())
	}
	return t.backing, nil
}

func (r *renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frameOpen {
		return ErrNoFrame
	}
	if err := r.backend.Present(); err != nil {
		r.abortLocked()
		return err
	}
	r.endFrame()
	r.stats.FramesPresented++
	return nil
}

func (r *renderer) AbortFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked()
}

func (r *renderer) abortLocked() {
	if !r.frameOpen {
		return
	}
	r.backend.AbortFrame()
	r.endFrame()
	r.stats.FramesAborted++
	common.Logger().Warn("frame aborted", "frame", r.frameID)
}

// endFrame releases the frame's targets and closes the frame. Callers hold r.mu.
func (r *renderer) endFrame() {
	for _, t := range r.frameTargets {
		t.backing.release()
		t.backing = nil
	}
	r.frameTargets = r.frameTargets[:0]
	r.frameOpen = false
}

func (r *renderer) ReadTarget(target RenderTarget) (*image.NRGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrStaleTarget)
	}
	backing, err := r.resolve(target)
	if err != nil {
		return nil, err
	}
	return r.backend.ReadTarget(backing)
}

func (r *renderer) PresentedFrame() (*image.NRGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.PresentedFrame()
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.TargetsLive = len(r.frameTargets)
	return s
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.abortLocked()
	for key, p := range r.programCache {
		p.Release()
		delete(r.programCache, key)
	}
	r.backend.Release()
}
