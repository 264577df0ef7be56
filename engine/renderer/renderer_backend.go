package renderer

import (
	"image"

	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the host-memory rasterizer. It needs no GPU or window and
	// can read back every target.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// RendererBackend is the frame-level contract every backend implements. The Renderer owns the
// program registry, frame bookkeeping and validation; the backend only executes.
type RendererBackend interface {
	// ConfigureSurface (re)creates the presentation surface at the given size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode. It takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// RegisterProgram compiles the program's stages and stores the backend objects on it.
	//
	// Parameters:
	//   - p: the program to compile
	//
	// Returns:
	//   - error: an error wrapping ErrShaderCompile if compilation fails
	RegisterProgram(p pipeline.Pipeline) error

	// NewTarget allocates an RGBA8 color target.
	//
	// Parameters:
	//   - label: a debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - targetBacking: the backend storage
	//   - error: an error if allocation fails
	NewTarget(label string, width, height int) (targetBacking, error)

	// BeginFrame prepares per-frame command state.
	//
	// Returns:
	//   - error: an error if the frame could not be started
	BeginFrame() error

	// Clear overwrites every pixel of a target, or of the surface when target is nil.
	//
	// Parameters:
	//   - target: the target to clear, nil for the surface
	//   - color: the RGBA clear color
	//
	// Returns:
	//   - error: an error if the clear could not be recorded
	Clear(target targetBacking, color [4]float32) error

	// Draw records one draw of the shared quad with the given program.
	//
	// Parameters:
	//   - p: the registered program
	//   - target: the destination, nil for the surface
	//   - textures: the sampled targets keyed by WGSL variable name
	//   - uniforms: uniform values keyed by struct field name
	//
	// Returns:
	//   - error: an error if the draw could not be recorded
	Draw(p pipeline.Pipeline, target targetBacking, textures map[string]targetBacking, uniforms shader.Uniforms) error

	// Present submits the recorded frame and displays the surface.
	//
	// Returns:
	//   - error: an error if submission or presentation failed
	Present() error

	// AbortFrame discards every recorded command and per-frame resource without presenting.
	AbortFrame()

	// ReadTarget copies a target's pixels to the host.
	//
	// Parameters:
	//   - target: the target to read
	//
	// Returns:
	//   - *image.NRGBA: the pixels, row 0 at the top
	//   - error: ErrReadbackUnsupported on backends without readback
	ReadTarget(target targetBacking) (*image.NRGBA, error)

	// PresentedFrame returns the pixels of the last presented surface.
	//
	// Returns:
	//   - *image.NRGBA: the pixels, row 0 at the top
	//   - error: ErrReadbackUnsupported on backends without readback, ErrNoFrame if nothing was presented yet
	PresentedFrame() (*image.NRGBA, error)

	// Release frees every backend object.
	Release()
}
