package deferred

import "github.com/Carmen-Shannon/oxy-lumen/engine/renderer"

// GBuffer is the set of virtual-resolution targets a frame's drawables write into.
// Every target starts the frame as transparent black.
type GBuffer struct {
	// Albedo holds the surface color and coverage.
	Albedo renderer.RenderTarget
	// Height holds the surface height in the red channel, 0 at the ground plane and 1 at the viewer.
	Height renderer.RenderTarget
	// Roughness holds the reflection roughness in the red channel.
	Roughness renderer.RenderTarget
	// Normal holds unit normals packed as rgb*0.5+0.5. Zero alpha means a flat surface.
	Normal renderer.RenderTarget
}

// Drawable is anything that can write itself into the G-buffer.
type Drawable interface {
	// EnsureShadersLoaded registers every program the drawable draws with. It is called before
	// any geometry of a frame is submitted and must be cheap once the programs exist. Drawables
	// that emit through the Draw* passes provision them here with EnsurePasses.
	//
	// Parameters:
	//   - r: the renderer whose registry receives the programs
	//
	// Returns:
	//   - error: an error wrapping renderer.ErrShaderCompile if a program fails to compile
	EnsureShadersLoaded(r renderer.Renderer) error

	// Emit draws the drawable into any subset of the G-buffer targets. Targets it does not
	// draw into are left untouched.
	//
	// Parameters:
	//   - r: the renderer, inside an open frame
	//   - g: the frame's G-buffer
	//
	// Returns:
	//   - error: a draw error from the renderer
	Emit(r renderer.Renderer, g GBuffer) error
}
