package renderer

import "github.com/cogentcore/webgpu/wgpu"

// Surface is the presentation target handed to NewRenderer. window.Window satisfies it.
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// SurfaceDescriptor returns the platform surface descriptor used by the wgpu backend,
	// or nil for headless surfaces.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type offscreenSurface struct {
	width, height int
}

// NewOffscreenSurface returns a headless Surface of the given size for the software backend.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - Surface: a surface with no platform window behind it
func NewOffscreenSurface(width, height int) Surface {
	return &offscreenSurface{width: width, height: height}
}

func (s *offscreenSurface) Width() int {
	return s.width
}

func (s *offscreenSurface) Height() int {
	return s.height
}

func (s *offscreenSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}
