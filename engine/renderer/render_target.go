package renderer

import "fmt"

// RenderTarget is a frame-scoped RGBA8 color target at the virtual resolution.
// Targets are created with Renderer.NewRenderTarget and released when the frame is presented or aborted.
type RenderTarget interface {
	// Label returns the debug label given at creation.
	Label() string

	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int
}

// targetBacking is the backend-owned storage behind a RenderTarget.
type targetBacking interface {
	release()
}

type renderTarget struct {
	label         string
	width, height int
	frame         uint64
	backing       targetBacking
}

var _ RenderTarget = &renderTarget{}

func (t *renderTarget) Label() string {
	return t.label
}

func (t *renderTarget) Width() int {
	return t.width
}

func (t *renderTarget) Height() int {
	return t.height
}

func (t *renderTarget) String() string {
	return fmt.Sprintf("%s (%dx%d)", t.label, t.width, t.height)
}
