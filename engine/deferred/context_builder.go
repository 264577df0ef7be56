package deferred

import "fmt"

// PresentSource selects which target the upscale pass presents.
type PresentSource int

const (
	// PresentLit presents the accumulated lighting.
	PresentLit PresentSource = iota
	// PresentReflected presents the lighting with screen-space reflections applied.
	PresentReflected
)

func (s PresentSource) String() string {
	switch s {
	case PresentLit:
		return "lit"
	case PresentReflected:
		return "reflected"
	default:
		return fmt.Sprintf("PresentSource(%d)", int(s))
	}
}

// ParsePresentSource parses the String form of a PresentSource.
func ParsePresentSource(s string) (PresentSource, error) {
	switch s {
	case "", "lit":
		return PresentLit, nil
	case "reflected":
		return PresentReflected, nil
	}
	return PresentLit, fmt.Errorf("deferred: unknown present source %q", s)
}

// ClearMode selects how frame targets are cleared.
type ClearMode int

const (
	// ClearNative uses the backend's clear operation.
	ClearNative ClearMode = iota
	// ClearFaster draws the faster clear program over the target instead.
	ClearFaster
)

// DefaultCameraZ is the height of the reflection eye above the ground plane.
const DefaultCameraZ float32 = 2

// ContextBuilderOption is a functional option used to configure a Context during construction.
type ContextBuilderOption func(*Context)

// WithPresentSource selects the target presented by the upscale pass.
//
// Parameters:
//   - src: PresentLit (default) or PresentReflected
//
// Returns:
//   - ContextBuilderOption: a function that applies the present source to the context
func WithPresentSource(src PresentSource) ContextBuilderOption {
	return func(c *Context) {
		c.presentSource = src
	}
}

// WithCameraZ sets the eye height used by the reflection pass.
//
// Parameters:
//   - z: the eye height, above the highest surface the scene draws
//
// Returns:
//   - ContextBuilderOption: a function that applies the eye height to the context
func WithCameraZ(z float32) ContextBuilderOption {
	return func(c *Context) {
		c.cameraZ = z
	}
}

// WithClearMode selects how the G-buffer, lit and reflected targets are cleared each frame.
//
// Parameters:
//   - mode: ClearNative (default) or ClearFaster
//
// Returns:
//   - ContextBuilderOption: a function that applies the clear mode to the context
func WithClearMode(mode ClearMode) ContextBuilderOption {
	return func(c *Context) {
		c.clearMode = mode
	}
}
