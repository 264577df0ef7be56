package primitives

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
)

// Circle is a flat disc. It writes albedo, and roughness when one is set.
type Circle struct {
	shape
}

var _ deferred.Drawable = &Circle{}

// NewCircle creates a Circle. Without options it is an opaque white disc of radius 0.5 at the
// center of the virtual image.
//
// Parameters:
//   - opts: variadic list of PrimitiveBuilderOption functions
//
// Returns:
//   - *Circle: the new circle
func NewCircle(opts ...PrimitiveBuilderOption) *Circle {
	return &Circle{shape: newShape(opts...)}
}

func (c *Circle) EnsureShadersLoaded(r renderer.Renderer) error {
	return ensure(r, CircleProgram)
}

func (c *Circle) Emit(r renderer.Renderer, g deferred.GBuffer) error {
	return c.emitDisc(r, g)
}

// emitDisc draws the disc into the albedo target and, when set, the roughness target.
func (s *shape) emitDisc(r renderer.Renderer, g deferred.GBuffer) error {
	if err := r.Draw(renderer.DrawCall{
		Program:  CircleProgram,
		Target:   g.Albedo,
		Uniforms: s.uniforms(s.color),
	}); err != nil {
		return err
	}
	if !s.hasRoughness {
		return nil
	}
	rough := s.roughness
	return r.Draw(renderer.DrawCall{
		Program:  CircleProgram,
		Target:   g.Roughness,
		Uniforms: s.uniforms([4]float32{rough, rough, rough, 1}),
	})
}
