package primitives

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
)

// Sphere is a disc shaded as a hemisphere facing the viewer. Its albedo goes through the circle
// program; it adds a procedural height and normal.
type Sphere struct {
	shape
}

var _ deferred.Drawable = &Sphere{}

// NewSphere creates a Sphere with the same defaults as NewCircle.
//
// Parameters:
//   - opts: variadic list of PrimitiveBuilderOption functions
//
// Returns:
//   - *Sphere: the new sphere
func NewSphere(opts ...PrimitiveBuilderOption) *Sphere {
	return &Sphere{shape: newShape(opts...)}
}

// EnsureShadersLoaded provisions the sphere programs and the circle program the albedo uses.
func (s *Sphere) EnsureShadersLoaded(r renderer.Renderer) error {
	for _, key := range []string{CircleProgram, SphereHeightProgram, SphereNormalProgram} {
		if err := ensure(r, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sphere) Emit(r renderer.Renderer, g deferred.GBuffer) error {
	if err := s.emitDisc(r, g); err != nil {
		return err
	}
	u := s.uniforms(s.color)
	if err := r.Draw(renderer.DrawCall{Program: SphereHeightProgram, Target: g.Height, Uniforms: u}); err != nil {
		return err
	}
	return r.Draw(renderer.DrawCall{Program: SphereNormalProgram, Target: g.Normal, Uniforms: u})
}
