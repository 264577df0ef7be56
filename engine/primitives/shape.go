// Package primitives provides the built-in drawables: flat circles and shaded spheres.
package primitives

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/transform"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

// shape is the state shared by every primitive.
type shape struct {
	color        [4]float32
	radius       float32
	transform    transform.Transform
	roughness    float32
	hasRoughness bool
}

func newShape(opts ...PrimitiveBuilderOption) shape {
	s := shape{
		color:     [4]float32{1, 1, 1, 1},
		radius:    0.5,
		transform: transform.New(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Color returns the RGBA albedo.
func (s *shape) Color() [4]float32 { return s.color }

// Radius returns the radius in quad-local units, where the quad spans [-1, 1].
func (s *shape) Radius() float32 { return s.radius }

// Transform returns the transform applied to the quad.
func (s *shape) Transform() transform.Transform { return s.transform }

// Roughness returns the roughness and whether the shape writes it.
func (s *shape) Roughness() (float32, bool) { return s.roughness, s.hasRoughness }

// SetColor replaces the RGBA albedo.
func (s *shape) SetColor(c [4]float32) { s.color = c }

// SetRadius replaces the radius.
func (s *shape) SetRadius(r float32) { s.radius = r }

// SetTransform replaces the transform.
func (s *shape) SetTransform(t transform.Transform) { s.transform = t }

// SetRoughness makes the shape write a flat roughness into the G-buffer.
func (s *shape) SetRoughness(r float32) {
	s.roughness = r
	s.hasRoughness = true
}

// uniforms returns the values read by the shape programs.
func (s *shape) uniforms(color [4]float32) shader.Uniforms {
	return shader.Uniforms{
		"matrix":       s.transform.Matrix(),
		"circle_color": color,
		"radius":       s.radius,
	}
}
