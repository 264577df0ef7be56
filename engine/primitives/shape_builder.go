package primitives

import "github.com/Carmen-Shannon/oxy-lumen/engine/transform"

// PrimitiveBuilderOption is a functional option used to configure a Circle or Sphere during construction.
type PrimitiveBuilderOption func(*shape)

// WithColor sets the RGBA albedo. Defaults to opaque white.
//
// Parameters:
//   - r, g, b, a: the color channels in [0, 1]
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the color to the shape
func WithColor(r, g, b, a float32) PrimitiveBuilderOption {
	return func(s *shape) {
		s.color = [4]float32{r, g, b, a}
	}
}

// WithRadius sets the radius in quad-local units. Defaults to 0.5.
//
// Parameters:
//   - radius: the radius, where 1 touches the quad edges
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the radius to the shape
func WithRadius(radius float32) PrimitiveBuilderOption {
	return func(s *shape) {
		s.radius = radius
	}
}

// WithTransform sets the transform applied to the quad. Defaults to identity.
//
// Parameters:
//   - t: the transform
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the transform to the shape
func WithTransform(t transform.Transform) PrimitiveBuilderOption {
	return func(s *shape) {
		s.transform = t
	}
}

// WithRoughness makes the shape write a flat roughness. Without it the roughness target is left untouched.
//
// Parameters:
//   - roughness: the roughness in [0, 1]
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the roughness to the shape
func WithRoughness(roughness float32) PrimitiveBuilderOption {
	return func(s *shape) {
		s.roughness = roughness
		s.hasRoughness = true
	}
}
