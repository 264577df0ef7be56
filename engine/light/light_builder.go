package light

import "golang.org/x/image/math/f32"

// LightBuilderOption is a function that configures a Light during construction.
type LightBuilderOption func(*Light)

// WithPosition is an option builder that sets the position of the light.
//
// Parameters:
//   - x: the x position in clip space
//   - y: the y position in clip space
//   - z: the height above the surface
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a Light
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *Light) {
		l.position = f32.Vec3{x, y, z}
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a Light
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *Light) {
		l.color = f32.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a Light
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *Light) {
		l.intensity = intensity
	}
}

// WithFalloff is an option builder that sets the quadratic attenuation coefficient.
// Light reaching a fragment at distance d is scaled by 1 / (1 + falloff * d * d).
//
// Parameters:
//   - falloff: the attenuation coefficient, 0 for none
//
// Returns:
//   - LightBuilderOption: a function that applies the falloff option to a Light
func WithFalloff(falloff float32) LightBuilderOption {
	return func(l *Light) {
		l.falloff = falloff
	}
}

// WithEnabled is an option builder that sets whether the light is active for rendering.
//
// Parameters:
//   - enabled: true to enable the light
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a Light
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *Light) {
		l.enabled = enabled
	}
}
