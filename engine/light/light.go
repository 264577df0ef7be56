package light

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"golang.org/x/image/math/f32"
)

// Light is a point light in the lighting pass's space: x and y in clip space of the virtual
// target, z in height units above the surface.
//
// Light is a value type. The pipeline receives copies, so mutating a Light after handing it to
// RenderFrame has no effect on that frame.
type Light struct {
	position  f32.Vec3
	color     f32.Vec3
	intensity float32
	falloff   float32
	enabled   bool
}

// NewLight creates a white light at the origin with intensity 1 and no falloff,
// with any provided options applied.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light value
func NewLight(opts ...LightBuilderOption) Light {
	l := Light{
		color:     f32.Vec3{1, 1, 1},
		intensity: 1.0,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// Position returns the light position.
func (l Light) Position() f32.Vec3 {
	return l.position
}

// Color returns the RGB color of the light, each channel expected in [0, 1].
func (l Light) Color() f32.Vec3 {
	return l.color
}

// Intensity returns the scalar intensity multiplier.
func (l Light) Intensity() float32 {
	return l.intensity
}

// Falloff returns the quadratic attenuation coefficient. Zero disables attenuation.
func (l Light) Falloff() float32 {
	return l.falloff
}

// Enabled reports whether the lighting pass draws this light.
func (l Light) Enabled() bool {
	return l.enabled
}

// SetPosition sets the light position.
func (l *Light) SetPosition(x, y, z float32) {
	l.position = f32.Vec3{x, y, z}
}

// SetColor sets the RGB color of the light.
func (l *Light) SetColor(r, g, b float32) {
	l.color = f32.Vec3{r, g, b}
}

// SetIntensity sets the scalar intensity multiplier.
func (l *Light) SetIntensity(intensity float32) {
	l.intensity = intensity
}

// SetFalloff sets the quadratic attenuation coefficient.
func (l *Light) SetFalloff(falloff float32) {
	l.falloff = falloff
}

// SetEnabled enables or disables the light for rendering.
func (l *Light) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// Uniforms returns the light's values keyed by the LightParams field names of the lighting program.
//
// Returns:
//   - shader.Uniforms: light_position, light_color, light_intensity and light_falloff
func (l Light) Uniforms() shader.Uniforms {
	return shader.Uniforms{
		"light_position":  l.position,
		"light_color":     l.color,
		"light_intensity": l.intensity,
		"light_falloff":   l.falloff,
	}
}
