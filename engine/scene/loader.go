package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/light"
	"github.com/Carmen-Shannon/oxy-lumen/engine/primitives"
	"github.com/Carmen-Shannon/oxy-lumen/engine/transform"
	"gopkg.in/yaml.v3"
)

// File is the YAML form of a scene.
//
//	name: lit-circles
//	present: reflected
//	camera_z: 2
//	clear: faster
//	resolution: [256, 128]
//	lights:
//	  - position: [0.2, 0.4, 1]
//	    color: [1, 0.9, 0.8]
//	    intensity: 1.5
//	    falloff: 0.2
//	shapes:
//	  - kind: sphere
//	    color: [0, 0, 1, 1]
//	    radius: 0.4
//	    position: [-0.3, 0]
//	    roughness: 0.2
type File struct {
	Name       string      `yaml:"name"`
	Present    string      `yaml:"present"`
	CameraZ    *float32    `yaml:"camera_z"`
	Clear      string      `yaml:"clear"`
	Resolution []int       `yaml:"resolution"`
	Lights     []LightSpec `yaml:"lights"`
	Shapes     []ShapeSpec `yaml:"shapes"`
}

// LightSpec describes one light. Intensity defaults to 1 and Enabled to true.
type LightSpec struct {
	Position  []float32 `yaml:"position"`
	Color     []float32 `yaml:"color"`
	Intensity *float32  `yaml:"intensity"`
	Falloff   float32   `yaml:"falloff"`
	Enabled   *bool     `yaml:"enabled"`
}

// ShapeSpec describes one circle or sphere.
type ShapeSpec struct {
	Kind      string    `yaml:"kind"`
	Color     []float32 `yaml:"color"`
	Radius    *float32  `yaml:"radius"`
	Position  []float32 `yaml:"position"`
	Roughness *float32  `yaml:"roughness"`
}

// Shape kinds accepted in ShapeSpec.Kind.
const (
	KindCircle = "circle"
	KindSphere = "sphere"
)

// ErrInvalidFile is wrapped by every validation error returned from Parse.
var ErrInvalidFile = errors.New("invalid scene file")

// Parse decodes and validates a YAML scene. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *File: the decoded file
//   - error: a decode error or an error wrapping ErrInvalidFile
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ReadFile reads and parses the scene at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %q: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", path, err)
	}
	return f, nil
}

// LoadFile reads the scene at path and builds it.
//
// Parameters:
//   - path: the YAML file to load
//
// Returns:
//   - Scene: an active scene holding the file's lights and shapes
//   - []deferred.ContextBuilderOption: the context options the file asks for
//   - error: a read, decode or validation error
func LoadFile(path string) (Scene, []deferred.ContextBuilderOption, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	s, opts := f.Build()
	return s, opts, nil
}

func (f *File) validate() error {
	if _, err := deferred.ParsePresentSource(f.Present); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	switch f.Clear {
	case "", "native", "faster":
	default:
		return fmt.Errorf("%w: unknown clear mode %q", ErrInvalidFile, f.Clear)
	}
	if f.CameraZ != nil && *f.CameraZ <= 0 {
		return fmt.Errorf("%w: camera_z must be positive, got %v", ErrInvalidFile, *f.CameraZ)
	}
	if f.Resolution != nil {
		if len(f.Resolution) != 2 || f.Resolution[0] <= 0 || f.Resolution[1] <= 0 {
			return fmt.Errorf("%w: resolution must be two positive integers, got %v", ErrInvalidFile, f.Resolution)
		}
	}
	for i, l := range f.Lights {
		if err := checkLen("position", l.Position, 3); err != nil {
			return fmt.Errorf("%w: light %d: %v", ErrInvalidFile, i, err)
		}
		if err := checkLen("color", l.Color, 3); err != nil {
			return fmt.Errorf("%w: light %d: %v", ErrInvalidFile, i, err)
		}
	}
	for i, s := range f.Shapes {
		if s.Kind != KindCircle && s.Kind != KindSphere {
			return fmt.Errorf("%w: shape %d: unknown kind %q", ErrInvalidFile, i, s.Kind)
		}
		if err := checkLen("color", s.Color, 4); err != nil {
			return fmt.Errorf("%w: shape %d: %v", ErrInvalidFile, i, err)
		}
		if err := checkLen("position", s.Position, 2); err != nil {
			return fmt.Errorf("%w: shape %d: %v", ErrInvalidFile, i, err)
		}
		if s.Radius != nil && *s.Radius < 0 {
			return fmt.Errorf("%w: shape %d: negative radius", ErrInvalidFile, i)
		}
	}
	return nil
}

// checkLen accepts an absent field or one with exactly n components.
func checkLen(field string, v []float32, n int) error {
	if v != nil && len(v) != n {
		return fmt.Errorf("%s needs %d components, got %d", field, n, len(v))
	}
	return nil
}

// Build creates the scene and the context options described by f.
//
// Returns:
//   - Scene: an active scene with lights and shapes in file order
//   - []deferred.ContextBuilderOption: present source, camera z and clear mode when set
func (f *File) Build() (Scene, []deferred.ContextBuilderOption) {
	var opts []deferred.ContextBuilderOption
	if f.Present != "" {
		src, _ := deferred.ParsePresentSource(f.Present)
		opts = append(opts, deferred.WithPresentSource(src))
	}
	if f.CameraZ != nil {
		opts = append(opts, deferred.WithCameraZ(*f.CameraZ))
	}
	if f.Clear == "faster" {
		opts = append(opts, deferred.WithClearMode(deferred.ClearFaster))
	}

	lights := make([]light.Light, 0, len(f.Lights))
	for _, ls := range f.Lights {
		lights = append(lights, ls.light())
	}
	drawables := make([]deferred.Drawable, 0, len(f.Shapes))
	for _, ss := range f.Shapes {
		drawables = append(drawables, ss.drawable())
	}

	return NewScene(f.Name, WithActive(true), WithLights(lights...), WithDrawables(drawables...)), opts
}

func (ls LightSpec) light() light.Light {
	var opts []light.LightBuilderOption
	if ls.Position != nil {
		opts = append(opts, light.WithPosition(ls.Position[0], ls.Position[1], ls.Position[2]))
	}
	if ls.Color != nil {
		opts = append(opts, light.WithColor(ls.Color[0], ls.Color[1], ls.Color[2]))
	}
	if ls.Intensity != nil {
		opts = append(opts, light.WithIntensity(*ls.Intensity))
	}
	if ls.Enabled != nil {
		opts = append(opts, light.WithEnabled(*ls.Enabled))
	}
	opts = append(opts, light.WithFalloff(ls.Falloff))
	return light.NewLight(opts...)
}

func (ss ShapeSpec) drawable() deferred.Drawable {
	var opts []primitives.PrimitiveBuilderOption
	if ss.Color != nil {
		opts = append(opts, primitives.WithColor(ss.Color[0], ss.Color[1], ss.Color[2], ss.Color[3]))
	}
	if ss.Radius != nil {
		opts = append(opts, primitives.WithRadius(*ss.Radius))
	}
	if ss.Position != nil {
		t := transform.New()
		t.Translate(ss.Position[0], ss.Position[1], 0)
		opts = append(opts, primitives.WithTransform(t))
	}
	if ss.Roughness != nil {
		opts = append(opts, primitives.WithRoughness(*ss.Roughness))
	}

	if ss.Kind == KindSphere {
		return primitives.NewSphere(opts...)
	}
	return primitives.NewCircle(opts...)
}
