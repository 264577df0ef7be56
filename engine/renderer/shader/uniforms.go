package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"golang.org/x/image/math/f32"
)

// BindingKind classifies a resource declared with @group/@binding.
type BindingKind int

const (
	// BindingKindUnsupported marks a declaration this engine does not bind (storage buffers, storage textures).
	BindingKindUnsupported BindingKind = iota

	// BindingKindUniform is a var<uniform> struct whose fields are filled from Uniforms by name.
	BindingKindUniform

	// BindingKindTexture is a texture_2d<f32> bound to a render target by variable name.
	BindingKindTexture

	// BindingKindSampler is the shared nearest/mirror sampler.
	BindingKindSampler
)

// Binding describes a single resource declaration parsed from WGSL source.
type Binding struct {
	// Group and Binding are the @group and @binding indices.
	Group, Binding int
	// Name is the WGSL variable name; texture bindings are matched to render targets by this name.
	Name string
	// TypeName is the declared WGSL type.
	TypeName string
	// Kind classifies the resource.
	Kind BindingKind
	// Uniform is the resolved struct layout for uniform bindings, nil otherwise.
	Uniform *UniformLayout
}

// UniformField is a single member of a uniform struct at its WGSL-aligned offset.
type UniformField struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// UniformLayout is the byte layout of a var<uniform> struct.
type UniformLayout struct {
	Name   string
	Fields []UniformField
	Size   uint64
}

// Uniforms maps uniform struct field names to values. Supported values are float32, int,
// [2]float32, [3]float32, [4]float32, f32.Vec3, f32.Vec4 and f32.Mat4.
type Uniforms map[string]any

// Float returns the named scalar, or 0 when absent.
func (u Uniforms) Float(name string) float32 {
	switch v := u[name].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	}
	return 0
}

// Vec2 returns the named 2-vector, or the zero vector when absent.
func (u Uniforms) Vec2(name string) [2]float32 {
	if v, ok := u[name].([2]float32); ok {
		return v
	}
	return [2]float32{}
}

// Vec3 returns the named 3-vector, or the zero vector when absent.
func (u Uniforms) Vec3(name string) [3]float32 {
	switch v := u[name].(type) {
	case [3]float32:
		return v
	case f32.Vec3:
		return v
	}
	return [3]float32{}
}

// Vec4 returns the named 4-vector, or the zero vector when absent.
func (u Uniforms) Vec4(name string) [4]float32 {
	switch v := u[name].(type) {
	case [4]float32:
		return v
	case f32.Vec4:
		return v
	}
	return [4]float32{}
}

// Mat4 returns the named row-major matrix, or the identity when absent.
func (u Uniforms) Mat4(name string) f32.Mat4 {
	if v, ok := u[name].(f32.Mat4); ok {
		return v
	}
	return f32.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// Pack serializes the values for every field of the layout into a buffer ready for upload.
// Every field must have a value of a matching shape; extra values are ignored so that one
// Uniforms map can feed both stages of a program.
//
// Parameters:
//   - values: the uniform values keyed by field name
//
// Returns:
//   - []byte: the packed buffer of length l.Size
//   - error: an error naming the first missing or mistyped field
func (l UniformLayout) Pack(values Uniforms) ([]byte, error) {
	buf := make([]byte, l.Size)
	for _, f := range l.Fields {
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("uniform %s.%s has no value", l.Name, f.Name)
		}
		words, err := uniformWords(v)
		if err != nil {
			return nil, fmt.Errorf("uniform %s.%s: %w", l.Name, f.Name, err)
		}
		if uint64(len(words)*4) != f.Size {
			return nil, fmt.Errorf("uniform %s.%s: %d bytes supplied for %s", l.Name, f.Name, len(words)*4, f.Type)
		}
		common.PutFloat32s(buf, int(f.Offset), words...)
	}
	return buf, nil
}

func uniformWords(v any) ([]float32, error) {
	switch v := v.(type) {
	case float32:
		return []float32{v}, nil
	case float64:
		return []float32{float32(v)}, nil
	case int:
		return []float32{float32(v)}, nil
	case [2]float32:
		return v[:], nil
	case [3]float32:
		return v[:], nil
	case f32.Vec3:
		return v[:], nil
	case [4]float32:
		return v[:], nil
	case f32.Vec4:
		return v[:], nil
	case f32.Mat4:
		return v[:], nil
	}
	return nil, fmt.Errorf("unsupported uniform value type %T", v)
}
