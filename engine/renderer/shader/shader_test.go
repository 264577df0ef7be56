package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVertexSource = `
struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) tex_coords: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) tex_coords: vec2<f32>,
}

struct CircleVertexParams {
    matrix: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> vparams: CircleVertexParams;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = vparams.matrix * vec4<f32>(in.position, 0.0, 1.0);
    out.tex_coords = in.tex_coords;
    return out;
}
`

const testFragmentSource = `
struct LightParams {
    light_position: vec3<f32>,
    light_intensity: f32,
    light_color: vec3f,
    light_falloff: f32,
    light_scale: vec2f,
}

@group(1) @binding(0) var<uniform> params: LightParams;
@group(1) @binding(1) var albedomap: texture_2d<f32>;
@group(1) @binding(2) var heightmap: texture_2d<f32>;
/* @group(1) @binding(9) var ignored: texture_2d<f32>; */
@group(1) @binding(3) var tex_sampler: sampler;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(albedomap, tex_sampler, uv); // sample only albedo
}
`

func TestNewShaderParsesVertexStage(t *testing.T) {
	s, err := NewShader("circle.vert", ShaderTypeVertex, testVertexSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.EntryPoint())
	require.Len(t, s.VertexLayouts(), 1)
	layout := s.VertexLayouts()[0]
	assert.Equal(t, uint64(16), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, uint64(8), layout.Attributes[1].Offset)
	assert.Equal(t, uint32(1), layout.Attributes[1].ShaderLocation)

	require.Len(t, s.Bindings(), 1)
	b := s.Bindings()[0]
	assert.Equal(t, BindingKindUniform, b.Kind)
	require.NotNil(t, b.Uniform)
	assert.Equal(t, uint64(64), b.Uniform.Size)

	desc := s.BindGroupLayoutDescriptors()[0]
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex, desc.Entries[0].Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
}

func TestNewShaderParsesFragmentBindings(t *testing.T) {
	s, err := NewShader("lighting.frag", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)

	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Nil(t, s.VertexLayouts())

	names := []string{}
	for _, b := range s.Bindings() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"params", "albedomap", "heightmap", "tex_sampler"}, names)

	binding, ok := s.BindGroupFromVarName(1, "heightmap")
	assert.True(t, ok)
	assert.Equal(t, 2, binding)
	_, ok = s.BindGroupFromVarName(1, "ignored")
	assert.False(t, ok)
	assert.Equal(t, "tex_sampler", s.BindGroupVarName(1, 3))

	desc := s.BindGroupLayoutDescriptors()[1]
	require.Len(t, desc.Entries, 4)
	assert.Equal(t, wgpu.TextureViewDimension2D, desc.Entries[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, desc.Entries[3].Sampler.Type)
}

func TestUniformLayoutFollowsWGSLAlignment(t *testing.T) {
	s, err := NewShader("lighting.frag", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)

	layout := s.Bindings()[0].Uniform
	require.NotNil(t, layout)

	offsets := map[string]uint64{}
	for _, f := range layout.Fields {
		offsets[f.Name] = f.Offset
	}
	assert.Equal(t, map[string]uint64{
		"light_position":  0,
		"light_intensity": 12,
		"light_color":     16,
		"light_falloff":   28,
		"light_scale":     32,
	}, offsets)
	assert.Equal(t, uint64(48), layout.Size)
}

func TestUniformLayoutPack(t *testing.T) {
	s, err := NewShader("lighting.frag", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)
	layout := *s.Bindings()[0].Uniform

	buf, err := layout.Pack(Uniforms{
		"light_position":  [3]float32{1, 2, 3},
		"light_intensity": float32(0.5),
		"light_color":     [3]float32{1, 1, 1},
		"light_falloff":   float32(2),
		"light_scale":     [2]float32{1, 0.5},
		"unused":          float32(9),
	})
	require.NoError(t, err)
	require.Len(t, buf, 48)
	// light_intensity at offset 12: 0.5 = 0x3f000000 little-endian
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x3f}, buf[12:16])

	_, err = layout.Pack(Uniforms{"light_position": [3]float32{}})
	assert.ErrorContains(t, err, "light_intensity")

	_, err = layout.Pack(Uniforms{
		"light_position":  float32(1),
		"light_intensity": float32(0.5),
		"light_color":     [3]float32{1, 1, 1},
		"light_falloff":   float32(2),
		"light_scale":     [2]float32{1, 0.5},
	})
	assert.ErrorContains(t, err, "light_position")
}

func TestNewShaderRejectsInvalidSource(t *testing.T) {
	tests := []struct {
		name       string
		shaderType ShaderType
		source     string
	}{
		{"missing vertex entry", ShaderTypeVertex, testFragmentSource},
		{"missing fragment entry", ShaderTypeFragment, testVertexSource},
		{"storage buffer", ShaderTypeFragment, "@group(0) @binding(0) var<storage, read> data: array<f32>;\n@fragment fn main() {}"},
		{"unknown include", ShaderTypeFragment, "//@lumen:include nothing_here\n@fragment fn main() {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader("bad", tt.shaderType, tt.source)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCompile))
		})
	}
}

func TestPreProcessorExpandsIncludesOnce(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"quad_io": "struct VertexOutput { @location(0) tex_coords: vec2<f32>, }\n//@lumen:include helpers",
		"helpers": "fn helper() -> f32 { return 1.0; }",
	})
	out, err := pp.Process("//@lumen:include quad_io\n//@lumen:include helpers\n@fragment fn main() {}")
	require.NoError(t, err)
	assert.Equal(t, []string{"helpers", "quad_io"}, pp.Included())
	assert.Contains(t, out, "struct VertexOutput")
	assert.Contains(t, out, "fn helper()")
	assert.NotContains(t, out, "@lumen:include")

	_, err = pp.Process("//@lumen:include\n")
	assert.ErrorContains(t, err, "malformed")
}

func TestNewShaderWithIncludes(t *testing.T) {
	s, err := NewShader("quad.vert", ShaderTypeVertex, "//@lumen:include quad_io\n@vertex fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> { return vec4<f32>(in.position, 0.0, 1.0); }",
		WithIncludes(map[string]string{"quad_io": "struct VertexInput { @location(0) position: vec2<f32>, @location(1) tex_coords: vec2<f32>, }"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"quad_io"}, s.Included())
	assert.Len(t, s.VertexLayouts(), 1)
}

func TestNewShaderFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lighting_shader.frag.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testFragmentSource), 0o644))

	s, err := NewShaderFromPath("lighting_shader.frag", ShaderTypeFragment, path)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", s.EntryPoint())

	_, err = NewShaderFromPath("missing", ShaderTypeFragment, filepath.Join(dir, "missing.wgsl"))
	assert.Error(t, err)
}

func TestParseOverrideName(t *testing.T) {
	tests := []struct {
		path    string
		ok      bool
		program string
		stage   ShaderType
	}{
		{"/tmp/lighting_shader.frag.wgsl", true, "lighting_shader", ShaderTypeFragment},
		{"upscale_shader.vert.wgsl", true, "upscale_shader", ShaderTypeVertex},
		{"notes.txt", false, "", 0},
		{"lighting_shader.wgsl", false, "", 0},
		{".frag.wgsl", false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			change, ok := ParseOverrideName(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.program, change.Program)
				assert.Equal(t, tt.stage, change.Stage)
			}
		})
	}
}
