package deferred

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterboxScales(t *testing.T) {
	tests := []struct {
		name          string
		vw, vh        int
		tw, th        int
		expectedScale [2]float32
	}{
		{"wide target", 128, 128, 256, 128, [2]float32{1, 0.5}},
		{"tall target", 128, 128, 128, 256, [2]float32{0.5, 1}},
		{"same aspect", 128, 128, 512, 512, [2]float32{1, 1}},
		{"wide virtual on square target", 256, 128, 256, 256, [2]float32{0.5, 1}},
		{"degenerate target", 128, 128, 0, 128, [2]float32{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := LetterboxScales(tt.vw, tt.vh, tt.tw, tt.th)
			assert.InDelta(t, tt.expectedScale[0], s[0], 1e-6)
			assert.InDelta(t, tt.expectedScale[1], s[1], 1e-6)
			assert.Equal(t, float32(1), max(s[0], s[1]))
		})
	}
}

func TestLetterboxSmallerScaleIsAspectRatio(t *testing.T) {
	s := LetterboxScales(128, 128, 256, 128)
	virtualAspect := float32(128) / 128
	targetAspect := float32(256) / 128
	assert.InDelta(t, virtualAspect/targetAspect, min(s[0], s[1]), 1e-6)
}

func TestReflectionBlendEndpoints(t *testing.T) {
	ssr := [4]float32{0.2, 0.4, 0.6, 1}
	lit := [4]float32{0.9, 0.1, 0.3, 0.5}

	assert.Equal(t, ssr, ReflectionBlend(ssr, lit, 0))
	got := ReflectionBlend(ssr, lit, 1)
	for ch := range 4 {
		assert.InDelta(t, lit[ch], got[ch], 1e-6)
	}
	half := ReflectionBlend(ssr, lit, 0.5)
	assert.InDelta(t, 0.55, half[0], 1e-6)
}

func TestDecodeNormal(t *testing.T) {
	assert.Equal(t, [3]float32{0, 0, 1}, DecodeNormal([4]float32{0.3, 0.3, 0.3, 0}))

	n := DecodeNormal(EncodeNormal([3]float32{0, 0, 1}, 1))
	assert.InDelta(t, 0, n[0], 1e-6)
	assert.InDelta(t, 0, n[1], 1e-6)
	assert.InDelta(t, 1, n[2], 1e-6)
}

func TestUVClipRoundTrip(t *testing.T) {
	assert.Equal(t, [2]float32{-1, 1}, UVToClip([2]float32{0, 0}))
	assert.Equal(t, [2]float32{1, -1}, UVToClip([2]float32{1, 1}))
	assert.Equal(t, [2]float32{0.25, 0.75}, ClipToUV(UVToClip([2]float32{0.25, 0.75})))
}

func TestReflectionKernelFlatSurfaceKeepsLit(t *testing.T) {
	lit := raster.NewTexture(4, 4)
	lit.Clear([4]float32{0.2, 0.4, 0.6, 1})
	env := &raster.Env{
		Uniforms: shader.Uniforms{"camera_z": DefaultCameraZ},
		Textures: map[string]*raster.Texture{
			"albedomap":    lit,
			"heightmap":    raster.NewTexture(4, 4),
			"roughnessmap": raster.NewTexture(4, 4),
			"normalmap":    raster.NewTexture(4, 4),
		},
	}

	out, keep := reflectionKernel.Fragment(raster.Fragment{UV: [2]float32{0.375, 0.625}}, env)
	require.True(t, keep)
	assert.Equal(t, lit.At(1, 2), out)
}

func TestReflectionKernelPicksUpTallerNeighbour(t *testing.T) {
	lit := raster.NewTexture(8, 8)
	lit.Clear([4]float32{0, 0, 1, 1})
	lit.Set(5, 4, [4]float32{1, 0, 0, 1})
	height := raster.NewTexture(8, 8)
	height.Set(5, 4, [4]float32{1, 1, 1, 1})
	normal := raster.NewTexture(8, 8)
	// A surface tilted 40 degrees toward +x bounces the view ray almost flat along +x.
	normal.Set(4, 4, EncodeNormal(normalize3([3]float32{0.84, 0, 1}), 1))

	env := &raster.Env{
		Uniforms: shader.Uniforms{"camera_z": DefaultCameraZ},
		Textures: map[string]*raster.Texture{
			"albedomap":    lit,
			"heightmap":    height,
			"roughnessmap": raster.NewTexture(8, 8),
			"normalmap":    normal,
		},
	}

	out, keep := reflectionKernel.Fragment(raster.Fragment{UV: [2]float32{4.5 / 8, 4.5 / 8}}, env)
	require.True(t, keep)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, out)
}

func TestLightingKernelFalloff(t *testing.T) {
	albedo := raster.NewTexture(2, 2)
	albedo.Clear([4]float32{1, 1, 1, 1})
	env := &raster.Env{
		Uniforms: shader.Uniforms{
			"light_position":  [3]float32{0, 0, 1},
			"light_color":     [3]float32{1, 0.5, 0},
			"light_intensity": float32(1),
			"light_falloff":   float32(0),
		},
		Textures: map[string]*raster.Texture{
			"albedomap": albedo,
			"heightmap": raster.NewTexture(2, 2),
		},
	}

	// uv (0.5, 0.5) is clip (0, 0), directly below the light.
	out, _ := lightingKernel.Fragment(raster.Fragment{UV: [2]float32{0.5, 0.5}}, env)
	assert.InDelta(t, 1, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)
	assert.InDelta(t, 0, out[2], 1e-6)
	assert.Equal(t, float32(1), out[3])

	env.Uniforms["light_falloff"] = float32(1)
	out, _ = lightingKernel.Fragment(raster.Fragment{UV: [2]float32{0.5, 0.5}}, env)
	assert.InDelta(t, 0.5, out[0], 1e-6)
}

func TestBuiltinSourcesExposeUniformContracts(t *testing.T) {
	tests := []struct {
		key              string
		expectedTextures []string
		expectedUniforms []string
		expectedTarget   pipeline.TargetKind
	}{
		{LightingProgram, []string{"albedomap", "heightmap"}, []string{"light_position", "light_intensity", "light_color", "light_falloff"}, pipeline.TargetOffscreen},
		{ReflectionProgram, []string{"albedomap", "heightmap", "roughnessmap", "normalmap"}, []string{"camera_z"}, pipeline.TargetOffscreen},
		{UpscaleProgram, []string{"image"}, []string{"dim_scales"}, pipeline.TargetSurface},
		{GenerateNormalsProgram, []string{"heightmap", "albedomap"}, nil, pipeline.TargetOffscreen},
		{AlphaFillProgram, []string{"target_fill"}, []string{"color_fill"}, pipeline.TargetOffscreen},
		{ReceiveShadowsProgram, []string{"last_draw", "this_draw"}, []string{"shadow_strength"}, pipeline.TargetOffscreen},
		{FasterClearProgram, nil, []string{"new_color"}, pipeline.TargetOffscreen},
	}

	sources := BuiltinSources()
	require.Len(t, sources, len(tests))
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			src, ok := sources[tt.key]
			require.True(t, ok)
			p, err := src.Build()
			require.NoError(t, err)

			assert.ElementsMatch(t, tt.expectedTextures, p.TextureNames())
			assert.Equal(t, tt.expectedTarget, p.Target())
			assert.True(t, p.Kernel().Valid())

			var fields []string
			for _, b := range p.Bindings() {
				if b.Kind != shader.BindingKindUniform {
					continue
				}
				require.NotNil(t, b.Uniform, "uniform %s has an unsupported layout", b.Name)
				for _, f := range b.Uniform.Fields {
					fields = append(fields, f.Name)
				}
			}
			assert.ElementsMatch(t, tt.expectedUniforms, fields)
		})
	}
}

func TestLightParamsMatchesGPULight(t *testing.T) {
	p, err := BuiltinSources()[LightingProgram].Build()
	require.NoError(t, err)

	for _, b := range p.Bindings() {
		if b.Kind == shader.BindingKindUniform {
			assert.Equal(t, uint64(32), b.Uniform.Size)
			return
		}
	}
	t.Fatal("lighting program has no uniform block")
}

func TestWithOverridesReplacesStages(t *testing.T) {
	dir := t.TempDir()
	src := BuiltinSources()[FasterClearProgram]
	override := `//@lumen:include quad

struct FasterClearParams {
    new_color: vec4<f32>,
}

@group(1) @binding(0) var<uniform> params: FasterClearParams;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return params.new_color * 0.5;
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FasterClearProgram+".frag.wgsl"), []byte(override), 0o644))

	got, err := src.WithOverrides(dir)
	require.NoError(t, err)
	assert.Equal(t, override, got.Fragment)
	assert.Equal(t, src.Vertex, got.Vertex)

	_, err = got.Build()
	require.NoError(t, err)
}
