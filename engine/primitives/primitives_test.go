package primitives

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, opts ...renderer.RendererBuilderOption) renderer.Renderer {
	t.Helper()
	opts = append([]renderer.RendererBuilderOption{renderer.WithVirtualResolution(64, 64)}, opts...)
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(64, 64), opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

// emitInto provisions d, opens a frame, emits d into a fresh G-buffer and reads every target back.
func emitInto(t *testing.T, r renderer.Renderer, d deferred.Drawable) map[string]*image.NRGBA {
	t.Helper()
	require.NoError(t, d.EnsureShadersLoaded(r))
	require.NoError(t, r.BeginFrame())
	t.Cleanup(r.AbortFrame)

	var g deferred.GBuffer
	targets := map[string]*renderer.RenderTarget{
		"albedo":    &g.Albedo,
		"height":    &g.Height,
		"roughness": &g.Roughness,
		"normal":    &g.Normal,
	}
	for label, dst := range targets {
		target, err := r.NewRenderTarget(label)
		require.NoError(t, err)
		*dst = target
	}
	require.NoError(t, d.Emit(r, g))

	out := make(map[string]*image.NRGBA, len(targets))
	for label, dst := range targets {
		img, err := r.ReadTarget(*dst)
		require.NoError(t, err)
		out[label] = img
	}
	return out
}

func isClear(img *image.NRGBA) bool {
	for _, v := range img.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestShapeDefaults(t *testing.T) {
	c := NewCircle()
	assert.Equal(t, [4]float32{1, 1, 1, 1}, c.Color())
	assert.Equal(t, float32(0.5), c.Radius())
	assert.Equal(t, transform.New(), c.Transform())
	_, ok := c.Roughness()
	assert.False(t, ok)

	tr := transform.New()
	tr.Translate(0.25, 0, 0)
	s := NewSphere(WithColor(0, 1, 0, 0.5), WithRadius(0.3), WithTransform(tr), WithRoughness(0.7))
	assert.Equal(t, [4]float32{0, 1, 0, 0.5}, s.Color())
	assert.Equal(t, float32(0.3), s.Radius())
	assert.Equal(t, tr, s.Transform())
	rough, ok := s.Roughness()
	assert.True(t, ok)
	assert.Equal(t, float32(0.7), rough)
}

func TestShapeStateIsPerInstance(t *testing.T) {
	a := NewCircle()
	b := NewCircle()
	a.SetColor([4]float32{1, 0, 0, 1})
	a.SetRadius(0.9)
	a.SetRoughness(0.2)

	assert.Equal(t, [4]float32{1, 1, 1, 1}, b.Color())
	assert.Equal(t, float32(0.5), b.Radius())
	_, ok := b.Roughness()
	assert.False(t, ok)
}

func TestCircleWritesAlbedoOnly(t *testing.T) {
	r := newTestRenderer(t)
	out := emitInto(t, r, NewCircle(WithColor(1, 0, 0, 1)))

	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out["albedo"].NRGBAAt(32, 32))
	// Radius 0.5 covers the middle half of the target.
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out["albedo"].NRGBAAt(32+14, 32))
	assert.Equal(t, color.NRGBA{}, out["albedo"].NRGBAAt(32+18, 32))
	assert.Equal(t, color.NRGBA{}, out["albedo"].NRGBAAt(1, 1))

	assert.True(t, isClear(out["height"]))
	assert.True(t, isClear(out["roughness"]))
	assert.True(t, isClear(out["normal"]))
}

func TestCircleWritesRoughnessWhenSet(t *testing.T) {
	r := newTestRenderer(t)
	out := emitInto(t, r, NewCircle(WithRoughness(0.4)))

	assert.Equal(t, color.NRGBA{R: 102, G: 102, B: 102, A: 255}, out["roughness"].NRGBAAt(32, 32))
	assert.Equal(t, color.NRGBA{}, out["roughness"].NRGBAAt(1, 1))
	assert.True(t, isClear(out["height"]))
}

func TestCircleTransformMovesDisc(t *testing.T) {
	r := newTestRenderer(t)
	tr := transform.New()
	tr.Translate(0.5, -0.5, 0)
	out := emitInto(t, r, NewCircle(WithTransform(tr), WithRadius(0.25)))

	// Clip (0.5, -0.5) is pixel (48, 48) in a 64x64 target.
	assert.Equal(t, uint8(255), out["albedo"].NRGBAAt(48, 48).A)
	assert.Zero(t, out["albedo"].NRGBAAt(32, 32).A)
}

func TestSphereWritesHeightAndNormal(t *testing.T) {
	r := newTestRenderer(t)
	out := emitInto(t, r, NewSphere(WithColor(0, 0, 1, 1)))

	assert.Equal(t, color.NRGBA{B: 255, A: 255}, out["albedo"].NRGBAAt(32, 32))

	center := out["height"].NRGBAAt(32, 32)
	edge := out["height"].NRGBAAt(32+15, 32)
	assert.Greater(t, center.R, uint8(250))
	assert.Less(t, edge.R, center.R)
	assert.Equal(t, color.NRGBA{}, out["height"].NRGBAAt(1, 1))

	n := out["normal"].NRGBAAt(32, 32)
	assert.InDelta(t, 128, int(n.R), 5)
	assert.InDelta(t, 128, int(n.G), 5)
	assert.Equal(t, uint8(255), n.A)
	// Right of center the normal leans toward +x.
	assert.Greater(t, out["normal"].NRGBAAt(32+12, 32).R, uint8(160))
	assert.True(t, isClear(out["roughness"]))
}

func TestSphereProvisionsCircleProgram(t *testing.T) {
	r := newTestRenderer(t)
	require.NoError(t, NewSphere().EnsureShadersLoaded(r))

	for _, key := range []string{CircleProgram, SphereHeightProgram, SphereNormalProgram} {
		assert.NotNil(t, r.Program(key), key)
	}
	compiled := r.Stats().ProgramsCompiled
	require.NoError(t, NewCircle().EnsureShadersLoaded(r))
	assert.Equal(t, compiled, r.Stats().ProgramsCompiled)
}

func TestProgramSourcesBuild(t *testing.T) {
	for _, src := range ProgramSources() {
		p, err := src.Build()
		require.NoError(t, err, src.Key)
		assert.Empty(t, p.TextureNames(), src.Key)
	}
}

func TestShippedProgramsPassShaderValidation(t *testing.T) {
	r := newTestRenderer(t, renderer.WithShaderValidation(true))

	sources := ProgramSources()
	for _, src := range deferred.BuiltinSources() {
		sources = append(sources, src)
	}
	for _, src := range sources {
		require.NoError(t, deferred.EnsureSource(r, src), src.Key)
		assert.NotNil(t, r.Program(src.Key), src.Key)
	}

	ctx, err := deferred.NewContext(r)
	require.NoError(t, err)
	sphere := NewSphere(WithColor(0, 0, 1, 1), WithRoughness(0.3))
	assert.NoError(t, ctx.RenderFrame(nil, []deferred.Drawable{sphere}))
}
