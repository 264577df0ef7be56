package deferred_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/primitives"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passFixture is an open frame on a 32x32 software renderer with one drawable emitted into a G-buffer.
type passFixture struct {
	r       renderer.Renderer
	gbuffer deferred.GBuffer
	// disc is the albedo target.
	disc renderer.RenderTarget
}

func newPassFixture(t *testing.T, drawable deferred.Drawable) passFixture {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(32, 32),
		renderer.WithVirtualResolution(32, 32))
	require.NoError(t, err)
	t.Cleanup(r.Release)

	require.NoError(t, drawable.EnsureShadersLoaded(r))
	require.NoError(t, deferred.EnsurePasses(r))
	require.NoError(t, r.BeginFrame())
	t.Cleanup(r.AbortFrame)

	var g deferred.GBuffer
	for _, dst := range []*renderer.RenderTarget{&g.Albedo, &g.Height, &g.Roughness, &g.Normal} {
		*dst, err = r.NewRenderTarget("gbuffer")
		require.NoError(t, err)
	}
	require.NoError(t, drawable.Emit(r, g))
	return passFixture{r: r, gbuffer: g, disc: g.Albedo}
}

func (f passFixture) read(t *testing.T, target renderer.RenderTarget) *image.NRGBA {
	t.Helper()
	img, err := f.r.ReadTarget(target)
	require.NoError(t, err)
	return img
}

func (f passFixture) target(t *testing.T) renderer.RenderTarget {
	t.Helper()
	target, err := f.r.NewRenderTarget("pass")
	require.NoError(t, err)
	return target
}

func TestDrawFasterClear(t *testing.T) {
	f := newPassFixture(t, primitives.NewCircle())
	dst := f.target(t)

	require.NoError(t, deferred.DrawFasterClear(f.r, dst, [4]float32{0, 1, 0, 1}))
	img := f.read(t, dst)
	for _, p := range []image.Point{{0, 0}, {16, 16}, {31, 31}} {
		assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(p.X, p.Y))
	}
	assert.NotNil(t, f.r.Program(deferred.FasterClearProgram))
}

func TestDrawAlphaFillFillsOnlyTransparentTexels(t *testing.T) {
	f := newPassFixture(t, primitives.NewCircle(primitives.WithColor(1, 0, 0, 1)))
	dst := f.target(t)

	require.NoError(t, deferred.DrawAlphaFill(f.r, dst, f.disc, [4]float32{0, 0, 1, 1}))
	img := f.read(t, dst)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(16, 16))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(1, 1))
}

func TestDrawReceiveShadows(t *testing.T) {
	tests := []struct {
		name          string
		strength      float32
		expectedShade uint8
	}{
		{"full", 1, 0},
		{"half", 0.5, 128},
		{"none", 0, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPassFixture(t, primitives.NewCircle())
			receiver := f.target(t)
			require.NoError(t, deferred.DrawFasterClear(f.r, receiver, [4]float32{1, 1, 1, 1}))
			dst := f.target(t)

			require.NoError(t, deferred.DrawReceiveShadows(f.r, dst, f.disc, receiver, tt.strength))
			img := f.read(t, dst)

			shaded := img.NRGBAAt(16, 16)
			assert.InDelta(t, int(tt.expectedShade), int(shaded.R), 1)
			assert.Equal(t, uint8(255), shaded.A)
			assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(1, 1))
		})
	}
}

func TestDrawGenerateNormalsFromSphereHeight(t *testing.T) {
	f := newPassFixture(t, primitives.NewSphere(primitives.WithRadius(0.8)))
	dst := f.target(t)

	require.NoError(t, deferred.DrawGenerateNormals(f.r, dst, f.gbuffer.Height, f.gbuffer.Albedo))
	img := f.read(t, dst)

	// Uncovered texels keep zero alpha so they decode as flat.
	assert.Zero(t, img.NRGBAAt(0, 0).A)

	right := img.NRGBAAt(16+8, 16)
	left := img.NRGBAAt(16-9, 16)
	assert.Greater(t, right.R, uint8(128), "right side leans toward +x")
	assert.Less(t, left.R, uint8(128), "left side leans toward -x")
	assert.Equal(t, uint8(255), right.A)

	top := img.NRGBAAt(16, 16-9)
	assert.Greater(t, top.G, uint8(128), "upper side leans toward +y")
}

func TestPassesRequireAnOpenFrame(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(8, 8))
	require.NoError(t, err)
	defer r.Release()

	err = deferred.DrawFasterClear(r, nil, [4]float32{})
	assert.ErrorIs(t, err, renderer.ErrNoFrame)
}

func TestPassesNeverCompileInsideAFrame(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(8, 8),
		renderer.WithVirtualResolution(8, 8))
	require.NoError(t, err)
	defer r.Release()

	require.NoError(t, r.BeginFrame())
	dst, err := r.NewRenderTarget("pass")
	require.NoError(t, err)
	err = deferred.DrawFasterClear(r, dst, [4]float32{1, 1, 1, 1})
	assert.ErrorIs(t, err, renderer.ErrProgramNotFound)
	assert.Zero(t, r.Stats().ProgramsCompiled)
	r.AbortFrame()
}

func TestEnsurePasses(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(8, 8))
	require.NoError(t, err)
	defer r.Release()

	require.NoError(t, deferred.EnsurePasses(r, deferred.AlphaFillProgram))
	assert.NotNil(t, r.Program(deferred.AlphaFillProgram))
	assert.Nil(t, r.Program(deferred.ReceiveShadowsProgram))

	require.NoError(t, deferred.EnsurePasses(r))
	for _, key := range deferred.PassPrograms {
		assert.NotNil(t, r.Program(key), key)
	}
	assert.Equal(t, len(deferred.PassPrograms), r.Stats().ProgramsCompiled)

	assert.ErrorIs(t, deferred.EnsurePasses(r, "no_such_pass"), renderer.ErrProgramNotFound)
}
