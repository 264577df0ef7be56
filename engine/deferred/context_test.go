package deferred_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/light"
	"github.com/Carmen-Shannon/oxy-lumen/engine/primitives"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opaqueBlack = color.NRGBA{A: 255}

func newTestContext(t *testing.T, surfaceWidth, surfaceHeight int, rendererOpts []renderer.RendererBuilderOption, opts ...deferred.ContextBuilderOption) *deferred.Context {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(surfaceWidth, surfaceHeight), rendererOpts...)
	require.NoError(t, err)
	ctx, err := deferred.NewContext(r, opts...)
	require.NoError(t, err)
	t.Cleanup(ctx.Release)
	return ctx
}

func whiteLightAbove() light.Light {
	return light.NewLight(light.WithPosition(0, 0, 1))
}

func presented(t *testing.T, ctx *deferred.Context) *image.NRGBA {
	t.Helper()
	img, err := ctx.Renderer().PresentedFrame()
	require.NoError(t, err)
	return img
}

func TestNewContextRegistersFramePrograms(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	r := ctx.Renderer()

	for _, key := range []string{deferred.LightingProgram, deferred.ReflectionProgram, deferred.UpscaleProgram} {
		assert.NotNil(t, r.Program(key), key)
	}
	assert.Nil(t, r.Program(deferred.FasterClearProgram))
	assert.Equal(t, 3, r.Stats().ProgramsCompiled)
}

func TestNewContextNilRenderer(t *testing.T) {
	_, err := deferred.NewContext(nil)
	assert.Error(t, err)
}

func TestEndToEndRedDisc(t *testing.T) {
	ctx := newTestContext(t, 256, 128, nil)
	circle := primitives.NewCircle(primitives.WithColor(1, 0, 0, 1), primitives.WithRadius(0.5))

	require.NoError(t, ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{circle}))
	img := presented(t, ctx)
	require.Equal(t, image.Rect(0, 0, 256, 128), img.Bounds())

	center := img.NRGBAAt(128, 64)
	assert.Greater(t, center.R, uint8(200))
	assert.Zero(t, center.G)
	assert.Zero(t, center.B)
	assert.Equal(t, uint8(255), center.A)

	// The 128x128 image is stretched by (1, 0.5), so the disc spans 64 pixels horizontally
	// and 16 pixels vertically from the center.
	for _, p := range []image.Point{{128 + 60, 64}, {128 - 60, 64}, {128, 64 - 14}, {128, 64 + 14}} {
		assert.Greater(t, img.NRGBAAt(p.X, p.Y).R, uint8(0), "inside disc at %v", p)
	}
	for _, p := range []image.Point{{128 + 68, 64}, {128 - 68, 64}, {128, 64 - 18}, {128, 64 + 18}, {4, 64}} {
		assert.Equal(t, opaqueBlack, img.NRGBAAt(p.X, p.Y), "outside disc at %v", p)
	}

	for x := 0; x < 256; x++ {
		for _, y := range []int{0, 31, 96, 127} {
			require.Equal(t, opaqueBlack, img.NRGBAAt(x, y), "bar pixel (%d, %d)", x, y)
		}
	}
}

func TestLetterboxBarsFrameTheImage(t *testing.T) {
	ctx := newTestContext(t, 256, 128, nil)
	backdrop := primitives.NewCircle(primitives.WithColor(0, 0, 1, 1), primitives.WithRadius(2))

	require.NoError(t, ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{backdrop}))
	img := presented(t, ctx)

	for y := 0; y < 128; y++ {
		inImage := y >= 32 && y < 96
		for _, x := range []int{0, 128, 255} {
			px := img.NRGBAAt(x, y)
			assert.Equal(t, uint8(255), px.A)
			if inImage {
				assert.Greater(t, px.B, uint8(0), "image pixel (%d, %d)", x, y)
			} else {
				assert.Equal(t, opaqueBlack, px, "bar pixel (%d, %d)", x, y)
			}
		}
	}
}

func TestAlbedoOnlyDrawableLeavesOtherTargetsClear(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	r := ctx.Renderer()
	circle := primitives.NewCircle(primitives.WithColor(0, 1, 0, 1))
	require.NoError(t, circle.EnsureShadersLoaded(r))

	require.NoError(t, r.BeginFrame())
	defer r.AbortFrame()

	g, err := ctx.DrawGBuffer([]deferred.Drawable{circle})
	require.NoError(t, err)

	albedo, err := r.ReadTarget(g.Albedo)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, albedo.NRGBAAt(64, 64))
	assert.Equal(t, color.NRGBA{}, albedo.NRGBAAt(2, 2))

	for _, target := range []renderer.RenderTarget{g.Height, g.Roughness, g.Normal} {
		img, err := r.ReadTarget(target)
		require.NoError(t, err)
		for i, v := range img.Pix {
			if v != 0 {
				t.Fatalf("%s: byte %d is %d, want transparent black", target.Label(), i, v)
			}
		}
	}
}

func TestLightOrderIndependence(t *testing.T) {
	lights := []light.Light{
		light.NewLight(light.WithPosition(-0.5, 0.2, 0.6), light.WithColor(1, 0.4, 0.2), light.WithIntensity(0.7), light.WithFalloff(1)),
		light.NewLight(light.WithPosition(0.4, -0.3, 0.8), light.WithColor(0.2, 0.5, 1), light.WithIntensity(0.6), light.WithFalloff(2)),
	}
	drawables := []deferred.Drawable{
		primitives.NewSphere(primitives.WithColor(1, 1, 1, 1), primitives.WithRadius(0.8)),
	}

	forward := newTestContext(t, 128, 128, nil)
	require.NoError(t, forward.RenderFrame(lights, drawables))
	reversed := newTestContext(t, 128, 128, nil)
	require.NoError(t, reversed.RenderFrame([]light.Light{lights[1], lights[0]}, drawables))

	a, b := presented(t, forward), presented(t, reversed)
	require.Equal(t, len(a.Pix), len(b.Pix))
	for i := range a.Pix {
		diff := int(a.Pix[i]) - int(b.Pix[i])
		if diff < -1 || diff > 1 {
			t.Fatalf("byte %d differs: %d vs %d", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestDisabledLightsContributeNothing(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	off := whiteLightAbove()
	off.SetEnabled(false)

	require.NoError(t, ctx.RenderFrame([]light.Light{off}, []deferred.Drawable{primitives.NewCircle()}))
	assert.Equal(t, opaqueBlack, presented(t, ctx).NRGBAAt(64, 64))
}

func TestProvisioningIsIdempotent(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	r := ctx.Renderer()
	sphere := primitives.NewSphere()

	require.NoError(t, sphere.EnsureShadersLoaded(r))
	handle := r.Program(primitives.SphereHeightProgram)
	compiled := r.Stats().ProgramsCompiled

	require.NoError(t, sphere.EnsureShadersLoaded(r))
	require.NoError(t, ctx.RenderFrame(nil, []deferred.Drawable{sphere, primitives.NewCircle()}))
	require.NoError(t, ctx.RenderFrame(nil, []deferred.Drawable{sphere}))

	assert.Same(t, handle, r.Program(primitives.SphereHeightProgram))
	assert.Equal(t, compiled, r.Stats().ProgramsCompiled)
	assert.NotNil(t, r.Program(primitives.CircleProgram))
}

func TestAllocationFailureAbortsFrame(t *testing.T) {
	// Four G-buffer targets plus lit fit; the reflected target does not.
	ctx := newTestContext(t, 128, 128, []renderer.RendererBuilderOption{renderer.WithTargetBudget(5)})

	err := ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{primitives.NewCircle()})
	require.ErrorIs(t, err, renderer.ErrTargetAllocation)

	stats := ctx.Renderer().Stats()
	assert.Equal(t, 1, stats.FramesAborted)
	assert.Zero(t, stats.FramesPresented)
	assert.Zero(t, stats.TargetsLive)

	_, err = ctx.Renderer().PresentedFrame()
	assert.ErrorIs(t, err, renderer.ErrNoFrame)

	// The renderer accepts the next frame.
	require.NoError(t, ctx.Renderer().BeginFrame())
	ctx.Renderer().AbortFrame()
}

type failingDrawable struct {
	err error
}

func (d failingDrawable) EnsureShadersLoaded(renderer.Renderer) error { return nil }

func (d failingDrawable) Emit(renderer.Renderer, deferred.GBuffer) error { return d.err }

func TestFailedFrameKeepsPreviousPresentation(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	blue := primitives.NewCircle(primitives.WithColor(0, 0, 1, 1))

	require.NoError(t, ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{blue}))
	before := presented(t, ctx)

	boom := errors.New("emit failed")
	red := primitives.NewCircle(primitives.WithColor(1, 0, 0, 1))
	err := ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{red, failingDrawable{err: boom}})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, before.Pix, presented(t, ctx).Pix)
	assert.Equal(t, 1, ctx.Renderer().Stats().FramesAborted)
}

type panickingDrawable struct{}

func (panickingDrawable) EnsureShadersLoaded(renderer.Renderer) error { return nil }

func (panickingDrawable) Emit(renderer.Renderer, deferred.GBuffer) error { panic("emit panicked") }

func TestPanickingDrawableAbortsFrame(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	blue := primitives.NewCircle(primitives.WithColor(0, 0, 1, 1))

	assert.PanicsWithValue(t, "emit panicked", func() {
		_ = ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{blue, panickingDrawable{}})
	})
	assert.Equal(t, 1, ctx.Renderer().Stats().FramesAborted)

	require.NoError(t, ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{blue}))
}

func TestProvisioningFailureOpensNoFrame(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	bad := provisionFailure{}

	err := ctx.RenderFrame(nil, []deferred.Drawable{bad})
	require.ErrorIs(t, err, renderer.ErrShaderCompile)
	assert.Zero(t, ctx.Renderer().Stats().FramesAborted)
}

type provisionFailure struct{}

func (provisionFailure) EnsureShadersLoaded(r renderer.Renderer) error {
	return deferred.EnsureProgram(r, "broken_shader", func() (pipeline.Pipeline, error) {
		src := deferred.BuiltinSources()[deferred.FasterClearProgram]
		src.Key = "broken_shader"
		src.Fragment = "struct Unused { x: f32, }"
		return src.Build()
	})
}

func (provisionFailure) Emit(renderer.Renderer, deferred.GBuffer) error { return nil }

func TestRoughSurfacesPresentTheSameUnderBothSources(t *testing.T) {
	drawables := []deferred.Drawable{
		primitives.NewSphere(primitives.WithColor(1, 0.5, 0, 1), primitives.WithRoughness(1)),
	}
	lights := []light.Light{whiteLightAbove()}

	lit := newTestContext(t, 128, 128, nil)
	require.NoError(t, lit.RenderFrame(lights, drawables))
	reflected := newTestContext(t, 128, 128, nil, deferred.WithPresentSource(deferred.PresentReflected))
	require.NoError(t, reflected.RenderFrame(lights, drawables))

	a, b := presented(t, lit), presented(t, reflected)
	// Only the sphere is rough; its pixels must match exactly.
	for _, p := range []image.Point{{64, 64}, {80, 60}, {50, 70}} {
		assert.Equal(t, a.NRGBAAt(p.X, p.Y), b.NRGBAAt(p.X, p.Y), "pixel %v", p)
	}
}

func TestClearModesProduceTheSameFrame(t *testing.T) {
	drawables := []deferred.Drawable{primitives.NewCircle(primitives.WithColor(0.3, 0.8, 0.1, 1))}
	lights := []light.Light{whiteLightAbove()}

	native := newTestContext(t, 160, 128, nil)
	require.NoError(t, native.RenderFrame(lights, drawables))
	faster := newTestContext(t, 160, 128, nil, deferred.WithClearMode(deferred.ClearFaster))
	require.NoError(t, faster.RenderFrame(lights, drawables))

	assert.NotNil(t, faster.Renderer().Program(deferred.FasterClearProgram))
	assert.Equal(t, presented(t, native).Pix, presented(t, faster).Pix)
}

func TestResizeChangesLetterbox(t *testing.T) {
	ctx := newTestContext(t, 128, 128, nil)
	backdrop := primitives.NewCircle(primitives.WithColor(1, 1, 1, 1), primitives.WithRadius(2))

	require.NoError(t, ctx.Renderer().Resize(128, 256))
	require.NoError(t, ctx.RenderFrame([]light.Light{whiteLightAbove()}, []deferred.Drawable{backdrop}))
	img := presented(t, ctx)

	// A tall surface scales the image by (0.5, 1): columns 32 to 95 hold the image.
	require.Equal(t, image.Rect(0, 0, 128, 256), img.Bounds())
	assert.Greater(t, img.NRGBAAt(64, 128).R, uint8(0))
	assert.Greater(t, img.NRGBAAt(33, 10).R, uint8(0))
	assert.Equal(t, opaqueBlack, img.NRGBAAt(10, 128))
	assert.Equal(t, opaqueBlack, img.NRGBAAt(31, 128))
	assert.Equal(t, opaqueBlack, img.NRGBAAt(120, 128))
}
