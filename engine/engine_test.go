package engine

import (
	"errors"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/light"
	"github.com/Carmen-Shannon/oxy-lumen/engine/primitives"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errEmit = errors.New("emit failed")

type failingDrawable struct{}

func (failingDrawable) EnsureShadersLoaded(renderer.Renderer) error { return nil }

func (failingDrawable) Emit(renderer.Renderer, deferred.GBuffer) error { return errEmit }

func newTestContext(t *testing.T) (*deferred.Context, renderer.Renderer) {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(32, 32),
		renderer.WithVirtualResolution(32, 32))
	require.NoError(t, err)
	ctx, err := deferred.NewContext(r)
	require.NoError(t, err)
	t.Cleanup(ctx.Release)
	return ctx, r
}

func above() light.Light {
	return light.NewLight(light.WithPosition(0, 0, 1))
}

func TestRunWithoutContext(t *testing.T) {
	assert.ErrorIs(t, NewEngine(nil).Run(), ErrNoContext)
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	ctx, r := newTestContext(t)
	s := scene.NewScene("disc", scene.WithActive(true),
		scene.WithDrawables(primitives.NewCircle(primitives.WithColor(1, 0, 0, 1))),
		scene.WithLights(above()))

	var rendered atomic.Int32
	e := NewEngine(ctx, WithScene(0, s), WithMaxFrames(3))
	e.SetRenderCallback(func(float32) { rendered.Add(1) })

	require.NoError(t, e.Run())
	assert.Equal(t, Stats{FramesRendered: 3}, e.Stats())
	assert.Equal(t, int32(3), rendered.Load())

	frame, err := r.PresentedFrame()
	require.NoError(t, err)
	center := frame.NRGBAAt(16, 16)
	assert.Greater(t, center.R, uint8(250))
	assert.Zero(t, center.G)
	assert.Equal(t, color.NRGBA{A: 255}, frame.NRGBAAt(0, 0))
}

func TestAbortedFramesDoNotStopTheLoop(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := scene.NewScene("broken", scene.WithActive(true), scene.WithDrawables(failingDrawable{}))

	e := NewEngine(ctx, WithScene(0, s), WithMaxFrames(4), WithProfiling(true))
	require.NoError(t, e.Run())
	assert.Equal(t, Stats{FramesAborted: 4}, e.Stats())
}

func TestComposeUsesActiveScenesInKeyOrder(t *testing.T) {
	ctx, _ := newTestContext(t)
	back := primitives.NewCircle()
	front := primitives.NewSphere()
	hidden := primitives.NewCircle()

	e := NewEngine(ctx,
		WithScene(10, scene.NewScene("front", scene.WithActive(true), scene.WithDrawables(front))),
		WithScene(-1, scene.NewScene("back", scene.WithActive(true), scene.WithDrawables(back), scene.WithLights(above()))),
		WithScene(5, scene.NewScene("hidden", scene.WithDrawables(hidden), scene.WithLights(above()))),
	).(*engine)

	lights, drawables := e.compose()
	assert.Len(t, lights, 1)
	assert.Equal(t, []deferred.Drawable{back, front}, drawables)

	e.RemoveScene(-1)
	_, drawables = e.compose()
	assert.Equal(t, []deferred.Drawable{front}, drawables)
	assert.Len(t, e.Scenes(), 2)
	assert.Nil(t, e.Scene(-1))
}

func TestQuitStopsHeadlessRun(t *testing.T) {
	ctx, _ := newTestContext(t)
	e := NewEngine(ctx, WithFrameLimit(1000))

	var ticks atomic.Int32
	e.SetTickRate(1000)
	e.SetTickCallback(func(float32) { ticks.Add(1) })

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	time.Sleep(50 * time.Millisecond)
	e.Quit()
	e.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.Positive(t, e.Stats().FramesRendered)
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Zero(t, frameDuration(-5))
	assert.Equal(t, 16*time.Millisecond+666666*time.Nanosecond, frameDuration(60))
}
