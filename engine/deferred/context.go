// Package deferred implements the 2D deferred-lighting frame: drawables fill a G-buffer at the
// virtual resolution, every light is accumulated additively into a lit target, a screen-space
// reflection pass blends by roughness, and the result is letterboxed onto the surface.
package deferred

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/light"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

var (
	transparentBlack = [4]float32{0, 0, 0, 0}
	opaqueBlack      = [4]float32{0, 0, 0, 1}
)

// Context renders frames through a Renderer. It owns the renderer it was created with.
type Context struct {
	r renderer.Renderer

	presentSource PresentSource
	cameraZ       float32
	clearMode     ClearMode
}

// NewContext creates a Context and compiles the lighting, reflection and upscale programs.
//
// Parameters:
//   - r: the renderer to draw with; released by Context.Release
//   - opts: variadic list of ContextBuilderOption functions
//
// Returns:
//   - *Context: the ready context
//   - error: an error wrapping renderer.ErrShaderCompile if a built-in program fails to compile
func NewContext(r renderer.Renderer, opts ...ContextBuilderOption) (*Context, error) {
	if r == nil {
		return nil, fmt.Errorf("deferred: nil renderer")
	}
	c := &Context{
		r:       r,
		cameraZ: DefaultCameraZ,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, key := range []string{LightingProgram, ReflectionProgram, UpscaleProgram} {
		if err := ensureBuiltin(r, key); err != nil {
			return nil, err
		}
	}
	if c.clearMode == ClearFaster {
		if err := ensureBuiltin(r, FasterClearProgram); err != nil {
			return nil, err
		}
	}

	vw, vh := r.VirtualSize()
	common.Logger().Info("deferred context created", "virtual_width", vw, "virtual_height", vh, "present", c.presentSource.String())
	return c, nil
}

// Renderer returns the renderer the context draws with.
func (c *Context) Renderer() renderer.Renderer {
	return c.r
}

// PresentSource returns the target presented by the upscale pass.
func (c *Context) PresentSource() PresentSource {
	return c.presentSource
}

// SetPresentSource switches the target presented by subsequent frames.
func (c *Context) SetPresentSource(src PresentSource) {
	c.presentSource = src
}

// RenderFrame renders and presents one frame. Drawables are provisioned first, then emitted in
// order into a fresh G-buffer; enabled lights are accumulated in order; the reflection pass runs;
// and the configured source is letterboxed onto the surface. If any step fails the frame is
// aborted and the previously presented frame stays on screen. A drawable that panics also aborts
// the frame before the panic propagates.
//
// Parameters:
//   - lights: the frame's lights; disabled lights are skipped
//   - drawables: the frame's drawables, in draw order
//
// Returns:
//   - error: the first provisioning, allocation or draw error
func (c *Context) RenderFrame(lights []light.Light, drawables []Drawable) (err error) {
	start := time.Now()
	for _, d := range drawables {
		if d == nil {
			continue
		}
		if err := d.EnsureShadersLoaded(c.r); err != nil {
			return err
		}
	}

	if err := c.r.BeginFrame(); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			c.r.AbortFrame()
			panic(p)
		}
		if err != nil {
			c.r.AbortFrame()
		}
	}()

	g, err := c.DrawGBuffer(drawables)
	if err != nil {
		return err
	}
	lit, err := c.DrawLighting(g, lights)
	if err != nil {
		return err
	}
	reflected, err := c.DrawReflections(g, lit)
	if err != nil {
		return err
	}

	src := lit
	if c.presentSource == PresentReflected {
		src = reflected
	}
	if err = c.DrawUpscale(src); err != nil {
		return err
	}
	if err = c.r.Present(); err != nil {
		return err
	}

	common.Logger().Debug("frame presented", "lights", len(lights), "drawables", len(drawables), "elapsed", time.Since(start))
	return nil
}

// DrawGBuffer allocates and clears the four G-buffer targets and emits the drawables into them.
// It must be called inside an open frame; RenderFrame calls it after provisioning.
//
// Parameters:
//   - drawables: the drawables, in draw order
//
// Returns:
//   - GBuffer: the frame's G-buffer
//   - error: an allocation or draw error
func (c *Context) DrawGBuffer(drawables []Drawable) (GBuffer, error) {
	var g GBuffer
	for _, slot := range []struct {
		label string
		dst   *renderer.RenderTarget
	}{
		{"albedo", &g.Albedo},
		{"height", &g.Height},
		{"roughness", &g.Roughness},
		{"normal", &g.Normal},
	} {
		t, err := c.newClearedTarget(slot.label)
		if err != nil {
			return GBuffer{}, err
		}
		*slot.dst = t
	}

	for i, d := range drawables {
		if d == nil {
			continue
		}
		if err := d.Emit(c.r, g); err != nil {
			return GBuffer{}, fmt.Errorf("drawable %d: %w", i, err)
		}
	}
	return g, nil
}

// DrawLighting accumulates one additive lighting draw per enabled light into a new lit target.
//
// Parameters:
//   - g: the frame's G-buffer
//   - lights: the lights, in order
//
// Returns:
//   - renderer.RenderTarget: the lit target
//   - error: an allocation or draw error
func (c *Context) DrawLighting(g GBuffer, lights []light.Light) (renderer.RenderTarget, error) {
	lit, err := c.newClearedTarget("lit")
	if err != nil {
		return nil, err
	}
	textures := map[string]renderer.RenderTarget{
		"albedomap": g.Albedo,
		"heightmap": g.Height,
	}
	for i, l := range lights {
		if !l.Enabled() {
			continue
		}
		if err := c.r.Draw(renderer.DrawCall{
			Program:  LightingProgram,
			Target:   lit,
			Textures: textures,
			Uniforms: l.Uniforms(),
		}); err != nil {
			return nil, fmt.Errorf("light %d: %w", i, err)
		}
	}
	return lit, nil
}

// DrawReflections applies screen-space reflections to the lit target, blended by roughness.
//
// Parameters:
//   - g: the frame's G-buffer
//   - lit: the lit target
//
// Returns:
//   - renderer.RenderTarget: the reflected target
//   - error: an allocation or draw error
func (c *Context) DrawReflections(g GBuffer, lit renderer.RenderTarget) (renderer.RenderTarget, error) {
	reflected, err := c.newClearedTarget("reflected")
	if err != nil {
		return nil, err
	}
	err = c.r.Draw(renderer.DrawCall{
		Program: ReflectionProgram,
		Target:  reflected,
		Textures: map[string]renderer.RenderTarget{
			"albedomap":    lit,
			"heightmap":    g.Height,
			"roughnessmap": g.Roughness,
			"normalmap":    g.Normal,
		},
		Uniforms: shader.Uniforms{"camera_z": c.cameraZ},
	})
	if err != nil {
		return nil, err
	}
	return reflected, nil
}

// DrawUpscale clears the surface to opaque black and draws src over it, scaled by
// LetterboxScales for the current surface size.
//
// Parameters:
//   - src: the target to present
//
// Returns:
//   - error: a draw error
func (c *Context) DrawUpscale(src renderer.RenderTarget) error {
	if err := c.r.Clear(nil, opaqueBlack); err != nil {
		return err
	}
	vw, vh := c.r.VirtualSize()
	sw, sh := c.r.SurfaceSize()
	return c.r.Draw(renderer.DrawCall{
		Program:  UpscaleProgram,
		Textures: map[string]renderer.RenderTarget{"image": src},
		Uniforms: shader.Uniforms{"dim_scales": LetterboxScales(vw, vh, sw, sh)},
	})
}

// Release releases the renderer and every program it holds.
func (c *Context) Release() {
	if c.r != nil {
		c.r.Release()
	}
}

func (c *Context) newClearedTarget(label string) (renderer.RenderTarget, error) {
	t, err := c.r.NewRenderTarget(label)
	if err != nil {
		return nil, err
	}
	if c.clearMode == ClearFaster {
		err = DrawFasterClear(c.r, t, transparentBlack)
	} else {
		err = c.r.Clear(t, transparentBlack)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
