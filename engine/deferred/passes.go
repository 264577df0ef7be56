package deferred

import (
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

// PassPrograms are the keys of the programs drawn by the fixed-function passes.
var PassPrograms = []string{GenerateNormalsProgram, AlphaFillProgram, ReceiveShadowsProgram, FasterClearProgram}

// EnsurePasses provisions fixed-function pass programs. The passes never compile inside a
// frame, so a drawable that calls them from Emit calls EnsurePasses from EnsureShadersLoaded.
//
// Parameters:
//   - r: the renderer owning the registry
//   - keys: the pass programs to provision; none provisions every one of PassPrograms
//
// Returns:
//   - error: renderer.ErrProgramNotFound for a key that is not a built-in program, or a compile error
func EnsurePasses(r renderer.Renderer, keys ...string) error {
	if len(keys) == 0 {
		keys = PassPrograms
	}
	for _, key := range keys {
		if err := ensureBuiltin(r, key); err != nil {
			return err
		}
	}
	return nil
}

// DrawGenerateNormals derives a normal map from a height map. Output alpha is the albedo coverage,
// so uncovered texels decode as flat.
//
// Parameters:
//   - r: the renderer, inside an open frame
//   - dst: the normal target to overwrite
//   - heightmap: the height target to differentiate
//   - albedomap: the target providing coverage
//
// Returns:
//   - error: a draw error, wrapping renderer.ErrProgramNotFound if the pass was not provisioned
func DrawGenerateNormals(r renderer.Renderer, dst, heightmap, albedomap renderer.RenderTarget) error {
	return r.Draw(renderer.DrawCall{
		Program: GenerateNormalsProgram,
		Target:  dst,
		Textures: map[string]renderer.RenderTarget{
			"heightmap": heightmap,
			"albedomap": albedomap,
		},
	})
}

// DrawAlphaFill copies src into dst, replacing fully transparent texels with a flat color.
// Filling the background avoids dark fringes where filtered samples straddle a shape's edge.
//
// Parameters:
//   - r: the renderer, inside an open frame
//   - dst: the target to overwrite
//   - src: the texture to fill
//   - fill: the RGBA color for transparent texels
//
// Returns:
//   - error: a draw error, wrapping renderer.ErrProgramNotFound if the pass was not provisioned
func DrawAlphaFill(r renderer.Renderer, dst, src renderer.RenderTarget, fill [4]float32) error {
	return r.Draw(renderer.DrawCall{
		Program:  AlphaFillProgram,
		Target:   dst,
		Textures: map[string]renderer.RenderTarget{"target_fill": src},
		Uniforms: shader.Uniforms{"color_fill": fill},
	})
}

// DrawReceiveShadows darkens thisDraw by the coverage of lastDraw and writes the result to dst.
// A strength of 1 turns fully covered texels black; alpha is taken from thisDraw.
//
// Parameters:
//   - r: the renderer, inside an open frame
//   - dst: the target to overwrite
//   - lastDraw: the shadow caster coverage
//   - thisDraw: the receiving color
//   - strength: the shadow strength in [0, 1]
//
// Returns:
//   - error: a draw error, wrapping renderer.ErrProgramNotFound if the pass was not provisioned
func DrawReceiveShadows(r renderer.Renderer, dst, lastDraw, thisDraw renderer.RenderTarget, strength float32) error {
	return r.Draw(renderer.DrawCall{
		Program: ReceiveShadowsProgram,
		Target:  dst,
		Textures: map[string]renderer.RenderTarget{
			"last_draw": lastDraw,
			"this_draw": thisDraw,
		},
		Uniforms: shader.Uniforms{"shadow_strength": strength},
	})
}

// DrawFasterClear overwrites dst with a flat color by drawing a quad.
//
// Parameters:
//   - r: the renderer, inside an open frame
//   - dst: the target to overwrite
//   - color: the RGBA color
//
// Returns:
//   - error: a draw error, wrapping renderer.ErrProgramNotFound if the pass was not provisioned
func DrawFasterClear(r renderer.Renderer, dst renderer.RenderTarget, color [4]float32) error {
	return r.Draw(renderer.DrawCall{
		Program:  FasterClearProgram,
		Target:   dst,
		Uniforms: shader.Uniforms{"new_color": color},
	})
}
