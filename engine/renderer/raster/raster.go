// Package raster is a host-memory rasterizer for the quad draws issued by the deferred pipeline.
// It evaluates a program's Go kernel per covered pixel with the same conventions as the GPU path:
// clip space with y up, texture space with v down, pixel centers at half-integer coordinates.
package raster

import (
	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/chewxy/math32"
)

// Fragment carries the interpolated inputs of a single covered pixel.
type Fragment struct {
	// UV is the interpolated texture coordinate.
	UV [2]float32
	// Local is the interpolated quad position before the vertex kernel ran, in [-1, 1].
	Local [2]float32
	// Pixel is the integer coordinate of the pixel being shaded.
	Pixel [2]int
}

// Env exposes the uniforms and bound textures of a draw to a fragment kernel.
type Env struct {
	Uniforms shader.Uniforms
	Textures map[string]*Texture
}

// Sample reads the named texture at uv with nearest filtering and mirrored wrapping.
// Unbound names sample as transparent black.
func (e *Env) Sample(name string, uv [2]float32) [4]float32 {
	t, ok := e.Textures[name]
	if !ok || t == nil {
		return [4]float32{}
	}
	return t.Sample(uv)
}

// TexelSize returns the size of one texel of the named texture in texture-coordinate units.
func (e *Env) TexelSize(name string) [2]float32 {
	t, ok := e.Textures[name]
	if !ok || t == nil || t.width == 0 || t.height == 0 {
		return [2]float32{}
	}
	return [2]float32{1 / float32(t.width), 1 / float32(t.height)}
}

// VertexFunc maps a quad vertex position to clip space.
type VertexFunc func(position [2]float32, u shader.Uniforms) [2]float32

// FragmentFunc shades a fragment. Returning false discards it.
type FragmentFunc func(in Fragment, env *Env) ([4]float32, bool)

// Kernel is the host implementation of a program, mirroring its WGSL vertex and fragment stages.
type Kernel struct {
	Vertex   VertexFunc
	Fragment FragmentFunc
}

// PassThrough is the vertex function of the shared full-screen quad.
func PassThrough(position [2]float32, _ shader.Uniforms) [2]float32 {
	return position
}

// Valid reports whether both stages are present.
func (k Kernel) Valid() bool {
	return k.Vertex != nil && k.Fragment != nil
}

type screenVertex struct {
	x, y  float32
	uv    [2]float32
	local [2]float32
}

// DrawQuad rasterizes the six-vertex quad into dst. Each pixel is shaded at most once per draw,
// even where the two triangles share an edge.
//
// Parameters:
//   - dst: the target texture
//   - vertices: the quad vertices
//   - k: the program kernel
//   - env: uniforms and textures for the fragment kernel
//   - blend: how fragment colors combine with dst
//
// Returns:
//   - int: the number of fragments written
func DrawQuad(dst *Texture, vertices [6]common.Vertex, k Kernel, env *Env, blend Blend) int {
	if dst.width == 0 || dst.height == 0 {
		return 0
	}
	w, h := float32(dst.width), float32(dst.height)
	var sv [6]screenVertex
	for i, v := range vertices {
		clip := k.Vertex(v.Position, env.Uniforms)
		sv[i] = screenVertex{
			x:     (clip[0]*0.5 + 0.5) * w,
			y:     (0.5 - clip[1]*0.5) * h,
			uv:    v.TexCoords,
			local: v.Position,
		}
	}

	covered := make([]bool, dst.width*dst.height)
	written := 0
	for tri := 0; tri < 6; tri += 3 {
		written += drawTriangle(dst, sv[tri], sv[tri+1], sv[tri+2], covered, k.Fragment, env, blend)
	}
	return written
}

func drawTriangle(dst *Texture, a, b, c screenVertex, covered []bool, frag FragmentFunc, env *Env, blend Blend) int {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return 0
	}

	minX := clampInt(int(math32.Floor(math32.Min(a.x, math32.Min(b.x, c.x)))), 0, dst.width-1)
	maxX := clampInt(int(math32.Ceil(math32.Max(a.x, math32.Max(b.x, c.x)))), 0, dst.width-1)
	minY := clampInt(int(math32.Floor(math32.Min(a.y, math32.Min(b.y, c.y)))), 0, dst.height-1)
	maxY := clampInt(int(math32.Ceil(math32.Max(a.y, math32.Max(b.y, c.y)))), 0, dst.height-1)

	written := 0
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			idx := y*dst.width + x
			if covered[idx] {
				continue
			}
			px := float32(x) + 0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			covered[idx] = true

			in := Fragment{
				UV:    interpolate(a.uv, b.uv, c.uv, w0, w1, w2),
				Local: interpolate(a.local, b.local, c.local, w0, w1, w2),
				Pixel: [2]int{x, y},
			}
			out, keep := frag(in, env)
			if !keep {
				continue
			}
			for ch := range 4 {
				out[ch] = math32.Max(0, math32.Min(1, out[ch]))
			}
			dst.Set(x, y, blend(out, dst.At(x, y)))
			written++
		}
	}
	return written
}

// edge is twice the signed area of the triangle (a, b, p).
func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func interpolate(a, b, c [2]float32, w0, w1, w2 float32) [2]float32 {
	return [2]float32{
		a[0]*w0 + b[0]*w1 + c[0]*w2,
		a[1]*w0 + b[1]*w1 + c[1]*w2,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
