package deferred

import (
	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/chewxy/math32"
)

const (
	marchSteps    = 16
	marchDistance = float32(0.5)
)

// LetterboxScales computes the dim_scales of the upscale pass. Each axis is the ratio of the
// target size to the virtual size, normalized so that the larger factor is exactly 1.
//
// Parameters:
//   - virtualWidth, virtualHeight: the virtual resolution
//   - targetWidth, targetHeight: the surface resolution
//
// Returns:
//   - [2]float32: the x and y scale factors applied to the quad positions
func LetterboxScales(virtualWidth, virtualHeight, targetWidth, targetHeight int) [2]float32 {
	if virtualWidth <= 0 || virtualHeight <= 0 || targetWidth <= 0 || targetHeight <= 0 {
		return [2]float32{1, 1}
	}
	sx := float32(targetWidth) / float32(virtualWidth)
	sy := float32(targetHeight) / float32(virtualHeight)
	if sx >= sy {
		return [2]float32{1, sy / sx}
	}
	return [2]float32{sx / sy, 1}
}

// ReflectionBlend mixes the screen-space reflection sample with the lit color.
// A roughness of 0 yields ssr, a roughness of 1 yields lit.
func ReflectionBlend(ssr, lit [4]float32, roughness float32) [4]float32 {
	return common.Lerp4(ssr, lit, common.Clamp(roughness, 0, 1))
}

// DecodeNormal unpacks a normal texel stored as rgb*0.5+0.5. A texel with zero alpha decodes
// to the flat normal (0, 0, 1).
func DecodeNormal(texel [4]float32) [3]float32 {
	if texel[3] == 0 {
		return [3]float32{0, 0, 1}
	}
	return normalize3([3]float32{texel[0]*2 - 1, texel[1]*2 - 1, texel[2]*2 - 1})
}

// EncodeNormal packs a unit normal into the [0, 1] range of a color target.
func EncodeNormal(n [3]float32, alpha float32) [4]float32 {
	return [4]float32{n[0]*0.5 + 0.5, n[1]*0.5 + 0.5, n[2]*0.5 + 0.5, alpha}
}

// UVToClip converts a texture coordinate into clip space.
func UVToClip(uv [2]float32) [2]float32 {
	return [2]float32{uv[0]*2 - 1, 1 - uv[1]*2}
}

// ClipToUV converts a clip-space position into a texture coordinate.
func ClipToUV(p [2]float32) [2]float32 {
	return [2]float32{(p[0] + 1) * 0.5, (1 - p[1]) * 0.5}
}

// heightNormal mirrors height_normal in the gbuffer include.
func heightNormal(env *raster.Env, name string, uv [2]float32) [3]float32 {
	texel := env.TexelSize(name)
	if texel[0] == 0 || texel[1] == 0 {
		return [3]float32{0, 0, 1}
	}
	l := env.Sample(name, [2]float32{uv[0] - texel[0], uv[1]})[0]
	r := env.Sample(name, [2]float32{uv[0] + texel[0], uv[1]})[0]
	u := env.Sample(name, [2]float32{uv[0], uv[1] - texel[1]})[0]
	d := env.Sample(name, [2]float32{uv[0], uv[1] + texel[1]})[0]
	dx := (r - l) / texel[0] * 0.25
	dy := (u - d) / texel[1] * 0.25
	return normalize3([3]float32{-dx, -dy, 1})
}

var lightingKernel = raster.Kernel{
	Vertex: raster.PassThrough,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		albedo := env.Sample("albedomap", in.UV)
		height := env.Sample("heightmap", in.UV)[0]
		n := heightNormal(env, "heightmap", in.UV)

		xy := UVToClip(in.UV)
		pos := env.Uniforms.Vec3("light_position")
		toLight := [3]float32{pos[0] - xy[0], pos[1] - xy[1], pos[2] - height}
		dist := length3(toLight)
		ndl := float32(1)
		if dist > 0 {
			ndl = math32.Max(dot3(n, scale3(toLight, 1/dist)), 0)
		}
		atten := 1 / (1 + env.Uniforms.Float("light_falloff")*dist*dist)

		c := env.Uniforms.Vec3("light_color")
		k := env.Uniforms.Float("light_intensity") * ndl * atten
		return [4]float32{albedo[0] * c[0] * k, albedo[1] * c[1] * k, albedo[2] * c[2] * k, albedo[3]}, true
	},
}

var reflectionKernel = raster.Kernel{
	Vertex: raster.PassThrough,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		lit := env.Sample("albedomap", in.UV)
		roughness := env.Sample("roughnessmap", in.UV)[0]
		height := env.Sample("heightmap", in.UV)[0]
		n := DecodeNormal(env.Sample("normalmap", in.UV))

		xy := UVToClip(in.UV)
		p := [3]float32{xy[0], xy[1], height}
		view := [3]float32{p[0], p[1], p[2] - env.Uniforms.Float("camera_z")}
		incident := [3]float32{0, 0, -1}
		if length3(view) > 0 {
			incident = normalize3(view)
		}
		r := reflect3(incident, n)

		ssr := lit
		for i := 1; i <= marchSteps; i++ {
			t := float32(i) / marchSteps * marchDistance
			q := [3]float32{p[0] + r[0]*t, p[1] + r[1]*t, p[2] + r[2]*t}
			uvq := ClipToUV([2]float32{q[0], q[1]})
			if uvq[0] < 0 || uvq[0] > 1 || uvq[1] < 0 || uvq[1] > 1 {
				break
			}
			if q[2] <= env.Sample("heightmap", uvq)[0] {
				ssr = env.Sample("albedomap", uvq)
				break
			}
		}
		return ReflectionBlend(ssr, lit, roughness), true
	},
}

var upscaleKernel = raster.Kernel{
	Vertex: func(position [2]float32, u shader.Uniforms) [2]float32 {
		s := u.Vec2("dim_scales")
		return [2]float32{position[0] * s[0], position[1] * s[1]}
	},
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		c := env.Sample("image", in.UV)
		return [4]float32{c[0], c[1], c[2], 1}, true
	},
}

var generateNormalsKernel = raster.Kernel{
	Vertex: raster.PassThrough,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		n := heightNormal(env, "heightmap", in.UV)
		return EncodeNormal(n, env.Sample("albedomap", in.UV)[3]), true
	},
}

var alphaFillKernel = raster.Kernel{
	Vertex: raster.PassThrough,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		if texel := env.Sample("target_fill", in.UV); texel[3] > 0 {
			return texel, true
		}
		return env.Uniforms.Vec4("color_fill"), true
	},
}

var receiveShadowsKernel = raster.Kernel{
	Vertex: raster.PassThrough,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		shadow := env.Sample("last_draw", in.UV)
		c := env.Sample("this_draw", in.UV)
		shade := common.Clamp(1-env.Uniforms.Float("shadow_strength")*shadow[3], 0, 1)
		return [4]float32{c[0] * shade, c[1] * shade, c[2] * shade, c[3]}, true
	},
}

var fasterClearKernel = raster.Kernel{
	Vertex: raster.PassThrough,
	Fragment: func(_ raster.Fragment, env *raster.Env) ([4]float32, bool) {
		return env.Uniforms.Vec4("new_color"), true
	},
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func length3(v [3]float32) float32 {
	return math32.Sqrt(dot3(v, v))
}

func scale3(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}

func normalize3(v [3]float32) [3]float32 {
	l := length3(v)
	if l == 0 {
		return v
	}
	return scale3(v, 1/l)
}

// reflect3 matches the WGSL builtin: i - 2 * dot(n, i) * n.
func reflect3(i, n [3]float32) [3]float32 {
	d := 2 * dot3(n, i)
	return [3]float32{i[0] - d*n[0], i[1] - d*n[1], i[2] - d*n[2]}
}
