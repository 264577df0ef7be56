package primitives

import (
	"embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-lumen/engine/transform"
	"github.com/chewxy/math32"
)

//go:embed assets/*.wgsl
var assets embed.FS

// Keys of the primitive programs.
const (
	CircleProgram       = "circle_ahr_shader"
	SphereHeightProgram = "sphere_height_shader"
	SphereNormalProgram = "sphere_normal_shader"
)

// ProgramSources returns the sources of every primitive program.
func ProgramSources() []deferred.ProgramSource {
	vertex := mustAsset("shape.vert.wgsl")
	return []deferred.ProgramSource{
		{Key: CircleProgram, Vertex: vertex, Fragment: mustAsset("circle.frag.wgsl"), Kernel: circleKernel},
		{Key: SphereHeightProgram, Vertex: vertex, Fragment: mustAsset("sphere_height.frag.wgsl"), Kernel: sphereHeightKernel},
		{Key: SphereNormalProgram, Vertex: vertex, Fragment: mustAsset("sphere_normal.frag.wgsl"), Kernel: sphereNormalKernel},
	}
}

func programSource(key string) deferred.ProgramSource {
	for _, src := range ProgramSources() {
		if src.Key == key {
			return src
		}
	}
	panic(fmt.Sprintf("primitives: unknown program %s", key))
}

// ensure provisions a primitive program. Sources are only read when the program is missing.
func ensure(r renderer.Renderer, key string) error {
	return deferred.EnsureProgram(r, key, func() (pipeline.Pipeline, error) {
		return programSource(key).Build()
	})
}

func shapeVertex(position [2]float32, u shader.Uniforms) [2]float32 {
	x, y := transform.FromMatrix(u.Mat4("matrix")).Apply2D(position[0], position[1])
	return [2]float32{x, y}
}

// sphereHeight is the unit-sphere height at the fragment, or false outside the disc.
func sphereHeight(local [2]float32, radius float32) (float32, bool) {
	d := math32.Hypot(local[0], local[1])
	if radius <= 0 || d > radius {
		return 0, false
	}
	q := d / radius
	return math32.Sqrt(math32.Max(1-q*q, 0)), true
}

var circleKernel = raster.Kernel{
	Vertex: shapeVertex,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		if math32.Hypot(in.Local[0], in.Local[1]) > env.Uniforms.Float("radius") {
			return [4]float32{}, false
		}
		return env.Uniforms.Vec4("circle_color"), true
	},
}

var sphereHeightKernel = raster.Kernel{
	Vertex: shapeVertex,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		h, ok := sphereHeight(in.Local, env.Uniforms.Float("radius"))
		return [4]float32{h, h, h, 1}, ok
	},
}

var sphereNormalKernel = raster.Kernel{
	Vertex: shapeVertex,
	Fragment: func(in raster.Fragment, env *raster.Env) ([4]float32, bool) {
		r := env.Uniforms.Float("radius")
		h, ok := sphereHeight(in.Local, r)
		if !ok {
			return [4]float32{}, false
		}
		return deferred.EncodeNormal([3]float32{in.Local[0] / r, in.Local[1] / r, h}, 1), true
	},
}

func mustAsset(name string) string {
	data, err := assets.ReadFile("assets/" + name)
	if err != nil {
		panic(fmt.Sprintf("primitives: missing embedded asset %s: %v", name, err))
	}
	return string(data)
}
