package deferred

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/light"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
)

//go:embed assets/*.wgsl assets/include/*.wgsl
var assets embed.FS

// Keys of the built-in programs.
const (
	LightingProgram        = "lighting_shader"
	ReflectionProgram      = "reflection_shader"
	UpscaleProgram         = "upscale_shader"
	GenerateNormalsProgram = "generate_normals_shader"
	AlphaFillProgram       = "alpha_fill_shader"
	ReceiveShadowsProgram  = "receive_shadows_shader"
	FasterClearProgram     = "faster_clear_shader"
)

// FullscreenVertexSource is the vertex stage shared by every program that covers its whole target.
var FullscreenVertexSource = mustAsset("assets/fullscreen.vert.wgsl")

// Includes returns the WGSL snippets available to every program through //@lumen:include:
//   - quad: the VertexInput and VertexOutput structs of the shared quad
//   - gbuffer: coordinate conversions and normal decoding helpers
//   - light: the LightParams uniform struct
func Includes() map[string]string {
	return map[string]string{
		"quad":    mustAsset("assets/include/quad.wgsl"),
		"gbuffer": mustAsset("assets/include/gbuffer.wgsl"),
		"light":   light.GPULightSource,
	}
}

// ProgramSource is everything needed to build a program: both WGSL stages, the host kernel that
// mirrors them and the pipeline options (blend state, target kind).
type ProgramSource struct {
	Key      string
	Vertex   string
	Fragment string
	Kernel   raster.Kernel
	Options  []pipeline.PipelineBuilderOption
}

// Build compiles the source into a program.
//
// Returns:
//   - pipeline.Pipeline: the program, not yet registered
//   - error: an error wrapping renderer.ErrShaderCompile if either stage is invalid
func (s ProgramSource) Build() (pipeline.Pipeline, error) {
	return NewProgram(s.Key, s.Vertex, s.Fragment, s.Kernel, s.Options...)
}

// WithOverrides returns a copy of the source whose stages are replaced by the override files
// <dir>/<key>.vert.wgsl and <dir>/<key>.frag.wgsl, where they exist.
//
// Parameters:
//   - dir: the override directory
//
// Returns:
//   - ProgramSource: the source with overrides applied
//   - error: an error if an existing override file cannot be read
func (s ProgramSource) WithOverrides(dir string) (ProgramSource, error) {
	out := s
	for _, stage := range []struct {
		suffix string
		dst    *string
	}{
		{".vert.wgsl", &out.Vertex},
		{".frag.wgsl", &out.Fragment},
	} {
		data, err := os.ReadFile(filepath.Join(dir, s.Key+stage.suffix))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return ProgramSource{}, fmt.Errorf("program %s: %w", s.Key, err)
		}
		*stage.dst = string(data)
	}
	return out, nil
}

// NewProgram compiles a vertex and fragment pair with the shared includes and attaches the kernel.
//
// Parameters:
//   - key: the registry name of the program
//   - vertexSource: WGSL source of the vertex stage
//   - fragmentSource: WGSL source of the fragment stage
//   - kernel: the host implementation of both stages
//   - opts: pipeline options, applied after the shaders and kernel
//
// Returns:
//   - pipeline.Pipeline: the program, not yet registered
//   - error: an error wrapping renderer.ErrShaderCompile if either stage is invalid
func NewProgram(key, vertexSource, fragmentSource string, kernel raster.Kernel, opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	includes := shader.WithIncludes(Includes())
	vert, err := shader.NewShader(key+".vert", shader.ShaderTypeVertex, vertexSource, includes)
	if err != nil {
		return nil, err
	}
	frag, err := shader.NewShader(key+".frag", shader.ShaderTypeFragment, fragmentSource, includes)
	if err != nil {
		return nil, err
	}
	opts = append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vert),
		pipeline.WithFragmentShader(frag),
		pipeline.WithKernel(kernel),
	}, opts...)
	return pipeline.NewPipeline(key, opts...), nil
}

// EnsureProgram registers the program produced by build unless key is already registered.
// The registered path is a single registry lookup.
//
// Parameters:
//   - r: the renderer owning the registry
//   - key: the program key
//   - build: called only when the program is missing
//
// Returns:
//   - error: the build or registration error, if any
func EnsureProgram(r renderer.Renderer, key string, build func() (pipeline.Pipeline, error)) error {
	if r.Program(key) != nil {
		return nil
	}
	p, err := build()
	if err != nil {
		return fmt.Errorf("program %s: %w", key, err)
	}
	if err := r.RegisterPrograms(p); err != nil {
		return err
	}
	common.Logger().Debug("program provisioned", "key", key)
	return nil
}

// EnsureSource is EnsureProgram for a ProgramSource.
func EnsureSource(r renderer.Renderer, src ProgramSource) error {
	return EnsureProgram(r, src.Key, src.Build)
}

// BuiltinSources returns the sources of the fixed-function programs, keyed by program key.
func BuiltinSources() map[string]ProgramSource {
	replace := []pipeline.PipelineBuilderOption{pipeline.WithBlendEnabled(false)}
	fullscreen := func(key, fragment string, kernel raster.Kernel, opts []pipeline.PipelineBuilderOption) ProgramSource {
		return ProgramSource{
			Key:      key,
			Vertex:   FullscreenVertexSource,
			Fragment: mustAsset("assets/" + fragment),
			Kernel:   kernel,
			Options:  opts,
		}
	}

	sources := []ProgramSource{
		fullscreen(LightingProgram, "lighting.frag.wgsl", lightingKernel,
			[]pipeline.PipelineBuilderOption{pipeline.WithBlendState(pipeline.BlendAdditive())}),
		fullscreen(ReflectionProgram, "reflection.frag.wgsl", reflectionKernel, replace),
		{
			Key:      UpscaleProgram,
			Vertex:   mustAsset("assets/upscale.vert.wgsl"),
			Fragment: mustAsset("assets/upscale.frag.wgsl"),
			Kernel:   upscaleKernel,
			Options:  []pipeline.PipelineBuilderOption{pipeline.WithBlendEnabled(false), pipeline.WithTarget(pipeline.TargetSurface)},
		},
		fullscreen(GenerateNormalsProgram, "generate_normals.frag.wgsl", generateNormalsKernel, replace),
		fullscreen(AlphaFillProgram, "alpha_fill.frag.wgsl", alphaFillKernel, replace),
		fullscreen(ReceiveShadowsProgram, "receive_shadows.frag.wgsl", receiveShadowsKernel, replace),
		fullscreen(FasterClearProgram, "faster_clear.frag.wgsl", fasterClearKernel, replace),
	}

	out := make(map[string]ProgramSource, len(sources))
	for _, s := range sources {
		out[s.Key] = s
	}
	return out
}

// ensureBuiltin provisions one of the fixed-function programs.
func ensureBuiltin(r renderer.Renderer, key string) error {
	return EnsureProgram(r, key, func() (pipeline.Pipeline, error) {
		src, ok := BuiltinSources()[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", renderer.ErrProgramNotFound, key)
		}
		return src.Build()
	})
}

func mustAsset(name string) string {
	data, err := assets.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("deferred: missing embedded asset %s: %v", name, err))
	}
	return string(data)
}
