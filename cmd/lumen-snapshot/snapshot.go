package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/deferred"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lumen/engine/scene"
	"github.com/HugoSmits86/nativewebp"
)

// Surface size used when the run does not name one.
const (
	defaultSurfaceWidth  = 256
	defaultSurfaceHeight = 128
)

// Config holds the settings shared by every scene of a run.
type Config struct {
	OutDir string
	// Width and Height size the presented surface; zero uses 256x128.
	Width, Height int
	// Present overrides the scene's present source when not empty.
	Present  string
	Workers  int
	Validate bool
}

// Result is the outcome of rendering one scene file.
type Result struct {
	Scene   string
	Output  string
	Elapsed time.Duration
	Err     error
}

// Run renders every scene in paths on its own software renderer, spreading the scenes over a
// worker pool. Results come back in the order of paths.
func Run(cfg Config, paths []string) []Result {
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	pool := worker.NewDynamicWorkerPool(max(cfg.Workers, 1), len(paths), time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: path,
			Do: func() (any, error) {
				defer wg.Done()
				start := time.Now()
				out, err := renderScene(cfg, path)
				results[i] = Result{Scene: path, Output: out, Elapsed: time.Since(start), Err: err}
				return out, err
			},
		})
	}
	wg.Wait()
	return results
}

// Failed joins the errors of every failed result, or returns nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Scene, r.Err))
		}
	}
	return errors.Join(errs...)
}

// renderScene loads one scene file, renders a single frame and writes it as WebP.
func renderScene(cfg Config, path string) (string, error) {
	f, err := scene.ReadFile(path)
	if err != nil {
		return "", err
	}
	if cfg.Present != "" {
		f.Present = cfg.Present
		if _, err := deferred.ParsePresentSource(f.Present); err != nil {
			return "", err
		}
	}
	s, opts := f.Build()

	vw, vh := renderer.DefaultVirtualWidth, renderer.DefaultVirtualHeight
	if f.Resolution != nil {
		vw, vh = f.Resolution[0], f.Resolution[1]
	}
	sw, sh := defaultSurfaceWidth, defaultSurfaceHeight
	if cfg.Width > 0 && cfg.Height > 0 {
		sw, sh = cfg.Width, cfg.Height
	}

	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.NewOffscreenSurface(sw, sh),
		renderer.WithVirtualResolution(vw, vh),
		renderer.WithShaderValidation(cfg.Validate))
	if err != nil {
		return "", err
	}
	ctx, err := deferred.NewContext(r, opts...)
	if err != nil {
		r.Release()
		return "", err
	}
	defer ctx.Release()

	if err := s.Render(ctx); err != nil {
		return "", fmt.Errorf("failed to render scene %q: %w", s.Name(), err)
	}
	frame, err := r.PresentedFrame()
	if err != nil {
		return "", err
	}

	out := filepath.Join(cfg.OutDir, outputName(path))
	if err := writeWebP(out, frame); err != nil {
		return "", err
	}
	common.Logger().Info("scene rendered", "scene", path, "output", out, "width", sw, "height", sh)
	return out, nil
}

// outputName maps scenes/lit.yaml to lit.webp.
func outputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".webp"
}

func writeWebP(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	return f.Close()
}
