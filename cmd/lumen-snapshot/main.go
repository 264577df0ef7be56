// Command lumen-snapshot renders YAML scene files headlessly on the software backend and writes
// each presented frame as a lossless WebP.
//
//	lumen-snapshot -out frames -width 512 -height 256 scenes/*.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-lumen/common"
)

func main() {
	var cfg Config
	var verbose bool
	flag.StringVar(&cfg.OutDir, "out", ".", "output directory")
	flag.IntVar(&cfg.Width, "width", 0, "surface width in pixels (0 = 256)")
	flag.IntVar(&cfg.Height, "height", 0, "surface height in pixels (0 = 128)")
	flag.StringVar(&cfg.Present, "present", "", "override the present source: lit or reflected")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "scenes rendered concurrently")
	flag.BoolVar(&cfg.Validate, "validate", false, "compile every WGSL stage with naga before use")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] scene.yaml...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	results := Run(cfg, flag.Args())
	for _, r := range results {
		if r.Err == nil {
			fmt.Printf("%s -> %s (%s)\n", r.Scene, r.Output, r.Elapsed.Round(1e6))
		}
	}
	if err := Failed(results); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
