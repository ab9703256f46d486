// Command peelshot renders the depth peeling demo scene headless with the software backend and
// writes the frame as an OpenEXR image, and optionally as a PNG.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/config"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/peel"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/reference"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/pkg/errors"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		log.Println("peelshot:", err)
		os.Exit(1)
	}
}

// options are the command line settings that are not part of config.Config.
type options struct {
	configPath string
	verbose    bool
	compare    bool
}

// parseFlags reads args over the configuration file (or the defaults). Only flags given on
// the command line override the file.
func parseFlags(args []string, stderr io.Writer) (config.Config, options, error) {
	fs := flag.NewFlagSet("peelshot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	def := config.Default()
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	fs.BoolVar(&opts.compare, "compare", false, "also render the sorted reference and report the difference")
	peeling := fs.Bool("peel", def.Peel.UseDepthPeeling, "use depth peeling; false renders with sorted alpha blending")
	layers := fs.Int("layers", def.Peel.LayerCount, fmt.Sprintf("peel layer count (0-%d)", config.MaxLayerCount))
	doubleSided := fs.Bool("double-sided", def.Peel.DoubleSided, "draw both faces of transparent objects")
	opacity := fs.Float64("opacity", float64(def.Peel.Opacity), "opacity multiplier for transparent objects")
	width := fs.Int("width", def.Output.Width, "image width")
	height := fs.Int("height", def.Output.Height, "image height")
	seed := fs.Int64("seed", def.Output.Seed, "demo scene seed")
	workers := fs.Int("workers", def.Output.Workers, "rasterizer workers (0 uses every CPU)")
	exrPath := fs.String("exr", def.Output.EXR, "OpenEXR output path")
	pngPath := fs.String("png", def.Output.PNG, "optional PNG output path")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, opts, err
	}

	cfg := def
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, opts, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "peel":
			cfg.Peel.UseDepthPeeling = *peeling
		case "layers":
			cfg.Peel.LayerCount = *layers
		case "double-sided":
			cfg.Peel.DoubleSided = *doubleSided
		case "opacity":
			cfg.Peel.Opacity = float32(*opacity)
		case "width":
			cfg.Output.Width = *width
		case "height":
			cfg.Output.Height = *height
		case "seed":
			cfg.Output.Seed = *seed
		case "workers":
			cfg.Output.Workers = *workers
		case "exr":
			cfg.Output.EXR = *exrPath
		case "png":
			cfg.Output.PNG = *pngPath
		}
	})
	return cfg.Normalize(), opts, nil
}

func run(args []string, stderr io.Writer) error {
	cfg, opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	out := cfg.Output
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware,
		renderer.WithSize(out.Width, out.Height),
		renderer.WithWorkers(out.Workers),
	)
	if err != nil {
		return errors.Wrap(err, "create renderer")
	}
	defer r.Release()

	o := peel.NewOrchestrator(r, peel.WithOffscreenOutput(true))
	defer o.Dispose()

	s := scene.NewDepthPeelDemo(out.Seed, float32(out.Width)/float32(out.Height))
	r.SetClearColor(s.ClearColor())
	if err := o.Render(s, s.Camera(), cfg.Peel); err != nil {
		return errors.Wrap(err, "render")
	}
	img, err := r.ReadPixels(o.Output())
	if err != nil {
		return errors.Wrap(err, "read pixels")
	}
	frame := o.LastFrame()
	common.Logger().Info("frame rendered",
		"mode", frame.Mode.String(),
		"layers", frame.Layers,
		"drawCalls", r.Info().DrawCalls,
		"programs", r.ProgramCompiles(),
	)

	if out.EXR != "" {
		if err := exr.EncodeFile(out.EXR, img); err != nil {
			return errors.Wrapf(err, "write %s", out.EXR)
		}
		common.Logger().Info("wrote image", "path", out.EXR)
	}
	if out.PNG != "" {
		if err := writePNG(out.PNG, img); err != nil {
			return err
		}
		common.Logger().Info("wrote image", "path", out.PNG)
	}

	if opts.compare {
		want, err := reference.Render(s, s.Camera(),
			reference.WithSize(out.Width, out.Height),
			reference.WithClearColor(s.ClearColor()),
		)
		if err != nil {
			return errors.Wrap(err, "reference render")
		}
		maxDiff, differing := difference(img, want, 1e-3)
		common.Logger().Info("compared with sorted reference", "maxDiff", maxDiff, "pixelsOver1e-3", differing)
	}
	return nil
}

func writePNG(path string, img *exr.RGBAImage) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return errors.Wrapf(png.Encode(f, img), "encode %s", path)
}

// difference reports the largest channel difference between a and b and how many pixels
// differ by more than tol.
func difference(a, b *exr.RGBAImage, tol float64) (float64, int) {
	var maxDiff float64
	differing := 0
	for i := 0; i+4 <= len(a.Pix) && i+4 <= len(b.Pix); i += 4 {
		over := false
		for c := 0; c < 4; c++ {
			d := math.Abs(float64(a.Pix[i+c] - b.Pix[i+c]))
			maxDiff = max(maxDiff, d)
			over = over || d > tol
		}
		if over {
			differing++
		}
	}
	return maxDiff, differing
}
