package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrjoshuak/go-openexr/exr"
)

func TestParseFlagsOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peel.yaml")
	yaml := "peel:\n  layers: 7\n  opacity: 0.5\noutput:\n  width: 64\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := parseFlags([]string{"-config", path, "-layers", "2", "-height", "48"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Peel.LayerCount != 2 {
		t.Errorf("layers = %d, want the flag value 2", cfg.Peel.LayerCount)
	}
	if cfg.Peel.Opacity != 0.5 || cfg.Output.Width != 64 {
		t.Errorf("config file values lost: %+v", cfg)
	}
	if cfg.Output.Height != 48 {
		t.Errorf("height = %d, want 48", cfg.Output.Height)
	}
}

func TestParseFlagsNormalizes(t *testing.T) {
	cfg, _, err := parseFlags([]string{"-layers", "99", "-opacity", "3"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Peel.LayerCount != 16 || cfg.Peel.Opacity != 1 {
		t.Errorf("peel = %+v, want 16 layers and opacity 1", cfg.Peel)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	if _, _, err := parseFlags([]string{"-layers", "many"}, &bytes.Buffer{}); err == nil {
		t.Error("bad flag value accepted")
	}
	if _, _, err := parseFlags([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, &bytes.Buffer{}); err == nil {
		t.Error("missing config file accepted")
	}
}

func TestRunWritesImages(t *testing.T) {
	dir := t.TempDir()
	exrPath := filepath.Join(dir, "out.exr")
	pngPath := filepath.Join(dir, "out.png")
	var logs bytes.Buffer

	err := run([]string{
		"-width", "48", "-height", "32", "-layers", "4", "-workers", "2",
		"-exr", exrPath, "-png", pngPath, "-compare",
	}, &logs)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, logs.String())
	}

	img, err := exr.DecodeFile(exrPath)
	if err != nil {
		t.Fatalf("decode EXR: %v", err)
	}
	if img.Rect.Dx() != 48 || img.Rect.Dy() != 32 {
		t.Errorf("EXR is %v, want 48x32", img.Rect)
	}

	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("decode PNG: %v", err)
	}

	for _, want := range []string{"frame rendered", "mode=peeled", "compared with sorted reference"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log is missing %q:\n%s", want, logs.String())
		}
	}
}

func TestDifference(t *testing.T) {
	a := &exr.RGBAImage{Pix: []float32{0, 0, 0, 1, 0.5, 0.5, 0.5, 1}}
	b := &exr.RGBAImage{Pix: []float32{0, 0, 0, 1, 0.5, 0.25, 0.5, 1}}
	maxDiff, n := difference(a, b, 1e-3)
	if maxDiff != 0.25 || n != 1 {
		t.Errorf("difference = (%v, %d), want (0.25, 1)", maxDiff, n)
	}
}
