package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		name   string
		in     Peel
		layers int
		alpha  float32
	}{
		{"in range", Peel{LayerCount: 4, Opacity: 0.5}, 4, 0.5},
		{"negative layers", Peel{LayerCount: -2, Opacity: 1}, 0, 1},
		{"capped layers", Peel{LayerCount: 40, Opacity: 1}, MaxLayerCount, 1},
		{"nan opacity", Peel{LayerCount: 1, Opacity: nan}, 1, 1},
		{"inf opacity", Peel{LayerCount: 1, Opacity: inf}, 1, 1},
		{"opacity above one", Peel{Opacity: 3}, 0, 1},
		{"opacity below zero", Peel{Opacity: -0.5}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.LayerCount != tt.layers || got.Opacity != tt.alpha {
				t.Errorf("Normalize() = {layers %d, opacity %v}, want {%d, %v}", got.LayerCount, got.Opacity, tt.layers, tt.alpha)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if !d.Peel.UseDepthPeeling || d.Peel.LayerCount != 3 || !d.Peel.DoubleSided || d.Peel.Opacity != 1 {
		t.Errorf("Default().Peel = %+v", d.Peel)
	}
	if d != d.Normalize() {
		t.Error("Default() is not normalized")
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peel.yaml")
	doc := "peel:\n  layers: 40\n  doubleSided: false\noutput:\n  width: 64\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Peel.LayerCount != MaxLayerCount {
		t.Errorf("layers = %d, want %d", cfg.Peel.LayerCount, MaxLayerCount)
	}
	if cfg.Peel.DoubleSided {
		t.Error("doubleSided = true, want false from file")
	}
	if !cfg.Peel.UseDepthPeeling || cfg.Peel.Opacity != 1 {
		t.Errorf("defaults lost: %+v", cfg.Peel)
	}
	if cfg.Output.Width != 64 || cfg.Output.Height != 600 {
		t.Errorf("output size = %dx%d, want 64x600", cfg.Output.Width, cfg.Output.Height)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("peel: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed YAML succeeded")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Peel.LayerCount = 7
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}
