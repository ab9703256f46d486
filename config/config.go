package config

import (
	"os"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MaxLayerCount caps the number of peel passes per frame.
const MaxLayerCount = 16

// Peel holds the per-frame depth peeling parameters. The orchestrator reads them once at the
// start of every frame.
type Peel struct {
	// UseDepthPeeling selects depth peeling; false draws transparent objects sorted and blended.
	UseDepthPeeling bool `yaml:"useDepthPeeling"`
	// LayerCount is the number of transparent layers peeled per frame.
	LayerCount int `yaml:"layers"`
	// DoubleSided peels back faces of transparent objects too.
	DoubleSided bool `yaml:"doubleSided"`
	// Opacity scales the opacity of every transparent material.
	Opacity float32 `yaml:"opacity"`
}

// Output holds the settings of a headless render.
type Output struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Seed    int64  `yaml:"seed"`
	Workers int    `yaml:"workers"`
	EXR     string `yaml:"exr"`
	PNG     string `yaml:"png"`
}

// Config is the root of a peel configuration file.
type Config struct {
	Peel   Peel   `yaml:"peel"`
	Output Output `yaml:"output"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: three double-sided layers at full opacity, 800x600 output
func Default() Config {
	return Config{
		Peel: Peel{
			UseDepthPeeling: true,
			LayerCount:      3,
			DoubleSided:     true,
			Opacity:         1,
		},
		Output: Output{
			Width:  800,
			Height: 600,
			Seed:   1,
			EXR:    "peel.exr",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep their default
// value. The result is normalized.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read or parsed
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "Failed to read config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "Failed to parse config %q", path)
	}
	return cfg.Normalize(), nil
}

// Marshal encodes the configuration as YAML.
//
// Returns:
//   - []byte: the document
//   - error: an error if encoding fails
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "Failed to encode config")
}

// Normalize clamps every field into its valid range.
//
// Returns:
//   - Config: the normalized copy
func (c Config) Normalize() Config {
	c.Peel = c.Peel.Normalize()
	d := Default().Output
	c.Output.Width = common.Coalesce(max(c.Output.Width, 0), d.Width)
	c.Output.Height = common.Coalesce(max(c.Output.Height, 0), d.Height)
	c.Output.Workers = max(c.Output.Workers, 0)
	return c
}

// Normalize clamps the layer count to [0, MaxLayerCount] and the opacity to [0, 1]. A
// non-finite opacity becomes 1.
//
// Returns:
//   - Peel: the normalized copy
func (p Peel) Normalize() Peel {
	p.LayerCount = common.Clamp(p.LayerCount, 0, MaxLayerCount)
	if !common.IsFinite(float64(p.Opacity)) {
		p.Opacity = 1
	}
	p.Opacity = common.Clamp(p.Opacity, 0, 1)
	return p
}
