package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type config struct {
	Backend string `toml:"backend"`
	Workers int    `toml:"workers"`

	Life      lifeConfig      `toml:"life"`
	Blur      blurConfig      `toml:"blur"`
	Color     colorConfig     `toml:"color"`
	Threshold thresholdConfig `toml:"threshold"`
	Output    outputConfig    `toml:"output"`
}

type lifeConfig struct {
	Width       int `toml:"width"`
	Height      int `toml:"height"`
	Generations int `toml:"generations"`
}

type blurConfig struct {
	Sigma float64 `toml:"sigma"`
}

type colorConfig struct {
	Preset string  `toml:"preset"`
	Amount float64 `toml:"amount"`
}

type thresholdConfig struct {
	Level float64 `toml:"level"`
}

type outputConfig struct {
	Quality int `toml:"quality"`
}

func defaultConfig() config {
	return config{
		Life:      lifeConfig{Width: 64, Height: 64, Generations: 16},
		Blur:      blurConfig{Sigma: 2},
		Color:     colorConfig{Preset: "sepia", Amount: 1},
		Threshold: thresholdConfig{Level: 0.5},
		Output:    outputConfig{Quality: 90},
	}
}

// readConfig decodes path over the defaults. Keys missing from the file keep
// their default value.
func readConfig(path string) (config, error) {
	conf := defaultConfig()
	md, err := toml.DecodeFile(filepath.Clean(path), &conf)
	if err != nil {
		return config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("read config %s: unknown keys %v", path, undecoded)
	}
	return conf, nil
}

func writeConfig(path string, conf *config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(conf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if path == "-" {
		_, err := os.Stdout.Write(buffer.Bytes())
		return err
	}
	return os.WriteFile(filepath.Clean(path), buffer.Bytes(), 0o644)
}

func (c *config) validate() error {
	switch {
	case c.Life.Width <= 0 || c.Life.Height <= 0:
		return fmt.Errorf("life: board size %dx%d must be positive", c.Life.Width, c.Life.Height)
	case c.Life.Generations < 0:
		return fmt.Errorf("life: generations %d must not be negative", c.Life.Generations)
	case c.Blur.Sigma < 0:
		return fmt.Errorf("blur: sigma %g must not be negative", c.Blur.Sigma)
	case c.Workers < 0:
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	return nil
}
