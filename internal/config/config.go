package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultInfo is the text of the information panel
const DefaultInfo = `This GUI is developed by SINA SARFARAZI
Department of Science and Technology, University of Naples “Parthenope”, ITALY
Email: sina.srfz@gmail.com`

// Config holds the application configuration
type Config struct {
	Port      int             `yaml:"port"`
	ModelsDir string          `yaml:"models_dir"`
	LogLevel  string          `yaml:"log_level"`
	Dev       bool            `yaml:"dev"`
	Window    WindowConfig    `yaml:"window"`
	Plot      PlotConfig      `yaml:"plot"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Info      string          `yaml:"info"`
	Version   string          `yaml:"-"`
}

// WindowConfig controls the native window
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// PlotConfig is the pixel size of exported figures
type PlotConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// RateLimitConfig bounds how fast the page may fire actions
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Port:      8080,
		ModelsDir: "saved_models",
		LogLevel:  "info",
		Window: WindowConfig{
			Title:  "Stainless-steel Flush End-plate Beam-to-column Connections Response",
			Width:  1280,
			Height: 800,
		},
		Plot: PlotConfig{
			Width:  600,
			Height: 400,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 10,
			Burst:     20,
		},
		Info:    DefaultInfo,
		Version: "dev",
	}
}

// searchPaths are tried in order when no config path is given
var searchPaths = []string{"configs/moment-rotation.yaml", "moment-rotation.yaml"}

// Load layers a YAML file over the defaults. With an empty path the search
// paths are tried and a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		for _, p := range searchPaths {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", p, err)
			}
			return cfg, cfg.validate()
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ModelsDir == "" {
		return fmt.Errorf("models_dir must not be empty")
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("invalid plot size %dx%d", c.Plot.Width, c.Plot.Height)
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}
