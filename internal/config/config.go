// Package config assembles runtime settings from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"location_viewer/core-go/internal/loader"
	"location_viewer/core-go/internal/render"
)

type Config struct {
	HTTPAddr     string        `yaml:"http_addr"`
	LogLevel     string        `yaml:"log_level"`
	Source       string        `yaml:"source"`
	DataDir      string        `yaml:"data_dir"`
	LoadTimeout  time.Duration `yaml:"load_timeout"`
	LoadMaxBytes int64         `yaml:"load_max_bytes"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	Map          MapConfig     `yaml:"map"`
}

type MapConfig struct {
	Zoom        int               `yaml:"zoom"`
	FitBounds   bool              `yaml:"fit_bounds"`
	TileURL     string            `yaml:"tile_url"`
	Attribution string            `yaml:"attribution"`
	MarkerStyle string            `yaml:"marker_style"`
	Icon        render.IconConfig `yaml:"icon"`
	Path        render.PathStyle  `yaml:"path"`
}

func Default() Config {
	return Config{
		HTTPAddr:     ":8080",
		LogLevel:     "info",
		Source:       loader.DefaultSource,
		DataDir:      "data",
		LoadMaxBytes: loader.DefaultMaxBytes,
		CORSOrigins:  []string{"*"},
		Map: MapConfig{
			Zoom:        render.DefaultZoom,
			TileURL:     render.DefaultTileURL,
			Attribution: render.DefaultAttribution,
			MarkerStyle: render.MarkerNumbered,
			Icon:        render.DefaultIcon(),
			Path:        render.DefaultPathStyle(),
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOCATIONS_SOURCE", &cfg.Source)
	str("DATA_DIR", &cfg.DataDir)
	str("MAP_TILE_URL", &cfg.Map.TileURL)
	str("MARKER_STYLE", &cfg.Map.MarkerStyle)

	var errs []error
	if v, ok := lookup("LOAD_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("LOAD_TIMEOUT: %w", err))
		}
		cfg.LoadTimeout = d
	}
	if v, ok := lookup("LOAD_MAX_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOAD_MAX_BYTES: %w", err))
		}
		cfg.LoadMaxBytes = n
	}
	if v, ok := lookup("MAP_ZOOM"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("MAP_ZOOM: %w", err))
		}
		cfg.Map.Zoom = n
	}
	if v, ok := lookup("MAP_FIT_BOUNDS"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("MAP_FIT_BOUNDS: %w", err))
		}
		cfg.Map.FitBounds = b
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		cfg.CORSOrigins = splitList(v)
	}
	return errors.Join(errs...)
}

// Validate checks that settings are present and sane.
func (c Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, "http_addr is required")
	}
	if strings.TrimSpace(c.Source) == "" {
		errs = append(errs, "source is required")
	}
	if c.LoadTimeout < 0 {
		errs = append(errs, "load_timeout must not be negative")
	}
	if c.LoadMaxBytes <= 0 {
		errs = append(errs, fmt.Sprintf("load_max_bytes must be positive, got %d", c.LoadMaxBytes))
	}
	// The renderer reads zoom 0 as unset.
	if c.Map.Zoom < 1 || c.Map.Zoom > 22 {
		errs = append(errs, fmt.Sprintf("map.zoom must be 1-22, got %d", c.Map.Zoom))
	}
	switch strings.ToLower(c.Map.MarkerStyle) {
	case "", render.MarkerNumbered, render.MarkerPin:
	default:
		errs = append(errs, fmt.Sprintf("map.marker_style must be %q or %q, got %q", render.MarkerNumbered, render.MarkerPin, c.Map.MarkerStyle))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c Config) LoaderOptions() loader.Options {
	return loader.Options{
		Source:   c.Source,
		Timeout:  c.LoadTimeout,
		MaxBytes: c.LoadMaxBytes,
	}
}

func (c Config) RenderOptions() render.Options {
	return render.Options{
		Zoom:        c.Map.Zoom,
		FitBounds:   c.Map.FitBounds,
		TileURL:     c.Map.TileURL,
		Attribution: c.Map.Attribution,
		MarkerStyle: c.Map.MarkerStyle,
		Icon:        c.Map.Icon,
		Path:        c.Map.Path,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
