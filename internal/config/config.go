// Package config reads the optional media.yaml next to the host
// application. Everything has a sensible default; the file only exists to
// override them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/media/pkg/engine"
	"github.com/go-drift/media/pkg/gpu"
)

// Config represents the optional media.yaml configuration.
type Config struct {
	Renderer RendererConfig `yaml:"renderer"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

// RendererConfig contains GPU renderer settings.
type RendererConfig struct {
	Width        int32  `yaml:"width,omitempty"`
	Height       int32  `yaml:"height,omitempty"`
	FlushTimeout string `yaml:"flush_timeout,omitempty"`
	GPUPriority  *int   `yaml:"gpu_priority,omitempty"`
}

// EngineConfig contains playback engine settings.
type EngineConfig struct {
	Library    string `yaml:"library,omitempty"`
	MinVersion string `yaml:"min_version,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Verbose bool `yaml:"verbose,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Width            int32
	Height           int32
	FlushTimeout     time.Duration
	GPUPriority      int
	EngineLibrary    string
	EngineMinVersion string
	Verbose          bool
}

// Default initial surface size before the first layout arrives.
const (
	defaultWidth  = 640
	defaultHeight = 480
)

// LoadOptional reads media.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "media.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read media.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse media.yaml: %w", err)
	}

	return &cfg, nil
}

// Resolve loads media.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	width, height := cfg.Renderer.Width, cfg.Renderer.Height
	if width == 0 && height == 0 {
		width, height = defaultWidth, defaultHeight
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("renderer size must be positive (got %dx%d)", width, height)
	}

	var flushTimeout time.Duration
	if s := strings.TrimSpace(cfg.Renderer.FlushTimeout); s != "" {
		flushTimeout, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid renderer.flush_timeout %q: %w", s, err)
		}
		if flushTimeout < 0 {
			return nil, fmt.Errorf("renderer.flush_timeout cannot be negative (got %s)", flushTimeout)
		}
	}

	priority := gpu.MaxThreadPriority - 2
	if cfg.Renderer.GPUPriority != nil {
		priority = *cfg.Renderer.GPUPriority
		if priority < gpu.MinThreadPriority || priority > gpu.MaxThreadPriority {
			return nil, fmt.Errorf("renderer.gpu_priority must be in [%d, %d] (got %d)",
				gpu.MinThreadPriority, gpu.MaxThreadPriority, priority)
		}
	}

	minVersion := strings.TrimSpace(cfg.Engine.MinVersion)
	if minVersion == "" {
		minVersion = engine.DefaultMinVersion
	} else if err := engine.CheckVersion(minVersion, minVersion); err != nil {
		return nil, fmt.Errorf("invalid engine.min_version %q", cfg.Engine.MinVersion)
	}

	return &Resolved{
		Width:            width,
		Height:           height,
		FlushTimeout:     flushTimeout,
		GPUPriority:      priority,
		EngineLibrary:    strings.TrimSpace(cfg.Engine.Library),
		EngineMinVersion: minVersion,
		Verbose:          cfg.Log.Verbose,
	}, nil
}
