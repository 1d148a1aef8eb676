package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultScenario      = "text"
	defaultMaxLines      = 100
	defaultTickInterval  = 10 * time.Millisecond
	defaultFrameRate     = 60
	defaultMovementSpeed = 200.0
	defaultRotationSpeed = 90.0
	defaultSceneWidth    = 300.0
	defaultSceneHeight   = 300.0
	defaultLogLevel      = "info"
	defaultLogMaxFiles   = 20

	maxFrameRate = 240
)

// DirName is the per-user and per-project settings directory.
const DirName = ".sandbox"

// Config stores runtime settings loaded from TOML files.
type Config struct {
	Scenario      string
	MaxLines      int
	TickInterval  time.Duration
	FrameRate     int
	MovementSpeed float64
	RotationSpeed float64
	SceneWidth    float64
	SceneHeight   float64
	LogLevel      string
	LogMaxFiles   int
	OTELEndpoint  string

	// Sources lists the files that contributed, in overlay order.
	Sources []string
}

type fileConfig struct {
	Scenario      *string     `toml:"scenario"`
	MaxLines      *int        `toml:"max_lines"`
	TickInterval  *string     `toml:"tick_interval"`
	FrameRate     *int        `toml:"frame_rate"`
	MovementSpeed *float64    `toml:"movement_speed"`
	RotationSpeed *float64    `toml:"rotation_speed"`
	SceneWidth    *float64    `toml:"scene_width"`
	SceneHeight   *float64    `toml:"scene_height"`
	LogLevel      *string     `toml:"log_level"`
	LogMaxFiles   *int        `toml:"log_max_files"`
	OTEL          *otelConfig `toml:"otel"`
}

type otelConfig struct {
	Endpoint *string `toml:"endpoint"`
}

// Load reads config from ~/.sandbox/config.toml and overlays a project-local
// .sandbox/config.toml.
func Load(ctx context.Context) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	return LoadFiles(ctx,
		filepath.Join(homeDir, DirName, "config.toml"),
		filepath.Join(workingDir, DirName, "config.toml"),
	)
}

// LoadFiles overlays each existing file in order onto the defaults. Missing
// files are skipped.
func LoadFiles(ctx context.Context, paths ...string) (*Config, error) {
	cfg := Defaults()
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := overlayFromFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Scenario:      defaultScenario,
		MaxLines:      defaultMaxLines,
		TickInterval:  defaultTickInterval,
		FrameRate:     defaultFrameRate,
		MovementSpeed: defaultMovementSpeed,
		RotationSpeed: defaultRotationSpeed,
		SceneWidth:    defaultSceneWidth,
		SceneHeight:   defaultSceneHeight,
		LogLevel:      defaultLogLevel,
		LogMaxFiles:   defaultLogMaxFiles,
	}
}

// FrameInterval is the period between scene refreshes.
func (c *Config) FrameInterval() time.Duration {
	if c == nil || c.FrameRate <= 0 {
		return time.Second / defaultFrameRate
	}
	return time.Second / time.Duration(c.FrameRate)
}

func overlayFromFile(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	meta, err := toml.DecodeFile(path, &decoded)
	if err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("parse %s in %q: unsupported key", strings.Join(keys, ", "), path)
	}

	if err := applyScenarioOverrides(cfg, decoded, path); err != nil {
		return err
	}
	if err := applyTimingOverrides(cfg, decoded, path); err != nil {
		return err
	}
	if err := applySceneOverrides(cfg, decoded, path); err != nil {
		return err
	}
	if err := applyLogOverrides(cfg, decoded, path); err != nil {
		return err
	}
	if decoded.OTEL != nil && decoded.OTEL.Endpoint != nil {
		cfg.OTELEndpoint = strings.TrimSpace(*decoded.OTEL.Endpoint)
	}

	cfg.Sources = append(cfg.Sources, path)
	return nil
}

func applyScenarioOverrides(cfg *Config, decoded fileConfig, path string) error {
	if decoded.Scenario != nil {
		scenario := normalizeKey(*decoded.Scenario)
		switch scenario {
		case "text", "turtle":
			cfg.Scenario = scenario
		default:
			return fmt.Errorf("parse scenario in %q: must be text or turtle, got %q", path, *decoded.Scenario)
		}
	}
	if decoded.MaxLines != nil {
		if *decoded.MaxLines <= 0 {
			return fmt.Errorf("parse max_lines in %q: must be > 0", path)
		}
		cfg.MaxLines = *decoded.MaxLines
	}
	return nil
}

func applyTimingOverrides(cfg *Config, decoded fileConfig, path string) error {
	if decoded.TickInterval != nil {
		value, err := parseDuration(*decoded.TickInterval, "tick_interval", path)
		if err != nil {
			return err
		}
		if value <= 0 {
			return fmt.Errorf("parse tick_interval in %q: must be > 0", path)
		}
		cfg.TickInterval = value
	}
	if decoded.FrameRate != nil {
		if *decoded.FrameRate <= 0 || *decoded.FrameRate > maxFrameRate {
			return fmt.Errorf("parse frame_rate in %q: must be between 1 and %d", path, maxFrameRate)
		}
		cfg.FrameRate = *decoded.FrameRate
	}
	if decoded.MovementSpeed != nil {
		if *decoded.MovementSpeed <= 0 {
			return fmt.Errorf("parse movement_speed in %q: must be > 0", path)
		}
		cfg.MovementSpeed = *decoded.MovementSpeed
	}
	if decoded.RotationSpeed != nil {
		if *decoded.RotationSpeed <= 0 {
			return fmt.Errorf("parse rotation_speed in %q: must be > 0", path)
		}
		cfg.RotationSpeed = *decoded.RotationSpeed
	}
	return nil
}

func applySceneOverrides(cfg *Config, decoded fileConfig, path string) error {
	if decoded.SceneWidth != nil {
		if *decoded.SceneWidth <= 0 {
			return fmt.Errorf("parse scene_width in %q: must be > 0", path)
		}
		cfg.SceneWidth = *decoded.SceneWidth
	}
	if decoded.SceneHeight != nil {
		if *decoded.SceneHeight <= 0 {
			return fmt.Errorf("parse scene_height in %q: must be > 0", path)
		}
		cfg.SceneHeight = *decoded.SceneHeight
	}
	return nil
}

func applyLogOverrides(cfg *Config, decoded fileConfig, path string) error {
	if decoded.LogLevel != nil {
		level := normalizeKey(*decoded.LogLevel)
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			return fmt.Errorf("parse log_level in %q: must be debug, info, warn or error", path)
		}
	}
	if decoded.LogMaxFiles != nil {
		if *decoded.LogMaxFiles <= 0 {
			return fmt.Errorf("parse log_max_files in %q: must be > 0", path)
		}
		cfg.LogMaxFiles = *decoded.LogMaxFiles
	}
	return nil
}

func parseDuration(value, key, path string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s in %q: %w", key, path, err)
	}
	return parsed, nil
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
