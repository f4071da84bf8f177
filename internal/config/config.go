// Package config loads stockroom settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// STOCKROOM_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stockroom/internal/imagecodec"
	"github.com/roach88/stockroom/internal/legacy"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "STOCKROOM"

// DefaultDBPath is the database file used when none is configured.
const DefaultDBPath = "stockroom.db"

// Config holds runtime settings.
type Config struct {
	DBPath        string  `yaml:"db_path" envconfig:"DB_PATH"`
	LegacyPath    string  `yaml:"legacy_path" envconfig:"LEGACY_PATH"`
	ImageQuality  float64 `yaml:"image_quality" envconfig:"IMAGE_QUALITY"`
	ImageMaxWidth int     `yaml:"image_max_width" envconfig:"IMAGE_MAX_WIDTH"`
	LogLevel      string  `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat     string  `yaml:"log_format" envconfig:"LOG_FORMAT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:        DefaultDBPath,
		LegacyPath:    legacy.DefaultPath,
		ImageQuality:  imagecodec.DefaultQuality,
		ImageMaxWidth: imagecodec.DefaultMaxWidth,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. Relative paths inside the file are
// resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		fileCfg := cfg
		if err := decodeYAML(data, &fileCfg); err != nil {
			return Config{}, err
		}
		base := filepath.Dir(path)
		if fileCfg.DBPath != cfg.DBPath {
			fileCfg.DBPath = resolve(base, fileCfg.DBPath)
		}
		if fileCfg.LegacyPath != cfg.LegacyPath {
			fileCfg.LegacyPath = resolve(base, fileCfg.LegacyPath)
		}
		cfg = fileCfg
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string
	if c.DBPath == "" {
		problems = append(problems, "db_path is empty")
	}
	if c.ImageQuality <= 0 || c.ImageQuality > 1 {
		problems = append(problems, fmt.Sprintf("image_quality %v not in (0,1]", c.ImageQuality))
	}
	if c.ImageMaxWidth <= 0 {
		problems = append(problems, fmt.Sprintf("image_max_width %d must be positive", c.ImageMaxWidth))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log_format %q must be text or json", c.LogFormat))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Logger builds the process logger writing to w. verbose forces debug
// level.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", s, err)
	}
	return level, nil
}
