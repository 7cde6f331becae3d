// Package config loads the guardvault runtime configuration from TOML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the whole runtime configuration. Command-line flags override
// file values.
type Config struct {
	Store    StoreConfig    `toml:"store"`
	Signals  SignalsConfig  `toml:"signals"`
	Log      LogConfig      `toml:"log"`
	Manifest ManifestConfig `toml:"manifest"`
}

// StoreConfig locates the SQLite journal.
type StoreConfig struct {
	Path string `toml:"path"`
}

// SignalsConfig configures the Redis signal publisher. An empty RedisAddr
// disables publishing.
type SignalsConfig struct {
	RedisAddr string `toml:"redis_addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	Namespace string `toml:"namespace"`
}

// Enabled reports whether signals should be published.
func (s SignalsConfig) Enabled() bool {
	return strings.TrimSpace(s.RedisAddr) != ""
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ManifestConfig locates the deployment manifest.
type ManifestConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store:    StoreConfig{Path: "guardvault.db"},
		Signals:  SignalsConfig{Namespace: "guardvault"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Manifest: ManifestConfig{Path: "deploy.cue"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// applyDefaults refills values a file explicitly blanked.
func applyDefaults(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = def.Store.Path
	}
	if strings.TrimSpace(cfg.Signals.Namespace) == "" {
		cfg.Signals.Namespace = def.Signals.Namespace
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Validate checks values that cannot be defaulted.
func Validate(cfg Config) error {
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	if cfg.Signals.DB < 0 {
		return fmt.Errorf("signals.db must not be negative")
	}
	if cfg.Signals.Enabled() && strings.ContainsAny(cfg.Signals.Namespace, " \t:") {
		return fmt.Errorf("signals.namespace %q must not contain spaces or ':'", cfg.Signals.Namespace)
	}
	return nil
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}

// NewLogger builds the logger described by l, writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
