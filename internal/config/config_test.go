package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFull(t *testing.T) {
	cfg, err := Load("testdata/full.toml")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/guardvault/journal.db", cfg.Store.Path)
	assert.Equal(t, "127.0.0.1:6379", cfg.Signals.RedisAddr)
	assert.Equal(t, 2, cfg.Signals.DB)
	assert.Equal(t, "gv-prod", cfg.Signals.Namespace)
	assert.True(t, cfg.Signals.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "deploy/mainnet.cue", cfg.Manifest.Path)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, err := Load("testdata/partial.toml")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, def.Log.Format, cfg.Log.Format)
	assert.Equal(t, def.Store.Path, cfg.Store.Path)
	assert.Equal(t, def.Signals.Namespace, cfg.Signals.Namespace)
	assert.False(t, cfg.Signals.Enabled())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load("testdata/unknown.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config parse failed")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config load failed")
}

func TestLoadBlankValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\npath = \"\"\n[log]\nformat = \"\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "guardvault.db", cfg.Store.Path)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative db", func(c *Config) { c.Signals.DB = -1 }, "signals.db"},
		{"namespace with colon", func(c *Config) {
			c.Signals.RedisAddr = "localhost:6379"
			c.Signals.Namespace = "a:b"
		}, "signals.namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.NoError(t, Validate(Default()))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "action", "Protector.mint")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"action":"Protector.mint"`)

	buf.Reset()
	l, err = LogConfig{Level: "debug", Format: "text"}.NewLogger(&buf)
	require.NoError(t, err)
	l.Debug("step", "seq", 3)
	assert.Contains(t, buf.String(), "seq=3")
}
