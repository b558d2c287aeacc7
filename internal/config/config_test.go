// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoad_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
analysis:
  window_size: 4096
  bins: 64
  scale: mel
source:
  sample_rate: 48000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, expected debug", cfg.LogLevel)
	}
	if cfg.Analysis.WindowSize != 4096 {
		t.Errorf("window_size = %d, expected 4096", cfg.Analysis.WindowSize)
	}
	if cfg.Analysis.Bins != 64 {
		t.Errorf("bins = %d, expected 64", cfg.Analysis.Bins)
	}
	if cfg.Analysis.Scale != "mel" {
		t.Errorf("scale = %q, expected mel", cfg.Analysis.Scale)
	}
	if cfg.Source.SampleRate != 48000 {
		t.Errorf("sample_rate = %g, expected 48000", cfg.Source.SampleRate)
	}
	// Untouched fields keep their defaults.
	if cfg.Analysis.HopSize != DefaultHopSize {
		t.Errorf("hop_size = %d, expected default %d", cfg.Analysis.HopSize, DefaultHopSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPECVIZ_LOG_LEVEL", "error")
	t.Setenv("SPECVIZ_BINS", "32")
	t.Setenv("SPECVIZ_WS_ENABLED", "true")
	t.Setenv("SPECVIZ_WS_ADDR", ":9999")

	path := writeTempConfig(t, "log_level: debug\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("log_level = %q, expected env override error", cfg.LogLevel)
	}
	if cfg.Analysis.Bins != 32 {
		t.Errorf("bins = %d, expected env override 32", cfg.Analysis.Bins)
	}
	if !cfg.Transport.WebSocketEnabled || cfg.Transport.WebSocketAddr != ":9999" {
		t.Errorf("transport = %+v, expected websocket enabled on :9999", cfg.Transport)
	}
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"window not power of two", func(c *Config) { c.Analysis.WindowSize = 1000 }, "window_size"},
		{"window too small", func(c *Config) { c.Analysis.WindowSize = 1 }, "window_size"},
		{"hop zero", func(c *Config) { c.Analysis.HopSize = 0 }, "hop_size"},
		{"hop beyond window", func(c *Config) { c.Analysis.HopSize = c.Analysis.WindowSize + 1 }, "hop_size"},
		{"bins too few", func(c *Config) { c.Analysis.Bins = 1 }, "bins"},
		{"unknown scale", func(c *Config) { c.Analysis.Scale = "bark" }, "scale"},
		{"smoothing zero", func(c *Config) { c.Analysis.Smoothing = 0 }, "smoothing"},
		{"smoothing above one", func(c *Config) { c.Analysis.Smoothing = 1.5 }, "smoothing"},
		{"floor above ceiling", func(c *Config) { c.Analysis.FloorDB = 10 }, "floor_db"},
		{"curve density zero", func(c *Config) { c.Analysis.CurveDensity = 0 }, "curve_density"},
		{"sample rate zero", func(c *Config) { c.Source.SampleRate = 0 }, "sample_rate"},
		{"chunk frames zero", func(c *Config) { c.Source.ChunkFrames = 0 }, "chunk_frames"},
		{"ws enabled without addr", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketAddr = ""
		}, "websocket_addr"},
		{"bad bit depth", func(c *Config) {
			c.Recording.Enabled = true
			c.Recording.BitDepth = 12
		}, "bit_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
