// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"specviz/pkg/bitint"
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectral analysis settings.
	Source    SourceConfig    `yaml:"source"`    // Audio source settings.
	Transport TransportConfig `yaml:"transport"` // Renderer transport settings.
	Recording RecordingConfig `yaml:"recording"` // Pass-through WAV recording settings.
}

// AnalysisConfig holds the spectral analysis and curve smoothing settings.
type AnalysisConfig struct {
	WindowSize   int     `yaml:"window_size"`   // FFT window length N (power of two).
	HopSize      int     `yaml:"hop_size"`      // Samples between analysis cycles.
	Bins         int     `yaml:"bins"`          // Number of display bins.
	Scale        string  `yaml:"scale"`         // Frequency mapping: "linear", "log" or "mel".
	WindowFunc   string  `yaml:"window_func"`   // Tapering window ("hann", "hamming", ...).
	Smoothing    float64 `yaml:"smoothing"`     // Temporal blend factor in (0, 1].
	FloorDB      float64 `yaml:"floor_db"`      // Magnitude floor in dBFS.
	CeilingDB    float64 `yaml:"ceiling_db"`    // Magnitude ceiling in dBFS.
	CurveDensity int     `yaml:"curve_density"` // Interpolated curve points per bin.
}

// SourceConfig holds audio acquisition settings shared by both source variants.
type SourceConfig struct {
	SampleRate    float64 `yaml:"sample_rate"`    // Pipeline sample rate in Hz.
	ChunkFrames   int     `yaml:"chunk_frames"`   // Frames per capture callback buffer.
	CaptureDevice string  `yaml:"capture_device"` // Substring match for the loopback device name ("" for default input).
	LowLatency    bool    `yaml:"low_latency"`    // Request low latency settings from the capture device.
}

// TransportConfig holds settings for publishing curves to external renderers.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve curves over a WebSocket endpoint.
	WebSocketAddr    string `yaml:"websocket_addr"`    // Listen address (e.g. ":8080").
}

// RecordingConfig holds settings for recording the mono analysis feed.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the analysis input to a WAV file.
	OutputFile string `yaml:"output_file"` // Destination path ("" for an auto-generated name).
	BitDepth   int    `yaml:"bit_depth"`   // Bit depth for recorded audio (16 or 24).
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Analysis: AnalysisConfig{
			WindowSize:   DefaultWindowSize,
			HopSize:      DefaultHopSize,
			Bins:         DefaultBins,
			Scale:        string(ScaleLog),
			WindowFunc:   "hann",
			Smoothing:    DefaultSmoothing,
			FloorDB:      DefaultFloorDB,
			CeilingDB:    DefaultCeilingDB,
			CurveDensity: DefaultCurveDensity,
		},
		Source: SourceConfig{
			SampleRate:  DefaultSampleRate,
			ChunkFrames: 512,
			LowLatency:  false,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
		},
		Recording: RecordingConfig{
			Enabled:  false,
			BitDepth: 16,
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path
// falls back to "config.yaml" if present, otherwise the built-in
// defaults are used. Environment overrides apply after the file, and
// the final configuration is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks all cross-field constraints the pipeline relies on.
func (c *Config) Validate() error {
	a := &c.Analysis
	if !bitint.IsPowerOfTwo(a.WindowSize) || a.WindowSize < MinWindowSize || a.WindowSize > MaxWindowSize {
		return fmt.Errorf("analysis.window_size must be a power of two in [%d, %d], got %d",
			MinWindowSize, MaxWindowSize, a.WindowSize)
	}
	if a.HopSize <= 0 || a.HopSize > a.WindowSize {
		return fmt.Errorf("analysis.hop_size must be in (0, window_size], got %d", a.HopSize)
	}
	if a.Bins < MinBins || a.Bins > MaxBins {
		return fmt.Errorf("analysis.bins must be in [%d, %d], got %d", MinBins, MaxBins, a.Bins)
	}
	switch FrequencyScale(a.Scale) {
	case ScaleLinear, ScaleLog, ScaleMel:
	default:
		return fmt.Errorf("analysis.scale must be linear, log or mel, got %q", a.Scale)
	}
	if a.Smoothing <= 0 || a.Smoothing > 1 {
		return fmt.Errorf("analysis.smoothing must be in (0, 1], got %g", a.Smoothing)
	}
	if a.FloorDB >= a.CeilingDB {
		return fmt.Errorf("analysis.floor_db (%g) must be below analysis.ceiling_db (%g)",
			a.FloorDB, a.CeilingDB)
	}
	if a.CurveDensity < 1 {
		return fmt.Errorf("analysis.curve_density must be at least 1, got %d", a.CurveDensity)
	}
	if c.Source.SampleRate < MinSampleRate || c.Source.SampleRate > MaxSampleRate {
		return fmt.Errorf("source.sample_rate must be in [%d, %d], got %g",
			MinSampleRate, MaxSampleRate, c.Source.SampleRate)
	}
	if c.Source.ChunkFrames <= 0 {
		return fmt.Errorf("source.chunk_frames must be positive, got %d", c.Source.ChunkFrames)
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddr == "" {
		return fmt.Errorf("transport.websocket_addr must be set when the websocket transport is enabled")
	}
	if c.Recording.Enabled && c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		return fmt.Errorf("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth)
	}
	return nil
}

// applyEnvOverrides applies SPECVIZ_* environment variables on top of
// the loaded configuration. Only settings that are useful to flip
// without editing the file are exposed this way.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECVIZ_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECVIZ_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECVIZ_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("SPECVIZ_BINS"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Analysis.Bins = iVal
		}
	}
}
