package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiv122/brand-detector/internal/logger"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2, cfg.Detection.FramesPerSecond)
	assert.Equal(t, 0.5, cfg.Detection.ConfidenceThreshold)
	assert.Equal(t, "http://localhost:8080", cfg.Inference.ServiceURL)
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, "original.pt", cfg.Inference.DefaultWeight)
	assert.Equal(t, filepath.Join("./static", "frames"), cfg.Storage.FramesDir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 8100
detection:
  frames_per_second: 5
  confidence_threshold: 0.7
inference:
  service_url: http://inference:9090
  weights_dir: /data/weights
  default_weight: brands-v2.pt
storage:
  static_dir: /data/static
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Detection.FramesPerSecond)
	assert.Equal(t, 0.7, cfg.Detection.ConfidenceThreshold)
	assert.Equal(t, "http://inference:9090", cfg.Inference.ServiceURL)
	assert.Equal(t, "brands-v2.pt", cfg.Inference.DefaultWeight)
	assert.Equal(t, filepath.Join("/data/static", "frames"), cfg.Storage.FramesDir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ExplicitZeroThreshold(t *testing.T) {
	path := writeConfigFile(t, "detection:\n  confidence_threshold: 0.0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	// 0.0 is inside the valid range and must not be replaced by the default
	assert.Equal(t, 0.0, cfg.Detection.ConfidenceThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n")

	t.Setenv("BRAND_SERVER_PORT", "9100")
	t.Setenv("BRAND_INFERENCE_SERVICE_URL", "http://other:8081")
	t.Setenv("BRAND_DETECTION_CONFIDENCE_THRESHOLD", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "http://other:8081", cfg.Inference.ServiceURL)
	assert.Equal(t, 0.25, cfg.Detection.ConfidenceThreshold)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fps too high", func(c *Config) { c.Detection.FramesPerSecond = 31 }},
		{"fps too low", func(c *Config) { c.Detection.FramesPerSecond = -1 }},
		{"threshold above one", func(c *Config) { c.Detection.ConfidenceThreshold = 1.5 }},
		{"threshold below zero", func(c *Config) { c.Detection.ConfidenceThreshold = -0.1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"missing service url", func(c *Config) { c.Inference.ServiceURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.setDefaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSettings_UpdateAndGet(t *testing.T) {
	s := NewSettings(DetectionConfig{FramesPerSecond: 2, ConfidenceThreshold: 0.5}, logger.NewNopLogger())

	snap := s.Get()
	assert.Equal(t, 2, snap.FramesPerSecond)
	assert.Equal(t, 0.5, snap.ConfidenceThreshold)

	require.NoError(t, s.Update(10, 0.8))
	snap = s.Get()
	assert.Equal(t, 10, snap.FramesPerSecond)
	assert.Equal(t, 0.8, snap.ConfidenceThreshold)
}

func TestSettings_UpdateRejectsOutOfRange(t *testing.T) {
	s := NewSettings(DetectionConfig{FramesPerSecond: 2, ConfidenceThreshold: 0.5}, logger.NewNopLogger())

	assert.Error(t, s.Update(0, 0.5))
	assert.Error(t, s.Update(31, 0.5))
	assert.Error(t, s.Update(2, -0.01))
	assert.Error(t, s.Update(2, 1.01))

	// Rejected updates must not change the settings
	snap := s.Get()
	assert.Equal(t, 2, snap.FramesPerSecond)
	assert.Equal(t, 0.5, snap.ConfidenceThreshold)
}
