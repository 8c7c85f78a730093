package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Detection DetectionConfig `yaml:"detection" envPrefix:"DETECTION_"`
	Inference InferenceConfig `yaml:"inference" envPrefix:"INFERENCE_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Log       LogConfig       `yaml:"log,omitempty" envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// DetectionConfig contains the default detection parameters. These are
// the startup values; they can be changed at runtime via the config API.
type DetectionConfig struct {
	FramesPerSecond     int     `yaml:"frames_per_second" env:"FPS"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
}

// InferenceConfig contains configuration for the model inference service
type InferenceConfig struct {
	ServiceURL    string        `yaml:"service_url" env:"SERVICE_URL"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	WeightsDir    string        `yaml:"weights_dir" env:"WEIGHTS_DIR"`
	DefaultWeight string        `yaml:"default_weight" env:"DEFAULT_WEIGHT"`
}

// StorageConfig contains local file storage configuration
type StorageConfig struct {
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`
	FramesDir string `yaml:"frames_dir" env:"FRAMES_DIR"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// Load reads the configuration file, applies environment variable
// overrides (BRAND_ prefix) and defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	var cfg Config
	// NaN marks the threshold as unset so an explicit 0.0, a valid
	// value, is distinguishable from an omitted field.
	cfg.Detection.ConfidenceThreshold = math.NaN()

	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BRAND_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// getDefaultConfigPath returns the first existing default config location,
// or empty if none exists (defaults-only startup).
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.yaml",
		"../config/config.yaml",
		"/etc/brand-detector/config.yaml",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}

	if c.Detection.FramesPerSecond == 0 {
		c.Detection.FramesPerSecond = 2
	}
	if math.IsNaN(c.Detection.ConfidenceThreshold) {
		c.Detection.ConfidenceThreshold = 0.5
	}

	if c.Inference.ServiceURL == "" {
		c.Inference.ServiceURL = "http://localhost:8080"
	}
	if c.Inference.Timeout == 0 {
		c.Inference.Timeout = 30 * time.Second
	}
	if c.Inference.WeightsDir == "" {
		c.Inference.WeightsDir = "./weights"
	}
	if c.Inference.DefaultWeight == "" {
		c.Inference.DefaultWeight = "original.pt"
	}

	if c.Storage.StaticDir == "" {
		c.Storage.StaticDir = "./static"
	}
	if c.Storage.FramesDir == "" {
		c.Storage.FramesDir = filepath.Join(c.Storage.StaticDir, "frames")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}
