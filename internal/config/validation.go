package config

import (
	"fmt"
	"strings"
)

// Validate validates the configuration with detailed error messages
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 1 and 65535, got: %d", c.Server.Port))
	}

	if c.Detection.FramesPerSecond < 1 || c.Detection.FramesPerSecond > 30 {
		errors = append(errors, fmt.Sprintf("detection.frames_per_second must be between 1 and 30, got: %d", c.Detection.FramesPerSecond))
	}

	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		errors = append(errors, fmt.Sprintf("detection.confidence_threshold must be between 0 and 1, got: %.2f", c.Detection.ConfidenceThreshold))
	}

	if c.Inference.ServiceURL == "" {
		errors = append(errors, "inference.service_url is required")
	}

	if c.Inference.WeightsDir == "" {
		errors = append(errors, "inference.weights_dir is required")
	}

	if c.Storage.StaticDir == "" {
		errors = append(errors, "storage.static_dir is required")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (must be: debug, info, warn, error, fatal)", c.Log.Level))
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format: %s (must be: text or json)", c.Log.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
