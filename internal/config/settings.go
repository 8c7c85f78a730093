package config

import (
	"fmt"
	"sync"

	"github.com/shiv122/brand-detector/internal/logger"
)

// Settings holds the mutable runtime detection parameters. The startup
// values come from DetectionConfig; the config API can change them while
// the server runs. Reads and writes are mutex-guarded because requests
// from different connections share one Settings instance.
type Settings struct {
	logger *logger.Logger
	mu     sync.RWMutex

	framesPerSecond     int
	confidenceThreshold float64
}

// SettingsSnapshot is an immutable copy of the current runtime settings
type SettingsSnapshot struct {
	FramesPerSecond     int     `json:"frames_per_second"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// NewSettings creates runtime settings seeded from the loaded configuration
func NewSettings(cfg DetectionConfig, log *logger.Logger) *Settings {
	return &Settings{
		logger:              log,
		framesPerSecond:     cfg.FramesPerSecond,
		confidenceThreshold: cfg.ConfidenceThreshold,
	}
}

// Get returns a snapshot of the current settings
func (s *Settings) Get() SettingsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SettingsSnapshot{
		FramesPerSecond:     s.framesPerSecond,
		ConfidenceThreshold: s.confidenceThreshold,
	}
}

// Update validates and applies new runtime settings
func (s *Settings) Update(framesPerSecond int, confidenceThreshold float64) error {
	if framesPerSecond < 1 || framesPerSecond > 30 {
		return fmt.Errorf("frames_per_second must be between 1 and 30, got: %d", framesPerSecond)
	}
	if confidenceThreshold < 0 || confidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got: %.2f", confidenceThreshold)
	}

	s.mu.Lock()
	s.framesPerSecond = framesPerSecond
	s.confidenceThreshold = confidenceThreshold
	s.mu.Unlock()

	s.logger.Info("Runtime settings updated",
		"frames_per_second", framesPerSecond,
		"confidence_threshold", confidenceThreshold,
	)
	return nil
}
