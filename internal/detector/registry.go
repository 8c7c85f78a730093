package detector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shiv122/brand-detector/internal/logger"
)

// ErrWeightNotFound is returned when a requested weight file does not exist
var ErrWeightNotFound = errors.New("weight not found")

// ErrNoActiveWeight is returned when detection is requested before any
// weight has been loaded
var ErrNoActiveWeight = errors.New("no active weight loaded")

// WeightInfo describes one weight file in the weights directory
type WeightInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Description string `json:"description,omitempty"`
}

// Model is a handle to one loaded weight. In-flight requests hold the
// handle they started with, so switching the active weight never affects
// a running detection pass.
type Model struct {
	Name   string
	Path   string
	client *Client
}

// Detect runs inference against this model's weight
func (m *Model) Detect(ctx context.Context, image []byte, confidence float64) (*Result, error) {
	return m.client.Detect(ctx, image, confidence, m.Name)
}

// Registry catalogs on-disk weight files and manages the process-wide
// model cache. Models are registered lazily on first switch and kept
// warm until process shutdown; switching the active weight is a
// reference swap under the mutex.
type Registry struct {
	weightsDir string
	client     *Client
	logger     *logger.Logger

	mu        sync.RWMutex
	active    *Model
	loaded    map[string]*Model
	available []WeightInfo
}

// NewRegistry scans the weights directory and activates the default
// weight. A missing default weight is not fatal: the registry starts
// with no active model and detection endpoints report the model as not
// loaded until a successful switch.
func NewRegistry(weightsDir, defaultWeight string, client *Client, log *logger.Logger) *Registry {
	r := &Registry{
		weightsDir: weightsDir,
		client:     client,
		logger:     log,
		loaded:     make(map[string]*Model),
	}

	r.scanWeights()

	if err := r.Switch(defaultWeight); err != nil {
		log.Warn("Default weight not available", "weight", defaultWeight, "error", err)
	}

	return r
}

// scanWeights catalogs the *.pt files in the weights directory
func (r *Registry) scanWeights() {
	entries, err := filepath.Glob(filepath.Join(r.weightsDir, "*.pt"))
	if err != nil {
		r.logger.Warn("Failed to scan weights directory", "dir", r.weightsDir, "error", err)
		return
	}

	available := make([]WeightInfo, 0, len(entries))
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Warn("Failed to stat weight file", "path", path, "error", err)
			continue
		}
		available = append(available, WeightInfo{
			Name:        filepath.Base(path),
			Path:        path,
			Size:        info.Size(),
			Description: fmt.Sprintf("Detection model (%s)", formatSize(info.Size())),
		})
		r.logger.Info("Found weight", "name", filepath.Base(path), "size", formatSize(info.Size()))
	}

	r.mu.Lock()
	r.available = available
	r.mu.Unlock()
}

// Available returns the cataloged weight files
func (r *Registry) Available() []WeightInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]WeightInfo, len(r.available))
	copy(out, r.available)
	return out
}

// Current returns the name of the active weight, or empty if none
func (r *Registry) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return ""
	}
	return r.active.Name
}

// Loaded reports whether any weight is active
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active != nil
}

// Active returns the active model handle
func (r *Registry) Active() (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil, ErrNoActiveWeight
	}
	return r.active, nil
}

// Switch activates a weight by name. The weight file must exist on
// disk; an unknown name leaves the active weight unchanged. Already
// registered weights are reused from the cache.
func (r *Registry) Switch(name string) error {
	path := filepath.Join(r.weightsDir, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrWeightNotFound, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	model, ok := r.loaded[name]
	if !ok {
		model = &Model{Name: name, Path: path, client: r.client}
		r.loaded[name] = model
		r.logger.Info("Weight registered", "name", name)
	}

	r.active = model
	r.logger.Info("Switched active weight", "name", name)
	return nil
}

// formatSize formats a byte count in human readable form
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(size)/float64(div), "KMG"[exp])
}
