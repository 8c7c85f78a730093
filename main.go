package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shiv122/brand-detector/internal/config"
	"github.com/shiv122/brand-detector/internal/detector"
	"github.com/shiv122/brand-detector/internal/logger"
	"github.com/shiv122/brand-detector/internal/pipeline"
	"github.com/shiv122/brand-detector/internal/video"
	"github.com/shiv122/brand-detector/internal/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (short)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Brand Detector",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	if err := ensureDirs(cfg); err != nil {
		log.Error("Failed to prepare storage directories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ffmpeg, err := video.NewFFmpeg(log)
	if err != nil {
		log.Error("FFmpeg is required for video processing", "error", err)
		os.Exit(1)
	}

	client := detector.NewClient(detector.ClientConfig{
		ServiceURL: cfg.Inference.ServiceURL,
		Timeout:    cfg.Inference.Timeout,
	}, log)
	registry := detector.NewRegistry(cfg.Inference.WeightsDir, cfg.Inference.DefaultWeight, client, log)
	settings := config.NewSettings(cfg.Detection, log)

	pipe := pipeline.New(pipeline.NewFFmpegBackend(ffmpeg), pipeline.Config{
		StaticDir: cfg.Storage.StaticDir,
		FramesDir: cfg.Storage.FramesDir,
	}, log)

	server := web.NewServer(cfg, web.Dependencies{
		Settings: settings,
		Registry: registry,
		Client:   client,
		Pipeline: pipe,
	}, log)
	server.SetVersion(version)

	if err := server.Start(ctx); err != nil {
		log.Error("Failed to start web server", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Shutdown complete")
}

// ensureDirs creates the directories uploads, frame previews and
// processed videos are written to.
func ensureDirs(cfg *config.Config) error {
	dirs := []string{
		cfg.Storage.StaticDir,
		cfg.Storage.FramesDir,
		cfg.Inference.WeightsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
