package video

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shiv122/brand-detector/internal/logger"
)

// ErrEncoderNotFound is returned when the ffmpeg binary cannot be located
var ErrEncoderNotFound = errors.New("ffmpeg not found")

// ErrSourceUnreadable is returned when a video source cannot be opened
// or decoded
var ErrSourceUnreadable = errors.New("video source unreadable")

// FFmpeg wraps the external ffmpeg/ffprobe binaries
type FFmpeg struct {
	logger     *logger.Logger
	ffmpegPath string
	probePath  string
}

// NewFFmpeg locates the ffmpeg and ffprobe binaries. A missing ffmpeg
// is fatal; a missing ffprobe only disables metadata probing.
func NewFFmpeg(log *logger.Logger) (*FFmpeg, error) {
	ffmpegPath, err := detectBinary("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderNotFound, err)
	}

	probePath, err := detectBinary("ffprobe")
	if err != nil {
		log.Warn("ffprobe not found, metadata probing unavailable", "error", err)
	}

	f := &FFmpeg{
		logger:     log,
		ffmpegPath: ffmpegPath,
		probePath:  probePath,
	}

	log.Info("FFmpeg initialized", "ffmpeg", ffmpegPath, "ffprobe", probePath)
	return f, nil
}

// detectBinary finds an executable in PATH or common locations
func detectBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	for _, path := range []string{"/usr/bin/" + name, "/usr/local/bin/" + name} {
		if err := exec.Command(path, "-version").Run(); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found in PATH or common locations", name)
}

// Command builds an ffmpeg command
func (f *FFmpeg) Command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, f.ffmpegPath, args...)
}

// Version returns the ffmpeg version line
func (f *FFmpeg) Version() (string, error) {
	output, err := exec.Command(f.ffmpegPath, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}
