package video

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Metadata describes a video source, derived once via ffprobe
type Metadata struct {
	FPS        float64
	FrameCount int
	Width      int
	Height     int
	Duration   float64 // seconds
}

// Probe reads stream metadata from a video file
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Metadata, error) {
	if f.probePath == "" {
		return nil, fmt.Errorf("%w: ffprobe unavailable", ErrSourceUnreadable)
	}

	cmd := exec.CommandContext(ctx, f.probePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed for %s: %v", ErrSourceUnreadable, path, err)
	}

	meta, err := parseProbeOutput(string(output))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	return meta, nil
}

// parseProbeOutput parses ffprobe key=value lines into Metadata
func parseProbeOutput(output string) (*Metadata, error) {
	meta := &Metadata{}

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || value == "N/A" {
			continue
		}
		switch key {
		case "width":
			meta.Width, _ = strconv.Atoi(value)
		case "height":
			meta.Height, _ = strconv.Atoi(value)
		case "r_frame_rate":
			fps, err := parseFrameRate(value)
			if err == nil {
				meta.FPS = fps
			}
		case "nb_frames":
			meta.FrameCount, _ = strconv.Atoi(value)
		case "duration":
			meta.Duration, _ = strconv.ParseFloat(value, 64)
		}
	}

	if meta.FPS <= 0 || math.IsInf(meta.FPS, 0) || math.IsNaN(meta.FPS) {
		return nil, fmt.Errorf("no valid frame rate in probe output")
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("no valid dimensions in probe output")
	}

	// Some containers omit nb_frames; estimate from duration
	if meta.FrameCount == 0 && meta.Duration > 0 {
		meta.FrameCount = int(math.Round(meta.Duration * meta.FPS))
	}

	return meta, nil
}

// parseFrameRate parses an ffprobe rational frame rate like "30000/1001"
func parseFrameRate(value string) (float64, error) {
	num, den, ok := strings.Cut(value, "/")
	if !ok {
		return strconv.ParseFloat(value, 64)
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in frame rate %q", value)
	}
	return n / d, nil
}
