package video

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
)

// FramePattern is the zero-padded scratch frame filename pattern
const FramePattern = "frame_%06d.jpg"

// EncodeVideo assembles the ordered JPEG frames in framesDir into a
// single H.264 MP4 at the given frame rate, with metadata placed for
// web streaming. A non-zero ffmpeg exit is a hard failure.
func (f *FFmpeg) EncodeVideo(ctx context.Context, framesDir string, fps float64, outputPath string) error {
	cmd := f.Command(ctx,
		"-y",
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", filepath.Join(framesDir, FramePattern),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w: %s", err, string(output))
	}

	f.logger.Info("Encoded video", "output", outputPath, "fps", fps)
	return nil
}
