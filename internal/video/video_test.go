package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiv122/brand-detector/internal/logger"
)

func setupTestFFmpeg(t *testing.T) *FFmpeg {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skipf("ffmpeg not available, skipping test: %v", err)
	}
	f, err := NewFFmpeg(logger.NewNopLogger())
	require.NoError(t, err)
	return f
}

func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

func TestMJPEGScanner_SplitsConcatenatedFrames(t *testing.T) {
	frame := encodeTestJPEG(t)

	var stream bytes.Buffer
	for i := 0; i < 3; i++ {
		stream.Write(frame)
	}

	scanner := newMJPEGScanner(&stream)
	for i := 0; i < 3; i++ {
		got, err := scanner.next()
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, frame, got, "frame %d", i)

		// Every split frame must decode cleanly
		_, err = jpeg.Decode(bytes.NewReader(got))
		assert.NoError(t, err, "frame %d", i)
	}

	_, err := scanner.next()
	assert.Equal(t, io.EOF, err)
}

func TestMJPEGScanner_EmptyStream(t *testing.T) {
	scanner := newMJPEGScanner(bytes.NewReader(nil))
	_, err := scanner.next()
	assert.Equal(t, io.EOF, err)
}

func TestMJPEGScanner_TruncatedFrame(t *testing.T) {
	frame := encodeTestJPEG(t)
	scanner := newMJPEGScanner(bytes.NewReader(frame[:len(frame)/2]))

	_, err := scanner.next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestMJPEGScanner_StuffedPrefixBytes(t *testing.T) {
	// A run of 0xFF fill bytes before the end marker must not hide it
	frame := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xFF, 0xFF, 0xD9}
	scanner := newMJPEGScanner(bytes.NewReader(frame))

	got, err := scanner.next()
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"30/1", 30, true},
		{"30000/1001", 29.97002997002997, true},
		{"25", 25, true},
		{"0/0", 0, false},
		{"garbage", 0, false},
	}

	for _, tt := range tests {
		got, err := parseFrameRate(tt.input)
		if tt.ok {
			require.NoError(t, err, tt.input)
			assert.InDelta(t, tt.want, got, 1e-9, tt.input)
		} else {
			assert.Error(t, err, tt.input)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	meta, err := parseProbeOutput("width=1280\nheight=720\nr_frame_rate=30/1\nnb_frames=90\nduration=3.000000\n")
	require.NoError(t, err)
	assert.Equal(t, 1280, meta.Width)
	assert.Equal(t, 720, meta.Height)
	assert.Equal(t, 30.0, meta.FPS)
	assert.Equal(t, 90, meta.FrameCount)
	assert.Equal(t, 3.0, meta.Duration)
}

func TestParseProbeOutput_EstimatesFrameCount(t *testing.T) {
	meta, err := parseProbeOutput("width=640\nheight=480\nr_frame_rate=25/1\nnb_frames=N/A\nduration=4.2\n")
	require.NoError(t, err)
	assert.Equal(t, 105, meta.FrameCount)
}

func TestParseProbeOutput_RejectsMissingStream(t *testing.T) {
	_, err := parseProbeOutput("duration=4.2\n")
	assert.Error(t, err)

	_, err = parseProbeOutput("width=640\nheight=480\n")
	assert.Error(t, err)
}

func TestNewFFmpeg_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := NewFFmpeg(logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrEncoderNotFound)
}

// writeTestVideo generates a short solid-color test video with ffmpeg
func writeTestVideo(t *testing.T, f *FFmpeg, dir string, frames int, fps float64) string {
	t.Helper()
	path := filepath.Join(dir, "source.mp4")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := f.Command(ctx,
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=gray:s=64x48:r=%g:d=%g", fps, float64(frames)/fps),
		"-pix_fmt", "yuv420p",
		path,
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	return path
}

func TestFrameReader_ReadsAllFrames(t *testing.T) {
	f := setupTestFFmpeg(t)
	src := writeTestVideo(t, f, t.TempDir(), 10, 10)

	ctx := context.Background()
	reader, err := f.OpenFrameReader(ctx, src)
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		_, err = jpeg.Decode(bytes.NewReader(frame))
		require.NoError(t, err)
		count++
	}

	assert.Equal(t, 10, count)
}

func TestFrameReader_UnreadableSource(t *testing.T) {
	f := setupTestFFmpeg(t)
	ctx := context.Background()

	reader, err := f.OpenFrameReader(ctx, filepath.Join(t.TempDir(), "missing.mp4"))
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.Next()
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestProbe(t *testing.T) {
	f := setupTestFFmpeg(t)
	if f.probePath == "" {
		t.Skip("ffprobe not available")
	}
	src := writeTestVideo(t, f, t.TempDir(), 20, 10)

	meta, err := f.Probe(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 64, meta.Width)
	assert.Equal(t, 48, meta.Height)
	assert.InDelta(t, 10.0, meta.FPS, 0.01)
	assert.InDelta(t, 20, meta.FrameCount, 1)
}

func TestEncodeVideo_RoundTrip(t *testing.T) {
	f := setupTestFFmpeg(t)
	if f.probePath == "" {
		t.Skip("ffprobe not available")
	}

	dir := t.TempDir()
	framesDir := filepath.Join(dir, "frames")
	require.NoError(t, writeFrames(t, framesDir, 12))

	output := filepath.Join(dir, "out.mp4")
	require.NoError(t, f.EncodeVideo(context.Background(), framesDir, 6, output))

	meta, err := f.Probe(context.Background(), output)
	require.NoError(t, err)
	assert.InDelta(t, 12, meta.FrameCount, 1)
	assert.InDelta(t, 2.0, meta.Duration, 0.2) // 12 frames at 6 fps
}

// writeFrames writes n JPEG frames to dir following FramePattern
func writeFrames(t *testing.T, dir string, n int) error {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	frame := encodeTestJPEG(t)
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, fmt.Sprintf(FramePattern, i))
		if err := os.WriteFile(name, frame, 0644); err != nil {
			return err
		}
	}
	return nil
}

func TestEncodeVideo_FailsOnEmptyDir(t *testing.T) {
	f := setupTestFFmpeg(t)
	dir := t.TempDir()

	err := f.EncodeVideo(context.Background(), dir, 10, filepath.Join(dir, "out.mp4"))
	assert.Error(t, err)
}
