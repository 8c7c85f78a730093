package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// FrameReader iterates the frames of a video source in order. Frames
// are decoded by an ffmpeg subprocess into a concatenated MJPEG stream
// and split on JPEG markers, so the whole source is read exactly once
// per reader.
type FrameReader struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	scanner *mjpegScanner
	stderr  bytes.Buffer
	frames  int
}

// OpenFrameReader starts an ffmpeg decode of the source
func (f *FFmpeg) OpenFrameReader(ctx context.Context, path string) (*FrameReader, error) {
	cmd := f.Command(ctx,
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)

	r := &FrameReader{cmd: cmd}
	cmd.Stderr = &r.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	r.stdout = stdout
	r.scanner = newMJPEGScanner(stdout)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrSourceUnreadable, err)
	}

	return r, nil
}

// Next returns the next frame as a JPEG buffer, or io.EOF after the
// last frame. A decode failure before the first frame reports the
// source as unreadable.
func (r *FrameReader) Next() ([]byte, error) {
	frame, err := r.scanner.next()
	if err == io.EOF {
		if r.frames == 0 {
			return nil, fmt.Errorf("%w: %s", ErrSourceUnreadable, r.stderrLine())
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d: %w", r.frames, err)
	}

	r.frames++
	return frame, nil
}

// Close releases the decode subprocess
func (r *FrameReader) Close() error {
	r.stdout.Close()
	// The process may already have exited; the wait error only matters
	// if no frames were produced, which Next reports.
	_ = r.cmd.Wait()
	return nil
}

func (r *FrameReader) stderrLine() string {
	s := bytes.TrimSpace(r.stderr.Bytes())
	if len(s) == 0 {
		return "no frames decoded"
	}
	if i := bytes.IndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	return string(s)
}

// JPEG stream markers
const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8 // start of image
	markerEOI    = 0xD9 // end of image
)

// mjpegScanner splits a concatenated MJPEG byte stream into individual
// JPEG images. ffmpeg's MJPEG output is baseline JPEG, where 0xFF bytes
// inside entropy-coded data are always stuffed or restart markers, so
// the end-of-image marker is unambiguous.
type mjpegScanner struct {
	br *bufio.Reader
}

func newMJPEGScanner(r io.Reader) *mjpegScanner {
	return &mjpegScanner{br: bufio.NewReaderSize(r, 256*1024)}
}

// next returns the next complete JPEG image, or io.EOF when the stream
// is exhausted between images.
func (s *mjpegScanner) next() ([]byte, error) {
	var buf bytes.Buffer

	// Seek the start-of-image marker
	for {
		b, err := s.br.ReadByte()
		if err != nil {
			return nil, io.EOF
		}
		if b != markerPrefix {
			continue
		}
		nb, err := s.br.ReadByte()
		if err != nil {
			return nil, io.EOF
		}
		if nb == markerSOI {
			buf.WriteByte(markerPrefix)
			buf.WriteByte(markerSOI)
			break
		}
		if nb == markerPrefix {
			// Could still be the prefix of a marker
			_ = s.br.UnreadByte()
		}
	}

	// Copy until the end-of-image marker
	for {
		b, err := s.br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated JPEG frame: %w", err)
		}
		buf.WriteByte(b)
		if b != markerPrefix {
			continue
		}
		nb, err := s.br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated JPEG frame: %w", err)
		}
		if nb == markerEOI {
			buf.WriteByte(nb)
			return buf.Bytes(), nil
		}
		if nb == markerPrefix {
			// Could still be the prefix of the end marker
			_ = s.br.UnreadByte()
			continue
		}
		buf.WriteByte(nb)
	}
}
