package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiv122/brand-detector/internal/detector"
	"github.com/shiv122/brand-detector/internal/logger"
	"github.com/shiv122/brand-detector/internal/media"
	"github.com/shiv122/brand-detector/internal/metrics"
	"github.com/shiv122/brand-detector/internal/video"
)

var (
	ErrInvalidConfidence = errors.New("confidence threshold must be between 0.0 and 1.0")
	ErrInvalidTargetFPS  = errors.New("target fps must be between 1 and 30")
)

// State tracks where a job is in its lifecycle. A job moves through
// sampling, interpolating and encoding in order; any fatal error sends
// it to aborted instead.
type State string

const (
	StateSampling      State = "sampling"
	StateInterpolating State = "interpolating"
	StateEncoding      State = "encoding"
	StateDone          State = "done"
	StateAborted       State = "aborted"
)

// FrameIterator yields decoded JPEG frames in source order and reports
// io.EOF when the stream ends.
type FrameIterator interface {
	Next() ([]byte, error)
	Close() error
}

// Backend provides the media operations a pipeline run needs: probing
// the source, reading its frames, and encoding the annotated frames
// back into a video.
type Backend interface {
	Probe(ctx context.Context, path string) (*video.Metadata, error)
	OpenFrames(ctx context.Context, path string) (FrameIterator, error)
	Encode(ctx context.Context, framesDir string, fps float64, outputPath string) error
}

// Detector runs inference on a single JPEG frame.
type Detector interface {
	Detect(ctx context.Context, image []byte, confidence float64) (*detector.Result, error)
}

type ffmpegBackend struct {
	f *video.FFmpeg
}

// NewFFmpegBackend adapts an FFmpeg handle to the Backend interface.
func NewFFmpegBackend(f *video.FFmpeg) Backend {
	return ffmpegBackend{f: f}
}

func (b ffmpegBackend) Probe(ctx context.Context, path string) (*video.Metadata, error) {
	return b.f.Probe(ctx, path)
}

func (b ffmpegBackend) OpenFrames(ctx context.Context, path string) (FrameIterator, error) {
	return b.f.OpenFrameReader(ctx, path)
}

func (b ffmpegBackend) Encode(ctx context.Context, framesDir string, fps float64, outputPath string) error {
	return b.f.EncodeVideo(ctx, framesDir, fps, outputPath)
}

// Config holds the directories a pipeline writes into. StaticDir is the
// root of publicly served files; FramesDir receives the sampled frame
// JPEGs referenced by frame events.
type Config struct {
	StaticDir string
	FramesDir string
}

// Pipeline runs the two-pass video annotation flow: sample frames for
// inference, interpolate detections onto every frame, re-encode.
type Pipeline struct {
	backend Backend
	cfg     Config
	logger  *logger.Logger
}

func New(backend Backend, cfg Config, log *logger.Logger) *Pipeline {
	return &Pipeline{backend: backend, cfg: cfg, logger: log}
}

// Request describes one video to process. SourcePath is deleted when
// the run ends, whatever the outcome.
type Request struct {
	SourcePath string
	OutputName string
	Detector   Detector
	TargetFPS  int
	Confidence float64
}

// Job is a single in-flight pipeline run. Events are delivered on the
// channel returned by Events; the channel closes when the run ends.
type Job struct {
	ID string

	emitter    *Emitter
	scratchDir string

	mu    sync.Mutex
	state State
	err   error
}

func (j *Job) Events() <-chan Event {
	return j.emitter.Events()
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the failure cause when the job aborted, nil otherwise.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) abort(err error) {
	j.mu.Lock()
	j.state = StateAborted
	j.err = err
	j.mu.Unlock()
}

// Start validates the request, probes the source, and launches the run
// in a background goroutine. Validation and probe failures are returned
// synchronously before any frame is read; after Start returns, progress
// is reported only through the job's event channel. The run is detached
// from the caller's context so a disconnecting consumer does not abort
// the encode.
func (p *Pipeline) Start(ctx context.Context, req Request) (*Job, error) {
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidConfidence, req.Confidence)
	}
	if req.TargetFPS < 1 || req.TargetFPS > 30 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTargetFPS, req.TargetFPS)
	}

	meta, err := p.backend.Probe(ctx, req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("probing source video: %w", err)
	}

	job := &Job{
		ID:      uuid.NewString(),
		emitter: NewEmitter(16),
		state:   StateSampling,
	}
	job.scratchDir = filepath.Join(p.cfg.StaticDir, "frames_"+job.ID)

	go p.run(context.WithoutCancel(ctx), job, req, meta)
	return job, nil
}

func (p *Pipeline) run(ctx context.Context, job *Job, req Request, meta *video.Metadata) {
	defer job.emitter.Close()
	defer p.cleanup(job, req.SourcePath)

	skip := SkipInterval(meta.FPS, req.TargetFPS)
	estimated := int(math.Ceil(float64(meta.FrameCount) / float64(skip)))
	videoURL := "/static/" + req.OutputName

	p.logger.Info("starting video pipeline",
		"job_id", job.ID,
		"source", req.SourcePath,
		"fps", meta.FPS,
		"frames", meta.FrameCount,
		"skip", skip)

	job.setState(StateSampling)
	job.emitter.Emit(newStatusEvent("Starting video processing...", estimated))

	stageStart := time.Now()
	index, published, err := p.sample(ctx, job, req, meta, skip)
	if err != nil {
		p.logger.Error("sampling pass failed", "job_id", job.ID, "error", err)
		metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
		job.abort(err)
		return
	}
	metrics.PipelineStageDuration.WithLabelValues("sampling").Observe(time.Since(stageStart).Seconds())

	job.emitter.Emit(newCompleteEvent(published, videoURL))

	job.setState(StateInterpolating)
	stageStart = time.Now()
	if err := p.interpolate(ctx, job, req, index); err != nil {
		p.logger.Error("interpolation pass failed", "job_id", job.ID, "error", err)
		metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
		job.abort(err)
		return
	}
	metrics.PipelineStageDuration.WithLabelValues("interpolating").Observe(time.Since(stageStart).Seconds())

	job.setState(StateEncoding)
	stageStart = time.Now()
	outputPath := filepath.Join(p.cfg.StaticDir, req.OutputName)
	if err := p.backend.Encode(ctx, job.scratchDir, meta.FPS, outputPath); err != nil {
		p.logger.Error("video encoding failed", "job_id", job.ID, "error", err)
		metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
		job.abort(fmt.Errorf("encoding video: %w", err))
		return
	}
	metrics.PipelineStageDuration.WithLabelValues("encoding").Observe(time.Since(stageStart).Seconds())

	job.emitter.Emit(newVideoReadyEvent(videoURL))
	job.setState(StateDone)
	metrics.VideosProcessedTotal.WithLabelValues("success").Inc()
	p.logger.Info("video pipeline finished", "job_id", job.ID, "output", outputPath)
}

// sample reads the source once, runs inference on every skip-th frame,
// writes the annotated frame for live preview and emits a frame event.
// A frame whose inference call fails still records an empty detection
// set in the index, but publishes no preview and no event; only read
// errors are fatal. Returns the index and the published frame count.
func (p *Pipeline) sample(ctx context.Context, job *Job, req Request, meta *video.Metadata, skip int) (*detectionIndex, int, error) {
	reader, err := p.backend.OpenFrames(ctx, req.SourcePath)
	if err != nil {
		return nil, 0, fmt.Errorf("opening source for sampling: %w", err)
	}
	defer reader.Close()

	index := newDetectionIndex()
	published := 0
	sourceIndex := 0
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading frame %d: %w", sourceIndex, err)
		}

		if sourceIndex%skip == 0 {
			metrics.FramesSampledTotal.Inc()

			res, err := req.Detector.Detect(ctx, frame, req.Confidence)
			if err != nil {
				p.logger.Warn("frame inference failed, recording empty detections", "frame", sourceIndex, "error", err)
				metrics.InferenceFailuresTotal.Inc()
				index.add(&sampledFrame{sourceIndex: sourceIndex, processedIndex: -1})
				sourceIndex++
				continue
			}

			name := fmt.Sprintf(video.FramePattern, published)
			if err := os.WriteFile(filepath.Join(p.cfg.FramesDir, name), p.renderFrame(frame, res), 0o644); err != nil {
				return nil, 0, fmt.Errorf("writing sampled frame: %w", err)
			}

			sf := &sampledFrame{
				sourceIndex:    sourceIndex,
				processedIndex: published,
				detections:     res.Detections,
			}
			index.add(sf)
			metrics.DetectionsTotal.Add(float64(len(res.Detections)))

			job.emitter.Emit(newFrameEvent(published, "/static/frames/"+name, res.Detections, float64(sourceIndex)/meta.FPS))
			published++
			runtime.Gosched()
		}
		sourceIndex++
	}
	return index, published, nil
}

// renderFrame returns the annotated JPEG to publish for a sampled
// frame: the service's own render when present, a local redraw
// otherwise, the original pixels as a last resort.
func (p *Pipeline) renderFrame(frame []byte, res *detector.Result) []byte {
	if len(res.Annotated) > 0 {
		return res.Annotated
	}
	annotated, err := media.AnnotateJPEG(frame, res.Detections)
	if err != nil {
		p.logger.Warn("annotating frame failed, publishing original", "error", err)
		return frame
	}
	return annotated
}

// interpolate re-reads the source and writes every frame to the scratch
// directory, redrawing each frame with the detections of its nearest
// sampled neighbor. Frames with no applicable detections pass through
// unmodified.
func (p *Pipeline) interpolate(ctx context.Context, job *Job, req Request, index *detectionIndex) error {
	if err := os.MkdirAll(job.scratchDir, 0o755); err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}

	reader, err := p.backend.OpenFrames(ctx, req.SourcePath)
	if err != nil {
		return fmt.Errorf("opening source for interpolation: %w", err)
	}
	defer reader.Close()

	sourceIndex := 0
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading frame %d: %w", sourceIndex, err)
		}

		out := frame
		if sf := index.nearest(sourceIndex); sf != nil && len(sf.detections) > 0 {
			annotated, err := media.AnnotateJPEG(frame, sf.detections)
			if err != nil {
				p.logger.Warn("interpolating frame failed, keeping original", "frame", sourceIndex, "error", err)
			} else {
				out = annotated
				metrics.FramesInterpolatedTotal.Inc()
			}
		}

		name := fmt.Sprintf(video.FramePattern, sourceIndex)
		if err := os.WriteFile(filepath.Join(job.scratchDir, name), out, 0o644); err != nil {
			return fmt.Errorf("writing interpolated frame: %w", err)
		}
		runtime.Gosched()
		sourceIndex++
	}
	return nil
}

// cleanup removes the scratch directory and the uploaded source file.
// Failures are logged and never escalate past this point.
func (p *Pipeline) cleanup(job *Job, sourcePath string) {
	if err := os.RemoveAll(job.scratchDir); err != nil {
		p.logger.Warn("removing scratch directory failed", "dir", job.scratchDir, "error", err)
	}
	if err := os.Remove(sourcePath); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("removing uploaded video failed", "path", sourcePath, "error", err)
	}
}
