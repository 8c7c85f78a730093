package pipeline

import (
	"github.com/shiv122/brand-detector/internal/detector"
)

// Event is a progress update produced while a video is being processed.
// The concrete type carries the payload; every variant marshals with a
// "type" discriminator so consumers can dispatch without reflection.
type Event interface {
	EventType() string
}

// StatusEvent announces the start of a pipeline run.
type StatusEvent struct {
	Type                 string `json:"type"`
	Message              string `json:"message"`
	EstimatedTotalFrames int    `json:"estimated_total_frames"`
}

func (StatusEvent) EventType() string { return "status" }

// FrameEvent reports one sampled frame together with its detections.
// Timestamp is the frame's position in the source in seconds.
type FrameEvent struct {
	Type            string               `json:"type"`
	FrameNumber     int                  `json:"frame_number"`
	FrameURL        string               `json:"frame_url"`
	Detections      []detector.Detection `json:"detections"`
	TotalDetections int                  `json:"total_detections"`
	Timestamp       float64              `json:"timestamp"`
}

func (FrameEvent) EventType() string { return "frame" }

// CompleteEvent marks the end of the sampling pass. The re-encoded video
// is not necessarily ready yet; wait for VideoReadyEvent before fetching it.
type CompleteEvent struct {
	Type              string `json:"type"`
	Message           string `json:"message"`
	TotalFrames       int    `json:"total_frames"`
	ProcessedVideoURL string `json:"processed_video_url"`
}

func (CompleteEvent) EventType() string { return "complete" }

// VideoReadyEvent signals that the re-encoded video is on disk and fetchable.
type VideoReadyEvent struct {
	Type              string `json:"type"`
	Message           string `json:"message"`
	ProcessedVideoURL string `json:"processed_video_url"`
}

func (VideoReadyEvent) EventType() string { return "video_ready" }

func newStatusEvent(message string, estimated int) StatusEvent {
	return StatusEvent{Type: "status", Message: message, EstimatedTotalFrames: estimated}
}

func newFrameEvent(number int, url string, dets []detector.Detection, ts float64) FrameEvent {
	if dets == nil {
		dets = []detector.Detection{}
	}
	return FrameEvent{
		Type:            "frame",
		FrameNumber:     number,
		FrameURL:        url,
		Detections:      dets,
		TotalDetections: len(dets),
		Timestamp:       ts,
	}
}

func newCompleteEvent(totalFrames int, videoURL string) CompleteEvent {
	return CompleteEvent{
		Type:              "complete",
		Message:           "Video processing complete",
		TotalFrames:       totalFrames,
		ProcessedVideoURL: videoURL,
	}
}

func newVideoReadyEvent(videoURL string) VideoReadyEvent {
	return VideoReadyEvent{
		Type:              "video_ready",
		Message:           "Processed video is ready",
		ProcessedVideoURL: videoURL,
	}
}

// Emitter carries events from the single pipeline goroutine to one consumer.
// The producer closes the channel when the run ends, whatever the outcome.
type Emitter struct {
	ch chan Event
}

func NewEmitter(buffer int) *Emitter {
	return &Emitter{ch: make(chan Event, buffer)}
}

// Emit blocks until the consumer accepts the event.
func (e *Emitter) Emit(ev Event) {
	e.ch <- ev
}

// Events returns the receive side of the stream. It is closed by the producer.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

func (e *Emitter) Close() {
	close(e.ch)
}
