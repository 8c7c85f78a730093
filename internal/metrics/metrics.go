package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_detector_videos_processed_total",
		Help: "Total number of video pipeline runs, by outcome",
	}, []string{"status"})

	ImagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brand_detector_images_processed_total",
		Help: "Total number of image detections, by outcome",
	}, []string{"status"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brand_detector_frames_sampled_total",
		Help: "Total number of frames submitted for inference",
	})

	FramesInterpolatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brand_detector_frames_interpolated_total",
		Help: "Total number of frames annotated from a neighbor's detections",
	})

	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brand_detector_detections_total",
		Help: "Total number of detections returned by the inference service",
	})

	InferenceFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brand_detector_inference_failures_total",
		Help: "Total number of per-frame inference failures recovered with an empty detection set",
	})

	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brand_detector_pipeline_stage_duration_seconds",
		Help:    "Duration of video pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})
)
