package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shiv122/brand-detector/internal/detector"
	"github.com/shiv122/brand-detector/internal/media"
	"github.com/shiv122/brand-detector/internal/metrics"
	"github.com/shiv122/brand-detector/internal/pipeline"
)

// handleRoot describes the service
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "brand-detector",
		"status":  "running",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

// handleHealth reports API health and inference service reachability
func (s *Server) handleHealth(c *gin.Context) {
	inference := "ok"
	if err := s.client.HealthCheck(c.Request.Context()); err != nil {
		inference = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"inference_service": inference,
		"model_loaded":      s.registry.Loaded(),
	})
}

// handleDevice reports the inference backend's compute device
func (s *Server) handleDevice(c *gin.Context) {
	info, err := s.client.DeviceInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": fmt.Sprintf("inference service unavailable: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleGetConfig returns the current runtime detection settings
func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings.Get())
}

type updateConfigRequest struct {
	FramesPerSecond     *int     `json:"frames_per_second"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
}

// handleUpdateConfig updates the runtime detection settings. Omitted
// fields keep their current value.
func (s *Server) handleUpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	current := s.settings.Get()
	fps := current.FramesPerSecond
	threshold := current.ConfidenceThreshold
	if req.FramesPerSecond != nil {
		fps = *req.FramesPerSecond
	}
	if req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}

	if err := s.settings.Update(fps, threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.settings.Get())
}

// handleListWeights lists the weight files known to the registry
func (s *Server) handleListWeights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"weights": s.registry.Available(),
		"current": s.registry.Current(),
		"loaded":  s.registry.Loaded(),
	})
}

type switchWeightRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleSwitchWeight activates a different weight file
func (s *Server) handleSwitchWeight(c *gin.Context) {
	var req switchWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'name' is required"})
		return
	}

	if err := s.registry.Switch(req.Name); err != nil {
		if errors.Is(err, detector.ErrWeightNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Switched to weight '%s'", req.Name),
		"current": s.registry.Current(),
	})
}

// handleDetectImages runs detection on one or more uploaded images.
// Each file gets its own result entry; a bad file never fails the batch.
func (s *Server) handleDetectImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	confidence := s.settings.Get().ConfidenceThreshold
	if v := c.PostForm("confidence_threshold"); v != "" {
		f, convErr := strconv.ParseFloat(v, 64)
		if convErr != nil || f < 0 || f > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confidence_threshold must be a number between 0.0 and 1.0"})
			return
		}
		confidence = f
	}

	model, err := s.registry.Active()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(files))
	for _, file := range files {
		results = append(results, s.detectImage(c, file, model, confidence))
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) detectImage(c *gin.Context, file *multipart.FileHeader, model *detector.Model, confidence float64) gin.H {
	name := filepath.Base(file.Filename)

	if !media.IsImageFile(file.Header.Get("Content-Type"), name) {
		metrics.ImagesProcessedTotal.WithLabelValues("rejected").Inc()
		return gin.H{"filename": name, "error": "Not an image file"}
	}

	data, err := readUpload(file)
	if err != nil {
		metrics.ImagesProcessedTotal.WithLabelValues("failed").Inc()
		return gin.H{"filename": name, "error": fmt.Sprintf("Failed to read file: %v", err)}
	}

	res, err := model.Detect(c.Request.Context(), data, confidence)
	if err != nil {
		s.logger.Error("Image detection failed", "filename", name, "error", err)
		metrics.ImagesProcessedTotal.WithLabelValues("failed").Inc()
		return gin.H{"filename": name, "error": fmt.Sprintf("Detection failed: %v", err)}
	}

	annotated := res.Annotated
	if len(annotated) == 0 {
		annotated, err = media.AnnotateJPEG(data, res.Detections)
		if err != nil {
			s.logger.Warn("Annotating image failed, returning original", "filename", name, "error", err)
			annotated = data
		}
	}

	metrics.ImagesProcessedTotal.WithLabelValues("success").Inc()
	metrics.DetectionsTotal.Add(float64(len(res.Detections)))

	dets := res.Detections
	if dets == nil {
		dets = []detector.Detection{}
	}
	return gin.H{
		"filename":          name,
		"detections":        dets,
		"total_detections":  len(dets),
		"inference_time_ms": res.InferenceTimeMs,
		"annotated_image":   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(annotated),
	}
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Removing upload failed", "path", path, "error", err)
	}
}

// handleDetectVideo accepts a video upload, runs the annotation pipeline
// and streams progress as server-sent events. Each event is one
// "data: <json>" line; the stream ends when the pipeline run does.
func (s *Server) handleDetectVideo(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file uploaded"})
		return
	}
	name := filepath.Base(file.Filename)
	if !media.IsVideoFile(file.Header.Get("Content-Type"), name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a video file"})
		return
	}

	model, err := s.registry.Active()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	uploadName := fmt.Sprintf("uploaded_%d_%s", time.Now().Unix(), name)
	uploadPath := filepath.Join(s.config.Storage.StaticDir, uploadName)
	if err := c.SaveUploadedFile(file, uploadPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save upload: %v", err)})
		return
	}

	snap := s.settings.Get()
	targetFPS := snap.FramesPerSecond
	confidence := snap.ConfidenceThreshold
	if v := c.PostForm("frames_per_second"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			s.removeUpload(uploadPath)
			c.JSON(http.StatusBadRequest, gin.H{"error": "frames_per_second must be an integer"})
			return
		}
		targetFPS = n
	}
	if v := c.PostForm("confidence_threshold"); v != "" {
		f, convErr := strconv.ParseFloat(v, 64)
		if convErr != nil {
			s.removeUpload(uploadPath)
			c.JSON(http.StatusBadRequest, gin.H{"error": "confidence_threshold must be a number"})
			return
		}
		confidence = f
	}

	job, err := s.pipeline.Start(c.Request.Context(), pipeline.Request{
		SourcePath: uploadPath,
		OutputName: fmt.Sprintf("processed_%d_%s", time.Now().Unix(), name),
		Detector:   model,
		TargetFPS:  targetFPS,
		Confidence: confidence,
	})
	if err != nil {
		s.removeUpload(uploadPath)
		if errors.Is(err, pipeline.ErrInvalidConfidence) || errors.Is(err, pipeline.ErrInvalidTargetFPS) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Cannot process video: %v", err)})
		return
	}

	s.streamEvents(c, job)
}

// streamEvents forwards pipeline events to the client as SSE. The
// channel is always drained so a disconnecting client never stalls the
// pipeline goroutine.
func (s *Server) streamEvents(c *gin.Context, job *pipeline.Job) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	clientGone := false
	for ev := range job.Events() {
		if clientGone {
			continue
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("Failed to marshal pipeline event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			s.logger.Debug("Event stream client disconnected", "job_id", job.ID)
			clientGone = true
			continue
		}
		c.Writer.Flush()
	}

	if err := job.Err(); err != nil {
		s.logger.Error("Video pipeline aborted", "job_id", job.ID, "error", err)
	}
}
