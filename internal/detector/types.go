package detector

// Detection represents one predicted object instance
type Detection struct {
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
	Confidence float64   `json:"confidence"`
	ClassID    int       `json:"class_id"`
	ClassName  string    `json:"class_name"`
}

// InferenceRequest is the request body sent to the inference service
type InferenceRequest struct {
	Image               string  `json:"image"` // Base64-encoded JPEG image
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	Model               string  `json:"model,omitempty"`
}

// InferenceResponse is the response body from the inference service
type InferenceResponse struct {
	Detections      []Detection `json:"detections"`
	AnnotatedImage  string      `json:"annotated_image,omitempty"` // Base64-encoded JPEG render
	InferenceTimeMs float64     `json:"inference_time_ms"`
}

// DeviceInfo describes the inference backend's compute device
type DeviceInfo struct {
	Device      string `json:"device"`
	DeviceName  string `json:"device_name"`
	MemoryTotal int64  `json:"memory_total,omitempty"`
}

// Result is a parsed inference result: the detections plus the decoded
// annotated render, if the service produced one.
type Result struct {
	Detections      []Detection
	Annotated       []byte // JPEG, nil if the service did not render
	InferenceTimeMs float64
}
