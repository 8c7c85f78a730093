package media

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiv122/brand-detector/internal/detector"
)

func testFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	data, err := EncodeJPEG(img)
	require.NoError(t, err)
	return data
}

func TestDrawDetections_PaintsBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 200))

	out := DrawDetections(src, []detector.Detection{
		{BBox: []float64{50, 60, 150, 160}, Confidence: 0.88, ClassName: "acme"},
	})

	// Box edges are painted green
	assert.Equal(t, boxColor, out.RGBAAt(50, 100))  // left edge
	assert.Equal(t, boxColor, out.RGBAAt(149, 100)) // right edge
	assert.Equal(t, boxColor, out.RGBAAt(100, 60))  // top edge
	assert.Equal(t, boxColor, out.RGBAAt(100, 159)) // bottom edge

	// Interior is untouched
	assert.Equal(t, color.RGBA{}, out.RGBAAt(100, 100))

	// Source image is not modified
	assert.Equal(t, color.RGBA{}, src.RGBAAt(50, 100))
}

func TestDrawDetections_ClampsOutOfBoundsBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))

	// Must not panic even with a box extending past the frame
	out := DrawDetections(src, []detector.Detection{
		{BBox: []float64{-20, -20, 150, 150}, Confidence: 0.5, ClassName: "wide"},
	})
	assert.NotNil(t, out)
}

func TestDrawDetections_IgnoresMalformedBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	out := DrawDetections(src, []detector.Detection{
		{BBox: []float64{10, 10}, Confidence: 0.5, ClassName: "broken"},
	})
	assert.Equal(t, src.Pix, out.Pix)
}

func TestAnnotateJPEG_Deterministic(t *testing.T) {
	frame := testFrame(t, 120, 90)
	dets := []detector.Detection{
		{BBox: []float64{10, 20, 60, 70}, Confidence: 0.75, ClassName: "acme"},
	}

	first, err := AnnotateJPEG(frame, dets)
	require.NoError(t, err)
	second, err := AnnotateJPEG(frame, dets)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnnotateJPEG_EmptyDetectionsPassThrough(t *testing.T) {
	frame := testFrame(t, 120, 90)

	annotated, err := AnnotateJPEG(frame, nil)
	require.NoError(t, err)

	// Same decode/encode cycle as a plain re-encode
	img, err := DecodeJPEG(frame)
	require.NoError(t, err)
	plain, err := EncodeJPEG(img)
	require.NoError(t, err)

	assert.Equal(t, plain, annotated)
}

func TestAnnotateJPEG_RejectsGarbage(t *testing.T) {
	_, err := AnnotateJPEG([]byte("not a jpeg"), nil)
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("image/jpeg", "photo.jpg"))
	assert.True(t, IsImageFile("application/octet-stream", "photo.PNG"))
	assert.True(t, IsImageFile("", "scan.webp"))
	assert.False(t, IsImageFile("video/mp4", "clip.mp4"))
	assert.False(t, IsImageFile("application/octet-stream", "notes.txt"))
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("video/mp4", "clip.mp4"))
	assert.True(t, IsVideoFile("application/octet-stream", "clip.MOV"))
	assert.True(t, IsVideoFile("", "clip.webm"))
	assert.False(t, IsVideoFile("image/png", "photo.png"))
	assert.False(t, IsVideoFile("application/octet-stream", "archive.zip"))
}
