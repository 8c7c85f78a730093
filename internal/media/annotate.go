package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/shiv122/brand-detector/internal/detector"
)

// Fixed visual style for rendered detections: green box, 2px line,
// filled label background with black text.
var (
	boxColor   = color.RGBA{G: 255, A: 255}
	labelColor = color.RGBA{A: 255}
)

const (
	lineWidth    = 2
	labelPadding = 4
	jpegQuality  = 85
)

// DrawDetections renders the detections onto a copy of src. The source
// image is never modified; calling this twice with the same inputs
// produces identical pixels.
func DrawDetections(src image.Image, detections []detector.Detection) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	for _, det := range detections {
		if len(det.BBox) != 4 {
			continue
		}
		x1, y1 := int(det.BBox[0]), int(det.BBox[1])
		x2, y2 := int(det.BBox[2]), int(det.BBox[3])
		drawBox(out, x1, y1, x2, y2)
		drawLabel(out, x1, y1, fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence))
	}

	return out
}

// drawBox draws a rectangle outline with the fixed line width
func drawBox(img *image.RGBA, x1, y1, x2, y2 int) {
	fill := image.NewUniform(boxColor)
	// Top, bottom, left, right edges
	draw.Draw(img, clampRect(img, x1, y1, x2, y1+lineWidth), fill, image.Point{}, draw.Src)
	draw.Draw(img, clampRect(img, x1, y2-lineWidth, x2, y2), fill, image.Point{}, draw.Src)
	draw.Draw(img, clampRect(img, x1, y1, x1+lineWidth, y2), fill, image.Point{}, draw.Src)
	draw.Draw(img, clampRect(img, x2-lineWidth, y1, x2, y2), fill, image.Point{}, draw.Src)
}

// drawLabel draws the class/confidence label on a filled background
// above the box's top-left corner
func drawLabel(img *image.RGBA, x, y int, label string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()
	height := face.Metrics().Height.Ceil()

	top := y - height - labelPadding
	if top < img.Bounds().Min.Y {
		// Box touches the image top, draw the label inside instead
		top = y
	}

	bg := clampRect(img, x, top, x+width+2*labelPadding, top+height+labelPadding)
	draw.Draw(img, bg, image.NewUniform(boxColor), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x + labelPadding),
			Y: fixed.I(top + face.Metrics().Ascent.Ceil()),
		},
	}
	drawer.DrawString(label)
}

// clampRect builds a rectangle clamped to the image bounds
func clampRect(img *image.RGBA, x1, y1, x2, y2 int) image.Rectangle {
	return image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
}

// EncodeJPEG encodes an image as JPEG with the fixed quality setting
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJPEG decodes a JPEG buffer
func DecodeJPEG(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode JPEG: %w", err)
	}
	return img, nil
}

// AnnotateJPEG decodes a JPEG frame, renders the detections onto it and
// re-encodes it. An empty detection set returns a plain re-encode of the
// decoded frame, so interpolated and sampled frames go through the same
// decode/encode cycle.
func AnnotateJPEG(frame []byte, detections []detector.Detection) ([]byte, error) {
	img, err := DecodeJPEG(frame)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return EncodeJPEG(img)
	}
	return EncodeJPEG(DrawDetections(img, detections))
}
