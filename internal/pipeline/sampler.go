package pipeline

import (
	"math"
	"sort"

	"github.com/shiv122/brand-detector/internal/detector"
)

// SkipInterval returns the sampling stride for a source running at
// sourceFPS when the caller wants roughly targetFPS frames inspected
// per second. Frames whose source index is a multiple of the stride
// are sampled. The stride never drops below 1, so a source slower
// than the target is sampled in full.
func SkipInterval(sourceFPS float64, targetFPS int) int {
	if targetFPS <= 0 {
		return 1
	}
	skip := int(math.Floor(sourceFPS / float64(targetFPS)))
	if skip < 1 {
		return 1
	}
	return skip
}

// sampledFrame is one inspected frame: its position in the source,
// the detections found on it, and the annotated JPEG written to disk.
type sampledFrame struct {
	sourceIndex    int
	processedIndex int
	detections     []detector.Detection
}

// detectionIndex maps source frame indices to sampled results and
// answers nearest-neighbor queries for the frames in between.
type detectionIndex struct {
	frames  map[int]*sampledFrame
	indices []int
}

func newDetectionIndex() *detectionIndex {
	return &detectionIndex{frames: make(map[int]*sampledFrame)}
}

// add records a sampled frame. Frames arrive in ascending source order,
// so the index slice stays sorted without re-sorting.
func (d *detectionIndex) add(f *sampledFrame) {
	d.frames[f.sourceIndex] = f
	d.indices = append(d.indices, f.sourceIndex)
}

func (d *detectionIndex) len() int {
	return len(d.frames)
}

// nearest returns the sampled frame whose source index is closest to i.
// When two sampled frames are equidistant the lower index wins. Returns
// nil when nothing was sampled.
func (d *detectionIndex) nearest(i int) *sampledFrame {
	if len(d.indices) == 0 {
		return nil
	}
	j := sort.SearchInts(d.indices, i)
	if j == 0 {
		return d.frames[d.indices[0]]
	}
	if j == len(d.indices) {
		return d.frames[d.indices[len(d.indices)-1]]
	}
	lo, hi := d.indices[j-1], d.indices[j]
	if i-lo <= hi-i {
		return d.frames[lo]
	}
	return d.frames[hi]
}
