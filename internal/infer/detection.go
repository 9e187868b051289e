package infer

import (
	"image"
	"math"
)

// Detection is one candidate object returned by an inference call.
//
// The box is center-based: (CenterX, CenterY) is the box center in pixel
// coordinates of the image passed to the model, Width and Height its extent.
type Detection struct {
	Confidence float64 `json:"confidence"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	ClassIndex int     `json:"class_index"`
	Label      string  `json:"label,omitempty"`
}

// AspectRatio returns Width/Height. Returns +Inf for a zero-height box.
func (d Detection) AspectRatio() float64 {
	if d.Height == 0 {
		return math.Inf(1)
	}
	return d.Width / d.Height
}

// CenterDistance returns the Euclidean distance from the box center to (x, y).
func (d Detection) CenterDistance(x, y float64) float64 {
	dx := d.CenterX - x
	dy := d.CenterY - y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect returns the detection box as an image.Rectangle, rounding outward-in
// from the center representation.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(
		int(d.CenterX-d.Width/2),
		int(d.CenterY-d.Height/2),
		int(d.CenterX+d.Width/2),
		int(d.CenterY+d.Height/2),
	)
}

// Detector produces detections for an image. Implementations are reused
// across many sequential calls and must not leak state between them.
type Detector interface {
	// Detect runs one forward pass and returns all candidate detections.
	// Filtering by confidence or shape is the caller's responsibility.
	Detect(img image.Image) ([]Detection, error)

	// Labels returns the model's class label table, indexed by ClassIndex.
	Labels() []string
}

// Classifier assigns a class to an image region. Detection-style classifiers
// also return per-candidate boxes; pure classifiers return only the top-1
// label with no candidates.
type Classifier interface {
	Classify(img image.Image) (top1 string, candidates []Detection, err error)
}
