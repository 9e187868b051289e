package counter

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/hemalab/hemascan/internal/infer"
)

// UnknownSubtype is counted when the classifier returns no candidates for an
// accepted white-cell detection. This is a defined outcome, not an error.
const UnknownSubtype = "Unknown"

// Config carries the decision parameters for one scan. It is immutable after
// construction; one Config serves every tile of every slide.
type Config struct {
	// WBCConfidence is the strict lower confidence bound for white-cell
	// detections.
	WBCConfidence float64

	// WBCRatioBand is the lower edge r of the accepted aspect-ratio band
	// (r, 1/r) for white-cell boxes.
	WBCRatioBand float64

	// RBCConfidence is the strict lower confidence bound for red-cell
	// detections.
	RBCConfidence float64

	// RBCRatioBand is the lower edge r of the accepted aspect-ratio band
	// (r, 1/r) for red-cell boxes.
	RBCRatioBand float64

	// DetectionSize is the tile edge length the detectors expect.
	DetectionSize int

	// ClassifySize is the edge length of the square crop handed to the
	// subtype classifier.
	ClassifySize int
}

// DefaultConfig returns the parameters the models were tuned with.
func DefaultConfig() Config {
	return Config{
		WBCConfidence: 0.25,
		WBCRatioBand:  0.5,
		RBCConfidence: 0.4,
		RBCRatioBand:  0.7,
		DetectionSize: infer.DetectionInputSize,
		ClassifySize:  infer.ClassifyInputSize,
	}
}

// Annotate is an optional visualization hook invoked after each inference
// call with the image that was inferred on and the detections kept from it.
// Stage is "wbc", "rbc", or "classify".
type Annotate func(stage string, img image.Image, dets []infer.Detection)

// Counter applies the decision logic to one tile at a time.
type Counter struct {
	cfg    Config
	wbcDet infer.Detector
	wbcCls infer.Classifier
	rbcDet infer.Detector
	log    zerolog.Logger

	// Annotate, when set, is called after each inference with the accepted
	// detections. Nil means no visualization.
	Annotate Annotate
}

// New builds a Counter over already-loaded inference handles.
func New(cfg Config, wbcDet infer.Detector, wbcCls infer.Classifier, rbcDet infer.Detector, log zerolog.Logger) *Counter {
	return &Counter{
		cfg:    cfg,
		wbcDet: wbcDet,
		wbcCls: wbcCls,
		rbcDet: rbcDet,
		log:    log,
	}
}

// accepted reports whether a detection passes the confidence threshold and
// the aspect-ratio band. Both comparisons are strict.
func accepted(d infer.Detection, confidence, band float64) bool {
	if d.Confidence <= confidence {
		return false
	}
	ratio := d.AspectRatio()
	return band < ratio && ratio < 1/band
}

// CountRBC counts red blood cells on one tile.
func (c *Counter) CountRBC(tile image.Image) (int, error) {
	dets, err := c.rbcDet.Detect(tile)
	if err != nil {
		return 0, fmt.Errorf("rbc detection: %w", err)
	}

	count := 0
	kept := dets[:0]
	for _, d := range dets {
		if accepted(d, c.cfg.RBCConfidence, c.cfg.RBCRatioBand) {
			count++
			kept = append(kept, d)
		}
	}
	c.annotate("rbc", tile, kept)
	c.log.Debug().Int("raw", len(dets)).Int("counted", count).Msg("rbc tile")
	return count, nil
}

// CountWBC counts white blood cells on one tile, classified by subtype.
// The tile is assumed to be DetectionSize on each edge; detections near the
// tile border get a smaller, clamped classification crop.
func (c *Counter) CountWBC(tile image.Image) (map[string]int, error) {
	dets, err := c.wbcDet.Detect(tile)
	if err != nil {
		return nil, fmt.Errorf("wbc detection: %w", err)
	}

	counts := make(map[string]int)
	kept := dets[:0]
	for _, d := range dets {
		if !accepted(d, c.cfg.WBCConfidence, c.cfg.WBCRatioBand) {
			continue
		}
		kept = append(kept, d)

		subtype, err := c.classify(tile, d)
		if err != nil {
			return nil, err
		}
		counts[subtype]++
	}
	c.annotate("wbc", tile, kept)
	c.log.Debug().Int("raw", len(dets)).Int("counted", len(kept)).Msg("wbc tile")
	return counts, nil
}

// classify crops a ClassifySize square around the detection center, clamped
// to the tile, and asks the subtype classifier about it.
func (c *Counter) classify(tile image.Image, d infer.Detection) (string, error) {
	half := float64(c.cfg.ClassifySize / 2)
	limit := float64(c.cfg.DetectionSize)

	left := max(d.CenterX-half, 0)
	top := max(d.CenterY-half, 0)
	right := min(d.CenterX+half, limit)
	bottom := min(d.CenterY+half, limit)

	crop := imaging.Crop(tile, image.Rect(int(left), int(top), int(right), int(bottom)))

	_, candidates, err := c.wbcCls.Classify(crop)
	if err != nil {
		return "", fmt.Errorf("wbc classification: %w", err)
	}
	c.annotate("classify", crop, candidates)

	if len(candidates) == 0 {
		return UnknownSubtype, nil
	}

	best := closestToCenter(candidates, half, half)
	if best.Label == "" {
		return UnknownSubtype, nil
	}
	return best.Label, nil
}

// closestToCenter picks the candidate whose box center is Euclidean-closest
// to (cx, cy). Distance is compared strictly, so the first candidate wins a
// tie.
func closestToCenter(candidates []infer.Detection, cx, cy float64) infer.Detection {
	best := candidates[0]
	bestDist := best.CenterDistance(cx, cy)
	for _, cand := range candidates[1:] {
		if dist := cand.CenterDistance(cx, cy); dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best
}

func (c *Counter) annotate(stage string, img image.Image, dets []infer.Detection) {
	if c.Annotate != nil {
		c.Annotate(stage, img, dets)
	}
}
