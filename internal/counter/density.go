package counter

import (
	"fmt"
	"image"

	"github.com/hemalab/hemascan/internal/infer"
)

// goodDensityLabel is the top-1 label that marks a usable smear region.
const goodDensityLabel = "Good"

// DensityGate wraps the slide-quality classifier.
//
// The gate is computed and logged for every tile, but the pipeline does not
// skip poor-density tiles on its result. The skip existed upstream and was
// deliberately disabled; callers must treat this as an informational signal
// until that decision is revisited.
type DensityGate struct {
	cls infer.Classifier
}

// NewDensityGate builds a gate over an already-loaded classifier.
func NewDensityGate(cls infer.Classifier) *DensityGate {
	return &DensityGate{cls: cls}
}

// GoodDensity reports whether the classifier's top-1 label marks the region
// as usable.
func (g *DensityGate) GoodDensity(img image.Image) (bool, error) {
	top1, _, err := g.cls.Classify(img)
	if err != nil {
		return false, fmt.Errorf("density classification: %w", err)
	}
	return top1 == goodDensityLabel, nil
}
