package counter

import (
	"errors"
	"image"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hemalab/hemascan/internal/infer"
)

type fakeDetector struct {
	dets   []infer.Detection
	err    error
	labels []string
	calls  int
}

func (f *fakeDetector) Detect(image.Image) ([]infer.Detection, error) {
	f.calls++
	return f.dets, f.err
}

func (f *fakeDetector) Labels() []string { return f.labels }

type fakeClassifier struct {
	top1  string
	cands []infer.Detection
	err   error
	calls int
	crops []image.Rectangle
}

func (f *fakeClassifier) Classify(img image.Image) (string, []infer.Detection, error) {
	f.calls++
	f.crops = append(f.crops, img.Bounds())
	return f.top1, f.cands, f.err
}

func testTile() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 512, 512))
}

func newTestCounter(wbcDet *fakeDetector, cls *fakeClassifier, rbcDet *fakeDetector) *Counter {
	return New(DefaultConfig(), wbcDet, cls, rbcDet, zerolog.Nop())
}

func det(conf, cx, cy, w, h float64) infer.Detection {
	return infer.Detection{Confidence: conf, CenterX: cx, CenterY: cy, Width: w, Height: h}
}

func TestCountRBC_ConfidenceBoundary(t *testing.T) {
	tests := []struct {
		name string
		conf float64
		want int
	}{
		{"below threshold", 0.39, 0},
		{"exactly threshold", 0.4, 0},
		{"just above threshold", 0.41, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rbc := &fakeDetector{dets: []infer.Detection{det(tt.conf, 100, 100, 10, 10)}}
			c := newTestCounter(&fakeDetector{}, &fakeClassifier{}, rbc)

			got, err := c.CountRBC(testTile())
			if err != nil {
				t.Fatalf("CountRBC failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("count: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountRBC_RejectsElongatedBox(t *testing.T) {
	// Ratio 5/20 = 0.25 is outside the (0.7, 1/0.7) band.
	rbc := &fakeDetector{dets: []infer.Detection{det(0.5, 100, 100, 5, 20)}}
	c := newTestCounter(&fakeDetector{}, &fakeClassifier{}, rbc)

	got, err := c.CountRBC(testTile())
	if err != nil {
		t.Fatalf("CountRBC failed: %v", err)
	}
	if got != 0 {
		t.Errorf("count: got %d, want 0", got)
	}
}

func TestCountRBC_AcceptsSquareBox(t *testing.T) {
	rbc := &fakeDetector{dets: []infer.Detection{
		det(0.9, 50, 50, 12, 12),
		det(0.8, 200, 200, 10, 11),
	}}
	c := newTestCounter(&fakeDetector{}, &fakeClassifier{}, rbc)

	got, err := c.CountRBC(testTile())
	if err != nil {
		t.Fatalf("CountRBC failed: %v", err)
	}
	if got != 2 {
		t.Errorf("count: got %d, want 2", got)
	}
}

func TestCountRBC_PropagatesError(t *testing.T) {
	rbc := &fakeDetector{err: errors.New("device error")}
	c := newTestCounter(&fakeDetector{}, &fakeClassifier{}, rbc)

	if _, err := c.CountRBC(testTile()); err == nil {
		t.Error("CountRBC should propagate detector errors")
	}
}

func TestCountWBC_ThresholdFiltersBeforeClassification(t *testing.T) {
	// One confident detection, one far below threshold: exactly one
	// classification call must happen.
	wbc := &fakeDetector{dets: []infer.Detection{
		det(0.9, 256, 256, 10, 10),
		det(0.1, 100, 100, 10, 10),
	}}
	cls := &fakeClassifier{cands: []infer.Detection{
		{Confidence: 0.8, CenterX: 112, CenterY: 112, Width: 10, Height: 10, Label: "Lymphocyte"},
	}}
	c := newTestCounter(wbc, cls, &fakeDetector{})

	counts, err := c.CountWBC(testTile())
	if err != nil {
		t.Fatalf("CountWBC failed: %v", err)
	}

	if cls.calls != 1 {
		t.Errorf("classifier calls: got %d, want 1", cls.calls)
	}
	if counts["Lymphocyte"] != 1 || len(counts) != 1 {
		t.Errorf("counts: got %v, want map[Lymphocyte:1]", counts)
	}
}

func TestCountWBC_RatioBandBoundary(t *testing.T) {
	// The band (0.5, 2.0) is exact in floats, so boxes sitting exactly on
	// an edge must be rejected while strictly-inside boxes pass.
	tests := []struct {
		name string
		w, h float64
		want int
	}{
		{"exactly lower edge", 5, 10, 0},
		{"exactly upper edge", 20, 10, 0},
		{"just inside lower", 5.1, 10, 1},
		{"just inside upper", 19.9, 10, 1},
		{"square", 10, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, tt.w, tt.h)}}
			cls := &fakeClassifier{}
			c := newTestCounter(wbc, cls, &fakeDetector{})

			counts, err := c.CountWBC(testTile())
			if err != nil {
				t.Fatalf("CountWBC failed: %v", err)
			}

			total := 0
			for _, n := range counts {
				total += n
			}
			if total != tt.want {
				t.Errorf("total counted: got %d, want %d", total, tt.want)
			}
		})
	}
}

func TestCountWBC_ZeroCandidatesIsUnknown(t *testing.T) {
	wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, 10, 10)}}
	cls := &fakeClassifier{} // no candidates
	c := newTestCounter(wbc, cls, &fakeDetector{})

	counts, err := c.CountWBC(testTile())
	if err != nil {
		t.Fatalf("CountWBC failed: %v", err)
	}
	if counts[UnknownSubtype] != 1 {
		t.Errorf("counts: got %v, want map[Unknown:1]", counts)
	}
}

func TestCountWBC_ClosestCandidateWins(t *testing.T) {
	wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, 10, 10)}}
	cls := &fakeClassifier{cands: []infer.Detection{
		{CenterX: 10, CenterY: 10, Label: "Monocyte"},
		{CenterX: 110, CenterY: 110, Label: "Neutrophil"},
		{CenterX: 200, CenterY: 200, Label: "Basophil"},
	}}
	c := newTestCounter(wbc, cls, &fakeDetector{})

	counts, err := c.CountWBC(testTile())
	if err != nil {
		t.Fatalf("CountWBC failed: %v", err)
	}
	if counts["Neutrophil"] != 1 || len(counts) != 1 {
		t.Errorf("counts: got %v, want map[Neutrophil:1]", counts)
	}
}

func TestCountWBC_TieBreakFirstCandidate(t *testing.T) {
	// Both candidates sit exactly 12 pixels from the crop center (112,112);
	// the first in input order must win deterministically.
	wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, 10, 10)}}
	cls := &fakeClassifier{cands: []infer.Detection{
		{CenterX: 100, CenterY: 112, Label: "Eosinophil"},
		{CenterX: 124, CenterY: 112, Label: "Lymphocyte"},
	}}
	c := newTestCounter(wbc, cls, &fakeDetector{})

	counts, err := c.CountWBC(testTile())
	if err != nil {
		t.Fatalf("CountWBC failed: %v", err)
	}
	if counts["Eosinophil"] != 1 || len(counts) != 1 {
		t.Errorf("counts: got %v, want map[Eosinophil:1]", counts)
	}
}

func TestCountWBC_CropCenteredAwayFromEdges(t *testing.T) {
	wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, 10, 10)}}
	cls := &fakeClassifier{}
	c := newTestCounter(wbc, cls, &fakeDetector{})

	if _, err := c.CountWBC(testTile()); err != nil {
		t.Fatalf("CountWBC failed: %v", err)
	}

	if len(cls.crops) != 1 {
		t.Fatalf("classifier crops: got %d, want 1", len(cls.crops))
	}
	if got := cls.crops[0]; got.Dx() != 224 || got.Dy() != 224 {
		t.Errorf("crop size: got %dx%d, want 224x224", got.Dx(), got.Dy())
	}
}

func TestCountWBC_CropClampedAtEdges(t *testing.T) {
	tests := []struct {
		name         string
		cx, cy       float64
		wantW, wantH int
	}{
		{"near top-left corner", 5, 5, 117, 117},
		{"near left edge", 0, 256, 112, 224},
		{"near bottom-right corner", 510, 510, 114, 114},
		{"near bottom edge", 256, 512, 224, 112},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wbc := &fakeDetector{dets: []infer.Detection{det(0.9, tt.cx, tt.cy, 10, 10)}}
			cls := &fakeClassifier{}
			c := newTestCounter(wbc, cls, &fakeDetector{})

			if _, err := c.CountWBC(testTile()); err != nil {
				t.Fatalf("CountWBC failed: %v", err)
			}
			if len(cls.crops) != 1 {
				t.Fatalf("classifier crops: got %d, want 1", len(cls.crops))
			}

			got := cls.crops[0]
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("crop size: got %dx%d, want %dx%d", got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
			if got.Dx() <= 0 || got.Dy() <= 0 {
				t.Errorf("crop has non-positive size: %v", got)
			}
		})
	}
}

func TestCountWBC_ClassifierErrorPropagates(t *testing.T) {
	wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, 10, 10)}}
	cls := &fakeClassifier{err: errors.New("malformed image")}
	c := newTestCounter(wbc, cls, &fakeDetector{})

	if _, err := c.CountWBC(testTile()); err == nil {
		t.Error("CountWBC should propagate classifier errors")
	}
}

func TestCounter_AnnotateHook(t *testing.T) {
	wbc := &fakeDetector{dets: []infer.Detection{det(0.9, 256, 256, 10, 10)}}
	cls := &fakeClassifier{cands: []infer.Detection{{CenterX: 112, CenterY: 112, Label: "Monocyte"}}}
	c := newTestCounter(wbc, cls, &fakeDetector{})

	stages := make(map[string]int)
	c.Annotate = func(stage string, img image.Image, dets []infer.Detection) {
		stages[stage]++
	}

	if _, err := c.CountWBC(testTile()); err != nil {
		t.Fatalf("CountWBC failed: %v", err)
	}
	if _, err := c.CountRBC(testTile()); err != nil {
		t.Fatalf("CountRBC failed: %v", err)
	}

	if stages["wbc"] != 1 || stages["classify"] != 1 || stages["rbc"] != 1 {
		t.Errorf("annotate stages: got %v", stages)
	}
}

func TestDensityGate(t *testing.T) {
	tests := []struct {
		top1 string
		want bool
	}{
		{"Good", true},
		{"Poor", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("top1="+tt.top1, func(t *testing.T) {
			gate := NewDensityGate(&fakeClassifier{top1: tt.top1})
			got, err := gate.GoodDensity(testTile())
			if err != nil {
				t.Fatalf("GoodDensity failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("GoodDensity: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDensityGate_PropagatesError(t *testing.T) {
	gate := NewDensityGate(&fakeClassifier{err: errors.New("model error")})
	if _, err := gate.GoodDensity(testTile()); err == nil {
		t.Error("GoodDensity should propagate classifier errors")
	}
}
