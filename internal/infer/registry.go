package infer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ModelPaths names the model files for each role in a scan. Label files are
// optional plain-text tables, one class name per line, in class-index order.
type ModelPaths struct {
	WBCDetect     string
	WBCClassify   string
	RBCDetect     string
	Density       string
	WBCLabels     string
	SubtypeLabels string
	DensityLabels string
}

// Registry holds one inference handle per model role. It is constructed once
// at process start and passed by reference into the pipeline; model loading
// is expensive and the loaded handles are reused for every tile and slide.
type Registry struct {
	WBCDetector   Detector
	WBCClassifier Classifier
	RBCDetector   Detector
	Density       Classifier

	nets []*YOLONet
}

// Input edge lengths the models were exported with.
const (
	DetectionInputSize = 512
	ClassifyInputSize  = 224
)

// NewRegistry loads all four models. Any load failure aborts construction;
// a partially usable registry is never returned.
func NewRegistry(paths ModelPaths) (*Registry, error) {
	r := &Registry{}

	wbcLabels, err := loadOptionalLabels(paths.WBCLabels)
	if err != nil {
		r.Close()
		return nil, err
	}
	subtypeLabels, err := loadOptionalLabels(paths.SubtypeLabels)
	if err != nil {
		r.Close()
		return nil, err
	}
	densityLabels, err := loadOptionalLabels(paths.DensityLabels)
	if err != nil {
		r.Close()
		return nil, err
	}

	wbcDet, err := r.load(paths.WBCDetect, wbcLabels, DetectionInputSize)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("wbc detector: %w", err)
	}
	wbcCls, err := r.load(paths.WBCClassify, subtypeLabels, ClassifyInputSize)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("wbc classifier: %w", err)
	}
	rbcDet, err := r.load(paths.RBCDetect, nil, DetectionInputSize)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("rbc detector: %w", err)
	}
	density, err := r.load(paths.Density, densityLabels, ClassifyInputSize)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("density classifier: %w", err)
	}

	r.WBCDetector = wbcDet
	r.WBCClassifier = wbcCls
	r.RBCDetector = rbcDet
	r.Density = density
	return r, nil
}

// Close releases every loaded network.
func (r *Registry) Close() error {
	var firstErr error
	for _, n := range r.nets {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.nets = nil
	return firstErr
}

func (r *Registry) load(path string, labels []string, input int) (*YOLONet, error) {
	n, err := LoadYOLONet(path, labels, input)
	if err != nil {
		return nil, err
	}
	r.nets = append(r.nets, n)
	return n, nil
}

func loadOptionalLabels(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	return LoadLabels(path)
}

// LoadLabels reads a class label table from a plain-text file, one name per
// line. Blank lines and surrounding whitespace are ignored.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return labels, nil
}
