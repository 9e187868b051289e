package infer

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// decodeFloor is the permissive confidence floor applied while decoding raw
// network output. Role-specific thresholds are applied by the caller, so this
// only trims the obvious noise rows before NMS.
const decodeFloor = 0.1

// nmsThreshold is the IoU threshold used to suppress duplicate boxes.
const nmsThreshold = 0.45

// YOLONet runs a YOLO-family network through the OpenCV DNN module.
// It implements both Detector and Classifier; which methods are meaningful
// depends on whether the underlying model is a detector or a classifier.
//
// A YOLONet is not safe for concurrent use. The pipeline calls it strictly
// sequentially, which matches the single accumulator ownership model.
type YOLONet struct {
	net    gocv.Net
	labels []string
	input  int
}

// LoadYOLONet reads an ONNX (or other OpenCV-readable) model from disk.
// labels is the class table indexed by the model's class indices; input is
// the square input edge length the model was exported with.
func LoadYOLONet(modelPath string, labels []string, input int) (*YOLONet, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %q", modelPath)
	}
	return &YOLONet{net: net, labels: labels, input: input}, nil
}

// Close releases the underlying network.
func (n *YOLONet) Close() error {
	return n.net.Close()
}

// Labels returns the model's class label table.
func (n *YOLONet) Labels() []string {
	return n.labels
}

// Detect runs one forward pass and decodes all candidate boxes above the
// decode floor, with duplicate suppression. Coordinates are mapped back to
// the pixel space of img.
func (n *YOLONet) Detect(img image.Image) ([]Detection, error) {
	out, scale, err := n.forward(img)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	if len(out.Size()) != 3 {
		return nil, fmt.Errorf("unexpected detector output shape %v", out.Size())
	}
	return n.decodeDetections(out, scale), nil
}

// Classify runs one forward pass and interprets the result either as class
// probabilities (pure classifier: top-1 label, no candidates) or as
// detections (detection-style classifier: candidates plus the label of the
// most confident one).
func (n *YOLONet) Classify(img image.Image) (string, []Detection, error) {
	out, scale, err := n.forward(img)
	if err != nil {
		return "", nil, err
	}
	defer out.Close()

	if len(out.Size()) == 2 {
		// Probability vector: (1, numClasses).
		best, bestProb := 0, float32(-1)
		for c := 0; c < out.Size()[1]; c++ {
			if p := out.GetFloatAt(0, c); p > bestProb {
				best, bestProb = c, p
			}
		}
		return n.label(best), nil, nil
	}

	cands := n.decodeDetections(out, scale)
	if len(cands) == 0 {
		return "", nil, nil
	}
	top := cands[0]
	for _, c := range cands[1:] {
		if c.Confidence > top.Confidence {
			top = c
		}
	}
	return top.Label, cands, nil
}

// forward converts img to a blob, runs the network, and returns the raw
// output along with the factor mapping network coordinates back to pixels.
func (n *YOLONet) forward(img image.Image) (gocv.Mat, float64, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, 0, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	// Pad to a square so aspect ratio survives the resize to input size.
	maxDim := mat.Rows()
	if mat.Cols() > maxDim {
		maxDim = mat.Cols()
	}
	square := gocv.NewMatWithSize(maxDim, maxDim, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, mat.Cols(), mat.Rows()))
	mat.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(n.input, n.input),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	if out.Empty() {
		out.Close()
		return gocv.Mat{}, 0, fmt.Errorf("inference produced empty output")
	}

	return out, float64(maxDim) / float64(n.input), nil
}

// decodeDetections unpacks the (1, 4+numClasses, numBoxes) output layout:
// rows 0-3 are cx, cy, w, h in network input space, the remaining rows are
// per-class scores.
func (n *YOLONet) decodeDetections(out gocv.Mat, scale float64) []Detection {
	dims := out.Size()
	numRows := dims[1]
	numBoxes := dims[2]

	var dets []Detection
	var rects []image.Rectangle
	var scores []float32

	for j := 0; j < numBoxes; j++ {
		best, bestScore := 0, float32(-1)
		for c := 4; c < numRows; c++ {
			if s := out.GetFloatAt3(0, c, j); s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if bestScore < decodeFloor {
			continue
		}

		d := Detection{
			Confidence: float64(bestScore),
			CenterX:    float64(out.GetFloatAt3(0, 0, j)) * scale,
			CenterY:    float64(out.GetFloatAt3(0, 1, j)) * scale,
			Width:      float64(out.GetFloatAt3(0, 2, j)) * scale,
			Height:     float64(out.GetFloatAt3(0, 3, j)) * scale,
			ClassIndex: best,
			Label:      n.label(best),
		}
		dets = append(dets, d)
		rects = append(rects, d.Rect())
		scores = append(scores, bestScore)
	}

	if len(dets) < 2 {
		return dets
	}

	keep := gocv.NMSBoxes(rects, scores, decodeFloor, nmsThreshold)
	kept := make([]Detection, 0, len(keep))
	for _, i := range keep {
		kept = append(kept, dets[i])
	}
	return kept
}

func (n *YOLONet) label(idx int) string {
	if idx >= 0 && idx < len(n.labels) {
		return n.labels[idx]
	}
	return fmt.Sprintf("class%d", idx)
}
