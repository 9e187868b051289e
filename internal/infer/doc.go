// Package infer defines the inference interfaces the counting pipeline is
// built against, plus the production OpenCV DNN backend that implements them.
//
// The pipeline never talks to a model runtime directly. Detection models are
// consumed through the Detector interface and classification models through
// the Classifier interface; both return plain Detection values in pixel
// coordinates of the image they were given.
//
// # Model Roles
//
// A full scan uses four models, held together by a Registry:
//
//   - Red-cell detector: boxes around red blood cells
//   - White-cell detector: boxes around white blood cells
//   - White-cell classifier: subtype boxes inside a crop around one white cell
//   - Density classifier: a single top-1 quality label for a region
//
// Each model is loaded exactly once per process and reused across all tiles
// and slides. Loading is expensive; inference calls are cheap by comparison
// but blocking, with no timeout or cancellation support.
//
// # Detection Geometry
//
// Detections use center-based boxes: (CenterX, CenterY) is the box center and
// Width/Height its extent, all in pixels of the input image. Confidence is in
// [0, 1]. ClassIndex indexes the model's label table; Label is the resolved
// name when the table is known.
//
// # Error Handling
//
// A failure to load a model or run a forward pass is fatal for the caller's
// current unit of work and is returned as a wrapped error. No retry is
// attempted at this layer.
package infer
