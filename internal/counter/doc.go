// Package counter decides which raw detections count as cells.
//
// Raw detections from the inference layer are filtered twice before they are
// counted: a strict confidence threshold and an aspect-ratio band that
// rejects elongated or degenerate boxes. Accepted white-cell detections are
// additionally classified into a subtype by cropping a fixed-size region
// around the detection center and picking the classifier candidate closest
// to the crop center.
//
// # Filter Semantics
//
// Both filters use strict comparisons: a detection whose confidence equals
// the threshold is rejected, and a box whose width/height ratio sits exactly
// on a band edge is rejected. The band is (r, 1/r) for a configured r < 1,
// so boxes must be close to square.
//
// Cells straddling tile boundaries may be double-counted or missed; no
// cross-tile deduplication is performed.
package counter
