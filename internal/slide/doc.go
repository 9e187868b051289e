// Package slide loads whole-slide scan images and walks them tile by tile,
// folding per-tile cell counts into one slide-level summary.
//
// # Tiling
//
// A slide is partitioned into a fixed grid of 512x512 tiles stepped from the
// top-left corner. Tiles on the bottom and right edges may extend past the
// image; cropping clamps to the available pixels rather than failing or
// padding. Tiles are processed sequentially in row-major order, one at a
// time, with a single running accumulator owned by the Aggregator.
//
// # Failure Contract
//
// Only ProcessFile may soften a failure: a missing or undecodable slide file
// yields a diagnostic log plus an empty summary so batch callers can
// continue. Every failure inside tile processing (inference errors included)
// propagates as a fatal error.
package slide
