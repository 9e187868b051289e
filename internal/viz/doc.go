// Package viz renders debug overlays of detection boxes on tile images.
// It backs the counter's optional annotation hook; production runs leave the
// hook unset and pay nothing.
package viz
