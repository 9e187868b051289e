// Package scan holds the accumulated cell-count summary for a tile or a
// whole slide, its additive merge, and the plain-text report written next to
// a processed slide file.
package scan
