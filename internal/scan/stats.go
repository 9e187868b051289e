package scan

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// TileStats collects per-tile counts while a slide is processed so the final
// report can include distribution figures alongside the raw totals.
type TileStats struct {
	wbcPerTile []float64
	rbcPerTile []float64
}

// NewTileStats returns an empty collector.
func NewTileStats() *TileStats {
	return &TileStats{}
}

// Add records one tile's counts.
func (s *TileStats) Add(tile Result) {
	s.wbcPerTile = append(s.wbcPerTile, float64(tile.TotalWBC()))
	s.rbcPerTile = append(s.rbcPerTile, float64(tile.RBC))
}

// Tiles returns the number of tiles recorded.
func (s *TileStats) Tiles() int {
	return len(s.wbcPerTile)
}

// MeanWBC returns the mean white-cell count per tile, or 0 with no tiles.
func (s *TileStats) MeanWBC() float64 {
	if len(s.wbcPerTile) == 0 {
		return 0
	}
	return stat.Mean(s.wbcPerTile, nil)
}

// MeanRBC returns the mean red-cell count per tile, or 0 with no tiles.
func (s *TileStats) MeanRBC() float64 {
	if len(s.rbcPerTile) == 0 {
		return 0
	}
	return stat.Mean(s.rbcPerTile, nil)
}

// StdDevWBC returns the sample standard deviation of white-cell counts per
// tile. Zero when fewer than two tiles were recorded.
func (s *TileStats) StdDevWBC() float64 {
	if len(s.wbcPerTile) < 2 {
		return 0
	}
	return stat.StdDev(s.wbcPerTile, nil)
}

// StdDevRBC returns the sample standard deviation of red-cell counts per
// tile. Zero when fewer than two tiles were recorded.
func (s *TileStats) StdDevRBC() float64 {
	if len(s.rbcPerTile) < 2 {
		return 0
	}
	return stat.StdDev(s.rbcPerTile, nil)
}

// String renders the distribution figures for the report.
func (s *TileStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tiles=%d", s.Tiles())
	fmt.Fprintf(&b, " wbc/tile=%.2f (sd %.2f)", s.MeanWBC(), s.StdDevWBC())
	fmt.Fprintf(&b, " rbc/tile=%.2f (sd %.2f)", s.MeanRBC(), s.StdDevRBC())
	return b.String()
}
