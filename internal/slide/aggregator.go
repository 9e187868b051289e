package slide

import (
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/hemalab/hemascan/internal/counter"
	"github.com/hemalab/hemascan/internal/scan"
)

// progressEvery controls how often a progress line is emitted during a long
// slide walk.
const progressEvery = 32

// LabelReader extracts a specimen identifier from the slide image. Optional;
// a failure here never fails the scan.
type LabelReader interface {
	Read(img image.Image) (string, error)
}

// Aggregator walks a slide tile by tile and folds the per-tile counts into
// one summary. It owns the running accumulator for the duration of a slide;
// tiles are processed strictly sequentially.
type Aggregator struct {
	counter *counter.Counter
	gate    *counter.DensityGate
	cache   *Cache
	stride  int
	log     zerolog.Logger

	// Labels, when set, is used to tag reports and logs with the specimen
	// identifier printed on the slide.
	Labels LabelReader
}

// NewAggregator wires an aggregator over a counter and density gate. The
// same aggregator serves any number of slides in sequence.
func NewAggregator(c *counter.Counter, gate *counter.DensityGate, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		counter: c,
		gate:    gate,
		cache:   NewCache(),
		stride:  TileStride,
		log:     log,
	}
}

// Process counts cells across every tile of an already-decoded slide.
// Any tile failure aborts the slide with an error.
func (a *Aggregator) Process(img image.Image) (scan.Result, *scan.TileStats, error) {
	total := scan.NewResult()
	stats := scan.NewTileStats()

	b := img.Bounds()
	origins := Origins(b.Dx(), b.Dy(), a.stride)
	a.log.Info().
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("tiles", len(origins)).
		Msg("processing slide")

	for i, o := range origins {
		tile := CropTile(img, o, a.stride)

		res, err := a.processTile(tile)
		if err != nil {
			return scan.NewResult(), nil, fmt.Errorf("tile (%d,%d): %w", o.X, o.Y, err)
		}

		total.Merge(res)
		stats.Add(res)

		if (i+1)%progressEvery == 0 || i == len(origins)-1 {
			a.log.Info().
				Int("tile", i+1).
				Int("of", len(origins)).
				Str("running", total.String()).
				Msg("progress")
		}
	}

	return total, stats, nil
}

// processTile runs the density gate and both counting paths on one tile.
//
// The gate result is logged but never short-circuits the tile: the upstream
// skip on poor density was deliberately disabled and is preserved as an
// informational signal only.
func (a *Aggregator) processTile(tile image.Image) (scan.Result, error) {
	good, err := a.gate.GoodDensity(tile)
	if err != nil {
		return scan.Result{}, err
	}
	if !good {
		a.log.Debug().Msg("tile density below Good; counting anyway")
	}

	wbc, err := a.counter.CountWBC(tile)
	if err != nil {
		return scan.Result{}, err
	}
	rbc, err := a.counter.CountRBC(tile)
	if err != nil {
		return scan.Result{}, err
	}

	res := scan.NewResult()
	for label, n := range wbc {
		res.WBC[label] += n
	}
	res.RBC = rbc
	return res, nil
}

// ProcessFile counts cells across a named slide file. This is the only
// layer allowed to soften a failure: a missing or unreadable slide yields a
// diagnostic log and an empty summary with a nil error, so batch callers
// can move on. Failures during tile processing still propagate.
//
// When save is set, the text report is written next to the slide file.
func (a *Aggregator) ProcessFile(path string, save bool) (scan.Result, error) {
	img, err := a.cache.Load(path)
	if err != nil {
		a.log.Warn().Err(err).Str("slide", path).Msg("invalid slide file; returning empty summary")
		return scan.NewResult(), nil
	}
	defer a.cache.Evict(path)

	specimen := a.readLabel(img)

	result, stats, err := a.Process(img)
	if err != nil {
		return scan.NewResult(), err
	}

	a.log.Info().
		Str("slide", path).
		Str("specimen", specimen).
		Str("summary", result.String()).
		Str("tiles", stats.String()).
		Msg("slide complete")

	if save {
		if err := scan.WriteReport(path, result, stats, specimen); err != nil {
			return result, err
		}
		a.log.Info().Str("report", scan.ReportPath(path)).Msg("report written")
	}

	return result, nil
}

func (a *Aggregator) readLabel(img image.Image) string {
	if a.Labels == nil {
		return ""
	}
	specimen, err := a.Labels.Read(img)
	if err != nil {
		a.log.Warn().Err(err).Msg("specimen label unreadable")
		return ""
	}
	return specimen
}
