package extraction

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
)

// LogPlotter writes summary statistics of each run at debug level.
type LogPlotter struct {
	Logger *slog.Logger
}

func (p *LogPlotter) Plot(ctx context.Context, g *grid.Grid, points []grid.Point, values []float64) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lon := make([]float64, len(points))
	lat := make([]float64, len(points))
	for i, pt := range points {
		lon[i], lat[i] = pt.Lon, pt.Lat
	}
	logger.DebugContext(ctx, "extraction diagnostics",
		"grid_lon", describe(g.Lon),
		"grid_lat", describe(g.Lat),
		"field", describe(g.Flatten()),
		"track_lon", describe(lon),
		"track_lat", describe(lat),
		"values", describe(values),
	)
}

// Stats summarises the finite entries of a sample.
type Stats struct {
	N    int     `json:"n"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

func describe(xs []float64) Stats {
	finite := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			finite = append(finite, x)
		}
	}
	if len(finite) == 0 {
		return Stats{}
	}
	s := Stats{N: len(finite), Min: floats.Min(finite), Max: floats.Max(finite)}
	s.Mean, s.Std = stat.PopMeanStdDev(finite, nil)
	return s
}
