package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/bounds"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/gapfill"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/interpolate"
)

// invalidBelow is the sentinel threshold: field values below it are missing.
const invalidBelow = 0

// DiagnosticPlotter receives the inputs and outputs of a run for inspection.
// It never affects the result.
type DiagnosticPlotter interface {
	Plot(ctx context.Context, g *grid.Grid, points []grid.Point, values []float64)
}

// Pipeline extracts values of one gridded field at track points.
type Pipeline struct {
	meshes  *interpolate.Cache
	plotter DiagnosticPlotter
}

// NewPipeline creates a Pipeline. A nil cache gets a private one; plotter may be nil.
func NewPipeline(meshes *interpolate.Cache, plotter DiagnosticPlotter) *Pipeline {
	if meshes == nil {
		meshes = interpolate.NewCache()
	}
	return &Pipeline{meshes: meshes, plotter: plotter}
}

// Run drops points outside g, interpolates the raw field to flag them,
// gap-fills a copy of the field and interpolates it for the final values.
// g is never modified.
func (p *Pipeline) Run(ctx context.Context, g *grid.Grid, points []grid.Point, date *time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept, dropped := bounds.Filter(points, g.Envelope())
	if len(dropped) > 0 {
		slog.WarnContext(ctx, "removed track points outside grid",
			"date", DateLabel(date), "count", len(dropped), "dropped", dropped)
	}

	mesh, err := p.meshes.Mesh(g)
	if err != nil {
		return nil, fmt.Errorf("triangulate: %w", err)
	}

	raw, err := mesh.Interpolate(g.Flatten(), kept)
	if err != nil {
		return nil, fmt.Errorf("interpolate raw field: %w", err)
	}

	filled, err := gapfill.FillBelow(g.Flatten(), invalidBelow)
	if err != nil {
		return nil, fmt.Errorf("gap-fill: %w", err)
	}

	values, err := mesh.Interpolate(filled, kept)
	if err != nil {
		return nil, fmt.Errorf("interpolate gap-filled field: %w", err)
	}

	res := assemble(ctx, date, kept, dropped, raw, values)

	if p.plotter != nil {
		p.plotter.Plot(ctx, g, kept, values)
	}

	return res, nil
}

// assemble builds the per-point records of a run. Final values that are still
// NaN are listed in Warnings.NaN.
func assemble(ctx context.Context, date *time.Time, kept []grid.Point, dropped []bounds.Dropped, raw, values []float64) *Result {
	res := &Result{
		Date:     date,
		Records:  make([]Record, len(kept)),
		Warnings: Warnings{OutOfBounds: dropped},
	}
	for i, pt := range kept {
		res.Records[i] = Record{
			Lon:   pt.Lon,
			Lat:   pt.Lat,
			Raw:   raw[i],
			Value: values[i],
			Flag:  classify(raw[i]),
			Date:  date,
		}
		if math.IsNaN(values[i]) {
			res.Warnings.NaN = append(res.Warnings.NaN, i)
		}
	}
	if len(res.Warnings.NaN) > 0 {
		slog.WarnContext(ctx, "interpolation returned no value inside grid bounds",
			"date", DateLabel(date), "indices", res.Warnings.NaN)
	}
	return res
}
