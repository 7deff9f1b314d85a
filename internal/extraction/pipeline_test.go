package extraction

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/bounds"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/gapfill"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/interpolate"
)

// holeGrid samples 10 + 3*i + j on a 3x3 unit grid with the centre set to -5.
func holeGrid(t *testing.T) *grid.Grid {
	t.Helper()
	axis := []float64{0, 1, 2}
	values := make([]float64, 0, 9)
	for i := range axis {
		for j := range axis {
			values = append(values, 10+3*float64(i)+float64(j))
		}
	}
	values[4] = -5
	g, err := grid.New(axis, axis, values)
	require.NoError(t, err)
	return g
}

type recordingPlotter struct {
	calls  int
	values []float64
}

func (r *recordingPlotter) Plot(ctx context.Context, g *grid.Grid, points []grid.Point, values []float64) {
	r.calls++
	r.values = values
}

func TestPipeline_FlagsInvalidCell(t *testing.T) {
	g := holeGrid(t)
	p := NewPipeline(nil, nil)

	res, err := p.Run(context.Background(), g, []grid.Point{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 0}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	hole := res.Records[0]
	assert.Equal(t, Flagged, hole.Flag)
	assert.InDelta(t, -5, hole.Raw, 1e-9)
	assert.InDelta(t, 14, hole.Value, 1e-9)
	assert.NotEqual(t, hole.Raw, hole.Value)

	clean := res.Records[1]
	assert.Equal(t, Valid, clean.Flag)
	assert.InDelta(t, 16, clean.Raw, 1e-9)
	assert.InDelta(t, 16, clean.Value, 1e-9)
	assert.True(t, res.Warnings.Empty())
}

func TestPipeline_DoesNotMutateGrid(t *testing.T) {
	g := holeGrid(t)
	before := g.Flatten()

	_, err := NewPipeline(nil, nil).Run(context.Background(), g, []grid.Point{{Lon: 1, Lat: 1}}, nil)
	require.NoError(t, err)

	assert.Equal(t, before, g.Flatten())
}

func TestPipeline_DropsOutOfBoundsPoints(t *testing.T) {
	g := holeGrid(t)
	points := []grid.Point{{Lon: 0.5, Lat: 1.5}, {Lon: 5, Lat: 1}, {Lon: 2, Lat: 2}}

	res, err := NewPipeline(nil, nil).Run(context.Background(), g, points, nil)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 0.5, res.Records[0].Lon)
	assert.Equal(t, 2.0, res.Records[1].Lon)
	assert.Equal(t, []bounds.Dropped{{Index: 1, Point: grid.Point{Lon: 5, Lat: 1}}}, res.Warnings.OutOfBounds)
}

func TestPipeline_NaNFieldIsFlaggedAndFilled(t *testing.T) {
	g, err := grid.FromRows([]float64{0, 1}, []float64{0, 1}, [][]float64{
		{math.NaN(), 4},
		{6, 8},
	})
	require.NoError(t, err)

	res, err := NewPipeline(nil, nil).Run(context.Background(), g, []grid.Point{{Lon: 0, Lat: 0}}, nil)
	require.NoError(t, err)

	rec := res.Records[0]
	assert.Equal(t, Flagged, rec.Flag)
	assert.True(t, math.IsNaN(rec.Raw))
	assert.InDelta(t, 4, rec.Value, 1e-12)
}

func TestAssemble_RecordsNaNWarnings(t *testing.T) {
	kept := []grid.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}
	raw := []float64{3, math.NaN(), -1}
	values := []float64{3, math.NaN(), math.NaN()}

	res := assemble(context.Background(), nil, kept, nil, raw, values)

	require.Len(t, res.Records, 3)
	assert.Equal(t, []int{1, 2}, res.Warnings.NaN)
	assert.False(t, res.Warnings.Empty())
	assert.Equal(t, Valid, res.Records[0].Flag)
	assert.Equal(t, Flagged, res.Records[1].Flag)
	assert.Equal(t, Flagged, res.Records[2].Flag)
}

func TestPipeline_AllInvalidField(t *testing.T) {
	g, err := grid.New([]float64{0, 1}, []float64{0, 1}, []float64{-1, -1, math.NaN(), -3})
	require.NoError(t, err)

	_, err = NewPipeline(nil, nil).Run(context.Background(), g, []grid.Point{{Lon: 0.5, Lat: 0.5}}, nil)

	var target *gapfill.InsufficientDataError
	assert.True(t, errors.As(err, &target), "got %v", err)
}

func TestPipeline_DegenerateGrid(t *testing.T) {
	g, err := grid.New([]float64{0}, []float64{0, 1}, []float64{1, 2})
	require.NoError(t, err)

	_, err = NewPipeline(nil, nil).Run(context.Background(), g, nil, nil)
	assert.ErrorIs(t, err, interpolate.ErrDegenerateGrid)
}

func TestPipeline_CallsPlotter(t *testing.T) {
	plotter := &recordingPlotter{}
	p := NewPipeline(interpolate.NewCache(), plotter)

	_, err := p.Run(context.Background(), holeGrid(t), []grid.Point{{Lon: 1, Lat: 1}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, plotter.calls)
	assert.InDeltaSlice(t, []float64{14}, plotter.values, 1e-9)
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(nil, nil).Run(ctx, holeGrid(t), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescribe(t *testing.T) {
	s := describe([]float64{1, math.NaN(), 3})
	assert.Equal(t, Stats{N: 2, Min: 1, Max: 3, Mean: 2, Std: 1}, s)
	assert.Equal(t, Stats{}, describe([]float64{math.NaN()}))
}

func TestRecord_MarshalJSON(t *testing.T) {
	b, err := Record{Lon: 1, Lat: 2, Raw: math.NaN(), Value: 3, Flag: Flagged}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"lon":1,"lat":2,"raw":null,"value":3,"flag":1}`, string(b))
}
