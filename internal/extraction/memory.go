package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

// MemoryGridSource serves grids held in memory. Undated requests get Undated.
type MemoryGridSource struct {
	Dataset string
	Undated *grid.Grid
	ByDate  map[time.Time]*grid.Grid
}

func (m *MemoryGridSource) Grid(ctx context.Context, date *time.Time) (*grid.Grid, error) {
	if date == nil {
		if m.Undated == nil {
			return nil, &grid.DateNotFoundError{Dataset: m.Dataset}
		}
		return m.Undated, nil
	}
	g, ok := m.ByDate[model.Day(*date)]
	if !ok {
		return nil, &grid.DateNotFoundError{Dataset: m.Dataset, Date: *date}
	}
	return g, nil
}

// TimedPoint is a track point with its observation time.
type TimedPoint struct {
	grid.Point
	Time time.Time
}

// MemoryTrackSource serves a track held in memory.
type MemoryTrackSource struct {
	Track []TimedPoint
}

func (m *MemoryTrackSource) Points(ctx context.Context, date *time.Time) ([]grid.Point, error) {
	points := make([]grid.Point, 0, len(m.Track))
	for _, tp := range m.Track {
		if date != nil && !model.Day(tp.Time).Equal(model.Day(*date)) {
			continue
		}
		points = append(points, tp.Point)
	}
	return points, nil
}

func (m *MemoryTrackSource) Times(ctx context.Context) ([]time.Time, error) {
	times := make([]time.Time, len(m.Track))
	for i, tp := range m.Track {
		times[i] = tp.Time
	}
	return times, nil
}

// MemorySink keeps written results keyed by date label.
type MemorySink struct {
	mu      sync.Mutex
	Order   []string
	Records map[string][]Record
}

func (m *MemorySink) Write(ctx context.Context, date *time.Time, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Records == nil {
		m.Records = make(map[string][]Record)
	}
	label := DateLabel(date)
	m.Order = append(m.Order, label)
	m.Records[label] = records
	return nil
}
