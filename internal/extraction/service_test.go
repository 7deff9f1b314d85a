package extraction

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
)

func day(d int) time.Time {
	return time.Date(2016, 1, d, 0, 0, 0, 0, time.UTC)
}

// constGrid is a 2x2 grid over [0,10]x[0,10] holding v everywhere.
func constGrid(t *testing.T, v float64) *grid.Grid {
	t.Helper()
	g, err := grid.New([]float64{0, 10}, []float64{0, 10}, []float64{v, v, v, v})
	if err != nil {
		t.Fatalf("grid.New() error = %v", err)
	}
	return g
}

func track() *MemoryTrackSource {
	return &MemoryTrackSource{Track: []TimedPoint{
		{Point: grid.Point{Lon: 1, Lat: 1}, Time: day(3).Add(2 * time.Hour)},
		{Point: grid.Point{Lon: 2, Lat: 2}, Time: day(1).Add(20 * time.Hour)},
		{Point: grid.Point{Lon: 3, Lat: 3}, Time: day(2).Add(time.Minute)},
		{Point: grid.Point{Lon: 4, Lat: 4}, Time: day(1).Add(21 * time.Hour)},
	}}
}

// slowGridSource delays early dates so that later dates finish first.
type slowGridSource struct {
	MemoryGridSource
}

func (s *slowGridSource) Grid(ctx context.Context, date *time.Time) (*grid.Grid, error) {
	if date != nil {
		time.Sleep(time.Duration(4-date.Day()) * 10 * time.Millisecond)
	}
	return s.MemoryGridSource.Grid(ctx, date)
}

type failingSink struct {
	err error
}

func (f failingSink) Write(ctx context.Context, date *time.Time, records []Record) error {
	return f.err
}

func TestService_Extract_MultiDateOrdered(t *testing.T) {
	grids := &slowGridSource{MemoryGridSource{Dataset: "sst", ByDate: map[time.Time]*grid.Grid{
		day(1): constGrid(t, 1),
		day(2): constGrid(t, 2),
		day(3): constGrid(t, 3),
	}}}
	sink := &MemorySink{}
	svc := NewService(grids, track(), sink, nil)

	summary, err := svc.Extract(context.Background(), Request{MultiDate: true, Workers: 3})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []string{"2016-01-01", "2016-01-02", "2016-01-03"}
	if strings.Join(sink.Order, ",") != strings.Join(want, ",") {
		t.Fatalf("sink order = %v, want %v", sink.Order, want)
	}
	if len(summary.Results) != 3 || len(summary.Failures) != 0 {
		t.Fatalf("unexpected summary: %d results, %d failures", len(summary.Results), len(summary.Failures))
	}

	first := sink.Records["2016-01-01"]
	if len(first) != 2 || first[0].Lon != 2 || first[1].Lon != 4 {
		t.Errorf("day 1 records = %+v", first)
	}
	if math.Abs(first[0].Value-1) > 1e-12 || first[0].Date == nil || !first[0].Date.Equal(day(1)) {
		t.Errorf("day 1 record = %+v", first[0])
	}
	if v := sink.Records["2016-01-03"][0].Value; math.Abs(v-3) > 1e-12 {
		t.Errorf("day 3 value = %v, want 3", v)
	}
}

func TestService_Extract_MissingDateAborts(t *testing.T) {
	grids := &slowGridSource{MemoryGridSource{Dataset: "sea-ice", ByDate: map[time.Time]*grid.Grid{
		day(1): constGrid(t, 1),
		day(3): constGrid(t, 3),
	}}}
	sink := &MemorySink{}
	svc := NewService(grids, track(), sink, nil)

	summary, err := svc.Extract(context.Background(), Request{MultiDate: true, Workers: 3})
	if err == nil {
		t.Fatal("expected error for missing date")
	}

	var notFound *grid.DateNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected DateNotFoundError, got %v", err)
	}
	if !notFound.Date.Equal(day(2)) {
		t.Errorf("missing date = %v, want %v", notFound.Date, day(2))
	}
	var dateErr *DateError
	if !errors.As(err, &dateErr) || !dateErr.Date.Equal(day(2)) {
		t.Errorf("expected DateError for 2016-01-02, got %v", err)
	}

	if strings.Join(sink.Order, ",") != "2016-01-01" {
		t.Errorf("sink wrote %v, want only 2016-01-01", sink.Order)
	}
	if len(summary.Results) != 1 || len(summary.Failures) != 1 {
		t.Errorf("unexpected summary: %d results, %d failures", len(summary.Results), len(summary.Failures))
	}
}

func TestService_Extract_MissingDateSkipped(t *testing.T) {
	grids := &MemoryGridSource{Dataset: "sea-ice", ByDate: map[time.Time]*grid.Grid{
		day(1): constGrid(t, 1),
		day(3): constGrid(t, 3),
	}}
	sink := &MemorySink{}
	svc := NewService(grids, track(), sink, nil)

	summary, err := svc.Extract(context.Background(), Request{MultiDate: true, Workers: 2, OnError: SkipAndContinue})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if strings.Join(sink.Order, ",") != "2016-01-01,2016-01-03" {
		t.Errorf("sink wrote %v", sink.Order)
	}
	if len(summary.Failures) != 1 || !summary.Failures[0].Date.Equal(day(2)) {
		t.Errorf("failures = %v", summary.Failures)
	}
}

func TestService_Extract_Undated(t *testing.T) {
	grids := &MemoryGridSource{Dataset: "chlorophyll", Undated: constGrid(t, 7)}
	sink := &MemorySink{}
	svc := NewService(grids, track(), sink, nil)

	summary, err := svc.Extract(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Date != nil {
		t.Fatalf("unexpected results: %+v", summary.Results)
	}
	if got := len(sink.Records["undated"]); got != 4 {
		t.Errorf("undated records = %d, want 4", got)
	}
}

func TestMemoryGridSource_NoUndatedField(t *testing.T) {
	grids := &MemoryGridSource{Dataset: "chlorophyll"}

	_, err := grids.Grid(context.Background(), nil)
	var notFound *grid.DateNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected DateNotFoundError, got %v", err)
	}
	if strings.Contains(err.Error(), "0001-01-01") {
		t.Errorf("undated error mentions a zero date: %q", err.Error())
	}
}

func TestService_Extract_SinkError(t *testing.T) {
	grids := &MemoryGridSource{Dataset: "chlorophyll", Undated: constGrid(t, 7)}
	svc := NewService(grids, track(), failingSink{err: errors.New("disk full")}, nil)

	_, err := svc.Extract(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error, got %v", err)
	}
	if !errors.Is(err, ErrWrite) {
		t.Errorf("expected ErrWrite, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "undated: write results") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", AbortAll, false},
		{"abort", AbortAll, false},
		{"skip", SkipAndContinue, false},
		{"retry", AbortAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
