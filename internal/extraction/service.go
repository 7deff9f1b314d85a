package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

// GridSource yields the gridded field for a day, or the undated field for nil.
type GridSource interface {
	Grid(ctx context.Context, date *time.Time) (*grid.Grid, error)
}

// TrackSource yields track points for a day, or every point for nil.
type TrackSource interface {
	Points(ctx context.Context, date *time.Time) ([]grid.Point, error)
	Times(ctx context.Context) ([]time.Time, error)
}

// ResultSink persists the records of one run.
type ResultSink interface {
	Write(ctx context.Context, date *time.Time, records []Record) error
}

// ErrWrite marks failures of the ResultSink.
var ErrWrite = errors.New("write results")

// Policy decides what a multi-date run does after a date fails.
type Policy int

const (
	// AbortAll stops the run at the first failing date.
	AbortAll Policy = iota
	// SkipAndContinue records the failure and processes the remaining dates.
	SkipAndContinue
)

// ParsePolicy maps "abort" and "skip" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return AbortAll, nil
	case "skip":
		return SkipAndContinue, nil
	default:
		return AbortAll, fmt.Errorf("unknown policy %q (want abort or skip)", s)
	}
}

func (p Policy) String() string {
	if p == SkipAndContinue {
		return "skip"
	}
	return "abort"
}

// Request configures one extraction run.
type Request struct {
	MultiDate bool
	Workers   int
	OnError   Policy
}

// Summary reports what a run wrote and what failed.
type Summary struct {
	Results  []*Result
	Failures []*DateError
}

// Service runs the pipeline for every requested date and persists the results
// in date order.
type Service struct {
	grids    GridSource
	tracks   TrackSource
	sink     ResultSink
	pipeline *Pipeline
}

func NewService(grids GridSource, tracks TrackSource, sink ResultSink, pipeline *Pipeline) *Service {
	if pipeline == nil {
		pipeline = NewPipeline(nil, nil)
	}
	return &Service{grids: grids, tracks: tracks, sink: sink, pipeline: pipeline}
}

type slot struct {
	done   chan struct{}
	result *Result
	err    error
}

// Extract processes every date of the track (or one undated run) with up to
// req.Workers dates in flight. Results reach the sink in ascending date order.
// Under AbortAll nothing is written for the failing date or any later one and
// the returned error is a *DateError.
func (s *Service) Extract(ctx context.Context, req Request) (*Summary, error) {
	dates := []*time.Time{nil}
	if req.MultiDate {
		times, err := s.tracks.Times(ctx)
		if err != nil {
			return nil, fmt.Errorf("track dates: %w", err)
		}
		days := model.DateSet(times)
		dates = make([]*time.Time, len(days))
		for i := range days {
			dates[i] = &days[i]
		}
		slog.InfoContext(ctx, "extraction dates resolved", "count", len(days))
	}

	workers := req.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]slot, len(dates))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}

	summary := &Summary{}
	var abortErr error
	written := make(chan struct{})
	go func() {
		defer close(written)
		for i, date := range dates {
			<-slots[i].done
			err := slots[i].err
			if err == nil {
				err = s.sink.Write(ctx, date, slots[i].result.Records)
				if err != nil {
					err = fmt.Errorf("%w: %w", ErrWrite, err)
				}
			}
			if err != nil {
				dateErr := &DateError{Date: date, Err: err}
				summary.Failures = append(summary.Failures, dateErr)
				if req.OnError == AbortAll {
					slog.ErrorContext(ctx, "extraction aborted", "date", DateLabel(date), "error", err)
					abortErr = dateErr
					cancel()
					return
				}
				slog.WarnContext(ctx, "date skipped", "date", DateLabel(date), "error", err)
				continue
			}
			summary.Results = append(summary.Results, slots[i].result)
			slog.InfoContext(ctx, "date extracted",
				"date", DateLabel(date),
				"records", len(slots[i].result.Records),
				"flagged", slots[i].result.Flagged(),
			)
		}
	}()

	var g errgroup.Group
	g.SetLimit(workers)
	for i, date := range dates {
		g.Go(func() error {
			defer close(slots[i].done)
			slots[i].result, slots[i].err = s.runDate(ctx, date)
			return nil
		})
	}
	_ = g.Wait()
	<-written

	return summary, abortErr
}

func (s *Service) runDate(ctx context.Context, date *time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points, err := s.tracks.Points(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("track points: %w", err)
	}
	g, err := s.grids.Grid(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	return s.pipeline.Run(ctx, g, points, date)
}
