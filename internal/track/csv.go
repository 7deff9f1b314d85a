// Package track reads cruise tracks: ordered lon/lat positions with optional
// observation times.
package track

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

// ErrNoTimeColumn is returned when dates are requested from an undated track.
var ErrNoTimeColumn = errors.New("track has no time column")

var errMissingField = errors.New("missing field")

// ColumnNotFoundError reports a profile column missing from a CSV header.
type ColumnNotFoundError struct {
	Column string
	Header []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not in header %q", e.Column, e.Header)
}

// ParseError reports an unreadable track row. Line is 1-based and counts the
// header.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CSVSource is a track loaded from a CSV file with a header row.
type CSVSource struct {
	points []grid.Point
	times  []time.Time
}

// OpenCSV reads the track at path using the profile's track columns.
func OpenCSV(path string, profile model.Profile) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open track: %w", err)
	}
	defer f.Close()

	src, err := ReadCSV(f, profile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// ReadCSV parses a whole track. Times are read only when the profile names a
// time column.
func ReadCSV(r io.Reader, profile model.Profile) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty track file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	lonIdx, err := column(header, profile.TrackLon)
	if err != nil {
		return nil, err
	}
	latIdx, err := column(header, profile.TrackLat)
	if err != nil {
		return nil, err
	}
	timeIdx := -1
	if profile.TrackTime != "" {
		if timeIdx, err = column(header, profile.TrackTime); err != nil {
			return nil, err
		}
	}

	src := &CSVSource{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}

		var p grid.Point
		if p.Lon, err = parseFloat(record, lonIdx); err != nil {
			return nil, &ParseError{Line: line, Field: "longitude", Err: err}
		}
		if p.Lat, err = parseFloat(record, latIdx); err != nil {
			return nil, &ParseError{Line: line, Field: "latitude", Err: err}
		}
		src.points = append(src.points, p)

		if timeIdx >= 0 {
			if timeIdx >= len(record) {
				return nil, &ParseError{Line: line, Field: "time", Err: errMissingField}
			}
			ts, err := parseTime(strings.TrimSpace(record[timeIdx]))
			if err != nil {
				return nil, &ParseError{Line: line, Field: "time", Err: err}
			}
			src.times = append(src.times, ts)
		}
	}
	if timeIdx < 0 {
		src.times = nil
	}
	return src, nil
}

// Len returns the number of track points.
func (s *CSVSource) Len() int {
	return len(s.points)
}

// Points returns the track points observed on date, or all points for nil.
func (s *CSVSource) Points(ctx context.Context, date *time.Time) ([]grid.Point, error) {
	if date == nil {
		return append([]grid.Point(nil), s.points...), nil
	}
	if s.times == nil {
		return nil, ErrNoTimeColumn
	}
	day := model.Day(*date)
	var points []grid.Point
	for i, t := range s.times {
		if model.Day(t).Equal(day) {
			points = append(points, s.points[i])
		}
	}
	return points, nil
}

// Times returns the observation time of every point.
func (s *CSVSource) Times(ctx context.Context) ([]time.Time, error) {
	if s.times == nil {
		return nil, ErrNoTimeColumn
	}
	return append([]time.Time(nil), s.times...), nil
}

// column finds name in header, first exactly, then ignoring case and
// surrounding spaces.
func column(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return -1, &ColumnNotFoundError{Column: name, Header: header}
}

// trackLayouts are tried before falling back to format detection. Times
// without a zone are UTC.
var trackLayouts = []string{"2006-01-02T15:04", time.RFC3339}

func parseTime(s string) (time.Time, error) {
	for _, layout := range trackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseIn(s, time.UTC)
}

func parseFloat(record []string, idx int) (float64, error) {
	if idx >= len(record) {
		return 0, errMissingField
	}
	return strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
}
