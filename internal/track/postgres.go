package track

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

// PostgresSource reads a track stored as one row per position.
type PostgresSource struct {
	db      *sql.DB
	table   string
	lonCol  string
	latCol  string
	timeCol string
}

// NewPostgresSource wires a track table using the profile's track columns.
func NewPostgresSource(db *sql.DB, table string, profile model.Profile) *PostgresSource {
	s := &PostgresSource{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		lonCol: pq.QuoteIdentifier(profile.TrackLon),
		latCol: pq.QuoteIdentifier(profile.TrackLat),
	}
	if profile.TrackTime != "" {
		s.timeCol = pq.QuoteIdentifier(profile.TrackTime)
	}
	return s
}

func (s *PostgresSource) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Points returns the positions observed on date, or all positions for nil,
// ordered by observation time when the table has one.
func (s *PostgresSource) Points(ctx context.Context, date *time.Time) ([]grid.Point, error) {
	query := s.builder().Select(s.lonCol, s.latCol).From(s.table)
	if date != nil {
		if s.timeCol == "" {
			return nil, ErrNoTimeColumn
		}
		day := model.Day(*date)
		query = query.Where(sq.And{
			sq.GtOrEq{s.timeCol: day},
			sq.Lt{s.timeCol: day.AddDate(0, 0, 1)},
		})
	}
	if s.timeCol != "" {
		query = query.OrderBy(s.timeCol)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build track query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query track: %w", model.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var points []grid.Point
	for rows.Next() {
		var lon, lat sql.NullFloat64
		if err := rows.Scan(&lon, &lat); err != nil {
			return nil, fmt.Errorf("scan track row: %w", err)
		}
		if !lon.Valid || !lat.Valid {
			return nil, fmt.Errorf("track row %d has null coordinates", len(points)+1)
		}
		points = append(points, grid.Point{Lon: lon.Float64, Lat: lat.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: track rows: %w", model.ErrSourceUnavailable, err)
	}
	return points, nil
}

// Times returns the observation time of every position.
func (s *PostgresSource) Times(ctx context.Context) ([]time.Time, error) {
	if s.timeCol == "" {
		return nil, ErrNoTimeColumn
	}
	stmt, args, err := s.builder().Select(s.timeCol).From(s.table).OrderBy(s.timeCol).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build track query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query track times: %w", model.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan track time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: track rows: %w", model.ErrSourceUnavailable, err)
	}
	return times, nil
}
