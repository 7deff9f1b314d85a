// Package clickhouse reads gridded fields from the grid_data table.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

type Client struct {
	conn driver.Conn
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Logger: logger,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Cell is one stored grid value.
type Cell struct {
	Lat   float32
	Lon   float32
	Value float32
}

// Grid loads the field of variable at the latest timestamp of date, or at the
// latest stored timestamp when date is nil.
func (c *Client) Grid(ctx context.Context, variable string, date *time.Time) (*grid.Grid, error) {
	var (
		cells []Cell
		err   error
	)
	if date == nil {
		cells, err = c.cells(ctx, `
			SELECT lat, lon, value
			FROM grid_data FINAL
			WHERE variable = @variable
			  AND timestamp = (
				SELECT max(timestamp) FROM grid_data FINAL
				WHERE variable = @variable
			  )
			`,
			clickhouse.Named("variable", variable),
		)
	} else {
		start := model.Day(*date)
		cells, err = c.cells(ctx, `
			SELECT lat, lon, value
			FROM grid_data FINAL
			WHERE variable = @variable
			  AND timestamp = (
				SELECT max(timestamp) FROM grid_data FINAL
				WHERE variable = @variable AND timestamp >= @start AND timestamp < @end
			  )
			`,
			clickhouse.Named("variable", variable),
			clickhouse.Named("start", start),
			clickhouse.Named("end", start.AddDate(0, 0, 1)),
		)
	}
	if err != nil {
		return nil, err
	}

	if len(cells) == 0 {
		notFound := &grid.DateNotFoundError{Dataset: variable}
		if date != nil {
			notFound.Date = *date
		}
		return nil, notFound
	}

	return Assemble(cells)
}

func (c *Client) cells(ctx context.Context, query string, args ...any) ([]Cell, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query grid: %w", model.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var cells []Cell
	for rows.Next() {
		var cell Cell
		if err := rows.Scan(&cell.Lat, &cell.Lon, &cell.Value); err != nil {
			return nil, fmt.Errorf("scan grid cell: %w", err)
		}
		cells = append(cells, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: grid rows: %w", model.ErrSourceUnavailable, err)
	}
	return cells, nil
}

// Dates returns the days for which variable has stored fields.
func (c *Client) Dates(ctx context.Context, variable string) ([]time.Time, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT DISTINCT timestamp
		FROM grid_data FINAL
		WHERE variable = @variable
		`,
		clickhouse.Named("variable", variable),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query grid dates: %w", model.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan grid date: %w", err)
		}
		times = append(times, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: grid date rows: %w", model.ErrSourceUnavailable, err)
	}
	return model.DateSet(times), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Assemble rebuilds a rectilinear grid from stored cells. The axes are the
// sorted distinct coordinates and cells with no stored value are NaN.
func Assemble(cells []Cell) (*grid.Grid, error) {
	lon := make([]float64, 0, len(cells))
	lat := make([]float64, 0, len(cells))
	for _, cell := range cells {
		lon = append(lon, float64(cell.Lon))
		lat = append(lat, float64(cell.Lat))
	}
	slices.Sort(lon)
	slices.Sort(lat)
	lon = slices.Compact(lon)
	lat = slices.Compact(lat)

	values := make([]float64, len(lon)*len(lat))
	for k := range values {
		values[k] = math.NaN()
	}
	for _, cell := range cells {
		i, _ := slices.BinarySearch(lon, float64(cell.Lon))
		j, _ := slices.BinarySearch(lat, float64(cell.Lat))
		values[i*len(lat)+j] = float64(cell.Value)
	}

	g, err := grid.New(lon, lat, values)
	if err != nil {
		return nil, fmt.Errorf("assemble grid: %w", err)
	}
	return g, nil
}

// GridSource binds a Client to one variable.
type GridSource struct {
	client   *Client
	variable string
}

func (c *Client) Source(variable string) *GridSource {
	return &GridSource{client: c, variable: variable}
}

func (s *GridSource) Grid(ctx context.Context, date *time.Time) (*grid.Grid, error) {
	return s.client.Grid(ctx, s.variable, date)
}

func (s *GridSource) Dates(ctx context.Context) ([]time.Time, error) {
	return s.client.Dates(ctx, s.variable)
}
