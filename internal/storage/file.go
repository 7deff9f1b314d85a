package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
)

// FileSink writes one CSV per run date into Dir.
type FileSink struct {
	Dir string
}

// FileName returns interpolated_values.csv for undated runs and
// interpolated_valuesY_M_D.csv otherwise, e.g. interpolated_values2016_1_2.csv.
func FileName(date *time.Time) string {
	if date == nil {
		return "interpolated_values.csv"
	}
	return fmt.Sprintf("interpolated_values%d_%d_%d.csv", date.Year(), int(date.Month()), date.Day())
}

func (s *FileSink) Write(ctx context.Context, date *time.Time, records []extraction.Record) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.Dir, FileName(date))

	tmp, err := os.CreateTemp(s.Dir, ".interpolated_values-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeCSV(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}

	slog.InfoContext(ctx, "results written", "path", path, "records", len(records))
	return nil
}
