// Package storage persists extraction results as CSV, on disk or in MinIO.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
)

// Header is the column layout of a result file. The unnamed first column is
// the row index.
var Header = []string{"", "Flag", "Interpolated values", "Latitude", "Longitude", "Raw extracted values"}

// EncodeCSV writes records in track order. NaN values are written as empty
// cells.
func EncodeCSV(w io.Writer, records []extraction.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(int(r.Flag)),
			formatFloat(r.Value),
			formatFloat(r.Lat),
			formatFloat(r.Lon),
			formatFloat(r.Raw),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
