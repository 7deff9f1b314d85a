package storage

import (
	"math"
	"strings"
	"testing"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
)

func TestEncodeCSV(t *testing.T) {
	records := []extraction.Record{
		{Lon: -45.25, Lat: -60.5, Raw: 0.5, Value: 0.5, Flag: extraction.Valid},
		{Lon: -45.3, Lat: -60.6, Raw: -999, Value: 0.25, Flag: extraction.Flagged},
		{Lon: -45.35, Lat: -60.7, Raw: math.NaN(), Value: math.NaN(), Flag: extraction.Flagged},
	}

	var sb strings.Builder
	if err := EncodeCSV(&sb, records); err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}

	want := strings.Join([]string{
		",Flag,Interpolated values,Latitude,Longitude,Raw extracted values",
		"0,0,0.5,-60.5,-45.25,0.5",
		"1,1,0.25,-60.6,-45.3,-999",
		"2,1,,-60.7,-45.35,",
		"",
	}, "\n")
	if sb.String() != want {
		t.Errorf("EncodeCSV() =\n%s\nwant\n%s", sb.String(), want)
	}
}

func TestEncodeCSV_Empty(t *testing.T) {
	var sb strings.Builder
	if err := EncodeCSV(&sb, nil); err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}
	if sb.String() != ",Flag,Interpolated values,Latitude,Longitude,Raw extracted values\n" {
		t.Errorf("EncodeCSV(nil) = %q", sb.String())
	}
}
