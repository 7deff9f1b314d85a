package track

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

const seaIceTrack = `Latitude[deg+veN],Longitude[deg+veE],yyyy-mm-ddThh24:mi[GMT/UT],Depth
-60.5,-45.25,2016-01-02T23:50,10
-60.6,-45.30,2016-01-03T00:10,12
-60.7,-45.35,2016-01-02T08:00,11
`

func TestReadCSV_Dated(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(seaIceTrack), model.DefaultProfiles()[model.SeaIce])
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if src.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", src.Len())
	}

	times, err := src.Times(context.Background())
	if err != nil {
		t.Fatalf("Times() error = %v", err)
	}
	days := model.DateSet(times)
	if len(days) != 2 || !days[0].Equal(time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateSet(times) = %v", days)
	}

	points, err := src.Points(context.Background(), &days[0])
	if err != nil {
		t.Fatalf("Points() error = %v", err)
	}
	want := []grid.Point{{Lon: -45.25, Lat: -60.5}, {Lon: -45.35, Lat: -60.7}}
	if len(points) != len(want) || points[0] != want[0] || points[1] != want[1] {
		t.Errorf("Points(2016-01-02) = %v, want %v", points, want)
	}

	all, _ := src.Points(context.Background(), nil)
	if len(all) != 3 {
		t.Errorf("Points(nil) = %v", all)
	}
}

func TestReadCSV_LooseHeaderMatch(t *testing.T) {
	data := "Timestamp,seatex-gga-lat (degrees),seatex-gga-lon (degrees)\n" +
		"02/01/2016 13:45:00,-61,-44\n"

	src, err := ReadCSV(strings.NewReader(data), model.DefaultProfiles()[model.SeaIceFull])
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	points, _ := src.Points(context.Background(), nil)
	if points[0] != (grid.Point{Lon: -44, Lat: -61}) {
		t.Errorf("Points() = %v", points)
	}
}

func TestReadCSV_Undated(t *testing.T) {
	src, err := ReadCSV(strings.NewReader("LAT,LONG\n1,2\n3,4\n"), model.DefaultProfiles()[model.Chlorophyll])
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if _, err := src.Times(context.Background()); !errors.Is(err, ErrNoTimeColumn) {
		t.Errorf("Times() error = %v, want ErrNoTimeColumn", err)
	}
	day := time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC)
	if _, err := src.Points(context.Background(), &day); !errors.Is(err, ErrNoTimeColumn) {
		t.Errorf("Points(date) error = %v, want ErrNoTimeColumn", err)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	chl := model.DefaultProfiles()[model.Chlorophyll]
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "empty track file"},
		{"missing column", "LAT,LON\n1,2\n", `column "LONG" not in header`},
		{"bad latitude", "LAT,LONG\nx,2\n", "line 2: latitude"},
		{"short row", "LAT,LONG\n1\n", "line 2: longitude: missing field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), chl)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ReadCSV() error = %v, want containing %q", err, tt.want)
			}
		})
	}

	var parseErr *ParseError
	_, err := ReadCSV(strings.NewReader("LAT,LONG\n1,2\n3,y\n"), chl)
	if !errors.As(err, &parseErr) || parseErr.Line != 3 || parseErr.Field != "longitude" {
		t.Errorf("expected ParseError at line 3, got %v", err)
	}

	var colErr *ColumnNotFoundError
	_, err = ReadCSV(strings.NewReader("A,B\n"), chl)
	if !errors.As(err, &colErr) {
		t.Errorf("expected ColumnNotFoundError, got %v", err)
	}
}

func TestOpenCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.csv")
	if err := os.WriteFile(path, []byte("LAT,LONG\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenCSV(path, model.DefaultProfiles()[model.Chlorophyll])
	if err != nil {
		t.Fatalf("OpenCSV() error = %v", err)
	}
	if src.Len() != 1 {
		t.Errorf("Len() = %d, want 1", src.Len())
	}

	if _, err := OpenCSV(filepath.Join(t.TempDir(), "missing.csv"), model.Profile{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2016-01-02T13:45", time.Date(2016, 1, 2, 13, 45, 0, 0, time.UTC)},
		{"2016-01-02T13:45:00Z", time.Date(2016, 1, 2, 13, 45, 0, 0, time.UTC)},
		{"2016-01-02 13:45:00", time.Date(2016, 1, 2, 13, 45, 0, 0, time.UTC)},
		{"02/01/2016 13:45:00", time.Date(2016, 2, 1, 13, 45, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			if err != nil {
				t.Fatalf("parseTime(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := parseTime("not a time"); err == nil {
		t.Error("expected error for unparsable time")
	}
}
