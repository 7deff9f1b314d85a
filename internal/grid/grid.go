package grid

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"
)

// Point is a query location in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Envelope is the inclusive coordinate range covered by a grid.
type Envelope struct {
	Lon [2]float64
	Lat [2]float64
}

// Contains reports whether p lies inside e. Boundary values are inside.
func (e Envelope) Contains(p Point) bool {
	return p.Lon >= e.Lon[0] && p.Lon <= e.Lon[1] &&
		p.Lat >= e.Lat[0] && p.Lat <= e.Lat[1]
}

// Grid is a scalar field sampled on a rectilinear lon/lat mesh.
// Field has one row per longitude and one column per latitude.
type Grid struct {
	Lon   []float64
	Lat   []float64
	Field *mat.Dense
}

// New builds a Grid from axes and lon-major values (values[i*len(lat)+j]).
// The values slice is copied.
func New(lon, lat, values []float64) (*Grid, error) {
	if len(lon) == 0 || len(lat) == 0 {
		return nil, fmt.Errorf("grid: empty axis (lon=%d, lat=%d)", len(lon), len(lat))
	}
	if len(values) != len(lon)*len(lat) {
		return nil, fmt.Errorf("grid: field has %d values, want %d (%d lon x %d lat)",
			len(values), len(lon)*len(lat), len(lon), len(lat))
	}
	data := make([]float64, len(values))
	copy(data, values)
	return &Grid{
		Lon:   append([]float64(nil), lon...),
		Lat:   append([]float64(nil), lat...),
		Field: mat.NewDense(len(lon), len(lat), data),
	}, nil
}

// FromRows builds a Grid from a field given as rows of latitude values per longitude.
func FromRows(lon, lat []float64, rows [][]float64) (*Grid, error) {
	if len(rows) != len(lon) {
		return nil, fmt.Errorf("grid: field has %d rows, want %d", len(rows), len(lon))
	}
	values := make([]float64, 0, len(lon)*len(lat))
	for i, row := range rows {
		if len(row) != len(lat) {
			return nil, fmt.Errorf("grid: row %d has %d values, want %d", i, len(row), len(lat))
		}
		values = append(values, row...)
	}
	return New(lon, lat, values)
}

// Dims returns the number of longitude and latitude nodes.
func (g *Grid) Dims() (nx, ny int) {
	return g.Field.Dims()
}

// At returns the value at longitude index i and latitude index j.
func (g *Grid) At(i, j int) float64 {
	return g.Field.At(i, j)
}

// Flatten returns a copy of the field in lon-major order.
func (g *Grid) Flatten() []float64 {
	nx, ny := g.Dims()
	out := make([]float64, 0, nx*ny)
	for i := 0; i < nx; i++ {
		out = append(out, g.Field.RawRowView(i)...)
	}
	return out
}

// WithValues returns a grid sharing g's axes with a new field built from
// lon-major values. The values slice is copied.
func (g *Grid) WithValues(values []float64) (*Grid, error) {
	return New(g.Lon, g.Lat, values)
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	return &Grid{
		Lon:   append([]float64(nil), g.Lon...),
		Lat:   append([]float64(nil), g.Lat...),
		Field: mat.DenseCopyOf(g.Field),
	}
}

// Envelope returns the min/max of both axes.
func (g *Grid) Envelope() Envelope {
	return Envelope{Lon: minMax(g.Lon), Lat: minMax(g.Lat)}
}

// Fingerprint identifies the mesh of g. Grids with equal axes share a fingerprint
// regardless of their field values.
func (g *Grid) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(g.Lon)))
	_, _ = d.Write(buf[:])
	for _, axis := range [][]float64{g.Lon, g.Lat} {
		for _, v := range axis {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

func minMax(axis []float64) [2]float64 {
	r := [2]float64{math.Inf(1), math.Inf(-1)}
	for _, v := range axis {
		if v < r[0] {
			r[0] = v
		}
		if v > r[1] {
			r[1] = v
		}
	}
	return r
}
