// Package interpolate evaluates a gridded field at scattered points by linear
// barycentric interpolation over the Delaunay triangulation of the grid nodes.
package interpolate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	vec2d "github.com/flywave/go3d/float64/vec2"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
)

// ErrDegenerateGrid is returned for meshes that cannot be triangulated.
var ErrDegenerateGrid = errors.New("interpolate: grid needs at least 2 distinct nodes per axis")

// weightEpsilon absorbs rounding when a query point sits on a triangle edge.
// Weights at or below it are treated as zero.
const weightEpsilon = 1e-12

// Triangle holds three node indices into the flattened field.
type Triangle [3]int

// Mesh is the triangulated node set of a rectilinear grid. Node k = i*Ny + j
// sits at (Lon[i], Lat[j]), matching grid.Flatten.
//
// The four nodes of a rectilinear cell are co-circular and no other node lies
// inside that circle, so splitting every cell along its south-west to
// north-east diagonal yields a Delaunay triangulation.
type Mesh struct {
	nx, ny    int
	lon, lat  []float64 // ascending
	lonOrder  []int     // lonOrder[a] is the original index of lon[a]
	latOrder  []int
	nodes     []vec2d.T
	triangles []Triangle
	bounds    vec2d.Rect
}

// NewMesh triangulates the node set of g. The field of g is not read.
func NewMesh(g *grid.Grid) (*Mesh, error) {
	lon, lonOrder, err := sortAxis(g.Lon)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	lat, latOrder, err := sortAxis(g.Lat)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}

	m := &Mesh{
		nx:       len(lon),
		ny:       len(lat),
		lon:      lon,
		lat:      lat,
		lonOrder: lonOrder,
		latOrder: latOrder,
		nodes:    make([]vec2d.T, len(lon)*len(lat)),
		bounds:   vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal},
	}
	for i, x := range g.Lon {
		for j, y := range g.Lat {
			m.nodes[i*m.ny+j] = vec2d.T{x, y}
			m.bounds.Extend(&m.nodes[i*m.ny+j])
		}
	}

	m.triangles = make([]Triangle, 0, 2*(m.nx-1)*(m.ny-1))
	for a := 0; a < m.nx-1; a++ {
		for b := 0; b < m.ny-1; b++ {
			sw, se, nw, ne := m.node(a, b), m.node(a+1, b), m.node(a, b+1), m.node(a+1, b+1)
			m.triangles = append(m.triangles, Triangle{sw, se, ne}, Triangle{sw, ne, nw})
		}
	}
	return m, nil
}

// Len returns the number of mesh nodes.
func (m *Mesh) Len() int {
	return len(m.nodes)
}

// Triangles returns the triangulation. Callers must not modify it.
func (m *Mesh) Triangles() []Triangle {
	return m.triangles
}

// Hull returns the convex hull of the mesh as a counter-clockwise ring.
func (m *Mesh) Hull() []vec2d.T {
	return []vec2d.T{
		{m.bounds.Min[0], m.bounds.Min[1]},
		{m.bounds.Max[0], m.bounds.Min[1]},
		{m.bounds.Max[0], m.bounds.Max[1]},
		{m.bounds.Min[0], m.bounds.Max[1]},
	}
}

// Interpolate evaluates values (lon-major, one per node) at every point.
// Points outside the convex hull get NaN. A NaN node contributes only when its
// barycentric weight is non-zero.
func (m *Mesh) Interpolate(values []float64, points []grid.Point) ([]float64, error) {
	if len(values) != len(m.nodes) {
		return nil, fmt.Errorf("interpolate: %d values for %d mesh nodes", len(values), len(m.nodes))
	}

	out := make([]float64, len(points))
	for k, p := range points {
		tri, w, ok := m.locate(vec2d.T{p.Lon, p.Lat})
		if !ok {
			out[k] = math.NaN()
			continue
		}
		var v float64
		for n := range tri {
			if w[n] == 0 {
				continue
			}
			v += w[n] * values[tri[n]]
		}
		out[k] = v
	}
	return out, nil
}

// locate finds the triangle containing p and the barycentric weights of p in it.
func (m *Mesh) locate(p vec2d.T) (Triangle, [3]float64, bool) {
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) ||
		p[0] < m.bounds.Min[0] || p[0] > m.bounds.Max[0] ||
		p[1] < m.bounds.Min[1] || p[1] > m.bounds.Max[1] {
		return Triangle{}, [3]float64{}, false
	}

	a := cell(m.lon, p[0])
	b := cell(m.lat, p[1])
	lower := m.triangles[2*(a*(m.ny-1)+b)]
	upper := m.triangles[2*(a*(m.ny-1)+b)+1]

	sw, ne := m.nodes[lower[0]], m.nodes[lower[2]]
	tri := upper
	if cross(vec2d.Sub(&ne, &sw), vec2d.Sub(&p, &sw)) <= 0 {
		tri = lower
	}

	w, ok := barycentric(m.nodes[tri[0]], m.nodes[tri[1]], m.nodes[tri[2]], p)
	return tri, w, ok
}

func (m *Mesh) node(a, b int) int {
	return m.lonOrder[a]*m.ny + m.latOrder[b]
}

// cell returns the index of the axis interval holding x, for x within the axis.
func cell(axis []float64, x float64) int {
	a := sort.SearchFloat64s(axis, x) - 1
	if a < 0 {
		a = 0
	}
	if a > len(axis)-2 {
		a = len(axis) - 2
	}
	return a
}

// barycentric returns the weights of p in triangle abc. The caller has already
// located p in the triangle, so rounding noise on a shared edge is clamped to
// zero and the weights renormalised.
func barycentric(a, b, c, p vec2d.T) ([3]float64, bool) {
	v0 := vec2d.Sub(&b, &a)
	v1 := vec2d.Sub(&c, &a)
	v2 := vec2d.Sub(&p, &a)

	d00 := vec2d.Dot(&v0, &v0)
	d01 := vec2d.Dot(&v0, &v1)
	d11 := vec2d.Dot(&v1, &v1)
	d20 := vec2d.Dot(&v2, &v0)
	d21 := vec2d.Dot(&v2, &v1)

	denom := d00*d11 - d01*d01
	if denom == 0 {
		return [3]float64{}, false
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w

	weights := [3]float64{u, v, w}
	var sum float64
	for n, x := range weights {
		if x <= weightEpsilon {
			weights[n] = 0
		}
		sum += weights[n]
	}
	if sum == 0 {
		return [3]float64{}, false
	}
	for n := range weights {
		weights[n] /= sum
	}
	return weights, true
}

func cross(lhs, rhs vec2d.T) float64 {
	return lhs[0]*rhs[1] - lhs[1]*rhs[0]
}

func sortAxis(axis []float64) ([]float64, []int, error) {
	if len(axis) < 2 {
		return nil, nil, ErrDegenerateGrid
	}
	order := make([]int, len(axis))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return axis[order[x]] < axis[order[y]] })

	sorted := make([]float64, len(axis))
	for a, i := range order {
		if math.IsNaN(axis[i]) || math.IsInf(axis[i], 0) {
			return nil, nil, fmt.Errorf("interpolate: non-finite coordinate at index %d", i)
		}
		sorted[a] = axis[i]
		if a > 0 && sorted[a] == sorted[a-1] {
			return nil, nil, ErrDegenerateGrid
		}
	}
	return sorted, order, nil
}
