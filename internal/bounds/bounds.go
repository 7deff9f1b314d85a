// Package bounds drops query points that fall outside a grid's envelope.
package bounds

import (
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
)

// Dropped describes a point removed by Filter.
type Dropped struct {
	Index int        `json:"index"`
	Point grid.Point `json:"point"`
}

// Filter splits points into those inside env and those outside it. Kept points
// keep their relative order; Dropped.Index refers to the position in points.
func Filter(points []grid.Point, env grid.Envelope) (kept []grid.Point, dropped []Dropped) {
	kept = make([]grid.Point, 0, len(points))
	for i, p := range points {
		if !env.Contains(p) {
			dropped = append(dropped, Dropped{Index: i, Point: p})
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}
