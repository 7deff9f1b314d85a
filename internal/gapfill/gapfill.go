// Package gapfill repairs invalid entries of a flattened field by linear
// interpolation against index.
package gapfill

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// InsufficientDataError is returned when a sequence has no valid entry to
// interpolate from, including when it is empty.
type InsufficientDataError struct {
	Len int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("gapfill: no valid values among %d entries", e.Len)
}

// Fill returns a copy of values with every NaN replaced by the linear
// interpolation of its nearest valid neighbours. Leading and trailing NaNs take
// the value of the nearest valid entry. The input is not modified.
func Fill(values []float64) ([]float64, error) {
	return fill(values, func(v float64) bool { return math.IsNaN(v) })
}

// FillBelow is Fill with every entry below threshold also treated as invalid.
func FillBelow(values []float64, threshold float64) ([]float64, error) {
	return fill(values, func(v float64) bool { return math.IsNaN(v) || v < threshold })
}

func fill(values []float64, invalid func(float64) bool) ([]float64, error) {
	if len(values) == 0 {
		return nil, &InsufficientDataError{}
	}
	out := make([]float64, len(values))
	copy(out, values)

	var xs, ys []float64
	var gaps []int
	for i, v := range values {
		if invalid(v) {
			gaps = append(gaps, i)
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}
	if len(gaps) == 0 {
		return out, nil
	}
	if len(xs) == 0 {
		return nil, &InsufficientDataError{Len: len(values)}
	}

	// PiecewiseLinear needs two nodes; a single anchor clamps everywhere.
	if len(xs) == 1 {
		for _, i := range gaps {
			out[i] = ys[0]
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("gapfill: fit: %w", err)
	}
	for _, i := range gaps {
		out[i] = pl.Predict(float64(i))
	}
	return out, nil
}
