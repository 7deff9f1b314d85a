package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/bounds"
)

// Flag classifies a record by the raw field around it.
type Flag int

const (
	// Valid means the raw field gave a usable value at the point.
	Valid Flag = 0
	// Flagged means the raw value was negative or missing and Value comes from
	// the gap-filled field.
	Flagged Flag = 1
)

// classify applies the sentinel-negative-invalid convention to a raw value.
func classify(raw float64) Flag {
	if math.IsNaN(raw) || raw < 0 {
		return Flagged
	}
	return Valid
}

// Record is the extraction at one track point.
type Record struct {
	Lon   float64
	Lat   float64
	Raw   float64 // interpolated from the untouched field
	Value float64 // interpolated from the gap-filled field
	Flag  Flag
	Date  *time.Time
}

// MarshalJSON encodes NaN values as null.
func (r Record) MarshalJSON() ([]byte, error) {
	type record struct {
		Lon   float64  `json:"lon"`
		Lat   float64  `json:"lat"`
		Raw   *float64 `json:"raw"`
		Value *float64 `json:"value"`
		Flag  Flag     `json:"flag"`
		Date  *string  `json:"date,omitempty"`
	}
	out := record{Lon: r.Lon, Lat: r.Lat, Raw: finite(r.Raw), Value: finite(r.Value), Flag: r.Flag}
	if r.Date != nil {
		d := r.Date.Format(time.DateOnly)
		out.Date = &d
	}
	return json.Marshal(out)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Warnings holds the non-fatal conditions of one run.
type Warnings struct {
	// OutOfBounds lists track points removed before interpolation.
	OutOfBounds []bounds.Dropped `json:"outOfBounds,omitempty"`
	// NaN lists record indices whose final value could not be interpolated.
	NaN []int `json:"nan,omitempty"`
}

// Empty reports whether no warning was raised.
func (w Warnings) Empty() bool {
	return len(w.OutOfBounds) == 0 && len(w.NaN) == 0
}

// Result is the outcome of one pipeline run.
type Result struct {
	Date     *time.Time `json:"-"`
	Records  []Record   `json:"records"`
	Warnings Warnings   `json:"warnings"`
}

// Flagged returns the number of flagged records.
func (r *Result) Flagged() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Flag == Flagged {
			n++
		}
	}
	return n
}

// DateError is a fatal failure while processing one date.
type DateError struct {
	Date *time.Time
	Err  error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s: %v", DateLabel(e.Date), e.Err)
}

func (e *DateError) Unwrap() error {
	return e.Err
}

// DateLabel formats a run date as YYYY-MM-DD, or "undated" for nil.
func DateLabel(date *time.Time) string {
	if date == nil {
		return "undated"
	}
	return date.Format(time.DateOnly)
}
