package grid

import (
	"fmt"
	"time"
)

// DateNotFoundError is returned by grid sources when the requested day is not
// on the source's time axis. A zero Date means an undated field was requested
// and none exists.
type DateNotFoundError struct {
	Dataset string
	Date    time.Time
}

func (e *DateNotFoundError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("no undated field in %q", e.Dataset)
	}
	return fmt.Sprintf(
		"date %s not found in %q time axis",
		e.Date.Format(time.DateOnly),
		e.Dataset,
	)
}
