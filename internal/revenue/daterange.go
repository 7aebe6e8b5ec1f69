package revenue

import (
	"fmt"
	"time"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

var (
	// ErrInvalidRange is returned for inverted ranges and for comparison
	// windows reaching before the earliest date the store can hold.
	ErrInvalidRange = fmt.Errorf("revenue: invalid date range: %w", httpx.ErrValidation)
	// ErrUnauthorized is returned when a query carries no owner scope.
	ErrUnauthorized = fmt.Errorf("revenue: owner scope required: %w", httpx.ErrUnauthorized)
)

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a range from two calendar days, rejecting start > end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start = shared.DayOf(start, start.Location())
	end = shared.DayOf(end, end.Location())
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, shared.FormatDay(start), shared.FormatDay(end))
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses two YYYY-MM-DD strings.
func ParseDateRange(from, to string) (DateRange, error) {
	start, err := shared.ParseDay(from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: from", ErrInvalidRange)
	}
	end, err := shared.ParseDay(to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: to", ErrInvalidRange)
	}
	return NewDateRange(start, end)
}

// Days returns the number of calendar days in the range.
func (r DateRange) Days() int {
	return shared.DaysInclusive(r.Start, r.End)
}

// Previous returns the window of equal length ending the day before Start.
func (r DateRange) Previous() DateRange {
	n := r.Days()
	return DateRange{Start: shared.AddDays(r.Start, -n), End: shared.AddDays(r.Start, -1)}
}

// Contains reports whether day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

// Each calls fn for every day of the range in order.
func (r DateRange) Each(fn func(day time.Time)) {
	for d := r.Start; !d.After(r.End); d = shared.AddDays(d, 1) {
		fn(d)
	}
}

// String renders the range as start..end.
func (r DateRange) String() string {
	return shared.FormatDay(r.Start) + ".." + shared.FormatDay(r.End)
}
