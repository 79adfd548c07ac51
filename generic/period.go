package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE RANGE - Inclusive calendar bounds for a ledger query
// =============================================================================

// DateRange is an inclusive [Start, End] range of calendar dates.
// The engine assumes a validated range; call Validate at the boundary.
type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange parses two ISO dates and validates the result.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate rejects zero bounds and ranges whose end is before the start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidDateRange)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidDateRange, r.End, r.Start)
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// MONTH RANGE - Pure (year, month) -> first/last day
// =============================================================================

// MonthRange returns the first and last day of a calendar month.
// It never consults the clock; callers pass the current month explicitly.
func MonthRange(year int, month time.Month) DateRange {
	return DateRange{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// CurrentMonthRange is the boundary default: the month containing now.
func CurrentMonthRange(now time.Time) DateRange {
	return MonthRange(now.Year(), now.Month())
}

// ParseMonth parses "YYYY-MM" into its month range.
func ParseMonth(s string) (DateRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return DateRange{}, fmt.Errorf("%w: month %q (use YYYY-MM)", ErrInvalidDateRange, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: month %q (use YYYY-MM)", ErrInvalidDateRange, s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return DateRange{}, fmt.Errorf("%w: month %q (use YYYY-MM)", ErrInvalidDateRange, s)
	}
	return MonthRange(year, time.Month(month)), nil
}
