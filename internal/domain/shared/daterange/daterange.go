package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format for calendar dates.
const Layout = "2006-01-02"

const day = 24 * time.Hour

var (
	ErrInvalidRange = errors.New("daterange: start must not be after end")
	ErrMissingDate  = errors.New("daterange: start and end dates are required")
)

// DateRange is an inclusive span of calendar days [Start, End]. Both bounds are
// normalized to midnight UTC so comparisons never depend on a local timezone.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMissingDate
	}
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("daterange: invalid date %q: %w", raw, err)
	}
	return t, nil
}

func New(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, ErrMissingDate
	}
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (DateRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return DateRange{}, err
	}
	return New(s, e)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrMissingDate
	}
	if dr.Start.After(dr.End) {
		return ErrInvalidRange
	}
	return nil
}

// Days returns the inclusive length; a range ending the day it starts is one day long.
func (dr DateRange) Days() int {
	return int(Day(dr.End).Sub(Day(dr.Start))/day) + 1
}

// Overlaps reports whether two inclusive ranges share a calendar day. With
// allowTurnover, a range ending on the day the other starts is not a conflict
// as long as the two ranges start on different days.
func (dr DateRange) Overlaps(other DateRange, allowTurnover bool) bool {
	if dr.Start.After(other.End) || dr.End.Before(other.Start) {
		return false
	}
	if !allowTurnover {
		return true
	}
	if dr.End.Equal(other.Start) && dr.Start.Before(other.Start) {
		return false
	}
	if other.End.Equal(dr.Start) && other.Start.Before(dr.Start) {
		return false
	}
	return true
}

// ContainsDay reports whether the calendar day of t falls inside the range.
func (dr DateRange) ContainsDay(t time.Time) bool {
	d := Day(t)
	return !d.Before(dr.Start) && !d.After(dr.End)
}

// DayAfterEnd is the first calendar day not covered by the range.
func (dr DateRange) DayAfterEnd() time.Time {
	return dr.End.Add(day)
}

// AddDays shifts a calendar day by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).Add(time.Duration(n) * day)
}

func (dr DateRange) String() string {
	return dr.Start.Format(Layout) + ".." + dr.End.Format(Layout)
}
