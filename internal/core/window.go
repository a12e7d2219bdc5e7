package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	FilterAll   Filter = "all"
	FilterDay   Filter = "day"
	FilterWeek  Filter = "week"
	FilterMonth Filter = "month"
)

// Filter is the coarse time-window selector chosen by the user.
type Filter string

// Window is an inclusive date range resolved from a Filter.
type Window struct {
	Filter Filter    `json:"filter"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Valid reports whether f is one of the four known filters.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterDay, FilterWeek, FilterMonth:
		return true
	default:
		return false
	}
}

// ParseFilter converts the wire tag into a Filter.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	return f, nil
}

// ResolveWindow computes the window for f anchored on now's calendar day in
// now's location. It returns a nil window for FilterAll.
//
//   - day:   midnight today through now
//   - week:  midnight of the most recent Sunday through Saturday
//   - month: the first through the last calendar day of the month
func ResolveWindow(f Filter, now time.Time) (*Window, error) {
	y, m, d := now.Date()
	loc := now.Location()

	switch f {
	case FilterAll:
		return nil, nil
	case FilterDay:
		return &Window{
			Filter: f,
			Start:  time.Date(y, m, d, 0, 0, 0, 0, loc),
			End:    now,
		}, nil
	case FilterWeek:
		offset := int(now.Weekday())
		return &Window{
			Filter: f,
			Start:  time.Date(y, m, d-offset, 0, 0, 0, 0, loc),
			End:    time.Date(y, m, d-offset+6, 0, 0, 0, 0, loc),
		}, nil
	case FilterMonth:
		return &Window{
			Filter: f,
			Start:  time.Date(y, m, 1, 0, 0, 0, 0, loc),
			// day 0 of the next month is the last day of this one
			End: time.Date(y, m+1, 0, 0, 0, 0, 0, loc),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, f)
	}
}

// Until is the inclusive upper instant of the window. For day windows it is
// End itself; otherwise End names a calendar day and Until is its last
// nanosecond.
func (w Window) Until() time.Time {
	if w.Filter == FilterDay {
		return w.End
	}
	y, m, d := w.End.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, w.End.Location()).Add(-time.Nanosecond)
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.Until())
}
