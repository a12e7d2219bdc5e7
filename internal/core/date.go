package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	// DayLayout is the calendar-day form used for display.
	DayLayout = "2006-01-02"
	// InstantLayout is the ISO-8601 instant form, always in UTC.
	InstantLayout = "2006-01-02T15:04:05.000Z"
)

// Supported instant range.
var (
	MinInstant = time.Unix(0, math.MinInt64).UTC()
	MaxInstant = time.Unix(0, math.MaxInt64).UTC()
)

// isoLayouts are tried in order when normalizing strings.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	DayLayout,
}

// Date is the canonical date representation used after normalization.
type Date struct {
	time.Time
}

// NewDate creates a new Date at midnight UTC of year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Normalize converts any supported date representation into a Date.
//
// Accepted kinds are time.Time, *time.Time, Date, *Date,
// *timestamppb.Timestamp and ISO-8601 strings. Native values keep their
// location; timestamps use their own UTC conversion; date-only strings are
// read as midnight UTC. Every other kind, nil and zero values, and instants
// outside [MinInstant, MaxInstant] fail with ErrInvalidDateKind. Normalize
// is idempotent.
func Normalize(v any) (Date, error) {
	switch d := v.(type) {
	case Date:
		return storable(d.Time)
	case *Date:
		if d == nil {
			return Date{}, fmt.Errorf("%w: nil *core.Date", ErrInvalidDateKind)
		}
		return storable(d.Time)
	case time.Time:
		return storable(d)
	case *time.Time:
		if d == nil {
			return Date{}, fmt.Errorf("%w: nil *time.Time", ErrInvalidDateKind)
		}
		return storable(*d)
	case *timestamppb.Timestamp:
		if d == nil {
			return Date{}, fmt.Errorf("%w: nil timestamp", ErrInvalidDateKind)
		}
		if err := d.CheckValid(); err != nil {
			return Date{}, fmt.Errorf("%w: %w", ErrInvalidDateKind, err)
		}
		return storable(d.AsTime())
	case string:
		return parseISO(d)
	default:
		return Date{}, fmt.Errorf("%w: %T", ErrInvalidDateKind, v)
	}
}

// DisplayDate renders v as YYYY-MM-DD. Strings already in that form are
// returned as given, without a parse round trip.
func DisplayDate(v any) (string, error) {
	if s, ok := v.(string); ok && isDayString(s) {
		return s, nil
	}
	d, err := Normalize(v)
	if err != nil {
		return "", err
	}
	return d.Format(DayLayout), nil
}

// ISOInstant formats d as an ISO-8601 instant in UTC with millisecond
// precision.
func (d Date) ISOInstant() string {
	return d.UTC().Format(InstantLayout)
}

// Timestamp converts d into the store-native timestamp wrapper.
func (d Date) Timestamp() *timestamppb.Timestamp {
	return timestamppb.New(d.Time)
}

// In returns the same instant expressed in loc.
func (d Date) In(loc *time.Location) Date {
	return Date{Time: d.Time.In(loc)}
}

// Validate reports whether d holds a usable date.
func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDateKind)
	}
	return nil
}

// MarshalJSON encodes the instant with its offset preserved.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02T15:04:05.000Z07:00"))
}

// UnmarshalJSON accepts any ISO-8601 string understood by Normalize.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDateKind, string(b))
	}
	nd, err := Normalize(s)
	if err != nil {
		return err
	}
	*d = nd
	return nil
}

// storable rejects the zero time and instants that do not fit in int64
// nanoseconds since the Unix epoch, the unit records are stored in.
func storable(t time.Time) (Date, error) {
	if t.IsZero() {
		return Date{}, fmt.Errorf("%w: zero time", ErrInvalidDateKind)
	}
	if t.Before(MinInstant) || t.After(MaxInstant) {
		return Date{}, fmt.Errorf("%w: %s outside %s..%s", ErrInvalidDateKind,
			t.Format(time.RFC3339), MinInstant.Format(time.RFC3339), MaxInstant.Format(time.RFC3339))
	}
	return Date{Time: t}, nil
}

func parseISO(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty string", ErrInvalidDateKind)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return storable(t)
		}
	}
	return Date{}, fmt.Errorf("%w: %q is not ISO-8601", ErrInvalidDateKind, s)
}

// isDayString checks the YYYY-MM-DD shape without parsing.
func isDayString(s string) bool {
	if len(s) != len(DayLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch i {
		case 4, 7:
			if s[i] != '-' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}
