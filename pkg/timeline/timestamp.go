package timeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// secondLayout is the fixed-width prefix of a formatted Timestamp; the
	// millisecond field is appended after a hyphen.
	secondLayout = "2006-01-02_15-04-05"

	// SecondPrefixLen is the length of the formatted string up to and
	// including the seconds field. Two timestamps in the same wall-clock
	// second share this prefix.
	SecondPrefixLen = len(secondLayout)

	// datenumEpochShift is the offset between the acquisition system's day
	// count and the proleptic Gregorian ordinal (day 1 = 0001-01-01).
	datenumEpochShift = 366

	microsPerDay = 86400 * 1e6
)

// ErrDecode is returned (wrapped in *DecodeError) when a numeric date-time
// value cannot be converted into a Timestamp.
var ErrDecode = errors.New("invalid date-time value")

// DecodeError reports the offending numeric value.
type DecodeError struct {
	Value float64
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %v: %s", e.Value, ErrDecode.Error())
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// Timestamp is an absolute point in time with millisecond resolution.
// Its String form is fixed width and sorts lexicographically in time order.
type Timestamp struct {
	t time.Time
}

var ordinalOrigin = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewTimestamp truncates t to the millisecond and converts it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Millisecond)}
}

// Decode converts a fractional day count into a Timestamp. The integer part
// selects the calendar day (ordinal day minus 366), the fractional part the
// offset into that day. Sub-millisecond precision is truncated.
func Decode(value float64) (Timestamp, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Timestamp{}, &DecodeError{Value: value}
	}
	day := math.Floor(value)
	if day < 1 || day > math.MaxInt32 {
		return Timestamp{}, &DecodeError{Value: value}
	}

	micros := math.Round((value - day) * microsPerDay)
	base := ordinalOrigin.AddDate(0, 0, int(day)-1-datenumEpochShift)
	if base.Year() < 1 {
		return Timestamp{}, &DecodeError{Value: value}
	}
	t := base.Add(time.Duration(micros) * time.Microsecond)
	return NewTimestamp(t), nil
}

// DecodeSeconds converts a count of seconds in the same epoch into a
// Timestamp, the way event-log NTP columns are stored.
func DecodeSeconds(seconds float64) (Timestamp, error) {
	return Decode(seconds / 60 / 60 / 24)
}

// ParseTimestamp parses the formatted representation. The millisecond field
// may carry between one and six digits; anything past milliseconds is dropped.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if len(s) < SecondPrefixLen+2 || s[SecondPrefixLen] != '-' {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: unexpected layout", s)
	}

	base, err := time.ParseInLocation(secondLayout, s[:SecondPrefixLen], time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}

	frac := s[SecondPrefixLen+1:]
	if len(frac) > 6 {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: fractional field too long", s)
	}
	n, err := strconv.Atoi(frac)
	if err != nil || n < 0 {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: invalid fractional field", s)
	}
	// Right-pad to microseconds, as strptime's %f does.
	for i := len(frac); i < 6; i++ {
		n *= 10
	}

	return NewTimestamp(base.Add(time.Duration(n) * time.Microsecond)), nil
}

// MustParseTimestamp is ParseTimestamp for literals in tests and defaults.
func MustParseTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// String formats the timestamp as 2024-01-09_14-03-22-501.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%s-%03d", ts.t.Format(secondLayout), ts.t.Nanosecond()/int(time.Millisecond))
}

// SecondKey returns the formatted prefix identifying the wall-clock second.
func (ts Timestamp) SecondKey() string {
	return ts.t.Format(secondLayout)
}

// Time returns the underlying time in UTC.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts is strictly later than other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports whether both timestamps denote the same millisecond.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (ts Timestamp) Compare(other Timestamp) int { return ts.t.Compare(other.t) }

// MarshalText implements encoding.TextMarshaler using the formatted string.
func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ts *Timestamp) UnmarshalText(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Duration returns the signed difference b - a.
func Duration(a, b Timestamp) time.Duration {
	return b.t.Sub(a.t)
}

// AbsDuration returns |b - a|.
func AbsDuration(a, b Timestamp) time.Duration {
	d := Duration(a, b)
	if d < 0 {
		return -d
	}
	return d
}
