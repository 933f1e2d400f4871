package timeline

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"midday", 738000.5, "2020-07-28_12-00-00-000"},
		{"midnight", 739260.0, "2024-01-09_00-00-00-000"},
		{"sub-second truncated", 739260.58567, "2024-01-09_14-03-21-887"},
		{"end of day", 739260.99999999, "2024-01-09_23-59-59-999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := Decode(tt.value)
			if err != nil {
				t.Fatalf("Decode(%v) failed: %v", tt.value, err)
			}
			if ts.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, ts.String())
			}
		})
	}
}

func TestDecodeRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -5} {
		_, err := Decode(v)
		if err == nil {
			t.Errorf("Expected error for %v", v)
			continue
		}
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Expected ErrDecode for %v, got %v", v, err)
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("Expected *DecodeError for %v", v)
		}
	}
}

func TestDecodeSeconds(t *testing.T) {
	ts, err := DecodeSeconds(739260.5 * 86400)
	if err != nil {
		t.Fatalf("DecodeSeconds failed: %v", err)
	}
	if ts.String() != "2024-01-09_12-00-00-000" {
		t.Errorf("Unexpected timestamp %s", ts)
	}
}

func TestDecodeMonotonic(t *testing.T) {
	prev, err := Decode(739260.0)
	if err != nil {
		t.Fatal(err)
	}
	// Steps just above one millisecond expressed in days.
	step := 1.3 / 86400e3
	for i := 1; i < 2000; i++ {
		cur, err := Decode(739260.0 + float64(i)*step)
		if err != nil {
			t.Fatal(err)
		}
		if cur.String() < prev.String() {
			t.Fatalf("Decode not monotonic at step %d: %s < %s", i, cur, prev)
		}
		if cur.Before(prev) {
			t.Fatalf("Timestamp order disagrees with string order at step %d", i)
		}
		prev = cur
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	for _, s := range []string{
		"2024-01-09_14-03-22-501",
		"2020-07-28_00-00-00-000",
		"1999-12-31_23-59-59-999",
	} {
		ts, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) failed: %v", s, err)
		}
		if ts.String() != s {
			t.Errorf("Round trip mismatch: %q -> %q", s, ts.String())
		}
	}
}

func TestParseTimestampFractionalDigits(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"2024-01-09_14-03-22-5", "2024-01-09_14-03-22-500"},
		{"2024-01-09_14-03-22-50", "2024-01-09_14-03-22-500"},
		{"2024-01-09_14-03-22-501999", "2024-01-09_14-03-22-501"},
	}
	for _, tt := range tests {
		ts, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) failed: %v", tt.in, err)
		}
		if ts.String() != tt.expected {
			t.Errorf("ParseTimestamp(%q) = %s, expected %s", tt.in, ts, tt.expected)
		}
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, s := range []string{"", "2024-01-09 14:03:22", "2024-01-09_14-03-22-", "2024-01-09_14-03-22-abc", "2024-01-09_14-03-22-1234567"} {
		if _, err := ParseTimestamp(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}

func TestDuration(t *testing.T) {
	a := MustParseTimestamp("2024-01-09_14-03-22-500")
	b := MustParseTimestamp("2024-01-09_14-03-24-750")

	if d := Duration(a, b); d != 2250*time.Millisecond {
		t.Errorf("Expected 2.25s, got %v", d)
	}
	if d := Duration(b, a); d != -2250*time.Millisecond {
		t.Errorf("Expected -2.25s, got %v", d)
	}
	if d := AbsDuration(b, a); d != 2250*time.Millisecond {
		t.Errorf("Expected 2.25s, got %v", d)
	}
}

func TestTimestampText(t *testing.T) {
	ts := MustParseTimestamp("2024-01-09_14-03-22-501")
	b, err := ts.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var back Timestamp
	if err := back.UnmarshalText(b); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(ts) {
		t.Errorf("Expected %s, got %s", ts, back)
	}
	if ts.SecondKey() != "2024-01-09_14-03-22" {
		t.Errorf("Unexpected second key %s", ts.SecondKey())
	}
}
