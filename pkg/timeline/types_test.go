package timeline

import (
	"testing"
	"time"
)

func TestBaseLabel(t *testing.T) {
	tests := map[string]string{
		"Lost Beg":         "Lost",
		"Lost End":         "Lost",
		"Correct TurnBeg":  "Correct Turn",
		"Choice Point End": "Choice Point",
		"Doorway":          "Doorway",
		"Walk Beg":         "Walk",
	}
	for in, expected := range tests {
		if got := BaseLabel(in); got != expected {
			t.Errorf("BaseLabel(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestEventLogIndexOf(t *testing.T) {
	log := EventLog{
		{Index: 0, Label: "Walk Beg"},
		{Index: 1, Label: "Lost Beg"},
		{Index: 2, Label: "Lost End"},
		{Index: 3, Label: "Lost Beg"},
		{Index: 4, Label: "Walk End"},
	}

	if i := log.IndexOf("Lost Beg", 0); i != 1 {
		t.Errorf("Expected 1, got %d", i)
	}
	if i := log.IndexOf("Lost Beg", 2); i != 3 {
		t.Errorf("Expected 3, got %d", i)
	}
	if i := log.IndexOf("Lost End", 3); i != -1 {
		t.Errorf("Expected -1, got %d", i)
	}
}

func TestIntervalRanges(t *testing.T) {
	iv := Interval{
		Label: "Lost",
		Begin: Event{Index: 7, Label: "Lost Beg", Timestamp: MustParseTimestamp("2024-01-09_14-03-22-000"), PupilFrame: 30, GoProFrame: 60, NPSample: 250},
		End:   Event{Index: 8, Label: "Lost End", Timestamp: MustParseTimestamp("2024-01-09_14-03-25-500"), PupilFrame: 135, GoProFrame: 270, NPSample: 1125},
	}

	if iv.Index() != 7 {
		t.Errorf("Expected index 7, got %d", iv.Index())
	}
	if iv.Duration() != 3500*time.Millisecond {
		t.Errorf("Expected 3.5s, got %v", iv.Duration())
	}
	if r := iv.NPRange(); r != (Range{250, 1125}) {
		t.Errorf("Unexpected np range %v", r)
	}
	r, err := iv.FrameRange(GoProFrameColumn)
	if err != nil {
		t.Fatal(err)
	}
	if r != (Range{60, 270}) {
		t.Errorf("Unexpected gopro range %v", r)
	}
	if _, err := iv.FrameRange("BogusFrame"); err == nil {
		t.Errorf("Expected error for unknown column")
	}
}
