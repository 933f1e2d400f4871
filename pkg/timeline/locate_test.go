package timeline

import "testing"

func series(values ...string) []Timestamp {
	out := make([]Timestamp, len(values))
	for i, v := range values {
		out[i] = MustParseTimestamp(v)
	}
	return out
}

func TestLocate(t *testing.T) {
	s := series(
		"2024-01-09_14-03-22-000",
		"2024-01-09_14-03-22-010",
		"2024-01-09_14-03-22-010",
		"2024-01-09_14-03-22-020",
		"2024-01-09_14-03-22-030",
	)

	tests := []struct {
		name   string
		target string
		index  int
		found  bool
	}{
		{"before first", "2024-01-09_14-03-21-000", 0, true},
		{"exact first", "2024-01-09_14-03-22-000", 0, true},
		{"between samples", "2024-01-09_14-03-22-005", 1, true},
		{"duplicate timestamps picks earliest", "2024-01-09_14-03-22-010", 1, true},
		{"exact last", "2024-01-09_14-03-22-030", 4, true},
		{"after last", "2024-01-09_14-03-22-031", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := MustParseTimestamp(tt.target)
			for name, locate := range map[string]Locator{"linear": Locate, "binary": LocateSorted} {
				index, found := locate(target, s)
				if index != tt.index || found != tt.found {
					t.Errorf("%s: expected (%d, %v), got (%d, %v)", name, tt.index, tt.found, index, found)
				}
			}
		})
	}
}

func TestLocateEmptySeries(t *testing.T) {
	target := MustParseTimestamp("2024-01-09_14-03-22-000")
	if i, found := Locate(target, nil); i != 0 || found {
		t.Errorf("Expected (0, false), got (%d, %v)", i, found)
	}
	if i, found := LocateSorted(target, nil); i != 0 || found {
		t.Errorf("Expected (0, false), got (%d, %v)", i, found)
	}
}
