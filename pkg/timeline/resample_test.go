package timeline

import (
	"math"
	"testing"
)

func TestResampleBySecond(t *testing.T) {
	times := series(
		"2024-01-09_14-03-22-100",
		"2024-01-09_14-03-22-600",
		"2024-01-09_14-03-23-050",
		"2024-01-09_14-03-24-000",
		"2024-01-09_14-03-24-500",
		"2024-01-09_14-03-24-900",
	)
	values := [][]float64{
		{1.0, 10.0},
		{3.0, 30.0},
		{5.0, 50.0},
		{6.0, 60.0},
		{7.0, 70.0},
		{8.0, 80.0},
	}

	outTimes, outValues := ResampleBySecond(times, values, ResampleOptions{})

	expectedTimes := []string{
		"2024-01-09_14-03-22-100",
		"2024-01-09_14-03-23-050",
		"2024-01-09_14-03-24-000",
	}
	expectedValues := [][]float64{
		{2.0, 20.0},
		{5.0, 50.0},
		{7.0, 70.0},
	}

	if len(outTimes) != len(expectedTimes) {
		t.Fatalf("Expected %d groups, got %d", len(expectedTimes), len(outTimes))
	}
	for i := range expectedTimes {
		if outTimes[i].String() != expectedTimes[i] {
			t.Errorf("Group %d: expected time %s, got %s", i, expectedTimes[i], outTimes[i])
		}
		for c := range expectedValues[i] {
			if math.Abs(outValues[i][c]-expectedValues[i][c]) > 1e-9 {
				t.Errorf("Group %d column %d: expected %v, got %v", i, c, expectedValues[i][c], outValues[i][c])
			}
		}
	}
}

func TestResampleBySecondSingleSecond(t *testing.T) {
	times := series("2024-01-09_14-03-22-100", "2024-01-09_14-03-22-200")
	values := [][]float64{{1.0}, {2.0}}

	outTimes, outValues := ResampleBySecond(times, values, ResampleOptions{})
	if len(outTimes) != 1 {
		t.Fatalf("Expected the only group to be flushed, got %d groups", len(outTimes))
	}
	if outValues[0][0] != 1.5 {
		t.Errorf("Expected 1.5, got %v", outValues[0][0])
	}

	outTimes, _ = ResampleBySecond(times, values, ResampleOptions{DropLastGroup: true})
	if len(outTimes) != 0 {
		t.Errorf("Expected legacy mode to drop the final group, got %d groups", len(outTimes))
	}
}

func TestResampleBySecondAggregation(t *testing.T) {
	times := series("2024-01-09_14-03-22-100", "2024-01-09_14-03-22-200", "2024-01-09_14-03-22-300")
	values := [][]float64{{4.0}, {1.0}, {9.0}}

	tests := []struct {
		agg      AggregationType
		expected float64
	}{
		{Avg, 14.0 / 3},
		{Sum, 14.0},
		{Min, 1.0},
		{Max, 9.0},
		{First, 4.0},
		{Last, 9.0},
	}
	for _, tt := range tests {
		_, out := ResampleBySecond(times, values, ResampleOptions{Aggregation: tt.agg})
		if math.Abs(out[0][0]-tt.expected) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tt.agg, tt.expected, out[0][0])
		}
	}
}

func TestResampleBySecondEmpty(t *testing.T) {
	outTimes, outValues := ResampleBySecond(nil, nil, ResampleOptions{})
	if outTimes != nil || outValues != nil {
		t.Errorf("Expected nil output for empty input")
	}
}
