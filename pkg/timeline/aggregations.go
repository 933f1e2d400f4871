package timeline

import (
	"fmt"
	"math"
)

// AggregationType selects how a group of samples collapses to one row.
type AggregationType string

const (
	Avg   AggregationType = "avg"
	Sum   AggregationType = "sum"
	Min   AggregationType = "min"
	Max   AggregationType = "max"
	First AggregationType = "first"
	Last  AggregationType = "last"
)

// ParseAggregationType validates a configured aggregation name.
func ParseAggregationType(s string) (AggregationType, error) {
	switch t := AggregationType(s); t {
	case Avg, Sum, Min, Max, First, Last:
		return t, nil
	case "":
		return Avg, nil
	default:
		return "", fmt.Errorf("unknown aggregation %q", s)
	}
}

// AggregateColumns reduces rows column by column. Rows may differ in length;
// the result is as wide as the widest row and a column only aggregates the
// rows that have it.
func AggregateColumns(rows [][]float64, aggType AggregationType) []float64 {
	if len(rows) == 0 {
		return nil
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}

	out := make([]float64, width)
	column := make([]float64, 0, len(rows))
	for c := 0; c < width; c++ {
		column = column[:0]
		for _, r := range rows {
			if c < len(r) {
				column = append(column, r[c])
			}
		}
		out[c] = aggregate(column, aggType)
	}
	return out
}

func aggregate(values []float64, aggType AggregationType) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	switch aggType {
	case Sum:
		return sumValues(values)
	case Min:
		return minValues(values)
	case Max:
		return maxValues(values)
	case First:
		return values[0]
	case Last:
		return values[len(values)-1]
	default:
		return avgValues(values)
	}
}

func sumValues(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

func avgValues(values []float64) float64 {
	return sumValues(values) / float64(len(values))
}

func minValues(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxValues(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
