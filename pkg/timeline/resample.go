package timeline

// ResampleOptions controls per-second collapsing of bursty low-rate streams.
type ResampleOptions struct {
	// Aggregation reduces the samples of one second; Avg when empty.
	Aggregation AggregationType
	// DropLastGroup reproduces older outputs that never emitted the final
	// second of data.
	DropLastGroup bool
}

// ResampleBySecond collapses consecutive samples sharing the same wall-clock
// second into one sample stamped with the group's first timestamp. Output
// order follows the input; a second that reappears after another second
// starts a new group.
func ResampleBySecond(times []Timestamp, values [][]float64, opts ResampleOptions) ([]Timestamp, [][]float64) {
	n := min(len(times), len(values))
	if n == 0 {
		return nil, nil
	}
	aggType := opts.Aggregation
	if aggType == "" {
		aggType = Avg
	}

	var (
		outTimes  []Timestamp
		outValues [][]float64
		group     [][]float64
	)
	groupStart := times[0]
	groupKey := groupStart.SecondKey()

	flush := func() {
		outTimes = append(outTimes, groupStart)
		outValues = append(outValues, AggregateColumns(group, aggType))
		group = group[:0]
	}

	for i := 0; i < n; i++ {
		key := times[i].SecondKey()
		if key != groupKey {
			flush()
			groupStart = times[i]
			groupKey = key
		}
		group = append(group, values[i])
	}

	if !opts.DropLastGroup {
		flush()
	}
	return outTimes, outValues
}
