package timeline

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Range is a half-open [Start, End) range of sample or frame indices.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns End - Start, which is negative for an inverted range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range holds no samples.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// WindowLength is the number of samples covering target at the given rate.
func WindowLength(target time.Duration, rate float64) int {
	return int(math.Round(target.Seconds() * rate))
}

// Expand grows r symmetrically so that it spans target at the given sample
// rate, clipped to [0, seriesLen]. Ranges that already meet the target length
// are returned unchanged. Near the stream edges the result may be shorter
// than requested.
func Expand(r Range, target time.Duration, rate float64, seriesLen int) Range {
	needed := WindowLength(target, rate) - r.Len()
	if needed <= 0 {
		return r
	}

	start := max(0, r.Start-needed/2)
	end := min(seriesLen, start+r.Len()+needed)
	return Range{Start: start, End: end}
}

// ParseWindow parses a window size such as "2s" or "1500ms". A bare number is
// read as seconds.
func ParseWindow(spec string) (time.Duration, error) {
	if spec == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(spec)
	if err != nil {
		seconds, parseErr := strconv.ParseFloat(spec, 64)
		if parseErr != nil {
			return 0, fmt.Errorf("invalid window size: %w", err)
		}
		d = time.Duration(seconds * float64(time.Second))
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid window size %q: negative", spec)
	}
	return d, nil
}
