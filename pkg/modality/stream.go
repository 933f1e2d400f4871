package modality

import (
	"fmt"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Stream is one loaded modality. Times is nil for index-aligned streams;
// otherwise it has one entry per row of Data.
type Stream struct {
	Name  string
	Times []timeline.Timestamp
	Data  [][]float64
}

// Len is the number of samples.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Data)
}

// Width is the number of values per sample, taken from the first row.
func (s *Stream) Width() int {
	if s.Len() == 0 {
		return 0
	}
	return len(s.Data[0])
}

// Validate checks that a timestamped stream has one time per sample.
func (s *Stream) Validate() error {
	if s.Times != nil && len(s.Times) != len(s.Data) {
		return fmt.Errorf("stream %s: %d timestamps for %d samples", s.Name, len(s.Times), len(s.Data))
	}
	return nil
}

// Slice returns the rows in r. r must lie within the stream.
func (s *Stream) Slice(r timeline.Range) [][]float64 {
	return s.Data[r.Start:r.End]
}

// Resample collapses samples per wall-clock second. Index-aligned streams
// are returned unchanged.
func (s *Stream) Resample(opts timeline.ResampleOptions) *Stream {
	if s == nil || s.Times == nil {
		return s
	}
	times, data := timeline.ResampleBySecond(s.Times, s.Data, opts)
	return &Stream{Name: s.Name, Times: times, Data: data}
}

// Set maps modality names to loaded streams. A missing key means the stream
// was not recorded for the session.
type Set map[string]*Stream
