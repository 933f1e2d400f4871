package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Event label suffixes marking interval boundaries.
const (
	BeginSuffix = "Beg"
	EndSuffix   = "End"
)

// Frame index columns recorded on every event.
const (
	PupilFrameColumn = "PupilFrame"
	GoProFrameColumn = "GoProFrame"
	NPSampleColumn   = "NPSample"
)

// Event is one row of the annotated event log. Index is its position in the
// log and serves as the primary key.
type Event struct {
	Index      int       `json:"index"`
	Label      string    `json:"label"`
	Timestamp  Timestamp `json:"timestamp"`
	PupilFrame int       `json:"pupil_frame"`
	GoProFrame int       `json:"gopro_frame"`
	NPSample   int       `json:"np_sample"`
}

// IsBegin reports whether the label carries the interval-begin suffix.
func (e Event) IsBegin() bool {
	return strings.HasSuffix(e.Label, BeginSuffix)
}

// IsEnd reports whether the label carries the interval-end suffix.
func (e Event) IsEnd() bool {
	return strings.HasSuffix(e.Label, EndSuffix)
}

// BaseLabel returns the label without its Beg/End suffix.
func (e Event) BaseLabel() string {
	return BaseLabel(e.Label)
}

// Frame returns the frame index recorded in the named column.
func (e Event) Frame(column string) (int, error) {
	switch column {
	case PupilFrameColumn:
		return e.PupilFrame, nil
	case GoProFrameColumn:
		return e.GoProFrame, nil
	case NPSampleColumn:
		return e.NPSample, nil
	default:
		return 0, fmt.Errorf("unknown frame column %q", column)
	}
}

// BaseLabel strips a trailing Beg/End suffix and the separator before it.
func BaseLabel(label string) string {
	for _, suffix := range []string{BeginSuffix, EndSuffix} {
		if strings.HasSuffix(label, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(label, suffix))
		}
	}
	return label
}

// EventLog is the ordered annotated log of one session.
type EventLog []Event

// Timestamps returns the event timestamps in log order.
func (l EventLog) Timestamps() []Timestamp {
	out := make([]Timestamp, len(l))
	for i, e := range l {
		out[i] = e.Timestamp
	}
	return out
}

// IndexOf returns the index of the first event at or after from whose label
// equals label exactly, or -1.
func (l EventLog) IndexOf(label string, from int) int {
	for i := max(from, 0); i < len(l); i++ {
		if l[i].Label == label {
			return i
		}
	}
	return -1
}

// Interval pairs a begin event with its terminating event.
type Interval struct {
	Label string `json:"label"`
	Begin Event  `json:"begin"`
	End   Event  `json:"end"`
}

// Index is the begin event's log index; output files are keyed by it.
func (iv Interval) Index() int {
	return iv.Begin.Index
}

// Duration is the wall-clock length of the interval.
func (iv Interval) Duration() time.Duration {
	return Duration(iv.Begin.Timestamp, iv.End.Timestamp)
}

// NPRange is the neural-signal sample range recorded on the boundary events.
func (iv Interval) NPRange() Range {
	return Range{Start: iv.Begin.NPSample, End: iv.End.NPSample}
}

// FrameRange is the video frame range recorded in the named column.
func (iv Interval) FrameRange(column string) (Range, error) {
	start, err := iv.Begin.Frame(column)
	if err != nil {
		return Range{}, err
	}
	end, err := iv.End.Frame(column)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}
