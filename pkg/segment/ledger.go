package segment

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Rejection reasons recorded for events that never become intervals.
const (
	ReasonBeforeWalk     = "Event before Walk Beg"
	ReasonAfterWalk      = "Event after Walk End"
	ReasonNotInteresting = "Not interested event"
	ReasonOrphanEnd      = "End event without matching Beg"
)

// IntervalStat is one row of the per-interval statistics ledger.
type IntervalStat struct {
	Index      int
	Label      string
	Duration   time.Duration
	Modalities int
	Missing    []string
}

// Rejection is one row of the rejected-event ledger.
type Rejection struct {
	Index  int
	Label  string
	Reason string
	Time   timeline.Timestamp
}

// LabelTotal is the cumulative duration of one label within a walk.
type LabelTotal struct {
	Label string
	Total time.Duration
}

// MissingCount is how many intervals lacked one modality.
type MissingCount struct {
	Modality string
	Count    int
}

// RunContext owns the ledgers of one run. It is not safe for concurrent use.
type RunContext struct {
	Stats          []IntervalStat
	rejected       map[int]*Rejection
	labelDurations map[string]time.Duration
	missingCounts  map[string]int
}

// NewRunContext returns empty ledgers.
func NewRunContext() *RunContext {
	return &RunContext{
		rejected:       make(map[int]*Rejection),
		labelDurations: make(map[string]time.Duration),
		missingCounts:  make(map[string]int),
	}
}

// Reject records ev with reason. A second reason for the same event is
// appended rather than replacing the first.
func (rc *RunContext) Reject(ev timeline.Event, reason string) {
	if r, ok := rc.rejected[ev.Index]; ok {
		if !slices.Contains(strings.Split(r.Reason, ", "), reason) {
			r.Reason += ", " + reason
		}
		return
	}
	rc.rejected[ev.Index] = &Rejection{
		Index:  ev.Index,
		Label:  ev.BaseLabel(),
		Reason: reason,
		Time:   ev.Timestamp,
	}
}

// IsRejected reports whether the event index has a rejection entry.
func (rc *RunContext) IsRejected(index int) bool {
	_, ok := rc.rejected[index]
	return ok
}

// CountMissing increments the missing counter for a modality.
func (rc *RunContext) CountMissing(modality string) {
	rc.missingCounts[modality]++
}

// AddDuration accumulates d into the label's total.
func (rc *RunContext) AddDuration(label string, d time.Duration) {
	rc.labelDurations[label] += d
}

// AddStat appends one statistics row.
func (rc *RunContext) AddStat(s IntervalStat) {
	rc.Stats = append(rc.Stats, s)
}

// Rejections returns the rejected ledger ordered by event index.
func (rc *RunContext) Rejections() []Rejection {
	out := make([]Rejection, 0, len(rc.rejected))
	for _, r := range rc.rejected {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// LabelTotals returns the per-label durations ordered by label.
func (rc *RunContext) LabelTotals() []LabelTotal {
	out := make([]LabelTotal, 0, len(rc.labelDurations))
	for label, total := range rc.labelDurations {
		out = append(out, LabelTotal{Label: label, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// MissingCounts returns the per-modality missing counts ordered by name.
func (rc *RunContext) MissingCounts() []MissingCount {
	out := make([]MissingCount, 0, len(rc.missingCounts))
	for m, c := range rc.missingCounts {
		out = append(out, MissingCount{Modality: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modality < out[j].Modality })
	return out
}

// MissingCount returns the counter for one modality.
func (rc *RunContext) MissingCount(modality string) int {
	return rc.missingCounts[modality]
}

// SortStats orders statistics rows by event index.
func (rc *RunContext) SortStats() {
	sort.SliceStable(rc.Stats, func(i, j int) bool { return rc.Stats[i].Index < rc.Stats[j].Index })
}

// Ledgers is the flushed, ordered view of a RunContext.
type Ledgers struct {
	Stats      []IntervalStat
	Rejected   []Rejection
	LabelTotal []LabelTotal
	Missing    []MissingCount
}

// Ledgers returns the ordered ledger contents.
func (rc *RunContext) Ledgers() Ledgers {
	rc.SortStats()
	return Ledgers{
		Stats:      rc.Stats,
		Rejected:   rc.Rejections(),
		LabelTotal: rc.LabelTotals(),
		Missing:    rc.MissingCounts(),
	}
}
