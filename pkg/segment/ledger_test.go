package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

func TestRunContextLedgers(t *testing.T) {
	rc := NewRunContext()
	ts := timeline.MustParseTimestamp("2024-01-09_14-00-00-000")

	rc.Reject(timeline.Event{Index: 7, Label: "Lost Beg", Timestamp: ts}, "gopro")
	rc.Reject(timeline.Event{Index: 7, Label: "Lost Beg", Timestamp: ts}, "np")
	rc.Reject(timeline.Event{Index: 7, Label: "Lost Beg", Timestamp: ts}, "np")
	rc.Reject(timeline.Event{Index: 2, Label: "Calibration", Timestamp: ts}, ReasonBeforeWalk)

	rc.AddStat(IntervalStat{Index: 9, Label: "Stop"})
	rc.AddStat(IntervalStat{Index: 4, Label: "Lost"})

	rc.AddDuration("Stop", time.Second)
	rc.AddDuration("Lost", 2*time.Second)
	rc.AddDuration("Lost", 500*time.Millisecond)

	rc.CountMissing("xs_CoM")
	rc.CountMissing("np")
	rc.CountMissing("xs_CoM")

	l := rc.Ledgers()

	assert.Equal(t, []Rejection{
		{Index: 2, Label: "Calibration", Reason: ReasonBeforeWalk, Time: ts},
		{Index: 7, Label: "Lost", Reason: "gopro, np", Time: ts},
	}, l.Rejected)
	assert.Equal(t, 4, l.Stats[0].Index)
	assert.Equal(t, 9, l.Stats[1].Index)
	assert.Equal(t, []LabelTotal{{"Lost", 2500 * time.Millisecond}, {"Stop", time.Second}}, l.LabelTotal)
	assert.Equal(t, []MissingCount{{"np", 1}, {"xs_CoM", 2}}, l.Missing)
}

func TestUnmatchedEndError(t *testing.T) {
	err := error(&UnmatchedEndError{Index: 4, Label: "Lost"})
	assert.ErrorIs(t, err, ErrUnmatchedEnd)
	assert.Equal(t, "corresponding end event missing: 4 Lost", err.Error())
}
