package segment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-walk-sync/pkg/media"
	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

var baseTime = timeline.MustParseTimestamp("2024-01-09_14-00-00-000")

type memOutput struct {
	saved map[string][][]float64
}

func newMemOutput() *memOutput {
	return &memOutput{saved: make(map[string][][]float64)}
}

func (m *memOutput) Save(name string, rows [][]float64) (string, error) {
	m.saved[name] = rows
	return name + ".npy", nil
}

func (m *memOutput) Path(name, ext string) (string, error) {
	return name + "." + ext, nil
}

func (m *memOutput) filesFor(index int) []string {
	var out []string
	prefix := fmt.Sprintf("%d_", index)
	for name := range m.saved {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

type fakeSlicer struct {
	calls []string
	err   error
}

func (f *fakeSlicer) ExtractVideo(_ context.Context, _ string, r timeline.Range, out string) (timeline.Range, error) {
	if f.err != nil {
		return r, f.err
	}
	f.calls = append(f.calls, out)
	return r, nil
}

func (f *fakeSlicer) ExtractVideoAudio(_ context.Context, _ string, r timeline.Range, videoOut, audioOut string) (timeline.Range, error) {
	if f.err != nil {
		return r, f.err
	}
	f.calls = append(f.calls, videoOut, audioOut)
	return r, nil
}

// ev builds an event at offset seconds with identical frame and sample
// indices derived from it.
type ev struct {
	label  string
	offset float64
	frame  int
	sample int
}

func buildLog(evs ...ev) timeline.EventLog {
	log := make(timeline.EventLog, len(evs))
	for i, e := range evs {
		log[i] = timeline.Event{
			Index:      i,
			Label:      e.label,
			Timestamp:  timeline.NewTimestamp(baseTime.Time().Add(time.Duration(e.offset * float64(time.Second)))),
			PupilFrame: e.frame,
			GoProFrame: e.frame * 2,
			NPSample:   e.sample,
		}
	}
	return log
}

func accStream(seconds int) *modality.Stream {
	s := &modality.Stream{Name: "chestphone_acc"}
	for i := 0; i < seconds*100; i++ {
		s.Times = append(s.Times, timeline.NewTimestamp(baseTime.Time().Add(time.Duration(i)*10*time.Millisecond)))
		s.Data = append(s.Data, []float64{float64(i), 0, 9.8})
	}
	return s
}

func testRegistry() modality.Registry {
	return modality.Registry{
		{Name: "np", Strategy: modality.IndexAligned, SampleRate: 250, Primary: true},
		{Name: "chestphone_acc", Strategy: modality.TimestampAligned, SampleRate: 100},
	}
}

func testInput(log timeline.EventLog) Input {
	return Input{
		Events: log,
		Streams: modality.Set{
			"np":             {Name: "np", Data: make([][]float64, 10000)},
			"chestphone_acc": accStream(60),
		},
		Videos: map[string]string{"gopro": "gopro.mp4", "pupil": "pupil.mp4"},
	}
}

func newTestDriver(t *testing.T, out *memOutput, slicer VideoSlicer, opts ...Option) *Driver {
	t.Helper()
	extractor := modality.NewExtractor(out, 0, nil)
	d, err := NewDriver(Config{
		Labels:      DefaultLabels,
		Modalities:  testRegistry(),
		Videos:      DefaultVideos(),
		FrameColumn: timeline.PupilFrameColumn,
	}, extractor, slicer, out, nil, opts...)
	require.NoError(t, err)
	return d
}

func TestDriverSingleInterval(t *testing.T) {
	out := newMemOutput()
	slicer := &fakeSlicer{}
	d := newTestDriver(t, out, slicer)

	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Lost Beg", 2, 60, 500},
		ev{"Lost End", 5, 150, 1250},
		ev{"Walk End", 10, 300, 2500},
	)

	rc, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)

	require.Len(t, rc.Stats, 1)
	stat := rc.Stats[0]
	assert.Equal(t, 1, stat.Index)
	assert.Equal(t, "Lost", stat.Label)
	assert.Equal(t, 3*time.Second, stat.Duration)
	// np, chestphone_acc, gopro video and audio, pupil video.
	assert.Equal(t, 5, stat.Modalities)
	assert.Empty(t, stat.Missing)

	rejected := rc.Rejections()
	require.Len(t, rejected, 1)
	assert.Equal(t, 3, rejected[0].Index)
	assert.Equal(t, ReasonAfterWalk, rejected[0].Reason)

	assert.Equal(t, []string{"1_gopro.mp4", "1_gopro_audio.wav", "1_pupil.mp4"}, slicer.calls)
	assert.Len(t, out.saved["1_np"], 750)
	assert.Len(t, out.saved["1_chestphone_acc"], 300)

	totals := rc.LabelTotals()
	require.Len(t, totals, 1)
	assert.Equal(t, LabelTotal{Label: "Lost", Total: 3 * time.Second}, totals[0])
	assert.Empty(t, rc.MissingCounts())
}

func TestDriverUnmatchedBegin(t *testing.T) {
	out := newMemOutput()
	d := newTestDriver(t, out, &fakeSlicer{})

	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Lost Beg", 2, 60, 500},
		ev{"Doorway", 3, 90, 750},
		ev{"Stop Beg", 4, 120, 1000},
		ev{"Walk End", 10, 300, 2500},
		ev{"Lost End", 11, 330, 2750},
	)

	rc, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)

	rejected := rc.Rejections()
	reasons := make(map[int]string)
	for _, r := range rejected {
		reasons[r.Index] = r.Reason
	}
	assert.Contains(t, reasons[1], ErrUnmatchedEnd.Error())
	assert.Contains(t, reasons[3], ErrUnmatchedEnd.Error())
	assert.Equal(t, ReasonAfterWalk, reasons[4])
	assert.Equal(t, ReasonAfterWalk, reasons[5])

	// The point event pairs with the next event and is still processed.
	require.Len(t, rc.Stats, 1)
	assert.Equal(t, 2, rc.Stats[0].Index)
	assert.Equal(t, "Doorway", rc.Stats[0].Label)
	assert.Equal(t, time.Second, rc.Stats[0].Duration)
}

func TestDriverNeuralDropout(t *testing.T) {
	out := newMemOutput()
	slicer := &fakeSlicer{}
	d := newTestDriver(t, out, slicer)

	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Lost Beg", 2, 60, 500},
		ev{"Lost End", 5, 150, 1250},
		ev{"Stop Beg", 6, 180, 1500},
		ev{"Stop End", 8, 240, 1500},
		ev{"Walk End", 10, 300, 2500},
	)
	in := testInput(log)

	t.Run("interval result", func(t *testing.T) {
		iv := timeline.Interval{Label: "Stop", Begin: log[3], End: log[4]}
		res := d.ProcessInterval(context.Background(), iv, in)
		require.NoError(t, res.Err)
		assert.False(t, res.Persist)
		assert.Equal(t, []string{"np"}, res.Gated)
		for _, o := range res.Outcomes {
			assert.False(t, o.Succeeded(), "modality %s", o.Modality)
		}
		assert.Empty(t, out.filesFor(3))
	})

	rc, err := d.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, rc.MissingCount("np"))
	assert.Empty(t, out.filesFor(3))
	assert.NotEmpty(t, out.filesFor(1))
	assert.Equal(t, []string{"1_gopro.mp4", "1_gopro_audio.wav", "1_pupil.mp4"}, slicer.calls)

	require.Len(t, rc.Stats, 2)
	dropout := rc.Stats[1]
	assert.Equal(t, 3, dropout.Index)
	assert.Equal(t, 0, dropout.Modalities)
	assert.Equal(t, []string{"np"}, dropout.Missing)

	totals := rc.LabelTotals()
	require.Len(t, totals, 1)
	assert.Equal(t, "Lost", totals[0].Label)
}

func TestDriverVideoGate(t *testing.T) {
	out := newMemOutput()
	slicer := &fakeSlicer{}
	d := newTestDriver(t, out, slicer)

	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Stare Beg", 2, 60, 500},
		ev{"Stare End", 5, 60, 400},
		ev{"Walk End", 10, 300, 2500},
	)

	rc, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)

	assert.Empty(t, slicer.calls)
	assert.Empty(t, out.saved)
	assert.Equal(t, 1, rc.MissingCount("gopro"))
	assert.Equal(t, 1, rc.MissingCount("pupil"))
	assert.Equal(t, 1, rc.MissingCount("np"))
	assert.Equal(t, 0, rc.MissingCount("chestphone_acc"))

	rejected := rc.Rejections()
	require.NotEmpty(t, rejected)
	assert.Equal(t, 1, rejected[0].Index)
	assert.Equal(t, "gopro, np", rejected[0].Reason)

	require.Len(t, rc.Stats, 1)
	assert.Equal(t, 0, rc.Stats[0].Modalities)
	assert.Empty(t, rc.LabelTotals())
}

func TestDriverFilters(t *testing.T) {
	d := newTestDriver(t, newMemOutput(), &fakeSlicer{})

	log := buildLog(
		ev{"Calibration", 0, 0, 0},
		ev{"Walk Beg", 1, 30, 250},
		ev{"Phone Check Beg", 2, 60, 500},
		ev{"Phone Check End", 3, 90, 750},
		ev{"Lost End", 4, 120, 1000},
		ev{"Walk End", 10, 300, 2500},
	)

	rc, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)

	expected := []Rejection{
		{Index: 0, Label: "Calibration", Reason: ReasonBeforeWalk, Time: log[0].Timestamp},
		{Index: 2, Label: "Phone Check", Reason: ReasonNotInteresting, Time: log[2].Timestamp},
		{Index: 3, Label: "Phone Check", Reason: ReasonNotInteresting, Time: log[3].Timestamp},
		{Index: 4, Label: "Lost", Reason: ReasonOrphanEnd, Time: log[4].Timestamp},
		{Index: 5, Label: "Walk", Reason: ReasonAfterWalk, Time: log[5].Timestamp},
	}
	assert.Equal(t, expected, rc.Rejections())
	assert.Empty(t, rc.Stats)
	assert.False(t, rc.IsRejected(1))
}

func TestDriverIntervalError(t *testing.T) {
	out := newMemOutput()
	slicer := &fakeSlicer{err: &media.MissingFileError{Path: "gopro.mp4"}}
	d := newTestDriver(t, out, slicer)

	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Lost Beg", 2, 60, 500},
		ev{"Lost End", 5, 150, 1250},
		ev{"Outdoor Beg", 6, 180, 1500},
		ev{"Outdoor End", 8, 240, 2000},
		ev{"Walk End", 10, 300, 2500},
	)

	rc, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)

	assert.Empty(t, rc.Stats)
	rejected := rc.Rejections()
	require.Len(t, rejected, 3)
	assert.Contains(t, rejected[0].Reason, "media file not found")
	assert.Equal(t, 3, rejected[1].Index)
	assert.Empty(t, rc.LabelTotals())
}

func TestDriverNoWalkBegin(t *testing.T) {
	d := newTestDriver(t, newMemOutput(), &fakeSlicer{})
	log := buildLog(ev{"Lost Beg", 0, 0, 0}, ev{"Lost End", 1, 30, 250})

	_, err := d.Run(context.Background(), testInput(log))
	assert.True(t, errors.Is(err, ErrNoWalkBegin))
}

func TestDriverWithoutWalkEnd(t *testing.T) {
	d := newTestDriver(t, newMemOutput(), &fakeSlicer{})
	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Lost Beg", 2, 60, 500},
		ev{"Lost End", 5, 150, 1250},
		ev{"Doorway", 6, 180, 1500},
	)

	rc, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)
	require.Len(t, rc.Stats, 1)

	rejected := rc.Rejections()
	require.Len(t, rejected, 1)
	assert.Equal(t, 3, rejected[0].Index)
	assert.Contains(t, rejected[0].Reason, "Doorway")
}

func TestDriverProgressAndCancel(t *testing.T) {
	var seen []int
	d := newTestDriver(t, newMemOutput(), &fakeSlicer{}, WithProgress(func(i int) { seen = append(seen, i) }))

	log := buildLog(
		ev{"Walk Beg", 0, 0, 0},
		ev{"Lost Beg", 2, 60, 500},
		ev{"Lost End", 5, 150, 1250},
		ev{"Stop Beg", 6, 180, 1500},
		ev{"Stop End", 8, 240, 2000},
		ev{"Walk End", 10, 300, 2500},
	)

	_, err := d.Run(context.Background(), testInput(log))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, seen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Run(ctx, testInput(log))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDriverValidation(t *testing.T) {
	extractor := modality.NewExtractor(nil, 0, nil)

	_, err := NewDriver(Config{FrameColumn: "Bogus"}, extractor, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewDriver(Config{Videos: DefaultVideos()}, extractor, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewDriver(Config{}, nil, nil, nil, nil)
	assert.Error(t, err)

	d, err := NewDriver(Config{Modalities: testRegistry()}, extractor, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, timeline.PupilFrameColumn, d.cfg.FrameColumn)
}
