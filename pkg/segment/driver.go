package segment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Walk boundary labels.
const (
	WalkBegin = "Walk Beg"
	WalkEnd   = "Walk End"
)

// DefaultLabels is the allow-list of event categories worth segmenting.
var DefaultLabels = []string{
	"Doorway", "Talking", "Correct Turn", "Incorrect Turn", "Lost", "Stop",
	"Abnormal", "Pointing", "Outdoor", "Choice Point", "Stare", "New Context",
}

// VideoSpec describes one video container cut per interval.
type VideoSpec struct {
	Name string
	// Audio also writes the soundtrack to {index}_{name}_audio.wav.
	Audio bool
	// Gate marks the video whose frame range decides whether anything is
	// persisted for the interval.
	Gate bool
}

// DefaultVideos are the head camera with audio and the eye tracker scene
// camera.
func DefaultVideos() []VideoSpec {
	return []VideoSpec{
		{Name: "gopro", Audio: true, Gate: true},
		{Name: "pupil"},
	}
}

// Config is the driver's view of the run configuration.
type Config struct {
	Labels      []string
	Modalities  modality.Registry
	Videos      []VideoSpec
	FrameColumn string
}

// VideoSlicer cuts frame ranges from a container.
type VideoSlicer interface {
	ExtractVideo(ctx context.Context, src string, r timeline.Range, out string) (timeline.Range, error)
	ExtractVideoAudio(ctx context.Context, src string, r timeline.Range, videoOut, audioOut string) (timeline.Range, error)
}

// Output receives array slices and names media outputs.
type Output interface {
	modality.Sink
	Path(name, ext string) (string, error)
}

// Input is one loaded session.
type Input struct {
	Events  timeline.EventLog
	Streams modality.Set
	// Videos maps video names to container paths.
	Videos map[string]string
}

// Driver walks an event log and extracts every modality per interval.
type Driver struct {
	cfg       Config
	labels    map[string]bool
	primary   modality.Registry
	secondary modality.Registry
	extractor *modality.Extractor
	slicer    VideoSlicer
	out       Output
	logger    *slog.Logger
	progress  func(index int)
}

// Option configures a Driver.
type Option func(*Driver)

// WithProgress registers a callback invoked after every processed interval.
func WithProgress(fn func(index int)) Option {
	return func(d *Driver) { d.progress = fn }
}

// NewDriver validates cfg and wires the collaborators.
func NewDriver(cfg Config, extractor *modality.Extractor, slicer VideoSlicer, out Output, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameColumn == "" {
		cfg.FrameColumn = timeline.PupilFrameColumn
	}
	if _, err := (timeline.Event{}).Frame(cfg.FrameColumn); err != nil {
		return nil, fmt.Errorf("invalid driver config: %w", err)
	}
	if err := cfg.Modalities.Validate(); err != nil {
		return nil, fmt.Errorf("invalid driver config: %w", err)
	}
	if extractor == nil {
		return nil, fmt.Errorf("invalid driver config: extractor is required")
	}
	if len(cfg.Videos) > 0 && (slicer == nil || out == nil) {
		return nil, fmt.Errorf("invalid driver config: videos configured without a slicer and output")
	}

	d := &Driver{
		cfg:       cfg,
		labels:    make(map[string]bool, len(cfg.Labels)),
		extractor: extractor,
		slicer:    slicer,
		out:       out,
		logger:    logger,
	}
	for _, l := range cfg.Labels {
		d.labels[l] = true
	}
	d.primary, d.secondary = cfg.Modalities.Split()
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run makes one forward pass over the log. Events before the walk begin
// marker, from the walk end marker on, and outside the label allow-list are
// rejected; every other begin event becomes an interval whose failures are
// recorded in the ledgers rather than returned. Only a log without a walk
// begin marker or a cancelled context returns an error.
func (d *Driver) Run(ctx context.Context, in Input) (*RunContext, error) {
	events := in.Events
	walkBeg := events.IndexOf(WalkBegin, 0)
	if walkBeg < 0 {
		return nil, ErrNoWalkBegin
	}
	walkEnd := events.IndexOf(WalkEnd, walkBeg+1)
	if walkEnd < 0 {
		walkEnd = len(events)
	}

	rc := NewRunContext()
	for i := 0; i < walkBeg; i++ {
		rc.Reject(events[i], ReasonBeforeWalk)
	}

	consumed := make(map[int]bool)
	for i := walkBeg + 1; i < walkEnd; i++ {
		if err := ctx.Err(); err != nil {
			return rc, err
		}
		ev := events[i]
		if consumed[i] {
			d.logger.Debug("Skipping paired end event", "eventIndex", i, "label", ev.Label)
			continue
		}

		base := ev.BaseLabel()
		if !d.labels[base] {
			d.logger.Debug("Event rejected", "eventIndex", i, "label", ev.Label, "reason", ReasonNotInteresting)
			rc.Reject(ev, ReasonNotInteresting)
			continue
		}
		if ev.IsEnd() {
			d.logger.Warn("Event rejected", "eventIndex", i, "label", ev.Label, "reason", ReasonOrphanEnd)
			rc.Reject(ev, ReasonOrphanEnd)
			continue
		}

		iv, err := pair(events, i, walkEnd, consumed)
		if err != nil {
			d.logger.Warn("Event rejected", "eventIndex", i, "label", ev.Label, "error", err)
			rc.Reject(ev, err.Error())
			continue
		}
		if iv.End.IsEnd() {
			consumed[iv.End.Index] = true
		}

		res := d.ProcessInterval(ctx, iv, in)
		d.record(rc, res)
		if d.progress != nil {
			d.progress(i)
		}
	}

	for i := walkEnd; i < len(events); i++ {
		rc.Reject(events[i], ReasonAfterWalk)
	}

	d.logger.Info("Event log processed",
		"intervals", len(rc.Stats),
		"rejected", len(rc.rejected),
		"events", len(events))
	return rc, nil
}

// pair builds the interval starting at events[i]. A begin event ends at the
// nearest unconsumed end event of the same label before limit; any other
// event ends at the next event.
func pair(events timeline.EventLog, i, limit int, consumed map[int]bool) (timeline.Interval, error) {
	begin := events[i]
	base := begin.BaseLabel()

	if !begin.IsBegin() {
		if i+1 >= len(events) {
			return timeline.Interval{}, &UnmatchedEndError{Index: i, Label: base}
		}
		return timeline.Interval{Label: base, Begin: begin, End: events[i+1]}, nil
	}

	for j := i + 1; j < limit; j++ {
		if consumed[j] {
			continue
		}
		if events[j].IsEnd() && events[j].BaseLabel() == base {
			return timeline.Interval{Label: base, Begin: begin, End: events[j]}, nil
		}
	}
	return timeline.Interval{}, &UnmatchedEndError{Index: i, Label: base}
}

// ProcessInterval evaluates every modality for iv. Gating videos and primary
// modalities are evaluated first; when one of them is missing the remaining
// modalities are still evaluated but nothing is written.
func (d *Driver) ProcessInterval(ctx context.Context, iv timeline.Interval, in Input) Result {
	res := Result{Interval: iv, Persist: true}

	frames, err := iv.FrameRange(d.cfg.FrameColumn)
	if err != nil {
		res.Err = err
		return res
	}
	for _, v := range d.cfg.Videos {
		if frames.Empty() && v.Gate {
			res.gate(v.Name)
		}
	}

	primary := make([]modality.Outcome, 0, len(d.primary))
	for _, desc := range d.primary {
		o, err := d.extractor.Extract(iv, desc, in.Streams[desc.Name], false)
		if err != nil {
			res.Err = err
			return res
		}
		if o.IsMissing() {
			res.gate(desc.Name)
		}
		primary = append(primary, o)
	}

	for _, v := range d.cfg.Videos {
		o, err := d.extractVideo(ctx, iv.Index(), v, frames, in.Videos[v.Name], res.Persist)
		if err != nil {
			res.Err = err
			return res
		}
		res.add(o)
	}

	for i, desc := range d.primary {
		o := primary[i]
		if res.Persist {
			if o, err = d.extractor.Extract(iv, desc, in.Streams[desc.Name], true); err != nil {
				res.Err = err
				return res
			}
		}
		res.add(o)
	}

	for _, desc := range d.secondary {
		o, err := d.extractor.Extract(iv, desc, in.Streams[desc.Name], res.Persist)
		if err != nil {
			res.Err = err
			return res
		}
		res.add(o)
	}
	return res
}

func (d *Driver) extractVideo(ctx context.Context, index int, v VideoSpec, frames timeline.Range, src string, persist bool) (modality.Outcome, error) {
	o := modality.Outcome{Modality: v.Name, Status: modality.Missing, Start: frames.Start, End: frames.End}
	if frames.Empty() {
		return o, nil
	}
	o.Status = modality.Present
	if !persist {
		return o, nil
	}

	videoOut, err := d.out.Path(modality.SliceName(index, v.Name), "mp4")
	if err != nil {
		return o, err
	}
	var r timeline.Range
	if v.Audio {
		audioOut, err := d.out.Path(modality.SliceName(index, v.Name+"_audio"), "wav")
		if err != nil {
			return o, err
		}
		r, err = d.slicer.ExtractVideoAudio(ctx, src, frames, videoOut, audioOut)
		if err != nil {
			return o, err
		}
		o.Paths = []string{videoOut, audioOut}
	} else {
		r, err = d.slicer.ExtractVideo(ctx, src, frames, videoOut)
		if err != nil {
			return o, err
		}
		o.Paths = []string{videoOut}
	}
	o.Status = modality.Persisted
	o.Start, o.End = r.Start, r.End
	return o, nil
}

func (d *Driver) record(rc *RunContext, res Result) {
	iv := res.Interval
	for _, name := range res.Missing() {
		rc.CountMissing(name)
	}
	for _, name := range res.Gated {
		rc.Reject(iv.Begin, name)
	}

	if res.Err != nil {
		d.logger.Warn("Interval failed", "eventIndex", iv.Index(), "label", iv.Label, "error", res.Err)
		rc.Reject(iv.Begin, res.Err.Error())
		return
	}

	if res.Persist {
		rc.AddDuration(iv.Label, iv.Duration())
	}
	rc.AddStat(IntervalStat{
		Index:      iv.Index(),
		Label:      iv.Label,
		Duration:   iv.Duration(),
		Modalities: res.Modalities(),
		Missing:    res.Missing(),
	})
	d.logger.Debug("Interval processed",
		"eventIndex", iv.Index(),
		"label", iv.Label,
		"modalities", res.Modalities(),
		"missing", res.Missing())
}
