package modality

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Sink persists extracted slices. Save returns the location written.
type Sink interface {
	Save(name string, rows [][]float64) (string, error)
}

// SliceName is the output name for one interval and modality, without
// extension.
func SliceName(index int, modality string) string {
	return fmt.Sprintf("%d_%s", index, modality)
}

// Extractor maps event intervals onto modality streams.
type Extractor struct {
	sink   Sink
	window time.Duration
	locate timeline.Locator
	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLocator replaces the linear-scan locator.
func WithLocator(l timeline.Locator) ExtractorOption {
	return func(e *Extractor) { e.locate = l }
}

// NewExtractor creates an extractor writing to sink. A zero window disables
// expansion.
func NewExtractor(sink Sink, window time.Duration, logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		sink:   sink,
		window: window,
		locate: timeline.Locate,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the fixed output duration.
func (e *Extractor) Window() time.Duration { return e.window }

// Extract resolves iv against stream using d's strategy. When the data is
// usable and persist is true the slice is written to the sink; with persist
// false only validity is evaluated. A nil stream is missing. Errors are
// reserved for failures to write.
func (e *Extractor) Extract(iv timeline.Interval, d Descriptor, stream *Stream, persist bool) (Outcome, error) {
	out := Outcome{Modality: d.Name, Status: Missing}
	if stream.Len() == 0 {
		e.logger.Debug("Modality not recorded", "eventIndex", iv.Index(), "modality", d.Name)
		return out, nil
	}

	r, ok, err := e.resolve(iv, d, stream)
	if err != nil {
		return out, err
	}
	if !ok {
		e.logger.Debug("Modality missing", "eventIndex", iv.Index(), "modality", d.Name)
		return out, nil
	}

	out.Start, out.End = r.Start, r.End
	out.Status = Present
	if !persist || e.sink == nil {
		return out, nil
	}

	path, err := e.sink.Save(SliceName(iv.Index(), d.Name), stream.Slice(r))
	if err != nil {
		return out, fmt.Errorf("failed to save %s slice for event %d: %w", d.Name, iv.Index(), err)
	}
	out.Status = Persisted
	out.Paths = []string{path}
	return out, nil
}

func (e *Extractor) resolve(iv timeline.Interval, d Descriptor, stream *Stream) (timeline.Range, bool, error) {
	n := stream.Len()

	switch d.Strategy {
	case IndexAligned:
		r, err := iv.FrameRange(d.indexColumn())
		if err != nil {
			return timeline.Range{}, false, err
		}
		// Recorded indices are authoritative; a degenerate pair is a dropout.
		if r.Empty() {
			return r, false, nil
		}
		r = e.finish(r, d, n)
		return r, !r.Empty(), nil

	case TimestampAligned, Sparse:
		if stream.Times == nil {
			return timeline.Range{}, false, fmt.Errorf("modality %s has no timestamps", d.Name)
		}
		start, okStart := e.locate(iv.Begin.Timestamp, stream.Times)
		end, okEnd := e.locate(iv.End.Timestamp, stream.Times)
		if !okStart || !okEnd {
			return timeline.Range{}, false, nil
		}
		r := timeline.Range{Start: start, End: end}

		if d.Strategy == Sparse {
			if r.End <= r.Start {
				gap := timeline.AbsDuration(iv.Begin.Timestamp, stream.Times[r.Start])
				if gap > d.MaxGap {
					return r, false, nil
				}
				r.End = r.Start + 1
			}
			return r, true, nil
		}

		if r.End < r.Start {
			return r, false, nil
		}
		r = e.finish(r, d, n)
		return r, !r.Empty(), nil

	default:
		return timeline.Range{}, false, fmt.Errorf("modality %s: unsupported strategy %s", d.Name, d.Strategy)
	}
}

// finish applies window expansion and clips r to the stream.
func (e *Extractor) finish(r timeline.Range, d Descriptor, n int) timeline.Range {
	if e.window > 0 && d.SampleRate > 0 {
		r = timeline.Expand(r, e.window, d.SampleRate, n)
	}
	r.Start = max(r.Start, 0)
	r.End = min(r.End, n)
	return r
}
