package modality

import (
	"fmt"
	"strings"
	"time"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Strategy selects how an interval's boundaries map onto a stream's samples.
type Strategy int

const (
	// IndexAligned streams use the sample indices recorded on the events.
	IndexAligned Strategy = iota
	// TimestampAligned streams resolve both boundaries against their own
	// per-sample timestamps.
	TimestampAligned
	// Sparse streams resolve like TimestampAligned but accept a one-sample
	// window when the nearest sample lies within MaxGap of the interval start.
	Sparse
)

func (s Strategy) String() string {
	switch s {
	case IndexAligned:
		return "index"
	case TimestampAligned:
		return "timestamp"
	case Sparse:
		return "sparse"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the names produced by String.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "index":
		return IndexAligned, nil
	case "timestamp":
		return TimestampAligned, nil
	case "sparse":
		return Sparse, nil
	default:
		return 0, fmt.Errorf("unknown modality strategy %q", s)
	}
}

// Descriptor is the per-modality table entry consulted by the extractor.
type Descriptor struct {
	Name       string
	Strategy   Strategy
	SampleRate float64       // samples per second, used for window expansion
	MaxGap     time.Duration // Sparse only
	// IndexColumn names the event column holding sample indices for
	// IndexAligned streams. Defaults to NPSample.
	IndexColumn string
	// Primary modalities gate persistence for the whole interval: when one
	// is missing nothing else is written.
	Primary bool
}

func (d Descriptor) indexColumn() string {
	if d.IndexColumn == "" {
		return timeline.NPSampleColumn
	}
	return d.IndexColumn
}

// Registry is an ordered modality table. Extraction iterates it in order.
type Registry []Descriptor

// Lookup returns the descriptor with the given name.
func (r Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Names returns the modality names in registry order.
func (r Registry) Names() []string {
	out := make([]string, len(r))
	for i, d := range r {
		out[i] = d.Name
	}
	return out
}

// Split returns the gating descriptors followed by the rest, each group
// in registry order.
func (r Registry) Split() (primary, secondary Registry) {
	for _, d := range r {
		if d.Primary {
			primary = append(primary, d)
		} else {
			secondary = append(secondary, d)
		}
	}
	return primary, secondary
}

// Validate checks names are unique and every descriptor is usable.
func (r Registry) Validate() error {
	seen := make(map[string]bool, len(r))
	for _, d := range r {
		if d.Name == "" {
			return fmt.Errorf("modality with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate modality %q", d.Name)
		}
		seen[d.Name] = true
		if d.SampleRate < 0 {
			return fmt.Errorf("modality %q: negative sample rate", d.Name)
		}
		if d.Strategy == Sparse && d.MaxGap <= 0 {
			return fmt.Errorf("modality %q: sparse modality needs a positive max gap", d.Name)
		}
		if d.Strategy == IndexAligned {
			if _, err := (timeline.Event{}).Frame(d.indexColumn()); err != nil {
				return fmt.Errorf("modality %q: %w", d.Name, err)
			}
		}
	}
	return nil
}

// DefaultRegistry is the modality table of the navigation study rig.
func DefaultRegistry() Registry {
	return Registry{
		{Name: "np", Strategy: IndexAligned, SampleRate: 250, Primary: true},
		{Name: "chestphone_acc", Strategy: TimestampAligned, SampleRate: 100},
		{Name: "chestphone_gyro", Strategy: TimestampAligned, SampleRate: 50},
		{Name: "chestphone_mag", Strategy: TimestampAligned, SampleRate: 50},
		{Name: "chestphone_gps", Strategy: Sparse, MaxGap: 7 * time.Second},
		{Name: "chestphone_light", Strategy: Sparse, SampleRate: 10, MaxGap: 100 * time.Millisecond},
		{Name: "pupilphone_acc", Strategy: TimestampAligned, SampleRate: 100},
		{Name: "pupilphone_gyro", Strategy: TimestampAligned, SampleRate: 50},
		{Name: "pupilphone_mag", Strategy: TimestampAligned, SampleRate: 50},
		{Name: "pupilphone_gps", Strategy: Sparse, MaxGap: 7 * time.Second},
		{Name: "xs_CoM", Strategy: TimestampAligned, SampleRate: 100},
	}
}
