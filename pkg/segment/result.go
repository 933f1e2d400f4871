package segment

import (
	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Result is the outcome of processing one interval. Err is set when the
// interval failed outright; Outcomes then holds what was evaluated before the
// failure.
type Result struct {
	Interval timeline.Interval
	Outcomes []modality.Outcome
	// Persist is false once a gating modality was missing.
	Persist bool
	// Gated lists the gating modalities that were missing.
	Gated []string
	Err   error
}

func (r *Result) add(o modality.Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

func (r *Result) gate(name string) {
	r.Persist = false
	r.Gated = append(r.Gated, name)
}

// Modalities is the number of outputs written for the interval.
func (r Result) Modalities() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Outputs()
	}
	return n
}

// Missing lists the modalities classified missing, in evaluation order.
func (r Result) Missing() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.IsMissing() {
			out = append(out, o.Modality)
		}
	}
	return out
}

// Succeeded reports whether the named modality was persisted.
func (r Result) Succeeded(name string) bool {
	for _, o := range r.Outcomes {
		if o.Modality == name {
			return o.Succeeded()
		}
	}
	return false
}
