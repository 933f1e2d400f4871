package modality

// Status classifies one (interval, modality) extraction.
type Status int

const (
	// Missing means the modality has no usable data for the interval.
	Missing Status = iota
	// Present means the data is usable but output was suppressed for the
	// interval.
	Present
	// Persisted means the slice was written.
	Persisted
)

func (s Status) String() string {
	switch s {
	case Present:
		return "present"
	case Persisted:
		return "persisted"
	default:
		return "missing"
	}
}

// Outcome is the result of extracting one modality for one interval.
type Outcome struct {
	Modality string
	Status   Status
	Start    int
	End      int
	// Paths lists the files written; video+audio produces two.
	Paths []string
}

// Succeeded reports whether output was written.
func (o Outcome) Succeeded() bool { return o.Status == Persisted }

// IsMissing reports whether the modality counts as missing.
func (o Outcome) IsMissing() bool { return o.Status == Missing }

// Outputs is the number of files the outcome contributed.
func (o Outcome) Outputs() int {
	if o.Status != Persisted {
		return 0
	}
	return len(o.Paths)
}
