package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWalkBegin is returned before any processing when the event log
	// has no walk begin marker.
	ErrNoWalkBegin = errors.New(`event log has no "Walk Beg" marker`)

	ErrUnmatchedEnd = errors.New("corresponding end event missing")
)

// UnmatchedEndError reports a begin event with no terminating event.
type UnmatchedEndError struct {
	Index int
	Label string
}

func (e *UnmatchedEndError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUnmatchedEnd, e.Index, e.Label)
}

func (e *UnmatchedEndError) Unwrap() error { return ErrUnmatchedEnd }
