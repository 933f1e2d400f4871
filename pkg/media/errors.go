package media

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange = errors.New("invalid frame range")
	ErrMissingFile  = errors.New("media file not found")
)

// InvalidRangeError reports frame bounds that cannot be sliced.
type InvalidRangeError struct {
	Start, End int
	Reason     string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s [%d, %d): %s", ErrInvalidRange, e.Start, e.End, e.Reason)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// MissingFileError reports a source container that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingFile, e.Path)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }
