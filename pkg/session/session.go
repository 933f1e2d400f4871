// Package session loads the canonical extracted layout of one recording
// session into memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leowmjw/go-walk-sync/pkg/config"
	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/segment"
	"github.com/leowmjw/go-walk-sync/pkg/store"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Session is one subject walk, fully loaded.
type Session struct {
	Subject string
	Walk    string
	Events  timeline.EventLog
	Streams modality.Set
	Videos  map[string]string
}

// Input returns the driver input for the session.
func (s *Session) Input() segment.Input {
	return segment.Input{Events: s.Events, Streams: s.Streams, Videos: s.Videos}
}

// Loader reads sessions according to the configured layout.
type Loader struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Load reads the event log and every configured stream. A missing optional
// stream is logged and left out; any other read failure is returned.
func (l *Loader) Load(ctx context.Context, subject, walk string) (*Session, error) {
	inputDir := config.Resolve(l.cfg.Paths.Input, subject, walk)
	eventLog := config.Resolve(l.cfg.Paths.EventLog, subject, walk)

	events, err := openAndRead(eventLog, ReadEventLog)
	if err != nil {
		return nil, fmt.Errorf("failed to load event log %s: %w", eventLog, err)
	}

	s := &Session{
		Subject: subject,
		Walk:    walk,
		Events:  events,
		Streams: make(modality.Set, len(l.cfg.Modalities)),
		Videos:  make(map[string]string, len(l.cfg.Videos)),
	}

	reg, err := l.cfg.Registry()
	if err != nil {
		return nil, err
	}
	resample := l.cfg.ResampleOptions()

	for i, m := range l.cfg.Modalities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stream, err := l.loadStream(inputDir, m)
		if errors.Is(err, fs.ErrNotExist) && m.Optional {
			l.logger.Warn("Modality not recorded", "modality", m.Name, "file", m.File)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load modality %s: %w", m.Name, err)
		}
		if err := stream.Validate(); err != nil {
			return nil, err
		}
		if reg[i].Strategy != modality.IndexAligned && stream.Times == nil {
			return nil, fmt.Errorf("modality %s: %s strategy needs a time file", m.Name, reg[i].Strategy)
		}
		if m.Resample {
			before := stream.Len()
			stream = stream.Resample(resample)
			l.logger.Debug("Stream resampled", "modality", m.Name, "before", before, "after", stream.Len())
		}
		s.Streams[m.Name] = stream
	}

	for _, v := range l.cfg.Videos {
		path := filepath.Join(inputDir, v.File)
		if _, err := os.Stat(path); err != nil {
			l.logger.Warn("Video not found", "video", v.Name, "file", path)
		}
		s.Videos[v.Name] = path
	}

	l.logger.Info("Session loaded",
		"subject", subject,
		"walk", walk,
		"events", len(events),
		"streams", len(s.Streams))
	return s, nil
}

func (l *Loader) loadStream(dir string, m config.ModalityConfig) (*modality.Stream, error) {
	path := filepath.Join(dir, m.File)

	var stream *modality.Stream
	switch m.Format {
	case config.FormatPhone, config.FormatGPS:
		gps := m.Format == config.FormatGPS
		return openAndRead(path, func(r io.Reader) (*modality.Stream, error) {
			return ReadPhoneCSV(m.Name, r, gps)
		})

	case config.FormatNPY:
		rows, err := store.ReadMatrix(path)
		if err != nil {
			return nil, err
		}
		stream = &modality.Stream{Name: m.Name, Data: rows}

	case config.FormatCSV:
		rows, err := openAndRead(path, func(r io.Reader) ([][]float64, error) {
			return ReadTableCSV(m.Name, r)
		})
		if err != nil {
			return nil, err
		}
		stream = &modality.Stream{Name: m.Name, Data: rows}

	default:
		return nil, fmt.Errorf("unknown format %q", m.Format)
	}

	if m.TimeFile != "" {
		times, err := ReadTimes(filepath.Join(dir, m.TimeFile))
		if err != nil {
			return nil, err
		}
		stream.Times = times
	}
	return stream, nil
}
