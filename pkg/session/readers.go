package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/store"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// Event log column names.
const (
	EventColumn = "Event"
	NTPColumn   = "NTP"
)

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ReadEventLog parses the annotated event log. NTP holds seconds in the
// acquisition epoch; frame and sample columns may be written as floats.
// PupilFrame and GoProFrame are optional.
func ReadEventLog(r io.Reader) (timeline.EventLog, error) {
	cr := newCSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read event log header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{EventColumn, NTPColumn, timeline.NPSampleColumn} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("event log is missing column %q", required)
		}
	}

	var log timeline.EventLog
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event log line %d: %w", line, err)
		}

		field := func(name string) (string, bool) {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return "", false
			}
			return strings.TrimSpace(rec[i]), true
		}

		label, _ := field(EventColumn)
		ntpText, _ := field(NTPColumn)
		ntp, err := strconv.ParseFloat(ntpText, 64)
		if err != nil {
			return nil, fmt.Errorf("event log line %d: invalid NTP %q: %w", line, ntpText, err)
		}
		ts, err := timeline.DecodeSeconds(ntp)
		if err != nil {
			return nil, fmt.Errorf("event log line %d: %w", line, err)
		}

		ev := timeline.Event{Index: len(log), Label: label, Timestamp: ts}
		for name, dst := range map[string]*int{
			timeline.PupilFrameColumn: &ev.PupilFrame,
			timeline.GoProFrameColumn: &ev.GoProFrame,
			timeline.NPSampleColumn:   &ev.NPSample,
		} {
			text, ok := field(name)
			if !ok || text == "" {
				continue
			}
			v, err := parseIndex(text)
			if err != nil {
				return nil, fmt.Errorf("event log line %d: column %s: %w", line, name, err)
			}
			*dst = v
		}
		log = append(log, ev)
	}
	return log, nil
}

func parseIndex(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return int(f), nil
}

// ReadPhoneCSV parses a headerless phone sensor export: a formatted
// timestamp followed by the sample values. With gps set the value columns
// carry "Lat: " and "Long: " prefixes.
func ReadPhoneCSV(name string, r io.Reader, gps bool) (*modality.Stream, error) {
	cr := newCSVReader(r)
	s := &modality.Stream{Name: name, Times: []timeline.Timestamp{}}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s line %d: expected a timestamp and at least one value", name, line)
		}

		ts, err := timeline.ParseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		values := rec[1:]
		if gps {
			if len(values) < 2 {
				return nil, fmt.Errorf("%s line %d: expected latitude and longitude", name, line)
			}
			values = []string{trimLabel(values[0], "Lat:"), trimLabel(values[1], "Long:")}
		}
		row, err := parseFloats(values)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		s.Times = append(s.Times, ts)
		s.Data = append(s.Data, row)
	}
	return s, nil
}

func trimLabel(s, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), prefix))
}

func parseFloats(fields []string) ([]float64, error) {
	row := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", f)
		}
		row[i] = v
	}
	return row, nil
}

// ReadTableCSV parses a CSV with a header row whose first column is a frame
// counter and is dropped.
func ReadTableCSV(name string, r io.Reader) ([][]float64, error) {
	cr := newCSVReader(r)
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}
	var rows [][]float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s line %d: expected at least two columns", name, line)
		}
		row, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadTimes loads a .npy vector of NTP seconds and decodes every entry.
func ReadTimes(path string) ([]timeline.Timestamp, error) {
	seconds, err := store.ReadVector(path)
	if err != nil {
		return nil, err
	}
	out := make([]timeline.Timestamp, len(seconds))
	for i, s := range seconds {
		ts, err := timeline.DecodeSeconds(s)
		if err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", path, i, err)
		}
		out[i] = ts
	}
	return out, nil
}

func openAndRead[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return read(f)
}
