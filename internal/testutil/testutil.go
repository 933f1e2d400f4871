// Package testutil writes small synthetic recording sessions for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sbinet/npyio"

	"github.com/leowmjw/go-walk-sync/pkg/config"
	"github.com/leowmjw/go-walk-sync/pkg/store"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// SessionStart is the wall-clock start of every synthetic session.
var SessionStart = timeline.MustParseTimestamp("2024-01-09_14-00-00-000")

// sessionStartSeconds is SessionStart in NTP seconds of the acquisition
// epoch (day 739260).
const sessionStartSeconds = 739260*86400 + 14*3600

// At returns SessionStart shifted by offset seconds.
func At(offset float64) timeline.Timestamp {
	return timeline.NewTimestamp(SessionStart.Time().Add(time.Duration(offset * float64(time.Second))))
}

// NTP encodes offset seconds after SessionStart the way the event log does.
// Half a millisecond is added so decoding never lands below the intended
// millisecond.
func NTP(offset float64) float64 {
	return sessionStartSeconds + offset + 0.0005
}

// Event is one row of a synthetic event log.
type Event struct {
	Label    string
	Offset   float64
	NPSample int // -1 derives it from Offset at 250 Hz
}

// DefaultEvents is a walk with one good interval, one point event and one
// neural dropout, framed by rejected events.
func DefaultEvents() []Event {
	return []Event{
		{Label: "Calibration", Offset: 0.5, NPSample: -1},
		{Label: "Walk Beg", Offset: 1, NPSample: -1},
		{Label: "Lost Beg", Offset: 3, NPSample: -1},
		{Label: "Lost End", Offset: 6, NPSample: -1},
		{Label: "Doorway", Offset: 8, NPSample: -1},
		{Label: "Stop Beg", Offset: 10, NPSample: 2500},
		{Label: "Stop End", Offset: 12, NPSample: 2500},
		{Label: "Walk End", Offset: 18, NPSample: -1},
	}
}

// Seconds is the length of every synthetic stream.
const Seconds = 20

// WriteSession writes a complete session for subject/walk under root and
// returns a config pointing at it. pupilphone_gyro is left out so the
// session has one unrecorded optional stream.
func WriteSession(t *testing.T, root, subject, walk string, events []Event) *config.Config {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Paths = config.PathsConfig{
		Input:    filepath.Join(root, "RW{subject}", "RW{subject}-Walk{walk}-extracted"),
		Output:   filepath.Join(root, "synchronized", "RW{subject}", "RW{subject}-Walk{walk}"),
		EventLog: filepath.Join(root, "labels", "evnts_RW{subject}_Walk{walk}.csv"),
	}
	input := config.Resolve(cfg.Paths.Input, subject, walk)
	require(t, os.MkdirAll(input, 0o755))

	writeEventLog(t, config.Resolve(cfg.Paths.EventLog, subject, walk), events)

	np, err := store.NewFS(input)
	require(t, err)
	npRows := make([][]float64, Seconds*250)
	for i := range npRows {
		npRows[i] = []float64{float64(i), -float64(i)}
	}
	_, err = np.Save("data_np", npRows)
	require(t, err)

	for _, phone := range []string{"chest", "pupil"} {
		for sensor, hz := range map[string]int{"acc": 100, "gyro": 50, "mag": 50} {
			if phone == "pupil" && sensor == "gyro" {
				continue
			}
			writePhone(t, filepath.Join(input, fmt.Sprintf("data_%s_phone_%s.csv", phone, sensor)), hz, 3, false)
		}
		writePhone(t, filepath.Join(input, fmt.Sprintf("data_%s_phone_gps.csv", phone)), 2, 2, true)
	}
	writePhone(t, filepath.Join(input, "data_chest_phone_light.csv"), 10, 1, false)

	writeXsens(t, input)

	for _, video := range []string{"data_video_gopro.mp4", "data_video_pupil.mp4"} {
		require(t, os.WriteFile(filepath.Join(input, video), []byte("video"), 0o644))
	}
	return cfg
}

func writeEventLog(t *testing.T, path string, events []Event) {
	require(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var b strings.Builder
	b.WriteString("Event,Description,PupilFrame,GoProFrame,NPSample,NTP\n")
	for _, e := range events {
		np := e.NPSample
		if np < 0 {
			np = int(e.Offset * 250)
		}
		fmt.Fprintf(&b, "%s,,%d,%d,%d.0,%.6f\n", e.Label, int(e.Offset*30), int(e.Offset*60), np, NTP(e.Offset))
	}
	require(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writePhone(t *testing.T, path string, hz, width int, gps bool) {
	var b strings.Builder
	step := time.Second / time.Duration(hz)
	for i := 0; i < Seconds*hz; i++ {
		ts := timeline.NewTimestamp(SessionStart.Time().Add(time.Duration(i) * step))
		b.WriteString(ts.String())
		if gps {
			fmt.Fprintf(&b, ",Lat: %.6f,Long: %.6f", 40.0+float64(i)*1e-5, -74.0-float64(i)*1e-5)
		} else {
			for c := 0; c < width; c++ {
				fmt.Fprintf(&b, ",%d", i*10+c)
			}
		}
		b.WriteString("\n")
	}
	require(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writeXsens(t *testing.T, dir string) {
	var b strings.Builder
	b.WriteString("Frame,CoM pos x,CoM pos y,CoM pos z\n")
	times := make([]float64, Seconds*100)
	for i := range times {
		fmt.Fprintf(&b, "%d,%d,%d,%d\n", i, i, 2*i, 3*i)
		times[i] = NTP(float64(i) / 100)
	}
	require(t, os.WriteFile(filepath.Join(dir, "data_xs_Center-of-Mass.csv"), []byte(b.String()), 0o644))

	f, err := os.Create(filepath.Join(dir, "time_xs.npy"))
	require(t, err)
	defer f.Close()
	require(t, npyio.Write(f, times))
}

func require(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
