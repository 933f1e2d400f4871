package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leowmjw/go-walk-sync/pkg/segment"
)

// Ledger file names written into the session output directory.
const (
	StatsFile        = "index_stats.csv"
	RejectedFile     = "greped_index.csv"
	LabelTimeFile    = "cal_label_time.csv"
	MissingCountFile = "missing_label_cnt.csv"
)

// RunMeta identifies the run that produced a set of ledgers.
type RunMeta struct {
	RunID   string
	Subject string
	Walk    string
	Started time.Time
}

// LedgerWriter flushes the ledgers of a finished run.
type LedgerWriter interface {
	WriteLedgers(ctx context.Context, meta RunMeta, l segment.Ledgers) error
}

// CSVLedger writes the four ledgers as CSV files into a directory.
type CSVLedger struct {
	dir string
}

// NewCSVLedger writes into dir, which must exist.
func NewCSVLedger(dir string) *CSVLedger {
	return &CSVLedger{dir: dir}
}

// Files returns the paths WriteLedgers produces.
func (c *CSVLedger) Files() []string {
	names := []string{StatsFile, RejectedFile, LabelTimeFile, MissingCountFile}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(c.dir, n)
	}
	return out
}

func (c *CSVLedger) WriteLedgers(_ context.Context, _ RunMeta, l segment.Ledgers) error {
	stats := [][]string{{"Index", "Label", "Duration", "Num of Modalities", "Missing Modalities"}}
	for _, s := range l.Stats {
		stats = append(stats, []string{
			strconv.Itoa(s.Index),
			s.Label,
			FormatDuration(s.Duration),
			strconv.Itoa(s.Modalities),
			strings.Join(s.Missing, ", "),
		})
	}

	rejected := [][]string{{"Index", "Label", "Grep Reason", "Time Label"}}
	for _, r := range l.Rejected {
		rejected = append(rejected, []string{strconv.Itoa(r.Index), r.Label, r.Reason, r.Time.String()})
	}

	totals := [][]string{{"Label", "Total Time in Walk"}}
	for _, t := range l.LabelTotal {
		totals = append(totals, []string{t.Label, FormatDuration(t.Total)})
	}

	missing := [][]string{{"Modality", "Missing Count"}}
	for _, m := range l.Missing {
		missing = append(missing, []string{m.Modality, strconv.Itoa(m.Count)})
	}

	for name, records := range map[string][][]string{
		StatsFile:        stats,
		RejectedFile:     rejected,
		LabelTimeFile:    totals,
		MissingCountFile: missing,
	} {
		if err := writeCSV(filepath.Join(c.dir, name), records); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// FormatDuration renders d as H:MM:SS with a six digit fraction when the
// duration is not whole seconds, e.g. 0:00:03.500000.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	out := fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	if us := d / time.Microsecond; us > 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	return out
}

// MultiLedger fans one flush out to several writers, stopping at the first
// error.
type MultiLedger []LedgerWriter

func (m MultiLedger) WriteLedgers(ctx context.Context, meta RunMeta, l segment.Ledgers) error {
	for _, w := range m {
		if err := w.WriteLedgers(ctx, meta, l); err != nil {
			return err
		}
	}
	return nil
}
