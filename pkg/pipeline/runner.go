// Package pipeline runs one recording session end to end: load, segment,
// extract and flush the ledgers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/leowmjw/go-walk-sync/pkg/config"
	"github.com/leowmjw/go-walk-sync/pkg/media"
	"github.com/leowmjw/go-walk-sync/pkg/modality"
	"github.com/leowmjw/go-walk-sync/pkg/segment"
	"github.com/leowmjw/go-walk-sync/pkg/session"
	"github.com/leowmjw/go-walk-sync/pkg/store"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

// SessionRequest names one subject walk.
type SessionRequest struct {
	Subject string `json:"subject"`
	Walk    string `json:"walk"`
}

func (r SessionRequest) String() string {
	return fmt.Sprintf("RW%s-Walk%s", r.Subject, r.Walk)
}

// Validate checks that both identifiers are set.
func (r SessionRequest) Validate() error {
	if r.Subject == "" || r.Walk == "" {
		return fmt.Errorf("subject and walk are required")
	}
	return nil
}

// Summary reports the outcome of one session run.
type Summary struct {
	RunID       string                 `json:"run_id"`
	Subject     string                 `json:"subject"`
	Walk        string                 `json:"walk"`
	OutputDir   string                 `json:"output_dir"`
	Events      int                    `json:"events"`
	Intervals   int                    `json:"intervals"`
	Rejected    int                    `json:"rejected"`
	Missing     map[string]int         `json:"missing,omitempty"`
	LabelTotals map[string]string      `json:"label_totals,omitempty"`
	LedgerFiles []string               `json:"ledger_files,omitempty"`
	Slices      []string               `json:"slices,omitempty"`
	DryRun      bool                   `json:"dry_run"`
	Elapsed     time.Duration          `json:"elapsed"`
	Rejections  []segment.Rejection    `json:"-"`
	Stats       []segment.IntervalStat `json:"-"`
}

// Runner wires config, loader, driver and ledger writers.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	prober     media.Prober
	transcoder media.Transcoder
	ledgers    []store.LedgerWriter
	progress   func(index int)
}

// Option configures a Runner.
type Option func(*Runner)

// WithProber replaces the ffprobe-backed video prober.
func WithProber(p media.Prober) Option {
	return func(r *Runner) { r.prober = p }
}

// WithTranscoder replaces the ffmpeg-backed transcoder.
func WithTranscoder(t media.Transcoder) Option {
	return func(r *Runner) { r.transcoder = t }
}

// WithLedgerWriter adds a writer that receives the ledgers of every run in
// addition to the configured ones.
func WithLedgerWriter(w store.LedgerWriter) Option {
	return func(r *Runner) { r.ledgers = append(r.ledgers, w) }
}

// WithProgress is called with the begin event index of every processed
// interval.
func WithProgress(fn func(index int)) Option {
	return func(r *Runner) { r.progress = fn }
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ff := media.NewFFmpeg(logger)
	r := &Runner{cfg: cfg, logger: logger, prober: ff, transcoder: ff}
	if cfg.Sync.DryRun {
		r.transcoder = &media.NopTranscoder{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// RunSession processes one session. Per-interval failures end up in the
// ledgers; only load failures, a log without a walk begin marker, ledger
// write failures and cancellation are returned.
func (r *Runner) RunSession(ctx context.Context, req SessionRequest) (*Summary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("runId", runID, "subject", req.Subject, "walk", req.Walk)

	outDir := config.Resolve(r.cfg.Paths.Output, req.Subject, req.Walk)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sess, err := session.NewLoader(r.cfg, logger).Load(ctx, req.Subject, req.Walk)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", req, err)
	}
	if sess.Events.IndexOf(segment.WalkBegin, 0) < 0 {
		return nil, fmt.Errorf("session %s: %w", req, segment.ErrNoWalkBegin)
	}

	sink, err := r.sink(outDir)
	if err != nil {
		return nil, err
	}
	driver, err := r.driver(sink, logger)
	if err != nil {
		return nil, err
	}

	rc, err := driver.Run(ctx, sess.Input())
	if err != nil {
		return nil, fmt.Errorf("failed to process session %s: %w", req, err)
	}
	ledgers := rc.Ledgers()

	meta := store.RunMeta{RunID: runID, Subject: req.Subject, Walk: req.Walk, Started: started}
	files, err := r.flush(ctx, outDir, meta, ledgers)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		RunID:       runID,
		Subject:     req.Subject,
		Walk:        req.Walk,
		OutputDir:   outDir,
		Events:      len(sess.Events),
		Intervals:   len(ledgers.Stats),
		Rejected:    len(ledgers.Rejected),
		Missing:     make(map[string]int, len(ledgers.Missing)),
		LabelTotals: make(map[string]string, len(ledgers.LabelTotal)),
		LedgerFiles: files,
		DryRun:      r.cfg.Sync.DryRun,
		Elapsed:     time.Since(started),
		Rejections:  ledgers.Rejected,
		Stats:       ledgers.Stats,
	}
	for _, m := range ledgers.Missing {
		sum.Missing[m.Modality] = m.Count
	}
	for _, l := range ledgers.LabelTotal {
		sum.LabelTotals[l.Label] = store.FormatDuration(l.Total)
	}
	if mem, ok := sink.(*store.Memory); ok {
		sum.Slices = mem.Names()
	}

	logger.Info("Session synchronized",
		"intervals", sum.Intervals,
		"rejected", sum.Rejected,
		"outputDir", outDir,
		"elapsed", sum.Elapsed)
	return sum, nil
}

// RunSessions processes sessions one after another. A failing session is
// logged and skipped; the returned error joins every failure.
func (r *Runner) RunSessions(ctx context.Context, reqs []SessionRequest) ([]*Summary, error) {
	var (
		out  []*Summary
		errs []error
	)
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		sum, err := r.RunSession(ctx, req)
		if err != nil {
			r.logger.Error("Session failed", "session", req.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		out = append(out, sum)
	}
	return out, errors.Join(errs...)
}

func (r *Runner) sink(outDir string) (segment.Output, error) {
	if r.cfg.Sync.DryRun {
		return store.NewMemory(), nil
	}
	fs, err := store.NewFS(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open output directory: %w", err)
	}
	return fs, nil
}

func (r *Runner) driver(out segment.Output, logger *slog.Logger) (*segment.Driver, error) {
	reg, err := r.cfg.Registry()
	if err != nil {
		return nil, err
	}

	var extOpts []modality.ExtractorOption
	if r.cfg.Sync.BinarySearch {
		extOpts = append(extOpts, modality.WithLocator(timeline.LocateSorted))
	}
	window := r.cfg.Window()
	extractor := modality.NewExtractor(out, window, logger, extOpts...)
	slicer := media.NewSlicer(r.prober, r.transcoder, window, r.cfg.Sync.FPS, logger)

	var opts []segment.Option
	if r.progress != nil {
		opts = append(opts, segment.WithProgress(r.progress))
	}
	return segment.NewDriver(segment.Config{
		Labels:      r.cfg.Sync.Labels,
		Modalities:  reg,
		Videos:      r.cfg.VideoSpecs(),
		FrameColumn: r.cfg.Sync.FrameColumn,
	}, extractor, slicer, out, logger, opts...)
}

// flush writes the ledgers to every configured writer and returns the CSV
// files written.
func (r *Runner) flush(ctx context.Context, outDir string, meta store.RunMeta, l segment.Ledgers) ([]string, error) {
	writers := store.MultiLedger(append([]store.LedgerWriter(nil), r.ledgers...))
	var files []string

	if r.cfg.Ledger.CSV {
		csvLedger := store.NewCSVLedger(outDir)
		writers = append(writers, csvLedger)
		files = csvLedger.Files()
	}
	if r.cfg.Ledger.SQLitePath != "" {
		db, err := store.OpenSQLite(r.cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		writers = append(writers, db)
	}

	if err := writers.WriteLedgers(ctx, meta, l); err != nil {
		return nil, fmt.Errorf("failed to write ledgers: %w", err)
	}
	r.logger.Info("Ledgers written", "runId", meta.RunID, "writers", len(writers))
	return files, nil
}
