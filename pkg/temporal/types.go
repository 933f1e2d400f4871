package temporal

import (
	"fmt"
	"time"

	"github.com/leowmjw/go-walk-sync/pkg/pipeline"
)

const (
	// Workflow IDs
	SyncWorkflowIDPrefix  = "walk-sync-"
	BatchWorkflowIDPrefix = "walk-sync-batch-"

	// Activity names
	SyncSessionActivityName = "sync-session"

	// Default values
	DefaultTaskQueue        = "walk-sync"
	DefaultSessionTimeout   = 2 * time.Hour
	DefaultHeartbeatTimeout = 5 * time.Minute
)

// SyncRequest asks for one subject walk to be synchronized.
type SyncRequest struct {
	Subject string `json:"subject"`
	Walk    string `json:"walk"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// Session returns the pipeline request.
func (r SyncRequest) Session() pipeline.SessionRequest {
	return pipeline.SessionRequest{Subject: r.Subject, Walk: r.Walk}
}

// Validate checks the session identifiers.
func (r SyncRequest) Validate() error {
	return r.Session().Validate()
}

// SyncResult is the serializable outcome of one synchronized session.
type SyncResult struct {
	RunID       string            `json:"run_id"`
	Subject     string            `json:"subject"`
	Walk        string            `json:"walk"`
	OutputDir   string            `json:"output_dir"`
	Events      int               `json:"events"`
	Intervals   int               `json:"intervals"`
	Rejected    int               `json:"rejected"`
	Missing     map[string]int    `json:"missing,omitempty"`
	LabelTotals map[string]string `json:"label_totals,omitempty"`
	LedgerFiles []string          `json:"ledger_files,omitempty"`
	DryRun      bool              `json:"dry_run"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// NewSyncResult copies the reportable fields of a run summary.
func NewSyncResult(s *pipeline.Summary) *SyncResult {
	return &SyncResult{
		RunID:       s.RunID,
		Subject:     s.Subject,
		Walk:        s.Walk,
		OutputDir:   s.OutputDir,
		Events:      s.Events,
		Intervals:   s.Intervals,
		Rejected:    s.Rejected,
		Missing:     s.Missing,
		LabelTotals: s.LabelTotals,
		LedgerFiles: s.LedgerFiles,
		DryRun:      s.DryRun,
		Elapsed:     s.Elapsed,
	}
}

// BatchRequest synchronizes several sessions one after another.
type BatchRequest struct {
	BatchID  string        `json:"batch_id,omitempty"`
	Sessions []SyncRequest `json:"sessions"`
	DryRun   bool          `json:"dry_run,omitempty"`
}

// Validate checks every session of the batch.
func (b BatchRequest) Validate() error {
	if len(b.Sessions) == 0 {
		return fmt.Errorf("at least one session is required")
	}
	for i, s := range b.Sessions {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("session %d: %w", i, err)
		}
	}
	return nil
}

// SessionGrid returns one request per subject and walk combination, in
// subject-major order.
func SessionGrid(subjects, walks []string) []SyncRequest {
	out := make([]SyncRequest, 0, len(subjects)*len(walks))
	for _, s := range subjects {
		for _, w := range walks {
			out = append(out, SyncRequest{Subject: s, Walk: w})
		}
	}
	return out
}
