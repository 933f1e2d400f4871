package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leowmjw/go-walk-sync/pkg/segment"
)

const ledgerSchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	walk       TEXT NOT NULL,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS interval_stats (
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	event_index INTEGER NOT NULL,
	label       TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	modalities  INTEGER NOT NULL,
	missing     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, event_index)
);

CREATE TABLE IF NOT EXISTS rejected_events (
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	event_index INTEGER NOT NULL,
	label       TEXT NOT NULL,
	reason      TEXT NOT NULL,
	time_label  TEXT NOT NULL,
	PRIMARY KEY (run_id, event_index)
);

CREATE TABLE IF NOT EXISTS label_totals (
	run_id   TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	label    TEXT NOT NULL,
	total_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, label)
);

CREATE TABLE IF NOT EXISTS missing_counts (
	run_id   TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	modality TEXT NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, modality)
);

CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(subject, walk);
`

// SQLiteLedger stores ledgers of many runs in one database.
type SQLiteLedger struct {
	conn *sql.DB
}

var _ LedgerWriter = (*SQLiteLedger)(nil)

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLiteLedger, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(ledgerSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &SQLiteLedger{conn: conn}, nil
}

// Close closes the underlying connection.
func (s *SQLiteLedger) Close() error {
	return s.conn.Close()
}

// WriteLedgers replaces everything stored for meta.RunID in one transaction.
func (s *SQLiteLedger) WriteLedgers(ctx context.Context, meta RunMeta, l segment.Ledgers) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, meta.RunID); err != nil {
		return fmt.Errorf("ledger: clear run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, subject, walk, started_at) VALUES (?, ?, ?, ?)`,
		meta.RunID, meta.Subject, meta.Walk, meta.Started.UTC()); err != nil {
		return fmt.Errorf("ledger: insert run: %w", err)
	}

	for _, st := range l.Stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interval_stats (run_id, event_index, label, duration_ms, modalities, missing) VALUES (?, ?, ?, ?, ?, ?)`,
			meta.RunID, st.Index, st.Label, st.Duration.Milliseconds(), st.Modalities, strings.Join(st.Missing, ", ")); err != nil {
			return fmt.Errorf("ledger: insert interval %d: %w", st.Index, err)
		}
	}
	for _, r := range l.Rejected {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rejected_events (run_id, event_index, label, reason, time_label) VALUES (?, ?, ?, ?, ?)`,
			meta.RunID, r.Index, r.Label, r.Reason, r.Time.String()); err != nil {
			return fmt.Errorf("ledger: insert rejected %d: %w", r.Index, err)
		}
	}
	for _, t := range l.LabelTotal {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO label_totals (run_id, label, total_ms) VALUES (?, ?, ?)`,
			meta.RunID, t.Label, t.Total.Milliseconds()); err != nil {
			return fmt.Errorf("ledger: insert label total %s: %w", t.Label, err)
		}
	}
	for _, m := range l.Missing {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO missing_counts (run_id, modality, count) VALUES (?, ?, ?)`,
			meta.RunID, m.Modality, m.Count); err != nil {
			return fmt.Errorf("ledger: insert missing count %s: %w", m.Modality, err)
		}
	}
	return tx.Commit()
}

// MissingTotals sums the missing counts of every run of a subject.
func (s *SQLiteLedger) MissingTotals(ctx context.Context, subject string) (map[string]int, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT m.modality, SUM(m.count)
		FROM missing_counts m JOIN runs r ON r.run_id = m.run_id
		WHERE r.subject = ?
		GROUP BY m.modality`, subject)
	if err != nil {
		return nil, fmt.Errorf("ledger: query missing totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var modality string
		var count int
		if err := rows.Scan(&modality, &count); err != nil {
			return nil, fmt.Errorf("ledger: scan missing totals: %w", err)
		}
		out[modality] = count
	}
	return out, rows.Err()
}

// IntervalCount returns how many statistics rows a run stored.
func (s *SQLiteLedger) IntervalCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM interval_stats WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ledger: count intervals: %w", err)
	}
	return n, nil
}
