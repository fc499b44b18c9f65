// Package history persists one row per completed validation so the team can
// review and export past verdicts. Recording is best-effort: a storage
// failure never blocks a validation response.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thelabelsunday/invoice-checker/constants"
)

// Entry is one recorded validation outcome.
type Entry struct {
	ID            string
	Source        string
	InvoiceType   constants.InvoiceType
	OverallStatus constants.OverallStatus
	ChecksTotal   int
	ChecksPassed  int
	Summary       string
	CreatedAt     time.Time
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS validations (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	invoice_type   TEXT NOT NULL,
	overall_status TEXT NOT NULL,
	checks_total   INTEGER NOT NULL,
	checks_passed  INTEGER NOT NULL,
	summary        TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validations_created_at ON validations (created_at);
`

// Store is a sqlite-backed validation log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one validation row.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validations (id, source, invoice_type, overall_status, checks_total, checks_passed, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, string(e.InvoiceType), string(e.OverallStatus),
		e.ChecksTotal, e.ChecksPassed, e.Summary, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	s.logger.Debug("history.record.ok", "id", e.ID, "status", string(e.OverallStatus))
	return nil
}

// List returns entries inside the optional [from, to] window, newest first.
func (s *Store) List(ctx context.Context, from, to *time.Time) ([]Entry, error) {
	query := `SELECT id, source, invoice_type, overall_status, checks_total, checks_passed, summary, created_at
		FROM validations WHERE 1=1`
	var args []any
	if from != nil {
		query += " AND created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND created_at <= ?"
		args = append(args, *to)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query validations: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logger.Warn("history.rows.close_error", "error", cerr.Error())
		}
	}()

	var out []Entry
	for rows.Next() {
		var e Entry
		var invoiceType, overallStatus string
		if err := rows.Scan(&e.ID, &e.Source, &invoiceType, &overallStatus,
			&e.ChecksTotal, &e.ChecksPassed, &e.Summary, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		e.InvoiceType = constants.InvoiceType(invoiceType)
		e.OverallStatus = constants.OverallStatus(overallStatus)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validations: %w", err)
	}
	return out, nil
}
