// Package audit persists import pass history to PostgreSQL.
//
// The store is optional: when no database is configured the service runs
// without history and every method on a nil *Store is a no-op. A pass record
// captures the aggregate counters plus the full per-row outcome list as JSON,
// so a rejected upload can be diagnosed after the fact.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poskit/backoffice/internal/importer"
)

// PassRecord is one stored import pass.
type PassRecord struct {
	ID        string                `json:"id"`
	FileName  string                `json:"fileName"`
	Condition string                `json:"condition"`
	TotalRows int                   `json:"totalRows"`
	Inserted  int                   `json:"inserted"`
	Updated   int                   `json:"updated"`
	Rejected  int                   `json:"rejected"`
	Outcomes  []importer.RowOutcome `json:"outcomes,omitempty"`
	Duration  time.Duration         `json:"duration"`
	CreatedAt time.Time             `json:"createdAt"`
}

// Store records import passes in the import_pass table.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, databaseURL string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := New(pool)
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool. Safe on a nil store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Enabled reports whether the store is backed by a database.
func (s *Store) Enabled() bool {
	return s != nil && s.pool != nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS import_pass (
	id          UUID PRIMARY KEY,
	file_name   TEXT NOT NULL DEFAULT '',
	condition   TEXT NOT NULL,
	total_rows  INTEGER NOT NULL,
	inserted    INTEGER NOT NULL,
	updated     INTEGER NOT NULL,
	rejected    INTEGER NOT NULL,
	outcomes    JSONB,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS import_pass_created_at_idx ON import_pass (created_at DESC);`

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure import_pass schema: %w", err)
	}
	return nil
}

// RecordPass stores the result of one import pass. No-op on a nil store.
func (s *Store) RecordPass(ctx context.Context, report *importer.Report) error {
	if !s.Enabled() {
		return nil
	}

	outcomes, err := json.Marshal(report.Outcomes)
	if err != nil {
		// Counters are still worth keeping when the detail list fails to
		// serialize.
		outcomes = nil
	}

	const q = `
INSERT INTO import_pass (id, file_name, condition, total_rows, inserted, updated, rejected, outcomes, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.pool.Exec(ctx, q,
		report.PassID,
		report.FileName,
		string(report.Condition),
		report.TotalRows,
		report.Inserted,
		report.Updated,
		report.Rejected,
		outcomes,
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record import pass: %w", err)
	}
	return nil
}

// ListRecent returns the newest passes, most recent first. A nil store
// returns an empty list.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]PassRecord, error) {
	if !s.Enabled() {
		return []PassRecord{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT id, file_name, condition, total_rows, inserted, updated, rejected, outcomes, duration_ms, created_at
FROM import_pass
ORDER BY created_at DESC
LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list import passes: %w", err)
	}
	defer rows.Close()

	records := make([]PassRecord, 0, limit)
	for rows.Next() {
		var (
			rec        PassRecord
			id         pgtype.UUID
			outcomes   []byte
			durationMS int64
			createdAt  pgtype.Timestamptz
		)
		err := rows.Scan(&id, &rec.FileName, &rec.Condition,
			&rec.TotalRows, &rec.Inserted, &rec.Updated, &rec.Rejected,
			&outcomes, &durationMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan import pass: %w", err)
		}

		rec.ID = uuidString(id)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.CreatedAt = createdAt.Time
		if outcomes != nil {
			_ = json.Unmarshal(outcomes, &rec.Outcomes)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import passes: %w", err)
	}
	return records, nil
}

// GetPass returns one stored pass by id.
func (s *Store) GetPass(ctx context.Context, id string) (*PassRecord, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("import history is not configured")
	}

	const q = `
SELECT id, file_name, condition, total_rows, inserted, updated, rejected, outcomes, duration_ms, created_at
FROM import_pass
WHERE id = $1`

	var (
		rec        PassRecord
		pgID       pgtype.UUID
		outcomes   []byte
		durationMS int64
		createdAt  pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&pgID, &rec.FileName, &rec.Condition,
		&rec.TotalRows, &rec.Inserted, &rec.Updated, &rec.Rejected,
		&outcomes, &durationMS, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("get import pass %s: %w", id, err)
	}

	rec.ID = uuidString(pgID)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = createdAt.Time
	if outcomes != nil {
		_ = json.Unmarshal(outcomes, &rec.Outcomes)
	}
	return &rec, nil
}

// uuidString renders a pgtype.UUID in canonical form, empty when invalid.
func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	b := u.Bytes
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
