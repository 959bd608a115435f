// Package ledger stores usage records and generation results in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/cost"
	"github.com/scribemark/feedback/migrations"
)

const (
	usageTable   = "usage_records"
	resultsTable = "generation_results"
)

var usageColumns = []string{
	"id", "trackable_type", "trackable_id", "user_id", "provider", "model",
	"request_type", "input_tokens", "output_tokens", "total_tokens",
	"cost_micro_units", "created_at",
}

// Store persists usage records and generation results.
// It implements cost.Ledger.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore wraps an already-migrated database.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "ledgerStore").Logger(),
	}
}

// Open opens (or creates) the SQLite database at path, applies migrations and
// returns a Store. ":memory:" is accepted for tests and dry runs.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewStore(db, logger), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertUsage implements cost.Ledger.
func (s *Store) InsertUsage(ctx context.Context, rec *cost.UsageRecord) error {
	query := sq.Insert(usageTable).
		Columns(usageColumns...).
		Values(
			rec.ID, rec.Trackable.Type, rec.Trackable.ID, rec.UserID, rec.Provider, rec.Model,
			rec.RequestType, rec.InputTokens, rec.OutputTokens, rec.TotalTokens,
			rec.CostMicroUnits, rec.CreatedAt.Unix(),
		)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// UsageFilter narrows ListUsage and Totals. Zero fields match everything.
type UsageFilter struct {
	TrackableType string
	TrackableID   string
	UserID        string
	Since         time.Time
	Limit         uint64
}

func (f UsageFilter) apply(q sq.SelectBuilder) sq.SelectBuilder {
	if f.TrackableType != "" {
		q = q.Where(sq.Eq{"trackable_type": f.TrackableType})
	}
	if f.TrackableID != "" {
		q = q.Where(sq.Eq{"trackable_id": f.TrackableID})
	}
	if f.UserID != "" {
		q = q.Where(sq.Eq{"user_id": f.UserID})
	}
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": f.Since.Unix()})
	}
	return q
}

// ListUsage returns usage records, newest first.
func (s *Store) ListUsage(ctx context.Context, filter UsageFilter) ([]cost.UsageRecord, error) {
	query := filter.apply(sq.Select(usageColumns...).From(usageTable)).
		OrderBy("created_at DESC", "rowid DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Rows close error can be ignored

	var out []cost.UsageRecord
	for rows.Next() {
		var rec cost.UsageRecord
		var createdAt int64
		if err := rows.Scan(
			&rec.ID, &rec.Trackable.Type, &rec.Trackable.ID, &rec.UserID, &rec.Provider, &rec.Model,
			&rec.RequestType, &rec.InputTokens, &rec.OutputTokens, &rec.TotalTokens,
			&rec.CostMicroUnits, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Total aggregates usage for one provider/model pair.
type Total struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Requests       int64  `json:"requests"`
	InputTokens    int64  `json:"input_tokens"`
	OutputTokens   int64  `json:"output_tokens"`
	CostMicroUnits int64  `json:"cost_micro_units"`
}

// Totals aggregates usage per provider and model.
func (s *Store) Totals(ctx context.Context, filter UsageFilter) ([]Total, error) {
	query := filter.apply(
		sq.Select(
			"provider", "model", "COUNT(*)",
			"COALESCE(SUM(input_tokens), 0)", "COALESCE(SUM(output_tokens), 0)",
			"COALESCE(SUM(cost_micro_units), 0)",
		).From(usageTable),
	).GroupBy("provider", "model").OrderBy("provider", "model")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Rows close error can be ignored

	var out []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Provider, &t.Model, &t.Requests, &t.InputTokens, &t.OutputTokens, &t.CostMicroUnits); err != nil {
			return nil, fmt.Errorf("scan usage total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Result is a validated generation result handed over for storage.
type Result struct {
	ID          string
	UseCase     string
	SubjectType string
	SubjectID   string
	UserID      string
	Model       string
	UsageID     string
	Payload     any
	CreatedAt   time.Time
}

// SaveResult stores a generation result as JSON.
func (s *Store) SaveResult(ctx context.Context, r Result) error {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var usageID any
	if r.UsageID != "" {
		usageID = r.UsageID
	}

	query := sq.Insert(resultsTable).
		Columns("id", "use_case", "subject_type", "subject_id", "user_id", "model", "usage_id", "result_json", "created_at").
		Values(r.ID, r.UseCase, r.SubjectType, r.SubjectID, r.UserID, r.Model, usageID, string(payload), createdAt.Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		s.logger.Error().Err(err).Str("result_id", r.ID).Msg("Failed to save generation result")
		return fmt.Errorf("insert generation result: %w", err)
	}
	return nil
}

// LatestResult loads the most recent stored result JSON for a subject and use case.
// Returns sql.ErrNoRows when there is none.
func (s *Store) LatestResult(ctx context.Context, useCase, subjectType, subjectID string) (json.RawMessage, error) {
	queryStr, args, err := sq.Select("result_json").
		From(resultsTable).
		Where(sq.Eq{"use_case": useCase, "subject_type": subjectType, "subject_id": subjectID}).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, queryStr, args...).Scan(&raw); err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Ensure Store implements cost.Ledger
var _ cost.Ledger = (*Store)(nil)
