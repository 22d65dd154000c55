// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists finished generation runs in a SQLite database so
// operators can review past requests, outcomes and timing.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

const defaultMaxRows = 200

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	CreatedAt  time.Time
	GameTitle  string
	Locale     string
	Mode       string
	Status     string // "complete" or "error"
	Error      string
	Request    types.GenerationRequest
	Fields     map[string]string
	Citations  []types.Citation
	Statistics types.Statistics
}

// Store manages the run-history SQLite database.
type Store struct {
	db      *sql.DB
	maxRows int
}

// NewStore opens or creates the history database at cfg.Path, creating the
// schema if it does not exist. Older rows beyond cfg.MaxRows are pruned on
// each insert.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	s := &Store{db: db, maxRows: maxRows}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			game_title TEXT NOT NULL,
			locale TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			request TEXT NOT NULL,
			fields TEXT,
			citations TEXT,
			statistics TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordComplete stores a successful run and returns its generated ID.
func (s *Store) RecordComplete(ctx context.Context, req types.GenerationRequest, result *types.GenerationResult) (string, error) {
	run := Run{
		GameTitle:  req.GameTitle,
		Locale:     req.Locale,
		Mode:       string(req.Mode),
		Status:     "complete",
		Request:    req,
		Fields:     result.Fields,
		Citations:  result.Citations,
		Statistics: result.Statistics,
	}
	return s.insert(ctx, run)
}

// RecordError stores a failed run and returns its generated ID.
func (s *Store) RecordError(ctx context.Context, req types.GenerationRequest, runErr error) (string, error) {
	run := Run{
		GameTitle: req.GameTitle,
		Locale:    req.Locale,
		Mode:      string(req.Mode),
		Status:    "error",
		Error:     runErr.Error(),
		Request:   req,
	}
	return s.insert(ctx, run)
}

func (s *Store) insert(ctx context.Context, run Run) (string, error) {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	requestJSON, err := json.Marshal(run.Request)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	fieldsJSON, _ := json.Marshal(run.Fields)
	citationsJSON, _ := json.Marshal(run.Citations)
	statsJSON, _ := json.Marshal(run.Statistics)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, game_title, locale, mode, status, error, request, fields, citations, statistics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339Nano),
		run.GameTitle, run.Locale, run.Mode, run.Status, run.Error,
		string(requestJSON), string(fieldsJSON), string(citationsJSON), string(statsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	// Keep only the newest maxRows rows.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, s.maxRows)
	if err != nil {
		return "", fmt.Errorf("pruning old runs: %w", err)
	}

	return run.ID, tx.Commit()
}

// List returns the most recent runs, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > s.maxRows {
		limit = s.maxRows
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, game_title, locale, mode, status, error, request, fields, citations, statistics
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run by ID. It returns sql.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, game_title, locale, mode, status, error, request, fields, citations, statistics
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var createdAt, requestJSON, fieldsJSON, citationsJSON, statsJSON string
	err := row.Scan(&run.ID, &createdAt, &run.GameTitle, &run.Locale, &run.Mode,
		&run.Status, &run.Error, &requestJSON, &fieldsJSON, &citationsJSON, &statsJSON)
	if err != nil {
		return Run{}, err
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(requestJSON), &run.Request); err != nil {
		return Run{}, fmt.Errorf("parsing request: %w", err)
	}
	if fieldsJSON != "" && fieldsJSON != "null" {
		if err := json.Unmarshal([]byte(fieldsJSON), &run.Fields); err != nil {
			return Run{}, fmt.Errorf("parsing fields: %w", err)
		}
	}
	if citationsJSON != "" && citationsJSON != "null" {
		if err := json.Unmarshal([]byte(citationsJSON), &run.Citations); err != nil {
			return Run{}, fmt.Errorf("parsing citations: %w", err)
		}
	}
	if statsJSON != "" {
		if err := json.Unmarshal([]byte(statsJSON), &run.Statistics); err != nil {
			return Run{}, fmt.Errorf("parsing statistics: %w", err)
		}
	}
	return run, nil
}
