// Package audit keeps a sqlite trail of generation requests and their results.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	task_id     TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	success     INTEGER NOT NULL,
	total_files INTEGER NOT NULL,
	config      TEXT NOT NULL,
	result      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
`

// Fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one audited generation.
type Record struct {
	TaskID    string                 `json:"taskId"`
	Config    model.GenerationConfig `json:"config"`
	Result    model.Result           `json:"result"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Recorder persists audit records.
type Recorder struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Recorder, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// sqlite serializes writers anyway; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Record stores rec, replacing an earlier record with the same task id.
func (r *Recorder) Record(ctx context.Context, rec Record) error {
	cfg, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	res, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generations (task_id, project_id, success, total_files, config, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.TaskID, rec.Config.ProjectID, rec.Result.Success, rec.Result.Summary.TotalFiles,
		string(cfg), string(res), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return apperr.Wrap(err, apperr.KindIO, "failed to record generation")
	}
	return nil
}

// Get returns the record for taskID.
func (r *Recorder) Get(ctx context.Context, taskID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT task_id, config, result, created_at FROM generations WHERE task_id = ?",
		taskID,
	)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "audit record '%s' not found", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}
	return rec, nil
}

// List returns the newest records first, at most limit of them.
func (r *Recorder) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT task_id, config, result, created_at FROM generations ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Record, error) {
	var (
		rec       Record
		cfg, res  string
		createdAt string
	)
	if err := s.Scan(&rec.TaskID, &cfg, &res, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfg), &rec.Config); err != nil {
		return nil, fmt.Errorf("corrupt config: %w", err)
	}
	if err := json.Unmarshal([]byte(res), &rec.Result); err != nil {
		return nil, fmt.Errorf("corrupt result: %w", err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp: %w", err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
