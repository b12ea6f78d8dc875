// Package jobs tracks asynchronous generation requests by task id.
//
// Entries expire after a TTL. The memory store evicts them with a janitor
// goroutine; the redis store lets the server expire keys.
package jobs

import (
	"context"
	"time"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// Job is the status record of one generation request.
type Job struct {
	TaskID    string        `json:"taskId"`
	State     model.State   `json:"state"`
	Result    *model.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store persists jobs keyed by task id.
type Store interface {
	// Put inserts or replaces a job and restarts its TTL.
	Put(ctx context.Context, job *Job) error
	// Get returns an apperr.KindNotFound error for unknown or expired ids.
	Get(ctx context.Context, taskID string) (*Job, error)
	Delete(ctx context.Context, taskID string) error
	// Sweep evicts expired jobs and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	Close() error
}

func notFound(taskID string) error {
	return apperr.Newf(apperr.KindNotFound, "job '%s' not found", taskID)
}
