// Package repository keeps submitted simulation jobs and their results.
package repository

import (
	"context"

	"github.com/beenjammin/basgra/internal/domain/model"
)

// Stats counts jobs by status.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Evicted   int `json:"evicted"`
}

// Total returns the number of jobs currently held.
func (s Stats) Total() int { return s.Queued + s.Running + s.Succeeded + s.Failed }

// Store provides read/write access to job state.
type Store interface {
	// Create registers a queued job. When requestID is not empty and a job
	// with the same request id is still held, that job is returned with
	// created set to false.
	Create(ctx context.Context, jobID, requestID string) (job model.Job, created bool, err error)

	// Remove drops a job that never reached the queue.
	Remove(ctx context.Context, jobID string) error

	// MarkRunning moves a queued job to running.
	MarkRunning(ctx context.Context, jobID string) error

	// Complete finishes a running job with either its output or runErr.
	Complete(ctx context.Context, jobID string, out *model.SimulationOutput, runErr error) error

	// Get returns a copy of the job. Returns ErrNotFound if it is unknown
	// or has been evicted.
	Get(ctx context.Context, jobID string) (model.Job, error)

	// Stats returns job counts by status.
	Stats(ctx context.Context) Stats
}
