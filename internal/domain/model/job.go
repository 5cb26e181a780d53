package model

import (
	"time"

	"github.com/beenjammin/basgra/internal/domain/schema"
)

// JobStatus is the lifecycle state of a submitted simulation.
type JobStatus string

// Job states. A job moves queued -> running -> succeeded or failed.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Finished reports whether s is a terminal state.
func (s JobStatus) Finished() bool {
	return s == JobSucceeded || s == JobFailed
}

// Request is one simulation submitted by a client. Params stays a raw map
// so the validator can name missing and unknown keys.
type Request struct {
	RequestID   string             // optional client key for idempotent submission
	Params      map[string]float64 // parameter key to value
	Weather     *Frame
	Harvest     *Frame
	Irrigation  []int // day-of-year values in [0, 366]
	PETMode     schema.PETMode
	HarvestMode schema.HarvestMode
	Verbose     bool
}

// Job tracks a Request through the worker pool.
type Job struct {
	ID          string
	RequestID   string
	Status      JobStatus
	Output      *SimulationOutput
	Error       string
	ErrorKind   string
	Check       string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Task is the payload carried by the job queue.
type Task struct {
	JobID   string
	Request *Request
}
