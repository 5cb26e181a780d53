package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/pkg/metrics"
)

// MemoryStore is an in-memory Store with bounded retention.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]*model.Job
	byRequest map[string]string // request id -> job id
	finished  []string          // job ids in completion order, oldest first
	evicted   int

	maxJobs               int
	metricsUpdateInterval time.Duration
	now                   func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a job store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs:                  make(map[string]*model.Job),
		byRequest:             make(map[string]string),
		maxJobs:               defaultMaxJobs,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		now:                   time.Now,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Create implements Store.Create.
func (s *MemoryStore) Create(_ context.Context, jobID, requestID string) (model.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requestID != "" {
		if id, ok := s.byRequest[requestID]; ok {
			return *s.jobs[id], false, nil
		}
	}
	if _, ok := s.jobs[jobID]; ok {
		return model.Job{}, false, fmt.Errorf("job %s already exists", jobID)
	}
	if len(s.jobs) >= s.maxJobs && !s.evictOldestLocked() {
		return model.Job{}, false, ErrStoreFull
	}

	j := &model.Job{
		ID:          jobID,
		RequestID:   requestID,
		Status:      model.JobQueued,
		SubmittedAt: s.now(),
	}
	s.jobs[jobID] = j
	if requestID != "" {
		s.byRequest[requestID] = jobID
	}
	return *j, true, nil
}

// Remove implements Store.Remove.
func (s *MemoryStore) Remove(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return ErrNotFound
	}
	s.dropLocked(jobID)
	return nil
}

// MarkRunning implements Store.MarkRunning.
func (s *MemoryStore) MarkRunning(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.Status != model.JobQueued {
		return fmt.Errorf("%w: %s is %s", ErrTransition, jobID, j.Status)
	}
	j.Status = model.JobRunning
	j.StartedAt = s.now()
	return nil
}

// Complete implements Store.Complete.
func (s *MemoryStore) Complete(_ context.Context, jobID string, out *model.SimulationOutput, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.Status.Finished() {
		return fmt.Errorf("%w: %s is %s", ErrTransition, jobID, j.Status)
	}
	j.FinishedAt = s.now()
	if runErr != nil {
		j.Status = model.JobFailed
		j.Error = runErr.Error()
		j.ErrorKind = simerr.KindOf(runErr)
		var se *simerr.Error
		if errors.As(runErr, &se) {
			j.Check = se.Check
		}
	} else {
		j.Status = model.JobSucceeded
		j.Output = out
	}
	s.finished = append(s.finished, jobID)
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, jobID string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return *j, nil
}

// Stats implements Store.Stats.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *MemoryStore) statsLocked() Stats {
	st := Stats{Evicted: s.evicted}
	for _, j := range s.jobs {
		switch j.Status {
		case model.JobQueued:
			st.Queued++
		case model.JobRunning:
			st.Running++
		case model.JobSucceeded:
			st.Succeeded++
		case model.JobFailed:
			st.Failed++
		}
	}
	return st
}

// evictOldestLocked drops the oldest finished job. It reports false when
// every held job is still queued or running.
func (s *MemoryStore) evictOldestLocked() bool {
	for len(s.finished) > 0 {
		id := s.finished[0]
		s.finished = s.finished[1:]
		if _, ok := s.jobs[id]; !ok {
			continue
		}
		s.dropLocked(id)
		s.evicted++
		metrics.RecordJobEvicted()
		return true
	}
	return false
}

func (s *MemoryStore) dropLocked(jobID string) {
	j := s.jobs[jobID]
	delete(s.jobs, jobID)
	if j.RequestID != "" && s.byRequest[j.RequestID] == jobID {
		delete(s.byRequest, j.RequestID)
	}
}

// startMetricsUpdater starts a background goroutine that publishes job counts.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	st := s.Stats(context.Background())
	metrics.UpdateJobs(string(model.JobQueued), st.Queued)
	metrics.UpdateJobs(string(model.JobRunning), st.Running)
	metrics.UpdateJobs(string(model.JobSucceeded), st.Succeeded)
	metrics.UpdateJobs(string(model.JobFailed), st.Failed)
}
