// Package service runs simulations for the HTTP API and the CLI: a
// synchronous Pipeline plus an asynchronous job service on top of the
// queue, worker pool and job store.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/beenjammin/basgra/internal/adapters/mq/queue"
	"github.com/beenjammin/basgra/internal/adapters/mq/worker"
	"github.com/beenjammin/basgra/internal/adapters/repository"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/internal/domain/validate"
	"github.com/beenjammin/basgra/pkg/logger"
	"github.com/beenjammin/basgra/pkg/metrics"
)

// Stats is the service snapshot served by /stats.
type Stats struct {
	Started       bool             `json:"started"`
	Workers       int              `json:"workers"`
	ActiveWorkers int              `json:"active_workers"`
	QueueLength   int              `json:"queue_length"`
	QueueCapacity int              `json:"queue_capacity"`
	Capacity      int              `json:"weather_capacity"`
	Engines       []string         `json:"engines"`
	Jobs          repository.Stats `json:"jobs"`
}

// Service accepts simulation requests, queues them and tracks the jobs.
type Service struct {
	mu sync.RWMutex

	// Core components
	pipeline *Pipeline
	store    *repository.MemoryStore
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount int
	queueSize   int
	maxJobs     int
	newID       func() string

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxJobs sets how many jobs the store retains.
func WithMaxJobs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the random job id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New constructs a Service around p.
func New(p *Pipeline, opts ...Option) *Service {
	s := &Service{
		pipeline:    p,
		workerCount: runtime.NumCPU(),
		queueSize:   1000,
		maxJobs:     10000,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.pipeline == nil {
		return errors.New("service has no pipeline")
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting simulation service...")

	s.store = repository.NewMemoryStore(ctx, repository.WithMaxJobs(s.maxJobs))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.pipeline, s.store,
		worker.WithPoolLogger(s.logger.Named("worker-pool")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "simulation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxJobs", s.maxJobs),
		logger.Int("weatherCapacity", s.pipeline.Capacity()),
	)
	return nil
}

// Stop closes the queue, lets the workers drain it until ctx expires and
// releases the job store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping simulation service...")

	err := s.pool.Shutdown(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.started = false
	s.logger.Info(ctx, "simulation service stopped")
	return err
}

// Validate checks req without queueing it.
func (s *Service) Validate(ctx context.Context, req *model.Request) (validate.Coverage, error) {
	return s.pipeline.Validate(ctx, req)
}

// Submit validates req and queues it. Invalid input is reported
// synchronously. When req carries a request id that is already held, the
// existing job is returned with created set to false.
func (s *Service) Submit(ctx context.Context, req *model.Request) (model.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Job{}, false, ErrNotStarted
	}
	if _, err := s.pipeline.Validate(ctx, req); err != nil {
		return model.Job{}, false, err
	}
	if !s.pipeline.HasEngine(req.PETMode) {
		return model.Job{}, false, simerr.New(simerr.ErrEnvironment, "engine.mode", "",
			"no %s engine loaded", req.PETMode)
	}

	job, created, err := s.store.Create(ctx, s.newID(), req.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrStoreFull) {
			metrics.RecordErrorByComponent("service", "store_full")
			return model.Job{}, false, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return model.Job{}, false, err
	}
	if !created {
		s.logger.Debug(ctx, "request already submitted",
			logger.String("request_id", req.RequestID),
			logger.String("job_id", job.ID))
		return job, false, nil
	}

	if err := s.queue.Enqueue(ctx, model.Task{JobID: job.ID, Request: cloneRequest(req)}); err != nil {
		if rerr := s.store.Remove(ctx, job.ID); rerr != nil {
			s.logger.Error(ctx, "failed to roll back job", logger.String("job_id", job.ID), logger.Error(rerr))
		}
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return model.Job{}, false, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return model.Job{}, false, err
	}

	s.logger.Debug(ctx, "job queued",
		logger.String("job_id", job.ID),
		logger.String("pet_mode", req.PETMode.String()),
		logger.String("harvest_mode", req.HarvestMode.String()))
	return job, true, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Job{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:       s.started,
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
		Capacity:      s.pipeline.Capacity(),
	}
	for _, mode := range []schema.PETMode{schema.SuppliedPET, schema.DerivedPET} {
		if s.pipeline.HasEngine(mode) {
			st.Engines = append(st.Engines, mode.String())
		}
	}
	if s.started {
		st.QueueLength = s.queue.Len()
		st.ActiveWorkers = s.pool.Active()
		st.Jobs = s.store.Stats(ctx)
		metrics.UpdateQueueSize(st.QueueLength)
	}
	return st
}
