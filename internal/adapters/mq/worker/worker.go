// Package worker runs queued simulations and records their outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beenjammin/basgra/internal/adapters/mq/queue"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/pkg/logger"
	"github.com/beenjammin/basgra/pkg/metrics"
)

const defaultWorkerMultiplier = 1

// ErrShutdownTimeout is returned when workers are still busy at the
// shutdown deadline.
var ErrShutdownTimeout = errors.New("worker shutdown timed out")

// Runner executes one simulation request.
type Runner interface {
	Run(ctx context.Context, req *model.Request) (*model.SimulationOutput, error)
}

// Recorder persists job state transitions.
type Recorder interface {
	MarkRunning(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, out *model.SimulationOutput, runErr error) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker processes tasks until its queue closes or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for a single goroutine.
type InMemoryWorker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string
	active   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, runner Runner, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		runner:   runner,
		recorder: recorder,
		name:     "worker",
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. A task already taken from the queue is
// finished before a shutdown signal is honoured.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Stopping the relay on return hands any task it took back to the queue.
	relayCtx, stop := context.WithCancel(ctx)
	defer stop()
	tasks := w.queue.Dequeue(relayCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			if err := w.process(ctx, t); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("job_id", t.JobID), logger.Error(err))
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for the current task.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// process runs one task. Simulation failures are recorded on the job and
// are not returned; only bookkeeping failures are.
func (w *InMemoryWorker) process(ctx context.Context, t queue.Task) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if t.Request == nil {
		return fmt.Errorf("job %s has no request", t.JobID)
	}
	if err := w.recorder.MarkRunning(ctx, t.JobID); err != nil {
		metrics.RecordErrorByComponent("worker", "recorder_error")
		return fmt.Errorf("mark job %s running: %w", t.JobID, err)
	}

	out, runErr := w.runSafely(ctx, t.Request)
	if runErr != nil {
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "simulation failed",
			logger.String("job_id", t.JobID),
			logger.String("kind", simerr.KindOf(runErr)),
			logger.Error(runErr),
		)
	}

	if err := w.recorder.Complete(ctx, t.JobID, out, runErr); err != nil {
		metrics.RecordErrorByComponent("worker", "recorder_error")
		return fmt.Errorf("complete job %s: %w", t.JobID, err)
	}
	return nil
}

// runSafely turns a panic inside the runner into an engine fault so one
// bad job does not take the pool down.
func (w *InMemoryWorker) runSafely(ctx context.Context, req *model.Request) (out *model.SimulationOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			out, err = nil, simerr.New(simerr.ErrEngineFault, "worker.panic", "", "%v", r)
		}
	}()
	return w.runner.Run(ctx, req)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  *atomic.Int64
	cancel  context.CancelFunc

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount selects
// one worker per CPU.
func NewPool(workerCount int, q Queue, runner Runner, recorder Recorder, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		active:  new(atomic.Int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}

	for i := 0; i < workerCount; i++ {
		name := "worker-" + strconv.Itoa(i)
		w := NewInMemoryWorker(q, runner, recorder,
			WithName(name),
			WithLogger(p.logger.Named(name)),
		)
		w.active = p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns the number of workers currently running a job.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Start starts all workers in the pool. Workers stop when ctx is canceled,
// when the queue is closed and drained, or on Shutdown.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for the workers to drain it. When
// ctx expires first, in-flight runs are canceled and ErrShutdownTimeout
// is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		if timedOut {
			break
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	if timedOut {
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
	return nil
}
