package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beenjammin/basgra/pkg/logger"
)

// result is the fate of one generated request.
type result struct {
	outcome string
	code    string // rejection or failure code
	status  string // final job status for accepted requests
}

// Run submits cfg.Requests synthetic simulations with cfg.Workers workers,
// waits for every accepted job to finish and returns the tallies. A
// transport error aborts the run.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	log := cfg.Logger
	c := newClient(cfg.BaseURL, cfg.Timeout)
	start := time.Now()

	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers))

	if err := c.health(ctx); err != nil {
		return Stats{}, err
	}

	stats := Stats{RejectedBy: map[string]int{}, FailedBy: map[string]int{}}
	var mu sync.Mutex
	tally := func(res result) {
		mu.Lock()
		defer mu.Unlock()
		stats.Submitted++
		switch res.outcome {
		case outcomeRejected:
			stats.Rejected++
			stats.RejectedBy[res.code]++
			return
		case outcomeDuplicate:
			stats.Duplicate++
		default:
			stats.Accepted++
		}
		if res.status == "succeeded" {
			stats.Succeeded++
		} else {
			stats.Failed++
			stats.FailedBy[res.code]++
		}
	}

	// The first transport error cancels egCtx and stops every worker.
	eg, egCtx := errgroup.WithContext(ctx)
	jobs := make(chan int, cfg.Workers*2)
	eg.Go(func() error {
		defer close(jobs)
		for i := 0; i < cfg.Requests; i++ {
			select {
			case <-egCtx.Done():
				return nil
			case jobs <- i:
			}
		}
		return nil
	})
	for w := 0; w < cfg.Workers; w++ {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(start.UnixNano())))
		eg.Go(func() error {
			for range jobs {
				res, err := one(egCtx, c, cfg, rng)
				if err != nil {
					return err
				}
				tally(res)
			}
			return nil
		})
	}
	err := eg.Wait()
	stats.Duration = time.Since(start)

	if err != nil {
		return stats, fmt.Errorf("load test aborted: %w", err)
	}
	log.Info(ctx, "load test completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("simulationsPerSecond", stats.SimulationsPerSecond()))
	return stats, nil
}

// one submits a fresh request and waits for its job.
func one(ctx context.Context, c *client, cfg *Config, rng *rand.Rand) (result, error) {
	outcome, id, code, err := c.submit(ctx, generate(cfg, rng))
	if err != nil {
		return result{}, err
	}
	if outcome == outcomeRejected {
		cfg.Logger.Debug(ctx, "submission rejected", logger.String("code", code))
		return result{outcome: outcome, code: code}, nil
	}
	job, err := c.await(ctx, id, cfg.PollInterval)
	if err != nil {
		return result{}, err
	}
	res := result{outcome: outcome, status: job.Status}
	if job.Error != nil {
		res.code = job.Error.Code
	}
	return res, nil
}
