package repository

import "time"

const (
	defaultMaxJobs               = 10000
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxJobs caps the number of jobs held. Finished jobs are evicted
// oldest first to make room.
func WithMaxJobs(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock replaces time.Now for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
