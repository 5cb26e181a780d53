// Package loadgen drives a running simulation service with synthetic
// requests and reports how many jobs succeed.
package loadgen

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/beenjammin/basgra/pkg/logger"
)

// Defaults.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultRequests     = 100
	DefaultDays         = 365
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid load test config")

// Config holds configuration for one load test.
type Config struct {
	BaseURL      string             // service base URL
	Params       map[string]float64 // parameter set sent with every request
	Requests     int                // number of simulations to submit
	Days         int                // simulated days per request
	Workers      int                // concurrent submitters and pollers
	Timeout      time.Duration      // per HTTP request
	PollInterval time.Duration      // delay between job status reads
	DerivePET    bool               // send Penman weather instead of pet
	Logger       logger.Logger
}

// NewConfig returns a Config with defaults.
func NewConfig(params map[string]float64) *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		Params:       params,
		Requests:     DefaultRequests,
		Days:         DefaultDays,
		Workers:      runtime.NumCPU() * 2,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		Logger:       logger.Nop(),
	}
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case len(c.Params) == 0:
		return fmt.Errorf("%w: no parameters", ErrInvalidConfig)
	case c.Requests <= 0:
		return fmt.Errorf("%w: requests must be positive, got %d", ErrInvalidConfig, c.Requests)
	case c.Days <= 0:
		return fmt.Errorf("%w: days must be positive, got %d", ErrInvalidConfig, c.Days)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds load test results.
type Stats struct {
	Submitted  int
	Accepted   int
	Duplicate  int
	Rejected   int // refused at submission, by error code in RejectedBy
	Succeeded  int
	Failed     int // accepted but finished with an error, by code in FailedBy
	RejectedBy map[string]int
	FailedBy   map[string]int
	Duration   time.Duration
}

// SimulationsPerSecond is the finished job rate over the whole run.
func (s Stats) SimulationsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Succeeded+s.Failed) / s.Duration.Seconds()
}
