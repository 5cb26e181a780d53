// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers a file and env on top.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"

	"github.com/beenjammin/basgra/internal/domain/schema"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory simulation job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of simulation workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxJobs caps how many jobs the job store retains.
	MaxJobs int `koanf:"max_jobs"`

	// WeatherCapacity must equal the weather row count compiled into the
	// engine.
	WeatherCapacity int `koanf:"weather_capacity"`

	// EngineDir holds the engine shared libraries.
	EngineDir string `koanf:"engine_dir"`

	// EnginePETLibrary and EnginePenmanLibrary name the library built for
	// each PET variant, relative to EngineDir unless absolute.
	EnginePETLibrary    string `koanf:"engine_pet_library"`
	EnginePenmanLibrary string `koanf:"engine_penman_library"`

	// EngineBuildCommand, when set, is run in EngineDir if a library is
	// missing.
	EngineBuildCommand string `koanf:"engine_build_command"`

	// EngineVerbose passes the debug flag through to the engine.
	EngineVerbose bool `koanf:"engine_verbose"`

	// EngineStub replaces the engine with one that returns zeros. Useful to
	// exercise validation and marshalling where no library is installed.
	EngineStub bool `koanf:"engine_stub"`
}

// New creates a Config with defaults.
func New() *Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           1_000,
		WorkerCount:         workers,
		MaxJobs:             10_000,
		WeatherCapacity:     schema.DefaultWeatherCapacity,
		EngineDir:           "./engine",
		EnginePETLibrary:    "libbasgra_pet.so",
		EnginePenmanLibrary: "libbasgra_penman.so",
	}
}

// Validate checks the values a running service depends on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxJobs <= 0:
		return fmt.Errorf("%w: max_jobs must be positive, got %d", ErrInvalidConfig, c.MaxJobs)
	case c.WeatherCapacity <= 0:
		return fmt.Errorf("%w: weather_capacity must be positive, got %d", ErrInvalidConfig, c.WeatherCapacity)
	}
	return nil
}
