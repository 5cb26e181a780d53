package config

import "errors"

var (
	// ErrInvalidConfig marks a loaded value the service cannot run with.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks an unreadable config file or environment.
	ErrLoadConfig = errors.New("load config failed")
)
