package config

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrMissingArguments is returned when the database or OPML path is not given.
var ErrMissingArguments = errors.New("not enough arguments; db path and opml import path expected")

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath   string
	OPMLPath string

	// Network settings
	HTTPTimeout time.Duration
	UserAgent   string
	MaxBodySize int64

	// Processing settings
	WorkerCount int
	Interval    time.Duration
	DryRun      bool

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		HTTPTimeout: DefaultHTTPTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		WorkerCount: DefaultWorkerCount,
		Interval:    time.Duration(DefaultInterval) * time.Minute,
		LogLevel:    logLevel,
	}
}

// SetPaths assigns the two positional arguments: database path then OPML path.
func (c *Config) SetPaths(args []string) error {
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		return ErrMissingArguments
	}
	c.DBPath = args[0]
	c.OPMLPath = args[1]
	return nil
}
