package ingestion

import (
	"log/slog"
	"runtime"
)

// Option configures a dispatch.
type Option func(*supervisor) error

// WithWorkers sets the worker pool size for parsing.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithWorkers(n int) Option {
	return func(s *supervisor) error {
		if n < 1 {
			n = 1
		}
		s.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *supervisor) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithID sets the dispatch identifier used in logs.
// Default is a random UUID.
func WithID(id string) Option {
	return func(s *supervisor) error {
		if id != "" {
			s.id = id
		}
		return nil
	}
}

func defaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}
