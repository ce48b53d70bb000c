package docingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docingest/ingestion"
)

// Option configures a Session.
type Option func(*sessionOptions) error

type sessionOptions struct {
	deleteIndexOnInit bool
	connectAttempts   int
	connectDelay      time.Duration
	strictDoctypes    bool
	doctypePolicy     ingestion.OverwritePolicy
	logger            *slog.Logger
}

func defaultSessionOptions() *sessionOptions {
	return &sessionOptions{
		connectAttempts: 1,
		connectDelay:    time.Second,
		doctypePolicy:   ingestion.OverwriteWithWarning,
		logger:          slog.Default(),
	}
}

// WithDeleteIndexOnInit makes NewSession delete an existing index and create
// it afresh. Default is false: an existing index is reused.
func WithDeleteIndexOnInit(enabled bool) Option {
	return func(o *sessionOptions) error {
		o.deleteIndexOnInit = enabled
		return nil
	}
}

// WithConnectRetries retries the initial store dial up to attempts times,
// doubling delay after each failure. Default is a single attempt.
func WithConnectRetries(attempts int, delay time.Duration) Option {
	return func(o *sessionOptions) error {
		if attempts < 1 {
			return fmt.Errorf("connect attempts must be at least 1, got %d", attempts)
		}
		if delay < 0 {
			return fmt.Errorf("connect delay must not be negative, got %s", delay)
		}
		o.connectAttempts = attempts
		o.connectDelay = delay
		return nil
	}
}

// WithStrictDoctypes makes Ingest reject doctypes that were never registered
// with ErrUnknownDoctype. Default is false.
func WithStrictDoctypes(strict bool) Option {
	return func(o *sessionOptions) error {
		o.strictDoctypes = strict
		return nil
	}
}

// WithDoctypePolicy sets how CreateDoctype treats a name that is already
// registered. Default is ingestion.OverwriteWithWarning.
func WithDoctypePolicy(policy ingestion.OverwritePolicy) Option {
	return func(o *sessionOptions) error {
		o.doctypePolicy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}
