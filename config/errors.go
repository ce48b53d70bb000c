package config

import "errors"

var (
	// ErrUnknownKeys is returned when the file contains keys the configuration does not define.
	ErrUnknownKeys = errors.New("unknown configuration keys")

	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
