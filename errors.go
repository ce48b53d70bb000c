package docingest

import "errors"

var (
	// ErrSessionClosed is returned by operations on a session after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrUnknownDoctype is returned by Ingest on a strict session when the
	// doctype was never registered.
	ErrUnknownDoctype = errors.New("unknown doctype")

	// ErrIndexRequired is returned when no index name is provided.
	ErrIndexRequired = errors.New("index name required")
)
