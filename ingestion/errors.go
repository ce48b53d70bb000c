package ingestion

import "errors"

var (
	// ErrParserRequired is returned when a parser function is not provided.
	ErrParserRequired = errors.New("parser function required")

	// ErrDialerRequired is returned when a store dialer is not provided.
	ErrDialerRequired = errors.New("store dialer required")

	// ErrIndexRequired is returned when no index name is provided.
	ErrIndexRequired = errors.New("index name required")

	// ErrDoctypeExists is returned by a registry that rejects redefinitions.
	ErrDoctypeExists = errors.New("doctype already registered")

	// ErrIndexingFailure marks a document the store refused to index.
	ErrIndexingFailure = errors.New("indexing failure")
)
