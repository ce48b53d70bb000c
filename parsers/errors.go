package parsers

import "errors"

var (
	// ErrUnsupportedItem is returned when a source item has a type the parser cannot read.
	ErrUnsupportedItem = errors.New("unsupported source item")

	// ErrOutsideBaseDir is returned when a file path escapes the configured base directory.
	ErrOutsideBaseDir = errors.New("path outside base directory")

	// ErrFileTooLarge is returned when a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnknownEncoding is returned for a character encoding name that is not recognized.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrBodyTooLarge is returned when a fetched page exceeds the configured size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrHTTPStatus is returned when a page is answered with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrExtractorRequired is returned when LLM is built without an extractor.
	ErrExtractorRequired = errors.New("feature extractor required")
)
