// Package ingestion provides the dispatch machinery that turns source items
// into indexed documents.
//
// The package has two parts:
//   - Registry: named doctype schemas, pushed to the store before they are
//     recorded locally
//   - Dispatch: a background supervisor per ingest call that runs a bounded
//     worker pool over the items, drains results in completion order and
//     forwards every successful parse to the store
//
// Dispatch returns as soon as the supervisor goroutine is started. Parse and
// indexing failures are isolated per item: they are logged and counted in the
// supervisor's Report but never stop sibling items and never reach the caller.
package ingestion
