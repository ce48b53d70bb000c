package ingestion

import (
	"sync/atomic"
	"time"
)

// Report summarizes one dispatch. Counters only; it never carries documents.
type Report struct {
	Items         int           // Items submitted
	Parsed        int           // Items the parser turned into a valid document
	ParseFailures int           // Items whose parse failed, panicked or returned an invalid result
	Indexed       int           // Documents the store acknowledged
	IndexFailures int           // Documents the store rejected
	Elapsed       time.Duration // Time from start until the dispatch stopped
}

// Pending returns the number of items not yet accounted for.
func (r Report) Pending() int {
	return r.Items - r.Parsed - r.ParseFailures
}

// counters is the live form of Report, updated by the drain loop and read
// concurrently through Handle.Report.
type counters struct {
	items         atomic.Int64
	parsed        atomic.Int64
	parseFailures atomic.Int64
	indexed       atomic.Int64
	indexFailures atomic.Int64
	started       atomic.Int64 // UnixNano
	stopped       atomic.Int64 // UnixNano, zero while running
}

func (c *counters) snapshot() Report {
	r := Report{
		Items:         int(c.items.Load()),
		Parsed:        int(c.parsed.Load()),
		ParseFailures: int(c.parseFailures.Load()),
		Indexed:       int(c.indexed.Load()),
		IndexFailures: int(c.indexFailures.Load()),
	}
	if started := c.started.Load(); started != 0 {
		end := c.stopped.Load()
		if end == 0 {
			end = time.Now().UnixNano()
		}
		r.Elapsed = time.Duration(end - started)
	}
	return r
}
