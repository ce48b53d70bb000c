package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// State is the lifecycle state of a dispatch supervisor.
type State int32

const (
	// StateCreated: the supervisor exists but its goroutine has not begun work.
	StateCreated State = iota
	// StateRunning: items are being submitted and drained.
	StateRunning
	// StateCompleted: every item was drained.
	StateCompleted
	// StateTerminated: stopped by Terminate before draining completed.
	StateTerminated
	// StateFailed: the supervisor could not dial the store or build its pool.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Final reports whether the state is terminal.
func (s State) Final() bool {
	return s == StateCompleted || s == StateTerminated || s == StateFailed
}

// outcome is the message a pool worker hands back to the drain loop.
type outcome struct {
	index int
	doc   core.Document
	err   error
}

// supervisor runs one ingest call end to end in its own goroutine.
type supervisor struct {
	id      string
	index   string
	doctype string
	items   []core.SourceItem
	parse   core.ParserFunc
	dial    storage.Dialer
	workers int
	logger  *slog.Logger

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	stats  counters
}

// Dispatch starts a supervisor that parses every item with parse and forwards
// each successful result to the store as a document of the given doctype.
//
// Dispatch returns once the supervisor goroutine is started, before any item
// is parsed. The supervisor dials its own store connection and owns a worker
// pool bounded by WithWorkers. Results are drained in completion order.
//
// The items slice is read by the supervisor after Dispatch returns; callers
// must not modify it.
func Dispatch(dial storage.Dialer, index, doctype string, items []core.SourceItem, parse core.ParserFunc, opts ...Option) (*Handle, error) {
	if dial == nil {
		return nil, ErrDialerRequired
	}
	if parse == nil {
		return nil, ErrParserRequired
	}
	if index == "" {
		return nil, ErrIndexRequired
	}

	s := &supervisor{
		id:      uuid.NewString(),
		index:   index,
		doctype: doctype,
		items:   items,
		parse:   parse,
		dial:    dial,
		workers: defaultWorkers(),
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "dispatch", "dispatch", s.id, "doctype", doctype)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stats.items.Store(int64(len(items)))

	go s.run()
	return &Handle{s: s}, nil
}

func (s *supervisor) run() {
	defer close(s.done)
	defer s.cancel()

	s.stats.started.Store(time.Now().UnixNano())
	defer func() {
		s.stats.stopped.Store(time.Now().UnixNano())
		s.logReport()
	}()

	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return
	}

	store, err := s.dial(s.ctx)
	if err != nil {
		s.fail("error dialing store", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			s.logger.Error("error closing store connection", "err", err)
		}
	}()

	pool, err := ants.NewPool(s.workers,
		ants.WithLogger(&antsLoggerAdapter{logger: s.logger}),
		ants.WithPanicHandler(func(p any) {
			s.logger.Error("worker panic escaped parse recovery", "panic", p)
		}),
	)
	if err != nil {
		s.fail("error creating worker pool", err)
		return
	}
	defer pool.Release()

	// Capacity for every item, so workers never block on send even after the
	// drain loop has stopped.
	results := make(chan outcome, len(s.items))
	go s.submit(pool, results)

	for drained := 0; drained < len(s.items); drained++ {
		if s.ctx.Err() != nil {
			s.terminated(drained)
			return
		}
		select {
		case <-s.ctx.Done():
			s.terminated(drained)
			return
		case o := <-results:
			s.forward(store, o)
		}
	}
	s.state.Store(int32(StateCompleted))
}

// submit hands one task per item to the pool. Submit blocks while every
// worker is busy, which bounds concurrency to the pool size.
func (s *supervisor) submit(pool *ants.Pool, results chan<- outcome) {
	for i, item := range s.items {
		if s.ctx.Err() != nil {
			return
		}
		err := pool.Submit(func() {
			results <- s.execute(i, item)
		})
		if err != nil {
			if errors.Is(err, ants.ErrPoolClosed) {
				return
			}
			results <- outcome{index: i, err: &core.ParseError{Index: i, Item: item, Err: err}}
		}
	}
}

// execute runs the parser for one item inside a pool worker. Every fault,
// including a panic, becomes a per-item ParseError.
func (s *supervisor) execute(index int, item core.SourceItem) (o outcome) {
	o.index = index
	defer func() {
		if r := recover(); r != nil {
			o.doc = nil
			o.err = &core.ParseError{Index: index, Item: item, Err: fmt.Errorf("%w: %v", core.ErrParserPanic, r)}
		}
	}()

	result, err := s.parse(item)
	if err != nil {
		o.err = &core.ParseError{Index: index, Item: item, Err: err}
		return o
	}
	doc, err := core.ValidateResult(result)
	if err != nil {
		o.err = &core.ParseError{Index: index, Item: item, Err: err}
		return o
	}
	o.doc = doc
	return o
}

// forward reports a failed parse or sends a parsed document to the store.
// Store errors are logged and counted, never retried.
func (s *supervisor) forward(store storage.Store, o outcome) {
	if o.err != nil {
		s.stats.parseFailures.Add(1)
		s.logger.Warn("parse failed, item skipped", "item", o.index, "err", o.err)
		return
	}
	s.stats.parsed.Add(1)

	id, err := store.IndexDocument(s.ctx, s.index, s.doctype, o.doc)
	if err != nil {
		s.stats.indexFailures.Add(1)
		s.logger.Error("error forwarding document", "item", o.index,
			"err", fmt.Errorf("%w: %w", ErrIndexingFailure, err))
		return
	}
	s.stats.indexed.Add(1)
	s.logger.Debug("document forwarded", "item", o.index, "id", id)
}

func (s *supervisor) fail(msg string, err error) {
	if s.ctx.Err() != nil {
		s.state.Store(int32(StateTerminated))
		return
	}
	s.state.Store(int32(StateFailed))
	s.logger.Error(msg, "err", err)
}

func (s *supervisor) terminated(drained int) {
	s.state.Store(int32(StateTerminated))
	s.logger.Warn("dispatch terminated", "drained", drained, "items", len(s.items))
}

func (s *supervisor) logReport() {
	r := s.stats.snapshot()
	s.logger.Info("dispatch finished",
		"state", State(s.state.Load()),
		"items", r.Items,
		"parsed", r.Parsed,
		"parseFailures", r.ParseFailures,
		"indexed", r.Indexed,
		"indexFailures", r.IndexFailures,
		"elapsed", r.Elapsed)
}

// terminate requests a forced stop. A supervisor that has not begun work
// never starts.
func (s *supervisor) terminate() {
	s.state.CompareAndSwap(int32(StateCreated), int32(StateTerminated))
	s.cancel()
}

// antsLoggerAdapter adapts slog.Logger to the ants.Logger interface.
type antsLoggerAdapter struct {
	logger *slog.Logger
}

var _ ants.Logger = (*antsLoggerAdapter)(nil)

func (al *antsLoggerAdapter) Printf(format string, args ...any) {
	al.logger.Error(fmt.Sprintf(format, args...))
}
