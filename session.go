// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/ingestion"
	"github.com/poiesic/docingest/storage"
)

// Session binds a document store index to a doctype registry and tracks the
// dispatches started against it.
type Session struct {
	index    string
	dial     storage.Dialer
	store    storage.Store
	registry *ingestion.Registry
	strict   bool
	logger   *slog.Logger
	dlogger  *slog.Logger // base logger handed to dispatches

	mu      sync.Mutex
	handles []*ingestion.Handle
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession dials the store and prepares the index. When the index exists
// and WithDeleteIndexOnInit is set it is deleted and recreated; when it does
// not exist it is created. The index is ready before NewSession returns.
//
// The dialer is kept: every dispatch opens its own connection with it.
func NewSession(ctx context.Context, dial storage.Dialer, index string, opts ...Option) (*Session, error) {
	if dial == nil {
		return nil, ingestion.ErrDialerRequired
	}
	if index == "" {
		return nil, ErrIndexRequired
	}

	options := defaultSessionOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	logger := options.logger.With("component", "session", "index", index)

	store, err := storage.DialWithBackoff(ctx, dial, options.connectAttempts, options.connectDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to document store: %w", err)
	}

	if err := prepareIndex(ctx, store, index, options.deleteIndexOnInit, logger); err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Error("error closing store connection", "err", cerr)
		}
		return nil, err
	}

	return &Session{
		index:    index,
		dial:     dial,
		store:    store,
		registry: ingestion.NewRegistry(options.doctypePolicy, options.logger),
		strict:   options.strictDoctypes,
		logger:   logger,
		dlogger:  options.logger.With("index", index),
	}, nil
}

func prepareIndex(ctx context.Context, store storage.Store, index string, deleteExisting bool, logger *slog.Logger) error {
	exists, err := store.IndexExists(ctx, index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	if exists && !deleteExisting {
		logger.Debug("reusing existing index")
		return nil
	}
	if exists {
		if err := store.DeleteIndex(ctx, index); err != nil {
			return fmt.Errorf("delete index %s: %w", index, err)
		}
		logger.Info("existing index deleted")
	}
	if err := store.CreateIndex(ctx, index); err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	logger.Info("index created")
	return nil
}

// Index returns the name of the index the session writes to.
func (s *Session) Index() string {
	return s.index
}

// CreateDoctype registers a doctype and pushes its mapping to the store before
// returning. A mapping the store refuses is returned wrapped, with
// storage.ErrSchemaConflict for incompatible fields, and leaves the registry
// unchanged. Registering an existing name replaces its definition entirely
// unless the session was built with ingestion.RejectDuplicates.
func (s *Session) CreateDoctype(ctx context.Context, name string, fields map[string]core.FieldSpec) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return s.registry.Register(ctx, s.store, s.index, core.Doctype{Name: name, Fields: fields})
}

// Doctypes returns every registered doctype in registration order.
func (s *Session) Doctypes() []core.Doctype {
	return s.registry.All()
}

// Doctype returns a registered doctype by name.
func (s *Session) Doctype(name string) (core.Doctype, bool) {
	return s.registry.Lookup(name)
}

// Ingest starts a background dispatch that parses every item and forwards
// each successful result to the store as a document of the given doctype.
//
// Ingest returns before any item is parsed. Only the call itself is validated
// here; per-item failures are logged by the dispatch and never returned.
// The session keeps the returned handle so Close can terminate it.
func (s *Session) Ingest(doctype string, items []core.SourceItem, parse core.ParserFunc, opts ...ingestion.Option) (*ingestion.Handle, error) {
	if parse == nil {
		return nil, ingestion.ErrParserRequired
	}
	if err := core.ValidateName(doctype); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidDoctype, err)
	}
	if _, ok := s.registry.Lookup(doctype); !ok {
		if s.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDoctype, doctype)
		}
		s.logger.Debug("ingesting into unregistered doctype", "doctype", doctype)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	all := make([]ingestion.Option, 0, len(opts)+1)
	all = append(all, ingestion.WithLogger(s.dlogger))
	all = append(all, opts...)
	h, err := ingestion.Dispatch(s.dial, s.index, doctype, items, parse, all...)
	if err != nil {
		return nil, err
	}
	s.handles = append(s.handles, h)
	s.logger.Info("dispatch started", "dispatch", h.ID(), "doctype", doctype, "items", len(items))
	return h, nil
}

// Handles returns every dispatch started by the session, in start order.
func (s *Session) Handles() []*ingestion.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ingestion.Handle(nil), s.handles...)
}

// Wait blocks until every dispatch started so far has stopped or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	for _, h := range s.Handles() {
		if err := h.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close tears the session down: every dispatch still running is terminated,
// its pool released and its goroutine awaited, then the session connection is
// closed. Termination is forceful; results not yet forwarded are discarded.
// Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		handles := s.handles
		s.mu.Unlock()

		running := 0
		for _, h := range handles {
			if !h.State().Final() {
				running++
			}
			h.Terminate()
		}
		for _, h := range handles {
			<-h.Done()
		}
		if running > 0 {
			s.logger.Warn("terminated running dispatches", "count", running)
		}

		if err := s.store.Close(); err != nil && !errors.Is(err, storage.ErrStorageClosed) {
			s.logger.Error("error closing store connection", "err", err)
			s.closeErr = err
		}
	})
	return s.closeErr
}
