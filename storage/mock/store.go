package mock

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// Operation names recorded in Call.Op.
const (
	OpIndexExists   = "indexExists"
	OpCreateIndex   = "createIndex"
	OpDeleteIndex   = "deleteIndex"
	OpPutMapping    = "putMapping"
	OpIndexDocument = "indexDocument"
)

// Call records one store operation.
type Call struct {
	Op      string
	Conn    int // Connection number, starting at 1, in dial order
	Index   string
	Doctype string
	Fields  map[string]core.FieldSpec
	Doc     core.Document
}

// MockBackend is the shared state behind every MockStore dialed from it.
type MockBackend struct {
	// DialFunc is called by the dialer if set. A non-nil error fails the dial.
	DialFunc func(ctx context.Context) error

	// PutMappingFunc is called before a mapping is applied if set.
	// A non-nil error is returned to the caller and the mapping is not applied.
	PutMappingFunc func(index, doctype string, fields map[string]core.FieldSpec) error

	// IndexDocumentFunc is called before a document is stored if set.
	// A non-nil error is returned to the caller and the document is not stored.
	IndexDocumentFunc func(index, doctype string, doc core.Document) error

	mu       sync.Mutex
	indices  map[string]bool
	mappings map[string]map[string]map[string]core.FieldSpec
	docs     []*core.StoredDocument
	docIndex []string
	calls    []Call
	conns    int
	open     int
	nextID   int
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		indices:  make(map[string]bool),
		mappings: make(map[string]map[string]map[string]core.FieldSpec),
	}
}

// Dialer returns a storage.Dialer producing connections to this backend.
func (b *MockBackend) Dialer() storage.Dialer {
	return func(ctx context.Context) (storage.Store, error) {
		if b.DialFunc != nil {
			if err := b.DialFunc(ctx); err != nil {
				return nil, err
			}
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.conns++
		b.open++
		return &MockStore{backend: b, conn: b.conns}, nil
	}
}

// AddIndex creates an index directly, bypassing call recording.
func (b *MockBackend) AddIndex(index string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.indices[index] = true
}

// Calls returns a copy of every recorded call in order.
func (b *MockBackend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsFor returns the recorded calls of one operation.
func (b *MockBackend) CallsFor(op string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Documents returns the bodies stored for a doctype in an index, in indexing order.
func (b *MockBackend) Documents(index, doctype string) []core.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []core.Document
	for i, doc := range b.docs {
		if b.docIndex[i] == index && doc.Doctype == doctype {
			out = append(out, doc.Body)
		}
	}
	return out
}

// DocumentCount returns the number of stored documents across all indices.
func (b *MockBackend) DocumentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs)
}

// Mapping returns the stored mapping of a doctype.
func (b *MockBackend) Mapping(index, doctype string) map[string]core.FieldSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mappings[index][doctype]
}

// Connections returns the number of successful dials.
func (b *MockBackend) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns
}

// OpenConnections returns the number of dialed connections not yet closed.
func (b *MockBackend) OpenConnections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// MockStore is one connection to a MockBackend.
type MockStore struct {
	backend *MockBackend
	conn    int
	closed  atomic.Bool
}

var _ storage.Store = (*MockStore)(nil)

func (s *MockStore) record(c Call) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	c.Conn = s.conn
	s.backend.calls = append(s.backend.calls, c)
	return nil
}

// IndexExists reports whether the index exists.
func (s *MockStore) IndexExists(ctx context.Context, index string) (bool, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.record(Call{Op: OpIndexExists, Index: index}); err != nil {
		return false, err
	}
	return b.indices[index], nil
}

// CreateIndex creates the index.
func (s *MockStore) CreateIndex(ctx context.Context, index string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.record(Call{Op: OpCreateIndex, Index: index}); err != nil {
		return err
	}
	if b.indices[index] {
		return fmt.Errorf("%w: %s", storage.ErrIndexExists, index)
	}
	b.indices[index] = true
	return nil
}

// DeleteIndex deletes the index with its mappings and documents.
func (s *MockStore) DeleteIndex(ctx context.Context, index string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.record(Call{Op: OpDeleteIndex, Index: index}); err != nil {
		return err
	}
	if !b.indices[index] {
		return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
	}
	delete(b.indices, index)
	delete(b.mappings, index)
	docs, owners := b.docs[:0], b.docIndex[:0]
	for i, doc := range b.docs {
		if b.docIndex[i] != index {
			docs = append(docs, doc)
			owners = append(owners, b.docIndex[i])
		}
	}
	b.docs, b.docIndex = docs, owners
	return nil
}

// PutMapping merges fields into the doctype mapping. A field redefined with a
// different type returns storage.ErrSchemaConflict.
func (s *MockStore) PutMapping(ctx context.Context, index, doctype string, fields map[string]core.FieldSpec) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.record(Call{Op: OpPutMapping, Index: index, Doctype: doctype, Fields: fields}); err != nil {
		return err
	}
	if b.PutMappingFunc != nil {
		if err := b.PutMappingFunc(index, doctype, fields); err != nil {
			return err
		}
	}
	if !b.indices[index] {
		return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
	}
	if b.mappings[index] == nil {
		b.mappings[index] = make(map[string]map[string]core.FieldSpec)
	}
	existing := b.mappings[index][doctype]
	for name, spec := range fields {
		if current, ok := existing[name]; ok && current.Type != spec.Type {
			return fmt.Errorf("%w: field %q", storage.ErrSchemaConflict, name)
		}
	}
	merged := make(map[string]core.FieldSpec, len(existing)+len(fields))
	for name, spec := range existing {
		merged[name] = spec
	}
	for name, spec := range fields {
		merged[name] = spec
	}
	b.mappings[index][doctype] = merged
	return nil
}

// IndexDocument stores the document and returns a sequential identifier.
func (s *MockStore) IndexDocument(ctx context.Context, index, doctype string, doc core.Document) (string, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := s.record(Call{Op: OpIndexDocument, Index: index, Doctype: doctype, Doc: doc}); err != nil {
		return "", err
	}
	if b.IndexDocumentFunc != nil {
		if err := b.IndexDocumentFunc(index, doctype, doc); err != nil {
			return "", err
		}
	}
	if !b.indices[index] {
		return "", fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
	}
	b.nextID++
	id := strconv.Itoa(b.nextID)
	b.docs = append(b.docs, &core.StoredDocument{ID: id, Doctype: doctype, Body: doc})
	b.docIndex = append(b.docIndex, index)
	return id, nil
}

// Close closes this connection.
func (s *MockStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.open--
	return nil
}
