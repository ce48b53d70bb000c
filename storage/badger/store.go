package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// Store implements storage.Store on a BadgerDB backend.
//
// Each Store is an independent connection over a shared Backend: closing a
// Store only invalidates that Store, never the Backend or sibling Stores.
type Store struct {
	backend *Backend
	closed  atomic.Bool
	logger  *slog.Logger
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.DocumentReader = (*Store)(nil)
)

// NewStore creates a Store connection over the backend.
func NewStore(backend *Backend) *Store {
	return &Store{
		backend: backend,
		logger:  backend.logger,
	}
}

// NewDialer returns a storage.Dialer that opens Stores over the backend.
func NewDialer(backend *Backend) storage.Dialer {
	return func(ctx context.Context) (storage.Store, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if backend.IsClosed() {
			return nil, fmt.Errorf("%w: badger backend is closed", storage.ErrUnreachable)
		}
		return NewStore(backend), nil
	}
}

// Close marks the connection closed. The backend stays open.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if s.closed.Load() || s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// IndexExists reports whether the index marker exists.
func (s *Store) IndexExists(ctx context.Context, index string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	var exists bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		exists, err = indexExists(tx, index)
		return err
	}, false)
	return exists, err
}

// CreateIndex writes the index marker.
func (s *Store) CreateIndex(ctx context.Context, index string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := core.ValidateName(index); err != nil {
		return fmt.Errorf("%w: index: %w", storage.ErrRejected, err)
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		exists, err := indexExists(tx, index)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", storage.ErrIndexExists, index)
		}
		createdAt, err := time.Now().UTC().MarshalBinary()
		if err != nil {
			return err
		}
		if err := tx.Set(makeIndexKey(index), createdAt); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteIndex removes the index marker, then drops its mappings and documents.
func (s *Store) DeleteIndex(ctx context.Context, index string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		exists, err := indexExists(tx, index)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
		}
		if err := tx.Delete(makeIndexKey(index)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	return s.backend.DropPrefix(makeMappingPrefix(index), makeDocumentPrefix(index, ""))
}

// PutMapping merges fields into the doctype mapping.
//
// Fields share one namespace per index: a field already mapped by any doctype
// of the index must keep its type, and a field already mapped by this doctype
// must keep its indexed flag. Violations return storage.ErrSchemaConflict and
// leave every mapping unchanged.
func (s *Store) PutMapping(ctx context.Context, index, doctype string, fields map[string]core.FieldSpec) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := core.ValidateName(doctype); err != nil {
		return fmt.Errorf("%w: doctype: %w", storage.ErrRejected, err)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		exists, err := indexExists(tx, index)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
		}

		mappings, err := readMappings(tx, index)
		if err != nil {
			return err
		}

		merged := make(map[string]core.FieldSpec, len(fields))
		for name, spec := range mappings[doctype] {
			merged[name] = spec
		}
		for name, spec := range fields {
			for other, existing := range mappings {
				current, ok := existing[name]
				if !ok {
					continue
				}
				if current.Type != spec.Type {
					return fmt.Errorf("%w: field %q of doctype %q is mapped as %s, cannot map as %s",
						storage.ErrSchemaConflict, name, other, current.Type, spec.Type)
				}
				if other == doctype && current.Indexed != spec.Indexed {
					return fmt.Errorf("%w: field %q of doctype %q cannot change its indexed flag",
						storage.ErrSchemaConflict, name, doctype)
				}
			}
			merged[name] = spec
		}

		if err := tx.Set(makeMappingKey(index, doctype), storage.MarshalFields(merged)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// IndexDocument stores the document under a new random identifier.
func (s *Store) IndexDocument(ctx context.Context, index, doctype string, doc core.Document) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if err := core.ValidateName(doctype); err != nil {
		return "", fmt.Errorf("%w: doctype: %w", storage.ErrRejected, err)
	}
	value, err := storage.MarshalDocument(time.Now().UTC(), doc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrRejected, err)
	}

	id := uuid.NewString()
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		exists, err := indexExists(tx, index)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
		}
		if err := tx.Set(makeDocumentKey(index, doctype, id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Mappings returns the stored mapping of every doctype in the index.
func (s *Store) Mappings(ctx context.Context, index string) (map[string]map[string]core.FieldSpec, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var mappings map[string]map[string]core.FieldSpec
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		exists, err := indexExists(tx, index)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
		}
		mappings, err = readMappings(tx, index)
		return err
	}, false)
	return mappings, err
}

// ScanDocuments iterates the documents of a doctype, or of the whole index when
// doctype is empty, in key order.
func (s *Store) ScanDocuments(ctx context.Context, index, doctype string, fn func(doc *core.StoredDocument) error) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		exists, err := indexExists(tx, index)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrIndexNotFound, index)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPrefix(index, doctype)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			docType, id, ok := splitDocumentKey(index, item.Key())
			if !ok {
				continue
			}

			stored := &core.StoredDocument{ID: id, Doctype: docType}
			err := item.Value(func(val []byte) error {
				var err error
				stored.IndexedAt, stored.Body, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(stored); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

func indexExists(tx *badger.Txn, index string) (bool, error) {
	_, err := tx.Get(makeIndexKey(index))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func readMappings(tx *badger.Txn, index string) (map[string]map[string]core.FieldSpec, error) {
	mappings := make(map[string]map[string]core.FieldSpec)
	prefix := makeMappingPrefix(index)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		doctype := string(item.Key()[len(prefix):])
		err := item.Value(func(val []byte) error {
			fields, err := storage.UnmarshalFields(val)
			if err != nil {
				return err
			}
			mappings[doctype] = fields
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return mappings, nil
}
