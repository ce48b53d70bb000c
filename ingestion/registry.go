package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/docingest/core"
)

// OverwritePolicy decides what happens when a doctype name is registered twice.
type OverwritePolicy int

const (
	// OverwriteWithWarning replaces the previous definition and logs a warning.
	OverwriteWithWarning OverwritePolicy = iota

	// RejectDuplicates fails the registration with ErrDoctypeExists before the
	// schema is pushed to the store.
	RejectDuplicates
)

// MappingPutter pushes a doctype schema to a store. storage.Store satisfies it.
type MappingPutter interface {
	PutMapping(ctx context.Context, index, doctype string, fields map[string]core.FieldSpec) error
}

// Registry tracks named doctype schemas. A name maps to exactly one definition
// at any instant. It is safe for concurrent use.
type Registry struct {
	registerMu sync.Mutex // serializes Register so check, push and record are atomic

	mu      sync.RWMutex
	entries map[string]core.Doctype
	order   []string
	policy  OverwritePolicy
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(policy OverwritePolicy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]core.Doctype),
		policy:  policy,
		logger:  logger.With("component", "doctypes"),
	}
}

// Register validates the doctype, pushes its schema to the store exactly once
// and then records it, replacing any previous definition entirely.
// When the push fails the registry is left unchanged and the store's error is
// returned wrapped (storage.ErrSchemaConflict for incompatible mappings).
func (r *Registry) Register(ctx context.Context, store MappingPutter, index string, doctype core.Doctype) error {
	dt, err := core.ValidateDoctype(doctype)
	if err != nil {
		return err
	}

	r.registerMu.Lock()
	defer r.registerMu.Unlock()

	_, exists := r.Lookup(dt.Name)
	if exists && r.policy == RejectDuplicates {
		return fmt.Errorf("%w: %s", ErrDoctypeExists, dt.Name)
	}

	if err := store.PutMapping(ctx, index, dt.Name, dt.Fields); err != nil {
		return fmt.Errorf("register doctype %s: %w", dt.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if exists {
		r.logger.Warn("doctype redefined, previous definition replaced", "doctype", dt.Name)
		r.order = slices.DeleteFunc(r.order, func(name string) bool { return name == dt.Name })
	}
	r.entries[dt.Name] = dt
	r.order = append(r.order, dt.Name)
	r.logger.Debug("doctype registered", "doctype", dt.Name, "fields", len(dt.Fields))
	return nil
}

// Lookup returns a copy of the named doctype.
func (r *Registry) Lookup(name string) (core.Doctype, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dt, ok := r.entries[name]
	if !ok {
		return core.Doctype{}, false
	}
	return dt.Clone(), true
}

// Names returns the registered names in registration order. A redefinition
// moves the name to the end.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All returns copies of every registered doctype in registration order.
func (r *Registry) All() []core.Doctype {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Doctype, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Clone())
	}
	return out
}

// Len returns the number of registered doctypes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
