package ingestion

import (
	"context"
	"log/slog"
	"testing"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
	"github.com/poiesic/docingest/storage/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIndex = "test-index"

func newTestStore(t *testing.T) (*mock.MockBackend, storage.Store) {
	t.Helper()
	backend := mock.NewMockBackend()
	backend.AddIndex(testIndex)
	store, err := backend.Dialer()(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return backend, store
}

func TestRegistry_Register(t *testing.T) {
	backend, store := newTestStore(t)
	reg := NewRegistry(OverwriteWithWarning, slog.Default())

	err := reg.Register(context.Background(), store, testIndex, core.Doctype{
		Name:   "article",
		Fields: map[string]core.FieldSpec{"title": core.Field(core.FieldTypeText)},
	})
	require.NoError(t, err)

	dt, ok := reg.Lookup("article")
	require.True(t, ok)
	assert.Equal(t, core.FieldTypeText, dt.Fields["title"].Type)
	assert.Equal(t, []string{"article"}, reg.Names())
	assert.Len(t, backend.CallsFor(mock.OpPutMapping), 1)
}

func TestRegistry_OverwriteReplacesDefinition(t *testing.T) {
	backend, store := newTestStore(t)
	reg := NewRegistry(OverwriteWithWarning, nil)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, store, testIndex, core.Doctype{
		Name:   "note",
		Fields: map[string]core.FieldSpec{"body": core.Field(core.FieldTypeText)},
	}))
	require.NoError(t, reg.Register(ctx, store, testIndex, core.Doctype{Name: "other"}))
	require.NoError(t, reg.Register(ctx, store, testIndex, core.Doctype{
		Name:   "note",
		Fields: map[string]core.FieldSpec{"author": core.Field(core.FieldTypeKeyword)},
	}))

	dt, ok := reg.Lookup("note")
	require.True(t, ok)
	assert.Equal(t, map[string]core.FieldSpec{"author": core.Field(core.FieldTypeKeyword)}, dt.Fields)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"other", "note"}, reg.Names())
	assert.Len(t, backend.CallsFor(mock.OpPutMapping), 3)
}

func TestRegistry_RejectDuplicates(t *testing.T) {
	backend, store := newTestStore(t)
	reg := NewRegistry(RejectDuplicates, nil)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, store, testIndex, core.Doctype{Name: "note"}))
	err := reg.Register(ctx, store, testIndex, core.Doctype{
		Name:   "note",
		Fields: map[string]core.FieldSpec{"body": core.Field(core.FieldTypeText)},
	})
	assert.ErrorIs(t, err, ErrDoctypeExists)

	// The rejected definition never reaches the store.
	assert.Len(t, backend.CallsFor(mock.OpPutMapping), 1)
	dt, _ := reg.Lookup("note")
	assert.Empty(t, dt.Fields)
}

func TestRegistry_FailedPushLeavesRegistryUnchanged(t *testing.T) {
	backend, store := newTestStore(t)
	reg := NewRegistry(OverwriteWithWarning, nil)
	ctx := context.Background()

	original := core.Doctype{
		Name:   "note",
		Fields: map[string]core.FieldSpec{"body": core.Field(core.FieldTypeText)},
	}
	require.NoError(t, reg.Register(ctx, store, testIndex, original))

	err := reg.Register(ctx, store, testIndex, core.Doctype{
		Name:   "note",
		Fields: map[string]core.FieldSpec{"body": core.Field(core.FieldTypeLong)},
	})
	require.ErrorIs(t, err, storage.ErrSchemaConflict)

	dt, ok := reg.Lookup("note")
	require.True(t, ok)
	assert.Equal(t, original.Fields, dt.Fields)

	backend.PutMappingFunc = func(index, doctype string, fields map[string]core.FieldSpec) error {
		return storage.ErrRejected
	}
	err = reg.Register(ctx, store, testIndex, core.Doctype{Name: "fresh"})
	require.ErrorIs(t, err, storage.ErrRejected)
	_, ok = reg.Lookup("fresh")
	assert.False(t, ok)
}

func TestRegistry_InvalidDoctype(t *testing.T) {
	backend, store := newTestStore(t)
	reg := NewRegistry(OverwriteWithWarning, nil)

	tests := []struct {
		name    string
		doctype core.Doctype
	}{
		{"empty name", core.Doctype{}},
		{"reserved name", core.Doctype{Name: "_meta"}},
		{"bad field type", core.Doctype{Name: "x", Fields: map[string]core.FieldSpec{"f": {Type: "blob"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(context.Background(), store, testIndex, tt.doctype)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, backend.CallsFor(mock.OpPutMapping))
	assert.Zero(t, reg.Len())
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	_, store := newTestStore(t)
	reg := NewRegistry(OverwriteWithWarning, nil)
	require.NoError(t, reg.Register(context.Background(), store, testIndex, core.Doctype{
		Name:   "note",
		Fields: map[string]core.FieldSpec{"body": core.Field(core.FieldTypeText)},
	}))

	dt, _ := reg.Lookup("note")
	dt.Fields["injected"] = core.Field(core.FieldTypeLong)

	again, _ := reg.Lookup("note")
	_, found := again.Fields["injected"]
	assert.False(t, found)
}
