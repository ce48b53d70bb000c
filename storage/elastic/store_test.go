package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster emulates the handful of Elasticsearch endpoints the store uses.
type fakeCluster struct {
	mu         sync.Mutex
	indices    map[string]map[string]string // index -> field -> type
	docs       map[string][]map[string]any
	mappings   []map[string]any
	nextID     int
	infoStatus int

	// mappingError, when set, is the error type returned with a 400 for every
	// put-mapping request.
	mappingError string
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices:    make(map[string]map[string]string),
		docs:       make(map[string][]map[string]any),
		infoStatus: http.StatusOK,
	}
}

func (f *fakeCluster) writeError(w http.ResponseWriter, status int, typ, reason string) {
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"type":%q,"reason":%q},"status":%d}`, typ, reason, status)
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	index := parts[0]

	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		w.WriteHeader(f.infoStatus)
		fmt.Fprint(w, `{"version":{"number":"8.13.0"},"tagline":"You Know, for Search"}`)

	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indices[index]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case len(parts) == 1 && r.Method == http.MethodPut:
		if _, ok := f.indices[index]; ok {
			f.writeError(w, http.StatusBadRequest, "resource_already_exists_exception", "index ["+index+"] already exists")
			return
		}
		f.indices[index] = map[string]string{}
		fmt.Fprintf(w, `{"acknowledged":true,"index":%q}`, index)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, ok := f.indices[index]; !ok {
			f.writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+index+"]")
			return
		}
		delete(f.indices, index)
		delete(f.docs, index)
		fmt.Fprint(w, `{"acknowledged":true}`)

	case len(parts) == 2 && parts[1] == "_mapping" && r.Method == http.MethodPut:
		fields, ok := f.indices[index]
		if !ok {
			f.writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+index+"]")
			return
		}
		if f.mappingError != "" {
			f.writeError(w, http.StatusBadRequest, f.mappingError, "rejected by test cluster")
			return
		}
		var body struct {
			Properties map[string]map[string]any `json:"properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.writeError(w, http.StatusBadRequest, "parse_exception", err.Error())
			return
		}
		for name, prop := range body.Properties {
			if current, ok := fields[name]; ok && current != prop["type"] {
				f.writeError(w, http.StatusBadRequest, "illegal_argument_exception",
					fmt.Sprintf("mapper [%s] cannot be changed from type [%s] to [%v]", name, current, prop["type"]))
				return
			}
		}
		for name, prop := range body.Properties {
			fields[name] = prop["type"].(string)
		}
		f.mappings = append(f.mappings, map[string]any{"index": index, "properties": body.Properties})
		fmt.Fprint(w, `{"acknowledged":true}`)

	case len(parts) == 2 && parts[1] == "_doc" && r.Method == http.MethodPost:
		if _, ok := f.indices[index]; !ok {
			f.writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+index+"]")
			return
		}
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			f.writeError(w, http.StatusBadRequest, "mapper_parsing_exception", err.Error())
			return
		}
		f.nextID++
		f.docs[index] = append(f.docs[index], doc)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"_index":%q,"_id":"doc-%d","result":"created"}`, index, f.nextID)

	default:
		f.writeError(w, http.StatusMethodNotAllowed, "unsupported", r.Method+" "+r.URL.Path)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeCluster) {
	cluster := newFakeCluster()
	server := httptest.NewServer(cluster)
	t.Cleanup(server.Close)

	store, err := Dial(context.Background(), Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, cluster
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), Config{})
	assert.ErrorIs(t, err, storage.ErrUnreachable)

	cluster := newFakeCluster()
	cluster.infoStatus = http.StatusServiceUnavailable
	server := httptest.NewServer(cluster)
	defer server.Close()

	_, err = NewDialer(Config{Addresses: []string{server.URL}})(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnreachable)
}

func TestStore_IndexLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	exists, err := store.IndexExists(ctx, "testindex")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateIndex(ctx, "testindex"))
	exists, err = store.IndexExists(ctx, "testindex")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, store.CreateIndex(ctx, "testindex"), storage.ErrIndexExists)

	require.NoError(t, store.DeleteIndex(ctx, "testindex"))
	assert.ErrorIs(t, store.DeleteIndex(ctx, "testindex"), storage.ErrIndexNotFound)
}

func TestStore_PutMapping(t *testing.T) {
	store, cluster := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, "testindex"))

	err := store.PutMapping(ctx, "testindex", "my_doctype", map[string]core.FieldSpec{
		"version":       core.StoredField(core.FieldTypeKeyword),
		"another_field": core.Field(core.FieldTypeBoolean),
	})
	require.NoError(t, err)

	require.Len(t, cluster.mappings, 1)
	props := cluster.mappings[0]["properties"].(map[string]map[string]any)
	assert.Equal(t, "keyword", props["version"]["type"])
	assert.Equal(t, false, props["version"]["index"])
	assert.Equal(t, "boolean", props["another_field"]["type"])
	assert.NotContains(t, props["another_field"], "index")
	assert.Equal(t, "keyword", props[DefaultDoctypeField]["type"])

	err = store.PutMapping(ctx, "testindex", "my_doctype", map[string]core.FieldSpec{
		"version": core.Field(core.FieldTypeLong),
	})
	assert.ErrorIs(t, err, storage.ErrSchemaConflict)
	assert.Contains(t, err.Error(), "illegal_argument_exception")
}

func TestStore_PutMappingClassifiesBadRequests(t *testing.T) {
	store, cluster := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, "testindex"))
	fields := map[string]core.FieldSpec{"title": core.Field(core.FieldTypeText)}

	cluster.mappingError = "mapper_parsing_exception"
	err := store.PutMapping(ctx, "testindex", "note", fields)
	assert.ErrorIs(t, err, storage.ErrSchemaConflict)

	cluster.mappingError = "parse_exception"
	err = store.PutMapping(ctx, "testindex", "note", fields)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrSchemaConflict)
	assert.ErrorIs(t, err, storage.ErrRejected)
	assert.Contains(t, err.Error(), "parse_exception")

	cluster.mappingError = ""
	err = store.PutMapping(ctx, "missing", "note", fields)
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)
}

func TestStore_IndexDocument(t *testing.T) {
	store, cluster := newTestStore(t)
	ctx := context.Background()

	_, err := store.IndexDocument(ctx, "testindex", "my_doctype", core.Document{"version": int64(3)})
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)

	require.NoError(t, store.CreateIndex(ctx, "testindex"))
	id, err := store.IndexDocument(ctx, "testindex", "my_doctype", core.Document{
		"version":       int64(3),
		"another_field": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	require.Len(t, cluster.docs["testindex"], 1)
	doc := cluster.docs["testindex"][0]
	assert.Equal(t, float64(3), doc["version"])
	assert.Equal(t, true, doc["another_field"])
	assert.Equal(t, "my_doctype", doc[DefaultDoctypeField])
}

func TestStore_CustomDoctypeField(t *testing.T) {
	cluster := newFakeCluster()
	server := httptest.NewServer(cluster)
	defer server.Close()
	ctx := context.Background()

	store, err := Dial(ctx, Config{Addresses: []string{server.URL}, DoctypeField: "kind"})
	require.NoError(t, err)
	require.NoError(t, store.CreateIndex(ctx, "testindex"))

	_, err = store.IndexDocument(ctx, "testindex", "my_doctype", core.Document{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "my_doctype", cluster.docs["testindex"][0]["kind"])
}
