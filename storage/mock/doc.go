// Package mock provides an in-memory test double for storage.Store.
//
// A MockBackend holds the shared state of a fake document store and records
// every call made through the connections dialed from it. Behavior can be
// injected per operation to simulate rejections.
//
// # Usage in Tests
//
//	backend := mock.NewMockBackend()
//	backend.IndexDocumentFunc = func(index, doctype string, doc core.Document) error {
//	    return errors.New("rejected")
//	}
//	store, err := backend.Dialer()(ctx)
//
//	// Inspect what reached the store
//	docs := backend.Documents("testindex", "my_doctype")
//	calls := backend.Calls()
package mock
