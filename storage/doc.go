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

// Package storage provides the document store abstraction for docingest.
//
// The Store interface is the small operation set the ingestion layer needs from
// an indexed document store: index lifecycle, mapping registration and document
// indexing. Backends live in subpackages:
//
//   - storage/elastic: Elasticsearch over HTTP
//   - storage/badger: an embedded store on BadgerDB, useful offline and in tests
//   - storage/mock: an in-memory recording store for tests
//
// # Connections
//
// A Store value is a connection. It is not shared across goroutines that run
// independent work: every component that talks to the store obtains its own
// connection from a Dialer.
//
//	store, err := dial(ctx)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// # Errors
//
// Backends translate their failures into the sentinel errors of this package
// (ErrSchemaConflict, ErrIndexNotFound, ...) wrapped with context, so callers
// can use errors.Is regardless of the backend.
package storage
