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

package storage

import (
	"context"

	"github.com/poiesic/docingest/core"
)

// Store is a connection to an indexed document store.
//
// A Store is owned by the goroutine that dialed it. Sessions and dispatch
// supervisors each dial their own Store and never hand one to another.
type Store interface {
	// IndexExists reports whether the named index exists.
	IndexExists(ctx context.Context, index string) (bool, error)

	// CreateIndex creates an empty index.
	// Returns ErrIndexExists if the index already exists.
	CreateIndex(ctx context.Context, index string) error

	// DeleteIndex removes an index together with its mappings and documents.
	// Returns ErrIndexNotFound if the index does not exist.
	DeleteIndex(ctx context.Context, index string) error

	// PutMapping registers field definitions for a doctype within an index.
	// New fields are merged into any existing mapping. Redefining an existing
	// field with a different type returns ErrSchemaConflict.
	PutMapping(ctx context.Context, index, doctype string, fields map[string]core.FieldSpec) error

	// IndexDocument stores a document and returns the identifier assigned by the store.
	IndexDocument(ctx context.Context, index, doctype string, doc core.Document) (string, error)

	// Close releases the connection. Closing one Store never affects another.
	Close() error
}

// Dialer opens a new Store connection.
type Dialer func(ctx context.Context) (Store, error)

// DocumentReader is implemented by stores that can read back what they hold.
type DocumentReader interface {
	// Mappings returns the field definitions of every doctype in an index.
	Mappings(ctx context.Context, index string) (map[string]map[string]core.FieldSpec, error)

	// ScanDocuments calls fn for every document of the doctype in the index.
	// An empty doctype scans all documents. Iteration stops at the first error
	// returned by fn.
	ScanDocuments(ctx context.Context, index, doctype string, fn func(doc *core.StoredDocument) error) error
}
