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

import "errors"

var (
	// ErrSchemaConflict indicates the store rejected a mapping, typically because
	// a field is already mapped with an incompatible type.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrIndexNotFound indicates that the requested index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexExists indicates an attempt to create an index that already exists.
	ErrIndexExists = errors.New("index already exists")

	// ErrStorageClosed indicates that the store connection is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrUnreachable indicates that the store could not be contacted.
	ErrUnreachable = errors.New("store unreachable")

	// ErrRejected indicates the store refused a request for a reason other than a schema conflict.
	ErrRejected = errors.New("request rejected by store")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")

	// ErrInvalidMaxAttempts indicates a retry was requested with no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
