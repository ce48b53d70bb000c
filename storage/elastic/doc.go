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

// Package elastic implements storage.Store on Elasticsearch.
//
// Every dial creates a separate client with its own HTTP transport, so
// connections dialed for different supervisors never share a connection pool.
//
// Elasticsearch dropped mapping types, so doctypes are stored as a keyword
// field (DefaultDoctypeField unless configured) on every document, and
// PutMapping maps that field alongside the doctype's own fields.
package elastic
