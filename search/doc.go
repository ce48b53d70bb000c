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

// Package search provides full-text search over stored documents.
//
// The Searcher reads documents back from a store that implements
// storage.DocumentReader and indexes them in memory with bleve, one index per
// doctype. Field mappings follow the doctype definitions stored with the
// index: fields declared with Indexed false are kept out of the search index.
//
// Results are ranked by bleve's relevance score, with a boost for documents
// whose text contains every query word.
package search
