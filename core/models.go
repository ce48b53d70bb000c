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

package core

import "time"

// SourceItem is an opaque unit of input material. It is handed to the parser
// unmodified; typical values are file paths, URLs or raw strings.
type SourceItem = any

// Result is the flat mapping a parser produces for a single source item.
// Values must be scalars: strings, booleans or numbers.
type Result map[string]any

// Document is a validated Result ready to be forwarded to a document store.
// Integers are normalized to int64, floats to float64 and times to RFC 3339 strings.
type Document map[string]any

// ParserFunc maps one source item to a flat result.
//
// Parsers run inside pool workers and must not touch state shared with the
// caller. No context is passed: once a parse has started it runs to completion.
type ParserFunc func(item SourceItem) (Result, error)

// FieldType names the storage type of a doctype field.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeKeyword FieldType = "keyword"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeLong    FieldType = "long"
	FieldTypeDouble  FieldType = "double"
	FieldTypeDate    FieldType = "date"

	// legacyFieldTypeString is accepted for older mapping definitions and
	// normalized to FieldTypeText.
	legacyFieldTypeString FieldType = "string"
)

// FieldSpec describes a single field of a doctype.
type FieldSpec struct {
	Type    FieldType
	Indexed bool // Whether the store should make the field searchable
}

// Field returns an indexed FieldSpec of the given type.
func Field(t FieldType) FieldSpec {
	return FieldSpec{Type: t, Indexed: true}
}

// StoredField returns a FieldSpec that is kept with the document but not indexed.
func StoredField(t FieldType) FieldSpec {
	return FieldSpec{Type: t, Indexed: false}
}

// Doctype is a named schema describing the fields of one class of documents.
type Doctype struct {
	Name   string
	Fields map[string]FieldSpec
}

// Clone returns a deep copy of the doctype.
func (d Doctype) Clone() Doctype {
	fields := make(map[string]FieldSpec, len(d.Fields))
	for name, spec := range d.Fields {
		fields[name] = spec
	}
	return Doctype{Name: d.Name, Fields: fields}
}

// StoredDocument is a document read back from a store together with its identity.
type StoredDocument struct {
	ID        string
	Doctype   string
	Body      Document
	IndexedAt time.Time
}
