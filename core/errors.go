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

import "errors"

var (
	// ErrParseFailure indicates that a parser failed on a single source item.
	ErrParseFailure = errors.New("parse failure")

	// ErrParserPanic indicates a parser panicked; the panic is recovered and
	// reported as a parse failure of that item only.
	ErrParserPanic = errors.New("parser panicked")

	// ErrInvalidResult indicates a parser returned a result that is not a flat scalar mapping.
	ErrInvalidResult = errors.New("invalid parse result")

	// ErrUnsupportedValue indicates a result value is not a string, boolean or number.
	ErrUnsupportedValue = errors.New("unsupported value type")

	// ErrInvalidDoctype indicates a Doctype failed validation.
	ErrInvalidDoctype = errors.New("invalid doctype")

	// ErrInvalidFieldSpec indicates a FieldSpec failed validation.
	ErrInvalidFieldSpec = errors.New("invalid field spec")

	// ErrEmptyName indicates a doctype or field name is empty.
	ErrEmptyName = errors.New("name cannot be empty")
)
