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

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// ParseError records a parser fault for a single source item.
// It matches both ErrParseFailure and the underlying fault with errors.Is.
type ParseError struct {
	Index int        // Position of the item in the ingest call
	Item  SourceItem // The item as handed to the parser
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse item %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParseFailure, e.Err}
}

// ValidateResult checks that a parser result is a flat mapping of scalars and
// returns it as a Document.
//
// Accepted value types:
//   - string, bool
//   - all signed and unsigned integer types (normalized to int64)
//   - float32, float64 (normalized to float64, NaN and Inf rejected)
//   - time.Time (formatted as RFC 3339)
//
// The returned Document never aliases the result map.
func ValidateResult(result Result) (Document, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: result is nil", ErrInvalidResult)
	}

	doc := make(Document, len(result))
	for key, value := range result {
		if key == "" {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResult, ErrEmptyName)
		}
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidResult, key, err)
		}
		doc[key] = normalized
	}
	return doc, nil
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case string, bool, int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return checkFloat(float64(v))
	case float64:
		return checkFloat(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedValue)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

func uintToInt64(v uint64) (any, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, v)
	}
	return int64(v), nil
}

func checkFloat(v float64) (any, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, v)
	}
	return v, nil
}

// ValidateName checks a doctype, field or index name.
//
// Names must be non-empty, must not start with an underscore (reserved for
// store metadata) and must not contain whitespace, ':' or '/'.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("name %q must not start with '_'", name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == ':' || r == '/' {
			return fmt.Errorf("name %q contains %q", name, r)
		}
	}
	return nil
}

// NormalizeFieldType maps a field type name to its canonical FieldType.
// It returns ErrInvalidFieldSpec for unknown types.
func NormalizeFieldType(t FieldType) (FieldType, error) {
	switch FieldType(strings.ToLower(string(t))) {
	case FieldTypeText, legacyFieldTypeString:
		return FieldTypeText, nil
	case FieldTypeKeyword:
		return FieldTypeKeyword, nil
	case FieldTypeBoolean:
		return FieldTypeBoolean, nil
	case FieldTypeLong:
		return FieldTypeLong, nil
	case FieldTypeDouble:
		return FieldTypeDouble, nil
	case FieldTypeDate:
		return FieldTypeDate, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidFieldSpec, t)
	}
}

// ValidateDoctype validates a Doctype and returns a normalized copy.
//
// Validation rules:
//   - Name must be a valid name (see ValidateName)
//   - Field names must be valid and must not contain '.' (no nested fields)
//   - Field types must be known; "string" is normalized to "text"
//
// A doctype without fields is valid; the store maps fields dynamically.
func ValidateDoctype(d Doctype) (Doctype, error) {
	if err := ValidateName(d.Name); err != nil {
		return Doctype{}, fmt.Errorf("%w: %w", ErrInvalidDoctype, err)
	}

	normalized := Doctype{Name: d.Name, Fields: make(map[string]FieldSpec, len(d.Fields))}
	for name, spec := range d.Fields {
		if err := ValidateName(name); err != nil {
			return Doctype{}, fmt.Errorf("%w: field: %w", ErrInvalidDoctype, err)
		}
		if strings.Contains(name, ".") {
			return Doctype{}, fmt.Errorf("%w: field %q: nested fields are not supported", ErrInvalidDoctype, name)
		}
		t, err := NormalizeFieldType(spec.Type)
		if err != nil {
			return Doctype{}, fmt.Errorf("%w: field %q: %w", ErrInvalidDoctype, name, err)
		}
		normalized.Fields[name] = FieldSpec{Type: t, Indexed: spec.Indexed}
	}
	return normalized, nil
}
