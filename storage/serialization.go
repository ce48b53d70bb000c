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
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docingest/core"
)

// Value tags of the document encoding.
const (
	valueString byte = iota + 1
	valueBool
	valueInt
	valueFloat
)

// MarshalDocument serializes a document together with the time it was indexed.
// Keys are written in sorted order so equal documents encode to equal bytes.
func MarshalDocument(indexedAt time.Time, doc core.Document) ([]byte, error) {
	keys := slices.Sorted(maps.Keys(doc))

	micros := indexedAt.UnixMicro()
	size := varint.Int64.Size(micros) + varint.Int.Size(len(keys))
	for _, key := range keys {
		vs, err := valueSize(doc[key])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrSerializationFailed, key, err)
		}
		size += ord.String.Size(key) + vs
	}

	buf := make([]byte, size)
	n := varint.Int64.Marshal(micros, buf)
	n += varint.Int.Marshal(len(keys), buf[n:])
	for _, key := range keys {
		n += ord.String.Marshal(key, buf[n:])
		n += marshalValue(doc[key], buf[n:])
	}
	return buf, nil
}

// UnmarshalDocument deserializes a document and its indexing time.
func UnmarshalDocument(data []byte) (time.Time, core.Document, error) {
	micros, n, err := varint.Int64.Unmarshal(data)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: indexed at: %w", ErrSerializationFailed, err)
	}
	count, m, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: field count: %w", ErrSerializationFailed, err)
	}
	n += m
	if count < 0 || count > len(data)-n {
		return time.Time{}, nil, fmt.Errorf("%w: field count %d", ErrSerializationFailed, count)
	}

	doc := make(core.Document, count)
	for i := 0; i < count; i++ {
		key, m, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("%w: field name: %w", ErrSerializationFailed, err)
		}
		n += m
		value, m, err := unmarshalValue(data[n:])
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("%w: field %q: %w", ErrSerializationFailed, key, err)
		}
		n += m
		doc[key] = value
	}
	return time.UnixMicro(micros).UTC(), doc, nil
}

func valueSize(value any) (int, error) {
	switch v := value.(type) {
	case string:
		return 1 + ord.String.Size(v), nil
	case bool:
		return 1 + ord.Bool.Size(v), nil
	case int64:
		return 1 + varint.Int64.Size(v), nil
	case float64:
		return 1 + raw.Float64.Size(v), nil
	default:
		return 0, fmt.Errorf("%w: %T", core.ErrUnsupportedValue, value)
	}
}

// marshalValue writes a tagged value. buf must hold valueSize(value) bytes.
func marshalValue(value any, buf []byte) int {
	switch v := value.(type) {
	case string:
		buf[0] = valueString
		return 1 + ord.String.Marshal(v, buf[1:])
	case bool:
		buf[0] = valueBool
		return 1 + ord.Bool.Marshal(v, buf[1:])
	case int64:
		buf[0] = valueInt
		return 1 + varint.Int64.Marshal(v, buf[1:])
	case float64:
		buf[0] = valueFloat
		return 1 + raw.Float64.Marshal(v, buf[1:])
	}
	return 0
}

func unmarshalValue(data []byte) (any, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrTruncatedData
	}
	switch data[0] {
	case valueString:
		v, n, err := ord.String.Unmarshal(data[1:])
		return v, n + 1, err
	case valueBool:
		v, n, err := ord.Bool.Unmarshal(data[1:])
		return v, n + 1, err
	case valueInt:
		v, n, err := varint.Int64.Unmarshal(data[1:])
		return v, n + 1, err
	case valueFloat:
		v, n, err := raw.Float64.Unmarshal(data[1:])
		return v, n + 1, err
	default:
		return nil, 0, fmt.Errorf("unknown value tag %d", data[0])
	}
}

// MarshalFields serializes a doctype mapping.
func MarshalFields(fields map[string]core.FieldSpec) []byte {
	names := slices.Sorted(maps.Keys(fields))

	size := varint.Int.Size(len(names))
	for _, name := range names {
		spec := fields[name]
		size += ord.String.Size(name) + ord.String.Size(string(spec.Type)) + ord.Bool.Size(spec.Indexed)
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(names), buf)
	for _, name := range names {
		spec := fields[name]
		n += ord.String.Marshal(name, buf[n:])
		n += ord.String.Marshal(string(spec.Type), buf[n:])
		n += ord.Bool.Marshal(spec.Indexed, buf[n:])
	}
	return buf
}

// UnmarshalFields deserializes a doctype mapping.
func UnmarshalFields(data []byte) (map[string]core.FieldSpec, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: field count: %w", ErrSerializationFailed, err)
	}
	if count < 0 || count > len(data)-n {
		return nil, fmt.Errorf("%w: field count %d", ErrSerializationFailed, count)
	}

	fields := make(map[string]core.FieldSpec, count)
	for i := 0; i < count; i++ {
		name, m, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: field name: %w", ErrSerializationFailed, err)
		}
		n += m
		fieldType, m, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q type: %w", ErrSerializationFailed, name, err)
		}
		n += m
		indexed, m, err := ord.Bool.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q indexed: %w", ErrSerializationFailed, name, err)
		}
		n += m
		fields[name] = core.FieldSpec{Type: core.FieldType(fieldType), Indexed: indexed}
	}
	return fields, nil
}
