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

package ai

import (
	"context"

	"github.com/poiesic/docingest/core"
)

// FeatureExtractor derives structured features from free text.
type FeatureExtractor interface {
	// ExtractFeatures analyzes text and returns one value per feature the
	// extractor was configured with. Features the model could not determine
	// are omitted. Values are scalars suitable for core.ValidateResult.
	// Returns an error if the model call fails or its answer cannot be parsed.
	ExtractFeatures(ctx context.Context, text string) (core.Result, error)
}

// TypeHints describes each field type in words a language model understands.
var TypeHints = map[core.FieldType]string{
	core.FieldTypeText:    "string of free text",
	core.FieldTypeKeyword: "short exact string, lowercase",
	core.FieldTypeBoolean: "true or false",
	core.FieldTypeLong:    "integer",
	core.FieldTypeDouble:  "number",
	core.FieldTypeDate:    "RFC 3339 timestamp string",
}
