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

// Package ai provides abstractions for language-model feature extraction.
//
// A FeatureExtractor reads a piece of text and returns a flat set of named
// features, typed after the fields of a doctype. The parsers package wraps an
// extractor into a parser function so model output can be ingested like any
// other parse result.
//
// # Implementation Packages
//
//   - ai/openai: extractor backed by OpenAI-compatible chat APIs
//   - ai/mock: test double for unit tests without a model server
//
// Public constructors in ai/openai return interface types. The mock
// constructor returns the concrete type so tests can inject behavior and
// inspect call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	extractor, err := openai.NewFeatureExtractor(config, map[string]core.FieldSpec{
//	    "topic":     core.Field(core.FieldTypeKeyword),
//	    "sentiment": core.Field(core.FieldTypeDouble),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	features, err := extractor.ExtractFeatures(ctx, "The launch went better than expected.")
package ai
