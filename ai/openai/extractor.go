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

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoFields is returned when an extractor is created without features to extract.
var ErrNoFields = errors.New("feature extractor requires at least one field")

// FeatureExtractor implements ai.FeatureExtractor using OpenAI-compatible chat APIs.
type FeatureExtractor struct {
	client       llms.Model
	fields       map[string]core.FieldSpec
	systemPrompt string
	maxAttempts  int
	logger       *slog.Logger
}

// newFeatureExtractor is an internal constructor that returns the concrete type.
func newFeatureExtractor(config *ai.Config, fields map[string]core.FieldSpec) (*FeatureExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	normalized := make(map[string]core.FieldSpec, len(fields))
	for name, spec := range fields {
		t, err := core.NormalizeFieldType(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		normalized[name] = core.FieldSpec{Type: t, Indexed: spec.Indexed}
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &FeatureExtractor{
		client:       client,
		fields:       normalized,
		systemPrompt: buildSystemPrompt(normalized),
		maxAttempts:  config.MaxAttempts,
		logger:       slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewFeatureExtractor creates an extractor for the given features, typically
// the fields of a doctype.
//
// Returns ai.FeatureExtractor interface to enforce abstraction.
func NewFeatureExtractor(config *ai.Config, fields map[string]core.FieldSpec) (ai.FeatureExtractor, error) {
	return newFeatureExtractor(config, fields)
}

// ExtractFeatures asks the model for the configured features and coerces its
// answer to the declared field types. Unknown keys, nulls and values that do
// not fit their type are dropped.
func (e *FeatureExtractor) ExtractFeatures(ctx context.Context, text string) (core.Result, error) {
	text = scrubString(text)
	if text == "" {
		return core.Result{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(e.systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var raw map[string]any
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return core.Result{}, nil
		}

		answer := cleanResponse(response.Choices[0].Content)
		raw, lastErr = decodeObject(answer)
		if lastErr != nil {
			e.logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", answer,
				"err", lastErr)
			continue
		}
		break
	}
	if lastErr != nil {
		e.logger.Error("failed to parse model response after retries", "err", lastErr)
		return nil, lastErr
	}

	result := make(core.Result, len(raw))
	for name, value := range raw {
		spec, ok := e.fields[name]
		if !ok {
			e.logger.Debug("dropping undeclared feature", "feature", name)
			continue
		}
		coerced, ok := coerce(spec.Type, value)
		if !ok {
			e.logger.Debug("dropping feature with unexpected value", "feature", name, "type", spec.Type, "value", value)
			continue
		}
		result[name] = coerced
	}

	e.logger.Debug("extracted features", "returned", len(raw), "kept", len(result))
	return result, nil
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("model answer is not a JSON object")
	}
	return out, nil
}

// coerce converts a decoded JSON value to the Go type stored for t.
func coerce(t core.FieldType, value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		switch t {
		case core.FieldTypeText, core.FieldTypeKeyword:
			if t == core.FieldTypeKeyword {
				v = strings.ToLower(strings.TrimSpace(v))
			}
			return v, v != ""
		case core.FieldTypeDate:
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				ts, err = time.Parse(time.DateOnly, v)
			}
			return ts, err == nil
		case core.FieldTypeBoolean:
			b, err := strconv.ParseBool(v)
			return b, err == nil
		case core.FieldTypeLong, core.FieldTypeDouble:
			return coerce(t, json.Number(v))
		}
	case bool:
		return v, t == core.FieldTypeBoolean
	case json.Number:
		switch t {
		case core.FieldTypeLong:
			if n, err := v.Int64(); err == nil {
				return n, true
			}
			f, err := v.Float64()
			if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
				return nil, false
			}
			return int64(f), true
		case core.FieldTypeDouble:
			f, err := v.Float64()
			return f, err == nil
		case core.FieldTypeText, core.FieldTypeKeyword:
			return v.String(), true
		}
	}
	return nil, false
}
