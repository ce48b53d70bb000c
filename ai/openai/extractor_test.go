package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer answers chat completion requests with the given contents in
// order, repeating the last one.
func fakeChatServer(t *testing.T, answers ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		n := int(calls.Add(1)) - 1
		answer := answers[min(n, len(answers)-1)]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": answer},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

var testFields = map[string]core.FieldSpec{
	"topic":      core.Field(core.FieldTypeKeyword),
	"positive":   core.Field(core.FieldTypeBoolean),
	"word_count": core.Field(core.FieldTypeLong),
	"score":      core.StoredField(core.FieldTypeDouble),
}

func newTestExtractor(t *testing.T, srv *httptest.Server, opts ...ai.ConfigOption) *FeatureExtractor {
	t.Helper()
	opts = append([]ai.ConfigOption{ai.WithHost(srv.URL), ai.WithModel("test-model")}, opts...)
	e, err := newFeatureExtractor(ai.NewConfig(opts...), testFields)
	require.NoError(t, err)
	return e
}

func TestFeatureExtractor_ExtractFeatures(t *testing.T) {
	srv, _ := fakeChatServer(t, `{"topic":"Finance ","positive":true,"word_count":6,"score":0.75,"extra":"x"}`)
	e := newTestExtractor(t, srv)

	result, err := e.ExtractFeatures(context.Background(), "Our quarterly results beat every forecast.")
	require.NoError(t, err)
	assert.Equal(t, core.Result{
		"topic":      "finance",
		"positive":   true,
		"word_count": int64(6),
		"score":      0.75,
	}, result)
}

func TestFeatureExtractor_RetriesMalformedAnswers(t *testing.T) {
	srv, calls := fakeChatServer(t, "not json at all", "```json\n{topic\": \"sports\"}\n```")
	e := newTestExtractor(t, srv)

	result, err := e.ExtractFeatures(context.Background(), "The match ended in a draw.")
	require.NoError(t, err)
	assert.Equal(t, core.Result{"topic": "sports"}, result)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFeatureExtractor_GivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := fakeChatServer(t, "nope")
	e := newTestExtractor(t, srv, ai.WithMaxAttempts(2))

	_, err := e.ExtractFeatures(context.Background(), "anything")
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFeatureExtractor_EmptyInput(t *testing.T) {
	srv, calls := fakeChatServer(t, `{}`)
	e := newTestExtractor(t, srv)

	result, err := e.ExtractFeatures(context.Background(), "   \n\t ")
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Zero(t, calls.Load())
}

func TestNewFeatureExtractor_Validation(t *testing.T) {
	_, err := NewFeatureExtractor(ai.NewConfig(), nil)
	assert.ErrorIs(t, err, ErrNoFields)

	_, err = NewFeatureExtractor(ai.NewConfig(ai.WithModel("")), testFields)
	assert.Error(t, err)

	_, err = NewFeatureExtractor(ai.NewConfig(), map[string]core.FieldSpec{"x": {Type: "blob"}})
	assert.ErrorIs(t, err, core.ErrInvalidFieldSpec)
}

func TestCoerce(t *testing.T) {
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		t     core.FieldType
		value any
		want  any
		ok    bool
	}{
		{"text", core.FieldTypeText, "Hello There", "Hello There", true},
		{"keyword lowercased", core.FieldTypeKeyword, " News ", "news", true},
		{"empty keyword", core.FieldTypeKeyword, "  ", nil, false},
		{"bool", core.FieldTypeBoolean, true, true, true},
		{"bool from string", core.FieldTypeBoolean, "false", false, true},
		{"bool for long", core.FieldTypeLong, true, nil, false},
		{"long", core.FieldTypeLong, json.Number("42"), int64(42), true},
		{"long from integral float", core.FieldTypeLong, json.Number("42.0"), int64(42), true},
		{"long from fraction", core.FieldTypeLong, json.Number("4.5"), nil, false},
		{"long overflow", core.FieldTypeLong, json.Number("1e300"), nil, false},
		{"long negative overflow", core.FieldTypeLong, json.Number("-1e300"), nil, false},
		{"long just past max", core.FieldTypeLong, json.Number("9223372036854775808"), nil, false},
		{"long large integral float", core.FieldTypeLong, json.Number("1e15"), int64(1e15), true},
		{"long from string", core.FieldTypeLong, "7", int64(7), true},
		{"double", core.FieldTypeDouble, json.Number("0.5"), 0.5, true},
		{"date", core.FieldTypeDate, "2025-03-01T00:00:00Z", date, true},
		{"date only", core.FieldTypeDate, "2025-03-01", date, true},
		{"bad date", core.FieldTypeDate, "yesterday", nil, false},
		{"nested", core.FieldTypeText, map[string]any{"a": 1}, nil, false},
		{"null", core.FieldTypeText, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerce(tt.t, tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid untouched", `{"topic": "x", "n": 1}`, `{"topic": "x", "n": 1}`},
		{"missing opening quote", `{topic": "x"}`, `{"topic": "x"}`},
		{"after comma", `{"a": 1, word_count": 2}`, `{"a": 1, "word_count": 2}`},
		{"bare literal kept", `{"a": true, "b": [1, false]}`, `{"a": true, "b": [1, false]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt(testFields)
	assert.Contains(t, prompt, `- "positive": true or false`)
	assert.Contains(t, prompt, `- "word_count": integer`)
	assert.Less(t, strings.Index(prompt, `"positive"`), strings.Index(prompt, `"topic"`))
}

func TestScrubString(t *testing.T) {
	assert.Equal(t, "a b c", scrubString("  a\n\n b\t\tc \x00"))
}
