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

package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
)

// MockFeatureExtractor is a test double for ai.FeatureExtractor.
// It allows custom behavior injection via function fields.
type MockFeatureExtractor struct {
	// ExtractFeaturesFunc is called by ExtractFeatures if set.
	// If nil, uses default word statistics.
	ExtractFeaturesFunc func(ctx context.Context, text string) (core.Result, error)

	callCount atomic.Int64
}

var _ ai.FeatureExtractor = (*MockFeatureExtractor)(nil)

// NewMockFeatureExtractor creates a mock extractor with default behavior.
func NewMockFeatureExtractor() *MockFeatureExtractor {
	return &MockFeatureExtractor{}
}

// ExtractFeatures returns simple statistics about text.
// Safe for concurrent use as long as ExtractFeaturesFunc is set before the
// first call.
func (m *MockFeatureExtractor) ExtractFeatures(ctx context.Context, text string) (core.Result, error) {
	m.callCount.Add(1)

	if m.ExtractFeaturesFunc != nil {
		return m.ExtractFeaturesFunc(ctx, text)
	}

	words := strings.Fields(text)
	return core.Result{
		"word_count": len(words),
		"length":     len(text),
		"empty":      len(words) == 0,
	}, nil
}

// CallCount returns the number of times ExtractFeatures was called.
func (m *MockFeatureExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockFeatureExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractFeaturesFunc = nil
}
