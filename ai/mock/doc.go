// Package mock provides a test double for ai.FeatureExtractor.
//
// # Usage in Tests
//
//	extractor := mock.NewMockFeatureExtractor()
//	extractor.ExtractFeaturesFunc = func(ctx context.Context, text string) (core.Result, error) {
//	    return core.Result{"topic": "news"}, nil
//	}
//	count := extractor.CallCount()
//
// # Default Behavior
//
// Without an injected function the mock returns deterministic features
// derived from the text: its word count, its length and whether it is empty.
package mock
