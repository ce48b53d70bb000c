package parsers

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
)

// DefaultExtractTimeout bounds one model call made by LLM.
const DefaultExtractTimeout = 2 * time.Minute

// LLMOption configures the LLM parser.
type LLMOption func(*llmParser) error

type llmParser struct {
	extractor ai.FeatureExtractor
	source    core.ParserFunc
	timeout   time.Duration
	keepText  bool
}

// WithSource sets the parser that turns an item into text before extraction.
// Its result must carry a "text" field; its other fields are merged into the
// LLM result, with extracted features taking precedence.
// Default is Text().
func WithSource(parse core.ParserFunc) LLMOption {
	return func(p *llmParser) error {
		if parse == nil {
			return fmt.Errorf("source parser must not be nil")
		}
		p.source = parse
		return nil
	}
}

// WithExtractTimeout bounds each model call.
// Default is DefaultExtractTimeout.
func WithExtractTimeout(d time.Duration) LLMOption {
	return func(p *llmParser) error {
		if d <= 0 {
			return fmt.Errorf("extract timeout must be positive, got %s", d)
		}
		p.timeout = d
		return nil
	}
}

// WithKeepText keeps the source text in the result. Default is false: only
// the source's other fields and the extracted features are kept.
func WithKeepText(keep bool) LLMOption {
	return func(p *llmParser) error {
		p.keepText = keep
		return nil
	}
}

// LLM returns a parser that asks a language model for features of each
// item's text. The item is first read by the source parser.
func LLM(extractor ai.FeatureExtractor, opts ...LLMOption) (core.ParserFunc, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	p := &llmParser{
		extractor: extractor,
		source:    Text(),
		timeout:   DefaultExtractTimeout,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p.parse, nil
}

func (p *llmParser) parse(item core.SourceItem) (core.Result, error) {
	base, err := p.source(item)
	if err != nil {
		return nil, err
	}
	text, ok := base[FieldText].(string)
	if !ok {
		return nil, fmt.Errorf("%w: source result has no %q field", ErrUnsupportedItem, FieldText)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	features, err := p.extractor.ExtractFeatures(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	result := make(core.Result, len(base)+len(features))
	maps.Copy(result, base)
	if !p.keepText {
		delete(result, FieldText)
	}
	maps.Copy(result, features)
	return result, nil
}
