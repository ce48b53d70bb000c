package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// verbatimBoost is added to the score of a document that contains every query word.
const verbatimBoost = 0.3

// Result is one search hit.
type Result struct {
	Document *core.StoredDocument
	Score    float64
}

// Searcher runs full-text queries over the documents of one index.
//
// Documents are read and indexed on the first search of each doctype and
// cached until Refresh is called. Documents ingested afterwards are not
// visible until then.
type Searcher struct {
	reader storage.DocumentReader
	index  string
	logger *slog.Logger

	mu     sync.Mutex
	cached map[string]*doctypeIndex
}

type doctypeIndex struct {
	bleve bleve.Index
	docs  map[string]*core.StoredDocument
	texts map[string][]string // indexed string values per document, for verbatim matching
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher over an index.
func NewSearcher(reader storage.DocumentReader, index string, opts ...Option) (*Searcher, error) {
	if reader == nil {
		return nil, ErrReaderRequired
	}
	if index == "" {
		return nil, ErrIndexRequired
	}

	s := &Searcher{
		reader: reader,
		index:  index,
		logger: slog.Default(),
		cached: make(map[string]*doctypeIndex),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher", "index", index)

	return s, nil
}

// Search runs a bleve query string query against the documents of a doctype.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) Search(ctx context.Context, doctype, query string, maxHits int) ([]*Result, error) {
	return s.SearchWithMonitor(ctx, doctype, query, maxHits, nil)
}

// SearchWithMonitor is Search with callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, doctype, query string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}
	if maxHits < 1 {
		return []*Result{}, nil
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(doctype, query)

	idx, err := s.doctypeIndex(ctx, doctype, monitor)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), maxHits*3, 0, false)
	res, err := idx.bleve.SearchInContext(ctx, req)
	if err != nil {
		s.logger.Error("error running query", "doctype", doctype, "query", query, "err", err)
		return nil, fmt.Errorf("search %s: %w", doctype, err)
	}

	ids := make([]string, 0, len(res.Hits))
	results := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
		doc, ok := idx.docs[hit.ID]
		if !ok {
			continue
		}

		score := hit.Score
		if containsAllQueryWords(idx.texts[hit.ID], query) {
			score += verbatimBoost
			monitor.VerbatimHit(doc)
		}
		results = append(results, &Result{Document: doc, Score: score})
	}
	monitor.AfterQuery(ids)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search finished", "doctype", doctype, "hits", len(res.Hits), "returned", len(results))
	return results, nil
}

// Refresh drops every cached index so the next search reads the store again.
func (s *Searcher) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, idx := range s.cached {
		if err := idx.bleve.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index for %s: %w", name, err))
		}
	}
	clear(s.cached)
	return errors.Join(errs...)
}

// Close releases the in-memory indexes.
func (s *Searcher) Close() error {
	return s.Refresh()
}

func (s *Searcher) doctypeIndex(ctx context.Context, doctype string, monitor SearchMonitor) (*doctypeIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.cached[doctype]; ok {
		return idx, nil
	}

	mappings, err := s.reader.Mappings(ctx, s.index)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	fields := mappings[doctype]

	bi, err := bleve.NewMemOnly(buildIndexMapping(fields))
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}

	idx := &doctypeIndex{
		bleve: bi,
		docs:  make(map[string]*core.StoredDocument),
		texts: make(map[string][]string),
	}

	batch := bi.NewBatch()
	err = s.reader.ScanDocuments(ctx, s.index, doctype, func(doc *core.StoredDocument) error {
		if err := batch.Index(doc.ID, map[string]any(doc.Body)); err != nil {
			return err
		}
		idx.docs[doc.ID] = doc
		idx.texts[doc.ID] = searchableText(doc.Body, fields)
		if batch.Size() >= 500 {
			if err := bi.Batch(batch); err != nil {
				return err
			}
			batch.Reset()
		}
		return nil
	})
	if err == nil && batch.Size() > 0 {
		err = bi.Batch(batch)
	}
	if err != nil {
		_ = bi.Close()
		return nil, fmt.Errorf("index documents of %s: %w", doctype, err)
	}

	s.cached[doctype] = idx
	monitor.AfterIndexing(doctype, len(idx.docs))
	s.logger.Debug("documents indexed", "doctype", doctype, "count", len(idx.docs))
	return idx, nil
}

// buildIndexMapping maps doctype fields onto bleve field mappings. Fields
// without a definition are mapped dynamically; fields declared not indexed
// are disabled.
func buildIndexMapping(fields map[string]core.FieldSpec) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	dm := bleve.NewDocumentMapping()

	for name, spec := range fields {
		if !spec.Indexed {
			dm.AddSubDocumentMapping(name, bleve.NewDocumentDisabledMapping())
			continue
		}
		var fm *mapping.FieldMapping
		switch spec.Type {
		case core.FieldTypeKeyword:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
		case core.FieldTypeBoolean:
			fm = bleve.NewBooleanFieldMapping()
		case core.FieldTypeLong, core.FieldTypeDouble:
			fm = bleve.NewNumericFieldMapping()
		case core.FieldTypeDate:
			fm = bleve.NewDateTimeFieldMapping()
		default:
			fm = bleve.NewTextFieldMapping()
		}
		dm.AddFieldMappingsAt(name, fm)
	}

	im.DefaultMapping = dm
	return im
}

// searchableText returns the string values of a document that are part of
// the search index.
func searchableText(body core.Document, fields map[string]core.FieldSpec) []string {
	var out []string
	for name, value := range body {
		if spec, ok := fields[name]; ok && !spec.Indexed {
			continue
		}
		if s, ok := value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
