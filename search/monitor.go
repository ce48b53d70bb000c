package search

import "github.com/poiesic/docingest/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(doctype, query string)
	AfterIndexing(doctype string, documents int)
	AfterQuery(ids []string)
	VerbatimHit(doc *core.StoredDocument)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                  {}
func (n *noopMonitor) AfterIndexing(_ string, _ int)      {}
func (n *noopMonitor) AfterQuery(_ []string)              {}
func (n *noopMonitor) VerbatimHit(_ *core.StoredDocument) {}
func (n *noopMonitor) Finish(_ []*Result)                 {}
