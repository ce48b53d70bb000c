// Package docingest ingests arbitrary source material into an indexed
// document store without blocking the caller.
//
// A Session owns one store connection and a registry of doctypes. Each call to
// Ingest starts a background dispatch that runs a caller-supplied parser over
// every item on a bounded worker pool and forwards each successful result to
// the store as a document:
//
//	session, err := docingest.NewSession(ctx, dialer, "library",
//		docingest.WithDeleteIndexOnInit(true))
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	err = session.CreateDoctype(ctx, "article", map[string]core.FieldSpec{
//		"title": core.Field(core.FieldTypeText),
//	})
//	handle, err := session.Ingest("article", paths, parsers.File())
//
// Ingest returns as soon as the dispatch is started. Parse failures and
// indexing failures are logged per item and never reach the caller. Close
// terminates every dispatch still running; Wait blocks until they finish.
package docingest
