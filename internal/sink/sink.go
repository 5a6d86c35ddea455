// Package sink defines the output writer contract and a directory-backed
// implementation producing one JSON file per document plus a batch report.
package sink

import (
	"github.com/platinummonkey/docsift/internal/document"
)

// Sink receives finished document results and the final batch report.
// Implementations are assumed durable enough that the orchestrator does
// not retry writes.
type Sink interface {
	// Write persists one finished document result
	Write(result *document.DocumentResult) error

	// WriteReport persists the final batch report
	WriteReport(report *document.BatchReport) error
}
