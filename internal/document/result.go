package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the terminal outcome of processing one document.
type Status string

const (
	// StatusSuccess means every page of the document was recognized
	StatusSuccess Status = "success"

	// StatusPartialSuccess means at least one page succeeded and at
	// least one failed
	StatusPartialSuccess Status = "partial_success"

	// StatusFailed means no page of the document could be recognized
	StatusFailed Status = "failed"

	// StatusSkipped means the batch was cancelled before the document
	// started processing
	StatusSkipped Status = "skipped"
)

// Terminal reports whether the document actually ran to completion
// (successfully or not) as opposed to being skipped by cancellation.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusPartialSuccess || s == StatusFailed
}

// DocumentResult is the full outcome of processing one input document.
// It is created when the document enters processing, mutated only by the
// worker handling it, and immutable once the worker finishes.
type DocumentResult struct {
	// Source is the identifier of the input (path or URI)
	Source string `json:"source"`

	// ContentHash is the hex digest of the raw input bytes
	ContentHash string `json:"content_hash"`

	// Pages are the recognized pages in original page index order
	Pages []Page `json:"pages"`

	// WordCount is the total number of tokens across all pages
	WordCount int `json:"word_count"`

	// MeanConfidence is the average token confidence across all pages,
	// 0 when no tokens were recognized
	MeanConfidence float64 `json:"mean_confidence"`

	// Status is the overall outcome
	Status Status `json:"status"`

	// Error is the failure cause when Status is failed
	Error string `json:"error,omitempty"`

	// Attempts is the number of recognition attempts the gateway made
	Attempts int `json:"attempts,omitempty"`

	// Elapsed is the wall-clock processing time
	Elapsed time.Duration `json:"elapsed"`

	// CacheHit is true when the result was served from the result cache
	CacheHit bool `json:"cache_hit"`
}

// Finalize derives WordCount and Status from the page set. Skipped results
// are left untouched.
func (r *DocumentResult) Finalize() {
	if r.Status == StatusSkipped {
		return
	}

	words := 0
	succeeded := 0
	failed := 0
	confidence := 0.0
	for _, page := range r.Pages {
		if page.Failed() {
			failed++
			continue
		}
		succeeded++
		words += len(page.Tokens)
		for _, token := range page.Tokens {
			confidence += token.Confidence
		}
	}
	r.WordCount = words
	if words > 0 {
		r.MeanConfidence = confidence / float64(words)
	}

	switch {
	case succeeded == 0:
		r.Status = StatusFailed
		if r.Error == "" && failed > 0 {
			r.Error = r.Pages[firstFailedPage(r.Pages)].Error
		}
	case failed > 0:
		r.Status = StatusPartialSuccess
	default:
		r.Status = StatusSuccess
	}
}

func firstFailedPage(pages []Page) int {
	for i, page := range pages {
		if page.Failed() {
			return i
		}
	}
	return 0
}

// Summary condenses the result for inclusion in a batch report.
func (r *DocumentResult) Summary() DocumentSummary {
	return DocumentSummary{
		Source:      r.Source,
		ContentHash: r.ContentHash,
		Status:      r.Status,
		WordCount:   r.WordCount,
		Attempts:    r.Attempts,
		Error:       r.Error,
		Elapsed:     r.Elapsed,
		CacheHit:    r.CacheHit,
	}
}

// DocumentSummary is the per-document line item of a BatchReport.
type DocumentSummary struct {
	Source      string        `json:"source"`
	ContentHash string        `json:"content_hash,omitempty"`
	Status      Status        `json:"status"`
	WordCount   int           `json:"word_count"`
	Attempts    int           `json:"attempts,omitempty"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	CacheHit    bool          `json:"cache_hit"`
}

// BatchReport aggregates the outcome of one batch run. It is built
// incrementally as workers complete and finalized once every input
// document is accounted for.
type BatchReport struct {
	// RunID uniquely identifies this batch run
	RunID string `json:"run_id"`

	// Total is the number of input documents
	Total int `json:"total"`

	// Succeeded counts documents with StatusSuccess
	Succeeded int `json:"succeeded"`

	// Partial counts documents with StatusPartialSuccess
	Partial int `json:"partial"`

	// Failed counts documents with StatusFailed
	Failed int `json:"failed"`

	// Skipped counts documents not started due to cancellation
	Skipped int `json:"skipped"`

	// Cached counts documents served from the result cache
	Cached int `json:"cached"`

	// Documents lists every input exactly once, in input order
	Documents []DocumentSummary `json:"documents"`

	// StartTime is when the batch run began
	StartTime time.Time `json:"start_time"`

	// EndTime is when the batch run finished
	EndTime time.Time `json:"end_time"`
}

// NewBatchReport creates an empty report with a fresh run ID.
func NewBatchReport() *BatchReport {
	return &BatchReport{
		RunID:     uuid.NewString(),
		Documents: make([]DocumentSummary, 0),
		StartTime: time.Now(),
	}
}

// Add records one completed document.
func (b *BatchReport) Add(result *DocumentResult) {
	b.Total++
	b.Documents = append(b.Documents, result.Summary())

	switch result.Status {
	case StatusSuccess:
		b.Succeeded++
	case StatusPartialSuccess:
		b.Partial++
	case StatusFailed:
		b.Failed++
	case StatusSkipped:
		b.Skipped++
	}
	if result.CacheHit {
		b.Cached++
	}
}

// Finish stamps the end time.
func (b *BatchReport) Finish() {
	b.EndTime = time.Now()
}

// Duration returns the wall-clock duration of the batch run.
func (b *BatchReport) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// SuccessRate returns the fraction of terminal documents that fully
// succeeded, in [0, 1].
func (b *BatchReport) SuccessRate() float64 {
	terminal := b.Succeeded + b.Partial + b.Failed
	if terminal == 0 {
		return 0
	}
	return float64(b.Succeeded) / float64(terminal)
}

// Summary returns a human-readable overview of the batch run.
func (b *BatchReport) Summary() string {
	var sb strings.Builder

	sb.WriteString("Batch Summary:\n")
	sb.WriteString(fmt.Sprintf("  Total:     %d\n", b.Total))
	sb.WriteString(fmt.Sprintf("  Succeeded: %d\n", b.Succeeded))
	if b.Partial > 0 {
		sb.WriteString(fmt.Sprintf("  Partial:   %d\n", b.Partial))
	}
	sb.WriteString(fmt.Sprintf("  Failed:    %d\n", b.Failed))
	if b.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("  Skipped:   %d\n", b.Skipped))
	}
	sb.WriteString(fmt.Sprintf("  Cached:    %d\n", b.Cached))
	sb.WriteString(fmt.Sprintf("  Duration:  %v\n", b.Duration().Round(time.Millisecond)))

	if b.Failed > 0 {
		sb.WriteString("\nFailures:\n")
		for _, doc := range b.Documents {
			if doc.Status == StatusFailed {
				sb.WriteString(fmt.Sprintf("  - %s: %s\n", doc.Source, doc.Error))
			}
		}
	}

	return sb.String()
}

// String returns the report summary.
func (b *BatchReport) String() string {
	return b.Summary()
}
