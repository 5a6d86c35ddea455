// Package batch schedules document recognition across a bounded worker
// pool, applies the result cache, and aggregates a run report. A failure
// on one document never aborts the batch.
package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/platinummonkey/docsift/internal/cache"
	"github.com/platinummonkey/docsift/internal/document"
	"github.com/platinummonkey/docsift/internal/layout"
	"github.com/platinummonkey/docsift/internal/logger"
	"github.com/platinummonkey/docsift/internal/recognize"
	"github.com/platinummonkey/docsift/internal/sink"
	"github.com/platinummonkey/docsift/internal/source"
)

// DefaultConcurrency is the default worker pool size.
const DefaultConcurrency = 10

// Config holds configuration for the batch orchestrator.
type Config struct {
	// Gateway performs recognition calls (required)
	Gateway *recognize.Gateway

	// Analyzer reconstructs page layout (defaults to default thresholds)
	Analyzer *layout.Analyzer

	// Cache is the result cache (defaults to an in-memory store)
	Cache cache.Store

	// Sink receives results and the final report (required)
	Sink sink.Sink

	// Logger for structured logging (defaults to the global logger)
	Logger *logger.Logger

	// Concurrency is the worker pool size (defaults to 10)
	Concurrency int

	// LanguageHints are passed through to the recognition provider
	LanguageHints []string
}

// Orchestrator coordinates one batch run. The shared state it hands to
// workers (rate limiter inside the gateway, cache store) is scoped to the
// orchestrator, not process-wide, so unrelated batches don't interfere.
type Orchestrator struct {
	gateway       *recognize.Gateway
	analyzer      *layout.Analyzer
	cache         cache.Store
	sink          sink.Sink
	logger        *logger.Logger
	concurrency   int
	languageHints []string

	mu    sync.Mutex
	fatal error
}

// New creates a batch orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = layout.New(layout.DefaultConfig())
	}
	store := cfg.Cache
	if store == nil {
		store = cache.NewMemoryStore()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Orchestrator{
		gateway:       cfg.Gateway,
		analyzer:      analyzer,
		cache:         store,
		sink:          cfg.Sink,
		logger:        log,
		concurrency:   concurrency,
		languageHints: cfg.LanguageHints,
	}, nil
}

// job pairs a source document with its input position so the report can
// list documents in input order regardless of completion order.
type job struct {
	index int
	doc   *source.Document
}

// Run processes every enumerated document and returns the batch report.
// Workers complete in arbitrary order; the report lists every input
// exactly once, in input order. Cancellation stops new documents from
// starting: in-flight documents drain, documents not yet started are
// reported as skipped, never silently dropped.
//
// The returned error is non-nil only for collaborator-contract violations
// (enumeration or sink failure); per-document errors live in the report.
func (o *Orchestrator) Run(ctx context.Context, sources source.Enumerator) (*document.BatchReport, error) {
	report := document.NewBatchReport()
	log := o.logger.WithRunID(report.RunID)
	log.WithFields("concurrency", o.concurrency).Info("Starting batch run")

	jobs := make(chan job)
	var mu sync.Mutex
	var results []*document.DocumentResult

	var wg sync.WaitGroup
	for w := 0; w < o.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				var result *document.DocumentResult
				if ctx.Err() != nil {
					result = o.skip(j.doc)
				} else {
					result = o.processDocument(ctx, j.doc)
				}
				mu.Lock()
				results[j.index] = result
				mu.Unlock()
			}
		}()
	}

	var enumErr error
	index := 0
	for {
		doc, err := sources.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			enumErr = fmt.Errorf("source enumeration failed: %w", err)
			break
		}

		mu.Lock()
		results = append(results, nil)
		mu.Unlock()
		jobs <- job{index: index, doc: doc}
		index++
	}
	close(jobs)
	wg.Wait()

	for _, result := range results {
		if result == nil {
			continue
		}
		report.Add(result)
	}
	report.Finish()

	if err := o.sink.WriteReport(report); err != nil {
		o.recordFatal(fmt.Errorf("failed to write batch report: %w", err))
	}

	log.WithFields(
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"cached", report.Cached,
		"duration", report.Duration(),
	).Info("Batch run completed")

	if enumErr != nil {
		return report, enumErr
	}
	return report, o.fatalErr()
}

// processDocument runs one document through the pipeline:
// hash -> cache -> recognize -> layout -> sink (+ cache write on success).
func (o *Orchestrator) processDocument(ctx context.Context, doc *source.Document) *document.DocumentResult {
	start := time.Now()
	log := o.logger.WithSource(doc.ID)
	result := &document.DocumentResult{Source: doc.ID}

	data, err := io.ReadAll(doc.Reader)
	doc.Reader.Close()
	if err != nil {
		result.Status = document.StatusFailed
		result.Error = fmt.Sprintf("failed to read input: %v", err)
		result.Elapsed = time.Since(start)
		o.write(result)
		return result
	}

	result.ContentHash = cache.ContentHash(data)

	cached, found, err := o.cache.Get(result.ContentHash)
	if err != nil {
		// Treated as a miss; the cache is an optimization, not a dependency
		log.WithError(err).Warn("Cache lookup failed")
	}
	if found {
		hit := *cached
		hit.Source = doc.ID
		hit.CacheHit = true
		hit.Elapsed = time.Since(start)
		log.Debug("Serving document from cache")
		o.write(&hit)
		return &hit
	}

	outcome, err := o.gateway.Recognize(ctx, data, doc.ContentType, o.languageHints)
	result.Attempts = outcome.Attempts
	result.Pages = outcome.Pages
	if err != nil {
		result.Status = document.StatusFailed
		result.Error = err.Error()
		result.Elapsed = time.Since(start)
		log.WithError(err).WithFields("attempts", result.Attempts).Error("Document recognition failed")
		o.write(result)
		return result
	}

	for i := range result.Pages {
		page := &result.Pages[i]
		if page.Failed() {
			continue
		}
		pageLayout := o.analyzer.Analyze(*page)
		page.Layout = &pageLayout
	}

	result.Finalize()
	result.Elapsed = time.Since(start)

	if result.Status == document.StatusSuccess {
		if err := o.cache.Put(result.ContentHash, result); err != nil {
			log.WithError(err).Warn("Failed to write cache entry")
		}
	}

	o.write(result)
	log.WithFields(
		"status", result.Status,
		"pages", len(result.Pages),
		"words", result.WordCount,
		"attempts", result.Attempts,
		"duration", result.Elapsed,
	).Info("Document processed")
	return result
}

// skip records a document the batch was cancelled before starting.
func (o *Orchestrator) skip(doc *source.Document) *document.DocumentResult {
	if doc.Reader != nil {
		doc.Reader.Close()
	}
	result := &document.DocumentResult{
		Source: doc.ID,
		Status: document.StatusSkipped,
	}
	o.write(result)
	return result
}

// write persists a result to the sink. Sink failures are fatal to the run
// per the collaborator contract, but workers drain first so the report
// still accounts for every document.
func (o *Orchestrator) write(result *document.DocumentResult) {
	if err := o.sink.Write(result); err != nil {
		o.recordFatal(fmt.Errorf("sink write for %s failed: %w", result.Source, err))
	}
}

func (o *Orchestrator) recordFatal(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fatal == nil {
		o.fatal = err
	}
}

func (o *Orchestrator) fatalErr() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatal
}
