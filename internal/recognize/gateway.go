package recognize

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/platinummonkey/docsift/internal/document"
	"github.com/platinummonkey/docsift/internal/logger"
)

const (
	// DefaultMaxAttempts is the default attempt cap per remote call
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the initial backoff delay
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps a single backoff delay
	DefaultMaxDelay = 8 * time.Second

	// DefaultMaxTotalWait caps the cumulative backoff per remote call
	DefaultMaxTotalWait = 30 * time.Second

	// DefaultRequestsPerSecond is the default aggregate request rate
	DefaultRequestsPerSecond = 5

	// DefaultMaxPagesPerCall is the page limit per underlying call
	DefaultMaxPagesPerCall = 5

	// DefaultMaxBytesPerCall is the payload size limit per call
	DefaultMaxBytesPerCall = 20 << 20
)

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Recognizer is the remote recognition capability (required)
	Recognizer Recognizer

	// Logger for structured logging (defaults to the global logger)
	Logger *logger.Logger

	// MaxAttempts caps attempts per remote call, including the first
	MaxAttempts int

	// BaseDelay is the first retry delay; it doubles per attempt
	BaseDelay time.Duration

	// MaxDelay caps a single retry delay
	MaxDelay time.Duration

	// MaxTotalWait caps cumulative backoff time per remote call
	MaxTotalWait time.Duration

	// RequestsPerSecond is the aggregate request rate across all
	// concurrent callers sharing this gateway
	RequestsPerSecond float64

	// Burst is the rate limiter burst size (defaults to 1)
	Burst int

	// MaxPagesPerCall splits PDFs so one call never carries more pages
	MaxPagesPerCall int

	// MaxBytesPerCall rejects payloads the service would refuse
	MaxBytesPerCall int
}

// Gateway adapts one document to one or more calls against the remote
// recognition capability. It is stateless aside from the shared rate
// limiter and is safe for concurrent use.
type Gateway struct {
	recognizer      Recognizer
	limiter         *rate.Limiter
	logger          *logger.Logger
	maxAttempts     int
	baseDelay       time.Duration
	maxDelay        time.Duration
	maxTotalWait    time.Duration
	maxPagesPerCall int
	maxBytesPerCall int
}

// NewGateway creates a Gateway, applying defaults for unset options.
func NewGateway(cfg *GatewayConfig) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gateway config cannot be nil")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	maxTotalWait := cfg.MaxTotalWait
	if maxTotalWait <= 0 {
		maxTotalWait = DefaultMaxTotalWait
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxPages := cfg.MaxPagesPerCall
	if maxPages <= 0 {
		maxPages = DefaultMaxPagesPerCall
	}
	maxBytes := cfg.MaxBytesPerCall
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytesPerCall
	}

	return &Gateway{
		recognizer:      cfg.Recognizer,
		limiter:         rate.NewLimiter(rate.Limit(rps), burst),
		logger:          log,
		maxAttempts:     maxAttempts,
		baseDelay:       baseDelay,
		maxDelay:        maxDelay,
		maxTotalWait:    maxTotalWait,
		maxPagesPerCall: maxPages,
		maxBytesPerCall: maxBytes,
	}, nil
}

// Outcome is the result of recognizing one document. Pages appear in
// original page index order regardless of the order in which per-chunk
// calls completed; failed chunks yield pages with Error set.
type Outcome struct {
	// Pages are the recognized pages in index order
	Pages []document.Page

	// Attempts is the total number of remote call attempts made
	Attempts int
}

// SucceededPages returns the number of pages recognized successfully.
func (o *Outcome) SucceededPages() int {
	n := 0
	for _, p := range o.Pages {
		if !p.Failed() {
			n++
		}
	}
	return n
}

// Recognize runs recognition for one document. The input is split to
// respect the service's page and size limits and the chunks are issued
// concurrently; each chunk independently applies the retry policy.
//
// The returned error is non-nil only when no page at all succeeded (or
// the context was cancelled); partial failures are reported through the
// per-page Error fields. The outcome is returned even on error so the
// caller can record the attempt count.
func (g *Gateway) Recognize(ctx context.Context, data []byte, contentType string, hints []string) (*Outcome, error) {
	chunks, err := g.split(data, contentType)
	if err != nil {
		return &Outcome{}, err
	}

	pageTotal := 0
	for _, c := range chunks {
		pageTotal += c.pages
	}

	outcome := &Outcome{Pages: make([]document.Page, pageTotal)}
	var attempts atomic.Int64
	var wg sync.WaitGroup

	for _, c := range chunks {
		wg.Add(1)
		go func(c chunk) {
			defer wg.Done()

			pages, n, err := g.recognizeChunk(ctx, c, hints)
			attempts.Add(int64(n))

			if err != nil {
				g.logger.WithError(err).WithFields("first_page", c.start, "pages", c.pages).
					Warn("Chunk recognition failed")
				for i := 0; i < c.pages; i++ {
					outcome.Pages[c.start+i] = document.Page{
						Index: c.start + i,
						Error: err.Error(),
					}
				}
				return
			}

			g.fillChunk(outcome, c, pages)
		}(c)
	}
	wg.Wait()

	outcome.Attempts = int(attempts.Load())

	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	if outcome.SucceededPages() == 0 && pageTotal > 0 {
		return outcome, fmt.Errorf("recognition failed for all %d page(s): %s", pageTotal, outcome.Pages[0].Error)
	}
	return outcome, nil
}

// fillChunk copies a chunk's recognized pages into their outcome slots.
// A chunk may only write within its own index range: chunks run
// concurrently, so surplus pages from a chatty service are dropped
// rather than allowed to spill into a neighboring chunk's slots. Pages
// the service omitted become failed pages.
func (g *Gateway) fillChunk(outcome *Outcome, c chunk, pages []document.Page) {
	if len(pages) > c.pages {
		g.logger.WithFields("first_page", c.start, "pages", c.pages, "returned", len(pages)).
			Warn("Service returned surplus pages, dropping the extras")
		pages = pages[:c.pages]
	}

	for i, page := range pages {
		page.Index = c.start + i
		outcome.Pages[c.start+i] = page
	}
	for i := len(pages); i < c.pages; i++ {
		outcome.Pages[c.start+i] = document.Page{
			Index: c.start + i,
			Error: "no recognition result for page",
		}
	}
}

// attemptState drives the per-call retry state machine. Modeling the flow
// explicitly keeps attempt counts and backoff independently testable.
type attemptState int

const (
	statePending attemptState = iota
	stateAttempting
	stateRetryScheduled
	stateSucceeded
	stateFailed
)

// recognizeChunk issues one logical remote call with retry, backoff and
// rate-limit compliance. It returns the recognized pages (indices relative
// to the chunk) and the number of attempts made.
func (g *Gateway) recognizeChunk(ctx context.Context, c chunk, hints []string) ([]document.Page, int, error) {
	if len(c.data) > g.maxBytesPerCall {
		return nil, 0, Permanentf("payload of %d bytes exceeds per-call limit of %d", len(c.data), g.maxBytesPerCall)
	}

	var (
		state    = statePending
		attempts = 0
		waited   time.Duration
		pages    []document.Page
		lastErr  error
	)

	for {
		switch state {
		case statePending:
			state = stateAttempting

		case stateRetryScheduled:
			delay := g.backoff(attempts)
			if waited+delay > g.maxTotalWait {
				g.logger.WithFields("waited", waited).Debug("Backoff budget exhausted")
				state = stateFailed
				continue
			}
			select {
			case <-ctx.Done():
				return nil, attempts, ctx.Err()
			case <-time.After(delay):
				waited += delay
			}
			state = stateAttempting

		case stateAttempting:
			// Blocks cooperatively until the shared limiter grants a slot
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, attempts, err
			}

			attempts++
			pages, lastErr = g.recognizer.Recognize(ctx, Request{
				Data:          c.data,
				ContentType:   c.contentType,
				LanguageHints: hints,
			})

			switch {
			case lastErr == nil:
				state = stateSucceeded
			case IsPermanent(lastErr):
				state = stateFailed
			case attempts >= g.maxAttempts:
				g.logger.WithError(lastErr).WithFields("attempts", attempts).
					Debug("Retry attempts exhausted")
				state = stateFailed
			default:
				g.logger.WithError(lastErr).WithFields("attempt", attempts).
					Debug("Transient recognition failure, retrying")
				state = stateRetryScheduled
			}

		case stateSucceeded:
			return pages, attempts, nil

		case stateFailed:
			return nil, attempts, lastErr
		}
	}
}

// backoff returns the delay before the given retry, exponential in the
// attempt number with up to 50% random jitter.
func (g *Gateway) backoff(attempt int) time.Duration {
	delay := g.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= g.maxDelay {
			delay = g.maxDelay
			break
		}
	}
	return delay + rand.N(delay/2+1)
}
