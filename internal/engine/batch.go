package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/model"
)

// DefaultBatchConcurrency is the number of sites a Batch crawls at once.
const DefaultBatchConcurrency = 1

// BatchResult is the outcome of crawling one site of a batch.
type BatchResult struct {
	// Seed is the seed URL as given to Run.
	Seed string

	// Site is the normalized seed. Empty when the engine could not be created.
	Site string

	// Report is the finished report, nil when Err is set.
	Report *model.Report

	// Errors are the error events published during the crawl.
	Errors []model.ErrorEvent

	// Ignored are the ignore events published during the crawl.
	Ignored []model.IgnoreEvent

	// Err is the reason the site produced no report.
	Err error
}

// Batch crawls several sites, each with its own Engine.
// Every engine is built with the same options.
type Batch struct {
	opts        []Option
	concurrency int
	logger      *slog.Logger
	onAdd       func(site, url string)
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithBatchConcurrency sets the number of sites crawled at once.
// Non-positive values are ignored.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the logger for batch level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// WithPageHook registers fn for the add event of every engine of the batch.
func WithPageHook(fn func(site, url string)) BatchOption {
	return func(b *Batch) {
		b.onAdd = fn
	}
}

// NewBatch creates a Batch whose engines are created with opts.
func NewBatch(opts []Option, bopts ...BatchOption) *Batch {
	b := &Batch{
		opts:        opts,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range bopts {
		opt(b)
	}
	b.logger = log.OrDiscard(b.logger)
	return b
}

// Run crawls every seed and returns one result per seed, in seed order.
// A failing site does not stop the others.
//
// When fn is not nil it is called with each result as soon as its crawl
// ends. Calls to fn never overlap. Run returns ctx.Err() when the batch was
// cancelled; the results of sites that did not start then carry that error.
func (b *Batch) Run(ctx context.Context, seeds []string, fn func(res BatchResult, index int)) ([]BatchResult, error) {
	b.logger.Info("starting batch", "sites", len(seeds), "concurrency", b.concurrency)
	start := time.Now()

	results := make([]BatchResult, len(seeds))
	var fnMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{Seed: seed, Err: err}
				return nil
			}

			res := b.crawl(ctx, seed)
			results[i] = res
			if res.Err != nil {
				b.logger.Warn("site failed", "seed", seed, "error", res.Err)
			}

			if fn != nil {
				fnMu.Lock()
				defer fnMu.Unlock()
				fn(res, i)
			}
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info("batch finished", "sites", len(seeds), "elapsed", time.Since(start))
	return results, ctx.Err()
}

// crawl runs one engine to completion and collects its events.
func (b *Batch) crawl(ctx context.Context, seed string) BatchResult {
	res := BatchResult{Seed: seed}

	e, err := New(seed, b.opts...)
	if err != nil {
		res.Err = err
		return res
	}
	site := e.Site()
	res.Site = site

	var mu sync.Mutex
	if b.onAdd != nil {
		e.OnAdd(func(u string) { b.onAdd(site, u) })
	}
	e.OnError(func(ev model.ErrorEvent) {
		mu.Lock()
		defer mu.Unlock()
		res.Errors = append(res.Errors, ev)
	})
	e.OnIgnore(func(ev model.IgnoreEvent) {
		mu.Lock()
		defer mu.Unlock()
		res.Ignored = append(res.Ignored, ev)
	})

	if err := e.Start(ctx); err != nil {
		res.Err = err
		return res
	}
	report, err := e.Wait(ctx)
	if err != nil {
		_ = e.Stop()
	}

	mu.Lock()
	defer mu.Unlock()
	res.Report = report
	res.Err = err
	return res
}
