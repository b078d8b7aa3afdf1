// Package retrieval fans a target out to every configured source adapter
// and merges the normalized records.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moxie99/ai-reputation/pkg/metrics"
	"github.com/moxie99/ai-reputation/pkg/person"
)

const defaultSourceTimeout = 15 * time.Second

// Fetcher retrieves normalized records about a target from one platform.
type Fetcher interface {
	Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error)
}

// Source pairs a platform name with its adapter.
type Source struct {
	Name    string
	Fetcher Fetcher
}

// SessionStore persists retrieval sessions and their records. Persistence
// is best-effort; storage failures never fail a retrieval.
type SessionStore interface {
	StartSession(retrievalID, targetName string) error
	SaveResults(retrievalID string, results []person.RetrievalResult) error
	CompleteSession(retrievalID string, resultCount int) error
}

// Orchestrator runs concurrent retrievals across sources.
type Orchestrator struct {
	sources       []Source
	store         SessionStore
	logger        *slog.Logger
	sourceTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore enables session persistence.
func WithStore(store SessionStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithSourceTimeout bounds each source's fetch.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.sourceTimeout = d }
}

// New creates an orchestrator over the given sources.
func New(sources []Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources:       sources,
		logger:        slog.Default(),
		sourceTimeout: defaultSourceTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is the outcome of one retrieval run. SourceErrors maps platform
// names to failure messages for sources that produced nothing.
type Result struct {
	RetrievalID  string
	Results      []person.RetrievalResult
	SourceErrors map[string]string
}

// Run retrieves from every source concurrently. A failing source costs
// only its own records; Run errors only when no sources are configured.
func (o *Orchestrator) Run(ctx context.Context, target person.Target) (*Result, error) {
	if len(o.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	retrievalID := fmt.Sprintf("retrieval_%d", time.Now().UnixMilli())
	o.logger.InfoContext(ctx, "starting retrieval",
		"retrieval_id", retrievalID, "target", target.Name, "sources", len(o.sources))

	if o.store != nil {
		if err := o.store.StartSession(retrievalID, target.Name); err != nil {
			o.logger.WarnContext(ctx, "session start not persisted", "retrieval_id", retrievalID, "error", err)
		}
	}

	type outcome struct {
		name    string
		results []person.RetrievalResult
		err     error
	}

	outcomes := make([]outcome, len(o.sources))
	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
			defer cancel()

			start := time.Now()
			results, err := src.Fetcher.Fetch(fetchCtx, target)
			elapsed := time.Since(start)

			if err != nil {
				metrics.ObserveFetch(src.Name, metrics.OutcomeError, elapsed.Seconds(), 0)
			} else {
				metrics.ObserveFetch(src.Name, metrics.OutcomeOK, elapsed.Seconds(), len(results))
			}
			outcomes[i] = outcome{name: src.Name, results: results, err: err}
		}(i, src)
	}
	wg.Wait()

	result := &Result{RetrievalID: retrievalID, SourceErrors: make(map[string]string)}
	for _, out := range outcomes {
		if out.err != nil {
			o.logger.WarnContext(ctx, "source failed",
				"retrieval_id", retrievalID, "platform", out.name, "error", out.err)
			result.SourceErrors[out.name] = out.err.Error()
			continue
		}
		o.logger.InfoContext(ctx, "source finished",
			"retrieval_id", retrievalID, "platform", out.name, "records", len(out.results))
		result.Results = append(result.Results, out.results...)
	}

	if o.store != nil {
		if err := o.store.SaveResults(retrievalID, result.Results); err != nil {
			o.logger.WarnContext(ctx, "results not persisted", "retrieval_id", retrievalID, "error", err)
		}
		if err := o.store.CompleteSession(retrievalID, len(result.Results)); err != nil {
			o.logger.WarnContext(ctx, "session completion not persisted", "retrieval_id", retrievalID, "error", err)
		}
	}

	o.logger.InfoContext(ctx, "retrieval finished",
		"retrieval_id", retrievalID, "records", len(result.Results), "failed_sources", len(result.SourceErrors))
	return result, nil
}
