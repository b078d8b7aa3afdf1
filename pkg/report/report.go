// Package report assembles the final reputation report from retrieved
// records, category analyses, and photo matches.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/moxie99/ai-reputation/pkg/analyze"
	"github.com/moxie99/ai-reputation/pkg/categorize"
	"github.com/moxie99/ai-reputation/pkg/metrics"
	"github.com/moxie99/ai-reputation/pkg/person"
)

// Fallback texts used when an analysis call fails. Categories with no
// content keep empty summary and reasoning instead.
const (
	analysisFallback = "AI analysis unavailable."
	summaryFallback  = "AI summary unavailable."
)

// PhotoMatcher ranks candidate profile photos against a reference photo.
type PhotoMatcher interface {
	Match(ctx context.Context, photo []byte, results []person.RetrievalResult) ([]person.PhotoMatchResult, error)
}

// Builder produces reputation reports.
type Builder struct {
	analyzer analyze.Analyzer
	matcher  PhotoMatcher
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithPhotoMatcher enables photo-identity matching.
func WithPhotoMatcher(matcher PhotoMatcher) Option {
	return func(b *Builder) { b.matcher = matcher }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates a report builder. The analyzer may be nil, in which case
// every category carries the fallback summary.
func New(analyzer analyze.Analyzer, opts ...Option) *Builder {
	b := &Builder{analyzer: analyzer, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build categorizes the records, analyzes each category, runs photo
// matching when a reference photo is present, and assembles the report.
// Analysis failures degrade to fallback text; Build itself does not fail.
func (b *Builder) Build(ctx context.Context, target person.Target, results []person.RetrievalResult) person.ReputationReport {
	buckets := categorize.Categorize(results)

	categories := make(map[person.CategoryKey]person.AnalysisCategory, len(buckets))
	for _, key := range person.CategoryKeys() {
		categories[key] = b.analyzeCategory(ctx, key, buckets[key])
	}

	report := person.ReputationReport{
		ID:              fmt.Sprintf("report-%d", time.Now().UnixMilli()),
		TargetPerson:    target,
		GeneratedAt:     person.Now(),
		Categories:      categories,
		OverallSummary:  b.summarize(ctx, target, categories),
		DataSourcesUsed: platformsUsed(results),
		Limitations:     person.Limitations(),
	}

	if b.matcher != nil && len(target.Photo) > 0 {
		matches, err := b.matcher.Match(ctx, target.Photo, results)
		if err != nil {
			b.logger.WarnContext(ctx, "photo matching failed", "target", target.Name, "error", err)
		} else {
			report.PhotoMatches = matches
		}
	}

	metrics.ObserveReport(metrics.OutcomeOK)
	return report
}

// analyzeCategory produces one category's analysis. Categories whose
// joined content is empty skip the AI call and keep an empty summary and
// reasoning.
func (b *Builder) analyzeCategory(ctx context.Context, key person.CategoryKey, records []person.RetrievalResult) person.AnalysisCategory {
	name := person.CategoryName(key)

	sources := make([]person.DataSource, 0, len(records))
	for _, r := range records {
		sources = append(sources, person.ToDataSource(r))
	}

	if !hasContent(sources) {
		return person.AnalysisCategory{Name: name, Sources: sources}
	}

	if b.analyzer == nil {
		return person.AnalysisCategory{Name: name, Summary: analysisFallback, Sources: sources}
	}

	analysis, err := b.analyzer.AnalyzeCategory(ctx, key, sources)
	if err != nil {
		b.logger.WarnContext(ctx, "category analysis failed", "category", string(key), "error", err)
		metrics.ObserveAnalysis("category", metrics.OutcomeError)
		return person.AnalysisCategory{Name: name, Summary: analysisFallback, Sources: sources}
	}
	metrics.ObserveAnalysis("category", metrics.OutcomeOK)

	return person.AnalysisCategory{
		Name:           name,
		Summary:        analysis.Summary,
		Reasoning:      analysis.Reasoning,
		FlaggedContent: analysis.Flags(sources),
		Sources:        sources,
	}
}

// hasContent reports whether any source carries non-blank content.
func hasContent(sources []person.DataSource) bool {
	for _, src := range sources {
		if strings.TrimSpace(src.Content) != "" {
			return true
		}
	}
	return false
}

func (b *Builder) summarize(ctx context.Context, target person.Target, categories map[person.CategoryKey]person.AnalysisCategory) string {
	if b.analyzer == nil {
		return summaryFallback
	}

	summary, err := b.analyzer.SummarizeReport(ctx, target, categories)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			b.logger.WarnContext(ctx, "overall summary failed", "target", target.Name, "error", err)
		}
		metrics.ObserveAnalysis("summary", metrics.OutcomeError)
		return summaryFallback
	}
	metrics.ObserveAnalysis("summary", metrics.OutcomeOK)
	return strings.TrimSpace(summary)
}

// platformsUsed returns the distinct platforms that contributed records,
// sorted for stable output.
func platformsUsed(results []person.RetrievalResult) []string {
	seen := make(map[string]bool)
	var platforms []string
	for _, r := range results {
		if r.Platform == "" || seen[r.Platform] {
			continue
		}
		seen[r.Platform] = true
		platforms = append(platforms, r.Platform)
	}
	sort.Strings(platforms)
	return platforms
}
