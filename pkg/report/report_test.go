package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/moxie99/ai-reputation/pkg/analyze"
	"github.com/moxie99/ai-reputation/pkg/person"
)

type fakeAnalyzer struct {
	categoryErr error
	summaryErr  error
	calls       []person.CategoryKey
}

func (f *fakeAnalyzer) AnalyzeCategory(_ context.Context, key person.CategoryKey, _ []person.DataSource) (analyze.CategoryAnalysis, error) {
	f.calls = append(f.calls, key)
	if f.categoryErr != nil {
		return analyze.CategoryAnalysis{}, f.categoryErr
	}
	return analyze.CategoryAnalysis{
		Summary:   "summary for " + string(key),
		Reasoning: "reasoning",
	}, nil
}

func (f *fakeAnalyzer) SummarizeReport(_ context.Context, _ person.Target, _ map[person.CategoryKey]person.AnalysisCategory) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return "overall summary", nil
}

type fakeMatcher struct {
	matches []person.PhotoMatchResult
	err     error
}

func (f *fakeMatcher) Match(_ context.Context, _ []byte, _ []person.RetrievalResult) ([]person.PhotoMatchResult, error) {
	return f.matches, f.err
}

func sampleResults() []person.RetrievalResult {
	return []person.RetrievalResult{
		{Platform: person.PlatformGitHub, Type: person.TypeProfile, Content: "profile", URL: "https://github.com/jane", Timestamp: person.Now(), Source: "github_api"},
		{Platform: person.PlatformTwitter, Type: person.TypePost, Content: "tweet", URL: "https://twitter.com/1", Timestamp: person.Now(), Source: "twitter_api"},
	}
}

func TestBuildAssemblesReport(t *testing.T) {
	fa := &fakeAnalyzer{}
	b := New(fa)

	target := person.Target{Name: "Jane Doe"}
	report := b.Build(context.Background(), target, sampleResults())

	if !strings.HasPrefix(report.ID, "report-") {
		t.Errorf("report id = %q", report.ID)
	}
	if report.TargetPerson.Name != "Jane Doe" {
		t.Errorf("target = %q", report.TargetPerson.Name)
	}
	if report.GeneratedAt == "" {
		t.Error("generatedAt not set")
	}
	if len(report.Categories) != len(person.CategoryKeys()) {
		t.Errorf("got %d categories, want %d", len(report.Categories), len(person.CategoryKeys()))
	}
	if report.OverallSummary != "overall summary" {
		t.Errorf("overall summary = %q", report.OverallSummary)
	}
	if len(report.Limitations) != 4 {
		t.Errorf("got %d limitations, want 4", len(report.Limitations))
	}

	wantPlatforms := []string{person.PlatformGitHub, person.PlatformTwitter}
	if len(report.DataSourcesUsed) != 2 || report.DataSourcesUsed[0] != wantPlatforms[0] {
		t.Errorf("dataSourcesUsed = %v, want %v", report.DataSourcesUsed, wantPlatforms)
	}

	cred := report.Categories[person.CategoryCredibility]
	if cred.Summary != "summary for credibility" {
		t.Errorf("credibility summary = %q", cred.Summary)
	}
	if len(cred.Sources) != 2 {
		t.Errorf("credibility has %d sources, want all 2", len(cred.Sources))
	}
}

func TestBuildSkipsAnalysisForEmptyCategories(t *testing.T) {
	fa := &fakeAnalyzer{}
	b := New(fa)

	// Only a GitHub record: controversies and public statements stay empty.
	results := []person.RetrievalResult{
		{Platform: person.PlatformGitHub, Type: person.TypeProfile, Content: "profile", Source: "github_api"},
	}
	report := b.Build(context.Background(), person.Target{Name: "Jane Doe"}, results)

	for _, key := range fa.calls {
		if key == person.CategoryControversies {
			t.Error("analyzer called for empty controversies category")
		}
	}

	controversies := report.Categories[person.CategoryControversies]
	if controversies.Summary != "" {
		t.Errorf("empty category summary = %q, want empty", controversies.Summary)
	}
	if controversies.Reasoning != "" {
		t.Errorf("empty category reasoning = %q, want empty", controversies.Reasoning)
	}
}

func TestBuildSkipsAnalysisForBlankContent(t *testing.T) {
	fa := &fakeAnalyzer{}
	b := New(fa)

	// Records whose content is blank contribute nothing to analyze, even
	// though their category buckets are non-empty.
	results := []person.RetrievalResult{
		{Platform: person.PlatformGitHub, Type: person.TypeProfile, Content: "", Source: "github_api"},
		{Platform: person.PlatformGitHub, Type: person.TypeProfile, Content: "   ", Source: "github_api"},
	}
	report := b.Build(context.Background(), person.Target{Name: "Jane Doe"}, results)

	if len(fa.calls) != 0 {
		t.Errorf("analyzer called for categories with blank content: %v", fa.calls)
	}

	conduct := report.Categories[person.CategoryProfessionalConduct]
	if conduct.Summary != "" || conduct.Reasoning != "" {
		t.Errorf("blank-content category summary=%q reasoning=%q, want empty strings",
			conduct.Summary, conduct.Reasoning)
	}
	if len(conduct.Sources) != 2 {
		t.Errorf("got %d sources, want 2 (records are still reported)", len(conduct.Sources))
	}
}

func TestBuildFallsBackOnAnalysisFailure(t *testing.T) {
	fa := &fakeAnalyzer{categoryErr: errors.New("api down"), summaryErr: errors.New("api down")}
	b := New(fa)

	report := b.Build(context.Background(), person.Target{Name: "Jane Doe"}, sampleResults())

	cred := report.Categories[person.CategoryCredibility]
	if cred.Summary != analysisFallback {
		t.Errorf("summary = %q, want %q", cred.Summary, analysisFallback)
	}
	if len(cred.Sources) != 2 {
		t.Error("fallback category should still carry its sources")
	}
	if report.OverallSummary != summaryFallback {
		t.Errorf("overall summary = %q, want %q", report.OverallSummary, summaryFallback)
	}
}

func TestBuildWithPhotoMatches(t *testing.T) {
	matches := []person.PhotoMatchResult{
		{Platform: person.PlatformGitHub, ImageURL: "https://avatars/1.jpg", MatchConfidence: 0.8},
	}
	b := New(&fakeAnalyzer{}, WithPhotoMatcher(&fakeMatcher{matches: matches}))

	target := person.Target{Name: "Jane Doe", Photo: []byte("photo")}
	report := b.Build(context.Background(), target, sampleResults())

	if len(report.PhotoMatches) != 1 {
		t.Fatalf("got %d photo matches, want 1", len(report.PhotoMatches))
	}
}

func TestBuildSurvivesPhotoMatchFailure(t *testing.T) {
	b := New(&fakeAnalyzer{}, WithPhotoMatcher(&fakeMatcher{err: errors.New("vision down")}))

	target := person.Target{Name: "Jane Doe", Photo: []byte("photo")}
	report := b.Build(context.Background(), target, sampleResults())

	if report.PhotoMatches != nil {
		t.Errorf("expected no photo matches on failure, got %v", report.PhotoMatches)
	}
	if report.OverallSummary == "" {
		t.Error("report should still be assembled")
	}
}

func TestBuildWithoutAnalyzer(t *testing.T) {
	b := New(nil)
	report := b.Build(context.Background(), person.Target{Name: "Jane Doe"}, sampleResults())

	if report.OverallSummary != summaryFallback {
		t.Errorf("overall summary = %q", report.OverallSummary)
	}
	cred := report.Categories[person.CategoryCredibility]
	if cred.Summary != analysisFallback {
		t.Errorf("category summary = %q", cred.Summary)
	}
}

func TestPlatformsUsedDeduplicatesAndSorts(t *testing.T) {
	results := []person.RetrievalResult{
		{Platform: person.PlatformTwitter},
		{Platform: person.PlatformGitHub},
		{Platform: person.PlatformTwitter},
	}
	got := platformsUsed(results)
	if len(got) != 2 || got[0] != person.PlatformGitHub || got[1] != person.PlatformTwitter {
		t.Errorf("platformsUsed = %v", got)
	}
}
