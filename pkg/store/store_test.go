package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moxie99/ai-reputation/pkg/person"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.StartSession("retrieval_1", "Jane Doe"))

	doc, err := s.Session("retrieval_1")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, doc.Status)
	assert.Equal(t, "Jane Doe", doc.TargetName)
	assert.NotEmpty(t, doc.StartedAt)
	assert.Empty(t, doc.CompletedAt)

	require.NoError(t, s.CompleteSession("retrieval_1", 7))

	doc, err = s.Session("retrieval_1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, doc.Status)
	assert.Equal(t, 7, doc.ResultCount)
	assert.NotEmpty(t, doc.CompletedAt)
}

func TestCompleteSessionMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.CompleteSession("retrieval_none", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLoadResults(t *testing.T) {
	s := openTestStore(t)

	results := []person.RetrievalResult{
		{Platform: person.PlatformGitHub, Type: person.TypeProfile, Content: "profile text", URL: "https://github.com/jane", Source: "github_api"},
		{Platform: person.PlatformTwitter, Type: person.TypePost, Content: map[string]string{"text": "hi"}, URL: "https://twitter.com/1", Source: "twitter_api"},
	}
	require.NoError(t, s.SaveResults("retrieval_2", results))

	docs, err := s.Results("retrieval_2")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "retrieval_2_0", docs[0].Key)
	assert.Equal(t, "profile text", docs[0].Content)
	assert.Equal(t, "retrieval_2_1", docs[1].Key)
	assert.JSONEq(t, `{"text": "hi"}`, docs[1].Content)
}

func TestSaveAndLoadReport(t *testing.T) {
	s := openTestStore(t)

	report := person.ReputationReport{
		ID:           "report-123",
		TargetPerson: person.Target{Name: "Jane Doe"},
		GeneratedAt:  person.Now(),
		Categories: map[person.CategoryKey]person.AnalysisCategory{
			person.CategoryExpertise: {Name: "Expertise & Credibility", Summary: "Strong."},
		},
		OverallSummary:  "Overall positive.",
		DataSourcesUsed: []string{"GitHub"},
		Limitations:     person.Limitations(),
	}
	require.NoError(t, s.SaveReport(report))

	got, err := s.Report("report-123")
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, "Jane Doe", got.TargetPerson.Name)
	assert.Equal(t, "Strong.", got.Categories[person.CategoryExpertise].Summary)

	_, err = s.Report("report-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportsListsSummaries(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveReport(person.ReputationReport{
		ID: "report-1", TargetPerson: person.Target{Name: "A"}, GeneratedAt: "2024-01-01T00:00:00Z",
	}))
	require.NoError(t, s.SaveReport(person.ReputationReport{
		ID: "report-2", TargetPerson: person.Target{Name: "B"}, GeneratedAt: "2024-02-01T00:00:00Z",
	}))

	docs, err := s.Reports()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "report-2", docs[0].ID, "newest first")
	assert.Nil(t, docs[0].Data)
}
