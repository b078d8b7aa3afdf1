package person

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestContentString(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"nil", nil, ""},
		{"string passthrough", "hello world", "hello world"},
		{"map", map[string]int{"a": 1}, `{"a":1}`},
		{"struct", struct {
			Title string `json:"title"`
		}{Title: "x"}, `{"title":"x"}`},
		{"slice", []string{"a", "b"}, `["a","b"]`},
		{"number", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentString(tt.content); got != tt.want {
				t.Errorf("ContentString(%v) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestToDataSource(t *testing.T) {
	r := RetrievalResult{
		Platform:  PlatformTwitter,
		Type:      TypePost,
		Content:   map[string]string{"text": "a post"},
		URL:       "https://twitter.com/i/status/123",
		Timestamp: "2024-01-02T03:04:05Z",
		Source:    "twitter_api",
	}

	got := ToDataSource(r)
	want := DataSource{
		Platform:  PlatformTwitter,
		URL:       "https://twitter.com/i/status/123",
		Content:   `{"text":"a post"}`,
		Timestamp: "2024-01-02T03:04:05Z",
		Type:      TypePost,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToDataSource mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	if got := NormalizeTimestamp("2023-05-01T00:00:00Z"); got != "2023-05-01T00:00:00Z" {
		t.Errorf("NormalizeTimestamp passthrough = %q", got)
	}

	got := NormalizeTimestamp("")
	if got == "" {
		t.Fatal("NormalizeTimestamp(\"\") returned empty timestamp")
	}
	if _, err := time.Parse(time.RFC3339, got); err != nil {
		t.Errorf("NormalizeTimestamp(\"\") = %q, not RFC 3339: %v", got, err)
	}
}

func TestCategoryKeys(t *testing.T) {
	keys := CategoryKeys()
	if len(keys) != 6 {
		t.Fatalf("CategoryKeys() returned %d keys, want 6", len(keys))
	}

	seen := make(map[CategoryKey]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate category key %q", k)
		}
		seen[k] = true
		if CategoryName(k) == string(k) {
			t.Errorf("CategoryName(%q) has no display name", k)
		}
	}
}

func TestTargetHandle(t *testing.T) {
	var empty Target
	if got := empty.Handle(HandleTwitter); got != "" {
		t.Errorf("Handle on nil map = %q, want empty", got)
	}

	tgt := Target{Handles: map[string]string{HandleGitHub: "octocat"}}
	if got := tgt.Handle(HandleGitHub); got != "octocat" {
		t.Errorf("Handle(github) = %q, want octocat", got)
	}
}

func TestLimitations(t *testing.T) {
	lims := Limitations()
	if len(lims) != 4 {
		t.Fatalf("Limitations() returned %d entries, want 4", len(lims))
	}
	for _, l := range lims {
		if strings.TrimSpace(l) == "" {
			t.Error("empty limitation string")
		}
	}
}
