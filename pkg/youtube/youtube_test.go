package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moxie99/ai-reputation/pkg/person"
)

func TestBestURL(t *testing.T) {
	tests := []struct {
		name   string
		thumbs Thumbnails
		want   string
	}{
		{
			name: "prefers high",
			thumbs: Thumbnails{
				Default: Thumbnail{URL: "d"},
				Medium:  Thumbnail{URL: "m"},
				High:    Thumbnail{URL: "h"},
			},
			want: "h",
		},
		{
			name: "falls back to medium",
			thumbs: Thumbnails{
				Default: Thumbnail{URL: "d"},
				Medium:  Thumbnail{URL: "m"},
			},
			want: "m",
		},
		{
			name:   "falls back to default",
			thumbs: Thumbnails{Default: Thumbnail{URL: "d"}},
			want:   "d",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.thumbs.BestURL(); got != tt.want {
				t.Errorf("BestURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseChannelSearch(t *testing.T) {
	sample := `{
		"items": [
			{
				"id": {"channelId": "UC123"},
				"snippet": {
					"title": "Jane Doe",
					"description": "Talks about Go.",
					"publishedAt": "2019-06-01T00:00:00Z",
					"thumbnails": {"high": {"url": "https://i.ytimg.com/c/high.jpg"}}
				}
			},
			{
				"id": {},
				"snippet": {"title": "missing id"}
			}
		]
	}`

	results, err := parseChannelSearch([]byte(sample))
	if err != nil {
		t.Fatalf("parseChannelSearch failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.Platform != person.PlatformYouTube {
		t.Errorf("platform = %q", r.Platform)
	}
	if r.Type != person.TypeProfile {
		t.Errorf("type = %q", r.Type)
	}
	if r.URL != "https://youtube.com/channel/UC123" {
		t.Errorf("url = %q", r.URL)
	}
	content, ok := r.Content.(ChannelContent)
	if !ok {
		t.Fatalf("content has type %T", r.Content)
	}
	if content.Thumbnails.BestURL() != "https://i.ytimg.com/c/high.jpg" {
		t.Errorf("thumbnail = %q", content.Thumbnails.BestURL())
	}
}

func TestParseVideoSearch(t *testing.T) {
	sample := `{
		"items": [
			{
				"id": {"videoId": "abc123"},
				"snippet": {
					"title": "Jane Doe keynote",
					"description": "Conference talk",
					"publishedAt": "2024-02-10T12:00:00Z",
					"channelId": "UC123",
					"channelTitle": "GopherCon"
				}
			}
		]
	}`

	results, err := parseVideoSearch([]byte(sample))
	if err != nil {
		t.Fatalf("parseVideoSearch failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.Type != person.TypeVideo {
		t.Errorf("type = %q", r.Type)
	}
	if r.URL != "https://youtube.com/watch?v=abc123" {
		t.Errorf("url = %q", r.URL)
	}
	if r.Timestamp != "2024-02-10T12:00:00Z" {
		t.Errorf("timestamp = %q, want publishedAt", r.Timestamp)
	}
	content, ok := r.Content.(VideoContent)
	if !ok {
		t.Fatalf("content has type %T", r.Content)
	}
	if content.ChannelTitle != "GopherCon" {
		t.Errorf("channel title = %q", content.ChannelTitle)
	}
}

func TestFetchCombinesQueries(t *testing.T) {
	var types []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("type")
		types = append(types, kind)
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		switch kind {
		case "channel":
			_, _ = w.Write([]byte(`{"items": [{"id": {"channelId": "UC1"}, "snippet": {"title": "c"}}]}`))
		default:
			_, _ = w.Write([]byte(`{"items": [{"id": {"videoId": "v1"}, "snippet": {"title": "v"}}]}`))
		}
	}))
	defer srv.Close()

	client, err := New(context.Background(), WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	target := person.Target{
		Name:    "Jane Doe",
		Handles: map[string]string{person.HandleYouTube: "@janedoe"},
	}
	results, err := client.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	// name channel search + video search + handle channel search
	if len(types) != 3 {
		t.Errorf("made %d upstream calls, want 3", len(types))
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("New without API key should fail")
	}
}
