package photomatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moxie99/ai-reputation/pkg/github"
	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/reddit"
	"github.com/moxie99/ai-reputation/pkg/twitter"
	"github.com/moxie99/ai-reputation/pkg/vision"
	"github.com/moxie99/ai-reputation/pkg/youtube"
)

type fakeComparer struct {
	refFaces    []vision.FaceAnnotation
	confidences map[string]float64 // keyed by candidate image bytes
}

func (f *fakeComparer) DetectFaces(_ context.Context, _ []byte) ([]vision.FaceAnnotation, error) {
	return f.refFaces, nil
}

func (f *fakeComparer) CompareFaces(_ context.Context, _, image2 []byte) (vision.Comparison, error) {
	conf := f.confidences[string(image2)]
	return vision.Comparison{
		Confidence: conf,
		Match:      conf > vision.MatchThreshold,
		Faces:      []vision.FaceAnnotation{{DetectionConfidence: conf}},
	}, nil
}

func TestImageURL(t *testing.T) {
	tests := []struct {
		name   string
		record person.RetrievalResult
		want   string
	}{
		{
			name:   "twitter profile image",
			record: person.RetrievalResult{Content: twitter.ProfileContent{ProfileImageURL: "https://pbs/1.jpg"}},
			want:   "https://pbs/1.jpg",
		},
		{
			name:   "github avatar",
			record: person.RetrievalResult{Content: github.ProfileContent{AvatarURL: "https://avatars/2.jpg"}},
			want:   "https://avatars/2.jpg",
		},
		{
			name:   "reddit custom icon",
			record: person.RetrievalResult{Content: reddit.AccountContent{IconImg: "https://styles/3.png"}},
			want:   "https://styles/3.png",
		},
		{
			name:   "reddit default avatar excluded",
			record: person.RetrievalResult{Content: reddit.AccountContent{IconImg: redditDefaultAvatar}},
			want:   "",
		},
		{
			name: "youtube channel thumbnail",
			record: person.RetrievalResult{Content: youtube.ChannelContent{
				Thumbnails: youtube.Thumbnails{High: youtube.Thumbnail{URL: "https://ytimg/4.jpg"}},
			}},
			want: "https://ytimg/4.jpg",
		},
		{
			name:   "text content has no image",
			record: person.RetrievalResult{Content: "just text"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imageURL(tt.record); got != tt.want {
				t.Errorf("imageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatchRanksAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// serve the path as the image body so the fake comparer can
		// recognize which candidate it is scoring
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	comparer := &fakeComparer{
		refFaces: []vision.FaceAnnotation{{DetectionConfidence: 0.99}},
		confidences: map[string]float64{
			"/strong": 0.9,
			"/weak":   0.3,
			"/medium": 0.65,
		},
	}
	m := New(comparer)

	results := []person.RetrievalResult{
		{Platform: person.PlatformTwitter, URL: "https://twitter.com/a", Content: twitter.ProfileContent{ProfileImageURL: srv.URL + "/medium"}},
		{Platform: person.PlatformGitHub, URL: "https://github.com/b", Content: github.ProfileContent{AvatarURL: srv.URL + "/strong"}},
		{Platform: person.PlatformReddit, URL: "https://reddit.com/u/c", Content: reddit.AccountContent{IconImg: srv.URL + "/weak"}},
	}

	matches, err := m.Match(context.Background(), []byte("ref-photo"), results)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (weak candidate filtered)", len(matches))
	}
	if matches[0].Platform != person.PlatformGitHub {
		t.Errorf("best match platform = %q, want GitHub", matches[0].Platform)
	}
	if matches[0].MatchConfidence != 0.9 {
		t.Errorf("best confidence = %v", matches[0].MatchConfidence)
	}
	if matches[1].MatchConfidence != 0.65 {
		t.Errorf("second confidence = %v", matches[1].MatchConfidence)
	}
}

func TestMatchNoFaceInReference(t *testing.T) {
	var fetches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	m := New(&fakeComparer{refFaces: nil})

	matches, err := m.Match(context.Background(), []byte("ref-photo"), []person.RetrievalResult{
		{Platform: person.PlatformGitHub, Content: github.ProfileContent{AvatarURL: srv.URL + "/x.jpg"}},
	})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if matches != nil {
		t.Errorf("expected no matches without a reference face, got %v", matches)
	}
	if fetches != 0 {
		t.Errorf("made %d candidate image fetches, want 0", fetches)
	}
}

func TestMatchNoPhoto(t *testing.T) {
	m := New(&fakeComparer{refFaces: []vision.FaceAnnotation{{DetectionConfidence: 0.9}}})

	matches, err := m.Match(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if matches != nil {
		t.Errorf("expected no matches without a photo, got %v", matches)
	}
}

func TestMatchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	comparer := &fakeComparer{
		refFaces:    []vision.FaceAnnotation{{DetectionConfidence: 0.99}},
		confidences: map[string]float64{"img": 0.8},
	}
	m := New(comparer)

	var results []person.RetrievalResult
	for i := range 15 {
		results = append(results, person.RetrievalResult{
			Platform: person.PlatformGitHub,
			URL:      "https://github.com/u",
			Content:  github.ProfileContent{AvatarURL: srv.URL + "/" + string(rune('a'+i))},
		})
	}

	matches, err := m.Match(context.Background(), []byte("ref"), results)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(matches) != maxMatches {
		t.Errorf("got %d matches, want cap of %d", len(matches), maxMatches)
	}
}
