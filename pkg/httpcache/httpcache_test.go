package httpcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestURLToKey(t *testing.T) {
	a := URLToKey("https://example.com/a")
	b := URLToKey("https://example.com/b")
	if a == b {
		t.Error("distinct URLs should hash to distinct keys")
	}
	if a != URLToKey("https://example.com/a") {
		t.Error("key must be stable")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestFetchURLCachesResponses(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath failed: %v", err)
	}

	ctx := context.Background()
	for range 2 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		body, err := FetchURL(ctx, cache, srv.Client(), req, nil)
		if err != nil {
			t.Fatalf("FetchURL failed: %v", err)
		}
		if string(body) != "hello" {
			t.Errorf("body = %q", body)
		}
	}

	if calls != 1 {
		t.Errorf("made %d upstream calls, want 1 (second should hit cache)", calls)
	}
}

func TestFetchURLCachesHTTPErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath failed: %v", err)
	}

	ctx := context.Background()
	for range 2 {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		if reqErr != nil {
			t.Fatal(reqErr)
		}
		_, err = FetchURL(ctx, cache, srv.Client(), req, nil)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
			t.Fatalf("err = %v, want HTTPError 404", err)
		}
	}

	if calls != 1 {
		t.Errorf("made %d upstream calls, want 1 (error should be served from cache)", calls)
	}
}

func TestFetchURLWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("direct"))
	}))
	defer srv.Close()

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	body, err := FetchURL(ctx, nil, srv.Client(), req, nil)
	if err != nil {
		t.Fatalf("FetchURL failed: %v", err)
	}
	if string(body) != "direct" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchURLValidatorSkipsCaching(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte("partial page"))
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath failed: %v", err)
	}

	ctx := context.Background()
	reject := func([]byte) bool { return false }
	for range 2 {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		if reqErr != nil {
			t.Fatal(reqErr)
		}
		body, err := FetchURLWithValidator(ctx, cache, srv.Client(), req, nil, reject)
		if err != nil {
			t.Fatalf("FetchURLWithValidator failed: %v", err)
		}
		if string(body) != "partial page" {
			t.Errorf("body = %q", body)
		}
	}

	if calls != 2 {
		t.Errorf("made %d upstream calls, want 2 (rejected responses must not cache)", calls)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429 retries", &HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{"503 retries", &HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		{"404 does not retry", &HTTPError{StatusCode: http.StatusNotFound}, false},
		{"401 does not retry", &HTTPError{StatusCode: http.StatusUnauthorized}, false},
		{"network error retries", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError = %v, want %v", got, tt.want)
			}
		})
	}
}
