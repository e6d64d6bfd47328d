package acquisition

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListCaptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/captions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("videoId"); got != "dQw4w9WgXcQ" {
			t.Errorf("unexpected videoId %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"abc","snippet":{"language":"pt-BR"}},{"id":"def","snippet":{"language":"en"}}]}`))
	}))
	defer server.Close()

	client := NewYouTubeClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	tracks, err := client.ListCaptions(context.Background(), "dQw4w9WgXcQ", "tok")
	if err != nil {
		t.Fatalf("ListCaptions: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].ID != "abc" || tracks[0].Language != "pt-BR" {
		t.Fatalf("unexpected first track %+v", tracks[0])
	}
}

func TestListCaptionsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewYouTubeClient(WithBaseURL(server.URL))
	_, err := client.ListCaptions(context.Background(), "dQw4w9WgXcQ", "bad")
	if !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestFetchCaption(t *testing.T) {
	const srt = "1\n00:00:00,000 --> 00:00:05,000\nOlá.\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/captions/abc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("tfmt"); got != "srt" {
			t.Errorf("unexpected tfmt %q", got)
		}
		w.Write([]byte(srt))
	}))
	defer server.Close()

	client := NewYouTubeClient(WithBaseURL(server.URL))
	body, err := client.FetchCaption(context.Background(), "abc", "tok")
	if err != nil {
		t.Fatalf("FetchCaption: %v", err)
	}
	if body != srt {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestListCaptionsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewYouTubeClient(WithBaseURL(server.URL))
	_, err := client.ListCaptions(context.Background(), "dQw4w9WgXcQ", "tok")
	if err == nil {
		t.Fatal("expected error for http 500")
	}
	if errors.Is(err, errUnauthorized) {
		t.Fatalf("500 must not map to unauthorized, got %v", err)
	}
}
