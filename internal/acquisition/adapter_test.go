package acquisition

import (
	"context"
	"errors"
	"testing"

	"librasflow/internal/captions"
	"librasflow/internal/project"
	"librasflow/internal/services"
)

type stubProvider struct {
	tracks  []CaptionTrack
	listErr error
	body    string
	fetched string
}

func (s *stubProvider) ListCaptions(_ context.Context, _, _ string) ([]CaptionTrack, error) {
	return s.tracks, s.listErr
}

func (s *stubProvider) FetchCaption(_ context.Context, captionID, _ string) (string, error) {
	s.fetched = captionID
	return s.body, nil
}

func remoteSource() project.VideoSource {
	return project.VideoSource{Kind: project.SourceRemote, PlatformVideoID: "dQw4w9WgXcQ"}
}

func TestAcquireRemoteRequiresCredential(t *testing.T) {
	adapter, err := NewAdapter(&stubProvider{}, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	_, err = adapter.Acquire(context.Background(), remoteSource(), Credentials{})
	if !errors.Is(err, services.ErrAuthRequired) {
		t.Fatalf("expected auth-required error, got %v", err)
	}
}

func TestAcquireRemoteRejectedCredential(t *testing.T) {
	provider := &stubProvider{listErr: errUnauthorized}
	adapter, err := NewAdapter(provider, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	_, err = adapter.Acquire(context.Background(), remoteSource(), Credentials{AccessToken: "expired"})
	if !errors.Is(err, services.ErrAuthRequired) {
		t.Fatalf("expected auth-required error, got %v", err)
	}
}

func TestAcquireRemoteNoTracks(t *testing.T) {
	adapter, err := NewAdapter(&stubProvider{}, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	_, err = adapter.Acquire(context.Background(), remoteSource(), Credentials{AccessToken: "tok"})
	if !errors.Is(err, ErrNoCaptions) {
		t.Fatalf("expected ErrNoCaptions, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestAcquireRemoteUnsupportedLanguage(t *testing.T) {
	provider := &stubProvider{tracks: []CaptionTrack{
		{ID: "en-track", Language: "en"},
		{ID: "ja-track", Language: "ja"},
	}}
	adapter, err := NewAdapter(provider, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	_, err = adapter.Acquire(context.Background(), remoteSource(), Credentials{AccessToken: "tok"})
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestAcquireRemoteSelectsTargetLanguage(t *testing.T) {
	provider := &stubProvider{
		tracks: []CaptionTrack{
			{ID: "en-track", Language: "en"},
			{ID: "pt-track", Language: "pt-BR"},
		},
		body: "1\n00:00:00,000 --> 00:00:05,000\nOlá, bem-vindo ao vídeo.\n",
	}
	adapter, err := NewAdapter(provider, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	set, err := adapter.Acquire(context.Background(), remoteSource(), Credentials{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if provider.fetched != "pt-track" {
		t.Fatalf("fetched track %q, want pt-track", provider.fetched)
	}
	if set.Len() != 1 {
		t.Fatalf("set has %d entries, want 1", set.Len())
	}
	entry, err := set.Get("1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Text != "Olá, bem-vindo ao vídeo." {
		t.Fatalf("unexpected text %q", entry.Text)
	}
}

func TestAcquireRemoteMatchesBaseLanguage(t *testing.T) {
	// A plain "pt" track still satisfies a pt-BR target.
	provider := &stubProvider{
		tracks: []CaptionTrack{{ID: "pt-track", Language: "pt"}},
		body:   "1\n00:00:00,000 --> 00:00:02,000\nOi.\n",
	}
	adapter, err := NewAdapter(provider, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if _, err := adapter.Acquire(context.Background(), remoteSource(), Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestAcquireUploadNotImplementedByDefault(t *testing.T) {
	adapter, err := NewAdapter(&stubProvider{}, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	source := project.VideoSource{Kind: project.SourceUpload, FileRef: "videos/demo.mp4"}
	_, err = adapter.Acquire(context.Background(), source, Credentials{})
	if !errors.Is(err, services.ErrNotImplemented) {
		t.Fatalf("expected not-implemented error, got %v", err)
	}
}

type fixedExtractor struct{ set *captions.Set }

func (f fixedExtractor) Extract(_ context.Context, _ string) (*captions.Set, error) {
	return f.set, nil
}

func TestAcquireUploadUsesExtractor(t *testing.T) {
	set, err := captions.NewSet([]captions.Entry{{ID: "1", StartTime: 0, EndTime: 2, Text: "Oi."}})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	adapter, err := NewAdapter(&stubProvider{}, "pt-BR", WithSpeechExtractor(fixedExtractor{set: set}))
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	source := project.VideoSource{Kind: project.SourceUpload, FileRef: "videos/demo.mp4"}
	got, err := adapter.Acquire(context.Background(), source, Credentials{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("set has %d entries, want 1", got.Len())
	}
}

func TestFixtureProviderRoundTrip(t *testing.T) {
	adapter, err := NewAdapter(FixtureProvider{}, "pt-BR")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	set, err := adapter.Acquire(context.Background(), remoteSource(), Credentials{AccessToken: "any"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if set.Len() != 5 {
		t.Fatalf("fixture produced %d entries, want 5", set.Len())
	}
	first, err := set.Get("1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Text != "Olá, bem-vindo ao vídeo." {
		t.Fatalf("unexpected first caption %q", first.Text)
	}
	if first.StartTime != 0 || first.EndTime != 5 {
		t.Fatalf("unexpected first window %v-%v", first.StartTime, first.EndTime)
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ExtractVideoID(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ExtractVideoID(%q): %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ExtractVideoID(%q): expected error, got %q", tc.in, got)
		}
		if got != tc.want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
