package acquisition

import (
	"context"

	"librasflow/internal/captions"
)

// fixtureTrackID marks captions served by the built-in fixture provider.
const fixtureTrackID = "fixture-pt-br"

// FixtureProvider serves a small built-in Portuguese caption track. It exists
// so the pipeline can run end to end without platform credentials, for demos
// and tests. It is not a real caption source.
type FixtureProvider struct{}

// ListCaptions always reports a single Portuguese track.
func (FixtureProvider) ListCaptions(_ context.Context, _ string, _ string) ([]CaptionTrack, error) {
	return []CaptionTrack{{ID: fixtureTrackID, Language: "pt-BR"}}, nil
}

// FetchCaption returns the built-in sample captions as SRT text.
func (FixtureProvider) FetchCaption(_ context.Context, _ string, _ string) (string, error) {
	return captions.FormatSRT(fixtureEntries()), nil
}

func fixtureEntries() []captions.Entry {
	return []captions.Entry{
		{ID: "1", StartTime: 0, EndTime: 5, Text: "Olá, bem-vindo ao vídeo."},
		{ID: "2", StartTime: 5, EndTime: 10, Text: "Hoje vamos falar sobre acessibilidade."},
		{ID: "3", StartTime: 10, EndTime: 15, Text: "A língua de sinais é muito importante."},
		{ID: "4", StartTime: 15, EndTime: 20, Text: "Vamos aprender juntos."},
		{ID: "5", StartTime: 20, EndTime: 25, Text: "Obrigado por assistir."},
	}
}
