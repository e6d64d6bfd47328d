package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"librasflow/internal/config"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.Gemini{Model: "gemini-pro"})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestNewClientRequiresModel(t *testing.T) {
	_, err := NewClient(context.Background(), config.Gemini{APIKey: "key"})
	if err == nil {
		t.Fatal("expected error for missing model name")
	}
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []genai.Part{genai.Text("OLÁ "), genai.Text("BEM-VINDO")},
			},
		}},
	}
	got, err := extractText(resp)
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	if got != "OLÁ BEM-VINDO" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextEmptyResponse(t *testing.T) {
	if _, err := extractText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}
	if _, err := extractText(resp); err == nil {
		t.Fatal("expected error for candidate without content")
	}
}
