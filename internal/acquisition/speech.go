package acquisition

import (
	"context"

	"librasflow/internal/captions"
	"librasflow/internal/services"
)

// SpeechExtractor produces captions from an uploaded video file by
// transcribing its audio track.
type SpeechExtractor interface {
	Extract(ctx context.Context, fileRef string) (*captions.Set, error)
}

// notImplementedExtractor is the default extractor. Uploaded videos cannot be
// captioned until a transcription backend is configured.
type notImplementedExtractor struct{}

func (notImplementedExtractor) Extract(_ context.Context, _ string) (*captions.Set, error) {
	return nil, services.Wrap(services.ErrNotImplemented, stageName, "extract speech",
		"speech extraction from uploaded files is not available", nil)
}
