package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"librasflow/internal/captions"
	"librasflow/internal/logging"
	"librasflow/internal/project"
	"librasflow/internal/services"
)

const stageName = "captions"

var (
	// ErrNoCaptions reports that the platform has no caption tracks at all.
	ErrNoCaptions = errors.New("no captions available")
	// ErrUnsupportedLanguage reports that only non-target-language captions exist.
	ErrUnsupportedLanguage = errors.New("unsupported caption language")
)

// Credentials carries the per-call access credential for protected caption
// reads. It is threaded explicitly through Acquire rather than looked up from
// ambient state.
type Credentials struct {
	AccessToken string
}

// Adapter retrieves captions for a video source and normalizes them into the
// caption store format.
type Adapter struct {
	provider       CaptionProvider
	extractor      SpeechExtractor
	targetLanguage language.Tag
	logger         *slog.Logger
}

// AdapterOption configures the adapter.
type AdapterOption func(*Adapter)

// WithSpeechExtractor installs the speech-extraction capability for uploaded
// videos. Without one, the upload path fails with a not-implemented error.
func WithSpeechExtractor(extractor SpeechExtractor) AdapterOption {
	return func(a *Adapter) {
		if extractor != nil {
			a.extractor = extractor
		}
	}
}

// WithLogger routes adapter diagnostics to the given logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logging.NewComponentLogger(logger, "caption-acquisition")
	}
}

// NewAdapter constructs an adapter over the given caption provider.
// targetLanguage is a BCP 47 tag such as "pt-BR"; captions in other languages
// are rejected rather than silently accepted.
func NewAdapter(provider CaptionProvider, targetLanguage string, opts ...AdapterOption) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("caption provider required")
	}
	tag, err := language.Parse(strings.TrimSpace(targetLanguage))
	if err != nil {
		return nil, fmt.Errorf("parse target language %q: %w", targetLanguage, err)
	}
	adapter := &Adapter{
		provider:       provider,
		extractor:      notImplementedExtractor{},
		targetLanguage: tag,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter, nil
}

// Acquire retrieves captions for the given source. Remote sources require a
// valid access credential; uploaded sources delegate to the speech-extraction
// capability.
func (a *Adapter) Acquire(ctx context.Context, source project.VideoSource, creds Credentials) (*captions.Set, error) {
	switch source.Kind {
	case project.SourceRemote:
		return a.acquireRemote(ctx, source.PlatformVideoID, creds)
	case project.SourceUpload:
		return a.acquireUpload(ctx, source.FileRef)
	default:
		return nil, services.Wrap(services.ErrValidation, stageName, "acquire",
			fmt.Sprintf("unknown video source kind %q", source.Kind), nil)
	}
}

func (a *Adapter) acquireRemote(ctx context.Context, videoID string, creds Credentials) (*captions.Set, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "acquire", "platform video id required", nil)
	}
	if strings.TrimSpace(creds.AccessToken) == "" {
		return nil, services.Wrap(services.ErrAuthRequired, stageName, "acquire",
			"an access credential is required to read platform captions", nil)
	}

	tracks, err := a.provider.ListCaptions(ctx, videoID, creds.AccessToken)
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			return nil, services.Wrap(services.ErrAuthRequired, stageName, "list captions",
				"the platform rejected the access credential", err)
		}
		return nil, services.Wrap(services.ErrProvider, stageName, "list captions",
			"could not list platform captions", err)
	}
	if len(tracks) == 0 {
		return nil, services.Wrap(services.ErrNotFound, stageName, "list captions",
			"the platform reports no captions for this video", ErrNoCaptions)
	}

	track, ok := a.selectTrack(tracks)
	if !ok {
		available := make([]string, 0, len(tracks))
		for _, t := range tracks {
			available = append(available, t.Language)
		}
		return nil, services.Wrap(services.ErrValidation, stageName, "select caption track",
			fmt.Sprintf("no captions in %s (available: %s)", a.targetLanguage, strings.Join(available, ", ")), ErrUnsupportedLanguage)
	}

	raw, err := a.provider.FetchCaption(ctx, track.ID, creds.AccessToken)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, stageName, "fetch caption",
			"could not download the caption track", err)
	}

	entries, err := captions.ParseSRT(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, stageName, "parse captions",
			"caption track is not valid subtitle text", err)
	}
	set, err := captions.NewSet(entries)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, stageName, "normalize captions",
			"caption track contains conflicting entries", err)
	}

	a.logger.Info("captions acquired",
		logging.String("video_id", videoID),
		logging.String("language", track.Language),
		logging.Int("entries", set.Len()),
	)
	return set, nil
}

func (a *Adapter) acquireUpload(ctx context.Context, fileRef string) (*captions.Set, error) {
	if strings.TrimSpace(fileRef) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "acquire", "uploaded file reference required", nil)
	}
	return a.extractor.Extract(ctx, fileRef)
}

// selectTrack picks the track whose language best matches the target.
func (a *Adapter) selectTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	tags := make([]language.Tag, 0, len(tracks))
	indexes := make([]int, 0, len(tracks))
	for i, track := range tracks {
		tag, err := language.Parse(track.Language)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		indexes = append(indexes, i)
	}
	if len(tags) == 0 {
		return CaptionTrack{}, false
	}

	matcher := language.NewMatcher(tags)
	_, idx, confidence := matcher.Match(a.targetLanguage)
	if confidence < language.High {
		return CaptionTrack{}, false
	}
	return tracks[indexes[idx]], true
}
