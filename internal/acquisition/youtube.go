package acquisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultHTTPTimeout = 15 * time.Second
)

// CaptionTrack describes one caption track advertised by the platform.
type CaptionTrack struct {
	ID       string
	Language string
}

// CaptionProvider lists and fetches platform caption tracks.
type CaptionProvider interface {
	ListCaptions(ctx context.Context, videoID, accessToken string) ([]CaptionTrack, error)
	FetchCaption(ctx context.Context, captionID, accessToken string) (string, error)
}

// YouTubeClient talks to the YouTube caption API.
type YouTubeClient struct {
	baseURL    string
	httpClient *http.Client
}

// YouTubeOption customizes the client.
type YouTubeOption func(*YouTubeClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) YouTubeOption {
	return func(c *YouTubeClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) YouTubeOption {
	return func(c *YouTubeClient) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewYouTubeClient constructs a caption API client.
func NewYouTubeClient(opts ...YouTubeOption) *YouTubeClient {
	client := &YouTubeClient{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type captionListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Language string `json:"language"`
		} `json:"snippet"`
	} `json:"items"`
}

// ListCaptions returns the caption tracks available for a video.
func (c *YouTubeClient) ListCaptions(ctx context.Context, videoID, accessToken string) ([]CaptionTrack, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.New("youtube captions: video id required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/captions")
	if err != nil {
		return nil, fmt.Errorf("youtube captions: build url: %w", err)
	}
	endpoint += "?part=snippet&videoId=" + url.QueryEscape(videoID)

	body, err := c.get(ctx, endpoint, accessToken)
	if err != nil {
		return nil, err
	}

	var parsed captionListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("youtube captions: decode list: %w", err)
	}
	tracks := make([]CaptionTrack, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		tracks = append(tracks, CaptionTrack{ID: item.ID, Language: item.Snippet.Language})
	}
	return tracks, nil
}

// FetchCaption downloads one caption track as subtitle interchange text.
func (c *YouTubeClient) FetchCaption(ctx context.Context, captionID, accessToken string) (string, error) {
	captionID = strings.TrimSpace(captionID)
	if captionID == "" {
		return "", errors.New("youtube captions: caption id required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/captions", captionID)
	if err != nil {
		return "", fmt.Errorf("youtube captions: build url: %w", err)
	}
	endpoint += "?tfmt=srt"

	body, err := c.get(ctx, endpoint, accessToken)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *YouTubeClient) get(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("youtube captions: request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube captions: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube captions: read body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("youtube captions: http %d: %w", resp.StatusCode, errUnauthorized)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("youtube captions: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

var errUnauthorized = errors.New("unauthorized")
