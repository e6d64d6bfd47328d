package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"librasflow/internal/config"
	"librasflow/internal/project"
)

const userAgent = "LibrasFlow-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyStageCompleted(ctx context.Context, title string, stage project.Stage, artifactKind string, count int) error
	NotifyStageFailed(ctx context.Context, title string, stage project.Stage, err error) error
	NotifyProjectCompleted(ctx context.Context, title, artifactURL string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyStageCompleted(ctx context.Context, title string, stage project.Stage, artifactKind string, count int) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   fmt.Sprintf("LibrasFlow - %s Complete", stageLabel(stage)),
		message: fmt.Sprintf("%s: %d %s ready", title, count, artifactKind),
		tags:    []string{"librasflow", string(stage), "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageFailed(ctx context.Context, title string, stage project.Stage, err error) error {
	title = strings.TrimSpace(title)
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    fmt.Sprintf("LibrasFlow - %s Failed", stageLabel(stage)),
		message:  fmt.Sprintf("%s: %s", title, reason),
		tags:     []string{"librasflow", string(stage), "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProjectCompleted(ctx context.Context, title, artifactURL string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Export ready: %s", title)
	if artifactURL = strings.TrimSpace(artifactURL); artifactURL != "" {
		message = fmt.Sprintf("%s\n%s", message, artifactURL)
	}
	data := payload{
		title:    "LibrasFlow - Complete",
		message:  message,
		tags:     []string{"librasflow", "export", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "LibrasFlow - Test",
		message:  "Notification system test",
		tags:     []string{"librasflow", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func stageLabel(stage project.Stage) string {
	name := string(stage)
	if name == "" {
		return "Stage"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NewNoop returns a notification service that discards every event.
func NewNoop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) NotifyStageCompleted(context.Context, string, project.Stage, string, int) error {
	return nil
}
func (noopService) NotifyStageFailed(context.Context, string, project.Stage, error) error { return nil }
func (noopService) NotifyProjectCompleted(context.Context, string, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
