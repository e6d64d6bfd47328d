package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"librasflow/internal/captions"
	"librasflow/internal/project"
	"librasflow/internal/services"
)

func httpClientWithTimeout(seconds int) *http.Client {
	if seconds <= 0 {
		seconds = 15
	}
	return &http.Client{Timeout: time.Duration(seconds) * time.Second}
}

func formatStatus(p *project.Project) string {
	if p.Status == project.StatusError && p.ErrorMessage != "" {
		return fmt.Sprintf("%s (%s)", p.Status, p.ErrorMessage)
	}
	return string(p.Status)
}

func formatWindow(start, end float64) string {
	return fmt.Sprintf("%s - %s", captions.FormatClock(start), captions.FormatClock(end))
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 3 || len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// withRetryHint points the user at the retry command when re-running the
// stage could plausibly succeed. Input problems keep the plain error.
func withRetryHint(err error, projectID string) error {
	if err == nil || !services.Retryable(err) {
		return err
	}
	return fmt.Errorf("%w (run `librasflow retry %s` to try again)", err, projectID)
}

func staleMark(stale bool) string {
	if stale {
		return " (stale)"
	}
	return ""
}
