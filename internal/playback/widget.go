package playback

import (
	"context"
	"time"
)

// Widget is the external sign-language rendering component. It is injected
// rather than reached through a global so tests can substitute a recording
// fake. Availability is asynchronous; callers must check Ready or use
// WaitReady before the first Translate.
type Widget interface {
	Translate(text string) error
	Stop() error
	Enable() error
	Ready() bool
}

// WaitReady polls the widget until it reports ready or the context expires.
func WaitReady(ctx context.Context, widget Widget, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if widget.Ready() {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if widget.Ready() {
				return nil
			}
		}
	}
}
