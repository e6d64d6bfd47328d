// Package notifications publishes workflow events (stage completion, stage
// failure, finished exports) to an ntfy topic when one is configured.
package notifications
