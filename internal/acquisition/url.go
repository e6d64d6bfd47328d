package acquisition

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID pulls the platform video id out of a watch URL. It accepts
// the standard watch form, the short-link form, and the embed form, as well
// as a bare 11-character id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse video url: %w", err)
	}

	var candidate string
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if strings.HasPrefix(parsed.Path, "/embed/") {
			candidate = strings.TrimPrefix(parsed.Path, "/embed/")
		} else {
			candidate = parsed.Query().Get("v")
		}
	case "youtu.be":
		candidate = strings.TrimPrefix(parsed.Path, "/")
	}

	candidate = strings.TrimSuffix(candidate, "/")
	if !videoIDPattern.MatchString(candidate) {
		return "", fmt.Errorf("no video id found in %q", raw)
	}
	return candidate, nil
}
