package captions_test

import (
	"strings"
	"testing"

	"librasflow/internal/captions"
)

const wellFormedSRT = `1
00:00:01,500 --> 00:00:04,250
Olá, seja bem-vindo.

2
00:00:05,000 --> 00:00:09,750
Hoje vamos falar sobre acessibilidade.

3
00:01:10,042 --> 00:01:15,999
A Língua Brasileira de Sinais é muito importante.
`

func TestParseSRTWellFormed(t *testing.T) {
	entries, err := captions.ParseSRT(wellFormedSRT)
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.StartTime != 1.5 || first.EndTime != 4.25 {
		t.Fatalf("unexpected times: %v %v", first.StartTime, first.EndTime)
	}
	if first.Text != "Olá, seja bem-vindo." {
		t.Fatalf("unexpected text: %q", first.Text)
	}
	third := entries[2]
	if third.StartTime != 70.042 {
		t.Fatalf("fractional minutes parse wrong: %v", third.StartTime)
	}
}

func TestParseSRTSkipsMalformedBlock(t *testing.T) {
	raw := "1\n00:00:00,000 --> 00:00:02,000\nok\n\nlone line\n\n3\n00:00:04,000 --> 00:00:06,000\ntambém ok\n"
	entries, err := captions.ParseSRT(raw)
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected malformed block skipped, got %d entries", len(entries))
	}
}

func TestParseSRTEmpty(t *testing.T) {
	entries, err := captions.ParseSRT("  \n\n  ")
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, original := range []string{
		"00:00:01,500",
		"00:01:15,999",
		"01:02:03,042",
		"10:59:59,001",
	} {
		seconds, err := captions.ParseTimestamp(original)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) failed: %v", original, err)
		}
		if got := captions.FormatTimestamp(seconds); got != original {
			t.Fatalf("round trip %q -> %v -> %q", original, seconds, got)
		}
	}
}

func TestFormatSRTRoundTripTiming(t *testing.T) {
	entries, err := captions.ParseSRT(wellFormedSRT)
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	serialized := captions.FormatSRT(entries)
	for _, stamp := range []string{
		"00:00:01,500 --> 00:00:04,250",
		"00:00:05,000 --> 00:00:09,750",
		"00:01:10,042 --> 00:01:15,999",
	} {
		if !strings.Contains(serialized, stamp) {
			t.Fatalf("expected %q in serialized output:\n%s", stamp, serialized)
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "1:2", "aa:bb:cc,ddd", "00:00:01"} {
		if _, err := captions.ParseTimestamp(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := captions.FormatClock(3725); got != "01:02:05" {
		t.Fatalf("unexpected clock format: %q", got)
	}
	if got := captions.FormatClock(-3); got != "00:00:00" {
		t.Fatalf("negative seconds should clamp: %q", got)
	}
}
