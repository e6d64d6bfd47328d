package captions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSRT parses subtitle interchange text into caption entries. Blocks are
// separated by blank lines; each block carries an index line, a time-range
// line, and one or more text lines. A malformed block (fewer than two lines)
// is skipped rather than failing the whole parse. Entry ids are assigned from
// the block index line when numeric, otherwise from the block position.
func ParseSRT(raw string) ([]Entry, error) {
	content := strings.ReplaceAll(raw, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var entries []Entry
	for blockNum, block := range strings.Split(content, "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) < 2 {
			continue
		}

		id := strings.TrimSpace(lines[0])
		timeLine := lines[1]
		textLines := lines[2:]
		if !strings.Contains(timeLine, "-->") {
			// Some feeds omit the index line.
			timeLine = lines[0]
			textLines = lines[1:]
			id = strconv.Itoa(blockNum + 1)
		}

		start, end, err := parseTimeRange(timeLine)
		if err != nil {
			continue
		}
		if len(textLines) == 0 {
			continue
		}

		entries = append(entries, Entry{
			ID:        id,
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(textLines, "\n"),
		})
	}
	return entries, nil
}

// FormatSRT serializes entries back to subtitle interchange text with
// millisecond-precise timestamps.
func FormatSRT(entries []Entry) string {
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(entry.StartTime), FormatTimestamp(entry.EndTime))
		b.WriteString(entry.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Parsing a timestamp and
// formatting the result reproduces the original string.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	h := millis / 3_600_000
	millis -= h * 3_600_000
	m := millis / 60_000
	millis -= m * 60_000
	s := millis / 1000
	millis -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}

// FormatClock renders seconds as HH:MM:SS for display purposes.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func parseTimeRange(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", line)
	}
	start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("inverted time range %q", line)
	}
	return start, end, nil
}

// ParseTimestamp converts an HH:MM:SS,mmm value to float seconds. The comma
// is the standard millisecond separator; a period is tolerated.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
