// Package format provides display formatting helpers shared by the platform extractors.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
)

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s<>]+`)
	tzOffsetPattern = regexp.MustCompile(`[+-]\d{1,2}:\d{2}$`)
)

// FormatDuration converts a millisecond count to a display string.
// Durations under an hour render as M:SS with an unpadded minute digit,
// longer ones as H:MM:SS. Seconds are always two digits.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	hours := total / secondsPerHour
	minutes := (total % secondsPerHour) / secondsPerMinute
	seconds := total % secondsPerMinute

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatDate parses raw according to the given reference layout and
// re-renders it as "2 January 2006". The output precision follows the
// source layout: a layout without a day component yields "January 2006",
// a bare year layout yields "2006".
func FormatDate(raw, layout string) (string, error) {
	t, err := time.Parse(layout, raw)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", raw, err)
	}

	switch {
	case layoutHasDay(layout):
		return t.Format("2 January 2006"), nil
	case layoutHasMonth(layout):
		return t.Format("January 2006"), nil
	default:
		return t.Format("2006"), nil
	}
}

// FormatUnixDate renders a unix timestamp (seconds) as "2 January 2006" in UTC.
func FormatUnixDate(secs int64) string {
	return time.Unix(secs, 0).UTC().Format("2 January 2006")
}

func layoutHasDay(layout string) bool {
	return strings.Contains(layout, "02") || strings.Contains(layout, "_2")
}

func layoutHasMonth(layout string) bool {
	return strings.Contains(layout, "01") || strings.Contains(layout, "Jan")
}

// StripTimezoneOffset removes a trailing UTC offset ("+10:00", "-07:00",
// "+0:00") from an ISO-style timestamp, leaving the naive date-time.
func StripTimezoneOffset(ts string) string {
	sep := strings.IndexByte(ts, 'T')
	if sep < 0 {
		return ts
	}
	return ts[:sep+1] + tzOffsetPattern.ReplaceAllString(ts[sep+1:], "")
}

// CleanLinks wraps every URL in angle brackets so that chat platforms do
// not unfurl previews for them.
func CleanLinks(s string) string {
	return urlPattern.ReplaceAllString(s, "<$0>")
}

// JoinArtistNames joins artist names for display: one name as-is, two
// names with an ampersand, more with commas and a final ampersand.
func JoinArtistNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " & " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
	}
}
