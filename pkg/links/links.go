// Package links finds music-platform URLs in free text and classifies them.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform identifies the music platform a link belongs to.
type Platform string

const (
	PlatformBandcamp   Platform = "bandcamp"
	PlatformSoundCloud Platform = "soundcloud"
	PlatformSpotify    Platform = "spotify"
	PlatformYouTube    Platform = "youtube"
)

// Link is a categorized URL found in a message.
type Link struct {
	URL      string
	Platform Platform
}

const trailingJunk = ".,!?;:'\"`)]"

var (
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	codeFencePattern = regexp.MustCompile("(?s)```.*?```")
	codeSpanPattern  = regexp.MustCompile("`[^`\n]*`")
	bracketedPattern = regexp.MustCompile(`<https?://[^>]*>`)
)

// Categorize scans text for http(s) URLs and classifies each by platform,
// preserving left-to-right order and duplicates. Unrecognized hosts are
// dropped. When includeHidden is false, URLs inside code fences, backtick
// spans, and angle brackets are skipped first (the chat-platform
// convention for suppressing previews).
func Categorize(text string, includeHidden bool) []Link {
	if !includeHidden {
		text = codeFencePattern.ReplaceAllString(text, "")
		text = codeSpanPattern.ReplaceAllString(text, "")
		text = bracketedPattern.ReplaceAllString(text, "")
	}

	var found []Link
	for _, raw := range urlPattern.FindAllString(text, -1) {
		cleaned := strings.TrimRight(raw, trailingJunk)
		platform, normalized, ok := classify(cleaned)
		if !ok {
			continue
		}
		found = append(found, Link{URL: normalized, Platform: platform})
	}
	return found
}

// classify maps a URL to its platform tag and canonical form. SoundCloud
// m. and www. hosts are rewritten to the bare domain here; on.soundcloud.com
// short links pass through untouched and are resolved later by the
// SoundCloud extractor via its redirect lookup.
func classify(rawURL string) (Platform, string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}

	switch host := strings.ToLower(u.Hostname()); host {
	case "soundcloud.com", "on.soundcloud.com":
		return PlatformSoundCloud, rawURL, true
	case "m.soundcloud.com", "www.soundcloud.com":
		u.Host = "soundcloud.com"
		return PlatformSoundCloud, u.String(), true
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return PlatformYouTube, rawURL, true
	case "open.spotify.com":
		return PlatformSpotify, rawURL, true
	default:
		if strings.HasSuffix(host, ".bandcamp.com") {
			return PlatformBandcamp, rawURL, true
		}
		return "", "", false
	}
}
