// Package fields holds the ordered field-map contract each platform
// extractor fulfills and the embed-delivery layer consumes.
package fields

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v3"
)

// Reserved keys. Every other key in a Map is a human-readable display
// label whose value is a pre-formatted markdown string.
const (
	KeyTitle        = "title"
	KeyDescription  = "description"
	KeyThumbnailURL = "thumbnailUrl"
	KeyPlatformType = "embedPlatformType"
	KeyColour       = "embedColour"
)

// Platform tags a Map with the service it was extracted from.
type Platform string

const (
	PlatformBandcamp     Platform = "bandcamp"
	PlatformSoundCloud   Platform = "soundcloud"
	PlatformSpotify      Platform = "spotify"
	PlatformYouTube      Platform = "youtube"
	PlatformYouTubeMusic Platform = "youtubemusic"
)

// Brand colors, one fixed constant per platform.
var platformColours = map[Platform]string{
	PlatformBandcamp:     "#1da0c3",
	PlatformSoundCloud:   "#ff5500",
	PlatformSpotify:      "#1db954",
	PlatformYouTube:      "#ff0000",
	PlatformYouTubeMusic: "#ff0000",
}

// Colour returns the brand color for a platform.
func Colour(p Platform) string {
	return platformColours[p]
}

// Map is an insertion-ordered mapping of display label to formatted value.
type Map struct {
	om *orderedmap.OrderedMap[string, string]
}

// NewMap creates a Map pre-populated with the platform tag and colour.
func NewMap(p Platform) *Map {
	m := &Map{om: orderedmap.NewOrderedMap[string, string]()}
	m.Set(KeyPlatformType, string(p))
	m.Set(KeyColour, platformColours[p])
	return m
}

// Set inserts or updates a key. Existing keys keep their position.
func (m *Map) Set(key, value string) {
	m.om.Set(key, value)
}

// Get returns the value for key.
func (m *Map) Get(key string) (string, bool) {
	return m.om.Get(key)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.om.Get(key)
	return ok
}

// Delete removes a key if present.
func (m *Map) Delete(key string) {
	m.om.Delete(key)
}

// Reappend moves an existing key to the end of the ordering, keeping its
// value. Used to keep label ordering stable after a late insertion.
func (m *Map) Reappend(key string) {
	value, ok := m.om.Get(key)
	if !ok {
		return
	}
	m.om.Delete(key)
	m.om.Set(key, value)
}

// SetPlatform rewrites the platform tag and colour in place (a YouTube
// video may turn out to be a YouTube Music track after classification).
func (m *Map) SetPlatform(p Platform) {
	m.Set(KeyPlatformType, string(p))
	m.Set(KeyColour, platformColours[p])
}

// Platform returns the platform tag.
func (m *Map) Platform() Platform {
	v, _ := m.om.Get(KeyPlatformType)
	return Platform(v)
}

// Len returns the number of keys, reserved ones included.
func (m *Map) Len() int {
	return m.om.Len()
}

// Keys returns all keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.om.Len())
	for el := m.om.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Labels returns the non-reserved keys in insertion order.
func (m *Map) Labels() []string {
	var labels []string
	for el := m.om.Front(); el != nil; el = el.Next() {
		switch el.Key {
		case KeyTitle, KeyDescription, KeyThumbnailURL, KeyPlatformType, KeyColour:
		default:
			labels = append(labels, el.Key)
		}
	}
	return labels
}

// Link renders a markdown link.
func Link(text, url string) string {
	return fmt.Sprintf("[%s](%s)", text, url)
}

// Code renders a markdown code span.
func Code(s string) string {
	return "`" + s + "`"
}
