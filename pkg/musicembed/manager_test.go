package musicembed

import (
	"testing"

	"go.uber.org/zap"

	"tunecard/pkg/fields"
)

func TestManagerPlatformFor(t *testing.T) {
	m := NewManager(Config{}, zap.NewNop())

	tests := []struct {
		url      string
		platform fields.Platform
		ok       bool
	}{
		{"https://artist.bandcamp.com/track/song", fields.PlatformBandcamp, true},
		{"https://artist.bandcamp.com/album/record", fields.PlatformBandcamp, true},
		{"https://soundcloud.com/artist/track", fields.PlatformSoundCloud, true},
		{"https://on.soundcloud.com/abc123", fields.PlatformSoundCloud, true},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", fields.PlatformSpotify, true},
		{"https://open.spotify.com/intl-de/album/abc123", fields.PlatformSpotify, true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", fields.PlatformYouTube, true},
		{"https://youtu.be/dQw4w9WgXcQ", fields.PlatformYouTube, true},
		{"https://music.youtube.com/playlist?list=OLAK5uy_abc", fields.PlatformYouTube, true},
		{"https://example.com/track/1", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		platform, ok := m.PlatformFor(tt.url)
		if ok != tt.ok || platform != tt.platform {
			t.Errorf("PlatformFor(%q) = (%q, %v), want (%q, %v)",
				tt.url, platform, ok, tt.platform, tt.ok)
		}
	}
}

func TestManagerCanExtract(t *testing.T) {
	m := NewManager(Config{}, zap.NewNop())

	if !m.CanExtract("https://artist.bandcamp.com/track/song") {
		t.Error("bandcamp track URL should be claimed")
	}
	if m.CanExtract("https://example.com/") {
		t.Error("unrelated URL should not be claimed")
	}
}
