package musicembed

import (
	"context"

	"go.uber.org/zap"

	"tunecard/pkg/fields"
)

// Config carries the optional platform credentials and endpoints the
// extractors need. Zero values disable only the dependent feature, never
// a whole extractor.
type Config struct {
	// BandcampRelayEndpoint is an optional relay used when Bandcamp
	// refuses the direct page fetch.
	BandcampRelayEndpoint string

	// SpotifyClientID / SpotifyClientSecret authenticate the Spotify Web
	// API client-credentials flow.
	SpotifyClientID     string
	SpotifyClientSecret string

	// YouTubeAPIKey enables the supplementary video-description fetch.
	// Without it that feature is a no-op.
	YouTubeAPIKey string
}

// Manager coordinates the per-platform extractors.
type Manager struct {
	extractors []Extractor
}

// NewManager creates a manager with all four platform extractors.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		extractors: []Extractor{
			NewBandcampExtractor(cfg.BandcampRelayEndpoint, logger),
			NewSoundCloudExtractor(logger),
			NewSpotifyExtractor(cfg.SpotifyClientID, cfg.SpotifyClientSecret, logger),
			NewYouTubeExtractor(cfg.YouTubeAPIKey, logger),
		},
	}
}

// Extract dispatches a URL to the extractor that claims it.
func (m *Manager) Extract(ctx context.Context, url string) (*fields.Map, error) {
	for _, ex := range m.extractors {
		if ex.CanExtract(url) {
			return ex.Extract(ctx, url)
		}
	}
	return nil, ErrUnsupportedURL
}

// CanExtract checks if any extractor handles the given URL.
func (m *Manager) CanExtract(url string) bool {
	for _, ex := range m.extractors {
		if ex.CanExtract(url) {
			return true
		}
	}
	return false
}

// PlatformFor returns the platform tag of the extractor claiming url.
func (m *Manager) PlatformFor(url string) (fields.Platform, bool) {
	for _, ex := range m.extractors {
		if ex.CanExtract(url) {
			return ex.Platform(), true
		}
	}
	return "", false
}
