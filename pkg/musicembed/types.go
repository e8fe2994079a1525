// Package musicembed extracts track/album/playlist metadata from music
// platform links and renders it into an ordered field map.
package musicembed

import (
	"context"
	"errors"

	"tunecard/pkg/fields"
)

var (
	// ErrNoData is returned when a platform page or API yielded nothing
	// usable. Callers with preview text at hand may degrade to a
	// best-effort preview parse instead of failing the message.
	ErrNoData = errors.New("no data found")

	// ErrNoTrack is returned by the YouTube extractor when the URL does
	// not resolve to any video or playlist at all. This is fatal for the
	// whole extraction, not a missing-field condition.
	ErrNoTrack = errors.New("no track")

	// ErrUnsupportedURL is returned when no extractor claims a URL.
	ErrUnsupportedURL = errors.New("unsupported URL")
)

// Extractor turns a platform URL into a rendered field map. Extractors
// keep no per-request state: every Extract call re-fetches from the
// origin platform and is safe to run concurrently with others.
type Extractor interface {
	// Extract fetches platform data for url and builds the field map.
	Extract(ctx context.Context, url string) (*fields.Map, error)

	// CanExtract checks if this extractor handles the given URL.
	CanExtract(url string) bool

	// Platform names the service this extractor covers.
	Platform() fields.Platform
}
