package musicembed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"tunecard/pkg/fields"
	"tunecard/pkg/format"
)

var (
	// spotifyPathPattern matches the three supported URL shapes,
	// tolerating an optional intl-XX locale segment.
	spotifyPathPattern = regexp.MustCompile(`^/(?:intl-[A-Za-z]{2}/)?(track|album|playlist)/([A-Za-z0-9]+)`)

	remixKeywords = []string{"Remix", "Mix", "Edit"}
)

// SpotifyExtractor renders track, album, and playlist pages through the
// Web API with client-credentials auth.
type SpotifyExtractor struct {
	clientID     string
	clientSecret string
	logger       *zap.Logger

	mu         sync.Mutex
	client     *spotify.Client
	httpClient *http.Client
}

// NewSpotifyExtractor creates a Spotify extractor. The API client is
// built lazily on first use so construction never blocks on auth.
func NewSpotifyExtractor(clientID, clientSecret string, logger *zap.Logger) *SpotifyExtractor {
	return &SpotifyExtractor{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

// Platform names the service this extractor covers.
func (e *SpotifyExtractor) Platform() fields.Platform {
	return fields.PlatformSpotify
}

// CanExtract checks if the URL is a supported open.spotify.com shape.
func (e *SpotifyExtractor) CanExtract(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "open.spotify.com" {
		return false
	}
	return spotifyPathPattern.MatchString(u.Path)
}

// Extract fetches the referenced object and renders its field map.
// Auth and lookup failures surface as errors so no partial card is
// ever posted for a URL the API could not serve.
func (e *SpotifyExtractor) Extract(ctx context.Context, rawURL string) (*fields.Map, error) {
	shape, id, err := parseSpotifyURL(rawURL)
	if err != nil {
		return nil, err
	}

	client, err := e.apiClient(ctx)
	if err != nil {
		e.logger.Warn("spotify auth failed", zap.Error(err))
		return nil, fmt.Errorf("spotify auth: %w", err)
	}

	var m *fields.Map
	switch shape {
	case "track":
		var track *spotify.FullTrack
		track, err = client.GetTrack(ctx, spotify.ID(id))
		if err == nil && track != nil {
			details := e.albumDetails(ctx, string(track.Album.ID))
			m = buildSpotifyTrackFields(track, details.TotalTracks)
		}
	case "album":
		var album *spotify.FullAlbum
		album, err = client.GetAlbum(ctx, spotify.ID(id))
		if err == nil && album != nil {
			m = buildSpotifyAlbumFields(album, e.albumDetails(ctx, id).Label)
		}
	case "playlist":
		var playlist *spotify.FullPlaylist
		playlist, err = client.GetPlaylist(ctx, spotify.ID(id))
		if err == nil && playlist != nil {
			total := e.playlistTotalDuration(ctx, client, playlist)
			m = buildSpotifyPlaylistFields(playlist, total)
		}
	}

	if err != nil {
		e.logger.Debug("spotify lookup failed",
			zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("spotify %s %s: %w", shape, id, err)
	}
	if m == nil {
		return nil, fmt.Errorf("spotify %s %s: %w", shape, id, ErrNoData)
	}
	return m, nil
}

func parseSpotifyURL(rawURL string) (shape, id string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	m := spotifyPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", fmt.Errorf("unrecognized spotify URL %q", rawURL)
	}
	return m[1], m[2], nil
}

func (e *SpotifyExtractor) apiClient(ctx context.Context) (*spotify.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	if e.clientID == "" || e.clientSecret == "" {
		return nil, errors.New("spotify credentials not configured")
	}

	cfg := &clientcredentials.Config{
		ClientID:     e.clientID,
		ClientSecret: e.clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}

	e.httpClient = spotifyauth.New().Client(ctx, token)
	e.client = spotify.New(e.httpClient)
	return e.client, nil
}

// spotifyAlbumDetails carries the raw Web API album attributes the
// typed client does not expose.
type spotifyAlbumDetails struct {
	Label       string `json:"label"`
	TotalTracks int    `json:"total_tracks"`
}

// albumDetails reads record label and track count straight off the Web
// API album object. Failure just leaves the zero value, so callers fall
// back to omitting the derived fields.
func (e *SpotifyExtractor) albumDetails(ctx context.Context, id string) spotifyAlbumDetails {
	e.mu.Lock()
	client := e.httpClient
	e.mu.Unlock()
	if client == nil || id == "" {
		return spotifyAlbumDetails{}
	}

	var details spotifyAlbumDetails
	reqURL := "https://api.spotify.com/v1/albums/" + id
	if err := fetchJSON(ctx, client, reqURL, &details); err != nil {
		e.logger.Debug("spotify album details fetch failed", zap.Error(err))
		return spotifyAlbumDetails{}
	}
	return details
}

// playlistTotalDuration walks every page of the playlist purely to sum
// durations; the rendered listing never goes past the first page's
// truncation budget anyway.
func (e *SpotifyExtractor) playlistTotalDuration(ctx context.Context, client *spotify.Client, playlist *spotify.FullPlaylist) int64 {
	var total int64
	page := playlist.Tracks
	for {
		for _, item := range page.Tracks {
			total += int64(item.Track.Duration)
		}
		err := client.NextPage(ctx, &page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			e.logger.Debug("spotify playlist pagination failed", zap.Error(err))
			break
		}
	}
	return total
}

// --- field building ---

// buildSpotifyTrackFields renders a track. albumTotalTracks comes from
// the raw album object and is 0 when unknown.
func buildSpotifyTrackFields(track *spotify.FullTrack, albumTotalTracks int) *fields.Map {
	m := fields.NewMap(fields.PlatformSpotify)

	title := reformatRemixTitle(track.Name)
	m.Set(fields.KeyTitle, spotifyTrackTitle(title, track.Artists))

	if track.Duration > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(int64(track.Duration))))
	}

	if released := spotifyReleaseDate(track.Album.ReleaseDate, track.Album.ReleaseDatePrecision); released != "" {
		m.Set("Released", released)
	}

	setSpotifyArtistField(m, track.Artists)

	// Single-track albums are really singles; naming them again is
	// noise. An unknown count (0) keeps the field.
	if track.Album.Name != "" && albumTotalTracks != 1 {
		m.Set("Album", fields.Link(track.Album.Name, track.Album.ExternalURLs["spotify"]))
	}

	if len(track.Album.Images) > 0 {
		m.Set(fields.KeyThumbnailURL, track.Album.Images[0].URL)
	}

	return m
}

// buildSpotifyAlbumFields renders an album with its first page of
// tracks. label may be empty when the record label is unknown.
func buildSpotifyAlbumFields(album *spotify.FullAlbum, label string) *fields.Map {
	m := fields.NewMap(fields.PlatformSpotify)

	variousArtistsAlbum := len(album.Artists) == 1 && album.Artists[0].Name == variousArtists

	albumArtistNames := make([]string, len(album.Artists))
	for i, a := range album.Artists {
		albumArtistNames[i] = a.Name
	}
	joinedArtists := strings.Join(albumArtistNames, ", ")

	if variousArtistsAlbum || containsFold(album.Name, joinedArtists) {
		m.Set(fields.KeyTitle, album.Name)
	} else {
		m.Set(fields.KeyTitle, fmt.Sprintf("%s - %s", joinedArtists, album.Name))
	}

	totalTracks := int(album.Tracks.Total)
	m.Set(fields.KeyDescription, fmt.Sprintf("%d track album", totalTracks))

	var totalMs int64
	var lines []string
	for i, t := range album.Tracks.Tracks {
		totalMs += int64(t.Duration)

		label := t.Name
		if trackArtist := firstArtistName(t.Artists); trackArtist != "" && !artistsContain(albumArtistNames, trackArtist) {
			label = fmt.Sprintf("%s - %s", trackArtist, t.Name)
		}
		position := int(t.TrackNumber)
		if position == 0 {
			position = i + 1
		}
		line := fmt.Sprintf("%d. %s", position, fields.Link(label, t.ExternalURLs["spotify"]))
		if t.Duration > 0 {
			line += " " + fields.Code(format.FormatDuration(int64(t.Duration)))
		}
		lines = append(lines, line)
	}

	if totalMs > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(totalMs)))
	}

	if released := spotifyReleaseDate(album.ReleaseDate, album.ReleaseDatePrecision); released != "" {
		m.Set("Released", released)
	}

	if variousArtistsAlbum {
		m.Set("Artists", variousArtists)
	} else {
		setSpotifyArtistField(m, album.Artists)
	}

	if label != "" {
		m.Set("Label", label)
	}

	// A one-track album's listing would just repeat the title.
	if totalTracks > 1 && len(lines) > 0 {
		m.Set("Tracks", fields.TruncateListing(lines, totalTracks))
	}

	if len(album.Images) > 0 {
		m.Set(fields.KeyThumbnailURL, album.Images[0].URL)
	}

	return m
}

// buildSpotifyPlaylistFields renders a playlist; totalMs covers every
// page, the listing only the first.
func buildSpotifyPlaylistFields(playlist *spotify.FullPlaylist, totalMs int64) *fields.Map {
	m := fields.NewMap(fields.PlatformSpotify)

	m.Set(fields.KeyTitle, playlist.Name)
	m.Set(fields.KeyDescription, fmt.Sprintf("Playlist (%d songs)", int(playlist.Tracks.Total)))

	if totalMs > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(totalMs)))
	}

	if playlist.Owner.DisplayName != "" {
		m.Set("Created by", fields.Link(playlist.Owner.DisplayName, playlist.Owner.ExternalURLs["spotify"]))
	}

	if playlist.Followers.Count > 0 {
		m.Set("Saves", fields.Code(fmt.Sprintf("%d", int(playlist.Followers.Count))))
	}

	if playlist.Description != "" {
		m.Set("Description", format.CleanLinks(playlist.Description))
	}

	var lines []string
	for i, item := range playlist.Tracks.Tracks {
		t := item.Track
		label := t.Name
		if trackArtist := firstArtistName(t.Artists); trackArtist != "" {
			label = fmt.Sprintf("%s - %s", trackArtist, t.Name)
		}
		line := fmt.Sprintf("%d. %s", i+1, fields.Link(label, t.ExternalURLs["spotify"]))
		if t.Duration > 0 {
			line += " " + fields.Code(format.FormatDuration(int64(t.Duration)))
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		m.Set("Tracks", fields.TruncateListing(lines, int(playlist.Tracks.Total)))
	}

	if len(playlist.Images) > 0 {
		m.Set(fields.KeyThumbnailURL, playlist.Images[0].URL)
	}

	return m
}

// FieldsFromPreview parses the platform's own preview description, of
// the form "{Artist} · {Type} · {Released}", into a degraded field map.
// Best effort: unexpected shapes map positionally and nothing more.
func (e *SpotifyExtractor) FieldsFromPreview(description string) *fields.Map {
	m := fields.NewMap(fields.PlatformSpotify)

	parts := strings.Split(description, " · ")
	if len(parts) < 2 {
		return m
	}

	var labels []string
	switch {
	case parts[1] == "Single" || parts[1] == "Album":
		labels = []string{"Artist", "Type", "Released"}
		if len(parts) > 3 && parts[1] != "Single" {
			parts[1] = fmt.Sprintf("%s - %s", parts[1], parts[3])
			parts = append(parts[:3], parts[4:]...)
		}
	case parts[0] == "Playlist":
		labels = []string{"Artist", "Type", "Saves :green_heart:"}
		parts[0], parts[1] = parts[1], parts[0]
		if len(parts) > 3 {
			parts[1] = fmt.Sprintf("%s - %s", parts[1], parts[2])
			parts = append(parts[:2], parts[3:]...)
		}
	default:
		labels = []string{"Artist", fields.KeyTitle, "Type", "Released"}
	}

	for i, label := range labels {
		if i >= len(parts) {
			break
		}
		m.Set(label, parts[i])
	}

	if artist, ok := m.Get("Artist"); ok && strings.Contains(artist, ", ") {
		m.Delete("Artist")
		m.Set("Artists", artist)
	}

	return m
}

// --- spotify helpers ---

// spotifyTrackTitle joins the artists not already named inside the
// title with the title itself.
func spotifyTrackTitle(title string, artists []spotify.SimpleArtist) string {
	var names []string
	for _, a := range artists {
		if !containsFold(title, a.Name) {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return title
	}
	return fmt.Sprintf("%s - %s", strings.Join(names, ", "), title)
}

// setSpotifyArtistField sets Artist for one artist and Artists for
// several, each name linked to its profile.
func setSpotifyArtistField(m *fields.Map, artists []spotify.SimpleArtist) {
	if len(artists) == 0 {
		return
	}
	links := make([]string, len(artists))
	for i, a := range artists {
		links[i] = fields.Link(a.Name, a.ExternalURLs["spotify"])
	}
	if len(links) == 1 {
		m.Set("Artist", links[0])
		return
	}
	m.Set("Artists", strings.Join(links, ", "))
}

// reformatRemixTitle rewrites "{base} - {suffix}" to "{base} ({suffix})"
// when the suffix names a remix, mix, or edit.
func reformatRemixTitle(title string) string {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 {
		return title
	}
	base, suffix := title[:idx], title[idx+len(" - "):]
	for _, keyword := range remixKeywords {
		if strings.Contains(suffix, keyword) {
			return fmt.Sprintf("%s (%s)", base, suffix)
		}
	}
	return title
}

// spotifyReleaseDate formats a release date at the API's declared
// precision (day, month, or year).
func spotifyReleaseDate(raw, precision string) string {
	if raw == "" {
		return ""
	}
	layout := "2006-01-02"
	switch precision {
	case "month":
		layout = "2006-01"
	case "year":
		layout = "2006"
	}
	d, err := format.FormatDate(raw, layout)
	if err != nil {
		return ""
	}
	return d
}

func firstArtistName(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func artistsContain(names []string, name string) bool {
	for _, n := range names {
		if equalFold(n, name) {
			return true
		}
	}
	return false
}
