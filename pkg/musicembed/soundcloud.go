package musicembed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tunecard/pkg/fields"
	"tunecard/pkg/format"
)

const (
	soundcloudHomeURL    = "https://soundcloud.com/"
	soundcloudResolveURL = "https://api-v2.soundcloud.com/resolve"
	soundcloudOEmbedURL  = "https://soundcloud.com/oembed"

	soundcloudCreatedAtLayout = "2006-01-02T15:04:05Z"
)

var (
	scScriptPattern   = regexp.MustCompile(`<script[^>]+src="(https://a-v2\.sndcdn\.com/assets/[^"]+)"`)
	scClientIDPattern = regexp.MustCompile(`client_id\s*[:=]\s*"([A-Za-z0-9]{32})"`)
	scTagPattern      = regexp.MustCompile(`"[^"]*"|\S+`)

	downloadWords = []string{"download", "free", "dl"}

	countPrinter = message.NewPrinter(language.English)
)

// SoundCloudExtractor resolves track and playlist URLs through the
// public api-v2 resolver, scraping a client id from the web player
// assets on first use.
type SoundCloudExtractor struct {
	client *http.Client
	logger *zap.Logger

	mu       sync.Mutex
	clientID string
}

// NewSoundCloudExtractor creates a SoundCloud extractor. The api-v2
// client id is scraped lazily on the first resolution.
func NewSoundCloudExtractor(logger *zap.Logger) *SoundCloudExtractor {
	return &SoundCloudExtractor{
		client: newHTTPClient(),
		logger: logger,
	}
}

// Platform names the service this extractor covers.
func (e *SoundCloudExtractor) Platform() fields.Platform {
	return fields.PlatformSoundCloud
}

// CanExtract checks if the URL is a SoundCloud page or mobile short
// link.
func (e *SoundCloudExtractor) CanExtract(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Host == "soundcloud.com" || u.Host == "on.soundcloud.com"
}

// Extract resolves a SoundCloud URL and renders its field map. Failed
// resolution falls back to the oEmbed endpoint before giving up.
func (e *SoundCloudExtractor) Extract(ctx context.Context, rawURL string) (*fields.Map, error) {
	body, err := e.resolve(ctx, rawURL)
	if err != nil {
		e.logger.Debug("soundcloud resolve failed, trying oembed",
			zap.String("url", rawURL), zap.Error(err))
		return e.extractOEmbed(ctx, rawURL)
	}

	switch gjson.GetBytes(body, "kind").String() {
	case "track":
		var track scTrack
		if err := json.Unmarshal(body, &track); err != nil {
			return nil, fmt.Errorf("%w: decode track: %v", ErrNoData, err)
		}
		return buildSoundCloudTrackFields(&track), nil

	case "playlist":
		var playlist scPlaylist
		if err := json.Unmarshal(body, &playlist); err != nil {
			return nil, fmt.Errorf("%w: decode playlist: %v", ErrNoData, err)
		}
		return buildSoundCloudPlaylistFields(&playlist), nil

	default:
		return e.extractOEmbed(ctx, rawURL)
	}
}

// resolve follows a mobile short link to its canonical URL if needed,
// then calls the api-v2 resolver. A rejected client id is rescraped
// once.
func (e *SoundCloudExtractor) resolve(ctx context.Context, rawURL string) ([]byte, error) {
	canonical, err := e.canonicalURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	id, err := e.ensureClientID(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := e.callResolve(ctx, canonical, id)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		e.invalidateClientID()
		id, err = e.ensureClientID(ctx)
		if err != nil {
			return nil, err
		}
		body, status, err = e.callResolve(ctx, canonical, id)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: resolve returned status %d", ErrNoData, status)
	}
	return body, nil
}

// canonicalURL follows redirects for on.soundcloud.com short links and
// passes every other URL through untouched.
func (e *SoundCloudExtractor) canonicalURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "on.soundcloud.com" {
		return rawURL, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", commonUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: follow short link: %v", ErrNoData, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: short link returned status %d", ErrNoData, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}

func (e *SoundCloudExtractor) callResolve(ctx context.Context, target, clientID string) ([]byte, int, error) {
	reqURL := fmt.Sprintf("%s?url=%s&client_id=%s",
		soundcloudResolveURL, url.QueryEscape(target), clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", commonUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return []byte(body), resp.StatusCode, nil
}

// ensureClientID returns the cached client id, scraping the web player
// assets when none is held.
func (e *SoundCloudExtractor) ensureClientID(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clientID != "" {
		return e.clientID, nil
	}

	home, err := fetchPage(ctx, e.client, soundcloudHomeURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetch home page: %v", ErrNoData, err)
	}

	for _, m := range scScriptPattern.FindAllStringSubmatch(home, -1) {
		script, err := fetchPage(ctx, e.client, m[1])
		if err != nil {
			continue
		}
		if id := scClientIDPattern.FindStringSubmatch(script); id != nil {
			e.clientID = id[1]
			e.logger.Debug("scraped soundcloud client id")
			return e.clientID, nil
		}
	}
	return "", fmt.Errorf("%w: no client id in web player assets", ErrNoData)
}

func (e *SoundCloudExtractor) invalidateClientID() {
	e.mu.Lock()
	e.clientID = ""
	e.mu.Unlock()
}

// extractOEmbed builds a degraded field map from the oEmbed endpoint
// when api-v2 resolution fails.
func (e *SoundCloudExtractor) extractOEmbed(ctx context.Context, rawURL string) (*fields.Map, error) {
	reqURL := fmt.Sprintf("%s?format=json&url=%s", soundcloudOEmbedURL, url.QueryEscape(rawURL))

	var embed struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		AuthorURL    string `json:"author_url"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := fetchJSON(ctx, e.client, reqURL, &embed); err != nil {
		return nil, fmt.Errorf("%w: oembed: %v", ErrNoData, err)
	}

	m := fields.NewMap(fields.PlatformSoundCloud)
	if embed.Title != "" {
		title := embed.Title
		if embed.AuthorName != "" && !containsFold(title, embed.AuthorName) {
			title = fmt.Sprintf("%s - %s", embed.AuthorName, title)
		}
		m.Set(fields.KeyTitle, title)
	}
	if embed.AuthorName != "" {
		m.Set("Channel", fields.Link(embed.AuthorName, embed.AuthorURL))
	}
	if embed.ThumbnailURL != "" {
		m.Set(fields.KeyThumbnailURL, rewriteArtwork(embed.ThumbnailURL))
	}
	return m, nil
}

// --- api-v2 data model ---

type scUser struct {
	Username     string `json:"username"`
	PermalinkURL string `json:"permalink_url"`
	AvatarURL    string `json:"avatar_url"`
}

type scPublisherMetadata struct {
	Artist string `json:"artist"`
}

type scTrack struct {
	Kind              string               `json:"kind"`
	Title             string               `json:"title"`
	Artist            string               `json:"artist"`
	ArtworkURL        string               `json:"artwork_url"`
	Genre             string               `json:"genre"`
	Duration          int64                `json:"duration"`
	CreatedAt         string               `json:"created_at"`
	LikesCount        *int64               `json:"likes_count"`
	PlaybackCount     *int64               `json:"playback_count"`
	PublisherMetadata *scPublisherMetadata `json:"publisher_metadata"`
	TagList           string               `json:"tag_list"`
	PurchaseTitle     string               `json:"purchase_title"`
	PurchaseURL       string               `json:"purchase_url"`
	Downloadable      bool                 `json:"downloadable"`
	HasDownloadsLeft  bool                 `json:"has_downloads_left"`
	DownloadURL       string               `json:"download_url"`
	PermalinkURL      string               `json:"permalink_url"`
	User              scUser               `json:"user"`
}

type scPlaylist struct {
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	ArtworkURL   string    `json:"artwork_url"`
	IsAlbum      bool      `json:"is_album"`
	TrackCount   int       `json:"track_count"`
	Duration     int64     `json:"duration"`
	Genre        string    `json:"genre"`
	LikesCount   *int64    `json:"likes_count"`
	TagList      string    `json:"tag_list"`
	PermalinkURL string    `json:"permalink_url"`
	User         scUser    `json:"user"`
	Tracks       []scTrack `json:"tracks"`
}

// resolvedArtist picks the most trustworthy artist signal: publisher
// metadata when it names someone other than the uploader, then the
// track's own artist attribute, then the uploader handle.
func (t *scTrack) resolvedArtist() string {
	uploader := t.User.Username
	if t.PublisherMetadata != nil && t.PublisherMetadata.Artist != "" &&
		t.PublisherMetadata.Artist != uploader {
		return t.PublisherMetadata.Artist
	}
	if t.Artist != "" {
		return t.Artist
	}
	return uploader
}

// --- field building ---

// buildSoundCloudTrackFields renders a resolved track.
func buildSoundCloudTrackFields(t *scTrack) *fields.Map {
	m := fields.NewMap(fields.PlatformSoundCloud)

	m.Set(fields.KeyTitle, soundcloudTrackTitle(t))

	if t.Genre != "" {
		m.Set("Genre", fields.Code(t.Genre))
	}

	if t.Duration > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(t.Duration)))
	}

	if t.CreatedAt != "" {
		if d, err := format.FormatDate(t.CreatedAt, soundcloudCreatedAtLayout); err == nil {
			m.Set("Uploaded on", d)
		}
	}

	// Zero likes and plays are real values; only a missing count omits
	// the field.
	if t.LikesCount != nil {
		m.Set("Likes", fmt.Sprintf(":orange_heart: %d", *t.LikesCount))
	}
	if t.PlaybackCount != nil {
		m.Set("Plays", ":notes: "+countPrinter.Sprintf("%d", *t.PlaybackCount))
	}

	if t.PurchaseURL != "" {
		name := t.PurchaseTitle
		if name == "" {
			name = "Buy/Stream"
		}
		icon := ":link:"
		if isDownloadLabel(name) {
			icon = ":arrow_down:"
		}
		m.Set("Buy/Download Link", fmt.Sprintf("%s [%s](<%s>)", icon, name, t.PurchaseURL))
	} else if t.Downloadable && t.HasDownloadsLeft {
		desc := ":arrow_down: **Download button is on** :arrow_down:"
		if t.DownloadURL != "" {
			desc += fmt.Sprintf("[here](<%s>)", t.DownloadURL)
		}
		m.Set(fields.KeyDescription, desc)
	}

	if t.User.Username != "" {
		m.Set("Channel", fields.Link(t.User.Username, t.User.PermalinkURL))
	}

	if tags := soundcloudTags(t.TagList); tags != "" {
		m.Set("Tags", tags)
	}

	if thumb := trackThumbnail(t); thumb != "" {
		m.Set(fields.KeyThumbnailURL, thumb)
	}

	return m
}

// soundcloudTrackTitle renders the title per the artist heuristics: a
// hyphenated artist split from the title is reassembled before
// splitting, and an artist name already inside the title is never
// duplicated.
func soundcloudTrackTitle(t *scTrack) string {
	artist := t.resolvedArtist()
	title := t.Title
	uploader := t.User.Username

	if hasSeparator(title) {
		if !equalFold(artist, uploader) {
			// The artist attribute may hold the first half of a
			// hyphenated name whose second half leaked into the title.
			if a, rest, ok := splitArtistTitle(artist + "-" + title); ok {
				artist, title = a, rest
			}
		} else if a, rest, ok := splitArtistTitle(title); ok {
			artist, title = a, rest
		}
	}

	if containsFold(title, artist) {
		if !equalFold(artist, uploader) && uploader != "" {
			return fmt.Sprintf("%s - %s", uploader, title)
		}
		return title
	}
	return fmt.Sprintf("%s - %s", artist, title)
}

// buildSoundCloudPlaylistFields renders a resolved playlist or album.
func buildSoundCloudPlaylistFields(p *scPlaylist) *fields.Map {
	m := fields.NewMap(fields.PlatformSoundCloud)

	if p.IsAlbum {
		return buildSoundCloudAlbumFields(m, p)
	}

	m.Set(fields.KeyTitle, p.Title)
	m.Set(fields.KeyDescription, "Playlist")

	if p.Genre != "" {
		m.Set("Genre", fields.Code(p.Genre))
	}
	if p.LikesCount != nil {
		m.Set("Likes", fmt.Sprintf(":orange_heart: %d", *p.LikesCount))
	}
	m.Set("Tracks", fields.Code(fmt.Sprintf("%d", p.TrackCount)))
	if p.Duration > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(p.Duration)))
	}
	if tags := soundcloudTags(p.TagList); tags != "" {
		m.Set("Tags", tags)
	}
	if thumb := playlistThumbnail(p); thumb != "" {
		m.Set(fields.KeyThumbnailURL, thumb)
	}

	return m
}

func buildSoundCloudAlbumFields(m *fields.Map, p *scPlaylist) *fields.Map {
	owner := p.User.Username

	if owner != "" && !containsFold(p.Title, owner) {
		m.Set(fields.KeyTitle, fmt.Sprintf("%s - %s", owner, p.Title))
	} else {
		m.Set(fields.KeyTitle, p.Title)
	}
	m.Set(fields.KeyDescription, "Album")

	if p.Genre != "" {
		m.Set("Genre", fields.Code(p.Genre))
	}
	if p.LikesCount != nil {
		m.Set("Likes", fmt.Sprintf(":orange_heart: %d", *p.LikesCount))
	}
	if p.Duration > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(p.Duration)))
	}
	if owner != "" {
		m.Set("Channel", fields.Link(owner, p.User.PermalinkURL))
	}
	if tags := soundcloudTags(p.TagList); tags != "" {
		m.Set("Tags", tags)
	}

	var lines []string
	for i, t := range p.Tracks {
		line := fmt.Sprintf("%d. %s", i+1, fields.Link(t.Title, t.PermalinkURL))
		if t.Duration > 0 {
			line += " " + fields.Code(format.FormatDuration(t.Duration))
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		m.Set("Tracks", fields.TruncateListing(lines, p.TrackCount))
	}

	if thumb := playlistThumbnail(p); thumb != "" {
		m.Set(fields.KeyThumbnailURL, thumb)
	}

	return m
}

// --- soundcloud helpers ---

func isDownloadLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, word := range downloadWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// soundcloudTags splits the platform's space-separated tag list, where
// multi-word tags are double-quoted, and renders each as a code span.
func soundcloudTags(tagList string) string {
	if tagList == "" {
		return ""
	}
	var coded []string
	for _, m := range scTagPattern.FindAllString(tagList, -1) {
		tag := strings.Trim(m, `"`)
		if tag != "" {
			coded = append(coded, fields.Code(tag))
		}
	}
	return strings.Join(coded, ", ")
}

// rewriteArtwork upgrades the default artwork size token to the largest
// one the CDN serves.
func rewriteArtwork(artworkURL string) string {
	return strings.Replace(artworkURL, "-large.", "-t500x500.", 1)
}

func trackThumbnail(t *scTrack) string {
	if t.ArtworkURL != "" {
		return rewriteArtwork(t.ArtworkURL)
	}
	if t.User.AvatarURL != "" {
		return rewriteArtwork(t.User.AvatarURL)
	}
	return ""
}

func playlistThumbnail(p *scPlaylist) string {
	if p.ArtworkURL != "" {
		return rewriteArtwork(p.ArtworkURL)
	}
	if len(p.Tracks) > 0 {
		return trackThumbnail(&p.Tracks[0])
	}
	return ""
}
