package musicembed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"tunecard/pkg/fields"
	"tunecard/pkg/format"
)

const (
	youtubeMusicWatchURL   = "https://music.youtube.com/watch?v="
	youtubeWatchURL        = "https://www.youtube.com/watch?v="
	youtubeMusicChannelURL = "https://music.youtube.com/channel/"
	youtubeChannelURL      = "https://www.youtube.com/channel/"
	youtubeMusicPlaylist   = "https://music.youtube.com/playlist?list="

	releaseTopicSentinel = "Release - Topic"
	topicSuffix          = " - Topic"
)

var (
	shortsPathPattern = regexp.MustCompile(`^/shorts/([A-Za-z0-9_-]{6,})`)

	// topicDescriptionPattern matches the auto-generated description of a
	// music catalog upload: a distributor line, a dot-separated
	// track/artist block, and a release date further down.
	topicDescriptionPattern = regexp.MustCompile(`(?s).+?\n\n(.+?)\n.*Released on: (.*?)\n`)
)

// YouTubeExtractor resolves videos, YouTube Music albums, and generic
// playlists. The Data API key only powers the supplementary description
// fetch; without one that feature is a no-op.
type YouTubeExtractor struct {
	client *http.Client
	apiKey string
	logger *zap.Logger

	mu      sync.Mutex
	service *youtubeapi.Service
}

// NewYouTubeExtractor creates a YouTube extractor. apiKey may be empty.
func NewYouTubeExtractor(apiKey string, logger *zap.Logger) *YouTubeExtractor {
	return &YouTubeExtractor{
		client: newHTTPClient(),
		apiKey: apiKey,
		logger: logger,
	}
}

// Platform names the service this extractor covers.
func (e *YouTubeExtractor) Platform() fields.Platform {
	return fields.PlatformYouTube
}

// CanExtract checks if the URL carries a video or playlist id on a
// YouTube host.
func (e *YouTubeExtractor) CanExtract(rawURL string) bool {
	videoID, playlistID := parseYouTubeURL(rawURL)
	return videoID != "" || playlistID != ""
}

// Extract resolves the video or playlist and renders its field map.
// Unlike the other platforms, an unresolvable id is a hard error.
func (e *YouTubeExtractor) Extract(ctx context.Context, rawURL string) (*fields.Map, error) {
	videoID, playlistID := parseYouTubeURL(rawURL)

	switch {
	case videoID != "":
		return e.extractVideo(ctx, videoID)
	case playlistID != "":
		return e.extractPlaylist(ctx, playlistID)
	default:
		return nil, fmt.Errorf("fetching youtube details: %w", ErrNoTrack)
	}
}

func (e *YouTubeExtractor) extractVideo(ctx context.Context, videoID string) (*fields.Map, error) {
	body, err := fetchPlayerResponse(ctx, e.client, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetching youtube details: %w", ErrNoTrack)
	}
	video := parsePlayerResponse(body)
	if video == nil || video.Title == "" {
		return nil, fmt.Errorf("fetching youtube details: %w", ErrNoTrack)
	}

	m := buildYouTubeTrackFields(video)

	if desc := e.fetchVideoDescription(ctx, videoID); desc != "" {
		applyTopicDescription(m, desc)
	}

	applyUploadDate(m, video.UploadDate)

	return m, nil
}

// applyUploadDate sets the upload date when no catalog release date made
// it into the map, labelled for what it is.
func applyUploadDate(m *fields.Map, uploadDate string) {
	if m.Has("Released") || uploadDate == "" {
		return
	}
	raw := format.StripTimezoneOffset(uploadDate)
	layout := "2006-01-02"
	if strings.Contains(raw, "T") {
		layout = "2006-01-02T15:04:05"
	}
	if d, err := format.FormatDate(raw, layout); err == nil {
		m.Set("Uploaded on", d)
	}
}

// extractPlaylist first tries to resolve the playlist as a YouTube
// Music album release, then falls back to a generic playlist.
func (e *YouTubeExtractor) extractPlaylist(ctx context.Context, playlistID string) (*fields.Map, error) {
	if page, err := fetchPage(ctx, e.client, youtubeMusicPlaylist+playlistID); err == nil {
		if browseID := findAlbumBrowseID(page); browseID != "" {
			if body, err := fetchBrowseResponse(ctx, e.client, browseID); err == nil {
				if album := parseAlbumBrowse(body); album != nil {
					return buildYouTubeAlbumFields(album), nil
				}
			}
		}
	}

	body, err := fetchBrowseResponse(ctx, e.client, "VL"+playlistID)
	if err != nil {
		return nil, fmt.Errorf("fetching youtube details: %w", ErrNoTrack)
	}
	playlist := parsePlaylistBrowse(body)
	if playlist == nil {
		return nil, fmt.Errorf("fetching youtube details: %w", ErrNoTrack)
	}

	e.fillMissingDurations(ctx, playlist.Entries)
	return buildYouTubePlaylistFields(playlist), nil
}

// fillMissingDurations looks up entries whose shelf row carried no
// duration. Lookup failures just leave the entry without one.
func (e *YouTubeExtractor) fillMissingDurations(ctx context.Context, entries []ytEntry) {
	for i := range entries {
		if entries[i].DurationMs > 0 || entries[i].VideoID == "" {
			continue
		}
		body, err := fetchPlayerResponse(ctx, e.client, entries[i].VideoID)
		if err != nil {
			continue
		}
		if video := parsePlayerResponse(body); video != nil {
			entries[i].DurationMs = video.DurationMs
		}
	}
}

// fetchVideoDescription reads the full description through the Data
// API. Any failure, including a missing API key, degrades to empty.
func (e *YouTubeExtractor) fetchVideoDescription(ctx context.Context, videoID string) string {
	svc, err := e.dataAPI(ctx)
	if err != nil || svc == nil {
		return ""
	}

	resp, err := svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		e.logger.Debug("youtube description fetch failed",
			zap.String("videoId", videoID), zap.Error(err))
		return ""
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return ""
	}
	return resp.Items[0].Snippet.Description
}

func (e *YouTubeExtractor) dataAPI(ctx context.Context) (*youtubeapi.Service, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.service != nil || e.apiKey == "" {
		return e.service, nil
	}

	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, err
	}
	e.service = svc
	return svc, nil
}

// --- URL parsing ---

// parseYouTubeURL pulls a video id or playlist id out of a YouTube URL.
// A watch URL with a list parameter counts as a video.
func parseYouTubeURL(rawURL string) (videoID, playlistID string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}

	switch u.Host {
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/"), ""
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
	default:
		return "", ""
	}

	if id := u.Query().Get("v"); id != "" {
		return id, ""
	}
	if m := shortsPathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], ""
	}
	if strings.HasPrefix(u.Path, "/playlist") {
		return "", u.Query().Get("list")
	}
	return "", ""
}

// isYouTubeMusic reports whether a video type code denotes a music
// catalog entry. User uploads (UGC) are plain videos even on the music
// domain.
func isYouTubeMusic(musicVideoType string) bool {
	return musicVideoType == "MUSIC_VIDEO_TYPE_ATV" ||
		musicVideoType == "MUSIC_VIDEO_TYPE_OMV"
}

// resolveYouTubeArtist merges the channel display name and the video's
// declared author, preferring the longer of the two. A bare topic
// channel name is stripped of its suffix; the "Release - Topic"
// placeholder is not a real name and is ignored outright.
func resolveYouTubeArtist(ownerName, author string) string {
	name := ownerName
	if name == releaseTopicSentinel {
		name = ""
	} else {
		name = strings.TrimSuffix(name, topicSuffix)
	}
	if len(author) > len(name) {
		return author
	}
	if name == "" {
		return author
	}
	return name
}

// --- field building ---

// buildYouTubeTrackFields renders a single video.
func buildYouTubeTrackFields(video *ytVideo) *fields.Map {
	music := isYouTubeMusic(video.MusicVideoType)

	platform := fields.PlatformYouTube
	if music {
		platform = fields.PlatformYouTubeMusic
	}
	m := fields.NewMap(platform)

	m.Set(fields.KeyTitle, video.Title)

	if video.DurationMs > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(video.DurationMs)))
	}

	artist := resolveYouTubeArtist(video.OwnerName, video.Author)
	if artist != "" {
		if music {
			m.Set("Artist", fields.Link(artist, youtubeMusicChannelURL+video.ChannelID))
		} else {
			m.Set("Channel", fields.Link(artist, youtubeChannelURL+video.ChannelID))
		}
	}

	if video.SquareThumb != "" {
		m.Set(fields.KeyThumbnailURL, video.SquareThumb)
	} else if video.AltThumb != "" {
		m.Set(fields.KeyThumbnailURL, video.AltThumb)
	}

	return m
}

// applyTopicDescription folds the Data API description into the field
// map: extra credited artists and the declared release date. Duration
// is re-appended so it stays behind Other Artists.
func applyTopicDescription(m *fields.Map, description string) {
	match := topicDescriptionPattern.FindStringSubmatch(description)
	if match == nil {
		return
	}

	segments := strings.Split(match[1], " · ")
	if len(segments) > 2 {
		m.Set("Other Artists", strings.Join(segments[2:], ", "))
		m.Reappend("Duration")
	}

	if d, err := format.FormatDate(strings.TrimSpace(match[2]), "2006-01-02"); err == nil {
		m.Set("Released", d)
	}
}

// buildYouTubeAlbumFields renders a YouTube Music album release.
func buildYouTubeAlbumFields(album *ytAlbum) *fields.Map {
	m := fields.NewMap(fields.PlatformYouTubeMusic)

	if album.Artist != "" && !containsFold(album.Title, album.Artist) {
		m.Set(fields.KeyTitle, fmt.Sprintf("%s - %s", album.Artist, album.Title))
	} else {
		m.Set(fields.KeyTitle, album.Title)
	}
	trackCount := album.TrackCount
	if trackCount == 0 {
		trackCount = len(album.Entries)
	}
	m.Set(fields.KeyDescription, fmt.Sprintf("%d track album", trackCount))

	var totalMs int64
	var lines []string
	for i, entry := range album.Entries {
		totalMs += entry.DurationMs

		label := entry.Title
		if extra := entryArtistLabel(entry.Artists, album.Artist); extra != "" {
			label = fmt.Sprintf("%s - %s", extra, entry.Title)
		}
		line := fmt.Sprintf("%d. %s", i+1, fields.Link(label, youtubeMusicWatchURL+entry.VideoID))
		if entry.DurationMs > 0 {
			line += " " + fields.Code(format.FormatDuration(entry.DurationMs))
		}
		lines = append(lines, line)
	}

	if totalMs > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(totalMs)))
	}
	if album.Year != "" {
		m.Set("Released", album.Year)
	}
	if album.Artist != "" {
		m.Set("Artist", album.Artist)
	}
	if len(lines) > 0 {
		m.Set("Tracks", fields.TruncateListing(lines, trackCount))
	}
	if album.ThumbnailURL != "" {
		m.Set(fields.KeyThumbnailURL, album.ThumbnailURL)
	}

	return m
}

// buildYouTubePlaylistFields renders a generic playlist. Entries link
// to the music player only when their own type code says they are
// catalog tracks.
func buildYouTubePlaylistFields(playlist *ytPlaylist) *fields.Map {
	m := fields.NewMap(fields.PlatformYouTube)

	m.Set(fields.KeyTitle, playlist.Title)

	videoCount := playlist.TrackCount
	if videoCount == 0 {
		videoCount = len(playlist.Entries)
	}
	m.Set(fields.KeyDescription, fmt.Sprintf("Playlist (%d videos)", videoCount))

	var totalMs int64
	var lines []string
	for i, entry := range playlist.Entries {
		totalMs += entry.DurationMs

		watchURL := youtubeWatchURL + entry.VideoID
		label := entry.Title
		if isYouTubeMusic(entry.MusicVideoType) {
			watchURL = youtubeMusicWatchURL + entry.VideoID
			if artists := format.JoinArtistNames(entry.Artists); artists != "" {
				label = fmt.Sprintf("%s - %s", artists, entry.Title)
			}
		}
		line := fmt.Sprintf("%d. %s", i+1, fields.Link(label, watchURL))
		if entry.DurationMs > 0 {
			line += " " + fields.Code(format.FormatDuration(entry.DurationMs))
		}
		lines = append(lines, line)
	}

	if totalMs > 0 {
		m.Set("Duration", fields.Code(format.FormatDuration(totalMs)))
	}
	if playlist.Owner != "" {
		m.Set("Created by", playlist.Owner)
	}
	if playlist.UpdatedYear != "" {
		m.Set("Last updated", playlist.UpdatedYear)
	}
	if len(lines) > 0 {
		m.Set("Videos", fields.TruncateListing(lines, videoCount))
	}
	if playlist.ThumbnailURL != "" {
		m.Set(fields.KeyThumbnailURL, playlist.ThumbnailURL)
	}

	return m
}

// entryArtistLabel joins an entry's credited artists when they differ
// from the album's own artist.
func entryArtistLabel(artists []string, albumArtist string) string {
	var extras []string
	for _, a := range artists {
		if !equalFold(a, albumArtist) {
			extras = append(extras, a)
		}
	}
	return format.JoinArtistNames(extras)
}
