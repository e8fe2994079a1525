package musicembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	innertubePlayerURL = "https://music.youtube.com/youtubei/v1/player"
	innertubeBrowseURL = "https://music.youtube.com/youtubei/v1/browse"

	// innertubeClientVersion tracks the WEB_REMIX web player release the
	// request context claims to be.
	innertubeClientVersion = "1.20240101.00.00"
)

var albumBrowseIDPattern = regexp.MustCompile(`MPRE[A-Za-z0-9_-]+`)

// ytVideo is the subset of an innertube player response the renderer
// needs.
type ytVideo struct {
	Title          string
	Author         string
	ChannelID      string
	DurationMs     int64
	MusicVideoType string
	SquareThumb    string
	AltThumb       string
	OwnerName      string
	Description    string
	UploadDate     string
}

// ytEntry is one track or video inside an album or playlist shelf.
type ytEntry struct {
	Title          string
	Artists        []string
	VideoID        string
	DurationMs     int64
	MusicVideoType string
}

type ytAlbum struct {
	Title        string
	Artist       string
	Year         string
	ThumbnailURL string
	TrackCount   int
	Entries      []ytEntry
}

type ytPlaylist struct {
	Title        string
	Owner        string
	UpdatedYear  string
	ThumbnailURL string
	TrackCount   int
	Entries      []ytEntry
}

// innertubeCall POSTs a WEB_REMIX request body to an innertube endpoint
// and returns the raw response.
func innertubeCall(ctx context.Context, client *http.Client, endpoint string, payload map[string]any) ([]byte, error) {
	payload["context"] = map[string]any{
		"client": map[string]any{
			"clientName":    "WEB_REMIX",
			"clientVersion": innertubeClientVersion,
			"hl":            "en",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Origin", "https://music.youtube.com")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("innertube returned status %d", resp.StatusCode)
	}

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

func fetchPlayerResponse(ctx context.Context, client *http.Client, videoID string) ([]byte, error) {
	return innertubeCall(ctx, client, innertubePlayerURL, map[string]any{"videoId": videoID})
}

func fetchBrowseResponse(ctx context.Context, client *http.Client, browseID string) ([]byte, error) {
	return innertubeCall(ctx, client, innertubeBrowseURL, map[string]any{"browseId": browseID})
}

// findAlbumBrowseID scrapes a playlist page for the album browse id a
// release playlist redirects to. Empty means the playlist is not an
// album.
func findAlbumBrowseID(page string) string {
	return albumBrowseIDPattern.FindString(page)
}

// parsePlayerResponse extracts the video fields from a player response.
// A response without video details yields nil.
func parsePlayerResponse(body []byte) *ytVideo {
	details := gjson.GetBytes(body, "videoDetails")
	if !details.Exists() {
		return nil
	}

	video := &ytVideo{
		Title:          details.Get("title").String(),
		Author:         details.Get("author").String(),
		ChannelID:      details.Get("channelId").String(),
		MusicVideoType: details.Get("musicVideoType").String(),
	}
	if secs, err := strconv.ParseInt(details.Get("lengthSeconds").String(), 10, 64); err == nil {
		video.DurationMs = secs * 1000
	}

	// The declared thumbnails are scaled crops; a square one is the
	// actual cover art.
	details.Get("thumbnail.thumbnails").ForEach(func(_, thumb gjson.Result) bool {
		if thumb.Get("width").Int() == thumb.Get("height").Int() {
			video.SquareThumb = thumb.Get("url").String()
			return false
		}
		return true
	})

	micro := gjson.GetBytes(body, "microformat.microformatDataRenderer")
	video.OwnerName = micro.Get("pageOwnerDetails.name").String()
	video.Description = micro.Get("description").String()
	video.UploadDate = micro.Get("uploadDate").String()
	video.AltThumb = micro.Get("thumbnail.thumbnails.0.url").String()

	return video
}

// browse result layouts: the two-column renderer is current, the
// single-column one still shows up on older cached responses.
var (
	albumHeaderPaths = []string{
		"contents.twoColumnBrowseResultsRenderer.tabs.0.tabRenderer.content.sectionListRenderer.contents.0.musicResponsiveHeaderRenderer",
		"header.musicDetailHeaderRenderer",
	}
	shelfPaths = []string{
		"contents.twoColumnBrowseResultsRenderer.secondaryContents.sectionListRenderer.contents.0.musicShelfRenderer.contents",
		"contents.singleColumnBrowseResultsRenderer.tabs.0.tabRenderer.content.sectionListRenderer.contents.0.musicShelfRenderer.contents",
	}
	playlistShelfPaths = []string{
		"contents.twoColumnBrowseResultsRenderer.secondaryContents.sectionListRenderer.contents.0.musicPlaylistShelfRenderer.contents",
		"contents.singleColumnBrowseResultsRenderer.tabs.0.tabRenderer.content.sectionListRenderer.contents.0.musicPlaylistShelfRenderer.contents",
	}
)

func firstExisting(body []byte, paths []string) gjson.Result {
	for _, path := range paths {
		if r := gjson.GetBytes(body, path); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// parseAlbumBrowse extracts an album from a browse response. A response
// without an album header yields nil.
func parseAlbumBrowse(body []byte) *ytAlbum {
	header := firstExisting(body, albumHeaderPaths)
	if !header.Exists() {
		return nil
	}

	album := &ytAlbum{
		Title:        header.Get("title.runs.0.text").String(),
		Artist:       header.Get("straplineTextOne.runs.0.text").String(),
		ThumbnailURL: header.Get("thumbnail.musicThumbnailRenderer.thumbnail.thumbnails.0.url").String(),
	}
	if album.Artist == "" {
		// The older layout carries the artist inside the subtitle runs.
		header.Get("subtitle.runs").ForEach(func(_, run gjson.Result) bool {
			text := run.Get("text").String()
			if text != "Album" && text != " • " && !isYearText(text) {
				album.Artist = text
				return false
			}
			return true
		})
	}
	header.Get("subtitle.runs").ForEach(func(_, run gjson.Result) bool {
		if text := run.Get("text").String(); isYearText(text) {
			album.Year = text
		}
		return true
	})

	album.Entries = parseShelfEntries(firstExisting(body, shelfPaths))
	album.TrackCount = len(album.Entries)
	return album
}

// parsePlaylistBrowse extracts a generic playlist from a browse
// response. A response without a playlist shelf yields nil.
func parsePlaylistBrowse(body []byte) *ytPlaylist {
	shelf := firstExisting(body, playlistShelfPaths)
	if !shelf.Exists() {
		return nil
	}

	header := firstExisting(body, albumHeaderPaths)
	playlist := &ytPlaylist{
		Title:        header.Get("title.runs.0.text").String(),
		Owner:        header.Get("straplineTextOne.runs.0.text").String(),
		ThumbnailURL: header.Get("thumbnail.musicThumbnailRenderer.thumbnail.thumbnails.0.url").String(),
	}
	if playlist.Owner == "" {
		playlist.Owner = header.Get("subtitle.runs.2.text").String()
	}
	header.Get("secondSubtitle.runs").ForEach(func(_, run gjson.Result) bool {
		if text := run.Get("text").String(); isYearText(text) {
			playlist.UpdatedYear = text
		}
		return true
	})

	playlist.Entries = parseShelfEntries(shelf)
	playlist.TrackCount = len(playlist.Entries)
	return playlist
}

// parseShelfEntries walks a musicShelfRenderer/musicPlaylistShelfRenderer
// contents array.
func parseShelfEntries(contents gjson.Result) []ytEntry {
	var entries []ytEntry
	contents.ForEach(func(_, item gjson.Result) bool {
		renderer := item.Get("musicResponsiveListItemRenderer")
		if !renderer.Exists() {
			return true
		}

		entry := ytEntry{
			Title:   renderer.Get("flexColumns.0.musicResponsiveListItemFlexColumnRenderer.text.runs.0.text").String(),
			VideoID: renderer.Get("playlistItemData.videoId").String(),
		}
		if entry.VideoID == "" {
			entry.VideoID = renderer.Get("flexColumns.0.musicResponsiveListItemFlexColumnRenderer.text.runs.0.navigationEndpoint.watchEndpoint.videoId").String()
		}

		renderer.Get("flexColumns.1.musicResponsiveListItemFlexColumnRenderer.text.runs").ForEach(func(_, run gjson.Result) bool {
			if text := run.Get("text").String(); text != "" && text != " • " && text != " & " {
				entry.Artists = append(entry.Artists, text)
			}
			return true
		})

		entry.MusicVideoType = renderer.Get("flexColumns.0.musicResponsiveListItemFlexColumnRenderer.text.runs.0.navigationEndpoint.watchEndpoint.watchEndpointMusicSupportedConfigs.watchEndpointMusicConfig.musicVideoType").String()

		clock := renderer.Get("fixedColumns.0.musicResponsiveListItemFixedColumnRenderer.text.runs.0.text").String()
		entry.DurationMs = parseClockText(clock)

		entries = append(entries, entry)
		return true
	})
	return entries
}

// parseClockText converts a "H:MM:SS" or "M:SS" display string to
// milliseconds. Unknown forms yield 0.
func parseClockText(clock string) int64 {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total int64
	for _, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total * 1000
}

func isYearText(s string) bool {
	if len(s) != 4 {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
