package musicembed

import (
	"strings"
	"testing"

	"tunecard/pkg/fields"
)

const basicPlayerResponse = `{
  "videoDetails": {
    "title": "Mock Video Title",
    "author": "Mock Artist",
    "channelId": "UC123456789",
    "lengthSeconds": "180",
    "thumbnail": {
      "thumbnails": [
        {"url": "https://example.com/wide.jpg", "width": 320, "height": 180},
        {"url": "https://example.com/thumb.jpg", "width": 120, "height": 120}
      ]
    },
    "musicVideoType": "MUSIC_VIDEO_TYPE_ATV"
  },
  "microformat": {
    "microformatDataRenderer": {
      "pageOwnerDetails": {"name": "Mock Artist - Topic"},
      "description": "Video description",
      "uploadDate": "2024-01-01",
      "thumbnail": {"thumbnails": [{"url": "https://example.com/thumb_alt.jpg"}]}
    }
  }
}`

func TestParsePlayerResponse(t *testing.T) {
	video := parsePlayerResponse([]byte(basicPlayerResponse))
	if video == nil {
		t.Fatal("parsePlayerResponse() = nil")
	}
	if video.Title != "Mock Video Title" {
		t.Errorf("Title = %q", video.Title)
	}
	if video.Author != "Mock Artist" {
		t.Errorf("Author = %q", video.Author)
	}
	if video.DurationMs != 180000 {
		t.Errorf("DurationMs = %d, want 180000", video.DurationMs)
	}
	if video.SquareThumb != "https://example.com/thumb.jpg" {
		t.Errorf("SquareThumb = %q, want the square crop", video.SquareThumb)
	}
	if video.AltThumb != "https://example.com/thumb_alt.jpg" {
		t.Errorf("AltThumb = %q", video.AltThumb)
	}
	if video.OwnerName != "Mock Artist - Topic" {
		t.Errorf("OwnerName = %q", video.OwnerName)
	}

	if parsePlayerResponse([]byte(`{"playabilityStatus":{"status":"ERROR"}}`)) != nil {
		t.Error("response without videoDetails should yield nil")
	}
}

func TestIsYouTubeMusic(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"MUSIC_VIDEO_TYPE_ATV", true},
		{"MUSIC_VIDEO_TYPE_OMV", true},
		{"MUSIC_VIDEO_TYPE_UGC", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isYouTubeMusic(tt.code); got != tt.want {
			t.Errorf("isYouTubeMusic(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestResolveYouTubeArtist(t *testing.T) {
	tests := []struct {
		name   string
		owner  string
		author string
		want   string
	}{
		{"topic suffix stripped", "Mock Artist - Topic", "Mock Artist", "Mock Artist"},
		{"release topic ignored", "Release - Topic", "Mock Artist", "Mock Artist"},
		{"longer author preferred", "MA - Topic", "Mock Artist Full Name", "Mock Artist Full Name"},
		{"longer channel name preferred", "The Full Band Name", "Band", "The Full Band Name"},
		{"both empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveYouTubeArtist(tt.owner, tt.author); got != tt.want {
				t.Errorf("resolveYouTubeArtist(%q, %q) = %q, want %q", tt.owner, tt.author, got, tt.want)
			}
		})
	}
}

func TestBuildYouTubeTrackFields(t *testing.T) {
	t.Run("topic channel video", func(t *testing.T) {
		video := parsePlayerResponse([]byte(basicPlayerResponse))
		m := buildYouTubeTrackFields(video)

		if got, _ := m.Get(fields.KeyTitle); got != "Mock Video Title" {
			t.Errorf("title = %q", got)
		}
		if got, _ := m.Get("Artist"); got != "[Mock Artist](https://music.youtube.com/channel/UC123456789)" {
			t.Errorf("Artist = %q", got)
		}
		if got, _ := m.Get("Duration"); got != "`3:00`" {
			t.Errorf("Duration = %q", got)
		}
		if got := m.Platform(); got != fields.PlatformYouTubeMusic {
			t.Errorf("platform = %q, want %q", got, fields.PlatformYouTubeMusic)
		}
	})

	t.Run("plain video renders channel", func(t *testing.T) {
		video := parsePlayerResponse([]byte(basicPlayerResponse))
		video.MusicVideoType = "MUSIC_VIDEO_TYPE_UGC"
		m := buildYouTubeTrackFields(video)

		if got := m.Platform(); got != fields.PlatformYouTube {
			t.Errorf("platform = %q, want %q", got, fields.PlatformYouTube)
		}
		if got, _ := m.Get("Channel"); got != "[Mock Artist](https://www.youtube.com/channel/UC123456789)" {
			t.Errorf("Channel = %q", got)
		}
		if _, ok := m.Get("Artist"); ok {
			t.Error("Artist should not be set for a plain video")
		}
	})
}

func TestApplyTopicDescription(t *testing.T) {
	description := "Provided to YouTube by Distributor\n\n" +
		"Song Title · Main Artist · Second Artist · Third Artist\n\n" +
		"Album Name\n\n" +
		"Released on: 2024-01-01\n\n" +
		"Auto-generated by YouTube."

	m := fields.NewMap(fields.PlatformYouTubeMusic)
	m.Set(fields.KeyTitle, "Song Title")
	m.Set("Duration", "`3:00`")
	m.Set("Artist", "Main Artist")

	applyTopicDescription(m, description)

	if got, _ := m.Get("Other Artists"); got != "Second Artist, Third Artist" {
		t.Errorf("Other Artists = %q", got)
	}
	if got, _ := m.Get("Released"); got != "1 January 2024" {
		t.Errorf("Released = %q", got)
	}

	// Duration must trail Other Artists after the re-append.
	keys := m.Keys()
	otherIdx, durationIdx := -1, -1
	for i, k := range keys {
		switch k {
		case "Other Artists":
			otherIdx = i
		case "Duration":
			durationIdx = i
		}
	}
	if otherIdx < 0 || durationIdx < 0 || durationIdx < otherIdx {
		t.Errorf("key order = %v, want Duration after Other Artists", keys)
	}
}

func TestApplyTopicDescriptionNoMatch(t *testing.T) {
	m := fields.NewMap(fields.PlatformYouTube)
	m.Set("Duration", "`3:00`")
	applyTopicDescription(m, "just a regular video description")
	if _, ok := m.Get("Other Artists"); ok {
		t.Error("non-topic description should add nothing")
	}
	if _, ok := m.Get("Released"); ok {
		t.Error("non-topic description should not set Released")
	}
}

func TestParseYouTubeURL(t *testing.T) {
	tests := []struct {
		url          string
		wantVideo    string
		wantPlaylist string
	}{
		{"https://www.youtube.com/watch?v=123456789", "123456789", ""},
		{"https://youtu.be/abcdef12345", "abcdef12345", ""},
		{"https://www.youtube.com/shorts/xyz987pqr52", "xyz987pqr52", ""},
		{"https://music.youtube.com/watch?v=123456789", "123456789", ""},
		{"https://www.youtube.com/playlist?list=PL12345", "", "PL12345"},
		{"https://music.youtube.com/playlist?list=OLAK5uy_abc", "", "OLAK5uy_abc"},
		{"https://www.youtube.com/channel/UC123", "", ""},
		{"https://example.com/watch?v=123", "", ""},
	}
	for _, tt := range tests {
		video, playlist := parseYouTubeURL(tt.url)
		if video != tt.wantVideo || playlist != tt.wantPlaylist {
			t.Errorf("parseYouTubeURL(%q) = (%q, %q), want (%q, %q)",
				tt.url, video, playlist, tt.wantVideo, tt.wantPlaylist)
		}
	}
}

func TestParseClockText(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"3:00", 180000},
		{"1:01:01", 3661000},
		{"0:59", 59000},
		{"", 0},
		{"live", 0},
	}
	for _, tt := range tests {
		if got := parseClockText(tt.in); got != tt.want {
			t.Errorf("parseClockText(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

const albumBrowseResponse = `{
  "contents": {
    "twoColumnBrowseResultsRenderer": {
      "tabs": [{"tabRenderer": {"content": {"sectionListRenderer": {"contents": [{
        "musicResponsiveHeaderRenderer": {
          "title": {"runs": [{"text": "Mock Album"}]},
          "straplineTextOne": {"runs": [{"text": "Mock Artist"}]},
          "subtitle": {"runs": [{"text": "Album"}, {"text": " • "}, {"text": "2024"}]},
          "thumbnail": {"musicThumbnailRenderer": {"thumbnail": {"thumbnails": [{"url": "https://example.com/cover.jpg"}]}}}
        }
      }]}}}}],
      "secondaryContents": {"sectionListRenderer": {"contents": [{
        "musicShelfRenderer": {"contents": [
          {"musicResponsiveListItemRenderer": {
            "playlistItemData": {"videoId": "vid1"},
            "flexColumns": [{"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "First Song"}]}}}],
            "fixedColumns": [{"musicResponsiveListItemFixedColumnRenderer": {"text": {"runs": [{"text": "3:00"}]}}}]
          }},
          {"musicResponsiveListItemRenderer": {
            "playlistItemData": {"videoId": "vid2"},
            "flexColumns": [
              {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "Second Song"}]}}},
              {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "Guest Artist"}]}}}
            ],
            "fixedColumns": [{"musicResponsiveListItemFixedColumnRenderer": {"text": {"runs": [{"text": "2:30"}]}}}]
          }}
        ]}
      }]}}
    }
  }
}`

func TestParseAlbumBrowse(t *testing.T) {
	album := parseAlbumBrowse([]byte(albumBrowseResponse))
	if album == nil {
		t.Fatal("parseAlbumBrowse() = nil")
	}
	if album.Title != "Mock Album" || album.Artist != "Mock Artist" || album.Year != "2024" {
		t.Errorf("album = %+v", album)
	}
	if len(album.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(album.Entries))
	}
	if album.Entries[0].Title != "First Song" || album.Entries[0].VideoID != "vid1" {
		t.Errorf("entry 0 = %+v", album.Entries[0])
	}
	if album.Entries[0].DurationMs != 180000 {
		t.Errorf("entry 0 duration = %d", album.Entries[0].DurationMs)
	}
	if len(album.Entries[1].Artists) != 1 || album.Entries[1].Artists[0] != "Guest Artist" {
		t.Errorf("entry 1 artists = %v", album.Entries[1].Artists)
	}

	if parseAlbumBrowse([]byte(`{"contents":{}}`)) != nil {
		t.Error("response without album header should yield nil")
	}
}

func TestBuildYouTubeAlbumFields(t *testing.T) {
	album := parseAlbumBrowse([]byte(albumBrowseResponse))
	m := buildYouTubeAlbumFields(album)

	if got, _ := m.Get(fields.KeyTitle); got != "Mock Artist - Mock Album" {
		t.Errorf("title = %q", got)
	}
	if got := m.Platform(); got != fields.PlatformYouTubeMusic {
		t.Errorf("platform = %q", got)
	}
	if got, _ := m.Get(fields.KeyDescription); got != "2 track album" {
		t.Errorf("description = %q, want %q", got, "2 track album")
	}
	if got, _ := m.Get("Duration"); got != "`5:30`" {
		t.Errorf("Duration = %q", got)
	}
	if got, _ := m.Get("Released"); got != "2024" {
		t.Errorf("Released = %q", got)
	}
	tracks, _ := m.Get("Tracks")
	if !strings.Contains(tracks, "1. [First Song](https://music.youtube.com/watch?v=vid1) `3:00`") {
		t.Errorf("Tracks = %q", tracks)
	}
	if !strings.Contains(tracks, "[Guest Artist - Second Song]") {
		t.Errorf("Tracks missing guest artist prefix: %q", tracks)
	}
}

func TestBuildYouTubePlaylistFields(t *testing.T) {
	playlist := &ytPlaylist{
		Title:       "Mix",
		Owner:       "Curator",
		UpdatedYear: "2025",
		TrackCount:  2,
		Entries: []ytEntry{
			{Title: "Catalog Song", Artists: []string{"Artist A", "Artist B"}, VideoID: "vid1", DurationMs: 180000, MusicVideoType: "MUSIC_VIDEO_TYPE_ATV"},
			{Title: "Random Video", Artists: []string{"Some Channel"}, VideoID: "vid2", DurationMs: 120000},
		},
	}

	m := buildYouTubePlaylistFields(playlist)

	if got := m.Platform(); got != fields.PlatformYouTube {
		t.Errorf("platform = %q", got)
	}
	if got, _ := m.Get(fields.KeyDescription); got != "Playlist (2 videos)" {
		t.Errorf("description = %q, want %q", got, "Playlist (2 videos)")
	}
	videos, _ := m.Get("Videos")
	if !strings.Contains(videos, "[Artist A & Artist B - Catalog Song](https://music.youtube.com/watch?v=vid1)") {
		t.Errorf("Videos missing artist-prefixed music link: %q", videos)
	}
	if !strings.Contains(videos, "[Random Video](https://www.youtube.com/watch?v=vid2)") {
		t.Errorf("Videos missing generic link: %q", videos)
	}
	if got, _ := m.Get("Duration"); got != "`5:00`" {
		t.Errorf("Duration = %q", got)
	}
	if got, _ := m.Get("Created by"); got != "Curator" {
		t.Errorf("Created by = %q", got)
	}
	if got, _ := m.Get("Last updated"); got != "2025" {
		t.Errorf("Last updated = %q", got)
	}
	if _, ok := m.Get("Tracks"); ok {
		t.Error("playlists list Videos, not Tracks")
	}
}

func TestApplyUploadDate(t *testing.T) {
	t.Run("fallback labels the upload date", func(t *testing.T) {
		m := fields.NewMap(fields.PlatformYouTube)
		applyUploadDate(m, "2024-01-01T00:00:00-07:00")

		if got, _ := m.Get("Uploaded on"); got != "1 January 2024" {
			t.Errorf("Uploaded on = %q, want %q", got, "1 January 2024")
		}
		if _, ok := m.Get("Released"); ok {
			t.Error("upload date must not masquerade as a release date")
		}
	})

	t.Run("release date wins", func(t *testing.T) {
		m := fields.NewMap(fields.PlatformYouTubeMusic)
		m.Set("Released", "1 January 2024")
		applyUploadDate(m, "2024-02-02")

		if _, ok := m.Get("Uploaded on"); ok {
			t.Error("Uploaded on should be skipped when Released is set")
		}
	})
}

func TestEntryArtistLabel(t *testing.T) {
	tests := []struct {
		name        string
		artists     []string
		albumArtist string
		want        string
	}{
		{"album artist filtered", []string{"Mock Artist"}, "Mock Artist", ""},
		{"single guest", []string{"Guest"}, "Mock Artist", "Guest"},
		{"two guests joined with ampersand", []string{"Guest A", "Guest B"}, "Mock Artist", "Guest A & Guest B"},
		{"three guests", []string{"A", "B", "C"}, "Mock Artist", "A, B & C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryArtistLabel(tt.artists, tt.albumArtist); got != tt.want {
				t.Errorf("entryArtistLabel(%v, %q) = %q, want %q", tt.artists, tt.albumArtist, got, tt.want)
			}
		})
	}
}
