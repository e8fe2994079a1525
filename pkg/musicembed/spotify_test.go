package musicembed

import (
	"context"
	"strings"
	"testing"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"tunecard/pkg/fields"
)

func TestSpotifyExtractFailsWithoutCredentials(t *testing.T) {
	e := NewSpotifyExtractor("", "", zap.NewNop())

	m, err := e.Extract(context.Background(), "https://open.spotify.com/track/1QeliItLbS0fvWbJA2dxMX")
	if err == nil {
		t.Fatal("Extract() error = nil, want auth error")
	}
	if m != nil {
		t.Errorf("Extract() map = %v, want nil on failure", m)
	}
}

func TestBuildSpotifyTrackFields(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			Name: "Test Song",
			Artists: []spotify.SimpleArtist{{
				Name:         "Test Artist",
				ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/artist/123"},
			}},
			Duration:     210000,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/789"},
		},
		Album: spotify.SimpleAlbum{
			Name:                 "Test Album",
			Images:               []spotify.Image{{URL: "https://example.com/album-art.jpg"}},
			ReleaseDate:          "2023-01-15",
			ReleaseDatePrecision: "day",
			ExternalURLs:         map[string]string{"spotify": "https://open.spotify.com/album/456"},
		},
	}

	m := buildSpotifyTrackFields(track, 10)

	want := map[string]string{
		fields.KeyTitle:        "Test Artist - Test Song",
		"Duration":             "`3:30`",
		"Released":             "15 January 2023",
		"Artist":               "[Test Artist](https://open.spotify.com/artist/123)",
		"Album":                "[Test Album](https://open.spotify.com/album/456)",
		fields.KeyThumbnailURL: "https://example.com/album-art.jpg",
	}
	for key, wantVal := range want {
		got, ok := m.Get(key)
		if !ok {
			t.Errorf("missing field %q", key)
			continue
		}
		if got != wantVal {
			t.Errorf("field %q = %q, want %q", key, got, wantVal)
		}
	}
}

func TestBuildSpotifyTrackFieldsMultipleArtists(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			Name: "Collaboration Song",
			Artists: []spotify.SimpleArtist{
				{Name: "Artist One", ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/artist/1"}},
				{Name: "Artist Two", ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/artist/2"}},
			},
			Duration: 180000,
		},
		Album: spotify.SimpleAlbum{
			Name:                 "Collab Album",
			ReleaseDate:          "2023-06",
			ReleaseDatePrecision: "month",
		},
	}

	m := buildSpotifyTrackFields(track, 5)

	if got, _ := m.Get(fields.KeyTitle); got != "Artist One, Artist Two - Collaboration Song" {
		t.Errorf("title = %q", got)
	}
	if got, _ := m.Get("Artists"); got != "[Artist One](https://open.spotify.com/artist/1), [Artist Two](https://open.spotify.com/artist/2)" {
		t.Errorf("Artists = %q", got)
	}
	if got, _ := m.Get("Released"); got != "June 2023" {
		t.Errorf("Released = %q, want %q", got, "June 2023")
	}
}

func TestBuildSpotifyTrackFieldsSingleTrackAlbum(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			Name:     "Single Track",
			Artists:  []spotify.SimpleArtist{{Name: "Solo Artist"}},
			Duration: 240000,
		},
		Album: spotify.SimpleAlbum{
			Name:                 "Single Release",
			ReleaseDate:          "2023",
			ReleaseDatePrecision: "year",
		},
	}

	m := buildSpotifyTrackFields(track, 1)

	if v, ok := m.Get("Album"); ok {
		t.Errorf("Album = %q, want omitted for single-track album", v)
	}
	if got, _ := m.Get("Released"); got != "2023" {
		t.Errorf("Released = %q, want %q", got, "2023")
	}
	if got, _ := m.Get("Duration"); got != "`4:00`" {
		t.Errorf("Duration = %q, want %q", got, "`4:00`")
	}
}

func TestBuildSpotifyAlbumFields(t *testing.T) {
	album := &spotify.FullAlbum{
		SimpleAlbum: spotify.SimpleAlbum{
			Name: "Test Album",
			Artists: []spotify.SimpleArtist{{
				Name:         "Test Artist",
				ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/artist/test"},
			}},
			Images:               []spotify.Image{{URL: "https://example.com/album-cover.jpg"}},
			ReleaseDate:          "2023-03-15",
			ReleaseDatePrecision: "day",
		},
	}
	album.Tracks.Total = 3
	album.Tracks.Tracks = []spotify.SimpleTrack{
		{
			Name:         "Track One",
			Artists:      []spotify.SimpleArtist{{Name: "Test Artist"}},
			Duration:     180000,
			TrackNumber:  1,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/1"},
		},
		{
			Name:         "Track Two",
			Artists:      []spotify.SimpleArtist{{Name: "Test Artist"}},
			Duration:     200000,
			TrackNumber:  2,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/2"},
		},
	}

	m := buildSpotifyAlbumFields(album, "Test Records")

	want := map[string]string{
		fields.KeyTitle:        "Test Artist - Test Album",
		fields.KeyDescription:  "3 track album",
		"Duration":             "`6:20`",
		"Released":             "15 March 2023",
		"Artist":               "[Test Artist](https://open.spotify.com/artist/test)",
		"Label":                "Test Records",
		fields.KeyThumbnailURL: "https://example.com/album-cover.jpg",
	}
	for key, wantVal := range want {
		got, ok := m.Get(key)
		if !ok {
			t.Errorf("missing field %q", key)
			continue
		}
		if got != wantVal {
			t.Errorf("field %q = %q, want %q", key, got, wantVal)
		}
	}

	tracks, _ := m.Get("Tracks")
	if !strings.Contains(tracks, "1. [Track One](https://open.spotify.com/track/1) `3:00`") {
		t.Errorf("Tracks = %q", tracks)
	}
}

func TestBuildSpotifyAlbumFieldsVariousArtists(t *testing.T) {
	album := &spotify.FullAlbum{
		SimpleAlbum: spotify.SimpleAlbum{
			Name: "Compilation Album",
			Artists: []spotify.SimpleArtist{{
				Name:         "Various Artists",
				ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/artist/various"},
			}},
			ReleaseDate:          "2023-12-01",
			ReleaseDatePrecision: "day",
		},
	}
	album.Tracks.Total = 2
	album.Tracks.Tracks = []spotify.SimpleTrack{
		{
			Name:         "Song A",
			Artists:      []spotify.SimpleArtist{{Name: "Artist A"}},
			Duration:     150000,
			TrackNumber:  1,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/a"},
		},
		{
			Name:         "Song B",
			Artists:      []spotify.SimpleArtist{{Name: "Artist B"}},
			Duration:     170000,
			TrackNumber:  2,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/b"},
		},
	}

	m := buildSpotifyAlbumFields(album, "")

	if got, _ := m.Get("Artists"); got != "Various Artists" {
		t.Errorf("Artists = %q, want %q", got, "Various Artists")
	}
	if got, _ := m.Get(fields.KeyTitle); got != "Compilation Album" {
		t.Errorf("title = %q, want bare album name", got)
	}
	tracks, _ := m.Get("Tracks")
	if !strings.Contains(tracks, "[Artist A - Song A]") || !strings.Contains(tracks, "[Artist B - Song B]") {
		t.Errorf("Tracks missing per-track artists: %q", tracks)
	}
	if v, ok := m.Get("Label"); ok {
		t.Errorf("Label = %q, want omitted when unknown", v)
	}
}

func TestBuildSpotifyPlaylistFields(t *testing.T) {
	playlist := &spotify.FullPlaylist{
		SimplePlaylist: spotify.SimplePlaylist{
			Name: "My Playlist",
			Owner: spotify.User{
				DisplayName:  "Test User",
				ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/user/testuser"},
			},
			Images:      []spotify.Image{{URL: "https://example.com/playlist.jpg"}},
			Description: "A test playlist",
		},
		Followers: spotify.Followers{Count: 150},
	}
	playlist.Tracks.Total = 2
	playlist.Tracks.Tracks = []spotify.PlaylistTrack{
		{Track: spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
			Name:         "Playlist Song 1",
			Artists:      []spotify.SimpleArtist{{Name: "Playlist Artist 1"}},
			Duration:     200000,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/p1"},
		}}},
		{Track: spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
			Name:         "Playlist Song 2",
			Artists:      []spotify.SimpleArtist{{Name: "Playlist Artist 2"}},
			Duration:     180000,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/p2"},
		}}},
	}

	m := buildSpotifyPlaylistFields(playlist, 380000)

	want := map[string]string{
		fields.KeyTitle:        "My Playlist",
		fields.KeyDescription:  "Playlist (2 songs)",
		"Duration":             "`6:20`",
		"Created by":           "[Test User](https://open.spotify.com/user/testuser)",
		"Saves":                "`150`",
		"Description":          "A test playlist",
		fields.KeyThumbnailURL: "https://example.com/playlist.jpg",
	}
	for key, wantVal := range want {
		got, ok := m.Get(key)
		if !ok {
			t.Errorf("missing field %q", key)
			continue
		}
		if got != wantVal {
			t.Errorf("field %q = %q, want %q", key, got, wantVal)
		}
	}

	tracks, _ := m.Get("Tracks")
	if !strings.Contains(tracks, "1. [Playlist Artist 1 - Playlist Song 1]") {
		t.Errorf("Tracks = %q", tracks)
	}
}

func TestReformatRemixTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Original Song - Remixer Remix", "Original Song (Remixer Remix)"},
		{"Song - Club Mix", "Song (Club Mix)"},
		{"Song - Radio Edit", "Song (Radio Edit)"},
		{"Song - Acoustic", "Song - Acoustic"},
		{"Plain Song", "Plain Song"},
	}
	for _, tt := range tests {
		if got := reformatRemixTitle(tt.in); got != tt.want {
			t.Errorf("reformatRemixTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSpotifyURL(t *testing.T) {
	tests := []struct {
		url       string
		wantShape string
		wantID    string
		wantErr   bool
	}{
		{"https://open.spotify.com/track/1QeliItLbS0fvWbJA2dxMX", "track", "1QeliItLbS0fvWbJA2dxMX", false},
		{"https://open.spotify.com/intl-de/track/1QeliItLbS0fvWbJA2dxMX", "track", "1QeliItLbS0fvWbJA2dxMX", false},
		{"https://open.spotify.com/album/456abc", "album", "456abc", false},
		{"https://open.spotify.com/playlist/xyz789", "playlist", "xyz789", false},
		{"https://open.spotify.com/artist/nope", "", "", true},
	}
	for _, tt := range tests {
		shape, id, err := parseSpotifyURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSpotifyURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if shape != tt.wantShape || id != tt.wantID {
			t.Errorf("parseSpotifyURL(%q) = (%q, %q), want (%q, %q)", tt.url, shape, id, tt.wantShape, tt.wantID)
		}
	}
}

func TestSpotifyFieldsFromPreview(t *testing.T) {
	e := &SpotifyExtractor{}

	t.Run("track preview", func(t *testing.T) {
		m := e.FieldsFromPreview("Some Artist · Song Name · Song · 2023")
		if got, _ := m.Get("Artist"); got != "Some Artist" {
			t.Errorf("Artist = %q", got)
		}
		if got, _ := m.Get(fields.KeyTitle); got != "Song Name" {
			t.Errorf("title = %q", got)
		}
	})

	t.Run("multi artist moves to Artists", func(t *testing.T) {
		m := e.FieldsFromPreview("Artist One, Artist Two · Single · 2023")
		if _, ok := m.Get("Artist"); ok {
			t.Error("Artist should be replaced by Artists")
		}
		if got, _ := m.Get("Artists"); got != "Artist One, Artist Two" {
			t.Errorf("Artists = %q", got)
		}
	})

	t.Run("playlist preview reorders", func(t *testing.T) {
		m := e.FieldsFromPreview("Playlist · Some Curator · 50 items · 10 saves")
		if got, _ := m.Get("Artist"); got != "Some Curator" {
			t.Errorf("Artist = %q", got)
		}
		if got, _ := m.Get("Type"); got != "Playlist - 50 items" {
			t.Errorf("Type = %q", got)
		}
	})
}
