package catalog

import (
	"time"

	"github.com/avrille/cadenza/internal/queue"
)

// Track is a catalog track as returned by the API.
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMS int64  `json:"duration_ms"`
}

// Ref converts the API track into an immutable queue track reference.
func (t Track) Ref() queue.Track {
	return queue.Track{
		ID:       t.ID,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
	}
}

// Playlist is a catalog playlist summary.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

type searchResponse struct {
	Tracks []Track `json:"tracks"`
}

type playlistsResponse struct {
	Playlists []Playlist `json:"playlists"`
}

type playlistTracksResponse struct {
	Tracks []Track `json:"tracks"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
