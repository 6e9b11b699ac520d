package spotify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"spots/internal/shared"
)

const trackURLPrefix = "https://open.spotify.com/track/"

// SpotifyClient is the primary track catalog. It authenticates once with the
// client-credentials flow and is shared for the whole process.
type SpotifyClient struct {
	client  *spotify.Client
	ID      string
	Secret  string
	Timeout time.Duration
	Debug   bool

	albumMu    sync.Mutex
	albumCache map[spotify.ID]*albumInfo
}

// albumInfo holds the album fields a track record needs but a track
// response does not carry.
type albumInfo struct {
	totalTracks int
	genres      []string
}

// NewSpotifyClient creates a new spotify client
func NewSpotifyClient(id, secret string) *SpotifyClient {
	return &SpotifyClient{
		ID:         id,
		Secret:     secret,
		Timeout:    30 * time.Second,
		albumCache: make(map[spotify.ID]*albumInfo),
	}
}

// Authenticate fetches a token and builds the API client. It fails when the
// credentials are missing or rejected.
func (s *SpotifyClient) Authenticate(ctx context.Context) error {
	if s.ID == "" || s.Secret == "" {
		return shared.ErrMissingCredentials
	}

	config := &clientcredentials.Config{
		ClientID:     s.ID,
		ClientSecret: s.Secret,
		TokenURL:     spotifyauth.TokenURL,
	}
	if _, err := config.Token(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	// the config client refreshes the token on expiry
	httpClient := config.Client(context.Background())
	httpClient.Timeout = s.Timeout
	s.client = spotify.New(httpClient, spotify.WithRetry(true))
	return nil
}

// NewWithHTTPClient wraps an already authenticated HTTP client
func NewWithHTTPClient(httpClient *http.Client, opts ...spotify.ClientOption) *SpotifyClient {
	s := NewSpotifyClient("", "")
	s.client = spotify.New(httpClient, opts...)
	return s
}

func (s *SpotifyClient) ready() error {
	if s.client == nil {
		return fmt.Errorf("spotify client not authenticated")
	}
	return nil
}

// Track fetches a track by id
func (s *SpotifyClient) Track(ctx context.Context, id string) (*shared.CatalogTrack, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	shared.DebugPrint(s.Debug, "Fetching Spotify track: %s", id)

	track, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, classify(err, "track "+id)
	}
	return s.toCatalogTrack(ctx, track), nil
}

// Album fetches an album's name and all of its track ids
func (s *SpotifyClient) Album(ctx context.Context, id string) (*shared.CatalogCollection, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	album, err := s.client.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, classify(err, "album "+id)
	}
	log.Printf("Spotify Album Name: %s", album.Name)

	s.cacheAlbum(album)

	collection := &shared.CatalogCollection{ID: id, Name: album.Name}
	for {
		for _, track := range album.Tracks.Tracks {
			collection.TrackIDs = append(collection.TrackIDs, string(track.ID))
		}
		err := s.client.NextPage(ctx, &album.Tracks)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, classify(err, "album "+id+" tracks")
		}
	}
	return collection, nil
}

// Playlist fetches a playlist's name and all of its track ids. Local files
// and episodes have no catalog id and are left out.
func (s *SpotifyClient) Playlist(ctx context.Context, id string) (*shared.CatalogCollection, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	playlist, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, classify(err, "playlist "+id)
	}
	log.Printf("Spotify Playlist Name: %s", playlist.Name)

	collection := &shared.CatalogCollection{ID: id, Name: playlist.Name}
	for {
		for _, item := range playlist.Tracks.Tracks {
			if item.Track.ID == "" {
				continue
			}
			collection.TrackIDs = append(collection.TrackIDs, string(item.Track.ID))
		}
		err := s.client.NextPage(ctx, &playlist.Tracks)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, classify(err, "playlist "+id+" tracks")
		}
	}
	return collection, nil
}

// Search returns the top track hit for title
func (s *SpotifyClient) Search(ctx context.Context, title string) (*shared.CatalogTrack, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	result, err := s.client.Search(ctx, title, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		if shared.IsTimeout(err) {
			return nil, fmt.Errorf("spotify search %q: %w: %v", title, shared.ErrNetworkTimeout, err)
		}
		return nil, fmt.Errorf("spotify search %q: %w", title, err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, fmt.Errorf("spotify search %q: %w", title, shared.ErrMetadataNotFound)
	}

	return s.toCatalogTrack(ctx, &result.Tracks.Tracks[0]), nil
}

func (s *SpotifyClient) toCatalogTrack(ctx context.Context, track *spotify.FullTrack) *shared.CatalogTrack {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	var cover string
	if len(track.Album.Images) > 0 {
		cover = track.Album.Images[0].URL
	}

	link := track.ExternalURLs["spotify"]
	if link == "" {
		link = trackURLPrefix + string(track.ID)
	}

	catalogTrack := &shared.CatalogTrack{
		ID:            string(track.ID),
		Title:         track.Name,
		Artists:       artists,
		Album:         track.Album.Name,
		TrackPosition: int(track.TrackNumber),
		CoverURL:      cover,
		ReleaseDate:   track.Album.ReleaseDate,
		Link:          link,
		ISRC:          track.ExternalIDs["isrc"],
	}

	if info := s.albumInfo(ctx, track.Album.ID); info != nil {
		catalogTrack.TotalTracks = info.totalTracks
		catalogTrack.Genres = info.genres
	}
	return catalogTrack
}

// albumInfo returns total track count and genres for an album, fetching it
// once per process. Failures only cost the "/total" part of the track number.
func (s *SpotifyClient) albumInfo(ctx context.Context, id spotify.ID) *albumInfo {
	if id == "" {
		return nil
	}

	s.albumMu.Lock()
	info, ok := s.albumCache[id]
	s.albumMu.Unlock()
	if ok {
		return info
	}

	album, err := s.client.GetAlbum(ctx, id)
	if err != nil {
		shared.DebugPrint(s.Debug, "Could not fetch album %s: %v", id, err)
		return nil
	}
	return s.cacheAlbum(album)
}

func (s *SpotifyClient) cacheAlbum(album *spotify.FullAlbum) *albumInfo {
	info := &albumInfo{
		totalTracks: int(album.Tracks.Total),
		genres:      album.Genres,
	}
	s.albumMu.Lock()
	s.albumCache[album.ID] = info
	s.albumMu.Unlock()
	return info
}

// classify maps catalog errors onto the shared taxonomy. A 404 means the
// resource is well formed but the catalog has nothing for it.
func classify(err error, what string) error {
	if shared.IsTimeout(err) {
		return fmt.Errorf("spotify %s: %w: %v", what, shared.ErrNetworkTimeout, err)
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("spotify %s: %w: %v", what, shared.ErrMetadataNotFound, err)
	}
	return fmt.Errorf("spotify %s: %w: %v", what, shared.ErrInvalidResource, err)
}
