package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/zmb3/spotify/v2"

	"spots/internal/shared"
)

const trackJSON = `{
	"id": "3pXwsW7Yx0hzNhrxjyvTVS",
	"name": "Back in Blood (feat. Lil Durk)",
	"track_number": 3,
	"artists": [{"name": "Pooh Shiesty"}, {"name": "Lil Durk"}],
	"external_urls": {"spotify": "https://open.spotify.com/track/3pXwsW7Yx0hzNhrxjyvTVS"},
	"external_ids": {"isrc": "USAT22007048"},
	"album": {
		"id": "album1",
		"name": "Shiesty Season",
		"release_date": "2021-02-05",
		"images": [{"url": "https://i.scdn.co/image/large", "height": 640, "width": 640}]
	}
}`

const albumJSON = `{
	"id": "album1",
	"name": "Shiesty Season",
	"genres": ["trap"],
	"tracks": {"items": [{"id": "t1"}, {"id": "t2"}], "total": 17, "limit": 50, "offset": 0}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *SpotifyClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithHTTPClient(server.Client(), spotify.WithBaseURL(server.URL+"/"))
}

func TestTrack(t *testing.T) {
	albumCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/tracks/"):
			w.Write([]byte(trackJSON))
		case r.URL.Path == "/albums/album1":
			albumCalls++
			w.Write([]byte(albumJSON))
		default:
			http.NotFound(w, r)
		}
	})

	for i := 0; i < 2; i++ {
		track, err := client.Track(context.Background(), "3pXwsW7Yx0hzNhrxjyvTVS")
		if err != nil {
			t.Fatalf("Track() error = %v", err)
		}

		if track.Title != "Back in Blood (feat. Lil Durk)" {
			t.Errorf("Title = %q", track.Title)
		}
		if !reflect.DeepEqual(track.Artists, []string{"Pooh Shiesty", "Lil Durk"}) {
			t.Errorf("Artists = %v", track.Artists)
		}
		if track.TrackPosition != 3 || track.TotalTracks != 17 {
			t.Errorf("position = %d/%d, want 3/17", track.TrackPosition, track.TotalTracks)
		}
		if track.CoverURL != "https://i.scdn.co/image/large" {
			t.Errorf("CoverURL = %q", track.CoverURL)
		}
		if track.Link != "https://open.spotify.com/track/3pXwsW7Yx0hzNhrxjyvTVS" {
			t.Errorf("Link = %q", track.Link)
		}
		if track.ISRC != "USAT22007048" {
			t.Errorf("ISRC = %q", track.ISRC)
		}
		if !reflect.DeepEqual(track.Genres, []string{"trap"}) {
			t.Errorf("Genres = %v", track.Genres)
		}
	}

	if albumCalls != 1 {
		t.Errorf("album fetched %d times, want 1", albumCalls)
	}
}

func TestTrackNotFoundIsInvalidResource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"status": 400, "message": "invalid id"}}`))
	})

	_, err := client.Track(context.Background(), "nope")
	if !errors.Is(err, shared.ErrInvalidResource) {
		t.Errorf("Track() error = %v, want ErrInvalidResource", err)
	}
}

func TestTrackMissingIsMetadataNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"status": 404, "message": "Not found."}}`))
	})

	_, err := client.Track(context.Background(), "0000000000000000000000")
	if !errors.Is(err, shared.ErrMetadataNotFound) {
		t.Errorf("Track() error = %v, want ErrMetadataNotFound", err)
	}
	if errors.Is(err, shared.ErrInvalidResource) {
		t.Errorf("Track() error = %v, should not be ErrInvalidResource", err)
	}
}

func TestSearchNoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tracks": {"items": [], "total": 0}}`))
	})

	_, err := client.Search(context.Background(), "nothing matches this")
	if !errors.Is(err, shared.ErrMetadataNotFound) {
		t.Errorf("Search() error = %v, want ErrMetadataNotFound", err)
	}
}

func TestAlbumCollectsTrackIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(albumJSON))
	})

	album, err := client.Album(context.Background(), "album1")
	if err != nil {
		t.Fatalf("Album() error = %v", err)
	}
	if album.Name != "Shiesty Season" {
		t.Errorf("Name = %q", album.Name)
	}
	if !reflect.DeepEqual(album.TrackIDs, []string{"t1", "t2"}) {
		t.Errorf("TrackIDs = %v", album.TrackIDs)
	}
}

func TestUnauthenticatedClient(t *testing.T) {
	client := NewSpotifyClient("", "")
	if _, err := client.Track(context.Background(), "x"); err == nil {
		t.Error("expected error from unauthenticated client")
	}
	if err := client.Authenticate(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
		t.Errorf("Authenticate() error = %v, want ErrMissingCredentials", err)
	}
}
