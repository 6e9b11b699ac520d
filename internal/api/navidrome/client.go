package navidrome

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	subsonic "github.com/delucks/go-subsonic"

	"spots/internal/shared"
)

// Authenticate logs in and prepares token credentials for the raw playlist
// endpoints
func (n *NavidromeClient) Authenticate() error {
	client := &subsonic.Client{
		Client:     n.HTTPClient,
		BaseUrl:    n.URL,
		User:       n.Username,
		ClientName: clientName,
	}
	if err := client.Authenticate(n.Password); err != nil {
		return fmt.Errorf("navidrome authentication failed: %w", err)
	}

	salt, err := newSalt()
	if err != nil {
		return err
	}
	n.library = client
	n.salt = salt
	n.token = getSaltedPassword(n.Password, salt)
	return nil
}

// MirrorPlaylist makes sure a playlist called name exists and holds every
// track that the server's library can find. Tracks already in the playlist
// are not added twice.
func (n *NavidromeClient) MirrorPlaylist(name string, tracks []shared.TrackMetadata) error {
	if n.library == nil {
		if err := n.Authenticate(); err != nil {
			return err
		}
	}

	var songIDs []string
	for _, track := range tracks {
		song, err := n.SearchTrack(track.Title, track.PrimaryArtist())
		if err != nil {
			return err
		}
		if song == nil {
			shared.DebugPrint(n.Debug, "Navidrome has no song for %s - %s", track.PrimaryArtist(), track.Title)
			continue
		}
		songIDs = append(songIDs, song.ID)
	}
	if len(songIDs) == 0 {
		return fmt.Errorf("none of the %d tracks of %q are in the library yet", len(tracks), name)
	}

	playlist, err := n.SearchPlaylist(name)
	if err != nil {
		return err
	}
	if playlist == nil {
		log.Printf("Creating Navidrome playlist %q with %d songs", name, len(songIDs))
		return n.call("createPlaylist", url.Values{"name": {name}, "songId": songIDs})
	}

	full, err := n.library.GetPlaylist(playlist.ID)
	if err != nil {
		return fmt.Errorf("failed to read navidrome playlist %q: %w", name, err)
	}
	existing := make(map[string]bool, len(full.Entry))
	for _, entry := range full.Entry {
		existing[entry.ID] = true
	}
	params := url.Values{"playlistId": {playlist.ID}}
	for _, id := range songIDs {
		if !existing[id] {
			params.Add("songIdToAdd", id)
		}
	}
	if len(params["songIdToAdd"]) == 0 {
		return nil
	}
	log.Printf("Adding %d songs to Navidrome playlist %q", len(params["songIdToAdd"]), name)
	return n.call("updatePlaylist", params)
}

// SearchTrack returns the library song matching title and artist. An exact
// title and artist match wins, then the first title match. nil means none.
func (n *NavidromeClient) SearchTrack(title, artist string) (*subsonic.Child, error) {
	query := strings.TrimSpace(title + " " + artist)
	result, err := n.library.Search2(query, map[string]string{"songCount": "10"})
	if err != nil {
		return nil, fmt.Errorf("navidrome search %q: %w", query, err)
	}
	if result == nil {
		return nil, nil
	}

	var titleMatch *subsonic.Child
	for _, song := range result.Song {
		if !strings.EqualFold(song.Title, title) {
			continue
		}
		if strings.EqualFold(song.Artist, artist) {
			return song, nil
		}
		if titleMatch == nil {
			titleMatch = song
		}
	}
	return titleMatch, nil
}

// SearchPlaylist returns the playlist named name, or nil
func (n *NavidromeClient) SearchPlaylist(name string) (*subsonic.Playlist, error) {
	playlists, err := n.library.GetPlaylists(map[string]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to list navidrome playlists: %w", err)
	}
	for _, playlist := range playlists {
		if playlist.Name == name {
			return playlist, nil
		}
	}
	return nil, nil
}

// call performs a raw Subsonic request. go-subsonic does not take repeated
// song id parameters, which both playlist endpoints need.
func (n *NavidromeClient) call(endpoint string, params url.Values) error {
	params.Set("u", n.Username)
	params.Set("t", n.token)
	params.Set("s", n.salt)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")

	reqURL := fmt.Sprintf("%s/rest/%s.view?%s", strings.TrimRight(n.URL, "/"), endpoint, params.Encode())
	shared.DebugPrint(n.Debug, "Calling Navidrome %s", endpoint)

	resp, err := n.HTTPClient.Get(reqURL)
	if err != nil {
		return fmt.Errorf("navidrome %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: shared.TruncateString(string(body), 200)}
	}

	var subsonicResponse struct {
		SubsonicResponse struct {
			Status string `json:"status"`
			Error  struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		} `json:"subsonic-response"`
	}
	if err := json.Unmarshal(body, &subsonicResponse); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if subsonicResponse.SubsonicResponse.Status != "ok" {
		return fmt.Errorf("navidrome %s failed: %s (code %d)", endpoint,
			subsonicResponse.SubsonicResponse.Error.Message, subsonicResponse.SubsonicResponse.Error.Code)
	}
	return nil
}

func newSalt() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// getSaltedPassword returns the Subsonic token for password and salt
func getSaltedPassword(password string, salt string) string {
	hasher := md5.New()
	hasher.Write([]byte(password + salt))
	return hex.EncodeToString(hasher.Sum(nil))
}
