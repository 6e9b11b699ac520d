package navidrome

import (
	"net/http"
	"time"

	subsonic "github.com/delucks/go-subsonic"
)

const (
	apiVersion = "1.16.1"
	clientName = "spots"
)

// library is the part of the Subsonic API used to look songs and
// playlists up
type library interface {
	Search2(query string, parameters map[string]string) (*subsonic.SearchResult2, error)
	GetPlaylists(parameters map[string]string) ([]*subsonic.Playlist, error)
	GetPlaylist(id string) (*subsonic.Playlist, error)
}

// NavidromeClient mirrors downloaded collections into Navidrome playlists
type NavidromeClient struct {
	URL        string
	Username   string
	Password   string
	HTTPClient *http.Client
	Debug      bool

	library library
	salt    string
	token   string
}

// NewNavidromeClient creates a new navidrome client
func NewNavidromeClient(url, username, password string) *NavidromeClient {
	return &NavidromeClient{
		URL:        url,
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}
