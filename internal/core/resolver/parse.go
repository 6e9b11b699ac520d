package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"spots/internal/shared"
)

// Parse classifies an input string. Spotify links and URIs become catalog
// references, YouTube links become video or video playlist references and
// anything that is not a URL is a free-text search title.
func Parse(input string) (shared.ResourceReference, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return shared.ResourceReference{}, fmt.Errorf("empty input: %w", shared.ErrInvalidResource)
	}

	if strings.HasPrefix(raw, "spotify:") {
		return parseSpotifyURI(raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return shared.ResourceReference{Kind: shared.KindSearchTitle, ID: raw, Raw: raw}, nil
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch {
	case host == "open.spotify.com" || host == "play.spotify.com":
		return parseSpotifyURL(parsed, raw)
	case host == "youtu.be", host == "youtube.com", host == "m.youtube.com", host == "music.youtube.com":
		return parseYouTubeURL(parsed, host, raw)
	}
	return shared.ResourceReference{}, fmt.Errorf("unsupported link %s: %w", raw, shared.ErrInvalidResource)
}

// parseSpotifyURL accepts /track/<id>, /album/<id> and /playlist/<id>,
// optionally behind a locale segment such as /intl-de/
func parseSpotifyURL(parsed *url.URL, raw string) (shared.ResourceReference, error) {
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 || segments[1] == "" {
		return shared.ResourceReference{}, fmt.Errorf("spotify link without id %s: %w", raw, shared.ErrInvalidResource)
	}
	return spotifyReference(segments[0], segments[1], raw)
}

func parseSpotifyURI(raw string) (shared.ResourceReference, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[2] == "" {
		return shared.ResourceReference{}, fmt.Errorf("malformed spotify uri %s: %w", raw, shared.ErrInvalidResource)
	}
	return spotifyReference(parts[1], parts[2], raw)
}

func spotifyReference(resource, id, raw string) (shared.ResourceReference, error) {
	ref := shared.ResourceReference{ID: id, Raw: raw}
	switch resource {
	case "track":
		ref.Kind = shared.KindTrack
	case "album":
		ref.Kind = shared.KindAlbum
	case "playlist":
		ref.Kind = shared.KindPlaylist
	default:
		return shared.ResourceReference{}, fmt.Errorf("unsupported spotify resource %q: %w", resource, shared.ErrInvalidResource)
	}
	return ref, nil
}

// parseYouTubeURL keeps the URL itself as the id. A watch link that also
// carries a list parameter is still a single video.
func parseYouTubeURL(parsed *url.URL, host, raw string) (shared.ResourceReference, error) {
	path := strings.Trim(parsed.Path, "/")
	query := parsed.Query()

	switch {
	case path == "playlist" && query.Get("list") != "":
		return shared.ResourceReference{Kind: shared.KindVideoPlaylist, ID: raw, Raw: raw}, nil
	case host == "youtu.be" && path != "":
		return shared.ResourceReference{Kind: shared.KindVideo, ID: raw, Raw: raw}, nil
	case path == "watch" && query.Get("v") != "":
		return shared.ResourceReference{Kind: shared.KindVideo, ID: raw, Raw: raw}, nil
	case strings.HasPrefix(path, "shorts/") || strings.HasPrefix(path, "embed/") || strings.HasPrefix(path, "live/"):
		return shared.ResourceReference{Kind: shared.KindVideo, ID: raw, Raw: raw}, nil
	}
	return shared.ResourceReference{}, fmt.Errorf("unsupported youtube link %s: %w", raw, shared.ErrInvalidResource)
}
