package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"spots/internal/shared"
)

const (
	defaultBaseURL      = "https://api.deezer.com/"
	defaultTimeout      = 20 * time.Second
	defaultRateLimit    = 200 * time.Millisecond // 50 requests / 5 seconds
	defaultBurstLimit   = 5
	defaultMaxRetries   = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second

	// quotaExceededCode is returned inside a 200 response when rate limited
	quotaExceededCode = 4
	// dataNotFoundCode is returned for unknown ids
	dataNotFoundCode = 800
)

// Config holds configuration for the Deezer API client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	RateLimit    time.Duration
	BurstLimit   int
	Debug        bool
}

// DefaultConfig returns sensible defaults for the Deezer API client
func DefaultConfig() Config {
	return Config{
		BaseURL:      defaultBaseURL,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		RateLimit:    defaultRateLimit,
		BurstLimit:   defaultBurstLimit,
	}
}

// Client is the supplementary catalog. It needs no authentication.
type Client struct {
	httpClient  *http.Client
	config      Config
	rateLimiter *rate.Limiter
}

// NewClient creates a Deezer client with default configuration
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a Deezer client with custom configuration
func NewClientWithConfig(config Config) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: config.Timeout},
		config:      config,
		rateLimiter: rate.NewLimiter(rate.Every(config.RateLimit), config.BurstLimit),
	}
}

// apiError is the error object Deezer embeds in otherwise successful responses
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type albumRef struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Cover   string `json:"cover"`
	CoverXL string `json:"cover_xl"`
}

// Track is a Deezer track as returned by /search and /track/{id}
type Track struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	TrackPosition int       `json:"track_position"`
	ReleaseDate   string    `json:"release_date"`
	ISRC          string    `json:"isrc"`
	Artist        artist    `json:"artist"`
	Album         albumRef  `json:"album"`
	Error         *apiError `json:"error"`
}

// Album is a Deezer album as returned by /album/{id}
type Album struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	CoverXL     string `json:"cover_xl"`
	NbTracks    int    `json:"nb_tracks"`
	ReleaseDate string `json:"release_date"`
	Genres      struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	} `json:"genres"`
	Error *apiError `json:"error"`
}

type searchResponse struct {
	Data  []Track   `json:"data"`
	Total int       `json:"total"`
	Error *apiError `json:"error"`
}

// get makes a single GET request to the Deezer API
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, &shared.HTTPError{
				StatusCode: http.StatusGatewayTimeout,
				Status:     "Gateway Timeout",
				Message:    err.Error(),
			}
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &shared.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    shared.TruncateString(string(body), 200),
		}
	}

	// quota errors arrive with a 200 status
	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Code == quotaExceededCode {
		return nil, &shared.HTTPError{
			StatusCode: http.StatusTooManyRequests,
			Status:     "Too Many Requests",
			Message:    envelope.Error.Message,
		}
	}

	return body, nil
}

// getWithRetry makes a GET request with retry logic
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var result []byte
	err := shared.RetryWithBackoffForHTTPWithDebug(
		c.config.MaxRetries,
		c.config.InitialDelay,
		c.config.MaxDelay,
		func() error {
			var err error
			result, err = c.get(ctx, path)
			return err
		},
		c.config.Debug,
	)
	if err != nil {
		if shared.IsTimeout(err) {
			return nil, fmt.Errorf("deezer %s: %w: %v", path, shared.ErrNetworkTimeout, err)
		}
		return nil, err
	}
	return result, nil
}

// SearchTracks returns raw search hits for query
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	path := fmt.Sprintf("search?q=%s&limit=%d", url.QueryEscape(query), limit)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to search deezer: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deezer search result: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("deezer search error %d: %s", result.Error.Code, result.Error.Message)
	}
	return result.Data, nil
}

// GetTrack fetches a track by id
func (c *Client) GetTrack(ctx context.Context, id int64) (*Track, error) {
	body, err := c.getWithRetry(ctx, "track/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deezer track %d: %w", id, err)
	}

	var track Track
	if err := json.Unmarshal(body, &track); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deezer track: %w", err)
	}
	if track.Error != nil {
		return nil, notFoundOr(track.Error, fmt.Sprintf("track %d", id))
	}
	return &track, nil
}

// GetAlbum fetches an album by id
func (c *Client) GetAlbum(ctx context.Context, id int64) (*Album, error) {
	body, err := c.getWithRetry(ctx, "album/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deezer album %d: %w", id, err)
	}

	var album Album
	if err := json.Unmarshal(body, &album); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deezer album: %w", err)
	}
	if album.Error != nil {
		return nil, notFoundOr(album.Error, fmt.Sprintf("album %d", id))
	}
	return &album, nil
}

// Search returns the top hit for title with album details (genres, track
// count, release date) filled in. Missing details are left empty.
func (c *Client) Search(ctx context.Context, title string) (*shared.CatalogTrack, error) {
	hits, err := c.SearchTracks(ctx, title, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("deezer search %q: %w", title, shared.ErrMetadataNotFound)
	}
	hit := hits[0]

	track := &shared.CatalogTrack{
		ID:       strconv.FormatInt(hit.ID, 10),
		Title:    hit.Title,
		Artists:  []string{hit.Artist.Name},
		Album:    hit.Album.Title,
		CoverURL: firstNonEmpty(hit.Album.CoverXL, hit.Album.Cover),
		Link:     hit.Link,
	}

	if full, err := c.GetTrack(ctx, hit.ID); err == nil {
		track.TrackPosition = full.TrackPosition
		track.ReleaseDate = full.ReleaseDate
		track.ISRC = full.ISRC
	} else {
		shared.DebugPrint(c.config.Debug, "deezer track details for %d: %v", hit.ID, err)
	}

	if hit.Album.ID != 0 {
		if album, err := c.GetAlbum(ctx, hit.Album.ID); err == nil {
			track.TotalTracks = album.NbTracks
			if album.ReleaseDate != "" {
				track.ReleaseDate = album.ReleaseDate
			}
			for _, genre := range album.Genres.Data {
				track.Genres = append(track.Genres, genre.Name)
			}
			track.CoverURL = firstNonEmpty(album.CoverXL, track.CoverURL)
		} else {
			shared.DebugPrint(c.config.Debug, "deezer album details for %d: %v", hit.Album.ID, err)
		}
	}

	return track, nil
}

func notFoundOr(apiErr *apiError, what string) error {
	if apiErr.Code == dataNotFoundCode {
		return fmt.Errorf("deezer %s: %w", what, shared.ErrMetadataNotFound)
	}
	return fmt.Errorf("deezer %s: %s (code %d)", what, apiErr.Message, apiErr.Code)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
