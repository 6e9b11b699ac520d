package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"spots/internal/shared"
)

const (
	defaultBaseURL      = "https://musicbrainz.org/ws/2/"
	defaultUserAgent    = shared.UserAgent
	defaultTimeout      = 30 * time.Second
	defaultRateLimit    = 1 * time.Second // MusicBrainz allows 1 request per second per client
	defaultBurstLimit   = 1
	defaultMaxRetries   = 5
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 60 * time.Second

	// maxGenres caps the genre list written to a track
	maxGenres = 3
)

// Config holds configuration for MusicBrainz API client
type Config struct {
	BaseURL      string        `json:"base_url"`
	UserAgent    string        `json:"user_agent"`
	Timeout      time.Duration `json:"timeout"`
	MaxRetries   int           `json:"max_retries"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	RateLimit    time.Duration `json:"rate_limit"`
	BurstLimit   int           `json:"burst_limit"`
	Debug        bool          `json:"debug"`
}

// Client is the genre enricher backed by MusicBrainz
type Client struct {
	httpClient  *http.Client
	config      Config
	rateLimiter *rate.Limiter
}

// DefaultConfig returns sensible defaults for MusicBrainz API client
func DefaultConfig() Config {
	return Config{
		BaseURL:      defaultBaseURL,
		UserAgent:    defaultUserAgent,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		RateLimit:    defaultRateLimit,
		BurstLimit:   defaultBurstLimit,
	}
}

// NewClient creates a new MusicBrainz API client with default configuration
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new MusicBrainz API client with custom configuration
func NewClientWithConfig(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config:      config,
		rateLimiter: rate.NewLimiter(rate.Every(config.RateLimit), config.BurstLimit),
	}
}

// GetConfig returns the current client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// SetDebug enables or disables debug logging for the client
func (c *Client) SetDebug(debug bool) {
	c.config.Debug = debug
}

// get makes a single GET request to the MusicBrainz API
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
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
		return nil, err
	}
	return result, nil
}

// SearchRecordingByISRC searches for a recording using its ISRC
func (c *Client) SearchRecordingByISRC(ctx context.Context, isrc string) (*Recording, error) {
	if isrc == "" {
		return nil, fmt.Errorf("ISRC cannot be empty")
	}
	return c.searchRecording(ctx, fmt.Sprintf("isrc:%q", isrc))
}

// SearchRecording searches for a recording by artist and title
func (c *Client) SearchRecording(ctx context.Context, artist, title string) (*Recording, error) {
	if artist == "" || title == "" {
		return nil, fmt.Errorf("artist and title cannot be empty")
	}
	return c.searchRecording(ctx, buildRecordingQuery(artist, title))
}

func (c *Client) searchRecording(ctx context.Context, query string) (*Recording, error) {
	path := fmt.Sprintf("recording?query=%s&limit=1&fmt=json", url.QueryEscape(query))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to search recording (%s): %w", query, err)
	}

	var searchResult struct {
		Recordings []Recording `json:"recordings"`
	}
	if err := json.Unmarshal(body, &searchResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording search result: %w", err)
	}
	if len(searchResult.Recordings) == 0 {
		return nil, fmt.Errorf("no recording for %s: %w", query, shared.ErrMetadataNotFound)
	}
	return &searchResult.Recordings[0], nil
}

// GetRecording looks up a recording with its genres and tags
func (c *Client) GetRecording(ctx context.Context, mbid string) (*Recording, error) {
	if mbid == "" {
		return nil, fmt.Errorf("MBID cannot be empty")
	}

	body, err := c.getWithRetry(ctx, fmt.Sprintf("recording/%s?inc=genres+tags+releases+release-groups&fmt=json", mbid))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recording %s: %w", mbid, err)
	}

	var recording Recording
	if err := json.Unmarshal(body, &recording); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording: %w", err)
	}
	return &recording, nil
}

// GetReleaseGroupGenres looks up the genres of a release group
func (c *Client) GetReleaseGroupGenres(ctx context.Context, mbid string) ([]Tag, error) {
	body, err := c.getWithRetry(ctx, fmt.Sprintf("release-group/%s?inc=genres&fmt=json", mbid))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release group %s: %w", mbid, err)
	}

	var group ReleaseGroup
	if err := json.Unmarshal(body, &group); err != nil {
		return nil, fmt.Errorf("failed to unmarshal release group: %w", err)
	}
	return group.Genres, nil
}

// Genres finds the recording, by ISRC when one is known, and returns its most
// voted genres. Recording genres win over user tags, which win over the
// genres of the release group.
func (c *Client) Genres(ctx context.Context, artist, title, isrc string) ([]string, error) {
	var (
		found *Recording
		err   error
	)
	if isrc != "" {
		found, err = c.SearchRecordingByISRC(ctx, isrc)
		if err != nil {
			shared.DebugPrint(c.config.Debug, "ISRC lookup for %s failed: %v", isrc, err)
		}
	}
	if found == nil {
		found, err = c.SearchRecording(ctx, artist, title)
		if err != nil {
			return nil, err
		}
	}

	recording, err := c.GetRecording(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if genres := topNames(recording.Genres); len(genres) > 0 {
		return genres, nil
	}
	if genres := topNames(recording.Tags); len(genres) > 0 {
		return genres, nil
	}

	for _, release := range recording.Releases {
		if release.ReleaseGroup.ID == "" {
			continue
		}
		tags, err := c.GetReleaseGroupGenres(ctx, release.ReleaseGroup.ID)
		if err != nil {
			return nil, err
		}
		if genres := topNames(tags); len(genres) > 0 {
			return genres, nil
		}
		break
	}
	return nil, fmt.Errorf("no genres for %s - %s: %w", artist, title, shared.ErrMetadataNotFound)
}

// buildRecordingQuery constructs a Lucene query for recording searches
func buildRecordingQuery(artist, title string) string {
	escape := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return fmt.Sprintf(`artist:"%s" AND recording:"%s"`, escape.Replace(artist), escape.Replace(title))
}

// topNames returns up to maxGenres names, most voted first, title cased
func topNames(tags []Tag) []string {
	sorted := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		if tag.Count > 0 && tag.Name != "" {
			sorted = append(sorted, tag)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})

	var names []string
	for _, tag := range sorted {
		if len(names) == maxGenres {
			break
		}
		names = append(names, titleCase(tag.Name))
	}
	return names
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Tag is a voted genre or folksonomy tag
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Artist represents a MusicBrainz artist
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArtistCredit represents artist credit information
type ArtistCredit struct {
	Artist Artist `json:"artist"`
}

// ReleaseGroup represents a MusicBrainz release group
type ReleaseGroup struct {
	ID     string `json:"id"`
	Genres []Tag  `json:"genres"`
}

// Release represents release information within a recording
type Release struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Date         string       `json:"date"`
	ReleaseGroup ReleaseGroup `json:"release-group"`
}

// Recording represents a MusicBrainz recording
type Recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
	Releases     []Release      `json:"releases"`
	Genres       []Tag          `json:"genres"`
	Tags         []Tag          `json:"tags"`
	Length       int            `json:"length"` // milliseconds
}
