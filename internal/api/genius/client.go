package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"spots/internal/shared"
)

const (
	defaultAPIBaseURL = "https://api.genius.com/"
	defaultTimeout    = 15 * time.Second
	defaultRateLimit  = 250 * time.Millisecond

	// songs without a verse marker are usually instrumentals or placeholders
	verseMarker     = "Verse"
	lyricsContainer = `div[data-lyrics-container="true"]`
)

// Client searches Genius for a song and scrapes its lyrics page
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	token       string
	APIBaseURL  string
	Debug       bool
}

// NewClient creates a Genius client for the given access token
func NewClient(token string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		rateLimiter: rate.NewLimiter(rate.Every(defaultRateLimit), 2),
		token:       token,
		APIBaseURL:  defaultAPIBaseURL,
	}
}

// NewClientWithHTTPClient is used by tests to point the client at a fake
func NewClientWithHTTPClient(token, baseURL string, httpClient *http.Client) *Client {
	c := NewClient(token)
	c.httpClient = httpClient
	c.APIBaseURL = baseURL
	return c
}

type hit struct {
	Type   string `json:"type"`
	Result struct {
		Title         string `json:"title"`
		FullTitle     string `json:"full_title"`
		URL           string `json:"url"`
		PrimaryArtist struct {
			Name string `json:"name"`
		} `json:"primary_artist"`
	} `json:"result"`
}

type searchResponse struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"meta"`
	Response struct {
		Hits []hit `json:"hits"`
	} `json:"response"`
}

// Lyrics finds title by artist and returns its lyrics. Lyrics without a
// verse marker are rejected; with matchTitle the song title must also
// contain title.
func (c *Client) Lyrics(ctx context.Context, title, artist string, matchTitle bool) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("genius: no access token: %w", shared.ErrMetadataNotFound)
	}

	song, err := c.search(ctx, title, artist)
	if err != nil {
		return "", err
	}
	if matchTitle && !strings.Contains(strings.ToLower(song.Result.Title), strings.ToLower(title)) {
		return "", fmt.Errorf("genius: %q does not match %q: %w", song.Result.Title, title, shared.ErrMetadataNotFound)
	}

	lyrics, err := c.scrape(ctx, song.Result.URL)
	if err != nil {
		return "", err
	}
	if !strings.Contains(lyrics, verseMarker) {
		return "", fmt.Errorf("genius: lyrics for %q have no verses: %w", title, shared.ErrMetadataNotFound)
	}
	return lyrics, nil
}

// search returns the hit whose title equals title, or the first song hit
func (c *Client) search(ctx context.Context, title, artist string) (*hit, error) {
	query := strings.TrimSpace(title + " " + artist)
	body, err := c.get(ctx, c.APIBaseURL+"search?q="+url.QueryEscape(query), true)
	if err != nil {
		return nil, fmt.Errorf("genius search %q: %w", query, err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genius search result: %w", err)
	}

	var first *hit
	for i := range result.Response.Hits {
		h := &result.Response.Hits[i]
		if h.Type != "" && h.Type != "song" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(h.Result.Title), strings.TrimSpace(title)) {
			return h, nil
		}
		if first == nil {
			first = h
		}
	}
	if first == nil {
		return nil, fmt.Errorf("genius search %q: %w", query, shared.ErrMetadataNotFound)
	}
	return first, nil
}

// scrape extracts the lyrics text from a song page
func (c *Client) scrape(ctx context.Context, pageURL string) (string, error) {
	body, err := c.get(ctx, pageURL, false)
	if err != nil {
		return "", fmt.Errorf("genius page %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse genius page: %w", err)
	}

	var parts []string
	doc.Find(lyricsContainer).Each(func(_ int, s *goquery.Selection) {
		s.Find("br").ReplaceWithHtml("\n")
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		// older page layout
		if text := strings.TrimSpace(doc.Find(".lyrics").First().Text()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("genius page %s has no lyrics: %w", pageURL, shared.ErrMetadataNotFound)
	}
	return strings.Join(parts, "\n"), nil
}

func (c *Client) get(ctx context.Context, rawURL string, authorized bool) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.UserAgent)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", shared.ErrNetworkTimeout, err)
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
