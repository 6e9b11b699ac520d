package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/kkdai/youtube/v2"

	"spots/internal/shared"
)

const (
	defaultSearchBaseURL = "https://www.youtube.com/"
	defaultTimeout       = 60 * time.Second
	watchURLPrefix       = "https://www.youtube.com/watch?v="
	barTemplate          = `{{ string . "prefix" }} {{ bar . }} {{ percent . }} | {{ speed . "%s/s" }} | ETA {{ rtime . "%s" }}`
)

var videoIDPattern = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)

// Client is the video source backed by YouTube
type Client struct {
	yt            *youtube.Client
	httpClient    *http.Client
	SearchBaseURL string
	ShowProgress  bool
	Debug         bool
}

// NewClient creates a YouTube client
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		yt:            &youtube.Client{HTTPClient: httpClient},
		httpClient:    httpClient,
		SearchBaseURL: defaultSearchBaseURL,
		ShowProgress:  shared.IsTTY(),
	}
}

// Video fetches title, uploader and availability of a video
func (c *Client) Video(ctx context.Context, videoURL string) (*shared.VideoInfo, error) {
	video, err := c.yt.GetVideoContext(ctx, ConvertMusicURL(videoURL))
	if err != nil {
		return nil, wrapFetchError(err, videoURL)
	}
	return &shared.VideoInfo{
		ID:        video.ID,
		URL:       videoURL,
		Title:     video.Title,
		Uploader:  video.Author,
		Available: len(video.Formats) > 0,
	}, nil
}

// Playlist resolves a playlist URL to its ordered watch URLs
func (c *Client) Playlist(ctx context.Context, playlistURL string) (*shared.VideoPlaylist, error) {
	playlist, err := c.yt.GetPlaylistContext(ctx, ConvertMusicURL(playlistURL))
	if err != nil {
		return nil, wrapFetchError(err, playlistURL)
	}

	result := &shared.VideoPlaylist{ID: playlist.ID, Title: playlist.Title}
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		result.VideoURLs = append(result.VideoURLs, watchURLPrefix+entry.ID)
	}
	shared.DebugPrint(c.Debug, "Playlist %s has %d videos", playlist.Title, len(result.VideoURLs))
	return result, nil
}

// SearchTop returns the watch URL of the top search result for query
func (c *Client) SearchTop(ctx context.Context, query string) (string, error) {
	searchURL := c.SearchBaseURL + "results?search_query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if shared.IsTimeout(err) {
			return "", fmt.Errorf("youtube search %q: %w: %v", query, shared.ErrNetworkTimeout, err)
		}
		return "", fmt.Errorf("youtube search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "youtube search"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read search results: %w", err)
	}

	match := videoIDPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("youtube search %q: %w", query, shared.ErrMetadataNotFound)
	}
	return watchURLPrefix + string(match[1]), nil
}

// Stream writes the best audio-only stream of a video to w and returns its
// mime type
func (c *Client) Stream(ctx context.Context, videoURL string, w io.Writer) (string, error) {
	video, err := c.yt.GetVideoContext(ctx, ConvertMusicURL(videoURL))
	if err != nil {
		return "", wrapFetchError(err, videoURL)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return "", fmt.Errorf("%s has no audio stream: %w", videoURL, shared.ErrInvalidResource)
	}
	shared.DebugPrint(c.Debug, "Selected format itag=%d mime=%s bitrate=%d", format.ItagNo, format.MimeType, bitrateForFormat(format))

	stream, size, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", wrapFetchError(err, videoURL)
	}
	defer stream.Close()

	var reader io.Reader = stream
	if c.ShowProgress {
		bar := pb.New64(size)
		bar.SetWriter(os.Stdout)
		bar.SetTemplateString(barTemplate)
		bar.Set("prefix", fmt.Sprintf("Downloading %-40s: ", shared.TruncateString(video.Title, 40)))
		if size <= 0 {
			bar.Set("indeterminate", true)
		}
		bar.Start()
		defer bar.Finish()
		reader = bar.NewProxyReader(stream)
	}

	if _, err := io.Copy(w, reader); err != nil {
		if shared.IsTimeout(err) {
			return "", fmt.Errorf("download %s: %w: %v", videoURL, shared.ErrNetworkTimeout, err)
		}
		return "", fmt.Errorf("download %s: %w", videoURL, err)
	}
	return format.MimeType, nil
}

// bestAudioFormat picks the highest bitrate audio-only format, falling back
// to any format carrying audio
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	withAudio := formats.WithAudioChannels()

	var best, fallback *youtube.Format
	for i := range withAudio {
		f := &withAudio[i]
		if strings.HasPrefix(f.MimeType, "audio/") {
			if best == nil || bitrateForFormat(f) > bitrateForFormat(best) {
				best = f
			}
		} else if fallback == nil || bitrateForFormat(f) < bitrateForFormat(fallback) {
			fallback = f
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

func bitrateForFormat(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// ConvertMusicURL rewrites music.youtube.com links to www.youtube.com
func ConvertMusicURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host != "music.youtube.com" {
		return u
	}
	parsed.Host = "www.youtube.com"
	query := parsed.Query()
	query.Del("si")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// wrapFetchError maps library errors onto the shared taxonomy. Anything
// that is not a timeout makes the resource unusable.
func wrapFetchError(err error, what string) error {
	if shared.IsTimeout(err) {
		return fmt.Errorf("youtube %s: %w: %v", what, shared.ErrNetworkTimeout, err)
	}

	reason := "unavailable"
	var statusErr *youtube.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed),
		errors.As(err, &statusErr):
		reason = "restricted"
	case errors.Is(err, youtube.ErrInvalidPlaylist),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		reason = "invalid URL"
	}
	return fmt.Errorf("youtube %s (%s): %w: %v", what, reason, shared.ErrInvalidResource, err)
}
