package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kkdai/youtube/v2"

	"spots/internal/shared"
)

func TestSearchTop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("search_query"); got != "Some Song Audio" {
			t.Errorf("search_query = %q", got)
		}
		fmt.Fprint(w, `<script>var ytInitialData = {"contents":[{"videoRenderer":{"videoId":"dQw4w9WgXcQ"}},{"videoRenderer":{"videoId":"aaaaaaaaaaa"}}]};</script>`)
	}))
	defer server.Close()

	client := NewClient(0)
	client.httpClient = server.Client()
	client.SearchBaseURL = server.URL + "/"

	got, err := client.SearchTop(context.Background(), "Some Song Audio")
	if err != nil {
		t.Fatalf("SearchTop() error = %v", err)
	}
	if want := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"; got != want {
		t.Errorf("SearchTop() = %q, want %q", got, want)
	}
}

func TestSearchTopNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>no results</html>`)
	}))
	defer server.Close()

	client := NewClient(0)
	client.httpClient = server.Client()
	client.SearchBaseURL = server.URL + "/"

	if _, err := client.SearchTop(context.Background(), "x"); !errors.Is(err, shared.ErrMetadataNotFound) {
		t.Errorf("SearchTop() error = %v, want ErrMetadataNotFound", err)
	}
}

func TestConvertMusicURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://music.youtube.com/watch?v=abc&si=xyz", "https://www.youtube.com/watch?v=abc"},
		{"https://www.youtube.com/watch?v=abc", "https://www.youtube.com/watch?v=abc"},
		{"https://youtu.be/abc", "https://youtu.be/abc"},
	}
	for _, tt := range tests {
		if got := ConvertMusicURL(tt.in); got != tt.want {
			t.Errorf("ConvertMusicURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBestAudioFormat(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000, AudioChannels: 2},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Bitrate: 4000000},
	}

	got := bestAudioFormat(formats)
	if got == nil || got.ItagNo != 251 {
		t.Fatalf("bestAudioFormat() = %+v, want itag 251", got)
	}

	// muxed stream is used when there is no audio-only format
	got = bestAudioFormat(formats[:1])
	if got == nil || got.ItagNo != 18 {
		t.Errorf("bestAudioFormat() fallback = %+v, want itag 18", got)
	}

	if got := bestAudioFormat(formats[3:]); got != nil {
		t.Errorf("bestAudioFormat() = %+v, want nil for video-only", got)
	}
}

func TestWrapFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"private", youtube.ErrVideoPrivate, shared.ErrInvalidResource},
		{"login", youtube.ErrLoginRequired, shared.ErrInvalidResource},
		{"other", errors.New("boom"), shared.ErrInvalidResource},
		{"timeout", &shared.HTTPError{StatusCode: http.StatusGatewayTimeout}, shared.ErrNetworkTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := wrapFetchError(tt.err, "video"); !errors.Is(err, tt.want) {
				t.Errorf("wrapFetchError() = %v, want %v", err, tt.want)
			}
		})
	}
}
