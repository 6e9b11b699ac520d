package resolver

import (
	"errors"
	"testing"

	"spots/internal/shared"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		wantKind shared.ResourceKind
		wantID   string
	}{
		{"https://open.spotify.com/track/3pXwsW7Yx0hzNhrxjyvTVS?si=abc", shared.KindTrack, "3pXwsW7Yx0hzNhrxjyvTVS"},
		{"https://open.spotify.com/intl-de/album/1DFixLWuPkv3KT3TnV35m3", shared.KindAlbum, "1DFixLWuPkv3KT3TnV35m3"},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", shared.KindPlaylist, "37i9dQZF1DXcBWIGoYBM5M"},
		{"spotify:track:3pXwsW7Yx0hzNhrxjyvTVS", shared.KindTrack, "3pXwsW7Yx0hzNhrxjyvTVS"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", shared.KindVideo, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1", shared.KindVideo, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1"},
		{"https://youtu.be/dQw4w9WgXcQ", shared.KindVideo, "https://youtu.be/dQw4w9WgXcQ"},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", shared.KindVideo, "https://music.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://www.youtube.com/playlist?list=PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG", shared.KindVideoPlaylist, "https://www.youtube.com/playlist?list=PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG"},
		{"  Drake - Hotline Bling  ", shared.KindSearchTitle, "Drake - Hotline Bling"},
		{"Some Song", shared.KindSearchTitle, "Some Song"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if ref.Kind != tt.wantKind || ref.ID != tt.wantID {
				t.Errorf("Parse() = %v %q, want %v %q", ref.Kind, ref.ID, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{
		"",
		"https://open.spotify.com/artist/0TnOYISbd1XYRBk9myaseg",
		"https://open.spotify.com/track/",
		"https://www.youtube.com/channel/UC123",
		"https://example.com/song.mp3",
		"spotify:track",
	}
	for _, input := range inputs {
		if _, err := Parse(input); !errors.Is(err, shared.ErrInvalidResource) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidResource", input, err)
		}
	}
}
