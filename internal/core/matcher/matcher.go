package matcher

import (
	"fmt"
	"html"
	"strings"
)

// decorativeSuffixes are removed from video titles, in this order. Matching
// is case sensitive and only these literal strings are touched.
var decorativeSuffixes = []string{
	" (Official Video)",
	" (Audio)",
	" Uncut [HD]",
	" [Video]",
	" (HD)",
	" (Official Music Video)",
	" (Complete)",
}

// topicSuffix is appended by YouTube to auto-generated artist channels
const topicSuffix = " - Topic"

// NormalizeVideoTitle unescapes HTML entities and strips the registered
// decorative suffixes from a raw video title.
func NormalizeVideoTitle(raw string) string {
	title := html.UnescapeString(raw)
	for _, suffix := range decorativeSuffixes {
		title = strings.ReplaceAll(title, suffix, "")
	}
	return title
}

// InferSearchTitle returns an "Artist - Track" search string for a video. A
// title that already contains a hyphen is assumed to carry the artist.
func InferSearchTitle(videoTitle, uploader string) string {
	if strings.Contains(videoTitle, "-") {
		return videoTitle
	}
	artist := strings.TrimSpace(strings.ReplaceAll(uploader, topicSuffix, ""))
	if artist == "" {
		return videoTitle
	}
	return fmt.Sprintf("%s - %s", artist, videoTitle)
}

// TitlesMatch is a two-way, case-insensitive containment test
func TitlesMatch(candidate, video string) bool {
	c := strings.ToLower(candidate)
	v := strings.ToLower(video)
	return strings.Contains(v, c) || strings.Contains(c, v)
}

// SplitSearchTitle splits "Artist - Title" on the first hyphen. Without a
// hyphen the whole string is the title.
func SplitSearchTitle(searchTitle string) (artist, title string) {
	before, after, found := strings.Cut(searchTitle, "-")
	if !found {
		return "", strings.TrimSpace(searchTitle)
	}
	artist = strings.TrimSpace(strings.ReplaceAll(before, topicSuffix, ""))
	return artist, strings.TrimSpace(after)
}

// RemoveFeaturedArtists drops every artist whose name already appears in the
// track title, e.g. "Song (feat. X)" keeps X out of the artist field.
func RemoveFeaturedArtists(artists []string, title string) []string {
	lowerTitle := strings.ToLower(title)
	kept := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist == "" || strings.Contains(lowerTitle, strings.ToLower(artist)) {
			continue
		}
		kept = append(kept, artist)
	}
	// a self-titled track would otherwise lose its only credit
	if len(kept) == 0 && len(artists) > 0 {
		return artists[:1]
	}
	return kept
}

// JoinArtists comma-joins the artists left after featured-artist removal
func JoinArtists(artists []string, title string) string {
	return strings.Join(RemoveFeaturedArtists(artists, title), ", ")
}

// ExtractYear returns the 4-digit year prefix of an ISO date ("2021",
// "2021-05", "2021-05-14"); anything else yields "". Deezer reports unknown
// dates as "0000-00-00", which also yields "".
func ExtractYear(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	year := date[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if len(date) > 4 && date[4] != '-' {
		return ""
	}
	if year == "0000" {
		return ""
	}
	return year
}

// FormatTrackNumber formats "position/total"; an unknown position yields "".
func FormatTrackNumber(position, total int) string {
	if position <= 0 {
		return ""
	}
	if total <= 0 {
		return fmt.Sprintf("%d", position)
	}
	return fmt.Sprintf("%d/%d", position, total)
}
