package shared

import "strings"

// TrackMetadata is the resolved, canonical description of a single track.
// Values are replaced wholesale, never patched field by field. The JSON keys
// are those of existing .metadata.json files.
type TrackMetadata struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	TrackNumber string `json:"tracknumber,omitempty"` // "position/total"
	CoverURL    string `json:"cover,omitempty"`
	Lyrics      string `json:"lyrics,omitempty"`
	ReleaseYear string `json:"release_date,omitempty"`
	Link        string `json:"link"`
	Genre       string `json:"genre,omitempty"`
}

// HistoryTitle returns the ledger entry for this track
func (t TrackMetadata) HistoryTitle() string {
	return FormatHistoryEntry(t.Artist, t.Title)
}

// PrimaryArtist returns the first artist of the comma-joined list
func (t TrackMetadata) PrimaryArtist() string {
	artist, _, _ := strings.Cut(t.Artist, ",")
	return strings.TrimSpace(artist)
}

// CatalogTrack is a raw track record as returned by a catalog, before
// featured-artist reconciliation and lyrics lookup.
type CatalogTrack struct {
	ID            string
	Title         string
	Artists       []string
	Album         string
	TrackPosition int
	TotalTracks   int
	CoverURL      string
	ReleaseDate   string
	Link          string
	Genres        []string
	ISRC          string
}

// CatalogCollection is an album or playlist: a display name plus the ids of
// its tracks in catalog order.
type CatalogCollection struct {
	ID       string
	Name     string
	TrackIDs []string
}

// VideoInfo describes a single video at the video source
type VideoInfo struct {
	ID        string
	URL       string
	Title     string
	Uploader  string
	Available bool
}

// VideoPlaylist is an ordered list of video URLs
type VideoPlaylist struct {
	ID        string
	Title     string
	VideoURLs []string
}

// ResourceKind enumerates the kinds of input the resolver understands
type ResourceKind int

const (
	KindTrack ResourceKind = iota
	KindAlbum
	KindPlaylist
	KindVideo
	KindVideoPlaylist
	KindSearchTitle
)

func (k ResourceKind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	case KindVideo:
		return "video"
	case KindVideoPlaylist:
		return "video playlist"
	case KindSearchTitle:
		return "search"
	default:
		return "unknown"
	}
}

// ResourceReference is a parsed input. ID carries the provider identifier
// (catalog id, video URL or the search text itself); Raw the original input.
type ResourceReference struct {
	Kind ResourceKind
	ID   string
	Raw  string
}

// Download statistics
type DownloadStats struct {
	SuccessCount int
	SkippedCount int
	FailedCount  int
	FailedItems  []string
}

// Add merges other into s
func (s *DownloadStats) Add(other *DownloadStats) {
	if other == nil {
		return
	}
	s.SuccessCount += other.SuccessCount
	s.SkippedCount += other.SkippedCount
	s.FailedCount += other.FailedCount
	s.FailedItems = append(s.FailedItems, other.FailedItems...)
}
