package interfaces

import (
	"context"
	"io"

	"spots/internal/shared"
)

// TrackCatalog defines the primary catalog (Spotify)
type TrackCatalog interface {
	// Track fetches a single track by catalog id
	Track(ctx context.Context, id string) (*shared.CatalogTrack, error)

	// Album fetches an album's name and track ids in catalog order
	Album(ctx context.Context, id string) (*shared.CatalogCollection, error)

	// Playlist fetches a playlist's name and track ids in catalog order
	Playlist(ctx context.Context, id string) (*shared.CatalogCollection, error)

	// Search returns the top hit for a free-text title, or an error wrapping
	// shared.ErrMetadataNotFound
	Search(ctx context.Context, title string) (*shared.CatalogTrack, error)
}

// SupplementaryCatalog defines the search-only fallback catalog (Deezer)
type SupplementaryCatalog interface {
	Search(ctx context.Context, title string) (*shared.CatalogTrack, error)
}

// LyricsCatalog defines the lyrics provider (Genius)
type LyricsCatalog interface {
	// Lyrics returns usable lyrics or an error wrapping shared.ErrMetadataNotFound.
	// With matchTitle the found song's title must contain title.
	Lyrics(ctx context.Context, title, artist string, matchTitle bool) (string, error)
}

// GenreEnricher looks up genres for tracks the catalogs left without one
type GenreEnricher interface {
	Genres(ctx context.Context, artist, title, isrc string) ([]string, error)
}

// VideoSource defines the video platform (YouTube)
type VideoSource interface {
	// Video fetches title, uploader and availability of a video
	Video(ctx context.Context, url string) (*shared.VideoInfo, error)

	// Playlist resolves a playlist to its ordered video URLs
	Playlist(ctx context.Context, url string) (*shared.VideoPlaylist, error)

	// SearchTop returns the URL of the top result for query
	SearchTop(ctx context.Context, query string) (string, error)

	// Stream writes the best audio-only stream of a video to w and returns its mime type
	Stream(ctx context.Context, url string, w io.Writer) (string, error)
}

// Transcoder converts downloaded audio to MP3
type Transcoder interface {
	ToMP3(ctx context.Context, inputPath string) (string, error)
}

// TagWriter replaces all tags of an MP3 file
type TagWriter interface {
	WriteTags(path string, track shared.TrackMetadata, cover []byte) error
}

// MetadataStore caches resolved metadata by canonical link
type MetadataStore interface {
	Get(link string) (shared.TrackMetadata, bool)
	Put(track shared.TrackMetadata)
	Flush() error
}

// HistoryLedger records titles that have already been processed
type HistoryLedger interface {
	Contains(entry string) (bool, error)
	Record(entry string) error
}

// PlaylistMirror mirrors a downloaded collection into a media server playlist
type PlaylistMirror interface {
	MirrorPlaylist(name string, tracks []shared.TrackMetadata) error
}

// LoggerService defines the interface for logging operations
type LoggerService interface {
	// Info logs informational messages
	Info(message string, args ...interface{})

	// Warning logs warning messages
	Warning(message string, args ...interface{})

	// Error logs error messages
	Error(message string, args ...interface{})

	// Debug logs debug messages
	Debug(message string, args ...interface{})

	// Success logs success messages
	Success(message string, args ...interface{})
}

// WarningCollectorService defines the interface for warning collection
type WarningCollectorService interface {
	AddWarning(warningType shared.WarningType, context, message, details string)
	HasWarnings() bool
	GetWarningCount() int
	PrintSummary()
}
