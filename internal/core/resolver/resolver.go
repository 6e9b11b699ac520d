package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"spots/internal/core/matcher"
	"spots/internal/interfaces"
	"spots/internal/shared"
)

// SpotifyTrackURL is the prefix of a canonical catalog track link
const SpotifyTrackURL = "https://open.spotify.com/track/"

// noMatchTitle stands in for a fallback search that found nothing. It never
// matches a real video title.
const noMatchTitle = "Not a valid title"

// ResultKind tells the pipeline what to download
type ResultKind int

const (
	// ResultSingle is one track with metadata
	ResultSingle ResultKind = iota
	// ResultCollection is an album, a playlist or a video playlist
	ResultCollection
	// ResultUnmatched is a video no catalog could identify
	ResultUnmatched
)

func (k ResultKind) String() string {
	switch k {
	case ResultSingle:
		return "single"
	case ResultCollection:
		return "collection"
	case ResultUnmatched:
		return "unmatched"
	}
	return "unknown"
}

// Result is the outcome of resolving one input.
//
// Single carries Track and, for video-origin inputs, the VideoURL already
// found. Collection carries Name plus either Tracks (catalog collections) or
// VideoURLs (video playlists, resolved one at a time later). Unmatched
// carries the Title and Artist split from the search title and the VideoURL.
type Result struct {
	Kind      ResultKind
	Track     *shared.TrackMetadata
	Tracks    []shared.TrackMetadata
	Name      string
	Title     string
	Artist    string
	VideoURL  string
	VideoURLs []string
}

// Deps are the collaborators of a Resolver. Genres and Warnings are
// optional. Store must be safe for concurrent use when Parallelism > 1.
type Deps struct {
	Catalog       interfaces.TrackCatalog
	Supplementary interfaces.SupplementaryCatalog
	Lyrics        interfaces.LyricsCatalog
	Genres        interfaces.GenreEnricher
	Videos        interfaces.VideoSource
	Store         interfaces.MetadataStore
	Warnings      *shared.WarningCollector
	Parallelism   int
	StrictLyrics  bool
	Debug         bool
}

// Resolver turns parsed inputs into track metadata
type Resolver struct {
	deps Deps
}

// New creates a Resolver
func New(deps Deps) *Resolver {
	if deps.Parallelism < 1 {
		deps.Parallelism = 1
	}
	return &Resolver{deps: deps}
}

// Resolve dispatches on the reference kind
func (r *Resolver) Resolve(ctx context.Context, ref shared.ResourceReference) (Result, error) {
	switch ref.Kind {
	case shared.KindTrack:
		track, err := r.ResolveTrack(ctx, ref.ID)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultSingle, Track: &track}, nil
	case shared.KindAlbum:
		return r.resolveCollection(ctx, ref, r.deps.Catalog.Album)
	case shared.KindPlaylist:
		return r.resolveCollection(ctx, ref, r.deps.Catalog.Playlist)
	case shared.KindVideo:
		return r.ResolveVideo(ctx, ref.ID)
	case shared.KindVideoPlaylist:
		return r.resolveVideoPlaylist(ctx, ref.ID)
	case shared.KindSearchTitle:
		return r.resolveSearchTitle(ctx, ref.ID)
	}
	return Result{}, fmt.Errorf("unknown resource kind %d: %w", ref.Kind, shared.ErrInvalidResource)
}

// ResolveTrack returns the metadata of a catalog track, from the store when
// it was resolved before
func (r *Resolver) ResolveTrack(ctx context.Context, id string) (shared.TrackMetadata, error) {
	if cached, ok := r.deps.Store.Get(SpotifyTrackURL + id); ok {
		shared.DebugPrint(r.deps.Debug, "Metadata for %s found in store", id)
		return cached, nil
	}

	raw, err := r.deps.Catalog.Track(ctx, id)
	if err != nil {
		return shared.TrackMetadata{}, err
	}

	artists := matcher.RemoveFeaturedArtists(raw.Artists, raw.Title)
	track := r.buildMetadata(ctx, raw, artists, raw.Link, r.deps.StrictLyrics)
	if track.Link == "" {
		track.Link = SpotifyTrackURL + id
	}

	r.deps.Store.Put(track)
	return track, nil
}

// buildMetadata assembles a TrackMetadata from a catalog record, looking up
// lyrics and, when enabled, genres
func (r *Resolver) buildMetadata(ctx context.Context, raw *shared.CatalogTrack, artists []string, link string, strictLyrics bool) shared.TrackMetadata {
	artist := strings.Join(artists, ", ")
	genre := strings.Join(raw.Genres, ", ")
	if genre == "" {
		genre = r.lookupGenre(ctx, raw, artists)
	}

	return shared.TrackMetadata{
		Title:       raw.Title,
		Artist:      artist,
		Album:       raw.Album,
		TrackNumber: matcher.FormatTrackNumber(raw.TrackPosition, raw.TotalTracks),
		CoverURL:    raw.CoverURL,
		Lyrics:      r.lookupLyrics(ctx, raw.Title, artist, strictLyrics),
		ReleaseYear: matcher.ExtractYear(raw.ReleaseDate),
		Link:        link,
		Genre:       genre,
	}
}

// lookupLyrics never fails: missing lyrics leave the field empty
func (r *Resolver) lookupLyrics(ctx context.Context, title, artist string, strict bool) string {
	if r.deps.Lyrics == nil {
		return ""
	}
	lyrics, err := r.deps.Lyrics.Lyrics(ctx, title, artist, strict)
	if err != nil {
		if !errors.Is(err, shared.ErrMetadataNotFound) {
			shared.DebugPrint(r.deps.Debug, "Lyrics lookup for %s failed: %v", title, err)
		}
		r.deps.Warnings.AddLyricsNotFoundWarning(artist, title)
		return ""
	}
	return lyrics
}

func (r *Resolver) lookupGenre(ctx context.Context, raw *shared.CatalogTrack, artists []string) string {
	if r.deps.Genres == nil || len(artists) == 0 {
		return ""
	}
	genres, err := r.deps.Genres.Genres(ctx, artists[0], raw.Title, raw.ISRC)
	if err != nil {
		r.deps.Warnings.AddGenreLookupWarning(artists[0], raw.Title, err.Error())
		return ""
	}
	return strings.Join(genres, ", ")
}

type collectionFetcher func(ctx context.Context, id string) (*shared.CatalogCollection, error)

// resolveCollection resolves every track of an album or playlist. A track
// that fails is left out; the others keep their catalog order.
func (r *Resolver) resolveCollection(ctx context.Context, ref shared.ResourceReference, fetch collectionFetcher) (Result, error) {
	collection, err := fetch(ctx, ref.ID)
	if err != nil {
		return Result{}, err
	}
	log.Printf("Resolving %s %q (%d tracks)", ref.Kind, collection.Name, len(collection.TrackIDs))

	resolved := make([]*shared.TrackMetadata, len(collection.TrackIDs))
	resolveOne := func(ctx context.Context, i int) {
		id := collection.TrackIDs[i]
		track, err := r.ResolveTrack(ctx, id)
		if err != nil {
			log.Printf("Skipping track %s of %q: %v", id, collection.Name, err)
			r.deps.Warnings.AddCollectionTrackWarning(collection.Name, id, err.Error())
			return
		}
		resolved[i] = &track
	}

	if r.deps.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.deps.Parallelism)
		for i := range collection.TrackIDs {
			g.Go(func() error {
				resolveOne(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range collection.TrackIDs {
			if ctx.Err() != nil {
				break
			}
			resolveOne(ctx, i)
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tracks := make([]shared.TrackMetadata, 0, len(resolved))
	for _, track := range resolved {
		if track != nil {
			tracks = append(tracks, *track)
		}
	}
	return Result{Kind: ResultCollection, Name: collection.Name, Tracks: tracks}, nil
}

func (r *Resolver) resolveVideoPlaylist(ctx context.Context, playlistURL string) (Result, error) {
	playlist, err := r.deps.Videos.Playlist(ctx, playlistURL)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultCollection, Name: playlist.Title, VideoURLs: playlist.VideoURLs}, nil
}

// resolveSearchTitle finds the top video for a free-text title and resolves
// it like a video link
func (r *Resolver) resolveSearchTitle(ctx context.Context, searchTitle string) (Result, error) {
	videoURL, err := r.deps.Videos.SearchTop(ctx, searchTitle+" Audio")
	if err != nil {
		if errors.Is(err, shared.ErrMetadataNotFound) {
			return Result{}, fmt.Errorf("no video for %q: %w", searchTitle, shared.ErrInvalidResource)
		}
		return Result{}, err
	}
	return r.ResolveVideo(ctx, videoURL)
}

// ResolveVideo identifies a video in the catalogs. The supplementary catalog
// is asked first, then the primary one; the video is a match when the found
// title and the video title contain one another.
func (r *Resolver) ResolveVideo(ctx context.Context, videoURL string) (Result, error) {
	info, err := r.deps.Videos.Video(ctx, videoURL)
	if err != nil {
		return Result{}, err
	}
	if !info.Available {
		return Result{}, fmt.Errorf("%s is not available: %w", videoURL, shared.ErrInvalidResource)
	}

	videoTitle := matcher.NormalizeVideoTitle(info.Title)
	searchTitle := matcher.InferSearchTitle(videoTitle, info.Uploader)

	if cached, ok := r.deps.Store.Get(videoURL); ok {
		return Result{Kind: ResultSingle, Track: &cached, VideoURL: videoURL}, nil
	}

	track, candidate, err := r.searchCatalogs(ctx, searchTitle, videoTitle, videoURL)
	if err != nil {
		return Result{}, err
	}
	if track != nil {
		r.deps.Store.Put(*track)
		return Result{Kind: ResultSingle, Track: track, VideoURL: videoURL}, nil
	}

	shared.DebugPrint(r.deps.Debug, "No catalog match for %q (best candidate %q)", searchTitle, candidate)
	artist, title := matcher.SplitSearchTitle(searchTitle)
	r.deps.Warnings.AddUnmatchedTrackWarning(searchTitle)
	return Result{Kind: ResultUnmatched, Title: title, Artist: artist, VideoURL: videoURL}, nil
}

// searchCatalogs runs the fallback chain for a video-origin search title and
// returns the title of the hit it judged. A hit whose title does not match
// the video title is rejected before any lyrics or genre lookup, and a nil
// track means nothing matched. Timeouts are returned so the whole input can
// be retried.
func (r *Resolver) searchCatalogs(ctx context.Context, searchTitle, videoTitle, videoURL string) (*shared.TrackMetadata, string, error) {
	if r.deps.Supplementary != nil {
		raw, err := r.deps.Supplementary.Search(ctx, searchTitle)
		switch {
		case err == nil:
			if !matcher.TitlesMatch(raw.Title, videoTitle) {
				return nil, raw.Title, nil
			}
			// the video stays the canonical link and only the verse check applies
			track := r.buildMetadata(ctx, raw, raw.Artists, videoURL, false)
			return &track, raw.Title, nil
		case shared.IsTimeout(err):
			return nil, noMatchTitle, err
		case !errors.Is(err, shared.ErrMetadataNotFound):
			shared.DebugPrint(r.deps.Debug, "Supplementary search for %q failed: %v", searchTitle, err)
		}
	}

	hit, err := r.deps.Catalog.Search(ctx, searchTitle)
	switch {
	case err == nil:
	case shared.IsTimeout(err):
		return nil, noMatchTitle, err
	case errors.Is(err, shared.ErrMetadataNotFound):
		return nil, noMatchTitle, nil
	default:
		shared.DebugPrint(r.deps.Debug, "Catalog search for %q failed: %v", searchTitle, err)
		return nil, noMatchTitle, nil
	}
	if !matcher.TitlesMatch(hit.Title, videoTitle) {
		return nil, hit.Title, nil
	}

	track, err := r.ResolveTrack(ctx, hit.ID)
	if err != nil {
		if shared.IsTimeout(err) {
			return nil, hit.Title, err
		}
		return nil, hit.Title, nil
	}
	return &track, hit.Title, nil
}
