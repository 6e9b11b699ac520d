package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"spots/internal/core/resolver"
	"spots/internal/shared"
)

type fakeResolver struct {
	results  []resolver.Result
	errs     []error
	calls    int
	videos   map[string]resolver.Result
	videoErr map[string]error
}

func (f *fakeResolver) Resolve(ctx context.Context, ref shared.ResourceReference) (resolver.Result, error) {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return resolver.Result{}, err
	}
	return f.results[i], nil
}

func (f *fakeResolver) ResolveVideo(ctx context.Context, videoURL string) (resolver.Result, error) {
	if err := f.videoErr[videoURL]; err != nil {
		return resolver.Result{}, err
	}
	return f.videos[videoURL], nil
}

type fakeVideos struct {
	mu       sync.Mutex
	queries  []string
	streamed []string
}

func (f *fakeVideos) Video(ctx context.Context, url string) (*shared.VideoInfo, error) {
	return &shared.VideoInfo{URL: url, Available: true}, nil
}

func (f *fakeVideos) Playlist(ctx context.Context, url string) (*shared.VideoPlaylist, error) {
	return nil, errors.New("not used")
}

func (f *fakeVideos) SearchTop(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return "https://www.youtube.com/watch?v=found", nil
}

func (f *fakeVideos) Stream(ctx context.Context, url string, w io.Writer) (string, error) {
	f.mu.Lock()
	f.streamed = append(f.streamed, url)
	f.mu.Unlock()
	_, err := io.WriteString(w, "audio bytes for "+url)
	return "audio/webm; codecs=opus", err
}

// renameTranscoder stands in for ffmpeg by renaming the download
type renameTranscoder struct {
	err error
}

func (r *renameTranscoder) ToMP3(ctx context.Context, inputPath string) (string, error) {
	if r.err != nil {
		os.Remove(inputPath)
		return "", r.err
	}
	out := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mp3"
	return out, os.Rename(inputPath, out)
}

type recordingTagger struct {
	tagged map[string]shared.TrackMetadata
	covers map[string][]byte
}

func (r *recordingTagger) WriteTags(path string, track shared.TrackMetadata, cover []byte) error {
	if r.tagged == nil {
		r.tagged = make(map[string]shared.TrackMetadata)
		r.covers = make(map[string][]byte)
	}
	r.tagged[path] = track
	r.covers[path] = cover
	return nil
}

type fakeCovers struct {
	err error
}

func (f fakeCovers) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("jpeg:" + url), nil
}

type memoryLedger struct {
	entries map[string]bool
	order   []string
}

func newMemoryLedger(seed ...string) *memoryLedger {
	l := &memoryLedger{entries: make(map[string]bool)}
	for _, entry := range seed {
		l.entries[entry] = true
	}
	return l
}

func (l *memoryLedger) Contains(entry string) (bool, error) { return l.entries[entry], nil }

func (l *memoryLedger) Record(entry string) error {
	l.entries[entry] = true
	l.order = append(l.order, entry)
	return nil
}

type countingStore struct {
	flushes int
}

func (s *countingStore) Get(link string) (shared.TrackMetadata, bool) { return shared.TrackMetadata{}, false }
func (s *countingStore) Put(track shared.TrackMetadata)                {}
func (s *countingStore) Flush() error {
	s.flushes++
	return nil
}

type recordingMirror struct {
	name   string
	tracks []shared.TrackMetadata
	err    error
}

func (m *recordingMirror) MirrorPlaylist(name string, tracks []shared.TrackMetadata) error {
	m.name = name
	m.tracks = tracks
	return m.err
}

type pipelineFixture struct {
	pipeline *Pipeline
	resolver *fakeResolver
	videos   *fakeVideos
	tagger   *recordingTagger
	ledger   *memoryLedger
	store    *countingStore
	dir      string
}

func newPipelineFixture(t *testing.T, res *fakeResolver, seed ...string) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		resolver: res,
		videos:   &fakeVideos{},
		tagger:   &recordingTagger{},
		ledger:   newMemoryLedger(seed...),
		store:    &countingStore{},
		dir:      t.TempDir(),
	}
	f.pipeline = &Pipeline{
		Resolver:      res,
		Videos:        f.videos,
		Transcoder:    &renameTranscoder{},
		Tagger:        f.tagger,
		Covers:        fakeCovers{},
		Ledger:        f.ledger,
		Store:         f.store,
		Logger:        NewConsoleLogger(),
		Warnings:      shared.NewWarningCollector(true),
		DownloadDir:   f.dir,
		RetryDeadline: time.Second,
		RetryDelay:    time.Millisecond,
	}
	return f
}

func sampleTrack(title, artist string) shared.TrackMetadata {
	return shared.TrackMetadata{
		Title:    title,
		Artist:   artist,
		Album:    "Album",
		CoverURL: "https://img.example/" + title,
		Link:     "https://open.spotify.com/track/" + title,
	}
}

func single(track shared.TrackMetadata, videoURL string) resolver.Result {
	return resolver.Result{Kind: resolver.ResultSingle, Track: &track, VideoURL: videoURL}
}

func TestProcessInputDownloadsTagsAndRecords(t *testing.T) {
	track := sampleTrack("Back In Blood", "Pooh Shiesty")
	f := newPipelineFixture(t, &fakeResolver{results: []resolver.Result{single(track, "")}})

	stats, err := f.pipeline.ProcessInput(context.Background(), "https://open.spotify.com/track/abc")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if stats.SuccessCount != 1 || stats.FailedCount != 0 {
		t.Fatalf("stats = %+v, want one success", stats)
	}

	if want := []string{"Back In Blood - Pooh Shiesty Audio"}; len(f.videos.queries) != 1 || f.videos.queries[0] != want[0] {
		t.Errorf("video searches = %v, want %v", f.videos.queries, want)
	}

	mp3 := filepath.Join(f.dir, "Pooh Shiesty - Back In Blood.mp3")
	if !shared.FileExists(mp3) {
		t.Fatalf("expected %s to exist", mp3)
	}
	if got := f.tagger.tagged[mp3]; got != track {
		t.Errorf("tagged %+v, want %+v", got, track)
	}
	if got := string(f.tagger.covers[mp3]); got != "jpeg:"+track.CoverURL {
		t.Errorf("cover = %q", got)
	}
	if !f.ledger.entries["Pooh Shiesty - Back In Blood"] {
		t.Errorf("ledger = %v, want the track recorded", f.ledger.order)
	}
	if f.store.flushes != 1 {
		t.Errorf("store flushed %d times, want 1", f.store.flushes)
	}
}

func TestProcessInputUsesDiscoveredVideo(t *testing.T) {
	track := sampleTrack("Some Song", "Artist")
	videoURL := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	f := newPipelineFixture(t, &fakeResolver{results: []resolver.Result{single(track, videoURL)}})

	if _, err := f.pipeline.ProcessInput(context.Background(), videoURL); err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if len(f.videos.queries) != 0 {
		t.Errorf("searched %v although the video was known", f.videos.queries)
	}
	if len(f.videos.streamed) != 1 || f.videos.streamed[0] != videoURL {
		t.Errorf("streamed %v, want %s", f.videos.streamed, videoURL)
	}
}

func TestProcessInputSkipsTitlesInHistory(t *testing.T) {
	track := sampleTrack("Some Song", "Artist")
	f := newPipelineFixture(t, &fakeResolver{results: []resolver.Result{single(track, "")}}, "Artist - Some Song")

	stats, err := f.pipeline.ProcessInput(context.Background(), "Artist - Some Song")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if stats.SkippedCount != 1 || stats.SuccessCount != 0 {
		t.Errorf("stats = %+v, want one skip", stats)
	}
	if len(f.videos.streamed) != 0 {
		t.Errorf("streamed %v for a title already in history", f.videos.streamed)
	}
	if f.pipeline.Warnings.GetWarningCount() != 1 {
		t.Errorf("warnings = %d, want 1", f.pipeline.Warnings.GetWarningCount())
	}
}

func TestTranscodeFailureStillRecordsTitle(t *testing.T) {
	track := sampleTrack("Some Song", "Artist")
	f := newPipelineFixture(t, &fakeResolver{results: []resolver.Result{single(track, "")}})
	f.pipeline.Transcoder = &renameTranscoder{err: fmt.Errorf("%w: ffmpeg exited 1", shared.ErrTranscodeFailure)}

	stats, err := f.pipeline.ProcessInput(context.Background(), "Artist - Some Song")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if stats.FailedCount != 1 {
		t.Errorf("stats = %+v, want one failure", stats)
	}
	if !f.ledger.entries["Artist - Some Song"] {
		t.Error("title was not recorded after a transcode failure")
	}
	entries, _ := os.ReadDir(f.dir)
	if len(entries) != 0 {
		t.Errorf("download folder not empty: %v", entries)
	}
}

func TestCoverFailureIsAWarning(t *testing.T) {
	track := sampleTrack("Some Song", "Artist")
	f := newPipelineFixture(t, &fakeResolver{results: []resolver.Result{single(track, "")}})
	f.pipeline.Covers = fakeCovers{err: errors.New("404")}

	stats, _ := f.pipeline.ProcessInput(context.Background(), "Artist - Some Song")
	if stats.SuccessCount != 1 {
		t.Errorf("stats = %+v, want one success", stats)
	}
	if got := f.pipeline.Warnings.GetWarningsByType()[shared.CoverArtDownloadWarning]; len(got) != 1 {
		t.Errorf("cover warnings = %v", got)
	}
}

func TestTimeoutRetriesWholeInput(t *testing.T) {
	track := sampleTrack("Some Song", "Artist")
	res := &fakeResolver{
		results: []resolver.Result{{}, single(track, "")},
		errs:    []error{fmt.Errorf("deezer: %w", shared.ErrNetworkTimeout), nil},
	}
	f := newPipelineFixture(t, res)

	stats, err := f.pipeline.ProcessInput(context.Background(), "Artist - Some Song")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if res.calls != 2 {
		t.Errorf("resolve calls = %d, want 2", res.calls)
	}
	if stats.SuccessCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTimeoutAbandonedAtDeadline(t *testing.T) {
	res := &fakeResolver{
		results: []resolver.Result{{}},
		errs:    []error{shared.ErrNetworkTimeout},
	}
	f := newPipelineFixture(t, res)
	f.pipeline.RetryDeadline = 30 * time.Millisecond
	f.pipeline.RetryDelay = 5 * time.Millisecond

	stats, err := f.pipeline.ProcessInput(context.Background(), "Artist - Some Song")
	if !errors.Is(err, shared.ErrNetworkTimeout) {
		t.Fatalf("error = %v, want ErrNetworkTimeout", err)
	}
	if stats.FailedCount != 1 {
		t.Errorf("stats = %+v, want one failure", stats)
	}
	if res.calls < 2 {
		t.Errorf("resolve calls = %d, want retries", res.calls)
	}
	if f.store.flushes != 1 {
		t.Errorf("store flushed %d times after a failure, want 1", f.store.flushes)
	}
}

func TestInvalidInputIsNotRetried(t *testing.T) {
	res := &fakeResolver{results: []resolver.Result{{}}, errs: []error{fmt.Errorf("gone: %w", shared.ErrInvalidResource)}}
	f := newPipelineFixture(t, res)

	_, err := f.pipeline.ProcessInput(context.Background(), "https://www.youtube.com/watch?v=gone")
	if !errors.Is(err, shared.ErrInvalidResource) {
		t.Fatalf("error = %v, want ErrInvalidResource", err)
	}
	if res.calls != 1 {
		t.Errorf("resolve calls = %d, want 1", res.calls)
	}

	if _, err := f.pipeline.ProcessInput(context.Background(), "https://example.com/x"); !errors.Is(err, shared.ErrInvalidResource) {
		t.Errorf("unsupported link error = %v", err)
	}
}

func TestCollectionDownloadsIntoFolderAndMirrors(t *testing.T) {
	one := sampleTrack("One", "Artist")
	three := sampleTrack("Three", "Artist")
	res := &fakeResolver{results: []resolver.Result{{
		Kind:   resolver.ResultCollection,
		Name:   "Road/Trip",
		Tracks: []shared.TrackMetadata{one, three},
	}}}
	f := newPipelineFixture(t, res, "Artist - Three")
	mirror := &recordingMirror{}
	f.pipeline.Mirror = mirror

	stats, err := f.pipeline.ProcessInput(context.Background(), "https://open.spotify.com/playlist/p")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if stats.SuccessCount != 1 || stats.SkippedCount != 1 {
		t.Errorf("stats = %+v, want one success and one skip", stats)
	}
	if !shared.FileExists(filepath.Join(f.dir, "Road_Trip", "Artist - One.mp3")) {
		t.Error("track not downloaded into the collection folder")
	}
	if mirror.name != "Road/Trip" || len(mirror.tracks) != 1 || mirror.tracks[0].Title != "One" {
		t.Errorf("mirrored %q %v", mirror.name, mirror.tracks)
	}
}

func TestMirrorFailureIsAWarning(t *testing.T) {
	res := &fakeResolver{results: []resolver.Result{{
		Kind:   resolver.ResultCollection,
		Name:   "Mix",
		Tracks: []shared.TrackMetadata{sampleTrack("One", "Artist")},
	}}}
	f := newPipelineFixture(t, res)
	f.pipeline.Mirror = &recordingMirror{err: errors.New("navidrome down")}

	if _, err := f.pipeline.ProcessInput(context.Background(), "https://open.spotify.com/album/a"); err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if got := f.pipeline.Warnings.GetWarningsByType()[shared.PlaylistSyncWarning]; len(got) != 1 {
		t.Errorf("playlist warnings = %v", got)
	}
}

func TestVideoPlaylistResolvesEachVideo(t *testing.T) {
	matched := sampleTrack("Song A", "Band")
	res := &fakeResolver{
		results: []resolver.Result{{
			Kind:      resolver.ResultCollection,
			Name:      "Videos",
			VideoURLs: []string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"},
		}},
		videos: map[string]resolver.Result{
			"https://youtu.be/a": single(matched, "https://youtu.be/a"),
			"https://youtu.be/b": {Kind: resolver.ResultUnmatched, Title: "Song B", Artist: "Someone", VideoURL: "https://youtu.be/b"},
		},
		videoErr: map[string]error{"https://youtu.be/c": shared.ErrInvalidResource},
	}
	f := newPipelineFixture(t, res)

	stats, err := f.pipeline.ProcessInput(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	if err != nil {
		t.Fatalf("ProcessInput() error = %v", err)
	}
	if stats.SuccessCount != 2 || stats.FailedCount != 1 {
		t.Errorf("stats = %+v, want 2 successes and 1 failure", stats)
	}
	want := []string{"https://youtu.be/a", "https://youtu.be/b"}
	if len(f.videos.streamed) != 2 || f.videos.streamed[0] != want[0] || f.videos.streamed[1] != want[1] {
		t.Errorf("streamed %v, want %v", f.videos.streamed, want)
	}
	unmatched := filepath.Join(f.dir, "Videos", "Someone - Song B.mp3")
	if got := f.tagger.tagged[unmatched]; got.Title != "Song B" || got.Artist != "Someone" || got.Album != "" {
		t.Errorf("unmatched track tagged %+v", got)
	}
}

func TestRunContinuesAfterFailures(t *testing.T) {
	track := sampleTrack("Some Song", "Artist")
	f := newPipelineFixture(t, &fakeResolver{results: []resolver.Result{single(track, "")}})

	stats := f.pipeline.Run(context.Background(), []string{"https://example.com/nope", "Artist - Some Song"})
	if stats.FailedCount != 1 || stats.SuccessCount != 1 {
		t.Errorf("stats = %+v, want one failure and one success", stats)
	}
}
