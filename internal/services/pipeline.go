package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spots/internal/core/downloader"
	"spots/internal/core/resolver"
	"spots/internal/interfaces"
	"spots/internal/shared"
)

const defaultRetryDelay = 2 * time.Second

// TrackResolver is the part of the resolver the pipeline drives
type TrackResolver interface {
	Resolve(ctx context.Context, ref shared.ResourceReference) (resolver.Result, error)
	ResolveVideo(ctx context.Context, videoURL string) (resolver.Result, error)
}

// CoverSource fetches embeddable cover art
type CoverSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pipeline takes one input from parsing to a tagged MP3 on disk
type Pipeline struct {
	Resolver   TrackResolver
	Videos     interfaces.VideoSource
	Transcoder interfaces.Transcoder
	Tagger     interfaces.TagWriter
	Covers     CoverSource
	Ledger     interfaces.HistoryLedger
	Store      interfaces.MetadataStore
	Mirror     interfaces.PlaylistMirror // optional
	Logger     interfaces.LoggerService
	Warnings   *shared.WarningCollector

	DownloadDir   string
	RetryDeadline time.Duration
	RetryDelay    time.Duration
}

// Run processes every input in order. A failing input never stops the batch.
func (p *Pipeline) Run(ctx context.Context, inputs []string) *shared.DownloadStats {
	total := &shared.DownloadStats{}
	for i, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		p.Logger.Info("🎵 [%d/%d] %s", i+1, len(inputs), input)
		stats, err := p.ProcessInput(ctx, input)
		if err != nil {
			p.Logger.Error("Failed to process %s: %v", input, err)
		}
		total.Add(stats)
	}
	return total
}

// ProcessInput parses, resolves and downloads one input. Resolution is
// retried on timeouts until RetryDeadline elapses. The metadata store is
// flushed afterwards whatever the outcome.
func (p *Pipeline) ProcessInput(ctx context.Context, input string) (*shared.DownloadStats, error) {
	stats := &shared.DownloadStats{}
	defer p.flushStore()

	ref, err := resolver.Parse(input)
	if err != nil {
		stats.FailedCount++
		stats.FailedItems = append(stats.FailedItems, input)
		return stats, err
	}

	var result resolver.Result
	err = p.retry(ctx, func(ctx context.Context) error {
		var resolveErr error
		result, resolveErr = p.Resolver.Resolve(ctx, ref)
		return resolveErr
	})
	if err != nil {
		stats.FailedCount++
		stats.FailedItems = append(stats.FailedItems, input)
		return stats, err
	}

	switch result.Kind {
	case resolver.ResultSingle:
		p.downloadTrack(ctx, *result.Track, result.VideoURL, p.DownloadDir, stats)
	case resolver.ResultUnmatched:
		p.downloadTrack(ctx, unmatchedTrack(result), result.VideoURL, p.DownloadDir, stats)
	case resolver.ResultCollection:
		p.downloadCollection(ctx, result, stats)
	}
	return stats, nil
}

// downloadCollection downloads into a folder named after the collection and
// mirrors what was downloaded when a mirror is configured
func (p *Pipeline) downloadCollection(ctx context.Context, result resolver.Result, stats *shared.DownloadStats) {
	dir := filepath.Join(p.DownloadDir, shared.SanitizeFileName(result.Name))
	p.Logger.Info("📁 %s: %d item%s", result.Name, len(result.Tracks)+len(result.VideoURLs), shared.Plural(len(result.Tracks)+len(result.VideoURLs)))

	var kept []shared.TrackMetadata
	for _, track := range result.Tracks {
		if ctx.Err() != nil {
			return
		}
		if p.downloadTrack(ctx, track, "", dir, stats) {
			kept = append(kept, track)
		}
	}

	for _, videoURL := range result.VideoURLs {
		if ctx.Err() != nil {
			return
		}
		track, err := p.resolveVideo(ctx, videoURL)
		if err != nil {
			p.Logger.Error("Skipping %s: %v", videoURL, err)
			stats.FailedCount++
			stats.FailedItems = append(stats.FailedItems, videoURL)
			continue
		}
		if p.downloadTrack(ctx, track, videoURL, dir, stats) {
			kept = append(kept, track)
		}
	}

	if p.Mirror != nil && len(kept) > 0 {
		if err := p.Mirror.MirrorPlaylist(result.Name, kept); err != nil {
			p.Logger.Warning("Could not mirror playlist %s: %v", result.Name, err)
			p.Warnings.AddPlaylistSyncWarning(result.Name, err.Error())
		} else {
			p.Logger.Success("Mirrored playlist %s", result.Name)
		}
	}
}

// resolveVideo resolves one item of a video playlist through the video path
func (p *Pipeline) resolveVideo(ctx context.Context, videoURL string) (shared.TrackMetadata, error) {
	var result resolver.Result
	err := p.retry(ctx, func(ctx context.Context) error {
		var resolveErr error
		result, resolveErr = p.Resolver.ResolveVideo(ctx, videoURL)
		return resolveErr
	})
	if err != nil {
		return shared.TrackMetadata{}, err
	}
	if result.Kind == resolver.ResultSingle {
		return *result.Track, nil
	}
	return unmatchedTrack(result), nil
}

// downloadTrack reports whether a new file was written. Titles already in
// the ledger are skipped before anything is downloaded.
func (p *Pipeline) downloadTrack(ctx context.Context, track shared.TrackMetadata, videoURL, dir string, stats *shared.DownloadStats) bool {
	entry := track.HistoryTitle()
	fail := func(format string, args ...interface{}) bool {
		p.Logger.Error(format, args...)
		stats.FailedCount++
		stats.FailedItems = append(stats.FailedItems, entry)
		return false
	}

	seen, err := p.Ledger.Contains(entry)
	if err != nil {
		return fail("History lookup for %s failed: %v", entry, err)
	}
	if seen {
		p.Logger.Info("⏭️  %s: %v", entry, shared.ErrDuplicateDownload)
		p.Warnings.AddTrackSkippedWarning(entry)
		stats.SkippedCount++
		return false
	}

	var audioPath string
	err = p.retry(ctx, func(ctx context.Context) error {
		if videoURL == "" {
			found, searchErr := p.Videos.SearchTop(ctx, fmt.Sprintf("%s - %s Audio", track.Title, track.Artist))
			if searchErr != nil {
				return searchErr
			}
			videoURL = found
		}
		var downloadErr error
		audioPath, downloadErr = downloader.DownloadAudio(ctx, p.Videos, videoURL, dir, downloader.OutputBaseName(track.Artist, track.Title))
		return downloadErr
	})
	if err != nil {
		return fail("Failed to download %s: %v", entry, err)
	}

	mp3Path, err := p.Transcoder.ToMP3(ctx, audioPath)
	if err != nil {
		p.record(entry)
		return fail("Failed to convert %s: %v", entry, err)
	}

	var cover []byte
	if track.CoverURL != "" {
		cover, err = p.Covers.Fetch(ctx, track.CoverURL)
		if err != nil {
			p.Warnings.AddCoverArtDownloadWarning(entry, err.Error())
		}
	}

	if err := p.Tagger.WriteTags(mp3Path, track, cover); err != nil {
		// an untagged file is not kept
		os.Remove(mp3Path)
		p.record(entry)
		return fail("Failed to tag %s: %v", entry, err)
	}

	p.record(entry)
	p.Logger.Success("%s", entry)
	stats.SuccessCount++
	return true
}

func (p *Pipeline) record(entry string) {
	if err := p.Ledger.Record(entry); err != nil {
		p.Logger.Warning("Could not record %s in history: %v", entry, err)
	}
}

func (p *Pipeline) flushStore() {
	if err := p.Store.Flush(); err != nil {
		p.Logger.Warning("Could not save metadata: %v", err)
	}
}

// retry re-runs fn on timeouts until the deadline; any other error ends it
func (p *Pipeline) retry(ctx context.Context, fn func(context.Context) error) error {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	err := shared.RetryUntilDeadline(ctx, p.RetryDeadline, delay, shared.IsTimeout, fn)
	if err != nil && shared.IsTimeout(err) && !errors.Is(err, shared.ErrNetworkTimeout) {
		err = fmt.Errorf("%w: %v", shared.ErrNetworkTimeout, err)
	}
	return err
}

// unmatchedTrack carries only what the video title told us
func unmatchedTrack(result resolver.Result) shared.TrackMetadata {
	return shared.TrackMetadata{
		Title:  result.Title,
		Artist: result.Artist,
		Link:   result.VideoURL,
	}
}
