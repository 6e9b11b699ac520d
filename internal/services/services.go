package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"spots/internal/api/deezer"
	"spots/internal/api/genius"
	"spots/internal/api/musicbrainz"
	"spots/internal/api/navidrome"
	"spots/internal/api/spotify"
	"spots/internal/api/youtube"
	"spots/internal/config"
	"spots/internal/core/downloader"
	"spots/internal/core/history"
	"spots/internal/core/resolver"
	"spots/internal/core/store"
	"spots/internal/interfaces"
	"spots/internal/shared"
)

// ServiceContainer holds all application services. There is one client per
// external service for the whole process.
type ServiceContainer struct {
	Config           *config.Config
	Logger           interfaces.LoggerService
	WarningCollector interfaces.WarningCollectorService
	Catalog          *spotify.SpotifyClient
	Videos           *youtube.Client
	Store            *store.JSONStore
	Ledger           interfaces.HistoryLedger
	Resolver         *resolver.Resolver
	Pipeline         *Pipeline

	closers []io.Closer
}

// NewServiceContainer authenticates the primary catalog and wires every
// service. Missing catalog credentials fail here, before any input runs.
func NewServiceContainer(ctx context.Context, cfg *config.Config, mirror bool) (*ServiceContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := NewConsoleLogger()
	logger.SetDebugMode(cfg.Debug)
	warningCollector := shared.NewWarningCollector(true)

	catalog := spotify.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	catalog.Timeout = config.RequestTimeout
	catalog.Debug = cfg.Debug
	if err := catalog.Authenticate(ctx); err != nil {
		return nil, err
	}

	deezerConfig := deezer.DefaultConfig()
	deezerConfig.Debug = cfg.Debug
	supplementary := deezer.NewClientWithConfig(deezerConfig)

	lyrics := genius.NewClient(cfg.GeniusToken)
	lyrics.Debug = cfg.Debug
	if cfg.GeniusToken == "" {
		logger.Warning("No Genius token configured, lyrics will be skipped")
	}

	videos := youtube.NewClient(config.RequestTimeout)
	videos.Debug = cfg.Debug

	metadataStore, err := store.Open(cfg.MetadataPath())
	if err != nil {
		// the store starts empty, nothing is lost
		logger.Warning("Could not load metadata store: %v", err)
	}

	ledger, closer, err := OpenLedger(cfg)
	if err != nil {
		return nil, err
	}

	deps := resolver.Deps{
		Catalog:       catalog,
		Supplementary: supplementary,
		Lyrics:        lyrics,
		Videos:        videos,
		Store:         metadataStore,
		Warnings:      warningCollector,
		Parallelism:   cfg.Parallelism,
		StrictLyrics:  cfg.StrictLyricsMatch,
		Debug:         cfg.Debug,
	}
	if cfg.EnrichGenres {
		genres := musicbrainz.NewClient()
		genres.SetDebug(cfg.Debug)
		deps.Genres = genres
	}
	res := resolver.New(deps)

	transcoder := downloader.NewFFmpegTranscoder(cfg.Bitrate)
	transcoder.Debug = cfg.Debug

	pipeline := &Pipeline{
		Resolver:      res,
		Videos:        videos,
		Transcoder:    transcoder,
		Tagger:        downloader.NewTagger(),
		Covers:        downloader.NewCoverFetcher(&http.Client{Timeout: config.RequestTimeout}, cfg.CoverSize),
		Ledger:        ledger,
		Store:         metadataStore,
		Logger:        logger,
		Warnings:      warningCollector,
		DownloadDir:   cfg.DownloadLocation,
		RetryDeadline: cfg.RetryDeadline(),
	}

	if mirror {
		if !cfg.NavidromeEnabled() {
			logger.Warning("Navidrome is not configured, playlists will not be mirrored")
		} else {
			client := navidrome.NewNavidromeClient(cfg.NavidromeURL, cfg.NavidromeUsername, cfg.NavidromePassword)
			client.Debug = cfg.Debug
			pipeline.Mirror = client
		}
	}

	container := &ServiceContainer{
		Config:           cfg,
		Logger:           logger,
		WarningCollector: warningCollector,
		Catalog:          catalog,
		Videos:           videos,
		Store:            metadataStore,
		Ledger:           ledger,
		Resolver:         res,
		Pipeline:         pipeline,
	}
	if closer != nil {
		container.closers = append(container.closers, closer)
	}
	return container, nil
}

// OpenLedger opens the history ledger of the configured backend. The closer
// is nil for the text backend.
func OpenLedger(cfg *config.Config) (interfaces.HistoryLedger, io.Closer, error) {
	switch cfg.HistoryBackend {
	case "sqlite":
		ledger, err := history.OpenSQLLedger(cfg.HistoryPath())
		if err != nil {
			return nil, nil, err
		}
		return ledger, ledger, nil
	case "text", "":
		return history.NewFileLedger(cfg.HistoryPath()), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
}

// Close flushes the metadata store and releases the ledger
func (c *ServiceContainer) Close() error {
	if err := c.Store.Flush(); err != nil {
		log.Printf("Failed to save metadata store: %v", err)
	}
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
