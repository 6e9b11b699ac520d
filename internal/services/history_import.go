package services

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"spots/internal/core/downloader"
	"spots/internal/core/history"
	"spots/internal/interfaces"
)

// ImportResult counts what ImportHistory did
type ImportResult struct {
	Added   int
	Present int
	Failed  []string
}

// ImportHistory seeds the ledger from the ID3 artist and title of every MP3
// below dir. Files without a title are reported as failed.
func ImportHistory(dir string, ledger interfaces.HistoryLedger) (*ImportResult, error) {
	result := &ImportResult{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mp3") {
			return nil
		}

		artist, title, err := downloader.ReadArtistTitle(path)
		if err != nil || title == "" {
			result.Failed = append(result.Failed, path)
			return nil
		}

		entry := history.FormatEntry(artist, title)
		seen, err := ledger.Contains(entry)
		if err != nil {
			return err
		}
		if seen {
			result.Present++
			return nil
		}
		if err := ledger.Record(entry); err != nil {
			return err
		}
		result.Added++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("history import from %s: %w", dir, err)
	}
	return result, nil
}
