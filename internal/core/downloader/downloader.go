package downloader

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"spots/internal/interfaces"
	"spots/internal/shared"
)

// DownloadAudio streams the best audio of videoURL into dir as
// "<baseName>.<ext>", the extension taken from the stream's mime type. A
// partial file is removed on failure.
func DownloadAudio(ctx context.Context, videos interfaces.VideoSource, videoURL, dir, baseName string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	partPath := filepath.Join(dir, baseName+".part")
	out, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	mimeType, err := videos.Stream(ctx, videoURL, out)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return "", err
	}

	outputPath := filepath.Join(dir, baseName+"."+extensionFor(mimeType))
	if err := os.Rename(partPath, outputPath); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}
	return outputPath, nil
}

// extensionFor maps "audio/webm; codecs=opus" to "webm"
func extensionFor(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = mimeType
	}
	_, subtype, found := strings.Cut(mediaType, "/")
	if !found || subtype == "" {
		return "audio"
	}
	return subtype
}

// OutputBaseName is the file name, without extension, for a track
func OutputBaseName(artist, title string) string {
	return strings.TrimSuffix(shared.TrackFileName(artist, title), ".mp3")
}
