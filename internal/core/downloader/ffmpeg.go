package downloader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"spots/internal/shared"
)

// CheckFFmpeg checks if ffmpeg is installed and available in the system's PATH.
func CheckFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// FFmpegTranscoder converts downloaded audio streams to MP3 with ffmpeg
type FFmpegTranscoder struct {
	Binary  string
	Bitrate string // kbps
	Debug   bool
}

// NewFFmpegTranscoder creates a transcoder using the ffmpeg found in PATH
func NewFFmpegTranscoder(bitrate string) *FFmpegTranscoder {
	if bitrate == "" {
		bitrate = "192"
	}
	return &FFmpegTranscoder{Binary: "ffmpeg", Bitrate: bitrate}
}

// ToMP3 converts inputPath to an MP3 next to it and removes the source. Any
// failure is reported as shared.ErrTranscodeFailure and the source is
// removed as well.
func (t *FFmpegTranscoder) ToMP3(ctx context.Context, inputPath string) (string, error) {
	if !shared.FileExists(inputPath) {
		return "", fmt.Errorf("%w: %s not found", shared.ErrTranscodeFailure, inputPath)
	}

	outputFile := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mp3"
	if outputFile == inputPath {
		outputFile = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".transcoded.mp3"
	}

	cmd := exec.CommandContext(ctx, t.Binary,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-vn", "-codec:a", "libmp3lame", "-b:a", t.Bitrate+"k",
		"-map_metadata", "-1",
		outputFile)

	shared.DebugPrint(t.Debug, "Running %s", strings.Join(cmd.Args, " "))
	output, err := cmd.CombinedOutput()
	os.Remove(inputPath)
	if err != nil {
		os.Remove(outputFile)
		return "", fmt.Errorf("%w: ffmpeg: %v\nffmpeg output: %s", shared.ErrTranscodeFailure, err, string(output))
	}

	// Verify that the output file was created
	if !shared.FileExists(outputFile) {
		return "", fmt.Errorf("%w: converted file not found after conversion", shared.ErrTranscodeFailure)
	}
	return outputFile, nil
}
