package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"spots/internal/core/downloader"
	"spots/internal/services"
	"spots/internal/shared"
)

var errNoInputs = errors.New("nothing to download: pass links or titles, --file or --clipboard")

// NewDownloadCommand creates the download command
func NewDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [inputs...]",
		Short: "Download one or more links or titles.",
		Args:  cobra.ArbitraryArgs,
		RunE:  runDownloadCommand,
	}
	addDownloadFlags(cmd)
	return cmd
}

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Read inputs from a text file, one per line")
	cmd.Flags().BoolP("clipboard", "c", false, "Read one input from the clipboard")
	cmd.Flags().Bool("navidrome", false, "Mirror downloaded collections to a Navidrome playlist")
	cmd.Flags().String("download-dir", "", "Directory to save downloads")
}

func runDownloadCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	useClipboard, _ := cmd.Flags().GetBool("clipboard")
	mirror, _ := cmd.Flags().GetBool("navidrome")

	inputs, err := collectInputs(args, file, useClipboard, clipboard.ReadAll)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return cmd.Help()
	}

	if !downloader.CheckFFmpeg() {
		printInstallInstructions()
		return errors.New("ffmpeg not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := services.NewServiceContainer(ctx, cfg, mirror)
	if err != nil {
		return err
	}
	defer container.Close()

	container.Logger.Info("🎵 Processing %d input%s", len(inputs), shared.Plural(len(inputs)))
	stats := container.Pipeline.Run(ctx, inputs)

	container.WarningCollector.PrintSummary()
	printSummary(stats, cfg.DownloadLocation)
	return ctx.Err()
}

// collectInputs merges positional inputs, the lines of file and the
// clipboard, in that order
func collectInputs(args []string, file string, useClipboard bool, readClipboard func() (string, error)) ([]string, error) {
	inputs := make([]string, 0, len(args))
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			inputs = append(inputs, arg)
		}
	}

	if file != "" {
		lines, err := readInputFile(file)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, lines...)
	}

	if useClipboard {
		text, err := readClipboard()
		if err != nil {
			return nil, fmt.Errorf("failed to read clipboard: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("clipboard is empty: %w", errNoInputs)
		}
		inputs = append(inputs, text)
	}
	return inputs, nil
}

// readInputFile returns the non-blank lines of path. Lines starting with '#'
// are comments.
func readInputFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return lines, nil
}

func printSummary(stats *shared.DownloadStats, location string) {
	if stats.SuccessCount == 0 && stats.FailedCount == 0 && stats.SkippedCount == 0 {
		return
	}

	fmt.Printf("\n")
	shared.ColorInfo.Printf("📊 Download Summary:\n")
	if stats.SuccessCount > 0 {
		shared.ColorSuccess.Printf("✅ Successfully downloaded: %d track%s\n", stats.SuccessCount, shared.Plural(stats.SuccessCount))
	}
	if stats.SkippedCount > 0 {
		shared.ColorWarning.Printf("⏭️  Skipped (already in history): %d track%s\n", stats.SkippedCount, shared.Plural(stats.SkippedCount))
	}
	if stats.FailedCount > 0 {
		shared.ColorError.Printf("❌ Failed: %d item%s\n", stats.FailedCount, shared.Plural(stats.FailedCount))
		if len(stats.FailedItems) > 0 {
			shared.ColorError.Printf("   Failed items: %s\n", strings.Join(stats.FailedItems, ", "))
		}
	}
	if stats.SuccessCount > 0 {
		shared.ColorSuccess.Printf("📁 Saved to: %s\n", location)
	}
}

func printInstallInstructions() {
	shared.ColorError.Println("❌ ffmpeg is required to convert downloads to MP3 but was not found in PATH.")
	fmt.Println("Install it with one of:")
	fmt.Println("  macOS:          brew install ffmpeg")
	fmt.Println("  Debian/Ubuntu:  sudo apt install ffmpeg")
	fmt.Println("  Windows:        winget install ffmpeg")
}
