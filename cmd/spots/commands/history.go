package commands

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"spots/internal/core/history"
	"spots/internal/services"
	"spots/internal/shared"
)

// NewHistoryCommand groups the download history commands
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or seed the download history.",
	}

	importCmd := &cobra.Command{
		Use:   "import [folder]",
		Short: "Add the artist and title of every MP3 in a folder to the history.",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryImport,
	}

	checkCmd := &cobra.Command{
		Use:   "check [artist - title]",
		Short: "Report whether a title is in the history.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHistoryCheck,
	}

	cmd.AddCommand(importCmd, checkCmd)
	return cmd
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ledger, closer, err := services.OpenLedger(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	result, err := services.ImportHistory(args[0], ledger)
	if err != nil {
		return err
	}

	shared.ColorSuccess.Printf("✅ Added %d entr%s to the history\n", result.Added, pluralY(result.Added))
	if result.Present > 0 {
		shared.ColorInfo.Printf("⏭️  %d already present\n", result.Present)
	}
	for _, path := range result.Failed {
		shared.ColorWarning.Printf("⚠️ No artist/title tags in %s\n", path)
	}
	return nil
}

func runHistoryCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ledger, closer, err := services.OpenLedger(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	entry := strings.Join(args, " ")
	if artist, title, found := strings.Cut(entry, " - "); found {
		entry = history.FormatEntry(strings.TrimSpace(artist), strings.TrimSpace(title))
	}

	seen, err := ledger.Contains(entry)
	if err != nil {
		return err
	}
	if seen {
		shared.ColorSuccess.Printf("✅ %s is in the history\n", entry)
	} else {
		shared.ColorInfo.Printf("%s is not in the history\n", entry)
	}
	return nil
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		closer.Close()
	}
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
