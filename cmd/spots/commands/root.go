package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"spots/internal/config"
	"spots/internal/shared"
)

const toolVersion = "1.0.0"

// NewRootCommand builds the spots command tree. Running the root command
// with inputs is the same as running download.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spots [inputs...]",
		Version: toolVersion,
		Short:   "Download tagged MP3s from Spotify links, YouTube links or song titles.",
		Long: fmt.Sprintf(`spots (v%s)

Finds the audio of a Spotify track, album or playlist, a YouTube video or
playlist, or a free-text title on YouTube, converts it to MP3 and tags it with
metadata from Spotify, Deezer and Genius.

Titles already in the download history are skipped.`, toolVersion),
		Args:          cobra.ArbitraryArgs,
		RunE:          runDownloadCommand,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultConfigFile, "Path to the JSON config file")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	addDownloadFlags(cmd)

	cmd.AddCommand(NewDownloadCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewConfigCommand())
	return cmd
}

// Execute runs the root command
func Execute() error {
	shared.InitializeColors()
	err := NewRootCommand().Execute()
	if err != nil {
		shared.ColorError.Printf("❌ %v\n", err)
	}
	return err
}

// loadConfig reads the config file named by --config and applies the
// command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug || shared.IsDebugMode() {
		cfg.Debug = true
	}
	if cmd.Flags().Lookup("download-dir") != nil {
		if dir, _ := cmd.Flags().GetString("download-dir"); dir != "" {
			cfg.DownloadLocation = dir
		}
	}
	return cfg, nil
}
