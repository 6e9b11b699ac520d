package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"spots/internal/config"
	"spots/internal/shared"
)

// NewConfigCommand groups the configuration commands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file.",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file.",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")

	if shared.FileExists(path) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
		return err
	}
	shared.ColorSuccess.Printf("✅ Wrote %s\n", path)
	fmt.Println("Add your Spotify client id and secret, or set SPOTIPY_CLIENT_ID and SPOTIPY_CLIENT_SECRET.")
	return nil
}
