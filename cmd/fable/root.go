package main

import (
	"fmt"
	"os"

	"github.com/aretw0/fable/internal/config"
	"github.com/spf13/cobra"
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fable",
	Short: "Fable is a scriptable interactive fiction engine",
	Long: `Fable plays stories made of states, transitions and Lua scripts.
Content is read from a directory or a bucket URL; games can be saved to memory,
files, Redis or a bucket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("assets") {
			loaded.Assets, _ = cmd.Flags().GetString("assets")
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			loaded.LogLevel = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringP("assets", "a", "", "Directory or bucket URL holding the story assets")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
