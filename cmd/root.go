package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// CLI flags shared by all subcommands
	logLevel   string // Log verbosity level
	configPath string // Path to the world definition YAML
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "particle-sim",
	Short: "Distributed particle placement for spatially decomposed simulations",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "World definition YAML file")
}
