// Package cli provides the command-line interface for jobsurfer.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/jobsurfer/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jobsurfer",
	Short: "Autonomous, budget-bounded job posting discovery",
	Long: `Jobsurfer explores company websites looking for job postings that
match a configured role profile. Each run is bounded by a visit cap, a
satisfaction threshold and a model spend budget, and what it learns
about each site persists across runs.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sitesCmd)
}
