package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// CLI flags shared by all subcommands
	logLevel string // Log verbosity level
	seed     int64  // Master seed for all random draws
	output   string // Directory to write output files
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "appointments-sim",
	Short: "Train and apply a primary care appointments model over a simulated population",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Master seed for batch sampling, noise and privacy draws")
	rootCmd.PersistentFlags().StringVar(&output, "output", "output", "Directory to write output files")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
