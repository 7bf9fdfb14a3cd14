package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle - turn commit history into period-by-period change reports",
	Long: `Chronicle partitions a repository's history into chronological or
release-delimited periods, classifies the changes in each period, links
commits to issues, pull requests, milestones and projects with
confidence-scored matching, and emits one aggregated result for rendering.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		logCfg := logging.DebugConfig()
		if !verbose {
			logCfg.Level = logging.INFO
		}
		if err := logging.Initialize(logCfg); err != nil {
			logger.WithError(err).Warn("Failed to initialize structured logging")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .chronicle/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"chronicle %s (built %s, commit %s)\n", Version, BuildTime, GitCommit))
}
