package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronicle-dev/chronicle/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the analysis cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache contents and the active configuration fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(cfg.Cache.Directory)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stat()
		if err != nil {
			return err
		}

		fmt.Printf("Cache: %s\n", store.Path())
		fmt.Printf("  Cached period analyses: %d\n", st.Analyses)
		fmt.Printf("  Artifact kind partitions: %d\n", st.ArtifactKinds)
		if st.Fingerprint != "" {
			fmt.Printf("  Stored fingerprint: %s\n", st.Fingerprint)
		}
		fmt.Printf("  Current fingerprint: %s\n", cfg.Fingerprint())
		if st.Fingerprint != "" && st.Fingerprint != cfg.Fingerprint() {
			fmt.Println("  Note: fingerprints differ; the next run will invalidate the cache")
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached analysis and artifact list",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(cfg.Cache.Directory)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return err
		}
		logger.Info("Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
