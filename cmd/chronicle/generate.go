package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chronicle-dev/chronicle/internal/cache"
	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/coordinator"
	"github.com/chronicle-dev/chronicle/internal/errors"
	"github.com/chronicle-dev/chronicle/internal/git"
	"github.com/chronicle-dev/chronicle/internal/github"
	"github.com/chronicle-dev/chronicle/internal/matcher"
	"github.com/chronicle-dev/chronicle/internal/models"
	"github.com/chronicle-dev/chronicle/internal/oracle"
	"github.com/chronicle-dev/chronicle/internal/planner"
)

var (
	genStrategy    string
	genSince       string
	genUntil       string
	genOutput      string
	genFormat      string
	genNoCache     bool
	genConcurrency int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Analyze the repository and emit the aggregated period report",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genStrategy, "strategy", "", "period strategy: auto, daily, weekly, monthly, release")
	generateCmd.Flags().StringVar(&genSince, "since", "", "only analyze commits after this date (YYYY-MM-DD)")
	generateCmd.Flags().StringVar(&genUntil, "until", "", "only analyze commits before this date (YYYY-MM-DD)")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output file (default: stdout)")
	generateCmd.Flags().StringVar(&genFormat, "format", "yaml", "output format: yaml or json")
	generateCmd.Flags().BoolVar(&genNoCache, "no-cache", false, "recompute every period, ignoring cached analyses")
	generateCmd.Flags().IntVar(&genConcurrency, "concurrency", 0, "jobs per batch (default from config, capped at 5)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Flags override the resolved config; this is the only place layering
	// happens
	if genStrategy != "" {
		switch models.Strategy(genStrategy) {
		case models.StrategyAuto, models.StrategyDaily, models.StrategyWeekly,
			models.StrategyMonthly, models.StrategyRelease:
		default:
			return errors.InputErrorf("unknown strategy %q: use auto, daily, weekly, monthly, or release", genStrategy)
		}
		cfg.Periods.Strategy = genStrategy
	}
	if genConcurrency > 0 {
		cfg.Execution.MaxConcurrency = genConcurrency
		if cfg.Execution.MaxConcurrency > config.MaxConcurrencyCap {
			cfg.Execution.MaxConcurrency = config.MaxConcurrencyCap
		}
	}

	rng, err := parseRange(genSince, genUntil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := git.NewSource(cfg.Repo.Path)
	now := time.Now()

	logger.Info("Reading commit history...")
	commits, err := source.Commits(ctx, rng.Start, rng.End)
	if err != nil {
		return fmt.Errorf("read commit history: %w", err)
	}
	if len(commits) == 0 {
		logger.Warn("No commits in range, nothing to do")
		return nil
	}

	releases, err := collectReleases(ctx, source, commits)
	if err != nil {
		logger.WithError(err).Warn("Release detection incomplete, proceeding without some version events")
	}

	stats := planner.HistoryStats{
		CommitCount: len(commits),
		FirstCommit: commits[0].Timestamp,
		LastCommit:  commits[len(commits)-1].Timestamp,
	}
	strategy, warning := planner.ResolveStrategy(stats, releases, cfg, now)
	if warning != "" {
		logger.Warn(warning)
	}
	logger.WithField("strategy", strategy).Info("Planning periods")

	periods, _, err := planner.ComputePeriods(strategy, commits, releases, cfg, rng, now)
	if err != nil {
		return err
	}
	if len(periods) == 0 {
		logger.Warn("No non-empty periods, nothing to do")
		return nil
	}
	logger.WithField("periods", len(periods)).Info("Periods planned")

	var store *cache.Store
	if !genNoCache {
		store, err = cache.Open(cfg.Cache.Directory)
		if err != nil {
			logger.WithError(err).Warn("Cache unavailable, recomputing everything")
		} else {
			defer store.Close()
		}
	}

	artifactSource, artifactMatcher := buildMatching(store)
	textOracle := buildOracle()

	coord := coordinator.New(source, artifactSource, textOracle, artifactMatcher, store, cfg)
	result, err := coord.Run(ctx, periods)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"periods":      len(result.Periods),
		"cache_hits":   result.Execution.CacheHits,
		"retries":      result.Execution.Retries,
		"placeholders": result.Execution.Placeholders,
	}).Info("Analysis complete")

	return writeResult(result)
}

// collectReleases unions tag events with version bumps found in the
// configured version files.
func collectReleases(ctx context.Context, source *git.Source, commits []models.CommitRecord) ([]models.Release, error) {
	tags, err := source.Tags(ctx)
	if err != nil {
		return nil, err
	}

	var fileVersions []planner.FileVersion
	for _, commit := range commits {
		if !touchesVersionFile(commit, cfg.Repo.VersionFiles) {
			continue
		}
		version, err := source.VersionFileDiff(ctx, commit.Hash, cfg.Repo.VersionFiles)
		if err != nil {
			return planner.ComputeReleases(tags, fileVersions), err
		}
		if version != "" {
			fileVersions = append(fileVersions, planner.FileVersion{
				Version: version,
				Commit:  commit.Hash,
				Date:    commit.Timestamp,
			})
		}
	}

	return planner.ComputeReleases(tags, fileVersions), nil
}

func touchesVersionFile(commit models.CommitRecord, versionFiles []string) bool {
	for _, f := range commit.Stats.Files {
		for _, vf := range versionFiles {
			if f == vf {
				return true
			}
		}
	}
	return false
}

// buildMatching wires the artifact source and matcher when matching is
// enabled and a repository identity is configured. Anything missing is a
// data gap: the run proceeds with matching skipped.
func buildMatching(store *cache.Store) (coordinator.ArtifactSource, coordinator.ArtifactMatcher) {
	if !cfg.Matching.Enabled {
		return nil, nil
	}
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		logger.Debug("No repository owner/name configured, artifact matching disabled")
		return nil, nil
	}

	token := cfg.API.GitHubToken
	if token == "" {
		if stored, err := config.NewKeyringManager().GetGitHubToken(); err == nil {
			token = stored
		}
	}
	if token == "" {
		logger.Warn("No GitHub token available, artifact matching disabled (run 'chronicle auth login')")
		return nil, nil
	}

	client := github.NewClient(token, cfg.Repo.Owner, cfg.Repo.Name, cfg.API.GitHubRateLimit)

	var source coordinator.ArtifactSource = client
	if store != nil {
		source = github.NewCachedSource(client, store, cfg.Cache.TTL)
	}

	var textOracle oracle.Oracle
	if key := openAIKey(); key != "" {
		textOracle = oracle.NewOpenAIOracle(key, cfg.API.OpenAIModel, cfg.API.EmbeddingModel)
	}
	return source, matcher.New(textOracle, cfg.Matching)
}

// buildOracle returns the classification oracle: the OpenAI-backed one when
// a key is available, otherwise the deterministic keyword stub.
func buildOracle() oracle.Oracle {
	if key := openAIKey(); key != "" {
		return oracle.NewOpenAIOracle(key, cfg.API.OpenAIModel, cfg.API.EmbeddingModel)
	}
	logger.Info("No OpenAI key available, using keyword-based classification")
	return oracle.NewStubOracle()
}

func openAIKey() string {
	if cfg.API.OpenAIKey != "" {
		return cfg.API.OpenAIKey
	}
	if stored, err := config.NewKeyringManager().GetAPIKey(); err == nil {
		return stored
	}
	return ""
}

func parseRange(since, until string) (planner.Range, error) {
	var rng planner.Range
	if since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			return rng, errors.InputErrorf("invalid --since date %q: use YYYY-MM-DD", since)
		}
		rng.Start = t
	}
	if until != "" {
		t, err := time.Parse("2006-01-02", until)
		if err != nil {
			return rng, errors.InputErrorf("invalid --until date %q: use YYYY-MM-DD", until)
		}
		rng.End = t
	}
	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.Start.After(rng.End) {
		return rng, errors.InputErrorf("invalid range: --since %s is after --until %s", since, until)
	}
	return rng, nil
}

func writeResult(result *models.AggregatedResult) error {
	var data []byte
	var err error
	switch genFormat {
	case "json":
		data, err = json.MarshalIndent(result, "", "  ")
	case "yaml", "":
		data, err = yaml.Marshal(result)
	default:
		return errors.InputErrorf("unknown format %q: use yaml or json", genFormat)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if genOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(genOutput, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", genOutput, err)
	}
	logger.WithField("path", genOutput).Info("Result written")
	return nil
}
