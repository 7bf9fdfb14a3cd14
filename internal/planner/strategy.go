package planner

import (
	"fmt"
	"time"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/models"
)

// HistoryStats are the aggregate numbers strategy detection works from.
type HistoryStats struct {
	CommitCount int
	FirstCommit time.Time
	LastCommit  time.Time
}

// Age returns the project age as of now.
func (s HistoryStats) Age(now time.Time) time.Duration {
	if s.FirstCommit.IsZero() {
		return 0
	}
	return now.Sub(s.FirstCommit)
}

// CommitsPerWeek returns the average commit frequency over the project age.
func (s HistoryStats) CommitsPerWeek(now time.Time) float64 {
	age := s.Age(now)
	weeks := age.Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}
	return float64(s.CommitCount) / weeks
}

// DetectStrategy picks a partitioning strategy from commit frequency.
// The thresholds are configuration, documented as approximations: a very
// active project reads better day by day, a quiet mature one month by month,
// and a young project with releases is best told release by release.
func DetectStrategy(stats HistoryStats, releases []models.Release, cfg *config.Config, now time.Time) models.Strategy {
	perWeek := stats.CommitsPerWeek(now)

	switch {
	case perWeek > cfg.Periods.DailyThreshold:
		return models.StrategyDaily
	case perWeek > cfg.Periods.WeeklyThreshold:
		return models.StrategyWeekly
	case stats.Age(now) > cfg.Periods.MatureAge:
		return models.StrategyMonthly
	case len(releases) > 0:
		return models.StrategyRelease
	default:
		return models.StrategyMonthly
	}
}

// ResolveStrategy returns the strategy to use plus a warning when an explicit
// choice conflicts with the observed repository shape. The explicit directive
// always wins; the conflict is surfaced, never enforced.
func ResolveStrategy(stats HistoryStats, releases []models.Release, cfg *config.Config, now time.Time) (models.Strategy, string) {
	explicit := models.Strategy(cfg.Periods.Strategy)
	detected := DetectStrategy(stats, releases, cfg, now)

	if explicit == models.StrategyAuto || explicit == "" {
		return detected, ""
	}

	var warning string
	switch {
	case explicit == models.StrategyRelease && len(releases) == 0:
		warning = "release strategy requested but no releases were found; periods will be empty until a release exists"
	case explicit == models.StrategyDaily && stats.CommitsPerWeek(now) < cfg.Periods.WeeklyThreshold:
		warning = fmt.Sprintf("daily strategy requested but the project averages %.1f commits/week; most days will be empty",
			stats.CommitsPerWeek(now))
	case explicit != detected && stats.CommitCount > 0:
		warning = fmt.Sprintf("explicit %s strategy differs from detected %s; proceeding with %s",
			explicit, detected, explicit)
	}

	return explicit, warning
}
