package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/errors"
	"github.com/chronicle-dev/chronicle/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func commitAt(hash string, ts time.Time) models.CommitRecord {
	return models.CommitRecord{Hash: hash, Timestamp: ts, Author: "alice", Message: "feat: " + hash}
}

func mergeAt(hash string, ts time.Time) models.CommitRecord {
	return models.CommitRecord{Hash: hash, Timestamp: ts, Author: "bob", Message: "Merge branch 'x' into main"}
}

func TestWeeklyPeriods_JanuaryExample(t *testing.T) {
	// 5 commits spanning 2024-01-01..2024-01-10, weekly strategy with Monday
	// start: exactly two periods, 3 commits then 2, and the trailing partial
	// week touching "today" is relabeled Unreleased.
	commits := []models.CommitRecord{
		commitAt("c1", day(2024, 1, 1)),
		commitAt("c2", day(2024, 1, 3)),
		commitAt("c3", day(2024, 1, 6)),
		commitAt("c4", day(2024, 1, 8)),
		commitAt("c5", day(2024, 1, 10)),
	}
	now := day(2024, 1, 10)

	periods, _, err := ComputePeriods(models.StrategyWeekly, commits, nil, config.Default(), Range{}, now)
	require.NoError(t, err)
	require.Len(t, periods, 2)

	first := periods[0]
	assert.Equal(t, "2024-W01", first.ID)
	assert.Equal(t, 3, first.CommitCount)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), first.End)
	assert.True(t, first.IsFirst)
	assert.Equal(t, models.ModeFull, first.Mode)
	assert.Equal(t, "c1", first.StartCommit)
	assert.Equal(t, "c3", first.EndCommit)

	second := periods[1]
	assert.Equal(t, 2, second.CommitCount)
	assert.Equal(t, unreleasedLabel, second.Label)
	assert.True(t, second.IsPartial)
}

func TestPeriods_PrimaryAttributionPartition(t *testing.T) {
	// Every commit is primary in exactly one period and none is lost
	var commits []models.CommitRecord
	base := day(2023, 3, 1)
	for i := 0; i < 60; i++ {
		commits = append(commits, commitAt(fmt.Sprintf("c%02d", i), base.AddDate(0, 0, i)))
	}
	now := base.AddDate(0, 0, 90)

	for _, strategy := range []models.Strategy{models.StrategyDaily, models.StrategyWeekly, models.StrategyMonthly} {
		periods, _, err := ComputePeriods(strategy, commits, nil, config.Default(), Range{}, now)
		require.NoError(t, err, "strategy %s", strategy)

		total := 0
		for i, p := range periods {
			total += p.CommitCount
			if i > 0 {
				assert.False(t, p.Start.Before(periods[i-1].End),
					"strategy %s: period %d overlaps previous", strategy, i)
			}
		}
		assert.Equal(t, len(commits), total, "strategy %s: commits lost or double counted", strategy)
	}
}

func TestPeriods_EmptyWeekOmitted(t *testing.T) {
	// Commits in week 1 and week 3; week 2 has none and must not appear
	commits := []models.CommitRecord{
		commitAt("c1", day(2024, 1, 2)),
		commitAt("c2", day(2024, 1, 16)),
	}
	now := day(2024, 1, 31)

	periods, _, err := ComputePeriods(models.StrategyWeekly, commits, nil, config.Default(), Range{}, now)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "2024-W01", periods[0].ID)
	assert.Equal(t, "2024-W03", periods[1].ID)
}

func TestPeriods_MergeOnlyWeekOmitted(t *testing.T) {
	commits := []models.CommitRecord{
		commitAt("c1", day(2024, 1, 2)),
		mergeAt("m1", day(2024, 1, 9)),
		mergeAt("m2", day(2024, 1, 10)),
		commitAt("c2", day(2024, 1, 16)),
	}
	now := day(2024, 1, 31)

	cfg := config.Default()
	cfg.Periods.SkipMergeOnly = true
	periods, _, err := ComputePeriods(models.StrategyWeekly, commits, nil, cfg, Range{}, now)
	require.NoError(t, err)
	require.Len(t, periods, 2, "merge-only week must be omitted")

	// With the flag off the merge-only week is a normal period
	cfg.Periods.SkipMergeOnly = false
	periods, _, err = ComputePeriods(models.StrategyWeekly, commits, nil, cfg, Range{}, now)
	require.NoError(t, err)
	assert.Len(t, periods, 3)
}

func TestPeriods_FirstPeriodSummaryMode(t *testing.T) {
	build := func(n int) []models.CommitRecord {
		var commits []models.CommitRecord
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			commits = append(commits, commitAt(fmt.Sprintf("c%03d", i), base.Add(time.Duration(i)*time.Minute)))
		}
		// A later commit so the first period is not also the last
		commits = append(commits, commitAt("later", day(2024, 1, 10)))
		return commits
	}
	now := day(2024, 1, 20)
	cfg := config.Default()
	cfg.Periods.SummaryThreshold = 100

	periods, _, err := ComputePeriods(models.StrategyWeekly, build(150), nil, cfg, Range{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, periods)
	assert.Equal(t, models.ModeSummary, periods[0].Mode, "150 commits over threshold 100")

	periods, _, err = ComputePeriods(models.StrategyWeekly, build(50), nil, cfg, Range{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, periods)
	assert.Equal(t, models.ModeFull, periods[0].Mode, "50 commits under threshold 100")
}

func TestPeriods_StartAfterEndIsFatal(t *testing.T) {
	commits := []models.CommitRecord{commitAt("c1", day(2024, 1, 1))}

	_, _, err := ComputePeriods(models.StrategyWeekly, commits,
		nil, config.Default(),
		Range{Start: day(2024, 2, 1), End: day(2024, 1, 1)}, day(2024, 3, 1))

	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, errors.ErrorTypeInput, errors.GetType(err))
}

func TestPeriods_NoCommitsNoPeriods(t *testing.T) {
	periods, _, err := ComputePeriods(models.StrategyWeekly, nil, nil, config.Default(), Range{}, day(2024, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestPeriods_ReleaseMultiplicitySuperseded(t *testing.T) {
	commits := []models.CommitRecord{
		commitAt("c1", day(2024, 1, 1)),
		commitAt("c2", day(2024, 1, 3)),
		commitAt("c3", day(2024, 1, 10)),
	}
	releases := []models.Release{
		{Version: "1.0.0", Tag: "v1.0.0", Date: day(2024, 1, 2)},
		{Version: "1.0.1", Tag: "v1.0.1", Date: day(2024, 1, 4)},
	}
	now := day(2024, 1, 20)

	periods, annotated, err := ComputePeriods(models.StrategyWeekly, commits, releases, config.Default(), Range{}, now)
	require.NoError(t, err)
	require.NotEmpty(t, periods)

	// Both releases fall in the first week; only the highest names it
	assert.Equal(t, "v1.0.1", periods[0].Tag)

	superseded := 0
	for _, r := range annotated {
		if r.Superseded {
			superseded++
			assert.Equal(t, "1.0.0", r.Version)
		}
	}
	assert.Equal(t, 1, superseded)
}

func TestReleasePeriods(t *testing.T) {
	commits := []models.CommitRecord{
		commitAt("c1", day(2024, 1, 1)),
		commitAt("c2", day(2024, 1, 5)),
		commitAt("c3", day(2024, 2, 1)),
		commitAt("c4", day(2024, 2, 20)),
	}
	releases := []models.Release{
		{Version: "0.1.0", Tag: "v0.1.0", Commit: "c2", Date: day(2024, 1, 5)},
		{Version: "0.2.0", Tag: "v0.2.0", Commit: "c3", Date: day(2024, 2, 1)},
	}
	now := day(2024, 3, 1)

	periods, _, err := ComputePeriods(models.StrategyRelease, commits, releases, config.Default(), Range{}, now)
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, "release-0.1.0", periods[0].ID)
	assert.Equal(t, models.PeriodKindRelease, periods[0].Kind)
	assert.Equal(t, 2, periods[0].CommitCount, "tagged commit belongs to its release window")

	assert.Equal(t, "release-0.2.0", periods[1].ID)
	assert.Equal(t, 1, periods[1].CommitCount)

	assert.Equal(t, unreleasedLabel, periods[2].Label)
	assert.True(t, periods[2].IsPartial)
	assert.Equal(t, 1, periods[2].CommitCount)
}

func TestMonthlyAlignment(t *testing.T) {
	aligned := alignDown(day(2024, 3, 17), models.StrategyMonthly, time.Monday)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), aligned)

	// Sunday week start backs a Wednesday up to the previous Sunday
	aligned = alignDown(day(2024, 1, 3), models.StrategyWeekly, time.Sunday)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), aligned)
}
