package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/git"
	"github.com/chronicle-dev/chronicle/internal/models"
)

func TestDetectStrategy(t *testing.T) {
	cfg := config.Default() // daily >50/wk, weekly >10/wk, mature ~6 months
	now := day(2024, 6, 1)

	cases := []struct {
		name     string
		stats    HistoryStats
		releases []models.Release
		want     models.Strategy
	}{
		{
			name: "very active project reads daily",
			stats: HistoryStats{
				CommitCount: 1000,
				FirstCommit: now.AddDate(0, 0, -70), // 10 weeks, 100/wk
			},
			want: models.StrategyDaily,
		},
		{
			name: "active project reads weekly",
			stats: HistoryStats{
				CommitCount: 200,
				FirstCommit: now.AddDate(0, 0, -70), // 20/wk
			},
			want: models.StrategyWeekly,
		},
		{
			name: "old quiet project reads monthly",
			stats: HistoryStats{
				CommitCount: 100,
				FirstCommit: now.AddDate(-2, 0, 0), // ~1/wk over 2 years
			},
			want: models.StrategyMonthly,
		},
		{
			name: "young quiet project with releases reads by release",
			stats: HistoryStats{
				CommitCount: 20,
				FirstCommit: now.AddDate(0, -2, 0),
			},
			releases: []models.Release{{Version: "0.1.0"}},
			want:     models.StrategyRelease,
		},
		{
			name: "young quiet project without releases falls back to monthly",
			stats: HistoryStats{
				CommitCount: 20,
				FirstCommit: now.AddDate(0, -2, 0),
			},
			want: models.StrategyMonthly,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectStrategy(tc.stats, tc.releases, cfg, now)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveStrategy_ExplicitWinsWithWarning(t *testing.T) {
	cfg := config.Default()
	cfg.Periods.Strategy = string(models.StrategyRelease)
	now := day(2024, 6, 1)

	stats := HistoryStats{CommitCount: 100, FirstCommit: now.AddDate(0, -3, 0)}

	strategy, warning := ResolveStrategy(stats, nil, cfg, now)
	assert.Equal(t, models.StrategyRelease, strategy, "explicit directive wins")
	assert.NotEmpty(t, warning, "conflict with observed shape must warn")
}

func TestResolveStrategy_AutoDelegatesToDetection(t *testing.T) {
	cfg := config.Default()
	cfg.Periods.Strategy = string(models.StrategyAuto)
	now := day(2024, 6, 1)

	stats := HistoryStats{CommitCount: 1000, FirstCommit: now.AddDate(0, 0, -70)}

	strategy, warning := ResolveStrategy(stats, nil, cfg, now)
	assert.Equal(t, models.StrategyDaily, strategy)
	assert.Empty(t, warning)
}

func TestComputeReleases_TagWinsOverFileVersion(t *testing.T) {
	tags := []git.Tag{
		{Name: "v1.0.0", Date: day(2024, 1, 10), Commit: "tagcommit"},
	}
	fileVersions := []FileVersion{
		{Version: "1.0.0", Commit: "filecommit", Date: day(2024, 1, 9)},
		{Version: "1.1.0", Commit: "bumpcommit", Date: day(2024, 2, 1)},
	}

	releases := ComputeReleases(tags, fileVersions)
	assert.Len(t, releases, 2)

	assert.Equal(t, "1.0.0", releases[0].Version)
	assert.True(t, releases[0].FromTag, "duplicate version string prefers the tag-sourced event")
	assert.Equal(t, "tagcommit", releases[0].Commit)

	assert.Equal(t, "1.1.0", releases[1].Version)
	assert.False(t, releases[1].FromTag)
}

func TestComputeReleases_IgnoresNonVersionTags(t *testing.T) {
	tags := []git.Tag{
		{Name: "nightly", Date: day(2024, 1, 1)},
		{Name: "v2.0.0", Date: day(2024, 1, 2)},
		{Name: "latest", Date: day(2024, 1, 3)},
	}

	releases := ComputeReleases(tags, nil)
	assert.Len(t, releases, 1)
	assert.Equal(t, "2.0.0", releases[0].Version)
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.10.0", "1.9.0", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.0.0", "1.0.0-rc.1", 1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"v1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", 0},
	}
	for _, tc := range cases {
		got := compareVersions(tc.a, tc.b)
		assert.Equal(t, tc.want, sign(got), "compare(%q, %q)", tc.a, tc.b)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
