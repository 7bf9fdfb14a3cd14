package planner

import (
	"fmt"
	"time"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/errors"
	"github.com/chronicle-dev/chronicle/internal/models"
)

// Range optionally restricts planning to [Start, End). Zero values leave the
// corresponding side open.
type Range struct {
	Start time.Time
	End   time.Time
}

// unreleasedLabel names the trailing pseudo-period that reaches past "now".
const unreleasedLabel = "Unreleased"

// ComputePeriods partitions the commit timeline into ordered, non-overlapping
// periods. Membership is inclusive-start, exclusive-end, so every commit is
// primary in exactly one window. Windows with no commits are omitted, never
// emitted empty; windows whose commits are all merges are omitted when
// configured. Returns the periods and the release list annotated with
// superseded marks.
//
// A start date after the end date is a fatal input error, checked before any
// other work.
func ComputePeriods(strategy models.Strategy, commits []models.CommitRecord, releases []models.Release, cfg *config.Config, rng Range, now time.Time) ([]models.Period, []models.Release, error) {
	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.Start.After(rng.End) {
		return nil, nil, errors.InputErrorf("invalid range: start %s is after end %s",
			rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339))
	}

	commits = filterRange(commits, rng)
	if len(commits) == 0 {
		return nil, releases, nil
	}

	// The planning horizon is "now", or the range end when it is earlier
	horizon := now
	if !rng.End.IsZero() && rng.End.Before(horizon) {
		horizon = rng.End
	}

	annotated := make([]models.Release, len(releases))
	copy(annotated, releases)

	var periods []models.Period
	if strategy == models.StrategyRelease {
		periods = releasePeriods(commits, annotated, cfg, horizon)
	} else {
		periods = calendarPeriods(strategy, commits, annotated, cfg, horizon, now)
	}

	markFirstPeriod(periods, cfg.Periods.SummaryThreshold)
	return periods, annotated, nil
}

// calendarPeriods walks fixed calendar windows from the first commit to the
// horizon.
func calendarPeriods(strategy models.Strategy, commits []models.CommitRecord, releases []models.Release, cfg *config.Config, horizon, now time.Time) []models.Period {
	windowStart := alignDown(commits[0].Timestamp, strategy, cfg.WeekStartDay())

	var periods []models.Period
	idx := 0
	for windowStart.Before(horizon) {
		windowEnd := advance(windowStart, strategy)

		var window []models.CommitRecord
		for idx < len(commits) && commits[idx].Timestamp.Before(windowEnd) {
			if !commits[idx].Timestamp.Before(windowStart) {
				window = append(window, commits[idx])
			}
			idx++
		}

		if period, ok := buildPeriod(strategy, windowStart, windowEnd, window, releases, cfg); ok {
			// The window reaching past "now" is not a closed period yet
			if windowEnd.After(now) {
				period.Label = unreleasedLabel
				period.IsPartial = true
			}
			periods = append(periods, period)
		}

		windowStart = windowEnd
	}
	return periods
}

// releasePeriods cuts the timeline at each release date. Window ends are
// nudged one second past the release timestamp so the tagged commit itself
// lands inside its release window under the half-open membership rule.
func releasePeriods(commits []models.CommitRecord, releases []models.Release, cfg *config.Config, horizon time.Time) []models.Period {
	type boundary struct {
		at      time.Time
		release *models.Release
	}

	var boundaries []boundary
	for i := range releases {
		r := &releases[i]
		if r.Date.After(horizon) {
			continue
		}
		boundaries = append(boundaries, boundary{at: r.Date.Add(time.Second), release: r})
	}
	boundaries = append(boundaries, boundary{at: horizon})

	var periods []models.Period
	windowStart := commits[0].Timestamp
	idx := 0
	for _, b := range boundaries {
		windowEnd := b.at
		if !windowEnd.After(windowStart) {
			// Duplicate release timestamps create zero-width windows
			continue
		}

		var window []models.CommitRecord
		for idx < len(commits) && commits[idx].Timestamp.Before(windowEnd) {
			if !commits[idx].Timestamp.Before(windowStart) {
				window = append(window, commits[idx])
			}
			idx++
		}

		if len(window) > 0 && !(cfg.Periods.SkipMergeOnly && allMerges(window)) {
			period := models.Period{
				Kind:        models.PeriodKindRelease,
				Start:       windowStart,
				End:         windowEnd,
				StartCommit: window[0].Hash,
				EndCommit:   window[len(window)-1].Hash,
				CommitCount: len(window),
				Mode:        models.ModeFull,
			}
			if b.release != nil {
				period.ID = "release-" + b.release.Version
				period.Label = "v" + b.release.Version
				period.Tag = b.release.Tag
			} else {
				period.ID = "unreleased"
				period.Label = unreleasedLabel
				period.IsPartial = true
			}
			periods = append(periods, period)
		}

		windowStart = windowEnd
	}
	return periods
}

// buildPeriod assembles one calendar period, resolving release multiplicity:
// when several releases fall in the window only the highest version names the
// period, the rest are marked superseded.
func buildPeriod(strategy models.Strategy, start, end time.Time, window []models.CommitRecord, releases []models.Release, cfg *config.Config) (models.Period, bool) {
	if len(window) == 0 {
		return models.Period{}, false
	}
	if cfg.Periods.SkipMergeOnly && allMerges(window) {
		return models.Period{}, false
	}

	period := models.Period{
		ID:          periodID(strategy, start),
		Label:       periodLabel(strategy, start),
		Kind:        models.PeriodKindTime,
		Start:       start,
		End:         end,
		StartCommit: window[0].Hash,
		EndCommit:   window[len(window)-1].Hash,
		CommitCount: len(window),
		Mode:        models.ModeFull,
	}

	// Releases inside the window, highest version wins
	var winner *models.Release
	for i := range releases {
		r := &releases[i]
		if r.Date.Before(start) || !r.Date.Before(end) {
			continue
		}
		if winner == nil {
			winner = r
			continue
		}
		if compareVersions(r.Version, winner.Version) > 0 {
			winner.Superseded = true
			winner = r
		} else {
			r.Superseded = true
		}
	}
	if winner != nil {
		period.Tag = winner.Tag
		if period.Tag == "" {
			period.Tag = "v" + winner.Version
		}
	}

	return period, true
}

// markFirstPeriod flags the earliest emitted period and decides whether it
// should be summarized instead of enumerated.
func markFirstPeriod(periods []models.Period, summaryThreshold int) {
	if len(periods) == 0 {
		return
	}
	periods[0].IsFirst = true
	if summaryThreshold > 0 && periods[0].CommitCount > summaryThreshold {
		periods[0].Mode = models.ModeSummary
	}
}

// alignDown snaps t down to the nearest calendar boundary for the unit.
func alignDown(t time.Time, strategy models.Strategy, weekStart time.Weekday) time.Time {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())

	switch strategy {
	case models.StrategyDaily:
		return midnight
	case models.StrategyWeekly:
		back := (int(midnight.Weekday()) - int(weekStart) + 7) % 7
		return midnight.AddDate(0, 0, -back)
	case models.StrategyMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	default:
		return midnight
	}
}

// advance moves a window start forward by one unit.
func advance(t time.Time, strategy models.Strategy) time.Time {
	switch strategy {
	case models.StrategyDaily:
		return t.AddDate(0, 0, 1)
	case models.StrategyWeekly:
		return t.AddDate(0, 0, 7)
	case models.StrategyMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func periodID(strategy models.Strategy, start time.Time) string {
	switch strategy {
	case models.StrategyDaily:
		return start.Format("2006-01-02")
	case models.StrategyWeekly:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.StrategyMonthly:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

func periodLabel(strategy models.Strategy, start time.Time) string {
	switch strategy {
	case models.StrategyDaily:
		return start.Format("January 2, 2006")
	case models.StrategyWeekly:
		return "Week of " + start.Format("January 2, 2006")
	case models.StrategyMonthly:
		return start.Format("January 2006")
	default:
		return start.Format("January 2, 2006")
	}
}

func allMerges(commits []models.CommitRecord) bool {
	for _, c := range commits {
		if !c.IsMerge() {
			return false
		}
	}
	return true
}

func filterRange(commits []models.CommitRecord, rng Range) []models.CommitRecord {
	if rng.Start.IsZero() && rng.End.IsZero() {
		return commits
	}
	filtered := make([]models.CommitRecord, 0, len(commits))
	for _, c := range commits {
		if !rng.Start.IsZero() && c.Timestamp.Before(rng.Start) {
			continue
		}
		if !rng.End.IsZero() && !c.Timestamp.Before(rng.End) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
