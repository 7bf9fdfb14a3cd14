package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Stable(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_ChangesWithScoringConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Matching.ConfidenceThreshold = 0.70

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_IgnoresExecutionTuning(t *testing.T) {
	a := Default()
	b := Default()
	b.Execution.MaxConcurrency = 5
	b.Execution.CallTimeout = time.Minute
	b.Cache.Directory = "/elsewhere"
	b.API.GitHubToken = "secret"

	// Tuning and credentials do not change results, so the cache key
	// must not change either
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestClamp_ConcurrencyBounds(t *testing.T) {
	cfg := Default()
	cfg.Execution.MaxConcurrency = 12
	cfg.clamp()
	assert.Equal(t, MaxConcurrencyCap, cfg.Execution.MaxConcurrency)

	cfg.Execution.MaxConcurrency = 0
	cfg.clamp()
	assert.Equal(t, 1, cfg.Execution.MaxConcurrency)
}

func TestWeekStartDay(t *testing.T) {
	cfg := Default()
	require.Equal(t, time.Monday, cfg.WeekStartDay())

	cfg.Periods.WeekStart = "sunday"
	assert.Equal(t, time.Sunday, cfg.WeekStartDay())

	cfg.Periods.WeekStart = "not-a-day"
	assert.Equal(t, time.Monday, cfg.WeekStartDay())
}
