package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/models"
	"github.com/chronicle-dev/chronicle/internal/oracle"
)

func matchCfg() config.MatchingConfig {
	return config.Default().Matching
}

func issueAt(id int, ts time.Time) models.Artifact {
	return models.Artifact{
		Kind:      models.ArtifactIssue,
		ID:        id,
		Title:     "tracked issue",
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestExplicitReferenceOverridesEverything(t *testing.T) {
	// A commit with an explicit "#41" reference, a far timestamp, and a low
	// semantic score still scores exactly 1.0
	commitTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	commit := models.CommitRecord{
		Hash:      "abc",
		Timestamp: commitTime,
		Message:   "fix: stop crash, fixes #41",
	}
	// Artifact timestamps a year away, far outside any temporal window
	artifact := issueAt(41, commitTime.AddDate(1, 0, 0))

	stub := oracle.NewStubOracle()
	stub.SetSimilarity(commit.Message, artifactText(artifact), 0.05)

	m := New(stub, matchCfg())
	refs, err := m.Match(context.Background(), commit, []models.Artifact{artifact})
	require.NoError(t, err)

	issues := refs[string(models.ArtifactIssue)]
	require.Len(t, issues, 1)
	assert.Equal(t, 1.0, issues[0].Confidence)
	assert.Equal(t, []models.MatchSignal{models.SignalExplicit}, issues[0].MatchedBy)
}

func TestExplicitIDPatterns(t *testing.T) {
	cases := map[string][]int{
		"fixes #12":                   {12},
		"Closes #3 and refs #4":       {3, 4},
		"see GH-77 for details":       {77},
		"gh-8 lowercase":              {8},
		"no references here":          nil,
		"issue 42 without marker":     nil,
		"anchor#9 still counts":       {9},
	}
	for message, want := range cases {
		got := explicitIDs(message)
		assert.Len(t, got, len(want), "message %q", message)
		for _, id := range want {
			assert.True(t, got[id], "message %q should reference %d", message, id)
		}
	}
}

func TestTemporalStepFunction(t *testing.T) {
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	windowDays := 30

	cases := []struct {
		daysAway int
		want     float64
		ok       bool
	}{
		{0, 1.0, true},
		{2, 0.90, true},
		{5, 0.80, true},
		{10, 0.60, true},
		{20, 0.40, true},
		{45, 0, false},
	}

	for _, tc := range cases {
		artifact := issueAt(1, commitTime.AddDate(0, 0, tc.daysAway))
		got, ok := temporalScore(commitTime, artifact, windowDays)
		assert.Equal(t, tc.ok, ok, "%d days away", tc.daysAway)
		assert.Equal(t, tc.want, got, "%d days away", tc.daysAway)
	}
}

func TestTemporalUsesClosestTimestamp(t *testing.T) {
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	closed := commitTime.AddDate(0, 0, 1)
	artifact := models.Artifact{
		Kind:      models.ArtifactIssue,
		ID:        1,
		CreatedAt: commitTime.AddDate(0, 0, -60), // far
		UpdatedAt: commitTime.AddDate(0, 0, -40), // far
		ClosedAt:  &closed,                       // one day away
	}

	got, ok := temporalScore(commitTime, artifact, 30)
	require.True(t, ok)
	assert.Equal(t, 0.90, got)
}

func TestSemanticRescale(t *testing.T) {
	if _, ok := rescaleSemantic(0.39); ok {
		t.Fatal("scores below the cutoff must be discarded")
	}

	low, ok := rescaleSemantic(0.40)
	require.True(t, ok)
	assert.InDelta(t, 0.40, low, 1e-9)

	high, ok := rescaleSemantic(1.0)
	require.True(t, ok)
	assert.InDelta(t, 0.95, high, 1e-9)

	mid, ok := rescaleSemantic(0.70)
	require.True(t, ok)
	assert.InDelta(t, 0.675, mid, 1e-9)
}

func TestCompositeBonusesAndClamp(t *testing.T) {
	cfg := matchCfg()

	// Temporal only
	assert.Equal(t, 0.90, compose(0.90, true, 0, false, false, 1, cfg))

	// Both signals cleared: max + 0.15
	got := compose(0.80, true, 0.60, true, false, 2, cfg)
	assert.InDelta(t, 0.95, got, 1e-9)

	// Three signals: max + 0.15 + 0.10 + 0.20, clamped to 1.0
	got = compose(1.0, true, 0.95, true, true, 3, cfg)
	assert.Equal(t, 1.0, got)

	// No cleared base means no reference regardless of bonuses
	assert.Equal(t, 0.0, compose(0, false, 0, false, true, 1, cfg))
}

func TestCompositeOrderIndependence(t *testing.T) {
	// Identical signal sets produce identical confidence no matter which
	// order candidates are evaluated in
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	commit := models.CommitRecord{
		Hash:      "abc",
		Timestamp: commitTime,
		Message:   "feat: add exporter",
	}

	a := issueAt(1, commitTime)
	b := issueAt(2, commitTime.AddDate(0, 0, 2))

	stub := oracle.NewStubOracle()
	stub.SetSimilarity(commit.Message, artifactText(a), 0.9)
	stub.SetSimilarity(commit.Message, artifactText(b), 0.9)

	m := New(stub, matchCfg())
	ctx := context.Background()

	forward, err := m.Match(ctx, commit, []models.Artifact{a, b})
	require.NoError(t, err)
	reverse, err := m.Match(ctx, commit, []models.Artifact{b, a})
	require.NoError(t, err)

	assert.Equal(t, forward, reverse)
	for _, refs := range forward {
		for _, ref := range refs {
			assert.LessOrEqual(t, ref.Confidence, 1.0)
		}
	}
}

func TestConfidenceGate(t *testing.T) {
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	commit := models.CommitRecord{Hash: "abc", Timestamp: commitTime, Message: "fix: minor tweak"}

	// 10 days away, no semantic signal: 0.60 < default 0.85 threshold
	artifact := issueAt(5, commitTime.AddDate(0, 0, 10))

	m := New(oracle.NewStubOracle(), matchCfg())
	refs, err := m.Match(context.Background(), commit, []models.Artifact{artifact})
	require.NoError(t, err)
	assert.Empty(t, refs)

	// Lowering the threshold lets the same reference through
	cfg := matchCfg()
	cfg.ConfidenceThreshold = 0.50
	m = New(oracle.NewStubOracle(), cfg)
	refs, err = m.Match(context.Background(), commit, []models.Artifact{artifact})
	require.NoError(t, err)
	require.Len(t, refs[string(models.ArtifactIssue)], 1)
	assert.Equal(t, 0.60, refs[string(models.ArtifactIssue)][0].Confidence)
}

func TestBranchBonusOnlyForPullRequests(t *testing.T) {
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	commit := models.CommitRecord{
		Hash:      "abc",
		Timestamp: commitTime,
		Message:   "feat: streaming export",
		Branch:    "feature/streaming",
	}

	pr := models.Artifact{
		Kind:         models.ArtifactPullRequest,
		ID:           9,
		Title:        "Streaming export",
		SourceBranch: "feature/streaming",
		CreatedAt:    commitTime.AddDate(0, 0, 5),
		UpdatedAt:    commitTime.AddDate(0, 0, 5),
	}

	cfg := matchCfg()
	cfg.ConfidenceThreshold = 0.5
	cfg.SemanticEnabled = false

	m := New(nil, cfg)
	refs, err := m.Match(context.Background(), commit, []models.Artifact{pr})
	require.NoError(t, err)

	prs := refs[string(models.ArtifactPullRequest)]
	require.Len(t, prs, 1)
	// Temporal 0.80 (5 days) + branch bonus 0.10
	assert.InDelta(t, 0.90, prs[0].Confidence, 1e-9)
	assert.Contains(t, prs[0].MatchedBy, models.SignalBranch)

	// Same shape on an issue gets no branch bonus
	issue := issueAt(9, commitTime.AddDate(0, 0, 5))
	issue.SourceBranch = "feature/streaming"
	refs, err = m.Match(context.Background(), commit, []models.Artifact{issue})
	require.NoError(t, err)
	issues := refs[string(models.ArtifactIssue)]
	require.Len(t, issues, 1)
	assert.InDelta(t, 0.80, issues[0].Confidence, 1e-9)
}

func TestTemporalWindowGatesOracle(t *testing.T) {
	// An artifact outside the window must not reach the oracle at all
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	commit := models.CommitRecord{Hash: "abc", Timestamp: commitTime, Message: "fix: something"}
	far := issueAt(3, commitTime.AddDate(0, 0, 90))

	calls := 0
	probe := &probeOracle{onSimilarity: func() { calls++ }}

	m := New(probe, matchCfg())
	refs, err := m.Match(context.Background(), commit, []models.Artifact{far})
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Zero(t, calls, "oracle must not be invoked outside the temporal window")
}

func TestSemanticFloorVetoesTemporal(t *testing.T) {
	commitTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	commit := models.CommitRecord{Hash: "abc", Timestamp: commitTime, Message: "fix: cache eviction"}
	artifact := issueAt(4, commitTime) // same-day temporal hit, 1.0

	stub := oracle.NewStubOracle()
	stub.SetSimilarity(commit.Message, artifactText(artifact), 0.10)

	cfg := matchCfg()
	cfg.SemanticFloor = 0.20
	m := New(stub, cfg)

	refs, err := m.Match(context.Background(), commit, []models.Artifact{artifact})
	require.NoError(t, err)
	assert.Empty(t, refs, "a semantic score below the floor vetoes the artifact")

	// With the floor at its default of 0, max-fusion keeps the temporal hit
	m = New(stub, matchCfg())
	refs, err = m.Match(context.Background(), commit, []models.Artifact{artifact})
	require.NoError(t, err)
	require.Len(t, refs[string(models.ArtifactIssue)], 1)
	assert.Equal(t, 1.0, refs[string(models.ArtifactIssue)][0].Confidence)
}

type probeOracle struct {
	onSimilarity func()
}

func (p *probeOracle) Classify(context.Context, string) (oracle.Classification, error) {
	return oracle.Classification{Category: "other"}, nil
}

func (p *probeOracle) Similarity(context.Context, string, string) (float64, error) {
	if p.onSimilarity != nil {
		p.onSimilarity()
	}
	return 0, nil
}
