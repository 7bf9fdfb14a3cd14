// Package matcher links commits to externally tracked artifacts with a
// composite probabilistic confidence. Four independent signals are fused:
// explicit id references, temporal correlation, semantic similarity, and
// branch identity. The fusion is deterministic and order-independent for a
// given signal set.
package matcher

import (
	"context"
	"sort"

	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/models"
	"github.com/chronicle-dev/chronicle/internal/oracle"
)

// Matcher scores commits against candidate artifacts.
type Matcher struct {
	oracle oracle.Oracle
	cfg    config.MatchingConfig
}

// New creates a matcher. oracle may be nil when the semantic stage is
// disabled; the remaining stages still run.
func New(o oracle.Oracle, cfg config.MatchingConfig) *Matcher {
	return &Matcher{oracle: o, cfg: cfg}
}

// Match scores one commit against the candidates and returns the surviving
// references grouped by kind, each group sorted by descending confidence.
// References below the configured threshold are discarded.
func (m *Matcher) Match(ctx context.Context, commit models.CommitRecord, candidates []models.Artifact) (map[string][]models.ArtifactReference, error) {
	var ids map[int]bool
	if m.cfg.ExplicitEnabled {
		ids = explicitIDs(commit.Message)
	}

	var refs []models.ArtifactReference
	for _, artifact := range candidates {
		ref, ok, err := m.score(ctx, commit, artifact, ids)
		if err != nil {
			return nil, err
		}
		if ok {
			refs = append(refs, ref)
		}
	}

	return groupByKind(refs), nil
}

// score runs the four stages for a single artifact.
func (m *Matcher) score(ctx context.Context, commit models.CommitRecord, artifact models.Artifact, explicit map[int]bool) (models.ArtifactReference, bool, error) {
	// Stage 1: an explicit id mention is certainty; nothing else can raise
	// or lower it, so remaining stages are skipped outright
	if explicit[artifact.ID] {
		return models.ArtifactReference{
			Kind:       artifact.Kind,
			ID:         artifact.ID,
			Confidence: 1.0,
			MatchedBy:  []models.MatchSignal{models.SignalExplicit},
		}, true, nil
	}

	// Stage 2: temporal correlation, also the cost gate. Artifacts outside
	// the window are not evaluated further.
	temporal, temporalOK := 0.0, false
	if m.cfg.TemporalEnabled {
		temporal, temporalOK = temporalScore(commit.Timestamp, artifact, m.cfg.TemporalWindowDays)
	}
	if !temporalOK {
		return models.ArtifactReference{}, false, nil
	}

	// Stage 3: semantic similarity via the oracle
	semantic, semanticOK := 0.0, false
	if m.cfg.SemanticEnabled && m.oracle != nil {
		raw, err := m.oracle.Similarity(ctx, commit.Message, artifactText(artifact))
		if err != nil {
			return models.ArtifactReference{}, false, err
		}
		if m.cfg.SemanticFloor > 0 && raw < m.cfg.SemanticFloor {
			// Tunable floor: a semantic score this low vetoes the artifact
			// even if the temporal signal is strong
			return models.ArtifactReference{}, false, nil
		}
		semantic, semanticOK = rescaleSemantic(raw)
	}

	// Stage 4: composite combination
	signals := make([]models.MatchSignal, 0, 3)
	if temporalOK {
		signals = append(signals, models.SignalTemporal)
	}
	if semanticOK {
		signals = append(signals, models.SignalSemantic)
	}

	branchOK := temporalOK &&
		artifact.Kind == models.ArtifactPullRequest &&
		commit.Branch != "" &&
		commit.Branch == artifact.SourceBranch
	if branchOK {
		signals = append(signals, models.SignalBranch)
	}

	confidence := compose(temporal, temporalOK, semantic, semanticOK, branchOK, len(signals), m.cfg)

	// Stage 5: gate
	if confidence < m.cfg.ConfidenceThreshold {
		return models.ArtifactReference{}, false, nil
	}

	return models.ArtifactReference{
		Kind:       artifact.Kind,
		ID:         artifact.ID,
		Confidence: confidence,
		MatchedBy:  signals,
	}, true, nil
}

// compose fuses cleared signal scores. Base confidence is the max of the
// cleared scores; bonuses are additive and the result clamps to 1.0. The
// function depends only on the signal set, never on evaluation order.
func compose(temporal float64, temporalOK bool, semantic float64, semanticOK bool, branchOK bool, signalCount int, cfg config.MatchingConfig) float64 {
	base := 0.0
	if temporalOK && temporal > base {
		base = temporal
	}
	if semanticOK && semantic > base {
		base = semantic
	}
	if base == 0 {
		return 0
	}

	confidence := base
	if temporalOK && semanticOK {
		confidence += cfg.BothSignalsBonus
	}
	if branchOK {
		confidence += cfg.BranchMatchBonus
	}
	if signalCount >= 3 {
		confidence += cfg.MultiSignalsBonus
	}

	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// artifactText is what the oracle compares the commit message against.
func artifactText(a models.Artifact) string {
	if a.Body == "" {
		return a.Title
	}
	return a.Title + "\n\n" + a.Body
}

// groupByKind buckets references and sorts each bucket by descending
// confidence, ties broken by id so output is deterministic.
func groupByKind(refs []models.ArtifactReference) map[string][]models.ArtifactReference {
	if len(refs) == 0 {
		return nil
	}
	grouped := make(map[string][]models.ArtifactReference)
	for _, ref := range refs {
		key := string(ref.Kind)
		grouped[key] = append(grouped[key], ref)
	}
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Confidence != group[j].Confidence {
				return group[i].Confidence > group[j].Confidence
			}
			return group[i].ID < group[j].ID
		})
	}
	return grouped
}
