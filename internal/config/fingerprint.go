package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// fingerprintFields is the subset of configuration that changes the meaning
// of a cached analysis. Credentials, cache location, and execution tuning are
// deliberately excluded: changing them does not change results.
type fingerprintFields struct {
	Strategy         string  `json:"strategy"`
	WeekStart        string  `json:"week_start"`
	DailyThreshold   float64 `json:"daily_threshold"`
	WeeklyThreshold  float64 `json:"weekly_threshold"`
	SummaryThreshold int     `json:"summary_threshold"`
	SkipMergeOnly    bool    `json:"skip_merge_only"`

	MatchingEnabled     bool    `json:"matching_enabled"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	TemporalWindowDays  int     `json:"temporal_window_days"`
	SemanticFloor       float64 `json:"semantic_floor"`
	BothSignalsBonus    float64 `json:"both_signals_bonus"`
	BranchMatchBonus    float64 `json:"branch_match_bonus"`
	MultiSignalsBonus   float64 `json:"multi_signals_bonus"`
	ExplicitEnabled     bool    `json:"explicit_enabled"`
	TemporalEnabled     bool    `json:"temporal_enabled"`
	SemanticEnabled     bool    `json:"semantic_enabled"`

	OpenAIModel    string `json:"openai_model"`
	EmbeddingModel string `json:"embedding_model"`
}

// Fingerprint returns a stable hash of the result-affecting configuration.
// Cached analyses are keyed by it; a fingerprint change invalidates the whole
// cache rather than partially.
func (c *Config) Fingerprint() string {
	f := fingerprintFields{
		Strategy:         c.Periods.Strategy,
		WeekStart:        c.Periods.WeekStart,
		DailyThreshold:   c.Periods.DailyThreshold,
		WeeklyThreshold:  c.Periods.WeeklyThreshold,
		SummaryThreshold: c.Periods.SummaryThreshold,
		SkipMergeOnly:    c.Periods.SkipMergeOnly,

		MatchingEnabled:     c.Matching.Enabled,
		ConfidenceThreshold: c.Matching.ConfidenceThreshold,
		TemporalWindowDays:  c.Matching.TemporalWindowDays,
		SemanticFloor:       c.Matching.SemanticFloor,
		BothSignalsBonus:    c.Matching.BothSignalsBonus,
		BranchMatchBonus:    c.Matching.BranchMatchBonus,
		MultiSignalsBonus:   c.Matching.MultiSignalsBonus,
		ExplicitEnabled:     c.Matching.ExplicitEnabled,
		TemporalEnabled:     c.Matching.TemporalEnabled,
		SemanticEnabled:     c.Matching.SemanticEnabled,

		OpenAIModel:    c.API.OpenAIModel,
		EmbeddingModel: c.API.EmbeddingModel,
	}

	// Struct fields marshal in declaration order, so the hash is stable.
	data, err := json.Marshal(f)
	if err != nil {
		// Marshaling a flat value struct cannot fail in practice
		return "invalid"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
