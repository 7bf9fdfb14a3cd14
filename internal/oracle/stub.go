package oracle

import (
	"context"
	"strings"
)

// StubOracle is a deterministic Oracle for tests and for running with the
// oracle disabled. Classification is keyword-based on conventional-commit
// prefixes; similarity is a fixed score table keyed by exact text pairs.
type StubOracle struct {
	// Scores maps "a|b" to a similarity score; missing pairs score zero.
	Scores map[string]float64
}

// NewStubOracle creates a stub with an empty score table.
func NewStubOracle() *StubOracle {
	return &StubOracle{Scores: make(map[string]float64)}
}

// SetSimilarity registers the score returned for the (a, b) pair.
func (s *StubOracle) SetSimilarity(a, b string, score float64) {
	if s.Scores == nil {
		s.Scores = make(map[string]float64)
	}
	s.Scores[a+"|"+b] = score
}

// Classify maps conventional-commit prefixes to categories.
func (s *StubOracle) Classify(_ context.Context, commitText string) (Classification, error) {
	subject := commitText
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = subject[:i]
	}

	category := "other"
	lower := strings.ToLower(subject)
	for _, prefix := range []struct{ match, category string }{
		{"feat", "feature"},
		{"fix", "fix"},
		{"refactor", "refactor"},
		{"docs", "docs"},
		{"test", "test"},
		{"build", "build"},
		{"chore", "build"},
		{"perf", "performance"},
	} {
		if strings.HasPrefix(lower, prefix.match) {
			category = prefix.category
			break
		}
	}

	summary := subject
	if i := strings.IndexByte(subject, ':'); i >= 0 && i+1 < len(subject) {
		summary = strings.TrimSpace(subject[i+1:])
	}

	return Classification{Category: category, Summary: summary}, nil
}

// Similarity returns the registered score for the pair, zero otherwise.
func (s *StubOracle) Similarity(_ context.Context, a, b string) (float64, error) {
	return s.Scores[a+"|"+b], nil
}
