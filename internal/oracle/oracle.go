// Package oracle adapts an external language model into the two narrow
// operations the engine needs: commit classification and text similarity.
// Boundary math, scoring fusion, and scheduling never see the model; they
// depend on the Oracle interface and are tested with deterministic stubs.
package oracle

import (
	"context"
)

// Classification is the category and one-line summary for a commit.
type Classification struct {
	Category string
	Summary  string
}

// Oracle is the injected scoring/labeling port.
type Oracle interface {
	// Classify assigns a change category and short summary to commit text.
	Classify(ctx context.Context, commitText string) (Classification, error)
	// Similarity scores two texts in [0,1].
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Categories the classifier is steered toward. Free-form answers outside
// this list are kept as-is; the set is guidance, not an enum.
var Categories = []string{
	"feature", "fix", "refactor", "docs", "test", "build", "performance", "other",
}
