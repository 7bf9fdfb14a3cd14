package oracle

import (
	"context"
	"math"
	"testing"
)

func TestParseClassification(t *testing.T) {
	cases := []struct {
		answer   string
		category string
		summary  string
	}{
		{"fix: resolve nil pointer in parser", "fix", "resolve nil pointer in parser"},
		{"  Feature: add export command  ", "feature", "add export command"},
		{"no separator at all", "other", "no separator at all"},
		{": empty category", "other", "empty category"},
	}

	for _, tc := range cases {
		got := parseClassification(tc.answer)
		if got.Category != tc.category || got.Summary != tc.summary {
			t.Errorf("parseClassification(%q) = %+v, want %q/%q", tc.answer, got, tc.category, tc.summary)
		}
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: expected 1, got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := cosine([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("mismatched lengths: expected 0, got %f", got)
	}
	if got := cosine(nil, nil); got != 0 {
		t.Errorf("empty vectors: expected 0, got %f", got)
	}
}

func TestStubOracle_Classify(t *testing.T) {
	stub := NewStubOracle()
	ctx := context.Background()

	cases := map[string]string{
		"feat: add search":          "feature",
		"fix(parser): null deref":   "fix",
		"docs: update readme":       "docs",
		"Merge branch 'main'":       "other",
		"perf: faster lookups":      "performance",
	}
	for text, want := range cases {
		got, err := stub.Classify(ctx, text)
		if err != nil {
			t.Fatalf("Classify(%q) failed: %v", text, err)
		}
		if got.Category != want {
			t.Errorf("Classify(%q) category = %q, want %q", text, got.Category, want)
		}
	}
}

func TestStubOracle_Similarity(t *testing.T) {
	stub := NewStubOracle()
	stub.SetSimilarity("a", "b", 0.75)
	ctx := context.Background()

	got, err := stub.Similarity(ctx, "a", "b")
	if err != nil || got != 0.75 {
		t.Errorf("expected 0.75, got %f (err %v)", got, err)
	}

	got, _ = stub.Similarity(ctx, "unknown", "pair")
	if got != 0 {
		t.Errorf("unregistered pair should score 0, got %f", got)
	}
}
