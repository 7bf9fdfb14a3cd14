package matcher

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/chronicle-dev/chronicle/internal/models"
)

// explicitRef matches artifact-id mentions in commit messages: "#42",
// "fixes #42", "closes #42", "GH-42". The keyword is irrelevant; any id
// mention is an explicit reference.
var explicitRef = regexp.MustCompile(`(?i)(?:#|\bGH-)(\d+)\b`)

// explicitIDs extracts the set of artifact ids the message mentions.
func explicitIDs(message string) map[int]bool {
	matches := explicitRef.FindAllStringSubmatch(message, -1)
	if len(matches) == 0 {
		return nil
	}
	ids := make(map[int]bool, len(matches))
	for _, m := range matches {
		if id, err := strconv.Atoi(m[1]); err == nil {
			ids[id] = true
		}
	}
	return ids
}

// temporalScore maps the minimum day-distance between the commit and any of
// the artifact's lifecycle timestamps through a decreasing step function.
// Artifacts beyond windowDays are not candidates at all: this is the cost
// gate that keeps the oracle from being invoked on the whole tracker.
func temporalScore(commit time.Time, artifact models.Artifact, windowDays int) (float64, bool) {
	best := math.MaxInt32
	for _, ts := range artifact.Timestamps() {
		days := dayDistance(commit, ts)
		if days < best {
			best = days
		}
	}

	switch {
	case best == 0:
		return 1.0, true
	case best <= 3:
		return 0.90, true
	case best <= 7:
		return 0.80, true
	case best <= 14:
		return 0.60, true
	case best <= windowDays:
		return 0.40, true
	default:
		return 0, false
	}
}

// dayDistance is the absolute distance between two instants in whole days.
func dayDistance(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// Semantic scores below this carry no signal and are discarded; scores above
// are rescaled into [0.40, 0.95] so semantic evidence alone never outranks a
// same-day temporal hit.
const (
	semanticCutoff = 0.40
	semanticCeil   = 0.95
)

// rescaleSemantic maps a raw oracle score in [0.40, 1.0] linearly into
// [0.40, 0.95]. Returns false for scores below the cutoff.
func rescaleSemantic(raw float64) (float64, bool) {
	if raw < semanticCutoff {
		return 0, false
	}
	if raw > 1 {
		raw = 1
	}
	scaled := semanticCutoff + (raw-semanticCutoff)/(1-semanticCutoff)*(semanticCeil-semanticCutoff)
	return scaled, true
}
