package coordinator

import (
	"sort"

	"github.com/chronicle-dev/chronicle/internal/models"
)

// aggregate merges per-period analyses, already ordered chronologically, into
// the final result. Conflict resolution: a commit appearing in more than one
// period's change set stays primary in its earliest period; later changes
// whose commits were all seen before are annotated as duplicates and excluded
// from global statistics. Global sets are unions, never naive sums.
func aggregate(analyses []models.PeriodAnalysis, summary models.ExecutionSummary) models.AggregatedResult {
	seenCommit := make(map[string]string) // commit hash -> owning period id
	contributors := make(map[string]bool)
	files := make(map[string]bool)

	var global models.GlobalStats

	for i := range analyses {
		analysis := &analyses[i]
		if analysis.Failed {
			continue
		}

		for category, changes := range analysis.Changes {
			for j := range changes {
				change := &changes[j]
				owner := ""
				fresh := 0
				for _, hash := range change.Commits {
					if prev, ok := seenCommit[hash]; ok {
						if owner == "" {
							owner = prev
						}
						continue
					}
					seenCommit[hash] = analysis.Period.ID
					fresh++
				}
				// Every commit already attributed earlier: annotate, do not
				// count again
				if fresh == 0 && owner != "" {
					change.DuplicateOf = owner
				}
			}
			analysis.Changes[category] = changes
		}

		for _, name := range analysis.Stats.Contributors {
			contributors[name] = true
		}
		for _, f := range analysis.Stats.FilesChanged {
			files[f] = true
		}
		global.Insertions += analysis.Stats.Insertions
		global.Deletions += analysis.Stats.Deletions
	}

	global.Commits = len(seenCommit)
	global.Contributors = sortedKeys(contributors)
	global.FilesChanged = sortedKeys(files)

	return models.AggregatedResult{
		Periods:   analyses,
		Stats:     global,
		Execution: summary,
	}
}

// mergeRefs merges reference lists for one kind, keeping the higher
// confidence on duplicate ids and descending-confidence order.
func mergeRefs(existing, incoming []models.ArtifactReference) []models.ArtifactReference {
	byID := make(map[int]models.ArtifactReference, len(existing)+len(incoming))
	for _, ref := range existing {
		byID[ref.ID] = ref
	}
	for _, ref := range incoming {
		if prev, ok := byID[ref.ID]; !ok || ref.Confidence > prev.Confidence {
			byID[ref.ID] = ref
		}
	}

	merged := make([]models.ArtifactReference, 0, len(byID))
	for _, ref := range byID {
		merged = append(merged, ref)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
