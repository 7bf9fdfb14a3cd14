package coordinator

import (
	"sort"

	"github.com/chronicle-dev/chronicle/internal/models"
)

// indexedPeriod carries a period with its chronological position so results
// can be reassembled by index, never by completion order.
type indexedPeriod struct {
	index  int
	period models.Period
}

// PlanBatches splits periods into ordered batches of at most maxConcurrency
// jobs. Assignment is longest-processing-time style: periods sorted by
// descending commit count are dealt round-robin across the batches, which
// balances per-batch work well enough without an optimal scheduler.
func PlanBatches(periods []models.Period, maxConcurrency int) [][]models.Period {
	indexed := plan(periods, maxConcurrency)

	batches := make([][]models.Period, len(indexed))
	for i, batch := range indexed {
		batches[i] = make([]models.Period, len(batch))
		for j, p := range batch {
			batches[i][j] = p.period
		}
	}
	return batches
}

func plan(periods []models.Period, maxConcurrency int) [][]indexedPeriod {
	if len(periods) == 0 {
		return nil
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	byWork := make([]indexedPeriod, len(periods))
	for i, p := range periods {
		byWork[i] = indexedPeriod{index: i, period: p}
	}
	sort.SliceStable(byWork, func(i, j int) bool {
		return byWork[i].period.CommitCount > byWork[j].period.CommitCount
	})

	batchCount := (len(periods) + maxConcurrency - 1) / maxConcurrency
	batches := make([][]indexedPeriod, batchCount)
	for i, p := range byWork {
		b := i % batchCount
		batches[b] = append(batches[b], p)
	}
	return batches
}
