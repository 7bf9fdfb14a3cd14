// Package coordinator schedules per-period analysis jobs with bounded
// concurrency, cache-first execution, and retries, then merges everything
// into one ordered, conflict-resolved result.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chronicle-dev/chronicle/internal/cache"
	"github.com/chronicle-dev/chronicle/internal/config"
	"github.com/chronicle-dev/chronicle/internal/logging"
	"github.com/chronicle-dev/chronicle/internal/models"
	"github.com/chronicle-dev/chronicle/internal/oracle"
)

// CommitSource pulls commits for a half-open time range.
type CommitSource interface {
	Commits(ctx context.Context, since, until time.Time) ([]models.CommitRecord, error)
}

// ArtifactSource serves the current artifacts of one kind. In production it
// is the cached GitHub source; fetch policy never lives here.
type ArtifactSource interface {
	ListArtifacts(ctx context.Context, kind models.ArtifactKind) ([]models.Artifact, error)
}

// ArtifactMatcher links a commit to candidate artifacts.
type ArtifactMatcher interface {
	Match(ctx context.Context, commit models.CommitRecord, candidates []models.Artifact) (map[string][]models.ArtifactReference, error)
}

// Coordinator runs period-analysis jobs and aggregates their results.
type Coordinator struct {
	commits   CommitSource
	artifacts ArtifactSource
	oracle    oracle.Oracle
	matcher   ArtifactMatcher
	store     *cache.Store
	cfg       *config.Config

	mu      sync.Mutex
	summary models.ExecutionSummary
}

// New wires a coordinator. artifacts and matcher may be nil, which disables
// the matching step for the run (a data gap, not a failure).
func New(commits CommitSource, artifacts ArtifactSource, o oracle.Oracle, m ArtifactMatcher, store *cache.Store, cfg *config.Config) *Coordinator {
	return &Coordinator{
		commits:   commits,
		artifacts: artifacts,
		oracle:    o,
		matcher:   m,
		store:     store,
		cfg:       cfg,
	}
}

// Run analyzes every period and returns the aggregated result. Batches run
// strictly sequentially; jobs within a batch run concurrently up to the
// configured bound. This caps peak resource use at the cost of not
// overlapping batch tails. Cancellation stops new batches from starting but
// lets in-flight jobs finish; their cache writes are idempotent.
func (c *Coordinator) Run(ctx context.Context, periods []models.Period) (*models.AggregatedResult, error) {
	start := time.Now()
	c.summary = models.ExecutionSummary{RunID: uuid.NewString()}

	fingerprint := c.cfg.Fingerprint()
	if c.store != nil {
		invalidated, err := c.store.EnsureFingerprint(fingerprint)
		if err != nil {
			return nil, err
		}
		if invalidated {
			c.warn("configuration fingerprint changed, cache invalidated")
		}
	}

	candidates := c.loadCandidates(ctx)

	results := make([]models.PeriodAnalysis, len(periods))
	batches := plan(periods, c.cfg.Execution.MaxConcurrency)

	// Jobs run detached from the caller's cancellation: an aborted run lets
	// in-flight jobs finish (their cache writes are idempotent and safe to
	// complete) and only stops further batches from starting.
	jobCtx := context.WithoutCancel(ctx)

	for i, batch := range batches {
		if ctx.Err() != nil {
			c.warn("run cancelled, skipping remaining batches")
			break
		}
		logging.Debug("starting batch", "batch", i+1, "of", len(batches), "jobs", len(batch))

		var g errgroup.Group
		g.SetLimit(c.cfg.Execution.MaxConcurrency)
		for _, job := range batch {
			job := job
			g.Go(func() error {
				results[job.index] = c.analyzePeriod(jobCtx, job.period, fingerprint, candidates)
				return nil
			})
		}
		// A batch settles only once every job in it has settled
		g.Wait()
	}

	// Periods whose batch never started get explicit placeholders so the
	// output shape stays stable
	for i := range results {
		if results[i].Period.ID == "" {
			results[i] = models.PeriodAnalysis{
				Period:  periods[i],
				Changes: map[string][]models.CategorizedChange{},
				Failed:  true,
				Error:   "run cancelled before this period was analyzed",
			}
		}
	}

	c.summary.Duration = time.Since(start)
	result := aggregate(results, c.summary)
	return &result, nil
}

// loadCandidates fetches all artifact kinds once per run. Any failure is a
// data gap: matching is skipped for the run and reference lists stay empty.
func (c *Coordinator) loadCandidates(ctx context.Context) []models.Artifact {
	if c.artifacts == nil || c.matcher == nil || !c.cfg.Matching.Enabled {
		return nil
	}

	var candidates []models.Artifact
	for _, kind := range models.AllArtifactKinds {
		artifacts, err := c.artifacts.ListArtifacts(ctx, kind)
		if err != nil {
			c.warn("artifact source unavailable, matching skipped for this run: " + err.Error())
			return nil
		}
		candidates = append(candidates, artifacts...)
	}
	return candidates
}

// analyzePeriod is one job: cache lookup, then fetch + classify + match on a
// miss, with transient retries. Exhausted retries degrade to a placeholder
// so the batch and subsequent batches keep going.
func (c *Coordinator) analyzePeriod(ctx context.Context, period models.Period, fingerprint string, candidates []models.Artifact) models.PeriodAnalysis {
	if c.store != nil {
		if cached, ok, err := c.store.GetAnalysis(period.ID, fingerprint); err == nil && ok {
			logging.Debug("cache hit", "period", period.ID)
			cached.CacheHit = true
			c.countCacheHit()
			return *cached
		}
	}
	c.countCacheMiss()

	var analysis models.PeriodAnalysis
	attempts, err := retryTransient(ctx, c.cfg.Execution.MaxRetries, c.cfg.Execution.RetryBackoff, func() error {
		var computeErr error
		analysis, computeErr = c.computeAnalysis(ctx, period, candidates)
		return computeErr
	})
	c.countRetries(attempts)

	if err != nil {
		logging.Error("period analysis failed after retries", "period", period.ID, "error", err)
		c.countPlaceholder()
		return models.PeriodAnalysis{
			Period:  period,
			Changes: map[string][]models.CategorizedChange{},
			Failed:  true,
			Error:   err.Error(),
		}
	}

	if c.store != nil {
		if err := c.store.PutAnalysis(period.ID, fingerprint, analysis); err != nil {
			logging.Warn("cache write failed", "period", period.ID, "error", err)
		}
	}
	return analysis
}

// computeAnalysis does the actual work for one period.
func (c *Coordinator) computeAnalysis(ctx context.Context, period models.Period, candidates []models.Artifact) (models.PeriodAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Execution.CallTimeout)
	commits, err := c.commits.Commits(callCtx, period.Start, period.End)
	cancel()
	if err != nil {
		return models.PeriodAnalysis{}, err
	}

	analysis := models.PeriodAnalysis{
		Period:  period,
		Changes: make(map[string][]models.CategorizedChange),
	}

	contributors := make(map[string]bool)
	files := make(map[string]bool)

	for _, commit := range commits {
		classification, err := c.classify(ctx, commit)
		if err != nil {
			return models.PeriodAnalysis{}, err
		}

		change := models.CategorizedChange{
			Category: classification.Category,
			Summary:  classification.Summary,
			Commits:  []string{commit.Hash},
		}
		analysis.Changes[change.Category] = append(analysis.Changes[change.Category], change)

		analysis.Stats.Commits++
		analysis.Stats.Insertions += commit.Stats.Insertions
		analysis.Stats.Deletions += commit.Stats.Deletions
		contributors[commit.Author] = true
		for _, f := range commit.Stats.Files {
			files[f] = true
		}

		if len(candidates) > 0 {
			refs, err := c.matchCommit(ctx, commit, candidates)
			if err != nil {
				return models.PeriodAnalysis{}, err
			}
			if len(refs) > 0 {
				if analysis.Artifacts == nil {
					analysis.Artifacts = make(map[string][]models.ArtifactReference)
				}
				for kind, kindRefs := range refs {
					analysis.Artifacts[kind] = mergeRefs(analysis.Artifacts[kind], kindRefs)
				}
			}
		}
	}

	analysis.Stats.Contributors = sortedKeys(contributors)
	analysis.Stats.FilesChanged = sortedKeys(files)
	return analysis, nil
}

func (c *Coordinator) classify(ctx context.Context, commit models.CommitRecord) (oracle.Classification, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Execution.CallTimeout)
	defer cancel()
	return c.oracle.Classify(callCtx, commit.Message)
}

func (c *Coordinator) matchCommit(ctx context.Context, commit models.CommitRecord, candidates []models.Artifact) (map[string][]models.ArtifactReference, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Execution.CallTimeout)
	defer cancel()
	return c.matcher.Match(callCtx, commit, candidates)
}

func (c *Coordinator) warn(msg string) {
	logging.Warn(msg)
	c.mu.Lock()
	c.summary.Warnings = append(c.summary.Warnings, msg)
	c.mu.Unlock()
}

func (c *Coordinator) countCacheHit() {
	c.mu.Lock()
	c.summary.CacheHits++
	c.mu.Unlock()
}

func (c *Coordinator) countCacheMiss() {
	c.mu.Lock()
	c.summary.CacheMisses++
	c.mu.Unlock()
}

func (c *Coordinator) countRetries(n int) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	c.summary.Retries += n
	c.mu.Unlock()
}

func (c *Coordinator) countPlaceholder() {
	c.mu.Lock()
	c.summary.Placeholders++
	c.mu.Unlock()
}
