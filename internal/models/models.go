package models

import (
	"time"
)

// Strategy selects how the commit history is partitioned into periods.
type Strategy string

const (
	StrategyDaily   Strategy = "daily"
	StrategyWeekly  Strategy = "weekly"
	StrategyMonthly Strategy = "monthly"
	StrategyRelease Strategy = "release"
	// StrategyAuto lets the planner pick based on commit frequency.
	StrategyAuto Strategy = "auto"
)

// PeriodKind distinguishes calendar windows from release-delimited ones.
type PeriodKind string

const (
	PeriodKindTime    PeriodKind = "time"
	PeriodKindRelease PeriodKind = "release"
)

// PeriodMode signals how downstream rendering should treat a period.
// ModeSummary asks for compression instead of per-change enumeration and is
// only ever set on the earliest period when its commit count exceeds the
// configured threshold.
type PeriodMode string

const (
	ModeFull    PeriodMode = "full"
	ModeSummary PeriodMode = "summary"
)

// Period is a contiguous, non-overlapping time or release window that groups
// commits. Membership is inclusive-start, exclusive-end. Periods are immutable
// once the planner emits them.
type Period struct {
	ID          string     `json:"id" yaml:"id"`
	Label       string     `json:"label" yaml:"label"`
	Kind        PeriodKind `json:"kind" yaml:"kind"`
	Start       time.Time  `json:"start" yaml:"start"`
	End         time.Time  `json:"end" yaml:"end"`
	StartCommit string     `json:"start_commit,omitempty" yaml:"start_commit,omitempty"`
	EndCommit   string     `json:"end_commit,omitempty" yaml:"end_commit,omitempty"`
	Tag         string     `json:"tag,omitempty" yaml:"tag,omitempty"`
	CommitCount int        `json:"commit_count" yaml:"commit_count"`
	IsFirst     bool       `json:"is_first" yaml:"is_first"`
	IsPartial   bool       `json:"is_partial" yaml:"is_partial"`
	Mode        PeriodMode `json:"mode" yaml:"mode"`
}

// DiffStats summarizes the size of a commit's change.
type DiffStats struct {
	FilesChanged int      `json:"files_changed" yaml:"files_changed"`
	Insertions   int      `json:"insertions" yaml:"insertions"`
	Deletions    int      `json:"deletions" yaml:"deletions"`
	Files        []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// CommitRecord is one commit as reported by the commit source.
type CommitRecord struct {
	Hash      string    `json:"hash" yaml:"hash"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Author    string    `json:"author" yaml:"author"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	Message   string    `json:"message" yaml:"message"`
	Branch    string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	Stats     DiffStats `json:"stats" yaml:"stats"`
}

// IsMerge reports whether the commit is a merge commit, judged by its subject
// line the same way git writes default merge messages.
func (c CommitRecord) IsMerge() bool {
	return len(c.Message) >= 6 && c.Message[:6] == "Merge "
}

// Subject returns the first line of the commit message.
func (c CommitRecord) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// CategorizedChange is one classified change within a period.
type CategorizedChange struct {
	Category string   `json:"category" yaml:"category"`
	Summary  string   `json:"summary" yaml:"summary"`
	Commits  []string `json:"commits" yaml:"commits"`
	Impact   string   `json:"impact,omitempty" yaml:"impact,omitempty"`
	// DuplicateOf names the period that owns this change's commits when the
	// same commits already appeared in an earlier period. Set only by the
	// aggregator; duplicated changes are excluded from global statistics.
	DuplicateOf string `json:"duplicate_of,omitempty" yaml:"duplicate_of,omitempty"`
}

// ArtifactKind enumerates the externally tracked item types a commit may
// reference.
type ArtifactKind string

const (
	ArtifactIssue       ArtifactKind = "issue"
	ArtifactPullRequest ArtifactKind = "pr"
	ArtifactMilestone   ArtifactKind = "milestone"
	ArtifactProject     ArtifactKind = "project"
)

// AllArtifactKinds lists every kind the artifact source can serve, in the
// order they are fetched and cached.
var AllArtifactKinds = []ArtifactKind{
	ArtifactIssue, ArtifactPullRequest, ArtifactMilestone, ArtifactProject,
}

// Artifact is an externally tracked item served by the artifact source.
type Artifact struct {
	Kind         ArtifactKind `json:"kind" yaml:"kind"`
	ID           int          `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Body         string       `json:"body,omitempty" yaml:"body,omitempty"`
	Labels       []string     `json:"labels,omitempty" yaml:"labels,omitempty"`
	SourceBranch string       `json:"source_branch,omitempty" yaml:"source_branch,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty" yaml:"closed_at,omitempty"`
	MergedAt     *time.Time   `json:"merged_at,omitempty" yaml:"merged_at,omitempty"`
}

// Timestamps returns the lifecycle timestamps that participate in temporal
// correlation. Zero timestamps are skipped.
func (a Artifact) Timestamps() []time.Time {
	ts := make([]time.Time, 0, 4)
	for _, t := range []*time.Time{&a.CreatedAt, &a.UpdatedAt, a.ClosedAt, a.MergedAt} {
		if t != nil && !t.IsZero() {
			ts = append(ts, *t)
		}
	}
	return ts
}

// MatchSignal names an independent matching strategy that contributed to a
// reference's confidence.
type MatchSignal string

const (
	SignalExplicit MatchSignal = "explicit"
	SignalTemporal MatchSignal = "temporal"
	SignalSemantic MatchSignal = "semantic"
	SignalBranch   MatchSignal = "branch"
)

// ArtifactReference links a commit to an artifact with a composite confidence
// in [0,1]. An explicit reference always carries confidence 1.0.
type ArtifactReference struct {
	Kind       ArtifactKind  `json:"kind" yaml:"kind"`
	ID         int           `json:"id" yaml:"id"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	MatchedBy  []MatchSignal `json:"matched_by" yaml:"matched_by"`
}

// Release is one version event, sourced from a tag or a version-file change.
type Release struct {
	Version    string    `json:"version" yaml:"version"`
	Tag        string    `json:"tag,omitempty" yaml:"tag,omitempty"`
	Commit     string    `json:"commit" yaml:"commit"`
	Date       time.Time `json:"date" yaml:"date"`
	FromTag    bool      `json:"from_tag" yaml:"from_tag"`
	Superseded bool      `json:"superseded,omitempty" yaml:"superseded,omitempty"`
}

// PeriodStats are the per-period roll-up numbers.
type PeriodStats struct {
	Commits      int      `json:"commits" yaml:"commits"`
	Insertions   int      `json:"insertions" yaml:"insertions"`
	Deletions    int      `json:"deletions" yaml:"deletions"`
	Contributors []string `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	FilesChanged []string `json:"files_changed,omitempty" yaml:"files_changed,omitempty"`
}

// PeriodAnalysis is the analyzed result for one period. Immutable once
// produced; regeneration writes a new cache entry rather than mutating.
type PeriodAnalysis struct {
	Period    Period                         `json:"period" yaml:"period"`
	Changes   map[string][]CategorizedChange `json:"changes" yaml:"changes"`
	Stats     PeriodStats                    `json:"stats" yaml:"stats"`
	Artifacts map[string][]ArtifactReference `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	CacheHit  bool                           `json:"cache_hit" yaml:"cache_hit"`
	// Failed marks a placeholder analysis produced after retries were
	// exhausted. Changes is empty and the period is excluded from global
	// statistics so aggregate numbers are not silently wrong.
	Failed bool   `json:"failed,omitempty" yaml:"failed,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// GlobalStats accumulates cross-period totals. Contributor and file sets are
// built by set union so shared values are never double counted.
type GlobalStats struct {
	Commits      int      `json:"commits" yaml:"commits"`
	Insertions   int      `json:"insertions" yaml:"insertions"`
	Deletions    int      `json:"deletions" yaml:"deletions"`
	Contributors []string `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	FilesChanged []string `json:"files_changed,omitempty" yaml:"files_changed,omitempty"`
}

// ExecutionSummary records degraded behavior so it is visible but non-fatal.
type ExecutionSummary struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Retries      int           `json:"retries" yaml:"retries"`
	Placeholders int           `json:"placeholders" yaml:"placeholders"`
	CacheHits    int           `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses  int           `json:"cache_misses" yaml:"cache_misses"`
	Warnings     []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// AggregatedResult is the single ordered, conflict-resolved tree handed to
// the document assembler.
type AggregatedResult struct {
	Periods   []PeriodAnalysis `json:"periods" yaml:"periods"`
	Stats     GlobalStats      `json:"stats" yaml:"stats"`
	Execution ExecutionSummary `json:"execution" yaml:"execution"`
}
