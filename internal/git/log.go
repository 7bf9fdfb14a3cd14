package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chronicle-dev/chronicle/internal/errors"
	"github.com/chronicle-dev/chronicle/internal/models"
)

// Field and record separators used in the custom git log format. Commit
// messages can contain almost anything, so we use the ASCII unit/record
// separator characters instead of newlines.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Source reads commit history, tags, and version-file changes from a local
// repository by shelling out to git.
type Source struct {
	repoPath string
}

// NewSource creates a commit source for the repository at repoPath.
func NewSource(repoPath string) *Source {
	return &Source{repoPath: repoPath}
}

// Commits returns the commits whose author timestamp falls in [since, until),
// oldest first. A zero since or until leaves that side of the range open.
func (s *Source) Commits(ctx context.Context, since, until time.Time) ([]models.CommitRecord, error) {
	format := recordSep + strings.Join([]string{"%H", "%aI", "%an", "%ae", "%B"}, fieldSep) + fieldSep

	args := []string{"log", "--reverse", "--numstat", "--pretty=format:" + format}
	if !since.IsZero() {
		args = append(args, "--since="+since.Format(time.RFC3339))
	}
	if !until.IsZero() {
		// git --until is inclusive; the exact exclusive-end filter happens
		// below
		args = append(args, "--until="+until.Format(time.RFC3339))
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, gitError(err, "git log failed")
	}

	commits, err := parseLog(string(output))
	if err != nil {
		return nil, err
	}

	// Exact half-open range filter; --since/--until only narrow the walk
	filtered := commits[:0]
	for _, c := range commits {
		if !since.IsZero() && c.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && !c.Timestamp.Before(until) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, nil
}

// parseLog parses the record-separated log output, including numstat lines.
func parseLog(output string) ([]models.CommitRecord, error) {
	var commits []models.CommitRecord

	for _, record := range strings.Split(output, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		parts := strings.SplitN(record, fieldSep, 6)
		if len(parts) < 5 {
			continue
		}

		ts, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("parse commit timestamp %q: %w", parts[1], err)
		}

		commit := models.CommitRecord{
			Hash:      parts[0],
			Timestamp: ts,
			Author:    parts[2],
			Email:     parts[3],
			Message:   strings.TrimSpace(parts[4]),
		}

		// Everything after the last field separator is numstat output
		if len(parts) == 6 {
			commit.Stats = parseNumstat(parts[5])
		}

		commits = append(commits, commit)
	}

	return commits, nil
}

// parseNumstat parses "insertions<TAB>deletions<TAB>path" lines. Binary files
// report "-" and count as zero.
func parseNumstat(block string) models.DiffStats {
	var stats models.DiffStats
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			continue
		}
		if n, err := strconv.Atoi(fields[0]); err == nil {
			stats.Insertions += n
		}
		if n, err := strconv.Atoi(fields[1]); err == nil {
			stats.Deletions += n
		}
		stats.Files = append(stats.Files, fields[2])
		stats.FilesChanged++
	}
	return stats
}

// gitError classifies a git invocation failure. Context expiry is transient
// (the call carried a bounded timeout); everything else includes stderr.
func gitError(err error, message string) error {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return fmt.Errorf("%s: %w (stderr: %s)", message, err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	if err == context.DeadlineExceeded {
		return errors.TransientError(err, message)
	}
	return fmt.Errorf("%s: %w", message, err)
}
