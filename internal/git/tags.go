package git

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Tag is one repository tag with the commit it resolves to.
type Tag struct {
	Name   string
	Date   time.Time
	Commit string
}

// Tags returns all tags sorted by creation date, oldest first. Annotated tags
// resolve to the commit they point at, not the tag object itself.
func (s *Source) Tags(ctx context.Context) ([]Tag, error) {
	format := strings.Join([]string{
		"%(refname:short)",
		"%(creatordate:iso-strict)",
		"%(objectname)",
		"%(*objectname)", // peeled commit for annotated tags, empty otherwise
	}, fieldSep)

	cmd := exec.CommandContext(ctx, "git", "for-each-ref", "refs/tags",
		"--sort=creatordate", "--format="+format)
	cmd.Dir = s.repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, gitError(err, "git for-each-ref failed")
	}

	var tags []Tag
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, fieldSep)
		if len(parts) < 3 {
			continue
		}

		date, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			continue
		}

		commit := parts[2]
		if len(parts) >= 4 && parts[3] != "" {
			commit = parts[3]
		}

		tags = append(tags, Tag{Name: parts[0], Date: date, Commit: commit})
	}

	return tags, nil
}
