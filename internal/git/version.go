package git

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

// versionLine matches added lines that look like a version assignment in the
// common manifest formats ("version": "1.2.3", version = "1.2.3", 1.2.3).
var versionLine = regexp.MustCompile(`(?i)^\+\s*"?version"?\s*[:=]\s*"?v?(\d+\.\d+(?:\.\d+)?(?:[-+][\w.]+)?)"?`)

// bareVersion matches a whole-line version, for plain VERSION files.
var bareVersion = regexp.MustCompile(`^\+v?(\d+\.\d+(?:\.\d+)?(?:[-+][\w.]+)?)\s*$`)

// VersionFileDiff inspects what a commit changed in the given version files
// and returns the version string it introduced, or "" if none.
func (s *Source) VersionFileDiff(ctx context.Context, commit string, files []string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	args := append([]string{"show", "--format=", "--unified=0", commit, "--"}, files...)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoPath

	output, err := cmd.Output()
	if err != nil {
		return "", gitError(err, "git show failed")
	}

	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "+++") {
			continue
		}
		if m := versionLine.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
		if m := bareVersion.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}
