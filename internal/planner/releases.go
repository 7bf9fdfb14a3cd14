package planner

import (
	"sort"
	"time"

	"github.com/chronicle-dev/chronicle/internal/git"
	"github.com/chronicle-dev/chronicle/internal/models"
)

// FileVersion is a version event discovered by diffing version files.
type FileVersion struct {
	Version string
	Commit  string
	Date    time.Time
}

// ComputeReleases unions tag-sourced and file-sourced version events into a
// date-ordered release list. When the same version string appears in both,
// the tag-sourced event wins; tags carry the authoritative timestamp.
// Same-period multiplicity is resolved later by the period computation,
// which keeps the highest version and marks the rest superseded.
func ComputeReleases(tags []git.Tag, fileVersions []FileVersion) []models.Release {
	byVersion := make(map[string]models.Release)

	for _, fv := range fileVersions {
		if fv.Version == "" {
			continue
		}
		byVersion[fv.Version] = models.Release{
			Version: fv.Version,
			Commit:  fv.Commit,
			Date:    fv.Date,
			FromTag: false,
		}
	}

	for _, tag := range tags {
		version := normalizeTagVersion(tag.Name)
		if version == "" {
			continue
		}
		// Tag wins over a file-sourced event for the same version
		byVersion[version] = models.Release{
			Version: version,
			Tag:     tag.Name,
			Commit:  tag.Commit,
			Date:    tag.Date,
			FromTag: true,
		}
	}

	releases := make([]models.Release, 0, len(byVersion))
	for _, r := range byVersion {
		releases = append(releases, r)
	}
	sort.Slice(releases, func(i, j int) bool {
		if !releases[i].Date.Equal(releases[j].Date) {
			return releases[i].Date.Before(releases[j].Date)
		}
		return compareVersions(releases[i].Version, releases[j].Version) < 0
	})
	return releases
}

// normalizeTagVersion extracts a version string from a tag name. Tags that
// do not look like versions ("nightly", "latest") are not release events.
func normalizeTagVersion(name string) string {
	if _, ok := parseSemver(name); ok {
		return trimV(name)
	}
	return ""
}

func trimV(s string) string {
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') {
		return s[1:]
	}
	return s
}
