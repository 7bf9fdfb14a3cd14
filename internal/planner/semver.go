package planner

import (
	"strconv"
	"strings"
)

// semver is the parsed form of a version string like "1.2.3-alpha.1".
// Only the shape we need for ordering release events; build metadata is
// ignored, as the semver spec says it should be.
type semver struct {
	major, minor, patch int
	prerelease          string
}

// parseSemver parses a version string, tolerating a leading "v" and missing
// patch component. Returns false if the string is not version-like.
func parseSemver(s string) (semver, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return semver{}, false
	}

	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	var v semver
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.prerelease = s[i+1:]
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return semver{}, false
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return semver{}, false
		}
		nums[i] = n
	}

	v.major, v.minor = nums[0], nums[1]
	if len(nums) == 3 {
		v.patch = nums[2]
	}
	return v, true
}

// compareVersions orders two version strings. Higher versions compare
// greater; a release outranks its own prereleases; non-parseable strings
// compare lexically as a last resort so ordering stays total.
func compareVersions(a, b string) int {
	va, okA := parseSemver(a)
	vb, okB := parseSemver(b)

	switch {
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	case !okA && !okB:
		return strings.Compare(a, b)
	}

	for _, pair := range [][2]int{
		{va.major, vb.major},
		{va.minor, vb.minor},
		{va.patch, vb.patch},
	} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}

	// Equal core versions: no prerelease wins over any prerelease
	switch {
	case va.prerelease == "" && vb.prerelease != "":
		return 1
	case va.prerelease != "" && vb.prerelease == "":
		return -1
	}
	return strings.Compare(va.prerelease, vb.prerelease)
}
