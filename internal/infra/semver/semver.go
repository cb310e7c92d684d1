// Package semver wraps Masterminds/semver/v3 with the fallback rule the
// extension manager and update manager both need: a version requirement of
// "*" always matches, and any string that fails to parse as a semantic
// version falls back to lexicographic comparison rather than erroring.
package semver

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Satisfies reports whether installedVersion satisfies requirement, which
// is either "*" (always true) or a Masterminds/semver/v3 constraint string
// such as ">=0.5.0".
func Satisfies(installedVersion, requirement string) bool {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" || requirement == "*" {
		return true
	}

	constraint, err := semver.NewConstraint(requirement)
	if err != nil {
		return lexicalSatisfies(installedVersion, requirement)
	}

	v, err := semver.NewVersion(installedVersion)
	if err != nil {
		return lexicalSatisfies(installedVersion, requirement)
	}

	return constraint.Check(v)
}

// lexicalSatisfies is the fallback when either side fails to parse as
// semver: it strips a leading comparison operator (if present) from
// requirement and falls back to plain string comparison.
func lexicalSatisfies(installedVersion, requirement string) bool {
	op, rest := splitOperator(requirement)
	switch op {
	case ">=":
		return installedVersion >= rest
	case ">":
		return installedVersion > rest
	case "<=":
		return installedVersion <= rest
	case "<":
		return installedVersion < rest
	case "=", "==":
		return installedVersion == rest
	default:
		return installedVersion == requirement
	}
}

func splitOperator(req string) (op, rest string) {
	for _, candidate := range []string{">=", "<=", "==", ">", "<", "="} {
		if strings.HasPrefix(req, candidate) {
			return candidate, strings.TrimSpace(strings.TrimPrefix(req, candidate))
		}
	}
	return "", req
}

// Compare compares two version strings semantically, falling back to
// strings.Compare when either fails to parse. Returns -1, 0, or 1.
func Compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// GreaterThan reports whether a is semantically newer than b.
func GreaterThan(a, b string) bool {
	return Compare(a, b) > 0
}
