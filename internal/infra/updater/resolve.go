// Package updater implements cross-release asset resolution, staged
// downloads, and per-component apply policy for self-updating the daemon,
// its modules, and its extensions.
package updater

import (
	"fmt"
	"sort"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/githubrelease"
)

// Resolved is one component's walk-back resolution result.
type Resolved struct {
	Key           string
	LatestVersion string
	AssetName     string
	DownloadURL   string
	SourceRelease string
	Requires      map[string]string
}

// IsUnresolved reports whether a Resolved entry never found its asset in
// any scanned release.
func (r Resolved) IsUnresolved() bool { return r.DownloadURL == "" }

// AuthoritativeRelease returns the newest release that is not a draft (and,
// unless includePrerelease, not a prerelease) and carries a manifest.json
// asset. releases must already be sorted newest-first.
func AuthoritativeRelease(releases []githubrelease.Release, includePrerelease bool) (githubrelease.Release, error) {
	for _, rel := range releases {
		if rel.Draft {
			continue
		}
		if rel.Prerelease && !includePrerelease {
			continue
		}
		if _, ok := rel.FindAsset("manifest.json"); ok {
			return rel, nil
		}
	}
	return githubrelease.Release{}, fmt.Errorf("%w: no eligible release carries manifest.json", domain.ErrNoReleases)
}

// ResolveComponentsAcrossReleases implements the walk-back algorithm: given
// the authoritative manifest (parsed from the authoritative release's
// manifest.json), find, for every component key, the newest release that
// actually carries the named asset. releases must already be sorted
// newest-first. Unless includePrerelease, prerelease releases are skipped
// during the asset scan so a stable channel never pulls a binary staged
// only on a prerelease.
func ResolveComponentsAcrossReleases(manifest domain.ReleaseManifest, releases []githubrelease.Release, includePrerelease bool) map[string]Resolved {
	resolved := make(map[string]Resolved, len(manifest.Components))

	keys := make([]string, 0, len(manifest.Components))
	for k := range manifest.Components {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		comp := manifest.Components[key]
		r := Resolved{Key: key, LatestVersion: comp.Version, AssetName: comp.Asset, Requires: comp.Requires}
		for _, rel := range releases {
			if rel.Prerelease && !includePrerelease {
				continue
			}
			if asset, ok := rel.FindAsset(comp.Asset); ok {
				r.DownloadURL = asset.DownloadURL
				r.SourceRelease = rel.TagName
				break
			}
		}
		resolved[key] = r
	}
	return resolved
}
