package updater

import (
	"fmt"
	"strings"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/githubrelease"
)

// moduleComponentPrefix marks a component key as belonging to a module
// repository split out from the core catalog.
const moduleComponentPrefix = "module-"

// IsModuleComponent reports whether key names a module's own repository
// rather than a core-repo component.
func IsModuleComponent(key string) bool {
	return strings.HasPrefix(key, moduleComponentPrefix)
}

// CheckModuleRepo resolves a single module's own github_repo independent of
// the core catalog: latest release, looking for an asset literally named
// "module-<name>.zip" or "<name>.zip".
func (m *Manager) CheckModuleRepo(moduleName, githubRepo string) (Resolved, error) {
	owner, repo, err := splitOwnerRepo(githubRepo)
	if err != nil {
		return Resolved{}, err
	}

	if err := m.breaker.Allow(); err != nil {
		return Resolved{}, fmt.Errorf("module repo check %s: %w", githubRepo, err)
	}

	client := githubrelease.New(m.APIBaseURL, "saba-core")
	releases, err := client.ListReleases(owner, repo, 10)
	if err != nil {
		m.breaker.RecordFailure()
		return Resolved{}, err
	}
	m.breaker.RecordSuccess()
	if len(releases) == 0 {
		return Resolved{}, fmt.Errorf("%w: %s", domain.ErrNoReleases, githubRepo)
	}

	latest := releases[0]
	wanted := []string{moduleComponentPrefix + moduleName + ".zip", moduleName + ".zip"}
	for _, name := range wanted {
		if asset, ok := latest.FindAsset(name); ok {
			key := moduleComponentPrefix + moduleName
			r := Resolved{Key: key, LatestVersion: strings.TrimPrefix(latest.TagName, "v"), AssetName: asset.Name, DownloadURL: asset.DownloadURL, SourceRelease: latest.TagName}

			m.mu.Lock()
			m.lastResolved = cloneOrInit(m.lastResolved)
			m.lastResolved[key] = r
			if _, known := m.componentState[key]; !known {
				m.componentState[key] = domain.StateChecked
			}
			m.mu.Unlock()

			return r, nil
		}
	}
	return Resolved{}, fmt.Errorf("%w: module %s release %s carries neither module-%s.zip nor %s.zip",
		domain.ErrAssetUnresolved, moduleName, latest.TagName, moduleName, moduleName)
}

func cloneOrInit(m map[string]Resolved) map[string]Resolved {
	if m == nil {
		return map[string]Resolved{}
	}
	return m
}

func splitOwnerRepo(githubRepo string) (owner, repo string, err error) {
	parts := strings.SplitN(githubRepo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: github_repo must be owner/repo, got %q", domain.ErrValidation, githubRepo)
	}
	return parts[0], parts[1], nil
}
