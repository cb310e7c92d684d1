package updater

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/githubrelease"
	"github.com/saba-chan/saba-core/internal/infra/healing"
	"github.com/saba-chan/saba-core/internal/infra/semver"
)

// Manager checks, downloads, and applies updates for the core repository's
// components and for modules declaring their own [update] github_repo.
type Manager struct {
	Owner             string
	Repo              string
	APIBaseURL        string
	StagingDir        string
	InstallRoot       string
	IncludePrerelease bool

	client  *githubrelease.Client
	dlHTTP  *http.Client
	breaker *healing.CircuitBreaker

	installedManifestPath string
	pendingPath           string

	mu             sync.Mutex
	lastManifest   domain.ReleaseManifest
	lastResolved   map[string]Resolved
	state          map[string]PendingEntry // key -> staged entry (Downloaded or Applied)
	componentState map[string]domain.ComponentState
}

// New creates a Manager rooted at appDataDir (for the installed manifest and
// pending.json) with a default 30-release lookback window.
func New(owner, repo, apiBaseURL, stagingDir, installRoot, appDataDir string) *Manager {
	return &Manager{
		Owner:                 owner,
		Repo:                  repo,
		APIBaseURL:            apiBaseURL,
		StagingDir:            stagingDir,
		InstallRoot:           installRoot,
		client:                githubrelease.New(apiBaseURL, "saba-core"),
		dlHTTP:                &http.Client{Timeout: 5 * time.Minute},
		breaker:               healing.NewCircuitBreaker("github-releases", healing.DefaultCircuitBreakerConfig()),
		installedManifestPath: filepath.Join(appDataDir, "installed_manifest.json"),
		pendingPath:           filepath.Join(stagingDir, "pending.json"),
		state:                 map[string]PendingEntry{},
		componentState:        map[string]domain.ComponentState{},
	}
}

// Check fetches the N most recent releases, resolves the authoritative
// manifest, and walks back every component to its source release. GitHub
// API calls are gated by a circuit breaker so a flapping API doesn't turn
// every periodic check into a multi-second stall.
func (m *Manager) Check() (domain.ReleaseManifest, map[string]Resolved, error) {
	if err := m.breaker.Allow(); err != nil {
		return domain.ReleaseManifest{}, nil, fmt.Errorf("update check: %w", err)
	}

	releases, err := m.client.ListReleases(m.Owner, m.Repo, 30)
	if err != nil {
		m.breaker.RecordFailure()
		return domain.ReleaseManifest{}, nil, err
	}

	authRelease, err := AuthoritativeRelease(releases, m.IncludePrerelease)
	if err != nil {
		m.breaker.RecordFailure()
		return domain.ReleaseManifest{}, nil, err
	}
	asset, _ := authRelease.FindAsset("manifest.json")

	manifest, err := fetchManifest(m.dlHTTP, "saba-core", asset.DownloadURL)
	if err != nil {
		m.breaker.RecordFailure()
		return domain.ReleaseManifest{}, nil, err
	}
	m.breaker.RecordSuccess()

	resolved := ResolveComponentsAcrossReleases(manifest, releases, m.IncludePrerelease)

	m.mu.Lock()
	m.lastManifest = manifest
	m.lastResolved = resolved
	for key := range resolved {
		if _, known := m.componentState[key]; !known {
			m.componentState[key] = domain.StateChecked
		}
	}
	m.mu.Unlock()

	return manifest, resolved, nil
}

// DependencyIssues checks a component's `requires` against the installed
// manifest, returning every unsatisfied entry.
func (m *Manager) DependencyIssues(key string) ([]DependencyIssue, error) {
	m.mu.Lock()
	r, ok := m.lastResolved[key]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrComponentNotFound
	}

	installed, err := loadInstalledManifest(m.installedManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load installed manifest: %w", err)
	}

	var issues []DependencyIssue
	for dep, requirement := range r.Requires {
		have, present := installed.Versions[dep]
		if !present || !semver.Satisfies(have, requirement) {
			issues = append(issues, DependencyIssue{Component: key, Dependency: dep, Required: requirement, Installed: have})
		}
	}
	return issues, nil
}

// Download stages a single previously-resolved component and records it in
// pending.json. Only callable once the component has been Checked.
func (m *Manager) Download(key string) error {
	m.mu.Lock()
	r, ok := m.lastResolved[key]
	state := m.componentState[key]
	m.mu.Unlock()
	if !ok {
		return domain.ErrComponentNotFound
	}
	if state != domain.StateChecked {
		return fmt.Errorf("%w: component %s is in state %s, want checked", domain.ErrValidation, key, state)
	}
	if r.IsUnresolved() {
		return fmt.Errorf("%w: %s", domain.ErrAssetUnresolved, key)
	}

	dst := filepath.Join(m.StagingDir, r.AssetName)
	if err := downloadToFile(m.dlHTTP, "saba-core", r.DownloadURL, dst); err != nil {
		return err
	}

	entry := PendingEntry{
		Key:           key,
		Version:       r.LatestVersion,
		StagedPath:    dst,
		SourceRelease: r.SourceRelease,
		DownloadedAt:  time.Now(),
	}

	m.mu.Lock()
	m.state[key] = entry
	m.componentState[key] = domain.StateDownloaded
	pf, err := loadPending(m.pendingPath)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	pf.Entries[key] = entry
	return savePending(m.pendingPath, pf)
}

// DownloadAvailableUpdates stages every resolved component whose current
// state is Checked, continuing past individual failures and returning them
// keyed by component.
func (m *Manager) DownloadAvailableUpdates() map[string]error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.lastResolved))
	for k := range m.lastResolved {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	failures := map[string]error{}
	for _, k := range keys {
		if err := m.Download(k); err != nil {
			failures[k] = err
		}
	}
	return failures
}

// ComponentState reports a component's current state machine position.
func (m *Manager) ComponentState(key string) domain.ComponentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.componentState[key]; ok {
		return st
	}
	return domain.StateUnknown
}

// Status summarizes every known component for the IPC status endpoint.
func (m *Manager) Status() []domain.Component {
	m.mu.Lock()
	defer m.mu.Unlock()

	installed, _ := loadInstalledManifest(m.installedManifestPath)

	out := make([]domain.Component, 0, len(m.lastResolved))
	for key, r := range m.lastResolved {
		st := m.componentState[key]
		out = append(out, domain.Component{
			Key:              key,
			CurrentVersion:   installed.Versions[key],
			LatestVersion:    r.LatestVersion,
			UpdateAvailable:  installed.Versions[key] != r.LatestVersion,
			Downloaded:       st == domain.StateDownloaded || st == domain.StateApplied,
			DownloadedPath:   m.state[key].StagedPath,
			Installed:        st == domain.StateApplied,
			SourceReleaseTag: r.SourceRelease,
			State:            st,
		})
	}
	return out
}
