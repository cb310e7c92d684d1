// Package extension implements the dynamically mountable extension system:
// discovery, dependency-constrained enablement, and chain-of-responsibility
// hook dispatch.
package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/semver"
)

// AdapterFactory builds a domain.Adapter capable of invoking the given
// python module path. Produced adapters are used once per hook dispatch.
type AdapterFactory func(scriptPath string) domain.Adapter

// Manager discovers, mounts, enables, and dispatches hooks across
// extensions.
type Manager struct {
	dir         string
	extractDir  string
	stateFile   string
	newAdapter  AdapterFactory
	hookTimeout time.Duration

	mu         sync.RWMutex
	discovered map[string]domain.Extension
	order      []string // discovery order, for hook-dispatch ordering
	enabled    map[string]bool
}

// New creates a Manager rooted at dir, persisting the enabled set to
// stateFile.
func New(dir, stateFile string, newAdapter AdapterFactory) *Manager {
	return &Manager{
		dir:         dir,
		extractDir:  filepath.Join(dir, ".extracted"),
		stateFile:   stateFile,
		newAdapter:  newAdapter,
		hookTimeout: 10 * time.Second,
		discovered:  make(map[string]domain.Extension),
		enabled:     make(map[string]bool),
	}
}

// LoadState restores the enabled set from the state file, if present.
func (m *Manager) LoadState() error {
	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read extension state: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parse extension state: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = make(map[string]bool, len(ids))
	for _, id := range ids {
		m.enabled[id] = true
	}
	return nil
}

func (m *Manager) saveState() error {
	ids := make([]string, 0, len(m.enabled))
	for id, on := range m.enabled {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.stateFile), 0o700); err != nil {
		return err
	}
	tmp := m.stateFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, m.stateFile)
}

// Discover scans the extensions directory and mounts every entry not
// already discovered: folder form (<id>/manifest.json) and archive form
// (<id>.zip, auto-extracted). Entries with a manifest/directory id mismatch
// are skipped with a logged error rather than aborting the whole scan.
func (m *Manager) Discover() ([]domain.Extension, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read extensions dir %s: %w", m.dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if name == ".extracted" {
				continue
			}
			if _, err := os.Stat(filepath.Join(m.dir, name, "manifest.json")); err != nil {
				continue
			}
			if err := m.Mount(name); err != nil {
				log.Printf("[extension] mount %s: %v", name, err)
			}
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), ".zip") {
			id := strings.TrimSuffix(name, filepath.Ext(name))
			if err := m.Mount(id); err != nil {
				log.Printf("[extension] mount %s: %v", id, err)
			}
		}
	}

	return m.List(), nil
}

// Mount loads a single extension (by directory/archive id) into the
// discovered set, a runtime hot-add. Already-mounted extensions are
// reloaded in place (their position in discovery order is preserved).
func (m *Manager) Mount(id string) error {
	folderDir := filepath.Join(m.dir, id)
	zipPath := filepath.Join(m.dir, id+".zip")

	var ext domain.Extension
	var err error
	if _, statErr := os.Stat(filepath.Join(folderDir, "manifest.json")); statErr == nil {
		ext, err = loadFolderExtension(folderDir, id)
	} else if _, statErr := os.Stat(zipPath); statErr == nil {
		ext, err = loadArchiveExtension(zipPath, id, filepath.Join(m.extractDir, id))
	} else {
		return fmt.Errorf("%w: %s", domain.ErrExtensionNotFound, id)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, already := m.discovered[id]; !already {
		m.order = append(m.order, id)
	}
	m.discovered[id] = ext
	return nil
}

// Unmount removes an extension from the discovered (and enabled) set.
// runningInstanceExtData supplies the extension_data map of every currently
// running instance, so the "no running instance references this extension
// truthily" invariant can be enforced without the extension package
// depending on the instance store.
func (m *Manager) Unmount(id string, runningInstanceExtData []map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.discovered[id]
	if !ok {
		return domain.ErrNotFound("extension", id)
	}

	var dependents []string
	for otherID, otherExt := range m.discovered {
		if otherID == id || !m.enabled[otherID] {
			continue
		}
		if _, declared := otherExt.Dependencies[id]; declared {
			dependents = append(dependents, otherID)
		}
	}
	if len(dependents) > 0 {
		sort.Strings(dependents)
		return domain.ErrHasDependentsFor(dependents...)
	}

	for _, extData := range runningInstanceExtData {
		for fieldName := range ext.InstanceFields {
			if Truthy(extData[fieldName]) {
				return domain.ErrInUseFor(id)
			}
		}
	}

	delete(m.discovered, id)
	delete(m.enabled, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return m.saveState()
}

// List returns the discovered extensions in discovery order.
func (m *Manager) List() []domain.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Extension, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.discovered[id])
	}
	return out
}

// Get returns a discovered extension by id.
func (m *Manager) Get(id string) (domain.Extension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.discovered[id]
	if !ok {
		return domain.Extension{}, domain.ErrNotFound("extension", id)
	}
	return ext, nil
}

// IsEnabled reports whether id is currently enabled.
func (m *Manager) IsEnabled(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled[id]
}

// EnabledIDs returns every currently enabled extension id, in discovery
// order.
func (m *Manager) EnabledIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range m.order {
		if m.enabled[id] {
			out = append(out, id)
		}
	}
	return out
}

// EnableWithVersions enables id, checking every entry of its Dependencies:
// if the key names another discovered extension, require it enabled with
// version >= the requirement; otherwise treat it as an infrastructure
// component and require installedVersions[key] >= the requirement. A
// requirement of "*" still requires the dependency to be mounted/installed,
// just not at any particular version.
func (m *Manager) EnableWithVersions(id string, installedVersions map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.discovered[id]
	if !ok {
		return domain.ErrNotFound("extension", id)
	}

	for dep, requirement := range ext.Dependencies {
		if depExt, isExtension := m.discovered[dep]; isExtension {
			if !m.enabled[dep] {
				return domain.ErrDependencyNotEnabledFor(dep)
			}
			if !semver.Satisfies(depExt.Version, requirement) {
				return domain.ErrVersionUnsatisfiedFor(dep, requirement)
			}
			continue
		}

		installed, present := installedVersions[dep]
		if !present {
			return domain.ErrDependencyMissingFor(dep)
		}
		if !semver.Satisfies(installed, requirement) {
			return domain.ErrVersionUnsatisfiedFor(dep, requirement)
		}
	}

	m.enabled[id] = true
	return m.saveState()
}

// Disable disables id. It does not check for dependents — per the spec,
// that enforcement belongs to Unmount; a disabled-but-still-mounted
// extension with dependents is simply left inconsistent until its
// dependents are also disabled (mirrors the source's permissive disable).
func (m *Manager) Disable(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.discovered[id]; !ok {
		return domain.ErrNotFound("extension", id)
	}
	delete(m.enabled, id)
	return m.saveState()
}

// HookResult is one binding's dispatch outcome, surfaced for diagnostics.
type HookResult struct {
	ExtensionID string
	Handled     bool
	Err         error
}

// DispatchHook enumerates every hook binding named hookName across enabled
// extensions in discovery order, evaluates each binding's condition against
// extData, and invokes the bound adapter function. The chain terminates at
// the first binding whose result reports handled: true. An erroring
// extension is logged and does not abort the chain.
func (m *Manager) DispatchHook(ctx context.Context, hookName string, extData map[string]any, payload map[string]any) []HookResult {
	bindings := m.bindingsFor(hookName)

	var results []HookResult
	for _, b := range bindings {
		cond := ParseCondition(b.binding.Condition)
		if !cond.Evaluate(extData) {
			continue
		}

		scriptPath, err := m.resolveScript(b.extensionID, b.binding.Module)
		if err != nil {
			log.Printf("[extension] hook %s: resolve %s/%s: %v", hookName, b.extensionID, b.binding.Module, err)
			results = append(results, HookResult{ExtensionID: b.extensionID, Err: err})
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, m.hookTimeout)
		res, err := m.newAdapter(scriptPath).Command(callCtx, mergeContext(b.binding.Function, payload))
		cancel()
		if err != nil {
			log.Printf("[extension] hook %s: %s: %v", hookName, b.extensionID, err)
			results = append(results, HookResult{ExtensionID: b.extensionID, Err: err})
			continue
		}

		handled := Truthy(res.Data["handled"])
		results = append(results, HookResult{ExtensionID: b.extensionID, Handled: handled})
		if handled {
			break
		}
	}
	return results
}

type boundHook struct {
	extensionID string
	binding     domain.HookBinding
}

func (m *Manager) bindingsFor(hookName string) []boundHook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []boundHook
	for _, id := range m.order {
		if !m.enabled[id] {
			continue
		}
		ext := m.discovered[id]
		if b, ok := ext.Hooks[hookName]; ok {
			out = append(out, boundHook{extensionID: id, binding: b})
		}
	}
	return out
}

func (m *Manager) resolveScript(extensionID, moduleName string) (string, error) {
	m.mu.RLock()
	ext, ok := m.discovered[extensionID]
	m.mu.RUnlock()
	if !ok {
		return "", domain.ErrNotFound("extension", extensionID)
	}
	rel, ok := ext.PythonModules[moduleName]
	if !ok {
		return "", fmt.Errorf("python module %s not declared by extension %s", moduleName, extensionID)
	}
	return filepath.Join(ext.Dir, rel), nil
}

func mergeContext(function string, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["_function"] = function
	return out
}
