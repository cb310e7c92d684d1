package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/archive"
	"github.com/saba-chan/saba-core/internal/infra/monitor"
)

// windowsRenameMaxAttempts bounds the exponential-backoff retry the Windows
// CoreDaemon apply path uses to rename the running executable aside.
const windowsRenameMaxAttempts = 5

// applyInPlace extracts a staged zip over targetDir, skipping __pycache__
// and dotfiles, for components the daemon can freely self-replace (module,
// extension, discord bot, cli).
func applyInPlace(stagedZip, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	return archive.Extract(stagedZip, targetDir, archive.ExtractOptions{SkipPycache: true, SkipDotfiles: true})
}

// applyCoreDaemon applies the CoreDaemon component. On Windows the running
// .exe cannot be overwritten: it is renamed to <name>.exe.old first, with
// exponential-backoff retry (the OS may still hold a brief lock on it after
// the monitor reports the process gone) — 200ms * 2^n before attempt n,
// up to 5 attempts contested (~6.2s total). On other platforms the binary
// is replaced in place, matching a game-server daemon that can be
// relaunched.
func applyCoreDaemon(stagedZip, installedExePath string) error {
	if runtime.GOOS != "windows" {
		return applyInPlace(stagedZip, filepath.Dir(installedExePath))
	}

	oldPath := installedExePath + ".old"
	var lastErr error
	for attempt := 0; attempt < windowsRenameMaxAttempts; attempt++ {
		time.Sleep(200 * time.Millisecond * (1 << uint(attempt)))
		if err := os.Rename(installedExePath, oldPath); err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return fmt.Errorf("rename running daemon aside after %d attempts: %w", windowsRenameMaxAttempts, lastErr)
	}
	return applyInPlace(stagedZip, filepath.Dir(installedExePath))
}

// applyGUI always refuses: the GUI cannot self-replace while running. The
// caller is expected to invoke the side-loaded updater executable instead.
func applyGUI() error {
	return domain.ErrNeedsSideUpdater
}

// waitForProcessExit polls the process list for a name match up to timeout,
// returning nil as soon as no match remains (or immediately if none ever
// matched).
func waitForProcessExit(processName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		matches, err := monitor.FindByName(processName)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("process %s still running after %s", processName, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// Apply applies one resolved, already-downloaded component according to its
// kind's policy, consulting the process list before any binary replacement.
func (m *Manager) Apply(key string, kind domain.ComponentKind, installPath string, processName string, waitTimeout time.Duration) error {
	m.mu.Lock()
	pending, ok := m.state[key]
	alreadyApplied := m.componentState[key] == domain.StateApplied
	m.mu.Unlock()
	if alreadyApplied {
		return nil // idempotent re-apply
	}
	if !ok || pending.StagedPath == "" {
		return fmt.Errorf("%w: %s", domain.ErrNotDownloaded, key)
	}

	if processName != "" {
		if err := waitForProcessExit(processName, waitTimeout); err != nil {
			return fmt.Errorf("apply %s: %w", key, err)
		}
	}

	var applyErr error
	switch kind {
	case domain.ComponentGUI:
		applyErr = applyGUI()
	case domain.ComponentCoreDaemon:
		applyErr = applyCoreDaemon(pending.StagedPath, installPath)
	default:
		applyErr = applyInPlace(pending.StagedPath, installPath)
	}
	if applyErr != nil {
		return applyErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.componentState[key] = domain.StateApplied

	installed, err := loadInstalledManifest(m.installedManifestPath)
	if err != nil {
		return fmt.Errorf("load installed manifest: %w", err)
	}
	installed.Versions[key] = pending.Version
	if err := saveInstalledManifest(m.installedManifestPath, installed); err != nil {
		return fmt.Errorf("save installed manifest: %w", err)
	}
	return nil
}
