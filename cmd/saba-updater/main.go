// Command saba-updater is the side-loaded applier: a separate executable
// that can replace a running GUI or core daemon binary, which cannot
// safely overwrite itself while executing. It reads pending.json (staged
// by the daemon's update manager), waits for the target process to exit,
// extracts the staged archive over the install directory, and can
// optionally relaunch the updated binary.
//
// The original updater brought up a progress window; this pack carries no
// GUI toolkit, so --cli runs the same flow against stdout instead of a
// window (see DESIGN.md).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/saba-chan/saba-core/internal/infra/archive"
	"github.com/saba-chan/saba-core/internal/infra/monitor"
	"github.com/saba-chan/saba-core/internal/infra/updater"
)

func main() {
	var (
		key         = flag.String("key", "", "component key to apply (required)")
		stagingDir  = flag.String("staging-dir", "", "staging directory holding pending.json (required)")
		installPath = flag.String("install-path", "", "directory to extract the staged archive into (required)")
		processName = flag.String("process-name", "", "process name to wait for exit before extracting")
		waitSeconds = flag.Int("wait-seconds", 30, "how long to wait for process-name to exit")
		restartPath = flag.String("restart", "", "executable to relaunch once the apply completes")
		_           = flag.Bool("cli", true, "run in CLI mode (always true; no GUI toolkit is available)")
	)
	flag.Parse()

	if err := run(*key, *stagingDir, *installPath, *processName, *restartPath, time.Duration(*waitSeconds)*time.Second); err != nil {
		fmt.Fprintln(os.Stderr, "saba-updater:", err)
		os.Exit(1)
	}
}

func run(key, stagingDir, installPath, processName, restartPath string, wait time.Duration) error {
	if key == "" || stagingDir == "" || installPath == "" {
		return fmt.Errorf("-key, -staging-dir, and -install-path are required")
	}

	entries, err := updater.LoadPendingEntries(updater.PendingFilePath(stagingDir))
	if err != nil {
		return fmt.Errorf("read pending.json: %w", err)
	}
	entry, ok := entries[key]
	if !ok {
		return fmt.Errorf("no pending entry staged for %q", key)
	}

	if processName != "" {
		fmt.Printf("waiting for %s to exit (up to %s)...\n", processName, wait)
		if err := waitForExit(processName, wait); err != nil {
			return err
		}
	}

	fmt.Printf("extracting %s -> %s\n", entry.StagedPath, installPath)
	if err := archive.Extract(entry.StagedPath, installPath, archive.ExtractOptions{SkipPycache: true, SkipDotfiles: true}); err != nil {
		return fmt.Errorf("extract %s: %w", key, err)
	}

	if restartPath != "" {
		fmt.Printf("relaunching %s\n", restartPath)
		cmd := exec.Command(restartPath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("relaunch %s: %w", restartPath, err)
		}
	}

	fmt.Printf("applied %s\n", key)
	return nil
}

func waitForExit(processName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		matches, err := monitor.FindByName(processName)
		if err != nil {
			return fmt.Errorf("enumerate processes: %w", err)
		}
		if len(matches) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s to exit", processName)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
