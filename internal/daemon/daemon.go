// Package daemon wires the supervisor, extension manager, update manager,
// and IPC server into a single long-running process and manages its
// configuration lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/adapter"
	"github.com/saba-chan/saba-core/internal/infra/extension"
	"github.com/saba-chan/saba-core/internal/infra/moduleloader"
	"github.com/saba-chan/saba-core/internal/infra/store"
	"github.com/saba-chan/saba-core/internal/infra/supervisor"
	"github.com/saba-chan/saba-core/internal/infra/tracker"
	"github.com/saba-chan/saba-core/internal/infra/updater"
	"github.com/saba-chan/saba-core/internal/ipc"
)

// moduleInterpreter is the interpreter every module adapter is invoked
// with. Modules ship Python lifecycle scripts; a module-level override
// isn't part of the manifest format, so this is fixed.
const moduleInterpreter = "python3"

// Daemon wires every supervisor collaborator into one long-running
// process: the instance store, module/extension discovery, the
// supervisor's lifecycle operations, the self-updater, and the IPC server
// that fronts all of it.
type Daemon struct {
	Config Config

	Tracker    *tracker.Tracker
	Store      *store.Store
	Modules    *moduleloader.Loader
	Extensions *extension.Manager
	Supervisor *supervisor.Supervisor
	Updater    *updater.Manager
	IPC        *ipc.Server

	cancel context.CancelFunc
}

// New loads the on-disk configuration (or defaults, on first run) and
// wires a Daemon from it.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig wires a Daemon from an explicit configuration, for tests
// and for the CLI's one-off commands.
func NewWithConfig(cfg Config) (*Daemon, error) {
	home := SabaHome()

	st, err := store.New(filepath.Join(home, "store"))
	if err != nil {
		return nil, fmt.Errorf("open instance store: %w", err)
	}

	mods := moduleloader.New(cfg.Paths.ModulesDir)

	extAdapter := func(scriptPath string) domain.Adapter {
		return adapter.New(moduleInterpreter, scriptPath)
	}
	exts := extension.New(cfg.Paths.ExtensionsDir, filepath.Join(home, "extension_state.json"), extAdapter)
	if err := exts.LoadState(); err != nil {
		return nil, fmt.Errorf("load extension state: %w", err)
	}

	modAdapter := func(mod domain.Module) domain.Adapter {
		return adapter.New(moduleInterpreter, mod.Entry)
	}
	tr := tracker.New()
	sup := supervisor.New(tr, st, mods, exts, modAdapter)
	if cfg.IPC.MonitorIntervalMS > 0 {
		sup.MonitorInterval = time.Duration(cfg.IPC.MonitorIntervalMS) * time.Millisecond
	}

	upd := updater.New(cfg.Update.GitHubOwner, cfg.Update.GitHubRepo, cfg.Update.APIBaseURL, cfg.Paths.StagingDir, cfg.Update.InstallRoot, home)
	upd.IncludePrerelease = cfg.Update.IncludePrerelease

	ipcServer, err := ipc.New(sup, upd, home, cfg.Paths.ModulesDir, cfg.Paths.ExtensionsDir)
	if err != nil {
		return nil, fmt.Errorf("init ipc server: %w", err)
	}

	return &Daemon{
		Config:     cfg,
		Tracker:    tr,
		Store:      st,
		Modules:    mods,
		Extensions: exts,
		Supervisor: sup,
		Updater:    upd,
		IPC:        ipcServer,
	}, nil
}

// Serve binds the IPC listener, starts the monitor loop and the periodic
// update-check loop (if enabled), and blocks until ctx is cancelled or a
// SIGINT/SIGTERM arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.IPC.Host, d.Config.IPC.Port)
	ln, err := d.IPC.Listen(addr)
	if err != nil {
		return err
	}

	go d.Supervisor.RunMonitorLoop(ctx)
	if d.Config.Update.Enabled {
		go d.runUpdateLoop(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Printf("[daemon] serving on http://%s (ipc token persisted under %s)", addr, SabaHome())
	return d.IPC.Serve(ctx, ln)
}

// runUpdateLoop periodically checks for updates and, when auto_download is
// set, downloads every resolved component. It does not apply anything;
// auto_apply is not read here.
func (d *Daemon) runUpdateLoop(ctx context.Context) {
	interval := time.Duration(d.Config.Update.CheckIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkForUpdates()
		}
	}
}

func (d *Daemon) checkForUpdates() {
	_, resolved, err := d.Updater.Check()
	if err != nil {
		log.Printf("[daemon] update check failed: %v", err)
		return
	}
	if !d.Config.Update.AutoDownload {
		return
	}
	for key := range resolved {
		if err := d.Updater.Download(key); err != nil {
			log.Printf("[daemon] auto-download %s failed: %v", key, err)
		}
	}
}

// Close cancels any running background loops. Safe to call even if Serve
// was never started.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}
