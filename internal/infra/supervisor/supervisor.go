// Package supervisor aggregates the process tracker, monitor, module
// loader, instance store, and extension manager into the daemon's public
// start/stop/status/command operations.
package supervisor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/extension"
	"github.com/saba-chan/saba-core/internal/infra/healing"
	"github.com/saba-chan/saba-core/internal/infra/moduleloader"
	"github.com/saba-chan/saba-core/internal/infra/monitor"
	"github.com/saba-chan/saba-core/internal/infra/store"
	"github.com/saba-chan/saba-core/internal/infra/tracker"
)

// AdapterFactory builds a domain.Adapter for invoking a module's entry
// script.
type AdapterFactory func(mod domain.Module) domain.Adapter

// Supervisor orchestrates instance lifecycle across its component
// collaborators.
type Supervisor struct {
	Tracker    *tracker.Tracker
	Store      *store.Store
	Modules    *moduleloader.Loader
	Extensions *extension.Manager
	NewAdapter AdapterFactory

	MonitorInterval time.Duration

	mu               sync.Mutex // serializes lifecycle ops per the spec's total-order guarantee
	consecutiveFails int
	quarantine       *healing.QuarantineManager
}

// New creates a Supervisor from its collaborators.
func New(tr *tracker.Tracker, st *store.Store, mods *moduleloader.Loader, exts *extension.Manager, newAdapter AdapterFactory) *Supervisor {
	return &Supervisor{
		Tracker:         tr,
		Store:           st,
		Modules:         mods,
		Extensions:      exts,
		NewAdapter:      newAdapter,
		MonitorInterval: 2 * time.Second,
		quarantine:      healing.NewQuarantineManager(healing.DefaultQuarantineConfig()),
	}
}

// IsQuarantined reports whether an instance has crashed enough times
// recently that the monitor loop has stopped trying to auto-detect it.
func (s *Supervisor) IsQuarantined(name string) bool {
	return s.quarantine.IsQuarantined(name)
}

// buildConfig merges module defaults, the instance's configured fields, and
// the caller's config overrides into the map passed to an adapter call.
func buildConfig(mod domain.Module, inst domain.Instance, overrides map[string]any) map[string]any {
	cfg := map[string]any{}
	for _, v := range mod.SettingsSchema {
		if v.Default != nil {
			cfg[v.Name] = v.Default
		}
	}
	for k, v := range inst.ModuleSettings {
		cfg[k] = v
	}
	if inst.ExecutablePath != "" {
		cfg["executable_path"] = inst.ExecutablePath
	} else if mod.ExecutablePath != "" {
		cfg["executable_path"] = mod.ExecutablePath
	}
	if inst.WorkingDir != "" {
		cfg["working_dir"] = inst.WorkingDir
	}
	port := inst.Port
	if port == 0 {
		port = mod.DefaultPort
	}
	if port != 0 {
		cfg["port"] = port
	}
	cfg["server_executable"] = cfg["executable_path"]
	cfg["protocol_mode"] = string(inst.ProtocolMode)
	if inst.RCONPort != 0 {
		cfg["rcon_port"] = inst.RCONPort
	}
	if inst.RCONPassword != "" {
		cfg["rcon_password"] = inst.RCONPassword
	}
	if inst.RESTHost != "" {
		cfg["rest_host"] = inst.RESTHost
	}
	if inst.RESTPort != 0 {
		cfg["rest_port"] = inst.RESTPort
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	return cfg
}

// StartServer looks up the instance by name, dispatches server.pre_start,
// calls the module adapter's Start, registers the PID on success, then
// dispatches server.post_start.
func (s *Supervisor) StartServer(ctx context.Context, name, moduleName string, overrides map[string]any) (domain.AdapterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.Store.GetByName(name)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	mod, err := s.Modules.Get(moduleName)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	cfg := buildConfig(mod, inst, overrides)

	s.Extensions.DispatchHook(ctx, "server.pre_start", inst.ExtensionData, map[string]any{"instance_id": inst.ID, "name": name, "config": cfg})

	adapterImpl := s.NewAdapter(mod)
	res, err := adapterImpl.Start(ctx, cfg)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	if !res.Success {
		return res, nil // adapter-reported failure message surfaces unchanged
	}

	if res.PID > 0 {
		s.Tracker.Track(name, res.PID)
	}

	s.Extensions.DispatchHook(ctx, "server.post_start", inst.ExtensionData, map[string]any{"instance_id": inst.ID, "name": name, "pid": res.PID})
	return res, nil
}

// StopServer dispatches server.pre_stop, calls the adapter's Stop, updates
// the tracker, then dispatches server.post_stop.
func (s *Supervisor) StopServer(ctx context.Context, name, moduleName string, force bool) (domain.AdapterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.Store.GetByName(name)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	mod, err := s.Modules.Get(moduleName)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	cfg := buildConfig(mod, inst, map[string]any{"force": force})

	s.Extensions.DispatchHook(ctx, "server.pre_stop", inst.ExtensionData, map[string]any{"instance_id": inst.ID, "name": name})

	adapterImpl := s.NewAdapter(mod)
	res, err := adapterImpl.Stop(ctx, cfg)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	if res.Success {
		s.Tracker.Untrack(name)
	}

	s.Extensions.DispatchHook(ctx, "server.post_stop", inst.ExtensionData, map[string]any{"instance_id": inst.ID, "name": name})
	return res, nil
}

// GetServerStatus calls the adapter's Status, falling back to the
// tracker's own view when the adapter reports nothing.
func (s *Supervisor) GetServerStatus(ctx context.Context, name, moduleName string) (domain.AdapterResult, error) {
	inst, err := s.Store.GetByName(name)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	mod, err := s.Modules.Get(moduleName)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	cfg := buildConfig(mod, inst, nil)

	res, err := s.NewAdapter(mod).Status(ctx, cfg)
	if err == nil && res.Status != "" {
		return res, nil
	}

	if tp, ok := s.Tracker.Get(name); ok {
		return domain.AdapterResult{Success: true, Status: string(tp.Status), PID: tp.PID}, nil
	}
	return domain.AdapterResult{Success: true, Status: string(domain.StatusStopped)}, nil
}

// ExecuteCommand assembles config including protocol fields and calls the
// adapter's Command.
func (s *Supervisor) ExecuteCommand(ctx context.Context, instanceID, moduleName, command string, args map[string]any) (domain.AdapterResult, error) {
	inst, err := s.Store.Get(instanceID)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	mod, err := s.Modules.Get(moduleName)
	if err != nil {
		return domain.AdapterResult{}, err
	}
	overrides := map[string]any{"command": command}
	for k, v := range args {
		overrides[k] = v
	}
	cfg := buildConfig(mod, inst, overrides)
	return s.NewAdapter(mod).Command(ctx, cfg)
}

// RunMonitorLoop runs the periodic supervisor monitor cycle until ctx is
// cancelled. For every instance: if tracked, verify the PID still runs
// (untrack if not); if not tracked and auto_detect is set with a
// process_name pattern, search OS processes and adopt a match.
func (s *Supervisor) RunMonitorLoop(ctx context.Context) {
	interval := s.MonitorInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.monitorCycle()
		}
	}
}

func (s *Supervisor) monitorCycle() {
	instances := s.Store.List()
	if len(instances) == 0 {
		return // no process enumeration on an empty instance list
	}

	for _, inst := range instances {
		if pid, tracked := s.Tracker.GetPID(inst.Name); tracked {
			running, err := monitor.IsRunning(pid)
			if err != nil {
				s.noteMonitorFailure(err)
				continue
			}
			if running {
				s.Tracker.Touch(inst.Name)
			} else {
				s.Tracker.MarkCrashed(inst.Name)
				s.Tracker.Untrack(inst.Name)
				s.quarantine.RecordFailure(inst.Name)
			}
			continue
		}

		if s.quarantine.IsQuarantined(inst.Name) {
			continue // repeated crashes recently; stop auto-adopting until the ban lifts
		}

		if inst.AutoDetect && inst.ProcessName != "" {
			matches, err := monitor.FindByName(inst.ProcessName)
			if err != nil {
				s.noteMonitorFailure(err)
				continue
			}
			if len(matches) > 0 {
				s.Tracker.Track(inst.Name, int(matches[0].PID))
			}
		}
	}
}

// noteMonitorFailure rate-limits error logging: after 10 consecutive
// failures the counter resets to avoid unbounded log growth.
func (s *Supervisor) noteMonitorFailure(err error) {
	s.consecutiveFails++
	if s.consecutiveFails <= 10 {
		log.Printf("[supervisor] monitor cycle error: %v", err)
	}
	if s.consecutiveFails >= 10 {
		s.consecutiveFails = 0
	}
}
