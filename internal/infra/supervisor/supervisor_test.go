package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/adapter"
	"github.com/saba-chan/saba-core/internal/infra/extension"
	"github.com/saba-chan/saba-core/internal/infra/moduleloader"
	"github.com/saba-chan/saba-core/internal/infra/store"
	"github.com/saba-chan/saba-core/internal/infra/tracker"
)

func newTestSupervisor(t *testing.T) (*Supervisor, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "store"))
	if err != nil {
		t.Fatal(err)
	}
	mods := moduleloader.New(filepath.Join(dir, "modules"))
	exts := extension.New(filepath.Join(dir, "extensions"), filepath.Join(dir, "ext_state.json"), func(string) domain.Adapter {
		return adapter.NewMock()
	})

	sup := New(tracker.New(), st, mods, exts, func(mod domain.Module) domain.Adapter {
		return adapter.NewMock()
	})
	sup.MonitorInterval = 10 * time.Millisecond
	return sup, st
}

func TestStartStopServerLifecycle(t *testing.T) {
	sup, st := newTestSupervisor(t)
	st.Add(domain.Instance{Name: "srv1", ModuleName: "minecraft"})

	// Point the loader at a temp dir with a minimal module.
	modDir := t.TempDir()
	writeFolderModule(t, modDir)
	sup.Modules = newLoaderAt(modDir)

	res, err := sup.StartServer(context.Background(), "srv1", "minecraft", nil)
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected successful start, got %+v", res)
	}
	if pid, ok := sup.Tracker.GetPID("srv1"); !ok || pid != 1 {
		t.Fatalf("expected tracked pid 1, got %d, %v", pid, ok)
	}

	res, err = sup.StopServer(context.Background(), "srv1", "minecraft", false)
	if err != nil {
		t.Fatalf("StopServer: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected successful stop, got %+v", res)
	}
	if _, ok := sup.Tracker.GetPID("srv1"); ok {
		t.Fatal("expected instance to be untracked after stop")
	}
}

func TestMonitorCycleNoOpOnEmptyInstanceList(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	// monitorCycle must return immediately without touching the tracker.
	sup.monitorCycle()
	if len(sup.Tracker.Names()) != 0 {
		t.Fatal("expected no tracked processes")
	}
}

func TestMonitorCycleAdoptsAutoDetectedProcess(t *testing.T) {
	sup, st := newTestSupervisor(t)
	st.Add(domain.Instance{
		Name:        "srv1",
		ModuleName:  "minecraft",
		AutoDetect:  true,
		ProcessName: "improbable-test-process-name-xyz",
	})

	// Without a real matching OS process this should simply not adopt
	// anything and must not panic or error.
	sup.monitorCycle()
	if _, ok := sup.Tracker.GetPID("srv1"); ok {
		t.Fatal("expected no adoption without a matching process")
	}
}

func writeFolderModule(t *testing.T, dir string) {
	t.Helper()
	modDir := filepath.Join(dir, "minecraft")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatal(err)
	}
	toml := "[module]\nname=\"minecraft\"\nversion=\"1.0.0\"\nentry=\"lifecycle.py\"\n"
	if err := os.WriteFile(filepath.Join(modDir, "module.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newLoaderAt(dir string) *moduleloader.Loader {
	return moduleloader.New(dir)
}
