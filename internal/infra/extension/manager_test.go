package extension

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/saba-chan/saba-core/internal/domain"
)

func writeExtension(t *testing.T, dir, id string, ext map[string]any) {
	t.Helper()
	extDir := filepath.Join(dir, id)
	if err := os.MkdirAll(extDir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(ext)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "manifest.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func noopAdapterFactory(results map[string]domain.AdapterResult) AdapterFactory {
	return func(scriptPath string) domain.Adapter {
		return &stubAdapter{scriptPath: scriptPath, results: results}
	}
}

type stubAdapter struct {
	scriptPath string
	results    map[string]domain.AdapterResult
}

func (s *stubAdapter) Start(ctx context.Context, c map[string]any) (domain.AdapterResult, error) {
	return s.results[s.scriptPath], nil
}
func (s *stubAdapter) Stop(ctx context.Context, c map[string]any) (domain.AdapterResult, error) {
	return s.results[s.scriptPath], nil
}
func (s *stubAdapter) Status(ctx context.Context, c map[string]any) (domain.AdapterResult, error) {
	return s.results[s.scriptPath], nil
}
func (s *stubAdapter) Command(ctx context.Context, c map[string]any) (domain.AdapterResult, error) {
	return s.results[s.scriptPath], nil
}

func TestDiscoverRejectsIDMismatchButContinues(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "docker", map[string]any{"id": "wrong-id", "version": "1.0.0"})
	writeExtension(t, dir, "good", map[string]any{"id": "good", "version": "1.0.0"})

	m := New(dir, filepath.Join(dir, "state.json"), noopAdapterFactory(nil))
	exts, err := m.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(exts) != 1 || exts[0].ID != "good" {
		t.Fatalf("expected only the valid extension discovered, got %+v", exts)
	}
}

func TestEnableWithVersionsDependencyViolation(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "docker", map[string]any{
		"id": "docker", "version": "1.0.0",
		"dependencies": map[string]string{"saba-core": ">=0.5.0"},
	})

	m := New(dir, filepath.Join(dir, "state.json"), noopAdapterFactory(nil))
	if _, err := m.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	err := m.EnableWithVersions("docker", map[string]string{"saba-core": "0.3.0"})
	coded, ok := err.(domain.CodedError)
	if !ok {
		t.Fatalf("expected a CodedError, got %v", err)
	}
	if coded.Code() != "component_version_unsatisfied" {
		t.Fatalf("Code = %q", coded.Code())
	}
	if len(coded.Related()) < 1 || coded.Related()[0] != "saba-core" {
		t.Fatalf("Related = %v", coded.Related())
	}
}

func TestEnableWithVersionsExtensionDependencyMustBeEnabled(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "base", map[string]any{"id": "base", "version": "1.0.0"})
	writeExtension(t, dir, "addon", map[string]any{
		"id": "addon", "version": "1.0.0",
		"dependencies": map[string]string{"base": ">=1.0.0"},
	})

	m := New(dir, filepath.Join(dir, "state.json"), noopAdapterFactory(nil))
	m.Discover()

	if err := m.EnableWithVersions("addon", nil); err == nil {
		t.Fatal("expected enabling addon before base to fail")
	}

	if err := m.EnableWithVersions("base", nil); err != nil {
		t.Fatalf("enable base: %v", err)
	}
	if err := m.EnableWithVersions("addon", nil); err != nil {
		t.Fatalf("enable addon after base: %v", err)
	}
}

func TestEnableDisableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "base", map[string]any{"id": "base", "version": "1.0.0"})

	m := New(dir, filepath.Join(dir, "state.json"), noopAdapterFactory(nil))
	m.Discover()

	before := m.EnabledIDs()
	if err := m.EnableWithVersions("base", nil); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !m.IsEnabled("base") {
		t.Fatal("expected base enabled")
	}
	if err := m.Disable("base"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	after := m.EnabledIDs()
	if len(before) != 0 || len(after) != 0 {
		t.Fatalf("expected enable-then-disable to restore empty set, before=%v after=%v", before, after)
	}
}

func TestUnmountRefusesWithActiveDependent(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "base", map[string]any{"id": "base", "version": "1.0.0"})
	writeExtension(t, dir, "addon", map[string]any{
		"id": "addon", "version": "1.0.0",
		"dependencies": map[string]string{"base": ">=1.0.0"},
	})

	m := New(dir, filepath.Join(dir, "state.json"), noopAdapterFactory(nil))
	m.Discover()
	m.EnableWithVersions("base", nil)
	m.EnableWithVersions("addon", nil)

	err := m.Unmount("base", nil)
	if err == nil {
		t.Fatal("expected unmount of a depended-upon extension to fail")
	}
}

func TestUnmountRefusesWhenInstanceFieldTruthy(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "docker", map[string]any{
		"id": "docker", "version": "1.0.0",
		"instance_fields": map[string]any{"docker_enabled": map[string]any{"name": "docker_enabled", "type": "boolean"}},
	})

	m := New(dir, filepath.Join(dir, "state.json"), noopAdapterFactory(nil))
	m.Discover()

	running := []map[string]any{{"docker_enabled": true}}
	if err := m.Unmount("docker", running); err == nil {
		t.Fatal("expected unmount to fail when a running instance has a truthy field")
	}

	if err := m.Unmount("docker", []map[string]any{{"docker_enabled": false}}); err != nil {
		t.Fatalf("expected unmount to succeed when no instance has a truthy field: %v", err)
	}
}

func TestDispatchHookChainOfResponsibility(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "first", map[string]any{
		"id": "first", "version": "1.0.0",
		"python_modules": map[string]string{"m": "m.py"},
		"hooks": map[string]any{
			"server.pre_start": map[string]any{"module": "m", "function": "on_pre_start"},
		},
	})
	writeExtension(t, dir, "second", map[string]any{
		"id": "second", "version": "1.0.0",
		"python_modules": map[string]string{"m": "m.py"},
		"hooks": map[string]any{
			"server.pre_start": map[string]any{"module": "m", "function": "on_pre_start"},
		},
	})

	results := map[string]domain.AdapterResult{
		filepath.Join(dir, "first", "m.py"):  {Success: true, Data: map[string]any{"handled": true}},
		filepath.Join(dir, "second", "m.py"): {Success: true, Data: map[string]any{"handled": true}},
	}
	var secondInvoked bool
	factory := func(scriptPath string) domain.Adapter {
		if scriptPath == filepath.Join(dir, "second", "m.py") {
			secondInvoked = true
		}
		return &stubAdapter{scriptPath: scriptPath, results: results}
	}

	m := New(dir, filepath.Join(dir, "state.json"), factory)
	m.Discover()
	m.EnableWithVersions("first", nil)
	m.EnableWithVersions("second", nil)

	out := m.DispatchHook(context.Background(), "server.pre_start", nil, nil)
	if len(out) != 1 || !out[0].Handled || out[0].ExtensionID != "first" {
		t.Fatalf("expected chain to stop at first handler, got %+v", out)
	}
	if secondInvoked {
		t.Fatal("expected second extension's script to never be invoked")
	}
}

func TestDispatchHookConditionGatesInvocation(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "docker", map[string]any{
		"id": "docker", "version": "1.0.0",
		"python_modules": map[string]string{"m": "m.py"},
		"hooks": map[string]any{
			"server.pre_start": map[string]any{
				"module": "m", "function": "on_pre_start",
				"condition": "instance.ext_data.docker_enabled",
			},
		},
	})

	var invoked bool
	factory := func(scriptPath string) domain.Adapter {
		invoked = true
		return &stubAdapter{scriptPath: scriptPath, results: map[string]domain.AdapterResult{
			scriptPath: {Success: true},
		}}
	}

	m := New(dir, filepath.Join(dir, "state.json"), factory)
	m.Discover()
	m.EnableWithVersions("docker", nil)

	m.DispatchHook(context.Background(), "server.pre_start", map[string]any{"docker_enabled": false}, nil)
	if invoked {
		t.Fatal("expected condition=false to skip invocation")
	}

	m.DispatchHook(context.Background(), "server.pre_start", map[string]any{"docker_enabled": true}, nil)
	if !invoked {
		t.Fatal("expected condition=true to invoke the hook")
	}
}
