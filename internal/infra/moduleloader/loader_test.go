package moduleloader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/saba-chan/saba-core/internal/domain"
)

const sampleModuleToml = `[module]
name = "minecraft"
version = "2.1.0"
entry = "lifecycle.py"

[config]
process_name = "java"
default_port = 25565

[settings]
fields = [{ name = "port", type = "number", default = 25565, required = true }]

[commands]
fields = [{ name = "say", method = "rcon", rcon_template = "say {message}" }]
`

func writeFolderModule(t *testing.T, dir, name, toml string) {
	t.Helper()
	d := filepath.Join(dir, name)
	if err := os.MkdirAll(d, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d, "module.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFolderModule(t *testing.T) {
	dir := t.TempDir()
	writeFolderModule(t, dir, "minecraft", sampleModuleToml)

	l := New(dir)
	mods, err := l.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected 1 module, got %d", len(mods))
	}
	if mods[0].Name != "minecraft" || mods[0].DefaultPort != 25565 {
		t.Errorf("unexpected module: %+v", mods[0])
	}
	if len(mods[0].CommandsSchema) != 1 || mods[0].CommandsSchema[0].Method != domain.MethodRCON {
		t.Errorf("unexpected commands schema: %+v", mods[0].CommandsSchema)
	}
}

func TestDiscoverArchiveModule(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "minecraft.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("module.toml")
	w.Write([]byte(sampleModuleToml))
	w2, _ := zw.Create("lifecycle.py")
	w2.Write([]byte("pass"))
	zw.Close()
	f.Close()

	l := New(dir)
	mods, err := l.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected 1 module, got %d", len(mods))
	}
	if _, err := os.Stat(filepath.Join(mods[0].Dir, "lifecycle.py")); err != nil {
		t.Errorf("expected archive to be extracted: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	l := New(t.TempDir())
	if _, err := l.Get("nonexistent"); err != domain.ErrModuleNotFound {
		t.Fatalf("Get = %v, want ErrModuleNotFound", err)
	}
}

func TestRefreshPicksUpNewModules(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	mods, _ := l.Discover()
	if len(mods) != 0 {
		t.Fatalf("expected empty discovery, got %d", len(mods))
	}

	writeFolderModule(t, dir, "minecraft", sampleModuleToml)
	mods, err := l.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected 1 module after refresh, got %d", len(mods))
	}
}
