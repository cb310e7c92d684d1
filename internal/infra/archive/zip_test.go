package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractWritesFiles(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "mod.zip")
	writeZip(t, zipPath, map[string]string{
		"module.toml":       "[module]\nname=\"x\"\n",
		"__pycache__/a.pyc": "junk",
		".hidden":           "junk",
		"lifecycle.py":      "print('hi')",
	})

	destDir := filepath.Join(dir, "out")
	if err := Extract(zipPath, destDir, ExtractOptions{SkipPycache: true, SkipDotfiles: true}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "module.toml")); err != nil {
		t.Error("expected module.toml to be extracted")
	}
	if _, err := os.Stat(filepath.Join(destDir, "lifecycle.py")); err != nil {
		t.Error("expected lifecycle.py to be extracted")
	}
	if _, err := os.Stat(filepath.Join(destDir, "__pycache__", "a.pyc")); err == nil {
		t.Error("expected __pycache__ entry to be skipped")
	}
	if _, err := os.Stat(filepath.Join(destDir, ".hidden")); err == nil {
		t.Error("expected dotfile entry to be skipped")
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"../../etc/passwd": "root:x:0:0",
	})

	destDir := filepath.Join(dir, "out")
	err := Extract(zipPath, destDir, ExtractOptions{})
	if err == nil {
		t.Fatal("expected Extract to reject a traversal entry")
	}
}

func TestFindManifestReadsSingleEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "ext.zip")
	writeZip(t, zipPath, map[string]string{
		"manifest.json": `{"id":"docker"}`,
	})

	data, err := FindManifest(zipPath, "manifest.json")
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if string(data) != `{"id":"docker"}` {
		t.Errorf("got %q", data)
	}
}
