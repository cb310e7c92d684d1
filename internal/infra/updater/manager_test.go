package updater

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
)

func buildTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
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
	return buf.Bytes()
}

func TestCheckDownloadApplyRoundTrip(t *testing.T) {
	moduleZip := buildTestZip(t, map[string]string{"lifecycle.py": "print('hi')\n"})

	var baseURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/saba-chan/saba-core/releases", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		releases := []map[string]any{
			{
				"tag_name":     "v1.0.0",
				"published_at": now.Format(time.RFC3339),
				"draft":        false,
				"prerelease":   false,
				"assets": []map[string]any{
					{"name": "manifest.json", "browser_download_url": baseURL + "/assets/manifest.json"},
					{"name": "module-minecraft.zip", "browser_download_url": baseURL + "/assets/module-minecraft.zip"},
				},
			},
		}
		json.NewEncoder(w).Encode(releases)
	})
	mux.HandleFunc("/assets/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		manifest := domain.ReleaseManifest{
			ReleaseVersion: "v1.0.0",
			Components: map[string]domain.ManifestComponent{
				"module-minecraft": {Version: "1.0.0", Asset: "module-minecraft.zip"},
			},
		}
		json.NewEncoder(w).Encode(manifest)
	})
	mux.HandleFunc("/assets/module-minecraft.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(moduleZip)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	baseURL = srv.URL

	dir := t.TempDir()
	m := New("saba-chan", "saba-core", srv.URL, filepath.Join(dir, "staging"), filepath.Join(dir, "install"), filepath.Join(dir, "appdata"))

	manifest, resolved, err := m.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if manifest.ReleaseVersion != "v1.0.0" {
		t.Fatalf("manifest version = %s", manifest.ReleaseVersion)
	}
	r, ok := resolved["module-minecraft"]
	if !ok || r.IsUnresolved() {
		t.Fatalf("module-minecraft not resolved: %+v", r)
	}

	if st := m.ComponentState("module-minecraft"); st != domain.StateChecked {
		t.Fatalf("state after check = %s, want checked", st)
	}

	if err := m.Download("module-minecraft"); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if st := m.ComponentState("module-minecraft"); st != domain.StateDownloaded {
		t.Fatalf("state after download = %s, want downloaded", st)
	}

	installDir := filepath.Join(dir, "install", "minecraft")
	if err := m.Apply("module-minecraft", domain.ComponentModule, installDir, "", time.Second); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st := m.ComponentState("module-minecraft"); st != domain.StateApplied {
		t.Fatalf("state after apply = %s, want applied", st)
	}
	if _, err := os.Stat(filepath.Join(installDir, "lifecycle.py")); err != nil {
		t.Fatalf("expected extracted file, got: %v", err)
	}

	// Re-apply must be a no-op, not an error.
	if err := m.Apply("module-minecraft", domain.ComponentModule, installDir, "", time.Second); err != nil {
		t.Fatalf("idempotent re-apply: %v", err)
	}
}

func TestDownloadRejectsUncheckedComponent(t *testing.T) {
	dir := t.TempDir()
	m := New("o", "r", "http://unused", filepath.Join(dir, "staging"), filepath.Join(dir, "install"), filepath.Join(dir, "appdata"))
	if err := m.Download("nope"); err == nil {
		t.Fatal("expected error downloading an unresolved component")
	}
}
