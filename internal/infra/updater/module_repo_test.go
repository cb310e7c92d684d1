package updater

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestCheckModuleRepoFindsModulePrefixedAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/someone/minecraft-module/releases", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tag_name":"v2.5.0","published_at":"2026-01-01T00:00:00Z","draft":false,"prerelease":false,
			"assets":[{"name":"module-minecraft.zip","browser_download_url":"https://example/minecraft.zip"}]}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	m := New("saba-chan", "saba-core", srv.URL, filepath.Join(dir, "staging"), filepath.Join(dir, "install"), filepath.Join(dir, "appdata"))

	r, err := m.CheckModuleRepo("minecraft", "someone/minecraft-module")
	if err != nil {
		t.Fatalf("CheckModuleRepo: %v", err)
	}
	if r.Key != "module-minecraft" || r.DownloadURL != "https://example/minecraft.zip" {
		t.Fatalf("unexpected resolution: %+v", r)
	}
	if r.LatestVersion != "2.5.0" {
		t.Fatalf("expected v-prefix trimmed, got %s", r.LatestVersion)
	}
}

func TestSplitOwnerRepoRejectsMalformed(t *testing.T) {
	if _, _, err := splitOwnerRepo("not-a-valid-repo"); err == nil {
		t.Fatal("expected error for malformed github_repo")
	}
}
