package ipc

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/archive"
)

// extensionView wraps a discovered extension with its enablement state,
// since domain.Extension itself carries no such field.
type extensionView struct {
	domain.Extension
	Enabled bool `json:"enabled"`
}

func (s *Server) handleExtensionList(w http.ResponseWriter, r *http.Request) {
	discovered := s.Supervisor.Extensions.List()
	out := make([]extensionView, len(discovered))
	for i, ext := range discovered {
		out[i] = extensionView{Extension: ext, Enabled: s.Supervisor.Extensions.IsEnabled(ext.ID)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExtensionGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ext, err := s.Supervisor.Extensions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extensionView{Extension: ext, Enabled: s.Supervisor.Extensions.IsEnabled(id)})
}

func (s *Server) handleExtensionRescan(w http.ResponseWriter, r *http.Request) {
	exts, err := s.Supervisor.Extensions.Discover()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exts)
}

func (s *Server) handleExtensionMount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Supervisor.Extensions.Mount(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "mounted", "id": id})
}

func (s *Server) handleExtensionUnmount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	extData := make([]map[string]any, 0)
	for _, inst := range s.Supervisor.Store.List() {
		extData = append(extData, inst.ExtensionData)
	}
	if err := s.Supervisor.Extensions.Unmount(id, extData); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unmounted", "id": id})
}

func (s *Server) handleExtensionEnable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Supervisor.Extensions.EnableWithVersions(id, s.installedVersions()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled", "id": id})
}

func (s *Server) handleExtensionDisable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Supervisor.Extensions.Disable(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled", "id": id})
}

// installedVersions merges discovered module versions with the updater's
// view of installed components, giving EnableWithVersions a single table to
// check non-extension dependencies against.
func (s *Server) installedVersions() map[string]string {
	out := make(map[string]string)
	if mods, err := s.Supervisor.Modules.Discover(); err == nil {
		for _, mod := range mods {
			out[mod.Name] = mod.Version
		}
	}
	for _, c := range s.Updater.Status() {
		if c.Installed {
			out[c.Key] = c.CurrentVersion
		}
	}
	return out
}

// handleExtensionRegistryFetch proxies a GET against a configured extension
// registry URL, returning its catalog JSON unchanged to the caller.
func (s *Server) handleExtensionRegistryFetch(w http.ResponseWriter, r *http.Request) {
	if s.ExtensionRegistryURL == "" {
		writeError(w, domain.NewTaxonomyError("validation_failed", "no extension registry configured", domain.ErrValidation))
		return
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(s.ExtensionRegistryURL)
	if err != nil {
		writeError(w, fmt.Errorf("fetch extension registry: %w", err))
		return
	}
	defer resp.Body.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// handleExtensionInstallFromURL downloads a zip-packaged extension from an
// arbitrary URL and extracts it into the extensions directory, then
// rescans so it shows up as discovered.
func (s *Server) handleExtensionInstallFromURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		writeError(w, domain.NewTaxonomyError("validation_failed", "url is required", domain.ErrMissingField))
		return
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(req.URL)
	if err != nil {
		writeError(w, fmt.Errorf("download extension: %w", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		writeError(w, fmt.Errorf("%w: download extension: status %d", domain.ErrDownloadFailed, resp.StatusCode))
		return
	}

	tmp, err := os.CreateTemp("", "saba-extension-*.zip")
	if err != nil {
		writeError(w, fmt.Errorf("stage extension download: %w", err))
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		writeError(w, fmt.Errorf("stage extension download: %w", err))
		return
	}
	tmp.Close()

	destName := fmt.Sprintf("installed-%d", time.Now().UnixNano())
	dest := filepath.Join(s.ExtensionsDir, destName)
	if err := archive.Extract(tmp.Name(), dest, archive.ExtractOptions{SkipPycache: true, SkipDotfiles: true}); err != nil {
		writeError(w, fmt.Errorf("extract extension: %w", err))
		return
	}

	exts, err := s.Supervisor.Extensions.Discover()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "installed", "extensions": exts})
}
