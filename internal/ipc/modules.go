package ipc

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/saba-chan/saba-core/internal/domain"
)

func (s *Server) handleModuleList(w http.ResponseWriter, r *http.Request) {
	mods, err := s.Supervisor.Modules.Discover()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

func (s *Server) handleModuleRefresh(w http.ResponseWriter, r *http.Request) {
	mods, err := s.Supervisor.Modules.Refresh()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

func (s *Server) handleModuleGet(w http.ResponseWriter, r *http.Request) {
	mod, err := s.Supervisor.Modules.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mod)
}

// handleModuleVersions reports the module's current version against the
// updater's latest-resolved catalog entry, if one has been checked.
func (s *Server) handleModuleVersions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	mod, err := s.Supervisor.Modules.Get(name)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"name":            name,
		"current_version": mod.Version,
	}
	if st := s.Updater.Status(); st != nil {
		for _, c := range st {
			if c.Key == "module-"+name {
				resp["latest_version"] = c.LatestVersion
				resp["update_available"] = c.UpdateAvailable
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleModuleInstall downloads and applies the named module component via
// the updater in one call, for a CLI/GUI one-click install flow.
func (s *Server) handleModuleInstall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	key := "module-" + name

	if _, _, err := s.Updater.Check(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Updater.Download(key); err != nil {
		writeError(w, err)
		return
	}
	installDir := filepath.Join(s.ModulesDir, name)
	if err := s.Updater.Apply(key, domain.ComponentModule, installDir, "", s.ApplyWaitTimeout); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.Supervisor.Modules.Refresh(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "installed", "module": name})
}
