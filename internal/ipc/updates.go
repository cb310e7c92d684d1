package ipc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/metrics"
)

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Updater.Status())
}

func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	manifest, resolved, err := s.Updater.Check()
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.UpdateChecksTotal.WithLabelValues(result).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	available := 0
	for _, c := range s.Updater.Status() {
		if c.UpdateAvailable {
			available++
		}
	}
	metrics.ComponentsUpdateAvailable.Set(float64(available))

	writeJSON(w, http.StatusOK, map[string]any{
		"release_version": manifest.ReleaseVersion,
		"resolved":        resolved,
	})
}

func (s *Server) handleUpdateDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.Updater.Download(key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "downloaded", "key": key})
}

func (s *Server) handleUpdateDownloadAll(w http.ResponseWriter, r *http.Request) {
	results := s.Updater.DownloadAvailableUpdates()
	out := make(map[string]string, len(results))
	for key, err := range results {
		if err != nil {
			out[key] = err.Error()
		} else {
			out[key] = "downloaded"
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type applyRequest struct {
	Kind           domain.ComponentKind `json:"kind"`
	InstallPath    string               `json:"install_path"`
	ProcessName    string               `json:"process_name,omitempty"`
	WaitTimeoutSec int                  `json:"wait_timeout_sec,omitempty"`
}

func (s *Server) handleUpdateApply(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.InstallPath == "" {
		writeError(w, domain.NewTaxonomyError("validation_failed", "install_path is required", domain.ErrMissingField))
		return
	}
	wait := time.Duration(req.WaitTimeoutSec) * time.Second
	if wait <= 0 {
		wait = 30 * time.Second
	}
	if err := s.Updater.Apply(key, req.Kind, req.InstallPath, req.ProcessName, wait); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied", "key": key})
}

func (s *Server) handleUpdateDependencyIssues(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	issues, err := s.Updater.DependencyIssues(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":              s.Updater.Owner,
		"repo":               s.Updater.Repo,
		"include_prerelease": s.Updater.IncludePrerelease,
	})
}
