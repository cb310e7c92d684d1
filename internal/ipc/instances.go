package ipc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/metrics"
)

func (s *Server) handleInstanceList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Supervisor.Store.List())
}

func (s *Server) handleInstanceGet(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleInstanceCreate(w http.ResponseWriter, r *http.Request) {
	var inst domain.Instance
	if err := decodeJSON(r, &inst); err != nil {
		writeError(w, err)
		return
	}
	if inst.Name == "" || inst.ModuleName == "" {
		writeError(w, domain.NewTaxonomyError("validation_failed", "name and module_name are required", domain.ErrMissingField))
		return
	}
	created, err := s.Supervisor.Store.Add(inst)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleInstanceUpdate(w http.ResponseWriter, r *http.Request) {
	var inst domain.Instance
	if err := decodeJSON(r, &inst); err != nil {
		writeError(w, err)
		return
	}
	inst.ID = chi.URLParam(r, "id")
	updated, err := s.Supervisor.Store.Update(inst)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleInstanceRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inst, err := s.Supervisor.Store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, tracked := s.Supervisor.Tracker.GetPID(inst.Name); tracked {
		writeError(w, domain.ErrInUseFor(id))
		return
	}
	if err := s.Supervisor.Store.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInstanceReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Supervisor.Store.Reorder(req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Supervisor.Store.List())
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

type lifecycleRequest struct {
	Config map[string]any `json:"config,omitempty"`
	Force  bool           `json:"force,omitempty"`
}

func (s *Server) handleInstanceStart(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req lifecycleRequest
	_ = decodeJSONLenient(r, &req)

	start := time.Now()
	res, err := s.Supervisor.StartServer(r.Context(), inst.Name, inst.ModuleName, req.Config)
	metrics.AdapterCallLatency.WithLabelValues(inst.ModuleName, "start").Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil || !res.Success {
		result = "failure"
		metrics.AdapterCallsFailed.WithLabelValues(inst.ModuleName, "start").Inc()
	}
	metrics.ServerLifecycleTotal.WithLabelValues(inst.ModuleName, "start", result).Inc()
	metrics.InstancesTracked.Set(float64(len(s.Supervisor.Tracker.Snapshot())))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInstanceStop(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req lifecycleRequest
	_ = decodeJSONLenient(r, &req)

	start := time.Now()
	res, err := s.Supervisor.StopServer(r.Context(), inst.Name, inst.ModuleName, req.Force)
	metrics.AdapterCallLatency.WithLabelValues(inst.ModuleName, "stop").Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil || !res.Success {
		result = "failure"
		metrics.AdapterCallsFailed.WithLabelValues(inst.ModuleName, "stop").Inc()
	}
	metrics.ServerLifecycleTotal.WithLabelValues(inst.ModuleName, "stop", result).Inc()
	metrics.InstancesTracked.Set(float64(len(s.Supervisor.Tracker.Snapshot())))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInstanceStatus(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	start := time.Now()
	res, err := s.Supervisor.GetServerStatus(r.Context(), inst.Name, inst.ModuleName)
	metrics.AdapterCallLatency.WithLabelValues(inst.ModuleName, "status").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, err)
		return
	}
	if s.Supervisor.IsQuarantined(inst.Name) {
		if res.Data == nil {
			res.Data = map[string]any{}
		}
		res.Data["quarantined"] = true
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeJSONLenient decodes the request body into v, tolerating an absent
// or empty body (lifecycle requests commonly carry none).
func decodeJSONLenient(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, v)
}
