package ipc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/metrics"
	"github.com/saba-chan/saba-core/internal/infra/rcon"
	"github.com/saba-chan/saba-core/internal/infra/restclient"
)

// handleCommandGeneric dispatches a module-schema command through the
// instance's adapter, letting the module decide whether it rides RCON,
// REST, or something else entirely.
func (s *Server) handleCommandGeneric(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Command string         `json:"command"`
		Args    map[string]any `json:"args,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Command == "" {
		writeError(w, domain.NewTaxonomyError("validation_failed", "command is required", domain.ErrMissingField))
		return
	}

	start := time.Now()
	res, err := s.Supervisor.ExecuteCommand(r.Context(), inst.ID, inst.ModuleName, req.Command, req.Args)
	metrics.AdapterCallLatency.WithLabelValues(inst.ModuleName, "command").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AdapterCallsFailed.WithLabelValues(inst.ModuleName, "command").Inc()
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCommandRCON issues a raw RCON command against the instance's
// configured port/password, bypassing the module adapter entirely — used
// by consoles that want a direct line to the game server.
func (s *Server) handleCommandRCON(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if inst.RCONPort == 0 {
		writeError(w, domain.NewTaxonomyError("validation_failed", "instance has no rcon_port configured", domain.ErrValidation))
		return
	}

	addr := fmt.Sprintf("127.0.0.1:%d", inst.RCONPort)
	client, err := rcon.Dial(addr, inst.RCONPassword, 5*time.Second, 5*time.Second)
	if err != nil {
		writeError(w, fmt.Errorf("rcon dial: %w", err))
		return
	}
	defer client.Close()

	reply, err := client.Execute(req.Command)
	if err != nil {
		writeError(w, fmt.Errorf("rcon execute: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// handleCommandREST proxies a request to the instance's configured REST
// management API (e.g. a Pterodactyl-style panel), bypassing the adapter.
func (s *Server) handleCommandREST(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Supervisor.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Body   string `json:"body,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if inst.RESTHost == "" {
		writeError(w, domain.NewTaxonomyError("validation_failed", "instance has no rest_host configured", domain.ErrValidation))
		return
	}

	baseURL := fmt.Sprintf("http://%s:%d", inst.RESTHost, inst.RESTPort)
	client := restclient.New(baseURL, inst.RESTUsername, inst.RESTPassword)

	var resp restclient.Response
	switch req.Method {
	case "", http.MethodGet:
		resp, err = client.Get(req.Path)
	case http.MethodPost:
		resp, err = client.Post(req.Path, []byte(req.Body))
	case http.MethodPut:
		resp, err = client.Put(req.Path, []byte(req.Body))
	case http.MethodDelete:
		resp, err = client.Delete(req.Path)
	default:
		writeError(w, domain.NewTaxonomyError("validation_failed", "unsupported method: "+req.Method, domain.ErrValidation))
		return
	}
	if err != nil {
		writeError(w, fmt.Errorf("rest call: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
