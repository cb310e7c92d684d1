package ipc

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/tracker"
)

// clientTTL is how long a client's heartbeat stays valid before the reaper
// considers it gone.
const clientTTL = 45 * time.Second

// clientReaperInterval is how often the reaper sweeps for expired clients.
const clientReaperInterval = 15 * time.Second

// clientRegistry tracks live GUI/CLI front-ends registered over IPC,
// reaping entries whose heartbeat has gone stale and killing any bot_pid
// they carried.
type clientRegistry struct {
	mu      sync.Mutex
	clients map[string]domain.ClientRegistration
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{clients: make(map[string]domain.ClientRegistration)}
}

func (c *clientRegistry) register(kind domain.ClientKind, botPID int) domain.ClientRegistration {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg := domain.ClientRegistration{
		ID:            uuid.NewString(),
		Kind:          kind,
		LastHeartbeat: time.Now(),
		BotPID:        botPID,
	}
	c.clients[reg.ID] = reg
	return reg
}

func (c *clientRegistry) heartbeat(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.clients[id]
	if !ok {
		return domain.NewTaxonomyError("not_found", "client not registered: "+id, domain.ErrInstanceNotFound, id)
	}
	reg.LastHeartbeat = time.Now()
	c.clients[id] = reg
	return nil
}

func (c *clientRegistry) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, id)
}

func (c *clientRegistry) list() []domain.ClientRegistration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ClientRegistration, 0, len(c.clients))
	for _, reg := range c.clients {
		out = append(out, reg)
	}
	return out
}

// reap removes every client whose heartbeat is older than clientTTL,
// killing its bot_pid if it declared one.
func (c *clientRegistry) reap() {
	c.mu.Lock()
	expired := make([]domain.ClientRegistration, 0)
	cutoff := time.Now().Add(-clientTTL)
	for id, reg := range c.clients {
		if reg.LastHeartbeat.Before(cutoff) {
			expired = append(expired, reg)
			delete(c.clients, id)
		}
	}
	c.mu.Unlock()

	for _, reg := range expired {
		log.Printf("[ipc] reaping stale client %s (kind=%s, last heartbeat %s ago)", reg.ID, reg.Kind, time.Since(reg.LastHeartbeat))
		if reg.BotPID > 0 {
			if err := tracker.KillPID(reg.BotPID, true); err != nil {
				log.Printf("[ipc] reap: kill bot_pid %d for client %s: %v", reg.BotPID, reg.ID, err)
			}
		}
	}
}

// runReaper sweeps for expired clients until stop is closed.
func (c *clientRegistry) runReaper(stop <-chan struct{}) {
	ticker := time.NewTicker(clientReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.reap()
		}
	}
}

// ─── HTTP handlers ──────────────────────────────────────────────────────────

type registerClientRequest struct {
	Kind   domain.ClientKind `json:"kind"`
	BotPID int               `json:"bot_pid,omitempty"`
}

func (s *Server) handleClientRegister(w http.ResponseWriter, r *http.Request) {
	var req registerClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Kind != domain.ClientGUI && req.Kind != domain.ClientCLI {
		writeError(w, domain.NewTaxonomyError("validation_failed", "kind must be gui or cli", domain.ErrValidation))
		return
	}
	reg := s.clients.register(req.Kind, req.BotPID)
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleClientHeartbeat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.clients.heartbeat(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClientUnregister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.clients.unregister(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClientList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clients.list())
}
