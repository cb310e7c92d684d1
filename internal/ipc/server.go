// Package ipc implements the supervisor's loopback control-plane HTTP
// server: the one surface every CLI, GUI, and Discord bot front-end talks
// to. Every route (other than /health and /metrics) requires a matching
// X-Saba-Token header.
package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/supervisor"
	"github.com/saba-chan/saba-core/internal/infra/updater"
)

// bindRetryAttempts and bindRetryDelay bound how long Server.Listen waits
// out a transient EADDRINUSE from a predecessor daemon still tearing down.
const (
	bindRetryAttempts = 10
	bindRetryDelay    = 2 * time.Second
)

// Server is the supervisor's IPC HTTP server.
type Server struct {
	Supervisor *supervisor.Supervisor
	Updater    *updater.Manager

	ModulesDir           string
	ExtensionsDir        string
	ExtensionRegistryURL string
	ApplyWaitTimeout     time.Duration

	token     string
	clients   *clientRegistry
	botConfig *botConfigStore

	reaperStop chan struct{}
}

// New creates a Server. appDataDir backs the persisted IPC token and bot
// config files.
func New(sup *supervisor.Supervisor, upd *updater.Manager, appDataDir, modulesDir, extensionsDir string) (*Server, error) {
	token, err := LoadOrCreateToken(appDataDir)
	if err != nil {
		return nil, fmt.Errorf("load ipc token: %w", err)
	}
	return &Server{
		Supervisor:       sup,
		Updater:          upd,
		ModulesDir:       modulesDir,
		ExtensionsDir:    extensionsDir,
		ApplyWaitTimeout: 30 * time.Second,
		token:            token,
		clients:          newClientRegistry(),
		botConfig:        newBotConfigStore(appDataDir),
		reaperStop:       make(chan struct{}),
	}, nil
}

// Token returns the process-scoped auth token, for a co-located CLI/GUI
// launched directly by the daemon to read without a round trip.
func (s *Server) Token() string { return s.token }

// Handler builds the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.token))

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", s.handleInstanceList)
			r.Post("/", s.handleInstanceCreate)
			r.Post("/reorder", s.handleInstanceReorder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleInstanceGet)
				r.Put("/", s.handleInstanceUpdate)
				r.Delete("/", s.handleInstanceRemove)
				r.Post("/start", s.handleInstanceStart)
				r.Post("/stop", s.handleInstanceStop)
				r.Get("/status", s.handleInstanceStatus)
				r.Post("/command", s.handleCommandGeneric)
				r.Post("/rcon", s.handleCommandRCON)
				r.Post("/rest", s.handleCommandREST)
			})
		})

		r.Route("/modules", func(r chi.Router) {
			r.Get("/", s.handleModuleList)
			r.Post("/refresh", s.handleModuleRefresh)
			r.Get("/{name}", s.handleModuleGet)
			r.Get("/{name}/versions", s.handleModuleVersions)
			r.Post("/{name}/install", s.handleModuleInstall)
		})

		r.Route("/extensions", func(r chi.Router) {
			r.Get("/", s.handleExtensionList)
			r.Post("/rescan", s.handleExtensionRescan)
			r.Get("/registry", s.handleExtensionRegistryFetch)
			r.Post("/install-url", s.handleExtensionInstallFromURL)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleExtensionGet)
				r.Post("/mount", s.handleExtensionMount)
				r.Post("/unmount", s.handleExtensionUnmount)
				r.Post("/enable", s.handleExtensionEnable)
				r.Post("/disable", s.handleExtensionDisable)
				r.Handle("/gui/*", s.handleExtensionGUIBundle())
			})
		})

		r.Route("/updates", func(r chi.Router) {
			r.Get("/", s.handleUpdateStatus)
			r.Get("/config", s.handleUpdateConfig)
			r.Post("/check", s.handleUpdateCheck)
			r.Post("/download-all", s.handleUpdateDownloadAll)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/dependencies", s.handleUpdateDependencyIssues)
				r.Post("/download", s.handleUpdateDownload)
				r.Post("/apply", s.handleUpdateApply)
			})
		})

		r.Route("/bot/config", func(r chi.Router) {
			r.Get("/", s.handleBotConfigGet)
			r.Put("/", s.handleBotConfigPut)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.handleClientList)
			r.Post("/", s.handleClientRegister)
			r.Post("/{id}/heartbeat", s.handleClientHeartbeat)
			r.Delete("/{id}", s.handleClientUnregister)
		})
	})

	return r
}

// handleExtensionGUIBundle serves the static GUI bundle an extension
// declares via its manifest's gui.entry directory, if any.
func (s *Server) handleExtensionGUIBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ext, err := s.Supervisor.Extensions.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if ext.GUI == nil || ext.Dir == "" {
			writeError(w, domain.NewTaxonomyError("not_found", "extension has no gui bundle: "+id, domain.ErrExtensionNotFound, id))
			return
		}
		root := filepath.Join(ext.Dir, "gui")
		fs := http.StripPrefix("/extensions/"+id+"/gui", http.FileServer(http.Dir(root)))
		fs.ServeHTTP(w, r)
	}
}

// Listen binds addr, retrying on EADDRINUSE up to bindRetryAttempts times —
// a predecessor daemon's listener can briefly linger through shutdown.
func (s *Server) Listen(addr string) (net.Listener, error) {
	var lastErr error
	for attempt := 0; attempt < bindRetryAttempts; attempt++ {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		lastErr = err
		time.Sleep(bindRetryDelay)
	}
	return nil, fmt.Errorf("bind %s after %d attempts: %w", addr, bindRetryAttempts, lastErr)
}

// Serve runs the HTTP server on ln and the client reaper until ctx is
// cancelled, then shuts both down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.clients.runReaper(s.reaperStop)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		close(s.reaperStop)
		return err
	case <-ctx.Done():
		close(s.reaperStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
