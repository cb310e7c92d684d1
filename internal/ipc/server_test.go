package ipc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/adapter"
	"github.com/saba-chan/saba-core/internal/infra/extension"
	"github.com/saba-chan/saba-core/internal/infra/moduleloader"
	"github.com/saba-chan/saba-core/internal/infra/store"
	"github.com/saba-chan/saba-core/internal/infra/supervisor"
	"github.com/saba-chan/saba-core/internal/infra/tracker"
	"github.com/saba-chan/saba-core/internal/infra/updater"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "store"))
	if err != nil {
		t.Fatal(err)
	}
	mods := moduleloader.New(filepath.Join(dir, "modules"))
	exts := extension.New(filepath.Join(dir, "extensions"), filepath.Join(dir, "ext_state.json"), func(string) domain.Adapter {
		return adapter.NewMock()
	})
	sup := supervisor.New(tracker.New(), st, mods, exts, func(mod domain.Module) domain.Adapter {
		return adapter.NewMock()
	})
	upd := updater.New("o", "r", "http://unused", filepath.Join(dir, "staging"), filepath.Join(dir, "install"), filepath.Join(dir, "appdata"))

	appData := filepath.Join(dir, "appdata")
	srv, err := New(sup, upd, appData, filepath.Join(dir, "modules"), filepath.Join(dir, "extensions"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, dir
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set(authTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRequiresNoAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestInstanceRoutesRejectMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/instances/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestInstanceCRUDRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	token := srv.Token()

	rec := doJSON(t, h, http.MethodPost, "/instances/", token, map[string]any{
		"name":        "srv1",
		"module_name": "minecraft",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created domain.Instance
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned ID")
	}

	rec = doJSON(t, h, http.MethodGet, "/instances/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/instances/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/instances/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestClientRegisterHeartbeatUnregister(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	token := srv.Token()

	rec := doJSON(t, h, http.MethodPost, "/clients/", token, map[string]any{"kind": "cli"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}
	var reg domain.ClientRegistration
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, h, http.MethodPost, "/clients/"+reg.ID+"/heartbeat", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("heartbeat status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/clients/"+reg.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unregister status = %d", rec.Code)
	}
}

func TestBotConfigReadWrite(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	token := srv.Token()

	rec := doJSON(t, h, http.MethodPut, "/bot/config/", token, map[string]any{"token": "abc", "guild_id": "123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/bot/config/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var cfg map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg["guild_id"] != "123" {
		t.Fatalf("expected persisted guild_id, got %+v", cfg)
	}
}
