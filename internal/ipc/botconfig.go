package ipc

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/saba-chan/saba-core/internal/domain"
)

// botConfigStore persists the Discord bot's free-form configuration
// (tokens, guild IDs, channel routing) as JSON under the daemon's app-data
// directory, atomically like the instance store.
type botConfigStore struct {
	path string
	mu   sync.Mutex
}

func newBotConfigStore(appDataDir string) *botConfigStore {
	return &botConfigStore{path: filepath.Join(appDataDir, "bot_config.json")}
}

func (b *botConfigStore) read() (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *botConfigStore) write(cfg map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

func (s *Server) handleBotConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.botConfig.read()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleBotConfigPut(w http.ResponseWriter, r *http.Request) {
	var cfg map[string]any
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	if err := s.botConfig.write(cfg); err != nil {
		writeError(w, domain.NewTaxonomyError("internal_error", "write bot config: "+err.Error(), err))
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
