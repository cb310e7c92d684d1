package ipc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/saba-chan/saba-core/internal/infra/metrics"
)

// bypassAuthEnv disables token checking entirely, for test harnesses that
// drive the IPC server without a registered client.
const bypassAuthEnv = "SABA_AUTH_DISABLED"

// tokenPathEnv overrides the default token file location.
const tokenPathEnv = "SABA_TOKEN_PATH"

// authTokenHeader is the header every authenticated IPC request must carry.
const authTokenHeader = "X-Saba-Token"

// mismatchLogInterval rate-limits the auth-failure log line so a client
// retrying in a tight loop can't flood the daemon's log.
const mismatchLogInterval = 30 * time.Second

// tokenPath resolves the token file location: SABA_TOKEN_PATH if set,
// otherwise .ipc_token under appDataDir.
func tokenPath(appDataDir string) string {
	if override := os.Getenv(tokenPathEnv); override != "" {
		return override
	}
	return filepath.Join(appDataDir, ".ipc_token")
}

// LoadOrCreateToken loads the process-scoped IPC token from its resolved
// path (SABA_TOKEN_PATH, or .ipc_token under appDataDir), or generates and
// persists a new one on first run. The token file is written with 0600
// permissions since it authenticates every local client.
func LoadOrCreateToken(appDataDir string) (string, error) {
	path := tokenPath(appDataDir)

	if data, err := os.ReadFile(path); err == nil {
		return string(data), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read ipc token: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate ipc token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create app data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("write ipc token: %w", err)
	}
	return token, nil
}

// mismatchLogger rate-limits auth-mismatch log lines, logging the
// suppressed count alongside the next line that gets through.
type mismatchLogger struct {
	mu         sync.Mutex
	lastLogged time.Time
	suppressed int
}

func (l *mismatchLogger) note(remoteAddr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastLogged) < mismatchLogInterval {
		l.suppressed++
		return
	}
	if l.suppressed > 0 {
		log.Printf("[ipc] auth token mismatch from %s (%d more suppressed in the last %s)", remoteAddr, l.suppressed, mismatchLogInterval)
	} else {
		log.Printf("[ipc] auth token mismatch from %s", remoteAddr)
	}
	l.lastLogged = now
	l.suppressed = 0
}

// authMiddleware rejects any request missing a matching X-Saba-Token
// header, unless SABA_AUTH_DISABLED=1 is set.
func authMiddleware(token string) func(http.Handler) http.Handler {
	logger := &mismatchLogger{}
	bypass := os.Getenv(bypassAuthEnv) == "1"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get(authTokenHeader) == token {
				next.ServeHTTP(w, r)
				return
			}
			metrics.AuthMismatchTotal.Inc()
			logger.note(r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"message": "auth token mismatch", "code": "auth_token_mismatch"},
			})
		})
	}
}
