package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saba-chan/saba-core/internal/daemon"
	"github.com/saba-chan/saba-core/internal/ipc"
)

// apiClient issues authenticated requests against a running daemon's IPC
// server, the same surface any GUI or bot front-end uses.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient() (*apiClient, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	token, err := ipc.LoadOrCreateToken(daemon.SabaHome())
	if err != nil {
		return nil, fmt.Errorf("load ipc token: %w", err)
	}
	return &apiClient{
		baseURL: fmt.Sprintf("http://%s:%d", cfg.IPC.Host, cfg.IPC.Port),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// call issues method/path with an optional JSON body, decoding a JSON
// response into out (skipped if out is nil or the body is empty).
func (c *apiClient) call(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("X-Saba-Token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if jsonErr := json.Unmarshal(data, &errBody); jsonErr == nil && errBody.Error.Message != "" {
			return fmt.Errorf("%s", errBody.Error.Message)
		}
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, string(data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
