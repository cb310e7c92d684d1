package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
)

// downloadToFile streams url to dst, writing through a temp file first so a
// half-finished download never masquerades as a complete one.
func downloadToFile(client *http.Client, userAgent, url, dst string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", domain.ErrDownloadFailed, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write staging file: %w", err)
	}
	f.Close()
	return os.Rename(tmp, dst)
}

// fetchManifest downloads and parses a release's manifest.json asset.
func fetchManifest(client *http.Client, userAgent, url string) (domain.ReleaseManifest, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return domain.ReleaseManifest{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return domain.ReleaseManifest{}, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ReleaseManifest{}, fmt.Errorf("%w: manifest fetch HTTP %d", domain.ErrDownloadFailed, resp.StatusCode)
	}

	var doc domain.ReleaseManifest
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return domain.ReleaseManifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return doc, nil
}

// PendingEntry records one component staged but not yet applied.
type PendingEntry struct {
	Key           string    `json:"key"`
	Version       string    `json:"version"`
	StagedPath    string    `json:"staged_path"`
	SourceRelease string    `json:"source_release"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// pendingFile is the on-disk pending.json shape: everything downloaded but
// not yet applied, so a side-loaded updater can apply without network.
type pendingFile struct {
	Entries map[string]PendingEntry `json:"entries"`
}

func loadPending(path string) (pendingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pendingFile{Entries: map[string]PendingEntry{}}, nil
		}
		return pendingFile{}, err
	}
	var pf pendingFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return pendingFile{}, err
	}
	if pf.Entries == nil {
		pf.Entries = map[string]PendingEntry{}
	}
	return pf, nil
}

// PendingFilePath returns the pending.json path for a staging directory,
// matching the convention Manager.New applies internally. Exported for the
// side-loaded applier, which has no Manager of its own.
func PendingFilePath(stagingDir string) string {
	return filepath.Join(stagingDir, "pending.json")
}

// LoadPendingEntries reads the pending.json at path, returning an empty map
// if the file does not exist yet.
func LoadPendingEntries(path string) (map[string]PendingEntry, error) {
	pf, err := loadPending(path)
	if err != nil {
		return nil, err
	}
	return pf.Entries, nil
}

func savePending(path string, pf pendingFile) error {
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
