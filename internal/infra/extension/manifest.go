package extension

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/archive"
)

// parseManifest decodes a manifest.json payload into a domain.Extension and
// enforces the id-must-match-directory-name invariant.
func parseManifest(data []byte, dirName, dir string) (domain.Extension, error) {
	var ext domain.Extension
	if err := json.Unmarshal(data, &ext); err != nil {
		return domain.Extension{}, fmt.Errorf("parse manifest.json: %w", err)
	}
	if ext.ID != dirName {
		return domain.Extension{}, domain.ErrIDMismatchFor(ext.ID, dirName)
	}
	ext.Dir = dir
	return ext, nil
}

// loadFolderExtension reads <dir>/manifest.json for a folder-form extension
// whose directory is named dirName.
func loadFolderExtension(dir, dirName string) (domain.Extension, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return domain.Extension{}, fmt.Errorf("read manifest.json: %w", err)
	}
	return parseManifest(data, dirName, dir)
}

// loadArchiveExtension reads manifest.json out of <id>.zip and extracts it
// into destDir on first discovery (archive form).
func loadArchiveExtension(zipPath, dirName, destDir string) (domain.Extension, error) {
	data, err := archive.FindManifest(zipPath, "manifest.json")
	if err != nil {
		return domain.Extension{}, err
	}
	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		if err := archive.Extract(zipPath, destDir, archive.ExtractOptions{SkipPycache: true, SkipDotfiles: true}); err != nil {
			return domain.Extension{}, fmt.Errorf("extract extension archive %s: %w", zipPath, err)
		}
	}
	return parseManifest(data, dirName, destDir)
}
