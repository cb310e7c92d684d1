// Package archive extracts zip archives safely: module/extension bundles,
// and update-staged component packages.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/saba-chan/saba-core/internal/domain"
)

// ExtractOptions controls what Extract skips.
type ExtractOptions struct {
	// SkipPycache skips any path component named __pycache__ (module and
	// extension updates carry Python adapter scripts).
	SkipPycache bool
	// SkipDotfiles skips entries whose base name starts with '.'.
	SkipDotfiles bool
}

// Extract unpacks the zip archive at srcPath into destDir, creating destDir
// if necessary. Every entry's normalized destination path is verified to
// remain under destDir — an entry using ".." to escape the target directory
// aborts the whole extraction with ErrUnsafeArchivePath, and no partial
// state is left for that entry.
func Extract(srcPath, destDir string, opts ExtractOptions) error {
	r, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", srcPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	for _, f := range r.File {
		if err := extractEntry(f, destDir, opts); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, destDir string, opts ExtractOptions) error {
	base := filepath.Base(f.Name)
	if opts.SkipDotfiles && strings.HasPrefix(base, ".") {
		return nil
	}
	if opts.SkipPycache {
		for _, part := range strings.Split(filepath.ToSlash(f.Name), "/") {
			if part == "__pycache__" {
				return nil
			}
		}
	}

	target := filepath.Join(destDir, f.Name)
	cleanDest := filepath.Clean(destDir) + string(os.PathSeparator)
	cleanTarget := filepath.Clean(target)
	if !strings.HasPrefix(cleanTarget+string(os.PathSeparator), cleanDest) && cleanTarget != filepath.Clean(destDir) {
		return fmt.Errorf("%w: %s", domain.ErrUnsafeArchivePath, f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// FindManifest returns the content of a single named entry from a zip
// archive without extracting the rest, used to read module.toml or
// manifest.json out of an archive-form module/extension before deciding to
// extract it.
func FindManifest(srcPath, entryName string) ([]byte, error) {
	r, err := zip.OpenReader(srcPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if filepath.Base(f.Name) == entryName {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryName, srcPath)
}
