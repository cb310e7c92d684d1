// Package moduleloader discovers per-game lifecycle adapters (modules) from
// a directory, in folder form (<dir>/module.toml) or archive form
// (<dir>/*.zip containing a module.toml), caching results until refresh.
package moduleloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/archive"
)

// moduleFile mirrors module.toml's on-disk shape; unknown fields are
// tolerated by toml.Decode (lenient parsing per the spec).
type moduleFile struct {
	Module struct {
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Description string `toml:"description"`
		Entry       string `toml:"entry"`
	} `toml:"module"`
	Config struct {
		ProcessName    string `toml:"process_name"`
		DefaultPort    int    `toml:"default_port"`
		ExecutablePath string `toml:"executable_path"`
	} `toml:"config"`
	Settings struct {
		Fields []domain.Field `toml:"fields"`
	} `toml:"settings"`
	Commands struct {
		Fields []domain.Command `toml:"fields"`
	} `toml:"commands"`
	Update struct {
		GitHubRepo string `toml:"github_repo"`
	} `toml:"update"`
}

// Loader discovers and caches Module definitions from a directory.
type Loader struct {
	dir        string
	extractDir string
	mu         sync.RWMutex
	cache      []domain.Module
	discovered bool
}

// New creates a Loader rooted at dir, extracting archive-form modules into
// <dir>/.extracted/<name>/ on first discovery.
func New(dir string) *Loader {
	return &Loader{dir: dir, extractDir: filepath.Join(dir, ".extracted")}
}

// Discover scans the module directory and returns the cached list,
// populating the cache on first call. Use Refresh to force a rescan.
func (l *Loader) Discover() ([]domain.Module, error) {
	l.mu.RLock()
	if l.discovered {
		defer l.mu.RUnlock()
		return l.cache, nil
	}
	l.mu.RUnlock()
	return l.Refresh()
}

// Refresh forces a rescan of the module directory, replacing the cache.
func (l *Loader) Refresh() ([]domain.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.cache = nil
			l.discovered = true
			return nil, nil
		}
		return nil, fmt.Errorf("read module dir %s: %w", l.dir, err)
	}

	var out []domain.Module
	for _, e := range entries {
		name := e.Name()
		full := filepath.Join(l.dir, name)

		if e.IsDir() {
			if name == ".extracted" {
				continue
			}
			manifestPath := filepath.Join(full, "module.toml")
			if _, err := os.Stat(manifestPath); err != nil {
				continue
			}
			mod, err := parseModuleToml(manifestPath, full)
			if err != nil {
				continue // lenient: skip unparseable folders rather than aborting discovery
			}
			out = append(out, mod)
			continue
		}

		if strings.HasSuffix(strings.ToLower(name), ".zip") {
			mod, err := l.discoverArchiveModule(full)
			if err != nil {
				continue
			}
			out = append(out, mod)
		}
	}

	l.cache = out
	l.discovered = true
	return out, nil
}

func (l *Loader) discoverArchiveModule(zipPath string) (domain.Module, error) {
	data, err := archive.FindManifest(zipPath, "module.toml")
	if err != nil {
		return domain.Module{}, err
	}

	base := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	destDir := filepath.Join(l.extractDir, base)

	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		if err := archive.Extract(zipPath, destDir, archive.ExtractOptions{SkipPycache: true, SkipDotfiles: true}); err != nil {
			return domain.Module{}, fmt.Errorf("extract module archive %s: %w", zipPath, err)
		}
	}

	var mf moduleFile
	if _, err := toml.Decode(string(data), &mf); err != nil {
		return domain.Module{}, fmt.Errorf("parse module.toml in %s: %w", zipPath, err)
	}
	return toDomainModule(mf, destDir), nil
}

func parseModuleToml(path, dir string) (domain.Module, error) {
	var mf moduleFile
	if _, err := toml.DecodeFile(path, &mf); err != nil {
		return domain.Module{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return toDomainModule(mf, dir), nil
}

func toDomainModule(mf moduleFile, dir string) domain.Module {
	return domain.Module{
		Name:               mf.Module.Name,
		Version:            mf.Module.Version,
		Description:        mf.Module.Description,
		Entry:              mf.Module.Entry,
		ProcessName:        mf.Config.ProcessName,
		DefaultPort:        mf.Config.DefaultPort,
		ExecutablePath:     mf.Config.ExecutablePath,
		SettingsSchema:     mf.Settings.Fields,
		CommandsSchema:     mf.Commands.Fields,
		InteractionMode:    domain.InteractionJSON,
		ProtocolsSupported: protocolsFromCommands(mf.Commands.Fields),
		Dir:                dir,
		UpdateRepo:         mf.Update.GitHubRepo,
	}
}

func protocolsFromCommands(cmds []domain.Command) []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, c := range cmds {
		switch c.Method {
		case domain.MethodRCON:
			add("rcon")
		case domain.MethodREST:
			add("rest")
		case domain.MethodBoth:
			add("rcon")
			add("rest")
		}
	}
	return out
}

// Get linear-searches the cached list for name, discovering first if the
// cache is cold.
func (l *Loader) Get(name string) (domain.Module, error) {
	mods, err := l.Discover()
	if err != nil {
		return domain.Module{}, err
	}
	for _, m := range mods {
		if m.Name == name {
			return m, nil
		}
	}
	return domain.Module{}, domain.ErrModuleNotFound
}
