// Package daemon wires the supervisor, extension manager, update manager,
// and IPC server into a single long-running process and manages its
// configuration lifecycle.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Node    NodeConfig    `toml:"node"`
	IPC     IPCConfig     `toml:"ipc"`
	Paths   PathsConfig   `toml:"paths"`
	Update  UpdateConfig  `toml:"update"`
	Logging LoggingConfig `toml:"logging"`
}

// NodeConfig identifies this daemon instance.
type NodeConfig struct {
	ID string `toml:"id"`
}

// IPCConfig controls the loopback HTTP API server.
type IPCConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	MetricsEnabled      bool   `toml:"metrics_enabled"`
	MonitorIntervalMS   int    `toml:"monitor_interval_ms"`
	HeartbeatTTLSeconds int    `toml:"heartbeat_ttl_seconds"`
}

// PathsConfig controls where the daemon discovers/persists artifacts.
type PathsConfig struct {
	ModulesDir    string `toml:"modules_dir"`
	ExtensionsDir string `toml:"extensions_dir"`
	StagingDir    string `toml:"staging_dir"`
}

// UpdateConfig controls the self-updater.
type UpdateConfig struct {
	Enabled                 bool   `toml:"enabled"`
	GitHubOwner             string `toml:"github_owner"`
	GitHubRepo              string `toml:"github_repo"`
	APIBaseURL              string `toml:"api_base_url"`
	CheckIntervalHours      int    `toml:"check_interval_hours"`
	ReleaseWindow           int    `toml:"release_window"`
	AutoDownload            bool   `toml:"auto_download"`
	AutoApply               bool   `toml:"auto_apply"`
	IncludePrerelease       bool   `toml:"include_prerelease"`
	IncludePrereleaseAssets bool   `toml:"include_prerelease_assets"`
	InstallRoot             string `toml:"install_root"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	home := sabaHome()
	exe, _ := os.Executable()
	installRoot := filepath.Dir(exe)
	if installRoot == "" || installRoot == "." {
		installRoot = home
	}
	return Config{
		Node: NodeConfig{ID: ""},
		IPC: IPCConfig{
			Host:                "127.0.0.1",
			Port:                25566,
			MetricsEnabled:      false,
			MonitorIntervalMS:   2000,
			HeartbeatTTLSeconds: 90,
		},
		Paths: PathsConfig{
			ModulesDir:    filepath.Join(home, "modules"),
			ExtensionsDir: filepath.Join(home, "extensions"),
			StagingDir:    filepath.Join(home, "updates", "staging"),
		},
		Update: UpdateConfig{
			Enabled:            true,
			GitHubOwner:        "ware-aoba",
			GitHubRepo:         "saba-chan",
			APIBaseURL:         "https://api.github.com",
			CheckIntervalHours: 6,
			ReleaseWindow:      30,
			AutoDownload:       false,
			AutoApply:          false,
			IncludePrerelease:  false,
			InstallRoot:        installRoot,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(home, "saba-core.log"),
		},
	}
}

// LoadConfig reads config from <sabaHome>/daemon.toml, falling back to
// defaults when the file does not yet exist.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(sabaHome(), "daemon.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to <sabaHome>/daemon.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(sabaHome(), "daemon.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// sabaHome returns the app-data root, honoring SABA_HOME and falling back
// to a platform-conventional location.
func sabaHome() string {
	if env := os.Getenv("SABA_HOME"); env != "" {
		return env
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "saba-chan")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "saba-chan")
}

// SabaHome is exported for use by other packages.
func SabaHome() string {
	return sabaHome()
}
