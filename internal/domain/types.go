// Package domain holds the pure data model shared across the supervisor,
// extension manager, and update manager. No infrastructure dependency lives
// here — only types, invariants expressed as constructors/validators, and
// sentinel errors.
package domain

import (
	"encoding/json"
	"time"
)

// ProtocolMode selects which protocol an instance's commands are routed
// through.
type ProtocolMode string

const (
	ProtocolRCON ProtocolMode = "rcon"
	ProtocolREST ProtocolMode = "rest"
	ProtocolBoth ProtocolMode = "both"
)

// Instance is a user-configured server entry.
type Instance struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ModuleName     string         `json:"module_name"`
	ExecutablePath string         `json:"executable_path,omitempty"`
	WorkingDir     string         `json:"working_dir,omitempty"`
	AutoDetect     bool           `json:"auto_detect"`
	ProcessName    string         `json:"process_name,omitempty"`
	Port           int            `json:"port,omitempty"`
	RCONPort       int            `json:"rcon_port,omitempty"`
	RCONPassword   string         `json:"rcon_password,omitempty"`
	RESTHost       string         `json:"rest_host,omitempty"`
	RESTPort       int            `json:"rest_port,omitempty"`
	RESTUsername   string         `json:"rest_username,omitempty"`
	RESTPassword   string         `json:"rest_password,omitempty"`
	ProtocolMode   ProtocolMode   `json:"protocol_mode,omitempty"`
	ModuleSettings map[string]any `json:"module_settings,omitempty"`
	ExtensionData  map[string]any `json:"extension_data,omitempty"`
	CreatedAt      int64          `json:"created_at,omitempty"`
	UpdatedAt      int64          `json:"updated_at,omitempty"`
}

// Clone returns a deep-enough copy safe for callers to mutate without
// affecting the store's internal state.
func (i Instance) Clone() Instance {
	c := i
	if i.ModuleSettings != nil {
		c.ModuleSettings = make(map[string]any, len(i.ModuleSettings))
		for k, v := range i.ModuleSettings {
			c.ModuleSettings[k] = v
		}
	}
	if i.ExtensionData != nil {
		c.ExtensionData = make(map[string]any, len(i.ExtensionData))
		for k, v := range i.ExtensionData {
			c.ExtensionData[k] = v
		}
	}
	return c
}

// ProcessStatus is the lifecycle state of a TrackedProcess.
type ProcessStatus string

const (
	StatusRunning ProcessStatus = "running"
	StatusStopped ProcessStatus = "stopped"
	StatusCrashed ProcessStatus = "crashed"
)

// TrackedProcess records the tracker's view of one instance's OS process.
type TrackedProcess struct {
	PID       int           `json:"pid"`
	Status    ProcessStatus `json:"status"`
	StartTime int64         `json:"start_time"`
	LastCheck int64         `json:"last_check"`
}

// FieldType enumerates the settings-schema field kinds a module can declare.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldSelect   FieldType = "select"
	FieldPassword FieldType = "password"
	FieldFile     FieldType = "file"
)

// Field describes one entry of a module's settings schema.
type Field struct {
	Name     string    `toml:"name" json:"name"`
	Type     FieldType `toml:"type" json:"type"`
	Min      *float64  `toml:"min,omitempty" json:"min,omitempty"`
	Max      *float64  `toml:"max,omitempty" json:"max,omitempty"`
	Options  []string  `toml:"options,omitempty" json:"options,omitempty"`
	Default  any       `toml:"default,omitempty" json:"default,omitempty"`
	Required bool      `toml:"required,omitempty" json:"required,omitempty"`
	Group    string    `toml:"group,omitempty" json:"group,omitempty"`
}

// CommandMethod selects which protocol a module command is issued over.
type CommandMethod string

const (
	MethodRCON CommandMethod = "rcon"
	MethodREST CommandMethod = "rest"
	MethodBoth CommandMethod = "both"
)

// CommandInput describes one templated input of a Command.
type CommandInput struct {
	Name     string    `toml:"name" json:"name"`
	Type     FieldType `toml:"type" json:"type"`
	Required bool      `toml:"required,omitempty" json:"required,omitempty"`
}

// Command describes one entry of a module's command schema.
type Command struct {
	Name         string         `toml:"name" json:"name"`
	Method       CommandMethod  `toml:"method" json:"method"`
	RCONTemplate string         `toml:"rcon_template,omitempty" json:"rcon_template,omitempty"`
	RESTTemplate string         `toml:"rest_template,omitempty" json:"rest_template,omitempty"`
	Inputs       []CommandInput `toml:"inputs,omitempty" json:"inputs,omitempty"`
}

// InteractionMode describes how the adapter exchanges data with its script.
type InteractionMode string

const (
	InteractionJSON   InteractionMode = "json"
	InteractionNative InteractionMode = "native"
)

// Module is a discovered per-game lifecycle adapter.
type Module struct {
	Name               string          `toml:"name" json:"name"`
	Version            string          `toml:"version" json:"version"`
	Description        string          `toml:"description,omitempty" json:"description,omitempty"`
	Entry              string          `toml:"entry" json:"entry"`
	ProcessName        string          `toml:"process_name,omitempty" json:"process_name,omitempty"`
	DefaultPort        int             `toml:"default_port,omitempty" json:"default_port,omitempty"`
	ExecutablePath     string          `toml:"executable_path,omitempty" json:"executable_path,omitempty"`
	SettingsSchema     []Field         `json:"settings_schema,omitempty"`
	CommandsSchema     []Command       `json:"commands_schema,omitempty"`
	InteractionMode    InteractionMode `json:"interaction_mode,omitempty"`
	ProtocolsSupported []string        `json:"protocols_supported,omitempty"`

	// Dir is the on-disk directory the module was loaded from (folder form,
	// or the extracted cache directory for archive form). Not persisted.
	Dir string `toml:"-" json:"-"`
	// UpdateRepo is the module.toml [update] github_repo, if declared.
	UpdateRepo string `toml:"-" json:"-"`
}

// Dependencies is an extension's dependency map. It accepts either the
// array form (names only, implying version requirement "*") or the object
// form (name -> version requirement) when unmarshaled from JSON.
type Dependencies map[string]string

// UnmarshalJSON implements the dual-form deserialization: a JSON array of
// names (each defaulting to version requirement "*"), or a JSON object
// mapping name to version requirement string.
func (d *Dependencies) UnmarshalJSON(data []byte) error {
	trimmed := trimLeadingSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		out := make(Dependencies, len(names))
		for _, n := range names {
			out[n] = "*"
		}
		*d = out
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = Dependencies(m)
	return nil
}

// HookBinding binds a hook name to a python_modules entry and function,
// with an optional condition and async flag.
type HookBinding struct {
	Module    string `json:"module"`
	Function  string `json:"function"`
	Condition string `json:"condition,omitempty"`
	Async     bool   `json:"async,omitempty"`
}

// Extension is a dynamically mountable capability.
type Extension struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Version             string                 `json:"version"`
	Dependencies        Dependencies           `json:"dependencies,omitempty"`
	PythonModules       map[string]string      `json:"python_modules,omitempty"`
	Hooks               map[string]HookBinding `json:"hooks,omitempty"`
	InstanceFields      map[string]Field       `json:"instance_fields,omitempty"`
	ModuleConfigSection string                 `json:"module_config_section,omitempty"`
	GUI                 map[string]any         `json:"gui,omitempty"`
	CLI                 map[string]any         `json:"cli,omitempty"`
	I18nDir             string                 `json:"i18n_dir,omitempty"`

	// Dir is the on-disk directory the manifest was loaded from. Not persisted.
	Dir string `json:"-"`
}

// ComponentKind enumerates the updater's component domain.
type ComponentKind string

const (
	ComponentCoreDaemon ComponentKind = "core_daemon"
	ComponentCLI        ComponentKind = "cli"
	ComponentGUI        ComponentKind = "gui"
	ComponentDiscordBot ComponentKind = "discord_bot"
	ComponentModule     ComponentKind = "module"
	ComponentExtension  ComponentKind = "extension"
)

// ComponentState is the updater's per-component state machine.
type ComponentState string

const (
	StateUnknown    ComponentState = "unknown"
	StateChecked    ComponentState = "checked"
	StateDownloaded ComponentState = "downloaded"
	StateApplied    ComponentState = "applied"
)

// Component is one updater-tracked unit: the core daemon, cli, gui, discord
// bot, or a named module/extension.
type Component struct {
	Key              string         `json:"key"`
	Kind             ComponentKind  `json:"kind"`
	CurrentVersion   string         `json:"current_version,omitempty"`
	LatestVersion    string         `json:"latest_version,omitempty"`
	UpdateAvailable  bool           `json:"update_available"`
	Downloaded       bool           `json:"downloaded"`
	DownloadedPath   string         `json:"downloaded_path,omitempty"`
	Installed        bool           `json:"installed"`
	SourceReleaseTag string         `json:"source_release_tag,omitempty"`
	State            ComponentState `json:"state"`
}

// ManifestComponent is one entry of a ReleaseManifest's components map.
type ManifestComponent struct {
	Version    string            `json:"version"`
	Asset      string            `json:"asset"`
	InstallDir string            `json:"install_dir,omitempty"`
	Requires   map[string]string `json:"requires,omitempty"`
}

// ReleaseManifest is the manifest.json asset format published by the build
// pipeline on each GitHub release.
type ReleaseManifest struct {
	ReleaseVersion string                       `json:"release_version"`
	Components     map[string]ManifestComponent `json:"components"`
}

// ClientKind distinguishes registered IPC front-ends.
type ClientKind string

const (
	ClientGUI ClientKind = "gui"
	ClientCLI ClientKind = "cli"
)

// ClientRegistration is one live front-end registered with the IPC server.
type ClientRegistration struct {
	ID            string     `json:"id"`
	Kind          ClientKind `json:"kind"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
	BotPID        int        `json:"bot_pid,omitempty"`
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}
