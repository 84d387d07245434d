package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
)

// ConfigFileName is the project-level unit table name.
const ConfigFileName = "hostpatch.yaml"

const configDirName = "hostpatch"

// EnvNoInheritKey disables the system and user layers.
const EnvNoInheritKey = "HOSTPATCH_NO_INHERIT"

// ConfigLevel represents the precedence level of a configuration file.
type ConfigLevel string

const (
	LevelBuiltin ConfigLevel = "builtin"
	LevelSystem  ConfigLevel = "system"
	LevelUser    ConfigLevel = "user"
	LevelProject ConfigLevel = "project"
)

// ConfigLayerInfo describes a discovered config file and its load status.
type ConfigLayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  ConfigLevel
	Loaded bool
}

// DiscoverOptions controls how config paths are discovered.
type DiscoverOptions struct {
	// ProjectPath is the project-level config path.
	ProjectPath string

	// SystemConfigPath overrides the default system config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	SystemConfigPath string

	// UserConfigPath overrides the default user config path.
	// Empty means use the XDG default. Set to a nonexistent path to skip.
	UserConfigPath string

	// NoInherit skips the system and user layers.
	NoInherit bool
}

// DiscoverPaths returns the ordered list of config file paths to check,
// from lowest precedence (system) to highest (project).
// Paths are deduplicated by resolved absolute path.
func DiscoverPaths(opts DiscoverOptions) []ConfigLayerInfo {
	var layers []ConfigLayerInfo
	seen := make(map[string]bool)

	addLayer := func(level ConfigLevel, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, ConfigLayerInfo{
			Path:  path,
			Level: level,
		})
	}

	if !opts.NoInherit {
		sysPath := opts.SystemConfigPath
		if sysPath == "" {
			sysPath = defaultSystemConfigPath()
		}
		addLayer(LevelSystem, sysPath)

		userPath := opts.UserConfigPath
		if userPath == "" {
			userPath = defaultUserConfigPath()
		}
		addLayer(LevelUser, userPath)
	}

	addLayer(LevelProject, opts.ProjectPath)

	return layers
}

// LoadLayers reads every discovered layer on top of builtin (which may be
// nil), merges them and validates the result. Missing files are skipped.
// The returned layer list records what was loaded.
func LoadLayers(opts DiscoverOptions, builtin *Config) (*Config, []ConfigLayerInfo, error) {
	var configs []*Config
	var infos []ConfigLayerInfo

	if builtin != nil {
		configs = append(configs, builtin)
		infos = append(infos, ConfigLayerInfo{Level: LevelBuiltin, Loaded: true})
	}

	for _, layer := range DiscoverPaths(opts) {
		cfg, err := Read(layer.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				infos = append(infos, layer)
				continue
			}
			layer.Err = err
			infos = append(infos, layer)
			return nil, infos, err
		}
		layer.Loaded = true
		infos = append(infos, layer)
		configs = append(configs, cfg)
	}

	if len(configs) == 0 {
		return nil, infos, errors.New("no unit table found — create " + ConfigFileName + " or enable the built-in table")
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, infos, err
	}
	if errs := Validate(merged); len(errs) > 0 {
		return nil, infos, &ValidationError{Errors: errs}
	}
	return merged, infos, nil
}

// defaultSystemConfigPath returns the platform-standard system config path.
func defaultSystemConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, configDirName, ConfigFileName)
	default:
		return filepath.Join("/etc", configDirName, ConfigFileName)
	}
}

// defaultUserConfigPath returns the XDG user config path.
func defaultUserConfigPath() string {
	if xdg.ConfigHome == "" {
		return ""
	}
	return filepath.Join(xdg.ConfigHome, configDirName, ConfigFileName)
}

// EnvNoInherit returns true if HOSTPATCH_NO_INHERIT is set to "1" or "true".
func EnvNoInherit() bool {
	return envBoolTrue(EnvNoInheritKey)
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := os.Getenv(key)
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
