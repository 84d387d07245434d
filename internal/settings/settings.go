// Package settings loads per-user tool settings: where units are
// materialized, how commands are run and which backends are used.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bianoble/hostpatch/internal/installer"
	"github.com/bianoble/hostpatch/internal/runner"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOSTPATCH_"

// FileName is the settings file under the user config dir.
const FileName = "settings.yaml"

// Fetcher backend names.
const (
	FetcherGit   = "git"
	FetcherGoGit = "go-git"
)

// DefaultLogFile receives each command's output.
const DefaultLogFile = "setup.log"

// Settings are the resolved tool settings.
type Settings struct {
	// WorkDir overrides the unit table's work_dir when set.
	WorkDir string `koanf:"work_dir"`
	// Manifest overrides the unit table's manifest when set.
	Manifest string `koanf:"manifest"`
	// LogFile receives the output of the most recent external command.
	LogFile string `koanf:"log_file"`
	// Timeout bounds each external command. Zero disables the bound.
	Timeout time.Duration `koanf:"timeout"`
	Fetcher string        `koanf:"fetcher"`
	// Installer is the package-manager install command.
	Installer []string `koanf:"installer"`
	// Platform forces the host platform seen by the gate.
	Platform  string `koanf:"platform"`
	NoBuiltin bool   `koanf:"no_builtin"`
	NoInherit bool   `koanf:"no_inherit"`
}

// Defaults returns the built-in settings layer.
func Defaults() map[string]any {
	return map[string]any{
		"log_file":   DefaultLogFile,
		"timeout":    runner.DefaultTimeout.String(),
		"fetcher":    FetcherGit,
		"installer":  slices.Clone(installer.DefaultCommand),
		"no_builtin": false,
		"no_inherit": false,
	}
}

// Options controls where settings are read from.
type Options struct {
	// Path is the settings file. Empty means the XDG default; a missing
	// file is skipped.
	Path string
	// Flags holds explicitly set command-line values, keyed like the file.
	Flags map[string]any
}

// DefaultPath returns $XDG_CONFIG_HOME/hostpatch/settings.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "hostpatch", FileName)
}

// Load merges defaults, the settings file, HOSTPATCH_* environment
// variables and flags, in that order.
func Load(opts Options) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
		}
	} else if opts.Path != "" {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if len(opts.Flags) > 0 {
		if err := k.Load(confmap.Provider(opts.Flags, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &s,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				fieldsHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &s, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envValue maps HOSTPATCH_WORK_DIR to work_dir. Keys keep their
// underscores.
func envValue(key, value string) (string, any) {
	return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
}

// fieldsHookFunc splits a command string like "python -m pip install" into
// an argument list.
func fieldsHookFunc() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.String {
			return data, nil
		}
		return strings.Fields(data.(string)), nil
	}
}

// Validate checks backend names and the installer command.
func (s *Settings) Validate() error {
	var errs []error
	if s.Fetcher != FetcherGit && s.Fetcher != FetcherGoGit {
		errs = append(errs, fmt.Errorf("unknown fetcher '%s' — supported fetchers: %s, %s", s.Fetcher, FetcherGit, FetcherGoGit))
	}
	if len(s.Installer) == 0 {
		errs = append(errs, errors.New("installer command is empty"))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", s.Timeout))
	}
	return errors.Join(errs...)
}

// RunnerTimeout converts Timeout to the runner's convention, where a
// negative value disables the bound.
func (s *Settings) RunnerTimeout() time.Duration {
	if s.Timeout == 0 {
		return -1
	}
	return s.Timeout
}
