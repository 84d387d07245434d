package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/hostpatch/internal/patch"
)

// Format is the encoding of a unit table.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the encoding from a file extension. Anything that is not
// .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and validates a unit table.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// Read reads and decodes a unit table without validating it. Layers are
// validated only after they are merged.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a unit table.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}

	if len(cfg.Units) == 0 {
		errs = append(errs, "at least one unit is required")
	}

	ids := make(map[string]bool)
	dirs := make(map[string]string)
	for i, u := range cfg.Units {
		prefix := fmt.Sprintf("unit[%d]", i)
		if u.ID != "" {
			prefix = fmt.Sprintf("unit '%s'", u.ID)
		}

		if u.ID == "" {
			errs = append(errs, fmt.Sprintf("%s: 'id' is required", prefix))
		} else if ids[u.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate unit id '%s'", prefix, u.ID))
		} else {
			ids[u.ID] = true
		}

		errs = append(errs, validateUnit(u, prefix)...)

		if name := u.DirName(); name != "" {
			name = filepath.Clean(name)
			if other, taken := dirs[name]; taken && other != u.ID {
				errs = append(errs, fmt.Sprintf("%s: directory '%s' is already used by unit '%s'", prefix, name, other))
			} else {
				dirs[name] = u.ID
			}
		}
	}

	for _, u := range cfg.Units {
		for _, dep := range u.DependsOn {
			if dep == u.ID {
				errs = append(errs, fmt.Sprintf("unit '%s': depends on itself", u.ID))
			} else if !ids[dep] {
				errs = append(errs, fmt.Sprintf("unit '%s': depends on undefined unit '%s'", u.ID, dep))
			}
		}
	}

	for _, r := range cfg.Roots {
		if !ids[r] {
			errs = append(errs, fmt.Sprintf("roots: undefined unit '%s'", r))
		}
	}

	for i, a := range cfg.PlatformAliases {
		if a.Name == "" || a.GOOS == "" {
			errs = append(errs, fmt.Sprintf("platform_alias[%d]: 'name' and 'goos' are required", i))
		}
	}

	if cycle := FindCycle(cfg.Units); len(cycle) > 0 {
		errs = append(errs, fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")))
	}

	return errs
}

func validateUnit(u Unit, prefix string) []string {
	var errs []string

	if u.Repo == "" && u.Dir == "" {
		errs = append(errs, fmt.Sprintf("%s: one of 'repo' or 'dir' is required", prefix))
	}
	if u.Ref != "" && u.Repo == "" {
		errs = append(errs, fmt.Sprintf("%s: 'ref' requires 'repo'", prefix))
	}
	if u.Dir != "" {
		clean := filepath.Clean(u.Dir)
		if filepath.IsAbs(u.Dir) || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			errs = append(errs, fmt.Sprintf("%s: 'dir' must be a relative path inside the work dir", prefix))
		}
	}
	if name := u.DirName(); u.Repo != "" && (name == "" || name == "." || name == "..") {
		errs = append(errs, fmt.Sprintf("%s: cannot derive a directory name from repo '%s' — set 'dir'", prefix, u.Repo))
	}

	for i, op := range u.Patches {
		if err := patch.Validate(op); err != nil {
			errs = append(errs, fmt.Sprintf("%s: patch[%d]: %s", prefix, i, err))
		}
	}

	for i, pkg := range u.Packages {
		if strings.TrimSpace(pkg) == "" {
			errs = append(errs, fmt.Sprintf("%s: package[%d] is empty", prefix, i))
		}
	}

	return errs
}
