package config

import (
	"github.com/bianoble/hostpatch/internal/patch"
	"github.com/bianoble/hostpatch/internal/source"
)

// DefaultWorkDir is where unit trees are materialized, relative to the
// project root.
const DefaultWorkDir = ".dump"

// DefaultPlatforms lists the hosts the built-in table targets.
var DefaultPlatforms = []string{"windows"}

// Config represents a hostpatch.yaml (or hostpatch.toml) unit table.
type Config struct {
	Version int `yaml:"version" toml:"version"`

	// WorkDir holds every unit's local tree. Relative to the project root.
	WorkDir string `yaml:"work_dir,omitempty" toml:"work_dir,omitempty"`

	// Manifest is a requirements file installed on every platform before
	// any unit runs.
	Manifest string `yaml:"manifest,omitempty" toml:"manifest,omitempty"`

	Platforms       []string        `yaml:"platforms,omitempty" toml:"platforms,omitempty"`
	PlatformAliases []PlatformAlias `yaml:"platform_aliases,omitempty" toml:"platform_aliases,omitempty"`

	// Roots are run in order. Empty means every unit no other unit depends on.
	Roots []string `yaml:"roots,omitempty" toml:"roots,omitempty"`

	Units []Unit `yaml:"units" toml:"units"`
}

// PlatformAlias names an extra platform for the platform gate.
type PlatformAlias struct {
	Name string `yaml:"name" toml:"name"`
	GOOS string `yaml:"goos" toml:"goos"`
}

// Unit is one external repository, the edits it needs and its install step.
type Unit struct {
	ID   string `yaml:"id" toml:"id"`
	Repo string `yaml:"repo,omitempty" toml:"repo,omitempty"`
	Ref  string `yaml:"ref,omitempty" toml:"ref,omitempty"`

	// Dir overrides the directory name derived from Repo. Required when
	// Repo is empty.
	Dir string `yaml:"dir,omitempty" toml:"dir,omitempty"`

	DependsOn []string          `yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	Patches   []patch.Operation `yaml:"patches,omitempty" toml:"patches,omitempty"`

	// Packages are installed, in order, before the unit itself.
	Packages    []string `yaml:"packages,omitempty" toml:"packages,omitempty"`
	SkipInstall bool     `yaml:"skip_install,omitempty" toml:"skip_install,omitempty"`
}

// DirName returns the unit's directory name under the work dir.
func (u Unit) DirName() string {
	if u.Dir != "" {
		return u.Dir
	}
	return source.RepoName(u.Repo)
}

// Unit returns the unit with the given id.
func (c *Config) Unit(id string) (Unit, bool) {
	for _, u := range c.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// EffectiveWorkDir returns WorkDir or DefaultWorkDir.
func (c *Config) EffectiveWorkDir() string {
	if c.WorkDir != "" {
		return c.WorkDir
	}
	return DefaultWorkDir
}

// EffectivePlatforms returns Platforms or DefaultPlatforms.
func (c *Config) EffectivePlatforms() []string {
	if len(c.Platforms) > 0 {
		return c.Platforms
	}
	return DefaultPlatforms
}

// RootIDs returns Roots, or every unit no other unit depends on, in
// declaration order.
func (c *Config) RootIDs() []string {
	if len(c.Roots) > 0 {
		return c.Roots
	}
	depended := make(map[string]bool)
	for _, u := range c.Units {
		for _, d := range u.DependsOn {
			depended[d] = true
		}
	}
	var roots []string
	for _, u := range c.Units {
		if !depended[u.ID] {
			roots = append(roots, u.ID)
		}
	}
	return roots
}
