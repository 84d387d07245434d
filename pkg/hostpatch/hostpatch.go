// Package hostpatch provides the public Go library API for hostpatch.
//
// hostpatch fetches third-party source trees, applies line edits that make
// them build on the current host, and installs them with the package
// manager, in dependency order and at most once per session.
//
// # Basic Usage
//
//	client, err := hostpatch.New(hostpatch.Options{
//	    ProjectRoot: "/path/to/project",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Print what would run
//	steps, err := client.Plan(nil)
//
//	// Baseline install, then fetch, patch and install every root unit
//	result, err := client.Run(ctx, nil)
package hostpatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/engine"
	"github.com/bianoble/hostpatch/internal/installer"
	"github.com/bianoble/hostpatch/internal/platform"
	"github.com/bianoble/hostpatch/internal/runner"
	"github.com/bianoble/hostpatch/internal/session"
	"github.com/bianoble/hostpatch/internal/settings"
	"github.com/bianoble/hostpatch/internal/source"
	"github.com/bianoble/hostpatch/internal/units"
)

// DefaultManifest is installed before any unit when it exists in the
// project root and neither the table nor the settings name another.
const DefaultManifest = "requirements.txt"

// Runner runs patch units.
type Runner interface {
	Run(ctx context.Context, unitIDs []string) (*RunResult, error)
}

// Planner reports what a run would do without doing it.
type Planner interface {
	Plan(unitIDs []string) ([]PlanStep, error)
}

// Options configures a hostpatch client.
type Options struct {
	// ProjectRoot is where hostpatch.yaml, requirements.txt and setup.log
	// live. If empty, defaults to the directory containing ConfigPath, or
	// the working directory.
	ProjectRoot string

	// ConfigPath is the project unit table. Default: "hostpatch.yaml" in
	// ProjectRoot. A missing file is fine when the built-in table is on.
	ConfigPath string

	// SettingsPath overrides the settings file location.
	SettingsPath string

	// Settings holds explicit overrides keyed like the settings file
	// (work_dir, timeout, fetcher, installer, platform, no_builtin...).
	Settings map[string]any

	// Stream receives external command output as it is produced.
	Stream io.Writer

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger

	// Fetcher and Installer replace the configured backends.
	Fetcher   Fetcher
	Installer Installer
}

// Client is the main entry point for the hostpatch library.
// It implements Runner and Planner. A Client is one session: units run
// through it are fetched, patched and installed at most once.
type Client struct {
	engine       *engine.Engine
	settings     *settings.Settings
	layers       []config.ConfigLayerInfo
	platforms    *platform.Map
	projectRoot  string
	configPath   string
	settingsPath string
}

// New loads settings and the unit table and wires a client.
func New(opts Options) (*Client, error) {
	root, configPath, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}

	s, err := settings.Load(settings.Options{Path: opts.SettingsPath, Flags: opts.Settings})
	if err != nil {
		return nil, err
	}

	cfg, layers, err := loadTable(configPath, s)
	if err != nil {
		return nil, err
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	platforms := platform.NewMap(cfg.PlatformAliases)
	gate, err := platform.NewGate(platforms, cfg.EffectivePlatforms(), s.Platform)
	if err != nil {
		return nil, err
	}

	r := &runner.Runner{
		Timeout: s.RunnerTimeout(),
		LogFile: inRoot(root, s.LogFile),
		Stream:  opts.Stream,
		Logger:  logger.With().Str("component", "runner").Logger(),
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher, err = newFetcherRegistry(r, opts.Stream).Get(s.Fetcher)
		if err != nil {
			return nil, err
		}
	}

	inst := opts.Installer
	if inst == nil {
		inst = &installer.PackageManager{Command: s.Installer, Exec: r, Dir: root}
	}

	workDir := s.WorkDir
	if workDir == "" {
		workDir = cfg.EffectiveWorkDir()
	}

	return &Client{
		engine: &engine.Engine{
			Config:    cfg,
			WorkDir:   inRoot(root, workDir),
			Registry:  session.New(),
			Fetcher:   fetcher,
			Installer: inst,
			Gate:      gate,
			Manifest:  manifestPath(root, cfg, s),
			Logger:    logger.With().Str("component", "engine").Logger(),
		},
		settings:     s,
		layers:       layers,
		platforms:    platforms,
		projectRoot:  root,
		configPath:   configPath,
		settingsPath: settingsPathOr(opts.SettingsPath),
	}, nil
}

// LoadTable loads and validates the layered unit table the way New does,
// without wiring anything.
func LoadTable(opts Options) (*Table, []ConfigLayer, error) {
	_, configPath, err := resolvePaths(opts)
	if err != nil {
		return nil, nil, err
	}
	s, err := settings.Load(settings.Options{Path: opts.SettingsPath, Flags: opts.Settings})
	if err != nil {
		return nil, nil, err
	}
	return loadTable(configPath, s)
}

func loadTable(configPath string, s *settings.Settings) (*config.Config, []config.ConfigLayerInfo, error) {
	var builtin *config.Config
	if !s.NoBuiltin {
		var err error
		builtin, err = units.Default()
		if err != nil {
			return nil, nil, err
		}
	}
	return config.LoadLayers(config.DiscoverOptions{
		ProjectPath: configPath,
		NoInherit:   s.NoInherit || config.EnvNoInherit(),
	}, builtin)
}

func resolvePaths(opts Options) (root, configPath string, err error) {
	root = opts.ProjectRoot
	configPath = opts.ConfigPath
	switch {
	case root == "" && configPath != "":
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return "", "", fmt.Errorf("resolving config path: %w", err)
		}
		root = filepath.Dir(abs)
	case root == "":
		root, err = os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("resolving project root: %w", err)
		}
	}
	if root, err = filepath.Abs(root); err != nil {
		return "", "", fmt.Errorf("resolving project root: %w", err)
	}
	if configPath == "" {
		configPath = filepath.Join(root, config.ConfigFileName)
	}
	return root, configPath, nil
}

func newFetcherRegistry(exec source.Executor, progress io.Writer) *source.Registry {
	reg := source.NewRegistry()
	reg.Register(settings.FetcherGit, &source.GitCLI{Exec: exec})
	reg.Register(settings.FetcherGoGit, &source.Embedded{Progress: progress})
	return reg
}

// manifestPath picks the settings override, then the table's manifest,
// then requirements.txt when the project has one.
func manifestPath(root string, cfg *config.Config, s *settings.Settings) string {
	switch {
	case s.Manifest != "":
		return inRoot(root, s.Manifest)
	case cfg.Manifest != "":
		return inRoot(root, cfg.Manifest)
	}
	path := filepath.Join(root, DefaultManifest)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

func settingsPathOr(path string) string {
	if path != "" {
		return path
	}
	return settings.DefaultPath()
}

func inRoot(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Run performs the baseline install and, on affected hosts, runs the named
// units (or the table's roots) with their dependencies.
func (c *Client) Run(ctx context.Context, unitIDs []string) (*RunResult, error) {
	return c.engine.Run(ctx, unitIDs)
}

// Plan returns the completion order a run of unitIDs would follow.
func (c *Client) Plan(unitIDs []string) ([]PlanStep, error) {
	return c.engine.Plan(unitIDs)
}

// Status reports the on-disk and session state of all (or named) units.
func (c *Client) Status(unitIDs []string) ([]UnitStatus, error) {
	return c.engine.Status(unitIDs)
}

// Validate re-checks the loaded table. New already rejects an invalid
// table, so this only fails if the table was changed through Table.
func (c *Client) Validate() error {
	if errs := config.Validate(c.engine.Config); len(errs) > 0 {
		return &config.ValidationError{Errors: errs}
	}
	return nil
}

// Info gathers tool information.
func (c *Client) Info(version string) *InfoResult {
	return c.engine.Info(engine.InfoOptions{
		Version:      version,
		SettingsPath: c.settingsPath,
		LogFile:      inRoot(c.projectRoot, c.settings.LogFile),
		Fetcher:      c.settings.Fetcher,
		Installer:    c.settings.Installer,
		Layers:       c.layers,
	}, c.platforms)
}

// Table returns the loaded unit table.
func (c *Client) Table() *Table {
	return c.engine.Config
}

// Session returns the session identifier.
func (c *Client) Session() string {
	return c.engine.Registry.ID()
}

// Affected reports whether units will run on this host.
func (c *Client) Affected() bool {
	return c.engine.Gate.Applies()
}

// ProjectRoot returns the resolved project directory.
func (c *Client) ProjectRoot() string {
	return c.projectRoot
}

// ConfigPath returns the project unit table path.
func (c *Client) ConfigPath() string {
	return c.configPath
}

// WorkDir returns where unit trees are materialized.
func (c *Client) WorkDir() string {
	return c.engine.WorkDir
}
