// Package engine runs patch units in dependency order: fetch, edit,
// install, each at most once per session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/installer"
	"github.com/bianoble/hostpatch/internal/patch"
	"github.com/bianoble/hostpatch/internal/platform"
	"github.com/bianoble/hostpatch/internal/sandbox"
	"github.com/bianoble/hostpatch/internal/session"
	"github.com/bianoble/hostpatch/internal/source"
)

// Engine orchestrates the run operation.
type Engine struct {
	Config *config.Config
	// WorkDir holds every unit's local path.
	WorkDir   string
	Registry  *session.Registry
	Fetcher   source.Fetcher
	Installer installer.Installer
	// Gate decides whether units run on this host. Nil means always.
	Gate *platform.Gate
	// Manifest, when set, is installed before anything else on every host.
	Manifest string
	Logger   zerolog.Logger
}

// Run installs the baseline manifest, then, when the host is affected,
// runs each root unit in order. Empty roots means the table's roots.
func (e *Engine) Run(ctx context.Context, roots []string) (*RunResult, error) {
	if e.Config == nil || e.Registry == nil || e.Installer == nil {
		return nil, fmt.Errorf("%w: engine is missing its config, registry or installer", ErrInvalidState)
	}

	result := &RunResult{Session: e.Registry.ID()}
	logger := e.Logger.With().Str("session", result.Session).Logger()

	if e.Manifest != "" {
		logger.Info().Str("manifest", e.Manifest).Msg("installing baseline manifest")
		if err := e.Installer.InstallFromManifest(ctx, e.Manifest); err != nil {
			return result, fmt.Errorf("baseline install: %w", err)
		}
		result.Baseline = true
	}

	if e.Gate != nil && !e.Gate.Applies() {
		logger.Info().Str("host", e.Gate.HostOS()).Strs("affected", e.Gate.Affected).Msg("host not affected, skipping units")
		result.Skipped = true
		return result, nil
	}

	if len(roots) == 0 {
		roots = e.Config.RootIDs()
	}
	if _, err := config.Order(e.Config, roots); err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if e.Fetcher == nil {
		return result, fmt.Errorf("%w: no fetcher configured", ErrInvalidState)
	}

	before := len(e.Registry.Completed())
	defer func() {
		result.Completed = e.Registry.Completed()[before:]
	}()

	for _, id := range roots {
		if e.Registry.IsDone(id) && e.Registry.Failure(id) == nil {
			result.Reused = append(result.Reused, id)
		}
		if err := e.runUnit(ctx, id, make(map[string]bool)); err != nil {
			return result, err
		}
	}
	return result, nil
}

// runUnit runs id after its dependencies. active holds the ids on the
// current dependency path.
func (e *Engine) runUnit(ctx context.Context, id string, active map[string]bool) error {
	if err := e.Registry.Failure(id); err != nil {
		return err
	}
	if e.Registry.IsDone(id) {
		return nil
	}
	if active[id] {
		return &UnitError{Unit: id, Step: StepPrepare, Err: fmt.Errorf("%w: dependency cycle through '%s'", ErrInvalidState, id)}
	}
	u, ok := e.Config.Unit(id)
	if !ok {
		return &UnitError{Unit: id, Step: StepPrepare, Err: fmt.Errorf("%w: undefined unit", ErrInvalidState)}
	}

	active[id] = true
	defer delete(active, id)

	for _, dep := range u.DependsOn {
		if err := e.runUnit(ctx, dep, active); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return e.fail(id, StepPrepare, err)
	}

	logger := e.Logger.With().Str("unit", id).Str("session", e.Registry.ID()).Logger()
	local := e.LocalPath(u)

	if u.Repo == "" && u.Dir == "" {
		return e.fail(id, StepPrepare, fmt.Errorf("%w: unit has neither repo nor dir", ErrInvalidState))
	}
	if err := e.prepare(local, logger); err != nil {
		return e.fail(id, StepPrepare, err)
	}

	if u.Repo != "" && !e.Fetcher.Cloned(local) {
		logger.Info().Str("step", string(StepFetch)).Str("repo", u.Repo).Str("ref", u.Ref).Msg("fetching")
		if err := e.Fetcher.Fetch(ctx, u.Repo, u.Ref, local); err != nil {
			return e.fail(id, StepFetch, err)
		}
		e.Registry.Advance(id, session.Cloned)
	}

	applied, err := patch.ApplyAll(local, u.Patches)
	if err != nil {
		return e.fail(id, StepPatch, err)
	}
	e.Registry.MarkDone(id)
	logger.Info().Str("step", string(StepPatch)).Int("applied", applied).Msg("patched")

	if len(u.Packages) > 0 {
		logger.Info().Str("step", string(StepInstall)).Strs("packages", u.Packages).Msg("installing packages")
		if err := e.Installer.InstallPackages(ctx, u.Packages); err != nil {
			return e.fail(id, StepInstall, err)
		}
	}
	if !u.SkipInstall {
		logger.Info().Str("step", string(StepInstall)).Str("path", local).Msg("installing unit")
		if err := e.Installer.InstallFrom(ctx, local); err != nil {
			return e.fail(id, StepInstall, err)
		}
	}
	e.Registry.Advance(id, session.Installed)
	logger.Info().Msg("unit complete")
	return nil
}

// prepare leaves an empty directory at local. Anything already there was
// not produced by this session and is discarded.
func (e *Engine) prepare(local string, logger zerolog.Logger) error {
	if _, err := os.Lstat(local); err == nil {
		logger.Warn().Str("path", local).Msg("discarding stale tree")
		if err := sandbox.RemoveTree(local); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.MkdirAll(local, 0o755)
}

func (e *Engine) fail(id string, step Step, err error) error {
	uerr := &UnitError{Unit: id, Step: step, Err: err}
	e.Registry.MarkFailed(id, uerr)
	e.Logger.Error().Err(err).Str("unit", id).Str("step", string(step)).Str("session", e.Registry.ID()).Msg("unit failed")
	return uerr
}

// LocalPath returns the directory a unit is materialized in.
func (e *Engine) LocalPath(u config.Unit) string {
	return filepath.Join(e.WorkDir, u.DirName())
}
