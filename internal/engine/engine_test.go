package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/installer"
	"github.com/bianoble/hostpatch/internal/patch"
	"github.com/bianoble/hostpatch/internal/platform"
	"github.com/bianoble/hostpatch/internal/session"
	"github.com/bianoble/hostpatch/internal/source"
)

// fakeFetcher writes a canned tree and a .git dir into dest.
type fakeFetcher struct {
	mu    sync.Mutex
	trees map[string]map[string]string // repo -> relpath -> content
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, repo, _ string, dest string) error {
	f.mu.Lock()
	f.calls = append(f.calls, repo)
	f.mu.Unlock()

	if err := f.errs[repo]; err != nil {
		return &source.SourceError{Source: repo, Operation: "fetch", Err: err}
	}
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return err
	}
	for rel, content := range f.trees[repo] {
		path := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFetcher) Cloned(dest string) bool {
	info, err := os.Stat(filepath.Join(dest, ".git"))
	return err == nil && info.IsDir()
}

func (f *fakeFetcher) count(repo string) int {
	n := 0
	for _, c := range f.calls {
		if c == repo {
			n++
		}
	}
	return n
}

type installCall struct {
	kind   string // "dir", "packages", "manifest"
	target string
	pkgs   []string
}

type fakeInstaller struct {
	calls []installCall
	fail  map[string]error // keyed by base name of dir or manifest
}

func (f *fakeInstaller) InstallFrom(_ context.Context, dir string) error {
	f.calls = append(f.calls, installCall{kind: "dir", target: filepath.Base(dir)})
	if err := f.fail[filepath.Base(dir)]; err != nil {
		return &installer.InstallError{Target: dir, Err: err}
	}
	return nil
}

func (f *fakeInstaller) InstallPackages(_ context.Context, pkgs []string) error {
	f.calls = append(f.calls, installCall{kind: "packages", pkgs: pkgs})
	return nil
}

func (f *fakeInstaller) InstallFromManifest(_ context.Context, manifest string) error {
	f.calls = append(f.calls, installCall{kind: "manifest", target: manifest})
	if err := f.fail[manifest]; err != nil {
		return &installer.InstallError{Target: manifest, Err: err}
	}
	return nil
}

func (f *fakeInstaller) installed() []string {
	var out []string
	for _, c := range f.calls {
		if c.kind == "dir" {
			out = append(out, c.target)
		}
	}
	return out
}

func chainConfig() *config.Config {
	return &config.Config{Version: 1, Units: []config.Unit{
		{ID: "a", Repo: "https://example.com/a.git", DependsOn: []string{"b"}},
		{ID: "b", Repo: "https://example.com/b.git", DependsOn: []string{"c"}},
		{ID: "c", Repo: "https://example.com/c.git"},
	}}
}

func newEngine(t *testing.T, cfg *config.Config, f *fakeFetcher, inst *fakeInstaller) *Engine {
	t.Helper()
	return &Engine{
		Config:    cfg,
		WorkDir:   filepath.Join(t.TempDir(), ".dump"),
		Registry:  session.New(),
		Fetcher:   f,
		Installer: inst,
		Logger:    zerolog.Nop(),
	}
}

func TestRunCompletesDependenciesFirst(t *testing.T) {
	f := &fakeFetcher{}
	inst := &fakeInstaller{}
	e := newEngine(t, chainConfig(), f, inst)

	result, err := e.Run(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "b", "a"}, result.Completed)
	assert.Equal(t, []string{
		"https://example.com/c.git",
		"https://example.com/b.git",
		"https://example.com/a.git",
	}, f.calls)
	assert.Equal(t, []string{"c", "b", "a"}, inst.installed())
	assert.Equal(t, session.Installed, e.Registry.State("a"))
	assert.False(t, result.Skipped)
}

func TestRunTwiceInOneSessionDoesWorkOnce(t *testing.T) {
	f := &fakeFetcher{}
	inst := &fakeInstaller{}
	e := newEngine(t, chainConfig(), f, inst)

	_, err := e.Run(context.Background(), []string{"a"})
	require.NoError(t, err)

	again, err := e.Run(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.Empty(t, again.Completed)
	assert.Equal(t, []string{"a"}, again.Reused)
	assert.Len(t, f.calls, 3)
	assert.Equal(t, []string{"c", "b", "a"}, inst.installed())
}

func TestRunSharedDependencyOnce(t *testing.T) {
	cfg := &config.Config{Version: 1, Units: []config.Unit{
		{ID: "ethash", Repo: "https://example.com/ethash.git"},
		{ID: "py-evm", Repo: "https://example.com/py-evm.git", DependsOn: []string{"ethash"}},
		{ID: "brownie", Repo: "https://example.com/brownie.git", DependsOn: []string{"ethash"}},
	}}
	f := &fakeFetcher{}
	e := newEngine(t, cfg, f, &fakeInstaller{})

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ethash", "py-evm", "brownie"}, result.Completed)
	assert.Equal(t, 1, f.count("https://example.com/ethash.git"))
}

func TestRunDiscardsStaleTree(t *testing.T) {
	f := &fakeFetcher{trees: map[string]map[string]string{
		"https://example.com/c.git": {"setup.py": "fresh\n"},
	}}
	cfg := &config.Config{Version: 1, Units: []config.Unit{{ID: "c", Repo: "https://example.com/c.git"}}}
	e := newEngine(t, cfg, f, &fakeInstaller{})

	stale := filepath.Join(e.WorkDir, "c")
	require.NoError(t, os.MkdirAll(filepath.Join(stale, ".git", "objects"), 0o755))
	readOnly := filepath.Join(stale, ".git", "objects", "pack")
	require.NoError(t, os.WriteFile(readOnly, []byte("x"), 0o444))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "leftover.txt"), []byte("old"), 0o644))

	require.Len(t, e.StaleUnits(), 1)

	_, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(stale, "leftover.txt"))
	assert.NoFileExists(t, readOnly)
	assert.FileExists(t, filepath.Join(stale, "setup.py"))
	assert.Equal(t, 1, f.count("https://example.com/c.git"))
	assert.Empty(t, e.StaleUnits())
}

func TestRunGateSkipsUnits(t *testing.T) {
	f := &fakeFetcher{}
	inst := &fakeInstaller{}
	e := newEngine(t, chainConfig(), f, inst)
	e.Manifest = "requirements.txt"
	e.Gate = &platform.Gate{Affected: []string{"windows"}, Host: "linux"}

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.True(t, result.Baseline)
	assert.Empty(t, f.calls)
	assert.Equal(t, []installCall{{kind: "manifest", target: "requirements.txt"}}, inst.calls)
	assert.NoDirExists(t, e.WorkDir)
}

func TestRunBaselineBeforeUnits(t *testing.T) {
	inst := &fakeInstaller{}
	e := newEngine(t, chainConfig(), &fakeFetcher{}, inst)
	e.Manifest = "requirements.txt"
	e.Gate = &platform.Gate{Affected: []string{"windows"}, Host: "windows"}

	_, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, inst.calls)
	assert.Equal(t, "manifest", inst.calls[0].kind)
	assert.Equal(t, []string{"c", "b", "a"}, inst.installed())
}

func TestRunBaselineFailureStops(t *testing.T) {
	f := &fakeFetcher{}
	inst := &fakeInstaller{fail: map[string]error{"requirements.txt": errors.New("exit status 1")}}
	e := newEngine(t, chainConfig(), f, inst)
	e.Manifest = "requirements.txt"

	_, err := e.Run(context.Background(), nil)
	require.ErrorIs(t, err, installer.ErrInstallFailed)
	assert.Empty(t, f.calls)
}

func TestRunAppliesPatches(t *testing.T) {
	mmap := "#include <windows.h>\n#include <shlobj.h>\n\nint x;\n"
	f := &fakeFetcher{trees: map[string]map[string]string{
		"git@github.com:ethereum/ethash.git": {"src/libethash/mmap_win32.c": mmap},
	}}
	cfg := &config.Config{Version: 1, Units: []config.Unit{{
		ID:   "ethash",
		Repo: "git@github.com:ethereum/ethash.git",
		Patches: []patch.Operation{{
			File:    "src/libethash/mmap_win32.c",
			Trigger: "#include",
			Kind:    patch.InsertAfter,
			Payload: `#pragma comment(lib, "Shell32.lib")`,
		}},
	}}}
	e := newEngine(t, cfg, f, &fakeInstaller{})

	_, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(e.WorkDir, "ethash", "src", "libethash", "mmap_win32.c"))
	require.NoError(t, err)
	assert.Equal(t, "#include <windows.h>\n#pragma comment(lib, \"Shell32.lib\")\n#include <shlobj.h>\n\nint x;\n", string(got))
}

func TestRunPatchFailurePropagates(t *testing.T) {
	f := &fakeFetcher{trees: map[string]map[string]string{
		"https://example.com/c.git": {"setup.py": "install_requires=[]\n"},
	}}
	cfg := chainConfig()
	cfg.Units[2].Patches = []patch.Operation{{File: "setup.py", Trigger: `"pyethash`, Kind: patch.DeleteLine}}
	inst := &fakeInstaller{}
	e := newEngine(t, cfg, f, inst)

	result, err := e.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, patch.ErrTriggerNotFound)

	var uerr *UnitError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "c", uerr.Unit)
	assert.Equal(t, StepPatch, uerr.Step)

	assert.Empty(t, result.Completed)
	assert.Empty(t, inst.installed())
	assert.Equal(t, []string{"https://example.com/c.git"}, f.calls)
	assert.False(t, e.Registry.IsDone("c"))

	// The failure is remembered for the rest of the session.
	_, again := e.Run(context.Background(), nil)
	assert.Same(t, uerr, errorsAsUnit(t, again))
	assert.Len(t, f.calls, 1)
}

func errorsAsUnit(t *testing.T, err error) *UnitError {
	t.Helper()
	var uerr *UnitError
	require.ErrorAs(t, err, &uerr)
	return uerr
}

func TestRunFetchFailure(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{"https://example.com/b.git": errors.New("repository not found")}}
	inst := &fakeInstaller{}
	e := newEngine(t, chainConfig(), f, inst)

	result, err := e.Run(context.Background(), nil)
	require.ErrorIs(t, err, source.ErrFetchFailed)
	assert.Equal(t, StepFetch, errorsAsUnit(t, err).Step)
	assert.Equal(t, []string{"c"}, result.Completed)
	assert.Equal(t, session.Installed, e.Registry.State("c"))
	assert.Equal(t, session.Absent, e.Registry.State("a"))
}

func TestRunInstallFailureKeepsPatchedState(t *testing.T) {
	inst := &fakeInstaller{fail: map[string]error{"c": errors.New("exit status 1")}}
	e := newEngine(t, chainConfig(), &fakeFetcher{}, inst)

	_, err := e.Run(context.Background(), nil)
	require.ErrorIs(t, err, installer.ErrInstallFailed)
	assert.Equal(t, StepInstall, errorsAsUnit(t, err).Step)
	assert.Equal(t, session.Patched, e.Registry.State("c"))
	assert.Error(t, e.Registry.Failure("c"))
}

func TestRunPackagesBeforeUnitInstall(t *testing.T) {
	cfg := &config.Config{Version: 1, Units: []config.Unit{
		{ID: "trinity", Repo: "https://example.com/trinity.git", Packages: []string{"python_snappy.whl"}},
		{ID: "tools", Dir: "tools", Packages: []string{"wheel"}, SkipInstall: true},
	}}
	inst := &fakeInstaller{}
	f := &fakeFetcher{}
	e := newEngine(t, cfg, f, inst)

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []installCall{
		{kind: "packages", pkgs: []string{"python_snappy.whl"}},
		{kind: "dir", target: "trinity"},
		{kind: "packages", pkgs: []string{"wheel"}},
	}, inst.calls)
	assert.Equal(t, []string{"trinity", "tools"}, result.Completed)
	assert.Equal(t, 1, len(f.calls))
	assert.DirExists(t, filepath.Join(e.WorkDir, "tools"))
}

func TestRunRejectsInvalidGraph(t *testing.T) {
	cfg := &config.Config{Version: 1, Units: []config.Unit{
		{ID: "a", Dir: "a", DependsOn: []string{"b"}},
		{ID: "b", Dir: "b", DependsOn: []string{"a"}},
	}}
	f := &fakeFetcher{}
	e := newEngine(t, cfg, f, &fakeInstaller{})

	_, err := e.Run(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "dependency cycle")

	_, err = e.Run(context.Background(), []string{"ghost"})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.NoDirExists(t, e.WorkDir)
}

func TestRunUnitDetectsCycle(t *testing.T) {
	cfg := &config.Config{Version: 1, Units: []config.Unit{
		{ID: "a", Dir: "a", DependsOn: []string{"b"}},
		{ID: "b", Dir: "b", DependsOn: []string{"a"}},
	}}
	e := newEngine(t, cfg, &fakeFetcher{}, &fakeInstaller{})

	err := e.runUnit(context.Background(), "a", make(map[string]bool))
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "a", errorsAsUnit(t, err).Unit)
}

func TestRunRequiresCollaborators(t *testing.T) {
	e := &Engine{Config: chainConfig()}
	_, err := e.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRunCancelledContext(t *testing.T) {
	e := newEngine(t, chainConfig(), &fakeFetcher{}, &fakeInstaller{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StepPrepare, errorsAsUnit(t, err).Step)
}
