package hostpatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectTable = `version: 1
units:
  - id: lib
    repo: https://example.com/lib.git
    patches:
      - file: setup.py
        trigger: '"pyethash'
        kind: delete
  - id: app
    repo: https://example.com/app.git
    depends_on: [lib]
`

type countingFetcher struct{ fetched []string }

func (f *countingFetcher) Fetch(_ context.Context, repo, _ string, dest string) error {
	f.fetched = append(f.fetched, repo)
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "setup.py"), []byte("deps = [\n    \"pyethash>=0.1\",\n]\n"), 0o644)
}

func (f *countingFetcher) Cloned(dest string) bool {
	_, err := os.Stat(filepath.Join(dest, ".git"))
	return err == nil
}

type recordingInstaller struct{ targets []string }

func (r *recordingInstaller) InstallFrom(_ context.Context, dir string) error {
	r.targets = append(r.targets, filepath.Base(dir))
	return nil
}

func (r *recordingInstaller) InstallPackages(context.Context, []string) error { return nil }

func (r *recordingInstaller) InstallFromManifest(_ context.Context, manifest string) error {
	r.targets = append(r.targets, filepath.Base(manifest))
	return nil
}

func newProject(t *testing.T, table string) (root, settingsPath string) {
	t.Helper()
	root = t.TempDir()
	if table != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "hostpatch.yaml"), []byte(table), 0o644))
	}
	settingsPath = filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("no_inherit: true\n"), 0o644))
	return root, settingsPath
}

func newTestClient(t *testing.T, platform string, f Fetcher, inst Installer) *Client {
	t.Helper()
	root, settingsPath := newProject(t, projectTable)
	nop := zerolog.Nop()
	c, err := New(Options{
		ProjectRoot:  root,
		SettingsPath: settingsPath,
		Settings:     map[string]any{"no_builtin": true, "platform": platform},
		Logger:       &nop,
		Fetcher:      f,
		Installer:    inst,
	})
	require.NoError(t, err)
	return c
}

func TestClientRun(t *testing.T) {
	f := &countingFetcher{}
	inst := &recordingInstaller{}
	c := newTestClient(t, "windows", f, inst)

	assert.True(t, c.Affected())
	assert.Equal(t, filepath.Join(c.ProjectRoot(), ".dump"), c.WorkDir())

	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "app"}, result.Completed)
	assert.Equal(t, c.Session(), result.Session)
	assert.False(t, result.Baseline)

	got, err := os.ReadFile(filepath.Join(c.WorkDir(), "lib", "setup.py"))
	require.NoError(t, err)
	assert.Equal(t, "deps = [\n]\n", string(got))

	_, err = c.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, f.fetched, 2)
	assert.Equal(t, []string{"lib", "app"}, inst.targets)
}

func TestClientRunUnaffectedHost(t *testing.T) {
	f := &countingFetcher{}
	inst := &recordingInstaller{}
	c := newTestClient(t, "linux", f, inst)
	require.NoError(t, os.WriteFile(filepath.Join(c.ProjectRoot(), DefaultManifest), []byte("requests\n"), 0o644))

	// The manifest is picked up when the client is built.
	c, err := New(Options{
		ProjectRoot:  c.ProjectRoot(),
		SettingsPath: writeSettings(t),
		Settings:     map[string]any{"no_builtin": true, "platform": "linux"},
		Fetcher:      f,
		Installer:    inst,
	})
	require.NoError(t, err)

	result, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.True(t, result.Baseline)
	assert.Empty(t, f.fetched)
	assert.Equal(t, []string{DefaultManifest}, inst.targets)
}

func writeSettings(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_inherit: true\n"), 0o644))
	return path
}

func TestClientPlanAndStatus(t *testing.T) {
	c := newTestClient(t, "windows", &countingFetcher{}, &recordingInstaller{})

	steps, err := c.Plan([]string{"app"})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "lib", steps[0].Unit)
	assert.Equal(t, 1, steps[0].Patches)

	statuses, err := c.Status(nil)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "missing", string(statuses[0].Disk))

	assert.NoError(t, c.Validate())
}

func TestClientInfo(t *testing.T) {
	c := newTestClient(t, "windows", &countingFetcher{}, &recordingInstaller{})

	info := c.Info("0.1.0")
	assert.Equal(t, "0.1.0", info.Version)
	assert.Equal(t, 2, info.Units)
	assert.Equal(t, "windows", info.Host)
	assert.True(t, info.Affected)
	assert.Equal(t, filepath.Join(c.ProjectRoot(), "setup.log"), info.LogFile)
	assert.Equal(t, "git", info.Fetcher)
}

func TestNewWithBuiltinTable(t *testing.T) {
	root, settingsPath := newProject(t, "")
	c, err := New(Options{ProjectRoot: root, SettingsPath: settingsPath})
	require.NoError(t, err)

	_, ok := c.Table().Unit("trinity")
	assert.True(t, ok)
	assert.Equal(t, []string{"py-evm", "brownie", "trinity"}, c.Table().RootIDs())
}

func TestNewProjectOverridesBuiltinUnit(t *testing.T) {
	root, settingsPath := newProject(t, "version: 1\nunits:\n  - id: ethash\n    repo: https://mirror.example.com/ethash.git\n")
	c, err := New(Options{ProjectRoot: root, SettingsPath: settingsPath})
	require.NoError(t, err)

	u, ok := c.Table().Unit("ethash")
	require.True(t, ok)
	assert.Equal(t, "https://mirror.example.com/ethash.git", u.Repo)
	assert.Empty(t, u.Patches)
}

func TestNewInvalidTable(t *testing.T) {
	root, settingsPath := newProject(t, "version: 1\nunits:\n  - id: a\n    dir: a\n    depends_on: [ghost]\n")
	_, err := New(Options{ProjectRoot: root, SettingsPath: settingsPath, Settings: map[string]any{"no_builtin": true}})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, _, err = LoadTable(Options{ProjectRoot: root, SettingsPath: settingsPath, Settings: map[string]any{"no_builtin": true}})
	require.ErrorAs(t, err, &verr)
}

func TestNewNoTable(t *testing.T) {
	root, settingsPath := newProject(t, "")
	_, err := New(Options{ProjectRoot: root, SettingsPath: settingsPath, Settings: map[string]any{"no_builtin": true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no unit table found")
}

func TestNewUnknownFetcher(t *testing.T) {
	root, settingsPath := newProject(t, projectTable)
	_, err := New(Options{ProjectRoot: root, SettingsPath: settingsPath, Settings: map[string]any{"fetcher": "svn"}})
	require.Error(t, err)
}

func TestNewRootFromConfigPath(t *testing.T) {
	root, settingsPath := newProject(t, projectTable)
	c, err := New(Options{
		ConfigPath:   filepath.Join(root, "hostpatch.yaml"),
		SettingsPath: settingsPath,
		Settings:     map[string]any{"no_builtin": true},
	})
	require.NoError(t, err)
	assert.Equal(t, root, c.ProjectRoot())
}
