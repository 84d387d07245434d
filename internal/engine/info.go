package engine

import (
	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/platform"
)

// ConfigLayerStatus describes a config layer's load status for display.
type ConfigLayerStatus struct {
	Level  string // "builtin", "system", "user", "project"
	Path   string
	Loaded bool
}

// InfoResult holds tool information for the info command.
type InfoResult struct {
	Version      string
	SettingsPath string
	WorkDir      string
	LogFile      string
	Fetcher      string
	Installer    []string
	Host         string
	Affected     bool
	Platforms    []string
	Known        []string
	ConfigChain  []ConfigLayerStatus
	Units        int
	TableVersion int
}

// InfoOptions carries the values the info command reports verbatim.
type InfoOptions struct {
	Version      string
	SettingsPath string
	LogFile      string
	Fetcher      string
	Installer    []string
	Layers       []config.ConfigLayerInfo
}

// Info gathers tool information.
func (e *Engine) Info(opts InfoOptions, m *platform.Map) *InfoResult {
	r := &InfoResult{
		Version:      opts.Version,
		SettingsPath: opts.SettingsPath,
		WorkDir:      e.WorkDir,
		LogFile:      opts.LogFile,
		Fetcher:      opts.Fetcher,
		Installer:    opts.Installer,
		TableVersion: 1,
		Affected:     true,
	}

	if e.Config != nil {
		r.Units = len(e.Config.Units)
		r.Platforms = e.Config.EffectivePlatforms()
	}
	if e.Gate != nil {
		r.Host = e.Gate.HostOS()
		r.Affected = e.Gate.Applies()
	}
	if m != nil {
		r.Known = m.Known()
	}

	for _, l := range opts.Layers {
		r.ConfigChain = append(r.ConfigChain, ConfigLayerStatus{
			Level:  string(l.Level),
			Path:   l.Path,
			Loaded: l.Loaded,
		})
	}
	return r
}
