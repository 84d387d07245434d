// Package platform decides whether the current host is one the patch table
// targets.
package platform

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/bianoble/hostpatch/internal/config"
)

// builtinPlatforms maps platform names to GOOS values.
var builtinPlatforms = map[string]string{
	"windows": "windows",
	"macos":   "darwin",
	"darwin":  "darwin",
	"linux":   "linux",
	"freebsd": "freebsd",
}

// Map resolves platform names to GOOS values.
type Map struct {
	definitions map[string]string
}

// NewMap creates a Map with built-in names and optional custom aliases.
func NewMap(aliases []config.PlatformAlias) *Map {
	defs := make(map[string]string, len(builtinPlatforms)+len(aliases))
	for name, goos := range builtinPlatforms {
		defs[name] = goos
	}
	for _, a := range aliases {
		defs[strings.ToLower(a.Name)] = a.GOOS
	}
	return &Map{definitions: defs}
}

// Resolve returns the GOOS value for a platform name.
func (m *Map) Resolve(name string) (string, error) {
	goos, ok := m.definitions[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown platform '%s' — define it in platform_aliases: [{name: %s, goos: <GOOS>}]", name, name)
	}
	return goos, nil
}

// Known returns all known platform names, sorted.
func (m *Map) Known() []string {
	names := make([]string, 0, len(m.definitions))
	for name := range m.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Gate reports whether patching applies to the host.
type Gate struct {
	// Affected holds GOOS values that need patching.
	Affected []string
	// Host is the GOOS to test; empty means runtime.GOOS.
	Host string
}

// NewGate resolves the named platforms into a Gate for host.
func NewGate(m *Map, names []string, host string) (*Gate, error) {
	g := &Gate{Host: host}
	for _, n := range names {
		goos, err := m.Resolve(n)
		if err != nil {
			return nil, err
		}
		g.Affected = append(g.Affected, goos)
	}
	if host != "" {
		resolved, err := m.Resolve(host)
		if err != nil {
			return nil, fmt.Errorf("host override: %w", err)
		}
		g.Host = resolved
	}
	return g, nil
}

// HostOS returns the GOOS being gated.
func (g *Gate) HostOS() string {
	if g.Host != "" {
		return g.Host
	}
	return runtime.GOOS
}

// Applies reports whether the host is one of the affected platforms.
func (g *Gate) Applies() bool {
	host := g.HostOS()
	for _, goos := range g.Affected {
		if goos == host {
			return true
		}
	}
	return false
}
