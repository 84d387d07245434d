package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/sandbox"
	"github.com/bianoble/hostpatch/internal/session"
)

// Status returns the state of all (or named) units. It reads disk and the
// session registry and changes neither.
func (e *Engine) Status(ids []string) ([]UnitStatus, error) {
	if e.Config == nil {
		return nil, fmt.Errorf("%w: engine has no config", ErrInvalidState)
	}

	names := ids
	if len(names) == 0 {
		for _, u := range e.Config.Units {
			names = append(names, u.ID)
		}
	}

	statuses := make([]UnitStatus, 0, len(names))
	for _, id := range names {
		u, ok := e.Config.Unit(id)
		if !ok {
			return nil, fmt.Errorf("%w: undefined unit '%s'", ErrInvalidState, id)
		}

		local := e.LocalPath(u)
		s := UnitStatus{
			ID:        id,
			Repo:      u.Repo,
			Path:      local,
			DependsOn: u.DependsOn,
			Patches:   len(u.Patches),
			Disk:      e.disk(local),
			State:     session.Absent.String(),
		}
		if e.Registry != nil {
			s.State = e.Registry.State(id).String()
			s.Err = e.Registry.Failure(id)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func (e *Engine) disk(local string) Disk {
	if _, err := os.Stat(local); err != nil {
		return DiskMissing
	}
	cloned := sandbox.IsDir(filepath.Join(local, ".git"))
	if e.Fetcher != nil {
		cloned = e.Fetcher.Cloned(local)
	}
	if cloned {
		return DiskCloned
	}
	return DiskPresent
}

// StaleUnits returns the units whose local path exists but that have not
// run in this session. A run discards their trees.
func (e *Engine) StaleUnits() []config.Unit {
	var stale []config.Unit
	for _, u := range e.Config.Units {
		if e.disk(e.LocalPath(u)) == DiskMissing {
			continue
		}
		if e.Registry != nil && e.Registry.IsDone(u.ID) {
			continue
		}
		stale = append(stale, u)
	}
	return stale
}
