package engine

import (
	"fmt"

	"github.com/bianoble/hostpatch/internal/config"
)

// PlanStep is one unit in a planned run.
type PlanStep struct {
	Unit    string
	Path    string
	Fetch   bool
	Patches int
	Install bool
	// Done is true when the unit already ran in this session.
	Done bool
}

// Plan returns the steps a run of roots would take, in completion order,
// without touching disk.
func (e *Engine) Plan(roots []string) ([]PlanStep, error) {
	if e.Config == nil {
		return nil, fmt.Errorf("%w: engine has no config", ErrInvalidState)
	}
	if len(roots) == 0 {
		roots = e.Config.RootIDs()
	}
	order, err := config.Order(e.Config, roots)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	steps := make([]PlanStep, 0, len(order))
	for _, id := range order {
		u, _ := e.Config.Unit(id)
		s := PlanStep{
			Unit:    id,
			Path:    e.LocalPath(u),
			Fetch:   u.Repo != "",
			Patches: len(u.Patches),
			Install: !u.SkipInstall || len(u.Packages) > 0,
		}
		if e.Registry != nil {
			s.Done = e.Registry.IsDone(id)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
