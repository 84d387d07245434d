package config

import (
	"fmt"
	"strings"
)

// FindCycle returns the first dependency cycle among units as a path that
// starts and ends on the same id, or nil. Unknown dependencies are ignored.
func FindCycle(units []Unit) []string {
	byID := make(map[string]Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	const (
		unvisited = iota
		onStack
		finished
	)
	state := make(map[string]int, len(units))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = onStack
		stack = append(stack, id)
		for _, dep := range byID[id].DependsOn {
			if _, known := byID[dep]; !known {
				continue
			}
			switch state[dep] {
			case onStack:
				for i, s := range stack {
					if s == dep {
						return append(append([]string(nil), stack[i:]...), dep)
					}
				}
			case unvisited:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = finished
		return nil
	}

	for _, u := range units {
		if state[u.ID] == unvisited {
			if c := visit(u.ID); c != nil {
				return c
			}
		}
	}
	return nil
}

// Order returns the ids reachable from roots in the order a run completes
// them: dependencies first, in declaration order, each id once.
func Order(cfg *Config, roots []string) ([]string, error) {
	var order []string
	done := make(map[string]bool)
	active := make(map[string]bool)
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		if done[id] {
			return nil
		}
		if active[id] {
			return fmt.Errorf("dependency cycle: %s -> %s", strings.Join(path, " -> "), id)
		}
		u, ok := cfg.Unit(id)
		if !ok {
			return fmt.Errorf("undefined unit '%s'", id)
		}
		active[id] = true
		path = append(path, id)
		for _, dep := range u.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		active[id] = false
		done[id] = true
		order = append(order, id)
		return nil
	}

	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return order, nil
}
