package patch

import (
	"fmt"
	"slices"
)

// Kind names the line transformation an Operation performs.
type Kind string

const (
	InsertAfter Kind = "insert_after"
	ReplaceLine Kind = "replace"
	DeleteLine  Kind = "delete"
)

// Operation is a single trigger-anchored edit of one file.
type Operation struct {
	// File is relative to the unit's local directory.
	File    string `yaml:"file" toml:"file"`
	Trigger string `yaml:"trigger" toml:"trigger"`
	Kind    Kind   `yaml:"kind" toml:"kind"`
	Payload string `yaml:"payload,omitempty" toml:"payload,omitempty"`
	// Note records the upstream failure the edit works around.
	Note string `yaml:"note,omitempty" toml:"note,omitempty"`
}

func (op Operation) String() string {
	return fmt.Sprintf("%s %s @ %q", op.Kind, op.File, op.Trigger)
}

// Validate checks an operation for static correctness.
func Validate(op Operation) error {
	if op.File == "" {
		return fmt.Errorf("'file' is required")
	}
	if op.Trigger == "" {
		return fmt.Errorf("'trigger' is required: %w", ErrInvalidTrigger)
	}
	switch op.Kind {
	case InsertAfter, ReplaceLine:
		if op.Payload == "" {
			return fmt.Errorf("kind '%s' requires 'payload'", op.Kind)
		}
	case DeleteLine:
		if op.Payload != "" {
			return fmt.Errorf("kind 'delete' does not take a 'payload'")
		}
	case "":
		return fmt.Errorf("'kind' is required — must be one of: insert_after, replace, delete")
	default:
		return fmt.Errorf("invalid kind '%s' — must be one of: insert_after, replace, delete", op.Kind)
	}
	return nil
}

// Apply returns a copy of lines with op applied. The input is not modified.
func Apply(lines []string, op Operation) ([]string, error) {
	idx, err := Locate(lines, op.Trigger)
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case InsertAfter:
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:idx+1]...)
		out = append(out, op.Payload)
		return append(out, lines[idx+1:]...), nil
	case ReplaceLine:
		out := slices.Clone(lines)
		out[idx] = op.Payload
		return out, nil
	case DeleteLine:
		out := make([]string, 0, len(lines)-1)
		out = append(out, lines[:idx]...)
		return append(out, lines[idx+1:]...), nil
	default:
		return nil, fmt.Errorf("invalid kind '%s'", op.Kind)
	}
}
