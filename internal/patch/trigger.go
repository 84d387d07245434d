package patch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTriggerNotFound is returned when no line starts with the trigger.
// It means the upstream file changed shape and the patch is stale.
var ErrTriggerNotFound = errors.New("trigger not found")

// ErrInvalidTrigger is returned when a locate is attempted with an empty trigger.
var ErrInvalidTrigger = errors.New("invalid trigger")

// TriggerError reports a trigger that could not be located in a file.
type TriggerError struct {
	File    string
	Trigger string
	Err     error
}

func (e *TriggerError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("trigger %q: %s", e.Trigger, e.Err)
	}
	return fmt.Sprintf("%s: trigger %q: %s", e.File, e.Trigger, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

// Locate returns the index of the first line that, once surrounding
// whitespace is trimmed, starts with trigger. Every call scans from the top.
func Locate(lines []string, trigger string) (int, error) {
	if trigger == "" {
		return -1, ErrInvalidTrigger
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), trigger) {
			return i, nil
		}
	}
	return -1, &TriggerError{Trigger: trigger, Err: ErrTriggerNotFound}
}
