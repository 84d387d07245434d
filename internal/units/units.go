// Package units holds the built-in unit table.
package units

import (
	_ "embed"
	"fmt"

	"github.com/bianoble/hostpatch/internal/config"
)

//go:embed default.yaml
var defaultTable []byte

// Raw returns the embedded table as YAML.
func Raw() []byte {
	return append([]byte(nil), defaultTable...)
}

// Default decodes and validates the built-in table. Each call returns a
// fresh copy.
func Default() (*config.Config, error) {
	cfg, err := config.Parse(defaultTable, config.FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing built-in unit table: %w", err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("built-in unit table: %w", &config.ValidationError{Errors: errs})
	}
	return cfg, nil
}
