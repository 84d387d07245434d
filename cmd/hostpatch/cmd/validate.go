package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bianoble/hostpatch/pkg/hostpatch"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every config layer and report all problems in the unit table",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, layers, err := hostpatch.LoadTable(clientOptions(cmd))
		for _, l := range layers {
			switch {
			case l.Err != nil:
				detail("%-8s %s (error)", l.Level, l.Path)
			case l.Loaded:
				detail("%-8s %s", l.Level, layerPath(l))
			}
		}
		if err != nil {
			var verr *hostpatch.ValidationError
			if errors.As(err, &verr) {
				for _, msg := range verr.Errors {
					errorf("%s", msg)
				}
				return errors.New("unit table is invalid")
			}
			return err
		}

		info("Unit table is valid: %d unit(s), roots: %s.", len(table.Units), joinOrDash(table.RootIDs()))
		return nil
	},
}

func layerPath(l hostpatch.ConfigLayer) string {
	if l.Path == "" {
		return "(embedded)"
	}
	return l.Path
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
