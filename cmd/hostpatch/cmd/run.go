package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bianoble/hostpatch/pkg/hostpatch"
)

var runCmd = &cobra.Command{
	Use:   "run [unit...]",
	Short: "Install the baseline manifest, then fetch, patch and install units",
	Long: `Installs requirements.txt (or the configured manifest) first. On affected
hosts it then runs the named units, or every root unit, with their
dependencies: each unit is cloned fresh, patched and installed once.

An existing unit directory from an earlier invocation is discarded before
it is cloned again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		detail("session %s", client.Session())
		result, err := client.Run(cmd.Context(), args)
		if result != nil {
			if result.Baseline {
				info("Installed baseline manifest.")
			}
			if result.Skipped {
				info("Host is not affected; no units were patched.")
				return nil
			}
			for _, id := range result.Completed {
				info("  ✓ %s", id)
			}
			for _, id := range result.Reused {
				detail("%s already done this session", id)
			}
		}
		if err != nil {
			var uerr *hostpatch.UnitError
			if errors.As(err, &uerr) {
				errorf("%s failed during %s", uerr.Unit, uerr.Step)
			}
			return err
		}

		if !printQuiet() {
			info("Patched and installed %d unit(s).", len(result.Completed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
