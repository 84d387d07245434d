package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/hostpatch/internal/units"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in unit table to hostpatch.yaml for editing",
	Long: `Creates a hostpatch.yaml in the current directory holding a copy of the
built-in unit table. Edit it to change triggers or add units; entries with
the same id replace the built-in ones.

Use --force to overwrite an existing file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, units.Raw(), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Edit the units and triggers")
		info("  2. Run 'hostpatch validate' to check the table")
		info("  3. Run 'hostpatch plan' to see what a run does")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing unit table")
	rootCmd.AddCommand(initCmd)
}
