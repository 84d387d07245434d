package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [unit...]",
	Short: "Show the on-disk state of all units",
	Long: `Shows unit id, repository, dependencies and what its directory holds
(missing, present, cloned). A present or cloned directory is stale until a
run rebuilds it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		statuses, err := client.Status(args)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			info("No units configured.")
			return nil
		}

		fmt.Printf("%-22s %-40s %-24s %s\n", "UNIT", "REPO", "DEPENDS ON", "DISK")
		for _, s := range statuses {
			repo := s.Repo
			if repo == "" {
				repo = "-"
			}
			fmt.Printf("%-22s %-40s %-24s %s\n", truncate(s.ID, 22), truncate(repo, 40), truncate(joinOrDash(s.DependsOn), 24), s.Disk)
			detail("path: %s, %d patch(es)", s.Path, s.Patches)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
