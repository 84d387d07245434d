package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [unit...]",
	Short: "Show the order units would run in, without touching anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		steps, err := client.Plan(args)
		if err != nil {
			return err
		}

		if !client.Affected() {
			info("Host is not affected; run would only install the baseline manifest.")
		}

		fmt.Printf("%-3s %-22s %-6s %-8s %-8s %s\n", "#", "UNIT", "FETCH", "PATCHES", "INSTALL", "PATH")
		for i, s := range steps {
			fmt.Printf("%-3d %-22s %-6s %-8d %-8s %s\n", i+1, truncate(s.Unit, 22), yesNo(s.Fetch), s.Patches, yesNo(s.Install), s.Path)
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(planCmd)
}
