package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about hostpatch settings and the host",
	Long: `Displays the hostpatch version, the config chain, settings, the work
directory, and whether this host is one the unit table patches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		result := client.Info(version)

		fmt.Printf("hostpatch %s\n", result.Version)
		fmt.Printf("  table version: %d\n", result.TableVersion)
		fmt.Println("  config chain:")
		for _, layer := range result.ConfigChain {
			status := "not found"
			if layer.Loaded {
				status = "loaded"
			}
			path := layer.Path
			if path == "" {
				path = "(embedded)"
			}
			fmt.Printf("    %-10s %s (%s)\n", layer.Level+":", path, status)
		}
		fmt.Printf("  settings:      %s\n", result.SettingsPath)
		fmt.Printf("  work dir:      %s\n", result.WorkDir)
		fmt.Printf("  log file:      %s\n", result.LogFile)
		fmt.Printf("  fetcher:       %s\n", result.Fetcher)
		fmt.Printf("  installer:     %s\n", strings.Join(result.Installer, " "))
		fmt.Printf("  units:         %d\n", result.Units)

		affected := "no"
		if result.Affected {
			affected = "yes"
		}
		fmt.Printf("\nHost %s, patched platforms: %s (affected: %s)\n", result.Host, joinOrDash(result.Platforms), affected)
		detail("known platforms: %s", joinOrDash(result.Known))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
