package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/hostpatch/internal/config"
	"github.com/bianoble/hostpatch/internal/logging"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	settingsPath string
	workDir      string
	platformFlag string
	fetcherFlag  string
	logJSON      string
	verbose      int
	quiet        bool
	noColor      bool
	noBuiltin    bool
)

var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:   "hostpatch",
	Short: "Patch and install third-party source trees that do not build on this host",
	Long: `hostpatch clones third-party repositories, applies small line edits that
make them build on the current platform, and installs them with the package
manager. Units run in dependency order and at most once per invocation.

On hosts outside the table's platforms only the baseline requirements
manifest is installed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closeFn, err := logging.Setup(logging.Options{
			Verbosity: verbosity(),
			NoColor:   noColor,
			File:      logJSON,
		})
		closeLog = closeFn
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hostpatch %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
		fmt.Printf("  table:   v1\n")
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.ConfigFileName, "path to the project unit table")
	flags.StringVar(&settingsPath, "settings", "", "path to settings file (default $XDG_CONFIG_HOME/hostpatch/settings.yaml)")
	flags.StringVar(&workDir, "workdir", "", "directory units are cloned into (default .dump)")
	flags.StringVar(&platformFlag, "platform", "", "treat the host as this platform")
	flags.StringVar(&fetcherFlag, "fetcher", "", "fetch backend: git or go-git")
	flags.StringVar(&logJSON, "log-json", "", "also write JSON logs to this file")
	flags.CountVarP(&verbose, "verbose", "v", "detailed output (repeat for more)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&noBuiltin, "no-builtin", false, "ignore the built-in unit table")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
