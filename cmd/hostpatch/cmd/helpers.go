package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/hostpatch/pkg/hostpatch"
)

// newClient wires a client from the global flags.
func newClient(cmd *cobra.Command) (*hostpatch.Client, error) {
	return hostpatch.New(clientOptions(cmd))
}

func clientOptions(cmd *cobra.Command) hostpatch.Options {
	return hostpatch.Options{
		ConfigPath:   configPath,
		SettingsPath: settingsPath,
		Settings:     settingsOverrides(cmd),
		Stream:       commandStream(),
	}
}

// settingsOverrides returns the settings keys for flags set on the command
// line. Unset flags leave the file and environment values alone.
func settingsOverrides(cmd *cobra.Command) map[string]any {
	overrides := make(map[string]any)
	flags := cmd.Flags()
	if flags.Changed("workdir") {
		overrides["work_dir"] = workDir
	}
	if flags.Changed("platform") {
		overrides["platform"] = platformFlag
	}
	if flags.Changed("fetcher") {
		overrides["fetcher"] = fetcherFlag
	}
	if flags.Changed("no-builtin") {
		overrides["no_builtin"] = noBuiltin
	}
	return overrides
}

// verbosity maps --quiet and -v counts to a logging level.
func verbosity() int {
	if quiet {
		return -1
	}
	return verbose
}

// commandStream echoes external command output at default verbosity. At
// -v and above the logger already carries each line.
func commandStream() io.Writer {
	if quiet || verbose > 0 {
		return nil
	}
	return os.Stdout
}

// printQuiet returns true if only errors should be shown.
func printQuiet() bool {
	return quiet
}

// printVerbose returns true if detailed output is requested.
func printVerbose() bool {
	return verbose > 0
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if printVerbose() {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
