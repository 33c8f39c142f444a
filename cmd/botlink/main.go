package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "botlink",
	Short: "Drive educational BLE robots from the command line",
	Long: `botlink connects to the BLE robots behind the Scratch block extensions
(AICoBot, the AIDrone/Firmtech/JDCode drones, JCBoard and RoboDog) and drives
them with the same blocks the editor uses:

- Scan for supported robots nearby
- List the blocks and menus of an extension
- Run Lua scripts that call blocks
- Call blocks interactively from a shell
- Stream decoded telemetry`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("botlink {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(monitorCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Shorthand for --log-level debug")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
