// Package cli implements sabactl, the supervisor's command-line interface
// using Cobra. Every subcommand other than "serve" talks to a running
// daemon over its loopback IPC server.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sabactl",
	Short: "sabactl — control the saba-chan game server supervisor",
	Long: `sabactl controls a running saba-chan daemon: manage server instances,
discover modules, enable extensions, and drive the self-updater.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
