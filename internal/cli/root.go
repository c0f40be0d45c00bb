// Package cli wires the agency-connect commands.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set by the binary at link time
var Version = "dev"

// GlobalFlags contains global flags available for all commands
type GlobalFlags struct {
	JSON bool
}

var globalFlags GlobalFlags

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "agency-connect",
	Short: "OAuth connection service for agency integrations",
	Long: `agency-connect runs the OAuth authorization-code flow that connects an
agency (tenant) to Slack, Gmail, Google Ads and Meta Ads, and stores the
resulting credentials encrypted.

Configuration is read from the environment. See "agency-connect check-config".`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(versionCmd)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agency-connect %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
