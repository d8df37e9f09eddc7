// Package commands defines the CLI command structure for the workspace API
// server.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Root returns the root command.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dave-user-api",
		Short: "Workspace provisioning API for per-user development environments",
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Version())

	return cmd
}

// Version returns the version command.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("dave-user-api %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
