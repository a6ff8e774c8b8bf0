package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the sharding admin CLI. Subcommands
// (directory, tenant) are attached here.
var rootCmd = &cobra.Command{
	Use:           "shardctl",
	Short:         "Shard directory admin CLI",
	Long:          "Administrative utilities for the shard directory and tenant database lifecycle.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
