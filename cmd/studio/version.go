package main

import (
	"fmt"

	"github.com/manyblack/studio"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of studio",
	// The version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "studio version %s\n", studio.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
