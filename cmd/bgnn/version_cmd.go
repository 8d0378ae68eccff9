package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bgnn",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bgnn v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
