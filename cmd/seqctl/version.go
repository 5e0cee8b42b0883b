package main

import (
	"fmt"

	"github.com/aretw0/sequence"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of seqctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "seqctl version %s\n", sequence.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
