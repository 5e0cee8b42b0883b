package main

import (
	"github.com/aretw0/sequence/internal/cli"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run record",
	Long:  `Fetches a run record from the Redis run store given by --redis.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Show(cmd.Context(), sharedOptions(cmd), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
