package main

import (
	"github.com/aretw0/sequence/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a pipeline file once",
	Long: `Loads a pipeline definition, runs it with the given argument and prints the
result. The argument is decoded as JSON when possible, otherwise taken as a string.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := sharedOptions(cmd)
		opts.JSON, _ = cmd.Flags().GetBool("json")
		arg, _ := cmd.Flags().GetString("arg")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunFile(ctx, opts, args[0], arg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("arg", "", "Initial argument passed to the first step")
	runCmd.Flags().Bool("json", false, "Print the full run record")
}
