package main

import (
	"fmt"

	"github.com/aretw0/sequence/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a pipeline file",
	Long:  `Parses the pipeline and checks every step it uses against the built-in steps.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := cli.Validate(args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %q is valid\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
