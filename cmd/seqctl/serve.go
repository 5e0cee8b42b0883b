package main

import (
	"github.com/aretw0/sequence/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pipelines over HTTP",
	Long: `Loads every pipeline of --dir and exposes them over a JSON API, along with
Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := sharedOptions(cmd)
		opts.Dir, _ = cmd.Flags().GetString("dir")
		addr, _ := cmd.Flags().GetString("addr")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Serve(ctx, opts, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("dir", ".", "Directory containing pipeline definitions")
}
