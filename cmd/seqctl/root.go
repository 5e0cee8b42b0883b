package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sequence/internal/cli"
	"github.com/spf13/cobra"
)

// encryptionKeyEnv names the variable holding a base64 AES-256 key for
// encrypting stored run records.
const encryptionKeyEnv = "SEQCTL_ENCRYPTION_KEY"

var rootCmd = &cobra.Command{
	Use:   "seqctl",
	Short: "seqctl runs sequential step pipelines",
	Long: `seqctl compiles YAML pipeline definitions into sequences of steps and
runs them once from the command line or serves them over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for run records and pipeline locks (empty keeps runs in memory)")
	rootCmd.PersistentFlags().StringSlice("mask", nil, "Regular expressions of keys masked in stored run records")
}

// sharedOptions reads the persistent flags.
func sharedOptions(cmd *cobra.Command) cli.RunOptions {
	level, _ := cmd.Flags().GetString("log-level")
	redisAddr, _ := cmd.Flags().GetString("redis")
	mask, _ := cmd.Flags().GetStringSlice("mask")
	return cli.RunOptions{
		LogLevel:      level,
		RedisAddr:     redisAddr,
		MaskPatterns:  mask,
		EncryptionKey: os.Getenv(encryptionKeyEnv),
	}
}
