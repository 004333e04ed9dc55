// Package cmd holds the command line entrypoints.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BitcoinSchema/go-zk-attest/config"
)

const flagConfig = "config"

// NewRootCmd returns the root command with its subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zk-attest",
		Short:         "Identity attestations backed by zero-knowledge proofs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(flagConfig, "", "path to a config file (yaml, json or toml)")

	v := config.New()
	rootCmd.AddCommand(
		newServeCmd(v),
		newConfigCmd(v),
	)
	return rootCmd
}
