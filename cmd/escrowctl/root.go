package main

import (
	"time"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	server  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "escrowctl",
		Short: "Operator CLI for escrowd",
		Long: `escrowctl talks to an escrowd instance over gRPC. Transactions are built and
signed locally with base58 encoded ed25519 private keys, so keys never leave
the machine running the command.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.server, "server", "localhost:8086", "escrowd gRPC address")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "per command timeout")

	rootCmd.AddCommand(
		newKeygenCmd(),
		newAirdropCmd(flags),
		newCreateMintCmd(flags),
		newMintToCmd(flags),
		newMakeOfferCmd(flags),
		newExchangeCmd(flags),
		newOfferCmd(flags),
		newBalanceCmd(flags),
	)

	return rootCmd
}
