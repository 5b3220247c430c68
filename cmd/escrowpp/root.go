package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Escrow++ CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escrowpp",
		Short: "Escrow++ - account and session service",
		Long: `Escrow++ is the account service for the Escrow++ card game:
registration, email verification, password reset, and session issuance.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
