// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the picohost CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "picohost",
		Short: "Picohost - a small self-hosted media host",
		Long: `Picohost is a small self-hosted media host with cookie-based
session authentication backed by PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())

	return cmd
}
