// Package commands defines the graylake CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "graylake",
	Short: "Graylake SIEM backend",
	Long: `graylake is a multi-tenant log ingestion and security alerting
backend. It accepts events over an API-key-authenticated ingest endpoint,
runs detection rules against the stream, and serves the analyst API.`,
	Version: "0.1.0",
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, env vars override)")
}
