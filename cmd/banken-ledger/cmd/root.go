// Package cmd provides CLI commands for banken-ledger.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "banken-ledger",
	Short: "Post bank statements to a double-entry ledger",
	Long: `banken-ledger transforms downloaded bank statement rows into
balanced double-entry ledger postings.

It supports:
- Inferring the contra account from chart configuration, SEPA
  identifier history, and posting-text history
- Incremental, idempotent posting guarded by statement links
- Reconciling the ledger balance against the bank's closing balance

Example:
  banken-ledger post --iban DE02120300000000202051
  banken-ledger stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(statsCmd)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
