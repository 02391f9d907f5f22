package main

import (
	"encoding/json"
	"fmt"

	"github.com/chris/prepaid-credit-ledger/pkg/bootstrap"
	"github.com/chris/prepaid-credit-ledger/pkg/config"
	"github.com/chris/prepaid-credit-ledger/pkg/logger"
	"github.com/spf13/cobra"
)

// app is built once per invocation, before any subcommand runs.
var app *bootstrap.App

var rootCmd = &cobra.Command{
	Use:   "creditctl",
	Short: "Operate the prepaid credit ledger",
	Long: `creditctl inspects organization balances and ledgers, and runs the
operator tasks of the settlement engine: ingesting bank deposits, running the
auto-match sweep, expiring charge orders and granting bonus credit.

Configuration is read from the environment (and .env) like the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		app, err = bootstrap.New(cmd.Context(), cfg, logger.New(cfg.LogLevel))
		if err != nil {
			return fmt.Errorf("failed to bootstrap: %w", err)
		}
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
