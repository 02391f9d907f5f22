package main

import (
	"fmt"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/reconciliation"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(autoMatchCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(bonusCmd)

	autoMatchCmd.Flags().Int("limit", 0, "Maximum bank transactions to scan (default RECONCILIATION_SWEEP_LIMIT)")

	ingestCmd.Flags().String("bank", "", "Bank code")
	ingestCmd.Flags().String("account", "", "Receiving account number")
	ingestCmd.Flags().String("memo", "", "Printed content (depositor memo)")
	ingestCmd.Flags().String("occurred-at", "", "Deposit time, RFC 3339")

	bonusCmd.Flags().String("reference", "", "Reference making the grant idempotent")
	_ = bonusCmd.MarkFlagRequired("reference")
}

var balanceCmd = &cobra.Command{
	Use:   "balance ORGANIZATION_ID",
	Short: "Show an organization's balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bal, err := app.Coord.Balance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, bal)
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger ORGANIZATION_ID",
	Short: "List an organization's ledger entries, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := app.Store.ListLedgerEntries(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, entries)
	},
}

var autoMatchCmd = &cobra.Command{
	Use:   "automatch",
	Short: "Run one auto-match sweep over new bank transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = app.Config.SweepLimit
		}
		res, err := app.Matcher.AutoMatchOnce(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire pending charge orders past their deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := app.Orders.ExpireChargeOrders(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "expired %d charge orders\n", n)
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest EXTERNAL_ID AMOUNT",
	Short: "Record a bank deposit from the bank feed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var amount int64
		if _, err := fmt.Sscan(args[1], &amount); err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		in := reconciliation.IngestInput{ExternalID: args[0], TranAmt: amount}
		in.BankCode, _ = cmd.Flags().GetString("bank")
		in.AccountNumber, _ = cmd.Flags().GetString("account")
		in.PrintedContent, _ = cmd.Flags().GetString("memo")
		if s, _ := cmd.Flags().GetString("occurred-at"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid --occurred-at: %w", err)
			}
			in.OccurredAt = &t
		}

		tx, err := app.Matcher.IngestBankTransaction(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, tx)
	},
}

var bonusCmd = &cobra.Command{
	Use:   "bonus ORGANIZATION_ID AMOUNT",
	Short: "Grant bonus credit to an organization",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var amount int64
		if _, err := fmt.Sscan(args[1], &amount); err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		reference, _ := cmd.Flags().GetString("reference")
		res, err := app.Coord.GrantBonus(cmd.Context(), args[0], "", amount, reference)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}
