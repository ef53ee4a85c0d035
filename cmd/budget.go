package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show the current period's spend against the monthly cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		b, err := env.ledger.Current(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(budgetView(b))
	},
}

var budgetInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Materialize the current period's budget row",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		b, err := env.ledger.Current(ctx)
		if err != nil {
			return err
		}

		cmd.Printf("budget period %s initialized (limit $%.2f)\n", b.Period, b.MonthlyLimitUSD)
		return nil
	},
}

func init() {
	budgetCmd.AddCommand(budgetInitCmd)
	rootCmd.AddCommand(budgetCmd)
}
