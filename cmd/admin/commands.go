package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/billing"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/metrics/counter"
)

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the purchasable plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PLAN\tPRICE\tCREDITS")
			for _, p := range billing.Plans() {
				fmt.Fprintf(w, "%s\t%d\t%d\n", p.Key, p.Price, p.Credits)
			}
			return w.Flush()
		},
	}
}

func creditsCmd(open func() (*billing.Service, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "credits [user-id]",
		Short: "Show the credit balance of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			balance, err := svc.CreditBalance(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: %d credits\n", userID, balance)
			return nil
		},
	}
}

func transactionsCmd(open func() (*billing.Service, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "transactions [user-id]",
		Short: "List the transactions of a user, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			txs, err := svc.Transactions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printTransactions(cmd, txs)
		},
	}
}

func pendingCmd(open func() (*billing.Service, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List PENDING transactions that were never settled",
		Long: `List PENDING transactions older than --older-than.

These are purchases whose provider callback never reached the service, or
whose settlement failed after the provider charged the customer. They need
to be reconciled against the provider dashboard by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := cmd.Flags().GetDuration("older-than")
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			txs, err := svc.StalePending(cmd.Context(), age)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stale pending transactions")
				return nil
			}
			return printTransactions(cmd, txs)
		},
	}

	cmd.Flags().Duration("older-than", time.Hour, "Minimum age of a pending transaction")

	return cmd
}

func statsCmd(openCounters func() (*counter.Counters, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show purchase outcome counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, err := cmd.Flags().GetBool("reset")
			if err != nil {
				return err
			}
			counters, err := openCounters()
			if err != nil {
				return err
			}

			var counts map[string]int64
			if reset {
				counts, err = counters.Drain(cmd.Context())
			} else {
				counts, err = counters.Snapshot(cmd.Context())
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COUNTER\tVALUE")
			for _, name := range counter.Names(counts) {
				fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("reset", false, "Reset the counters after reading them")

	return cmd
}

func printTransactions(cmd *cobra.Command, txs []models.Transaction) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tPROVIDER\tPLAN\tAMOUNT\tORDER\tSTATUS\tCREATED")
	for _, t := range txs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			t.ID, t.UserID, t.Provider, t.Plan,
			billing.DisplayAmount(t.Amount, t.Currency), t.Currency,
			t.OrderID, t.Status, t.CreatedAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}

func parseUserID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return uint(id), nil
}
