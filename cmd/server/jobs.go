package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(taxSweepCmd)
	rootCmd.AddCommand(expireRolesCmd)
	taxSweepCmd.Flags().Bool("memory", false, "Use in-memory storage instead of MySQL")
	expireRolesCmd.Flags().Bool("memory", false, "Use in-memory storage instead of MySQL")
}

var taxSweepCmd = &cobra.Command{
	Use:   "tax-sweep",
	Short: "Collect this month's tax for every guild once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		inMemory, _ := cmd.Flags().GetBool("memory")
		return runOnce(cmd.Context(), inMemory, func(ctx context.Context, a *app) error {
			results, err := a.services.treasury.CollectAll(ctx, time.Now())
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tskipped (%s)\n", r.GuildID, r.Period, r.Reason)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d wallets\n", r.GuildID, r.Period, formatCollected(r.Collected), r.Wallets)
			}
			return nil
		})
	},
}

var expireRolesCmd = &cobra.Command{
	Use:   "expire-roles",
	Short: "Revoke role grants whose expiry has passed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		inMemory, _ := cmd.Flags().GetBool("memory")
		return runOnce(cmd.Context(), inMemory, func(ctx context.Context, a *app) error {
			resp, err := a.services.ticket.ExpireRoleGrants(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d, failures %d\n", resp.Revoked, resp.Failures)
			return nil
		})
	},
}

func runOnce(ctx context.Context, inMemory bool, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx, inMemory)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func formatCollected(collected map[string]uint64) string {
	currencies := make([]string, 0, len(collected))
	for c := range collected {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	parts := make([]string, 0, len(currencies))
	for _, c := range currencies {
		parts = append(parts, fmt.Sprintf("%s=%d", c, collected[c]))
	}
	return strings.Join(parts, ",")
}
