package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"claims-portal/internal/fraud"
	"claims-portal/internal/seed"
	"claims-portal/internal/view"
)

func loadFixture(cmd *cobra.Command) (seed.Fixture, error) {
	path, _ := cmd.Flags().GetString("seed")
	return seed.Load(path)
}

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the identities that can log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := loadFixture(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-18s %-9s %-28s %s\n", "ID", "ROLE", "EMAIL", "NAME")
			for _, u := range fx.Users {
				fmt.Fprintf(out, "%-18s %-9s %-28s %s\n", u.ID, u.Role, u.Email, u.Name)
			}
			return nil
		},
	}
}

func newFraudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fraud <claim-id>...",
		Short: "Print the fraud indicator for claim ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, id := range args {
				ind := fraud.Evaluate(id)
				fmt.Fprintf(out, "%-10s %-9s confidence %d%% (score %.4f)\n", id, ind.Label(), ind.Confidence, fraud.Score(id))
			}
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Show the claims every new session starts with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := loadFixture(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range fx.Claims {
				fmt.Fprintf(out, "%s  %-20s %-16s %-20s %s\n", c.ID, c.Status, c.PolicyholderName, c.ClaimType, view.FormatINR(c.ClaimedAmount))
				for _, d := range c.Documents {
					size := view.FormatSize(d.Size)
					if size == "" {
						size = "size unknown"
					}
					fmt.Fprintf(out, "    %s (%s)\n", d.Name, size)
				}
				if last, ok := c.LastUpdate(); ok && strings.TrimSpace(last.Notes) != "" {
					fmt.Fprintf(out, "    note: %s\n", last.Notes)
				}
			}
			return nil
		},
	}
}
