package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
)

func creditsCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and adjust credit balances",
	}
	cmd.AddCommand(creditsGetCmd(open))
	cmd.AddCommand(creditsGrantCmd(open))
	cmd.AddCommand(creditsCreateCmd(open))
	return cmd
}

func creditsGetCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "get [subject]",
		Short: "Print the balance of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			account, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subject: %s\n", account.Subject)
			if account.Email != "" {
				fmt.Fprintf(out, "Email:   %s\n", account.Email)
			}
			fmt.Fprintf(out, "Credits: %d\n", account.Credits)
			return nil
		},
	}
}

func creditsGrantCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant [subject] [credits]",
		Short: "Add credits to an existing account",
		Long: `Add credits to an existing account, e.g. for a purchase whose webhook
never arrived. With --reference the grant is applied at most once: pass the
checkout session id to make it safe against a late webhook delivery.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("credits must be a positive integer, got %q", args[1])
			}
			reference, _ := cmd.Flags().GetString("reference")

			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			balance, err := store.IncrementIfExists(cmd.Context(), args[0], amount, reference)
			if err != nil {
				return fmt.Errorf("grant %d to %s: %w", amount, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %d credits to %s, balance now %d\n", amount, args[0], balance)
			return nil
		},
	}
	cmd.Flags().StringP("reference", "r", "", "Idempotency reference, e.g. a checkout session id")
	return cmd
}

func creditsCreateCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [subject]",
		Short: "Open a credit account for a subject that has none",
		Long: `Open a credit account for a subject that exists in the identity provider
but whose account record was never written, e.g. after a store outage during
sign-up. An existing account is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			initial, _ := cmd.Flags().GetInt64("credits")
			if initial < 0 {
				return fmt.Errorf("credits must not be negative, got %d", initial)
			}

			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			err = store.Create(cmd.Context(), credits.Account{Subject: args[0], Email: email, Credits: initial})
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s with %d credits\n", args[0], initial)
			return nil
		},
	}
	cmd.Flags().StringP("email", "e", "", "Email address recorded with the account")
	cmd.Flags().Int64("credits", 0, "Opening balance")
	return cmd
}
