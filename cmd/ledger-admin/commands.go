package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/spf13/cobra"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/config"
)

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of contents and payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.Service.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, stats)
			}
			fmt.Fprintf(out, "Contents: %d\n", stats.ContentCount)
			fmt.Fprintf(out, "Payments: %d\n", stats.PaymentCount)
			return nil
		},
	}
}

// NewContentsCommand creates the contents command
func NewContentsCommand() *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "contents [content-id]",
		Short: "Show one content item or list a creator's content",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (creator != "") {
				return errors.New("give either a content id or --creator")
			}

			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var contents []*ledger.ContentRegistration
			if len(args) == 1 {
				content, err := rt.Service.GetContent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				contents = append(contents, content)
			} else {
				contents, err = rt.Service.GetContentByCreator(cmd.Context(), ledger.Identity(creator))
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, contents)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATOR\tTITLE\tPRICE (ICP)\tSALES\tREVENUE (ICP)\tACTIVE\tCREATED")
			for _, c := range contents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%t\t%s\n",
					c.ID, c.Creator, truncate(c.Title, 30),
					ledger.FormatICP(c.PriceE8s), c.TotalSales, ledger.FormatICP(c.TotalRevenue),
					c.IsActive, c.CreatedAt.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %d\n", len(contents))
			return nil
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "list content registered by this identity")
	return cmd
}

// NewPaymentsCommand creates the payments command
func NewPaymentsCommand() *cobra.Command {
	var buyer, contentID string

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments by buyer or for a content item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (buyer == "") == (contentID == "") {
				return errors.New("give exactly one of --buyer or --content")
			}

			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var payments []*ledger.PaymentRecord
			if buyer != "" {
				payments, err = rt.Service.GetPaymentsByBuyer(cmd.Context(), ledger.Identity(buyer))
			} else {
				payments, err = rt.Service.GetPaymentsForContent(cmd.Context(), contentID)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, payments)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCONTENT\tBUYER\tCREATOR\tAMOUNT (ICP)\tTRANSACTION\tTIMESTAMP")
			var total uint64
			for _, p := range payments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.ContentID, p.Buyer, p.Creator,
					ledger.FormatICP(p.AmountE8s), truncate(p.TransactionHash, 16),
					p.Timestamp.Format(time.RFC3339))
				total += p.AmountE8s
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %d payments, %s ICP\n", len(payments), ledger.FormatICP(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&buyer, "buyer", "", "list payments made by this identity")
	cmd.Flags().StringVar(&contentID, "content", "", "list payments for this content id")
	return cmd
}

// NewPurchasedCommand creates the purchased command
func NewPurchasedCommand() *cobra.Command {
	var buyer, contentID string

	cmd := &cobra.Command{
		Use:   "purchased",
		Short: "Check whether a buyer has paid for a content item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			purchased, err := rt.Service.HasPurchasedContent(cmd.Context(), ledger.Identity(buyer), contentID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, map[string]bool{"purchased": purchased})
			}
			fmt.Fprintln(out, purchased)
			return nil
		},
	}

	cmd.Flags().StringVar(&buyer, "buyer", "", "buyer identity")
	cmd.Flags().StringVar(&contentID, "content", "", "content id")
	cmd.MarkFlagRequired("buyer")
	cmd.MarkFlagRequired("content")
	return cmd
}

// NewSummaryCommand creates the summary command
func NewSummaryCommand() *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a creator's upload and earnings totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.Service.GetCreatorSummary(cmd.Context(), ledger.Identity(creator))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, summary)
			}
			fmt.Fprintf(out, "Creator:  %s\n", summary.Creator)
			fmt.Fprintf(out, "Uploads:  %d (%d active)\n", summary.ContentCount, summary.ActiveCount)
			fmt.Fprintf(out, "Sales:    %d\n", summary.TotalSales)
			fmt.Fprintf(out, "Earnings: %s ICP\n", ledger.FormatICP(summary.TotalRevenueE8s))
			return nil
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "creator identity")
	cmd.MarkFlagRequired("creator")
	return cmd
}

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an identity",
		Long: `Mint an HS256 bearer token signed with JWT_SECRET. The token subject
becomes the caller identity of API requests that present it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ledger.Identity(subject).IsAnonymous() {
				return errors.New("--subject must not be the anonymous identity")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			claims := map[string]interface{}{"sub": subject}
			jwtauth.SetIssuedNow(claims)
			if ttl > 0 {
				jwtauth.SetExpiryIn(claims, ttl)
			}

			_, signed, err := cfg.TokenAuth(nil).Encode(claims)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "identity to embed as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.MarkFlagRequired("subject")
	return cmd
}

// NewEnvCommand creates the env command
func NewEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the environment variables read by the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.EnvUsage())
			return nil
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
