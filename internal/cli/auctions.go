package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	settlementv1 "github.com/floroz/buynow/pkg/api/settlementv1"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	AuctionID string
	ItemID    string
	Start     string
	End       string
	Duration  time.Duration
	Price     int64
	Reserve   int64
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an auction owned by the token's account",
		Long: `Create a fixed-price auction owned by the token's account.

Without --item a fresh item is minted and escrowed. The window starts at
--start (default now) and closes at --end, or --duration after the start.

Example:
  settlectl init --price 9999999 --duration 24h --reserve 5000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.AuctionID, "id", "", "auction ID (generated when empty)")
	cmd.Flags().StringVar(&opts.ItemID, "item", "", "escrow an item already held by the owner")
	cmd.Flags().StringVar(&opts.Start, "start", "", "window start, RFC3339 (default now)")
	cmd.Flags().StringVar(&opts.End, "end", "", "window end, RFC3339")
	cmd.Flags().DurationVar(&opts.Duration, "duration", time.Hour, "window length when --end is not set")
	cmd.Flags().Int64Var(&opts.Price, "price", 0, "fixed price")
	cmd.Flags().Int64Var(&opts.Reserve, "reserve", 0, "reserve price")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	startAt := time.Now().UTC()
	if opts.Start != "" {
		t, err := time.Parse(time.RFC3339, opts.Start)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --start", err)
		}
		startAt = t
	}
	endAt := startAt.Add(opts.Duration)
	if opts.End != "" {
		t, err := time.Parse(time.RFC3339, opts.End)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --end", err)
		}
		endAt = t
	}

	msg := &settlementv1.InitializeRequest{
		AuctionID: opts.AuctionID,
		ItemID:    opts.ItemID,
		StartAt:   startAt,
		EndAt:     endAt,
		Price:     opts.Price,
	}
	if cmd.Flags().Changed("reserve") {
		reserve := opts.Reserve
		msg.ReservePrice = &reserve
	}

	ctx, cancel := opts.callContext(cmd)
	defer cancel()

	res, err := opts.client().Initialize(ctx, newRequest(opts.RootOptions, msg))
	if err != nil {
		return rpcError(err)
	}
	return opts.formatter(cmd).Success(res.Msg.Auction, func(w io.Writer) {
		renderAuction(w, res.Msg.Auction)
	})
}

// ClaimOptions holds flags for the claim command.
type ClaimOptions struct {
	*RootOptions
	OwnerID         string
	PaymentSourceID string
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClaimOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claim <auction-id>",
		Short: "Buy an auction at its price",
		Long: `Buy an auction at its price with the token's account as purchaser.

Example:
  settlectl claim 2b0c7c1e-7a43-4d3e-9a57-5d1f0f3b8f11 --owner 7d3b...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.callContext(cmd)
			defer cancel()

			res, err := opts.client().Claim(ctx, newRequest(opts.RootOptions, &settlementv1.ClaimRequest{
				AuctionID:       args[0],
				OwnerID:         opts.OwnerID,
				PaymentSourceID: opts.PaymentSourceID,
			}))
			if err != nil {
				return rpcError(err)
			}
			return opts.formatter(cmd).Success(res.Msg.Auction, func(w io.Writer) {
				fmt.Fprintln(w, "Claimed.")
				renderAuction(w, res.Msg.Auction)
			})
		},
	}

	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "expected auction owner")
	cmd.Flags().StringVar(&opts.PaymentSourceID, "payment-source", "", "account to debit (default the purchaser)")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <auction-id>",
		Short: "Show an auction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.callContext(cmd)
			defer cancel()

			res, err := opts.client().GetAuction(ctx, newRequest(opts, &settlementv1.GetAuctionRequest{AuctionID: args[0]}))
			if err != nil {
				return rpcError(err)
			}
			return opts.formatter(cmd).Success(res.Msg.Auction, func(w io.Writer) {
				renderAuction(w, res.Msg.Auction)
			})
		},
	}
}
