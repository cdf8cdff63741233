package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	settlementv1 "github.com/floroz/buynow/pkg/api/settlementv1"
)

// NewDepositCommand creates the deposit command.
func NewDepositCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <account-id> <amount>",
		Short: "Fund an account (operator only)",
		Long: `Fund an account. Requires --operator-key or a token with the ledger:deposit permission.

Example:
  settlectl deposit 7d3b0a2c-5e61-4f0a-8b0e-3c9f1d2e4a55 100000000000 --operator-key $KEY`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid amount", err)
			}

			ctx, cancel := opts.callContext(cmd)
			defer cancel()

			res, err := opts.client().Deposit(ctx, newRequest(opts, &settlementv1.DepositRequest{
				AccountID: args[0],
				Amount:    amount,
			}))
			if err != nil {
				return rpcError(err)
			}
			return opts.formatter(cmd).Success(res.Msg.Account, func(w io.Writer) {
				renderAccount(w, res.Msg.Account)
			})
		},
	}
}

// BalanceOptions holds flags for the balance command.
type BalanceOptions struct {
	*RootOptions
	History int
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance [account-id]",
		Short: "Show an account balance, the token's account by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := &settlementv1.GetBalanceRequest{HistoryLimit: opts.History}
			if len(args) == 1 {
				msg.AccountID = args[0]
			}

			ctx, cancel := opts.callContext(cmd)
			defer cancel()

			res, err := opts.client().GetBalance(ctx, newRequest(opts.RootOptions, msg))
			if err != nil {
				return rpcError(err)
			}
			return opts.formatter(cmd).Success(res.Msg, func(w io.Writer) {
				renderAccount(w, res.Msg.Account)
				renderEntries(w, res.Msg.Entries)
			})
		},
	}

	cmd.Flags().IntVar(&opts.History, "history", 0, "include the latest N ledger entries")

	return cmd
}
