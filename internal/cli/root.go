// Package cli implements settlectl, the command line client of the settlement service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/floroz/buynow/pkg/api/settlementv1/settlementv1connect"
	"github.com/floroz/buynow/pkg/auth"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format      string // "json" | "text"
	Addr        string
	Token       string
	OperatorKey string
	Timeout     time.Duration

	httpClient connect.HTTPClient
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for settlectl.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlectl",
		Short: "settlectl - buy now auction settlement client",
		Long:  "Create fixed-price auctions, claim them and inspect ledger balances on a settlement service.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", envOr("SETTLECTL_ADDR", "http://localhost:8080"), "settlement service base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("SETTLECTL_TOKEN"), "bearer access token")
	cmd.PersistentFlags().StringVar(&opts.OperatorKey, "operator-key", os.Getenv("SETTLECTL_OPERATOR_KEY"), "operator key for privileged calls")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewClaimCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewDepositCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewHashKeyCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// Execute runs settlectl with args and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, httpClient connect.HTTPClient) int {
	opts := &RootOptions{httpClient: httpClient}
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr}
	_ = f.Error(err)
	return GetExitCode(err)
}

func (o *RootOptions) client() settlementv1connect.SettlementServiceClient {
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return settlementv1connect.NewSettlementServiceClient(httpClient, o.Addr)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
}

func (o *RootOptions) callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.Timeout)
}

// newRequest attaches the credentials from the global flags
func newRequest[T any](o *RootOptions, msg *T) *connect.Request[T] {
	r := connect.NewRequest(msg)
	if o.Token != "" {
		r.Header().Set("Authorization", "Bearer "+o.Token)
	}
	if o.OperatorKey != "" {
		r.Header().Set(auth.OperatorKeyHeader, o.OperatorKey)
	}
	return r
}

// rpcError keeps the server's code and message, anything else is a command error
func rpcError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return &ExitError{Code: ExitFailure, Message: connectErr.Message(), Err: err, rpcCode: connectErr.Code()}
	}
	return WrapExitError(ExitCommandError, "request failed", err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
