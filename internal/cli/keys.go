package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/floroz/buynow/pkg/auth"
)

// NewHashKeyCommand creates the hash-key command.
func NewHashKeyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an operator key for OPERATOR_KEY_HASH",
		Long: `Hash an operator key with argon2id. The key is read from stdin when not given.

Example:
  echo -n "$KEY" | settlectl hash-key`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return WrapExitError(ExitCommandError, "failed to read key", err)
				}
				key = strings.TrimRight(line, "\r\n")
			}
			if key == "" {
				return NewExitError(ExitCommandError, "key is empty")
			}

			hash, err := auth.HashSecret(key)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to hash key", err)
			}
			return opts.formatter(cmd).Success(map[string]string{"hash": hash}, func(w io.Writer) {
				fmt.Fprintln(w, hash)
			})
		},
	}
}

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	PrivateKey  string
	PublicKey   string
	Issuer      string
	Account     string
	Permissions []string
	TTL         time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token from a local key pair (development)",
		Long: `Issue an RS256 access token signed with a local key pair.

Example:
  settlectl token --private-key keys/private.pem --public-key keys/public.pem --account $ID`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PrivateKey, "private-key", "", "PEM private key path")
	cmd.Flags().StringVar(&opts.PublicKey, "public-key", "", "PEM public key path")
	cmd.Flags().StringVar(&opts.Issuer, "issuer", "buynow-auth", "token issuer")
	cmd.Flags().StringVar(&opts.Account, "account", "", "account ID (generated when empty)")
	cmd.Flags().StringSliceVar(&opts.Permissions, "permission", nil, "granted permission, repeatable")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultAccessTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("private-key")
	_ = cmd.MarkFlagRequired("public-key")

	return cmd
}

func runToken(cmd *cobra.Command, opts *TokenOptions) error {
	privPEM, err := os.ReadFile(opts.PrivateKey)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read private key", err)
	}
	pubPEM, err := os.ReadFile(opts.PublicKey)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read public key", err)
	}
	signer, err := auth.NewSigner(privPEM, pubPEM, opts.Issuer)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid key pair", err)
	}

	accountID := uuid.New()
	if opts.Account != "" {
		if accountID, err = uuid.Parse(opts.Account); err != nil {
			return WrapExitError(ExitCommandError, "invalid --account", err)
		}
	}

	token, err := signer.IssueToken(accountID, opts.Permissions, opts.TTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to issue token", err)
	}
	return opts.formatter(cmd).Success(map[string]string{"account_id": accountID.String(), "token": token}, func(w io.Writer) {
		fmt.Fprintln(w, token)
	})
}
