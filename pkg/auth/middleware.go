package auth

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
)

type contextKey string

const (
	tokenHeader = "Authorization"
	tokenPrefix = "Bearer "

	// OperatorKeyHeader carries the plaintext operator key checked against OPERATOR_KEY_HASH
	OperatorKeyHeader = "X-Operator-Key"
)

const (
	AccountClaimsKey contextKey = "account_claims"
	AccountIDKey     contextKey = "account_id"
	OperatorKey      contextKey = "operator"
)

// PermissionLedgerDeposit allows funding accounts through the API
const PermissionLedgerDeposit = "ledger:deposit"

// NewAuthInterceptor authenticates every unary call with a bearer token.
// When operatorKeyHash is set, a matching X-Operator-Key header additionally
// marks the call as an operator call.
func NewAuthInterceptor(signer *Signer, operatorKeyHash string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get(tokenHeader)
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing authorization header"))
			}

			if !strings.HasPrefix(authHeader, tokenPrefix) {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid authorization header format"))
			}

			claims, err := signer.ValidateToken(strings.TrimPrefix(authHeader, tokenPrefix))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid or expired token"))
			}

			ctx = context.WithValue(ctx, AccountClaimsKey, claims)
			ctx = context.WithValue(ctx, AccountIDKey, claims.Subject)

			if key := req.Header().Get(OperatorKeyHeader); key != "" && operatorKeyHash != "" {
				ok, verr := VerifySecret(operatorKeyHash, key)
				if verr != nil || !ok {
					return nil, connect.NewError(connect.CodePermissionDenied, errors.New("invalid operator key"))
				}
				ctx = context.WithValue(ctx, OperatorKey, true)
			}

			return next(ctx, req)
		}
	}
}

// GetAccountClaims retrieves the full claims from the context
func GetAccountClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(AccountClaimsKey).(*Claims)
	return claims, ok
}

// GetAccountID retrieves the calling account ID from the context
func GetAccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok
}

// MustGetAccountID is for handlers mounted behind NewAuthInterceptor
func MustGetAccountID(ctx context.Context) string {
	id, ok := GetAccountID(ctx)
	if !ok {
		panic("auth: account id missing from context, is the interceptor installed?")
	}
	return id
}

// IsOperator reports whether the call presented a valid operator key
func IsOperator(ctx context.Context) bool {
	ok, _ := ctx.Value(OperatorKey).(bool)
	return ok
}

// CanDeposit reports whether the caller may fund ledger accounts
func CanDeposit(ctx context.Context) bool {
	if IsOperator(ctx) {
		return true
	}
	claims, ok := GetAccountClaims(ctx)
	return ok && claims.HasPermission(PermissionLedgerDeposit)
}
