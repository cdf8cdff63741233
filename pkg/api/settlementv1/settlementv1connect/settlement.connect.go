package settlementv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	settlementv1 "github.com/floroz/buynow/pkg/api/settlementv1"
)

// SettlementServiceName is the fully-qualified name of the SettlementService service.
const SettlementServiceName = "buynow.settlement.v1.SettlementService"

// Procedure paths of SettlementService
const (
	SettlementServiceInitializeProcedure = "/buynow.settlement.v1.SettlementService/Initialize"
	SettlementServiceClaimProcedure      = "/buynow.settlement.v1.SettlementService/Claim"
	SettlementServiceGetAuctionProcedure = "/buynow.settlement.v1.SettlementService/GetAuction"
	SettlementServiceDepositProcedure    = "/buynow.settlement.v1.SettlementService/Deposit"
	SettlementServiceGetBalanceProcedure = "/buynow.settlement.v1.SettlementService/GetBalance"
)

// SettlementServiceClient is a client for the buynow.settlement.v1.SettlementService service.
type SettlementServiceClient interface {
	Initialize(context.Context, *connect.Request[settlementv1.InitializeRequest]) (*connect.Response[settlementv1.InitializeResponse], error)
	Claim(context.Context, *connect.Request[settlementv1.ClaimRequest]) (*connect.Response[settlementv1.ClaimResponse], error)
	GetAuction(context.Context, *connect.Request[settlementv1.GetAuctionRequest]) (*connect.Response[settlementv1.GetAuctionResponse], error)
	Deposit(context.Context, *connect.Request[settlementv1.DepositRequest]) (*connect.Response[settlementv1.DepositResponse], error)
	GetBalance(context.Context, *connect.Request[settlementv1.GetBalanceRequest]) (*connect.Response[settlementv1.GetBalanceResponse], error)
}

// NewSettlementServiceClient constructs a client. The JSON codec is always installed.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SettlementServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &settlementServiceClient{
		initialize: connect.NewClient[settlementv1.InitializeRequest, settlementv1.InitializeResponse](
			httpClient, baseURL+SettlementServiceInitializeProcedure, opts...,
		),
		claim: connect.NewClient[settlementv1.ClaimRequest, settlementv1.ClaimResponse](
			httpClient, baseURL+SettlementServiceClaimProcedure, opts...,
		),
		getAuction: connect.NewClient[settlementv1.GetAuctionRequest, settlementv1.GetAuctionResponse](
			httpClient, baseURL+SettlementServiceGetAuctionProcedure, opts...,
		),
		deposit: connect.NewClient[settlementv1.DepositRequest, settlementv1.DepositResponse](
			httpClient, baseURL+SettlementServiceDepositProcedure, opts...,
		),
		getBalance: connect.NewClient[settlementv1.GetBalanceRequest, settlementv1.GetBalanceResponse](
			httpClient, baseURL+SettlementServiceGetBalanceProcedure, opts...,
		),
	}
}

type settlementServiceClient struct {
	initialize *connect.Client[settlementv1.InitializeRequest, settlementv1.InitializeResponse]
	claim      *connect.Client[settlementv1.ClaimRequest, settlementv1.ClaimResponse]
	getAuction *connect.Client[settlementv1.GetAuctionRequest, settlementv1.GetAuctionResponse]
	deposit    *connect.Client[settlementv1.DepositRequest, settlementv1.DepositResponse]
	getBalance *connect.Client[settlementv1.GetBalanceRequest, settlementv1.GetBalanceResponse]
}

func (c *settlementServiceClient) Initialize(ctx context.Context, req *connect.Request[settlementv1.InitializeRequest]) (*connect.Response[settlementv1.InitializeResponse], error) {
	return c.initialize.CallUnary(ctx, req)
}

func (c *settlementServiceClient) Claim(ctx context.Context, req *connect.Request[settlementv1.ClaimRequest]) (*connect.Response[settlementv1.ClaimResponse], error) {
	return c.claim.CallUnary(ctx, req)
}

func (c *settlementServiceClient) GetAuction(ctx context.Context, req *connect.Request[settlementv1.GetAuctionRequest]) (*connect.Response[settlementv1.GetAuctionResponse], error) {
	return c.getAuction.CallUnary(ctx, req)
}

func (c *settlementServiceClient) Deposit(ctx context.Context, req *connect.Request[settlementv1.DepositRequest]) (*connect.Response[settlementv1.DepositResponse], error) {
	return c.deposit.CallUnary(ctx, req)
}

func (c *settlementServiceClient) GetBalance(ctx context.Context, req *connect.Request[settlementv1.GetBalanceRequest]) (*connect.Response[settlementv1.GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

// SettlementServiceHandler is an implementation of the buynow.settlement.v1.SettlementService service.
type SettlementServiceHandler interface {
	Initialize(context.Context, *connect.Request[settlementv1.InitializeRequest]) (*connect.Response[settlementv1.InitializeResponse], error)
	Claim(context.Context, *connect.Request[settlementv1.ClaimRequest]) (*connect.Response[settlementv1.ClaimResponse], error)
	GetAuction(context.Context, *connect.Request[settlementv1.GetAuctionRequest]) (*connect.Response[settlementv1.GetAuctionResponse], error)
	Deposit(context.Context, *connect.Request[settlementv1.DepositRequest]) (*connect.Response[settlementv1.DepositResponse], error)
	GetBalance(context.Context, *connect.Request[settlementv1.GetBalanceRequest]) (*connect.Response[settlementv1.GetBalanceResponse], error)
}

// NewSettlementServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	initialize := connect.NewUnaryHandler(SettlementServiceInitializeProcedure, svc.Initialize, opts...)
	claim := connect.NewUnaryHandler(SettlementServiceClaimProcedure, svc.Claim, opts...)
	getAuction := connect.NewUnaryHandler(SettlementServiceGetAuctionProcedure, svc.GetAuction, opts...)
	deposit := connect.NewUnaryHandler(SettlementServiceDepositProcedure, svc.Deposit, opts...)
	getBalance := connect.NewUnaryHandler(SettlementServiceGetBalanceProcedure, svc.GetBalance, opts...)

	return "/" + SettlementServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SettlementServiceInitializeProcedure:
			initialize.ServeHTTP(w, r)
		case SettlementServiceClaimProcedure:
			claim.ServeHTTP(w, r)
		case SettlementServiceGetAuctionProcedure:
			getAuction.ServeHTTP(w, r)
		case SettlementServiceDepositProcedure:
			deposit.ServeHTTP(w, r)
		case SettlementServiceGetBalanceProcedure:
			getBalance.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
