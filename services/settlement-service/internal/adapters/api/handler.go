package api

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	settlementv1 "github.com/floroz/buynow/pkg/api/settlementv1"
	"github.com/floroz/buynow/pkg/auth"
	pkgdb "github.com/floroz/buynow/pkg/database"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/auctions"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/ledger"
)

type SettlementServiceHandler struct {
	auctionService *auctions.Service
	ledgerService  *ledger.Service
}

func NewSettlementServiceHandler(auctionService *auctions.Service, ledgerService *ledger.Service) *SettlementServiceHandler {
	return &SettlementServiceHandler{
		auctionService: auctionService,
		ledgerService:  ledgerService,
	}
}

// callerID reads the account ID placed in the context by the auth interceptor
func callerID(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.MustGetAccountID(ctx))
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInternal, errors.New("invalid account_id in token"))
	}
	return id, nil
}

// parseOptionalID returns uuid.Nil for an empty string
func parseOptionalID(field, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid "+field))
	}
	return id, nil
}

func parseRequiredID(field, s string) (uuid.UUID, error) {
	id, err := parseOptionalID(field, s)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, errors.New(field+" is required"))
	}
	return id, nil
}

func (h *SettlementServiceHandler) Initialize(
	ctx context.Context,
	req *connect.Request[settlementv1.InitializeRequest],
) (*connect.Response[settlementv1.InitializeResponse], error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	auctionID, err := parseOptionalID("auction_id", req.Msg.AuctionID)
	if err != nil {
		return nil, err
	}
	itemID, err := parseOptionalID("item_id", req.Msg.ItemID)
	if err != nil {
		return nil, err
	}

	auction, err := h.auctionService.Initialize(ctx, auctions.InitializeCommand{
		AuctionID: auctionID,
		OwnerID:   ownerID,
		ItemID:    itemID,
		StartAt:   req.Msg.StartAt,
		EndAt:     req.Msg.EndAt,
		Price:     req.Msg.Price,
		Reserve:   auctions.ReserveFromPtr(req.Msg.ReservePrice),
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&settlementv1.InitializeResponse{Auction: mapAuctionToWire(auction)}), nil
}

func (h *SettlementServiceHandler) Claim(
	ctx context.Context,
	req *connect.Request[settlementv1.ClaimRequest],
) (*connect.Response[settlementv1.ClaimResponse], error) {
	purchaserID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	auctionID, err := parseRequiredID("auction_id", req.Msg.AuctionID)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseOptionalID("owner_id", req.Msg.OwnerID)
	if err != nil {
		return nil, err
	}
	sourceID, err := parseOptionalID("payment_source_id", req.Msg.PaymentSourceID)
	if err != nil {
		return nil, err
	}

	// Paying from another account is an operator action
	if sourceID != uuid.Nil && sourceID != purchaserID && !auth.IsOperator(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("payment source must be the caller"))
	}

	auction, err := h.auctionService.Claim(ctx, auctions.ClaimCommand{
		AuctionID:       auctionID,
		PurchaserID:     purchaserID,
		OwnerID:         ownerID,
		PaymentSourceID: sourceID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&settlementv1.ClaimResponse{Auction: mapAuctionToWire(auction)}), nil
}

func (h *SettlementServiceHandler) GetAuction(
	ctx context.Context,
	req *connect.Request[settlementv1.GetAuctionRequest],
) (*connect.Response[settlementv1.GetAuctionResponse], error) {
	auctionID, err := parseRequiredID("auction_id", req.Msg.AuctionID)
	if err != nil {
		return nil, err
	}

	auction, err := h.auctionService.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&settlementv1.GetAuctionResponse{Auction: mapAuctionToWire(auction)}), nil
}

func (h *SettlementServiceHandler) Deposit(
	ctx context.Context,
	req *connect.Request[settlementv1.DepositRequest],
) (*connect.Response[settlementv1.DepositResponse], error) {
	if !auth.CanDeposit(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("deposit requires an operator key or the ledger:deposit permission"))
	}
	accountID, err := parseRequiredID("account_id", req.Msg.AccountID)
	if err != nil {
		return nil, err
	}

	account, err := h.ledgerService.Deposit(ctx, ledger.DepositCommand{AccountID: accountID, Amount: req.Msg.Amount})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&settlementv1.DepositResponse{Account: mapAccountToWire(account)}), nil
}

func (h *SettlementServiceHandler) GetBalance(
	ctx context.Context,
	req *connect.Request[settlementv1.GetBalanceRequest],
) (*connect.Response[settlementv1.GetBalanceResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	accountID, err := parseOptionalID("account_id", req.Msg.AccountID)
	if err != nil {
		return nil, err
	}
	if accountID == uuid.Nil {
		accountID = caller
	}
	if accountID != caller && !auth.CanDeposit(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("cannot read another account"))
	}

	account, err := h.ledgerService.Balance(ctx, accountID)
	if err != nil {
		return nil, toConnectError(err)
	}

	res := &settlementv1.GetBalanceResponse{Account: mapAccountToWire(account)}
	if req.Msg.HistoryLimit > 0 {
		entries, histErr := h.ledgerService.History(ctx, accountID, req.Msg.HistoryLimit)
		if histErr != nil {
			return nil, toConnectError(histErr)
		}
		for _, e := range entries {
			res.Entries = append(res.Entries, mapEntryToWire(e))
		}
	}

	return connect.NewResponse(res), nil
}

// toConnectError maps domain errors to connect codes
func toConnectError(err error) error {
	switch {
	case errors.Is(err, auctions.ErrInvalidWindow),
		errors.Is(err, auctions.ErrInvalidPrice),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAccount):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auctions.ErrAlreadyInitialized):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auctions.ErrAuctionNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, auctions.ErrAlreadySettled),
		errors.Is(err, auctions.ErrWindowClosed),
		errors.Is(err, auctions.ErrInsufficientFunds),
		errors.Is(err, auctions.ErrItemNotHeld):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, auctions.ErrOwnerMismatch),
		errors.Is(err, auctions.ErrOwnerCannotClaim):
		return connect.NewError(connect.CodePermissionDenied, err)
	case pkgdb.IsLockTimeout(err):
		return connect.NewError(connect.CodeUnavailable, errors.New("auction is busy, retry"))
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
