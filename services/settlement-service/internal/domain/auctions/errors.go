package auctions

import (
	"errors"
	"time"
)

// Initialize errors
var (
	ErrInvalidWindow      = errors.New("start time must be before end time")
	ErrInvalidPrice       = errors.New("price must be positive and reserve must be within (0, price]")
	ErrAlreadyInitialized = errors.New("auction already initialized")
	ErrItemNotHeld        = errors.New("item is not held by the owner")
)

// Claim errors
var (
	ErrAlreadySettled    = errors.New("auction already settled")
	ErrWindowClosed      = errors.New("auction is outside its claim window")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOwnerMismatch     = errors.New("owner does not match auction")
	ErrOwnerCannotClaim  = errors.New("owner cannot claim their own auction")
)

var ErrAuctionNotFound = errors.New("auction not found")

// validateWindow checks that the window is non-empty
func validateWindow(startAt, endAt time.Time) error {
	if !startAt.Before(endAt) {
		return ErrInvalidWindow
	}
	return nil
}

// toStoredTime truncates t to the microsecond precision of a TIMESTAMPTZ column
func toStoredTime(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// validatePrice checks price > 0 and, when a reserve is set, 0 < reserve <= price
func validatePrice(price int64, reserve Reserve) error {
	if price <= 0 {
		return ErrInvalidPrice
	}
	if v, ok := reserve.Get(); ok && (v <= 0 || v > price) {
		return ErrInvalidPrice
	}
	return nil
}
