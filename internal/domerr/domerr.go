// Package domerr is the engine's error taxonomy. Expected business
// failures are sentinel *Error values compared with errors.Is and
// wrapped with %w where call sites add context; only storage-level
// surprises propagate as plain errors, which callers treat as fatal
// for that request.
package domerr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInsufficientBudget
	KindAuctionClosed
	KindInternal
)

// Error carries a machine-readable code alongside the kind. Codes are
// stable strings consumed by clients and tests.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

var (
	ErrInvalidAmount = New(KindValidation, "INVALID_AMOUNT", "bid amount must be a positive integer")
	ErrInvalidReason = New(KindValidation, "INVALID_REASON", "reason must be at least 10 characters")
	ErrInvalidInput  = New(KindValidation, "INVALID_INPUT", "invalid input")

	ErrAuctionNotFound = New(KindNotFound, "AUCTION_NOT_FOUND", "auction not found")
	ErrSessionNotFound = New(KindNotFound, "SESSION_NOT_FOUND", "session not found")
	ErrPlayerNotFound  = New(KindNotFound, "PLAYER_NOT_FOUND", "player not found")
	ErrAppealNotFound  = New(KindNotFound, "APPEAL_NOT_FOUND", "appeal not found")
	ErrOfferNotFound   = New(KindNotFound, "OFFER_NOT_FOUND", "steal offer not found")

	ErrAuctionNotActive = New(KindAuctionClosed, "AUCTION_NOT_ACTIVE", "auction is not active")
	ErrBidTooLow        = New(KindConflict, "BID_TOO_LOW", "bid must exceed the current price")
	ErrConcurrentBid    = New(KindConflict, "CONCURRENT_BID", "another bid committed first, retry")
	ErrAuctionExists    = New(KindConflict, "AUCTION_ALREADY_ACTIVE", "session already has an active auction")
	ErrAppealExists     = New(KindConflict, "APPEAL_ALREADY_EXISTS", "auction already has an appeal")
	ErrAppealResolved   = New(KindConflict, "APPEAL_ALREADY_RESOLVED", "appeal is already resolved")
	ErrOfferExists      = New(KindConflict, "OFFER_ALREADY_EXISTS", "player already has an open steal offer")
	ErrOfferNotOpen     = New(KindConflict, "OFFER_NOT_OPEN", "steal offer is not open")
	ErrSessionClosed    = New(KindConflict, "SESSION_NOT_ACTIVE", "session does not accept auctions in this phase")
	ErrPlayerTaken      = New(KindConflict, "PLAYER_TAKEN", "player is already on a roster")

	ErrForbidden          = New(KindForbidden, "FORBIDDEN", "not allowed")
	ErrInsufficientBudget = New(KindInsufficientBudget, "INSUFFICIENT_BUDGET", "budget is not sufficient for this amount")
	ErrNoSlotAvailable    = New(KindInsufficientBudget, "NO_SLOT_AVAILABLE", "no roster slot available for this player")
)

// KindOf extracts the Kind from err, unwrapping as needed.
// Unrecognised errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf extracts the stable code, or "INTERNAL" for plain errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}

// HTTPStatus maps the taxonomy onto the status codes the REST layer
// uses: NotFound 404, Conflict 409, Validation 400, Forbidden 403,
// InsufficientBudget 400, AuctionClosed 409.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInsufficientBudget:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindAuctionClosed:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
