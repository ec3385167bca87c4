// Package store declares the transactional contract the auction
// engine requires from persistence. PlaceBid is the one operation
// that must be atomic: either the bid becomes the winning bid and the
// timer resets, or nothing is visible to any other reader.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fantasta/internal/domain"
)

// AuctionFilter narrows FindMany. Zero values mean "any".
type AuctionFilter struct {
	SessionID int64
	Status    domain.AuctionStatus
	Limit     int
	Offset    int
}

// BidPlacement is the outcome of the atomic bid step. PreviousWinnerID
// is non-nil when an earlier winning bid was superseded, so callers
// can notify the outbid member.
type BidPlacement struct {
	Bid              domain.Bid
	PreviousWinnerID *int64
}

type AuctionStore interface {
	Create(ctx context.Context, a *domain.Auction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	FindActiveBySession(ctx context.Context, sessionID int64) (*domain.Auction, error)
	FindMany(ctx context.Context, f AuctionFilter) ([]domain.Auction, error)

	// PlaceBid runs the whole acceptance as one serializable unit:
	// load-and-lock the auction, validate status and price, flip the
	// previous winning bid, insert the new one, advance price/winner
	// and reset the timer to expiresAt. Failures are the sentinel
	// errors domerr.ErrAuctionNotFound, ErrAuctionNotActive,
	// ErrBidTooLow and ErrConcurrentBid.
	PlaceBid(ctx context.Context, auctionID uuid.UUID, bidderID int64, amount int, expiresAt time.Time) (*BidPlacement, error)

	// Close freezes winner and price and moves ACTIVE -> CLOSED.
	// A non-ACTIVE auction fails with ErrAuctionNotActive.
	Close(ctx context.Context, id uuid.UUID, closedAt time.Time) (*domain.Auction, error)
	// Cancel moves ACTIVE -> CANCELLED under the same guard.
	Cancel(ctx context.Context, id uuid.UUID, closedAt time.Time) (*domain.Auction, error)
	ResetTimer(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AuctionStatus) error

	ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
	WinningBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error)
}

type AppealStore interface {
	// CreateAppeal fails with domerr.ErrAppealExists when the auction
	// already has one; first creation wins.
	CreateAppeal(ctx context.Context, a *domain.Appeal) error
	FindAppealByAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Appeal, error)
	// ResolveAppeal transitions PENDING to a terminal status exactly
	// once; a second resolution fails with ErrAppealResolved.
	ResolveAppeal(ctx context.Context, id uuid.UUID, status domain.AppealStatus, resolution string, resolvedAt time.Time) (*domain.Appeal, error)
}

type StealStore interface {
	// CreateOffer fails with domerr.ErrOfferExists when the player
	// already has an OPEN offer in the session.
	CreateOffer(ctx context.Context, o *domain.StealOffer) error
	FindOffer(ctx context.Context, id uuid.UUID) (*domain.StealOffer, error)
	ListOffers(ctx context.Context, sessionID int64) ([]domain.StealOffer, error)
	// MarkOffer moves an OPEN offer to a terminal status; anything
	// else fails with ErrOfferNotOpen.
	MarkOffer(ctx context.Context, id uuid.UUID, status domain.StealOfferStatus) error
}

// Store is the full persistence surface the engine consumes.
type Store interface {
	AuctionStore
	AppealStore
	StealStore
}
