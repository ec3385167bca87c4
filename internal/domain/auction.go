package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "ACTIVE"
	AuctionClosed    AuctionStatus = "CLOSED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

type AuctionType string

const (
	AuctionFree      AuctionType = "FREE"
	AuctionSteal     AuctionType = "STEAL"
	AuctionFreeAgent AuctionType = "FREE_AGENT"
)

// Auction is one player up for bid within one session. At most one
// auction per session may be ACTIVE at any time; the store enforces
// this with a partial unique index and the Create use case re-checks
// it before insert.
type Auction struct {
	ID              uuid.UUID     `json:"id"`
	SessionID       int64         `json:"session_id"`
	PlayerID        int64         `json:"player_id"`
	StartingPrice   int           `json:"starting_price"`
	CurrentPrice    int           `json:"current_price"`
	CurrentWinnerID *int64        `json:"current_winner_id,omitempty"`
	Status          AuctionStatus `json:"status"`
	TimerSeconds    int           `json:"timer_seconds"`
	TimerExpiresAt  *time.Time    `json:"timer_expires_at,omitempty"`
	Type            AuctionType   `json:"type"`
	CreatedAt       time.Time     `json:"created_at"`
	ClosedAt        *time.Time    `json:"closed_at,omitempty"`
}

func (a *Auction) IsActive() bool { return a.Status == AuctionActive }

// AcceptsBid reports whether amount would beat the current price.
// First bids must exceed the starting price as well; CurrentPrice
// starts equal to StartingPrice so one comparison covers both.
func (a *Auction) AcceptsBid(amount int) bool {
	return a.IsActive() && amount > a.CurrentPrice
}

// TimerExpired is the predicate the external expiry scheduler uses.
// A nil expiry (non-ACTIVE auction) never counts as expired.
func TimerExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}
