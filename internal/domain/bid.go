package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bid is one bidder's offer on an auction. Bids are never amended or
// deleted, only superseded: a newly accepted bid flips the previous
// winner's IsWinning flag in the same transaction that inserts it.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  int64     `json:"bidder_id"`
	Amount    int       `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	PlacedAt  time.Time `json:"placed_at"`
}
