package domain

import (
	"time"

	"github.com/google/uuid"
)

type StealOfferStatus string

const (
	OfferOpen      StealOfferStatus = "OPEN"
	OfferAuctioned StealOfferStatus = "AUCTIONED"
	OfferWithdrawn StealOfferStatus = "WITHDRAWN"
)

// StealOffer is one entry on the rubata offer board: a member offers
// to steal a player currently on another member's roster. Accepting
// the offer funnels into the auction engine as a STEAL auction with
// the offer amount as starting price. Offers live in their own table
// keyed by id; one OPEN offer per (session, player).
type StealOffer struct {
	ID        uuid.UUID        `json:"id"`
	SessionID int64            `json:"session_id"`
	PlayerID  int64            `json:"player_id"`
	OffererID int64            `json:"offerer_id"`
	OwnerID   int64            `json:"owner_id"`
	Amount    int              `json:"amount"`
	Status    StealOfferStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

func (o *StealOffer) IsOpen() bool { return o.Status == OfferOpen }
