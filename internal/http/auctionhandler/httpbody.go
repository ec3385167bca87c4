package auctionhandler

import "fantasta/internal/domain"

type CreateAuctionBody struct {
	SessionID     int64              `json:"session_id" binding:"required"`
	PlayerID      int64              `json:"player_id"  binding:"required"`
	CreatorID     int64              `json:"creator_id" binding:"required"`
	StartingPrice int                `json:"starting_price" binding:"required,gte=1"`
	Type          domain.AuctionType `json:"type" binding:"omitempty,oneof=FREE STEAL FREE_AGENT"`
}

type PlaceBidBody struct {
	BidderID int64 `json:"bidder_id" binding:"required"`
	Amount   int   `json:"amount"    binding:"required,gt=0"`
}

type CancelBody struct {
	RequesterID int64 `json:"requester_id" binding:"required"`
}

type ListAuctionsQuery struct {
	SessionID int64                `form:"session_id" binding:"omitempty,gt=0"`
	Status    domain.AuctionStatus `form:"status" binding:"omitempty,oneof=ACTIVE CLOSED CANCELLED"`
	Limit     int                  `form:"limit,default=20"  binding:"gte=0,lte=100"`
	Offset    int                  `form:"offset,default=0"  binding:"gte=0"`
}

type BidResponse struct {
	Bid              any    `json:"bid"`
	NewPrice         int    `json:"new_price"`
	Outbid           bool   `json:"outbid"`
	PreviousWinnerID *int64 `json:"previous_winner_id,omitempty"`
}

type CloseResponse struct {
	Auction     any    `json:"auction"`
	WinnerID    *int64 `json:"winner_id"`
	FinalAmount int    `json:"final_amount"`
	WasAcquired bool   `json:"was_acquired"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
