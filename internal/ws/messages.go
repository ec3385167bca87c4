package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "auctions/bid"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// BidRequest is the body for "auctions/bid".
type BidRequest struct {
	AuctionID string `json:"auction_id"`
	Amount    int    `json:"amount"`
}

// BidAck confirms an accepted bid and tells the caller whether a
// previous winner was outbid.
type BidAck struct {
	NewPrice int  `json:"new_price"`
	Outbid   bool `json:"outbid"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
