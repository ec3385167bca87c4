package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppealStatus string

const (
	AppealPending  AppealStatus = "PENDING"
	AppealAccepted AppealStatus = "ACCEPTED"
	AppealRejected AppealStatus = "REJECTED"
)

// MinAppealReasonLen is the minimum length of a complaint reason.
const MinAppealReasonLen = 10

// Appeal is a complaint about an auction's conduct or outcome.
// At most one appeal exists per auction; resolution is one-way.
type Appeal struct {
	ID            uuid.UUID    `json:"id"`
	AuctionID     uuid.UUID    `json:"auction_id"`
	ComplainantID int64        `json:"complainant_id"`
	Reason        string       `json:"reason"`
	Status        AppealStatus `json:"status"`
	Resolution    *string      `json:"resolution,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ResolvedAt    *time.Time   `json:"resolved_at,omitempty"`
}

func (a *Appeal) IsResolved() bool { return a.Status != AppealPending }

// ValidAppealReason rejects empty or too-short complaint texts.
func ValidAppealReason(reason string) bool {
	return len(strings.TrimSpace(reason)) >= MinAppealReasonLen
}
