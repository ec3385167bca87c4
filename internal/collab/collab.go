// Package collab declares the collaborator services the engine
// consumes but does not own: sessions, players, rosters/budgets,
// members and authorization. Implementations live outside the core;
// tests use in-package fakes. The engine never opens a transaction
// spanning its own store and a collaborator.
package collab

import (
	"context"

	"github.com/google/uuid"

	"fantasta/internal/domain"
)

type SessionService interface {
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	IsAdmin(ctx context.Context, memberID, leagueID int64) (bool, error)
}

type PlayerService interface {
	GetPlayer(ctx context.Context, id int64) (*domain.Player, error)
	// IsPlayerAvailable reports whether the player is still unassigned
	// within the league scope.
	IsPlayerAvailable(ctx context.Context, playerID, leagueID int64) (bool, error)
	// OwnerOf returns the member currently holding the player, or 0.
	OwnerOf(ctx context.Context, playerID, leagueID int64) (int64, error)
}

// RosterService is authoritative for budgets and slots. Settle is the
// close-time write: it awards the player and deducts the price as one
// settlement keyed by auction, so a retried or racing close applies
// the money movement at most once.
type RosterService interface {
	Budget(ctx context.Context, memberID int64) (int, error)
	HasSlotAvailable(ctx context.Context, memberID, playerID int64) (bool, error)
	Settle(ctx context.Context, auctionID uuid.UUID, memberID, playerID int64, price int) error
}

type MemberService interface {
	MemberName(ctx context.Context, memberID int64) (string, error)
}
