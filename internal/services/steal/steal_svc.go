// Package steal is the rubata offer board: members post offers to
// steal players off other rosters, and accepting an offer funnels
// into the auction engine as a STEAL auction. Offers live in a
// normalized table with the same atomic-update discipline as bids.
package steal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fantasta/internal/collab"
	"fantasta/internal/domain"
	"fantasta/internal/domerr"
	"fantasta/internal/events"
	"fantasta/internal/services/auction"
	"fantasta/internal/store"
)

type OfferParams struct {
	SessionID int64
	PlayerID  int64
	OffererID int64
	Amount    int
}

type IStealService interface {
	CreateOffer(ctx context.Context, p OfferParams) (*domain.StealOffer, error)
	// StartAuction turns an OPEN offer into a STEAL auction with the
	// offer amount as starting price.
	StartAuction(ctx context.Context, offerID uuid.UUID, requesterID int64) (*domain.Auction, error)
	WithdrawOffer(ctx context.Context, offerID uuid.UUID, requesterID int64) error
	ListOffers(ctx context.Context, sessionID int64) ([]domain.StealOffer, error)
}

type stealService struct {
	store    store.StealStore
	auctions auction.IAuctionService
	sessions collab.SessionService
	players  collab.PlayerService
	rosters  collab.RosterService
	bus      events.Bus
	now      func() time.Time
}

var _ IStealService = (*stealService)(nil)

func NewStealService(
	st store.StealStore,
	auctions auction.IAuctionService,
	sessions collab.SessionService,
	players collab.PlayerService,
	rosters collab.RosterService,
	bus events.Bus,
) IStealService {
	return &stealService{
		store:    st,
		auctions: auctions,
		sessions: sessions,
		players:  players,
		rosters:  rosters,
		bus:      bus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOffer posts an offer for a player on another member's roster.
// One OPEN offer per player per session.
func (svc *stealService) CreateOffer(ctx context.Context, p OfferParams) (*domain.StealOffer, error) {
	if p.Amount <= 0 {
		return nil, domerr.ErrInvalidAmount
	}

	sess, err := svc.sessions.GetSession(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Phase != domain.PhaseRubata {
		return nil, fmt.Errorf("%w: steal offers require the rubata phase", domerr.ErrSessionClosed)
	}

	owner, err := svc.players.OwnerOf(ctx, p.PlayerID, sess.LeagueID)
	if err != nil {
		return nil, err
	}
	if owner == 0 {
		return nil, fmt.Errorf("%w: player is unassigned, open a free auction instead", domerr.ErrPlayerNotFound)
	}
	if owner == p.OffererID {
		return nil, fmt.Errorf("%w: cannot steal your own player", domerr.ErrForbidden)
	}

	budget, err := svc.rosters.Budget(ctx, p.OffererID)
	if err != nil {
		return nil, err
	}
	if p.Amount > budget {
		return nil, fmt.Errorf("%w: budget is %d", domerr.ErrInsufficientBudget, budget)
	}

	o := &domain.StealOffer{
		ID:        uuid.New(),
		SessionID: p.SessionID,
		PlayerID:  p.PlayerID,
		OffererID: p.OffererID,
		OwnerID:   owner,
		Amount:    p.Amount,
		Status:    domain.OfferOpen,
		CreatedAt: svc.now(),
	}
	if err := svc.store.CreateOffer(ctx, o); err != nil {
		return nil, err
	}

	svc.bus.Publish(ctx, events.Event{
		Type:      events.OfferCreated,
		SessionID: o.SessionID,
		Payload: map[string]any{
			"offer_id":  o.ID,
			"player_id": o.PlayerID,
			"owner_id":  o.OwnerID,
			"amount":    o.Amount,
		},
	})
	return o, nil
}

// StartAuction is the funnel into the auction engine. The offer is
// marked AUCTIONED only after the auction opened, so a failed create
// leaves the offer OPEN for retry.
func (svc *stealService) StartAuction(ctx context.Context, offerID uuid.UUID, requesterID int64) (*domain.Auction, error) {
	o, err := svc.store.FindOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !o.IsOpen() {
		return nil, domerr.ErrOfferNotOpen
	}
	if requesterID != o.OffererID {
		sess, err := svc.sessions.GetSession(ctx, o.SessionID)
		if err != nil {
			return nil, err
		}
		admin, err := svc.sessions.IsAdmin(ctx, requesterID, sess.LeagueID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, fmt.Errorf("%w: only the offerer or an admin can start the auction", domerr.ErrForbidden)
		}
	}

	a, err := svc.auctions.Create(ctx, auction.CreateParams{
		SessionID:     o.SessionID,
		PlayerID:      o.PlayerID,
		CreatorID:     o.OffererID,
		StartingPrice: o.Amount,
		Type:          domain.AuctionSteal,
	})
	if err != nil {
		return nil, err
	}

	if err := svc.store.MarkOffer(ctx, offerID, domain.OfferAuctioned); err != nil {
		return nil, err
	}
	return a, nil
}

func (svc *stealService) WithdrawOffer(ctx context.Context, offerID uuid.UUID, requesterID int64) error {
	o, err := svc.store.FindOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if o.OffererID != requesterID {
		return fmt.Errorf("%w: only the offerer can withdraw", domerr.ErrForbidden)
	}
	if err := svc.store.MarkOffer(ctx, offerID, domain.OfferWithdrawn); err != nil {
		return err
	}

	svc.bus.Publish(ctx, events.Event{
		Type:      events.OfferWithdrawn,
		SessionID: o.SessionID,
		Payload:   map[string]any{"offer_id": offerID},
	})
	return nil
}

func (svc *stealService) ListOffers(ctx context.Context, sessionID int64) ([]domain.StealOffer, error) {
	return svc.store.ListOffers(ctx, sessionID)
}
