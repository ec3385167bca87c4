// Package auction holds the engine's core use cases: opening an
// auction, the bid critical path, closing with settlement, and
// cancellation. The service is stateless between calls; every
// operation is one short-lived trip to the store plus collaborator
// reads, and every state change publishes an event after commit.
package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fantasta/internal/collab"
	"fantasta/internal/domain"
	"fantasta/internal/domerr"
	"fantasta/internal/events"
	"fantasta/internal/redis/timerkeys"
	"fantasta/internal/store"
)

type CreateParams struct {
	SessionID     int64
	PlayerID      int64
	CreatorID     int64
	StartingPrice int
	Type          domain.AuctionType
}

// BidResult reports an accepted bid. Outbid is true when a previous
// winner was superseded, so the caller can notify them.
type BidResult struct {
	Bid              domain.Bid
	NewPrice         int
	Outbid           bool
	PreviousWinnerID *int64
}

// CloseResult is the settlement outcome. WinnerID is nil and
// WasAcquired false when the auction closed unsold.
type CloseResult struct {
	Auction     *domain.Auction
	WinnerID    *int64
	FinalAmount int
	WasAcquired bool
}

type IAuctionService interface {
	Create(ctx context.Context, p CreateParams) (*domain.Auction, error)
	PlaceBid(ctx context.Context, auctionID uuid.UUID, bidderID int64, amount int) (*BidResult, error)
	Close(ctx context.Context, auctionID uuid.UUID) (*CloseResult, error)
	Cancel(ctx context.Context, auctionID uuid.UUID, requesterID int64) (*domain.Auction, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	List(ctx context.Context, f store.AuctionFilter) ([]domain.Auction, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
}

type auctionService struct {
	store        store.AuctionStore
	sessions     collab.SessionService
	players      collab.PlayerService
	rosters      collab.RosterService
	members      collab.MemberService
	bus          events.Bus
	timers       timerkeys.Scheduler
	defaultTimer int
	now          func() time.Time
}

var _ IAuctionService = (*auctionService)(nil)

func NewAuctionService(
	st store.AuctionStore,
	sessions collab.SessionService,
	players collab.PlayerService,
	rosters collab.RosterService,
	members collab.MemberService,
	bus events.Bus,
	timers timerkeys.Scheduler,
	defaultTimerSeconds int,
) IAuctionService {
	return &auctionService{
		store:        st,
		sessions:     sessions,
		players:      players,
		rosters:      rosters,
		members:      members,
		bus:          bus,
		timers:       timers,
		defaultTimer: defaultTimerSeconds,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// memberName is display enrichment for event payloads; a failed
// lookup degrades to an empty name, never to a failed operation.
func (svc *auctionService) memberName(ctx context.Context, memberID int64) string {
	name, err := svc.members.MemberName(ctx, memberID)
	if err != nil {
		zap.L().Warn("member_name", zap.Int64("member", memberID), zap.Error(err))
		return ""
	}
	return name
}

// Create opens exactly one ACTIVE auction for a player in a session.
// Validations short-circuit in order: session active, no concurrent
// auction, player exists, player still unassigned.
func (svc *auctionService) Create(ctx context.Context, p CreateParams) (*domain.Auction, error) {
	if p.StartingPrice < 1 {
		return nil, fmt.Errorf("%w: starting price must be >= 1", domerr.ErrInvalidAmount)
	}
	if p.Type == "" {
		p.Type = domain.AuctionFree
	}

	sess, err := svc.sessions.GetSession(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.AcceptsAuctions() {
		return nil, domerr.ErrSessionClosed
	}

	if _, err := svc.store.FindActiveBySession(ctx, p.SessionID); err == nil {
		return nil, domerr.ErrAuctionExists
	} else if !isNotFound(err) {
		return nil, err
	}

	if _, err := svc.players.GetPlayer(ctx, p.PlayerID); err != nil {
		return nil, err
	}
	// steal auctions target an owned player on purpose
	if p.Type != domain.AuctionSteal {
		free, err := svc.players.IsPlayerAvailable(ctx, p.PlayerID, sess.LeagueID)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, domerr.ErrPlayerTaken
		}
	}

	timerSeconds := sess.TimerSeconds
	if timerSeconds <= 0 {
		timerSeconds = svc.defaultTimer
	}

	now := svc.now()
	expires := now.Add(time.Duration(timerSeconds) * time.Second)
	a := &domain.Auction{
		ID:             uuid.New(),
		SessionID:      p.SessionID,
		PlayerID:       p.PlayerID,
		StartingPrice:  p.StartingPrice,
		CurrentPrice:   p.StartingPrice,
		Status:         domain.AuctionActive,
		TimerSeconds:   timerSeconds,
		TimerExpiresAt: &expires,
		Type:           p.Type,
		CreatedAt:      now,
	}
	if err := svc.store.Create(ctx, a); err != nil {
		return nil, err
	}

	svc.timers.Arm(ctx, a.ID, time.Duration(timerSeconds)*time.Second)
	svc.bus.Publish(ctx, events.Event{
		Type:      events.AuctionCreated,
		SessionID: a.SessionID,
		Payload: map[string]any{
			"auction_id":     a.ID,
			"player_id":      a.PlayerID,
			"starting_price": a.StartingPrice,
			"type":           a.Type,
		},
	})
	zap.L().Info("auction_created",
		zap.String("auction", a.ID.String()),
		zap.Int64("session", a.SessionID),
		zap.Int64("player", a.PlayerID))
	return a, nil
}

// PlaceBid is the critical path. Cheap validation happens before any
// I/O, eligibility checks use reads outside the transaction, and the
// store's atomic step is the sole writer of price/winner state.
func (svc *auctionService) PlaceBid(ctx context.Context, auctionID uuid.UUID, bidderID int64, amount int) (*BidResult, error) {
	if amount <= 0 {
		return nil, domerr.ErrInvalidAmount
	}

	a, err := svc.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return nil, domerr.ErrAuctionNotActive
	}

	budget, err := svc.rosters.Budget(ctx, bidderID)
	if err != nil {
		return nil, err
	}
	if amount > budget {
		return nil, fmt.Errorf("%w: budget is %d", domerr.ErrInsufficientBudget, budget)
	}
	hasSlot, err := svc.rosters.HasSlotAvailable(ctx, bidderID, a.PlayerID)
	if err != nil {
		return nil, err
	}
	if !hasSlot {
		return nil, domerr.ErrNoSlotAvailable
	}
	if a.Type == domain.AuctionSteal {
		sess, err := svc.sessions.GetSession(ctx, a.SessionID)
		if err != nil {
			return nil, err
		}
		owner, err := svc.players.OwnerOf(ctx, a.PlayerID, sess.LeagueID)
		if err != nil {
			return nil, err
		}
		if owner == bidderID {
			return nil, fmt.Errorf("%w: cannot bid on your own player", domerr.ErrForbidden)
		}
	}

	expiresAt := svc.now().Add(time.Duration(a.TimerSeconds) * time.Second)
	placed, err := svc.store.PlaceBid(ctx, auctionID, bidderID, amount, expiresAt)
	if err != nil {
		return nil, err
	}

	svc.timers.Arm(ctx, auctionID, time.Duration(a.TimerSeconds)*time.Second)
	svc.bus.Publish(ctx, events.Event{
		Type:      events.BidPlaced,
		SessionID: a.SessionID,
		Payload: map[string]any{
			"auction_id":  auctionID,
			"bidder_id":   bidderID,
			"bidder_name": svc.memberName(ctx, bidderID),
			"amount":      amount,
		},
	})

	return &BidResult{
		Bid:              placed.Bid,
		NewPrice:         amount,
		Outbid:           placed.PreviousWinnerID != nil,
		PreviousWinnerID: placed.PreviousWinnerID,
	}, nil
}

// Close settles an ACTIVE auction exactly once. Settlement runs
// before the terminal transition: if it fails the auction stays
// ACTIVE and the whole close can be retried, and the per-auction
// settlement ledger keeps the retry from moving funds twice. A second
// close attempt fails instead of silently succeeding.
func (svc *auctionService) Close(ctx context.Context, auctionID uuid.UUID) (*CloseResult, error) {
	a, err := svc.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return nil, domerr.ErrAuctionNotActive
	}

	winning, err := svc.store.WinningBid(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	res := &CloseResult{FinalAmount: 0}
	if winning != nil {
		if err := svc.rosters.Settle(ctx, auctionID, winning.BidderID, a.PlayerID, winning.Amount); err != nil {
			return nil, fmt.Errorf("settle auction: %w", err)
		}
		res.WinnerID = &winning.BidderID
		res.FinalAmount = winning.Amount
		res.WasAcquired = true
	}

	closed, err := svc.store.Close(ctx, auctionID, svc.now())
	if err != nil {
		return nil, err
	}
	res.Auction = closed

	svc.timers.Disarm(ctx, auctionID)
	// winner_id stays null in the unsold case; the event is never omitted
	winnerName := ""
	if res.WinnerID != nil {
		winnerName = svc.memberName(ctx, *res.WinnerID)
	}
	svc.bus.Publish(ctx, events.Event{
		Type:      events.AuctionClosed,
		SessionID: closed.SessionID,
		Payload: map[string]any{
			"auction_id":   auctionID,
			"winner_id":    res.WinnerID,
			"winner_name":  winnerName,
			"final_amount": res.FinalAmount,
		},
	})
	zap.L().Info("auction_closed",
		zap.String("auction", auctionID.String()),
		zap.Bool("acquired", res.WasAcquired),
		zap.Int("final_amount", res.FinalAmount))
	return res, nil
}

// Cancel terminates an auction without settlement. Admin only.
func (svc *auctionService) Cancel(ctx context.Context, auctionID uuid.UUID, requesterID int64) (*domain.Auction, error) {
	a, err := svc.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	sess, err := svc.sessions.GetSession(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	admin, err := svc.sessions.IsAdmin(ctx, requesterID, sess.LeagueID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, fmt.Errorf("%w: only a league admin can cancel an auction", domerr.ErrForbidden)
	}

	cancelled, err := svc.store.Cancel(ctx, auctionID, svc.now())
	if err != nil {
		return nil, err
	}

	svc.timers.Disarm(ctx, auctionID)
	svc.bus.Publish(ctx, events.Event{
		Type:      events.AuctionCancelled,
		SessionID: cancelled.SessionID,
		Payload:   map[string]any{"auction_id": auctionID},
	})
	return cancelled, nil
}

func (svc *auctionService) Get(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return svc.store.FindByID(ctx, id)
}

func (svc *auctionService) List(ctx context.Context, f store.AuctionFilter) ([]domain.Auction, error) {
	return svc.store.FindMany(ctx, f)
}

func (svc *auctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	if _, err := svc.store.FindByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return svc.store.ListBids(ctx, auctionID)
}

func isNotFound(err error) bool {
	return domerr.KindOf(err) == domerr.KindNotFound
}
