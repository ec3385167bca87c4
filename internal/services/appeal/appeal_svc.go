// Package appeal implements the dispute workflow: one appeal per
// auction, resolved exactly once by a league admin. Corrective action
// on acceptance is a pluggable strategy; this service only records
// the decision and emits the resolution event.
package appeal

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
	"fantasta/internal/store"
)

// CorrectiveAction is invoked when an appeal is accepted. Reopening
// the auction or reassigning the player belongs to collaborators
// behind this interface, not to the appeal workflow itself.
type CorrectiveAction interface {
	Apply(ctx context.Context, auction *domain.Auction, appeal *domain.Appeal) (actionTaken string, err error)
}

// NoCorrection records the decision and takes no automatic action.
type NoCorrection struct{}

func (NoCorrection) Apply(context.Context, *domain.Auction, *domain.Appeal) (string, error) {
	return "decision recorded; no automatic correction", nil
}

// ResolveResult reports the terminal appeal plus what, if anything,
// the corrective strategy did.
type ResolveResult struct {
	Appeal      *domain.Appeal
	ActionTaken string
}

type IAppealService interface {
	Create(ctx context.Context, auctionID uuid.UUID, complainantID int64, reason string) (*domain.Appeal, error)
	Resolve(ctx context.Context, auctionID uuid.UUID, adminID int64, accept bool, resolution string) (*ResolveResult, error)
	Get(ctx context.Context, auctionID uuid.UUID) (*domain.Appeal, error)
}

type appealService struct {
	store      store.Store
	sessions   collab.SessionService
	bus        events.Bus
	corrective CorrectiveAction
	now        func() time.Time
}

var _ IAppealService = (*appealService)(nil)

func NewAppealService(st store.Store, sessions collab.SessionService, bus events.Bus, corrective CorrectiveAction) IAppealService {
	if corrective == nil {
		corrective = NoCorrection{}
	}
	return &appealService{
		store:      st,
		sessions:   sessions,
		bus:        bus,
		corrective: corrective,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create files a complaint against an auction. First creation wins;
// a duplicate fails as a conflict and leaves the original untouched.
func (svc *appealService) Create(ctx context.Context, auctionID uuid.UUID, complainantID int64, reason string) (*domain.Appeal, error) {
	if !domain.ValidAppealReason(reason) {
		return nil, domerr.ErrInvalidReason
	}

	a, err := svc.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	ap := &domain.Appeal{
		ID:            uuid.New(),
		AuctionID:     auctionID,
		ComplainantID: complainantID,
		Reason:        reason,
		Status:        domain.AppealPending,
		CreatedAt:     svc.now(),
	}
	if err := svc.store.CreateAppeal(ctx, ap); err != nil {
		return nil, err
	}

	svc.bus.Publish(ctx, events.Event{
		Type:      events.AppealCreated,
		SessionID: a.SessionID,
		Payload: map[string]any{
			"appeal_id":      ap.ID,
			"auction_id":     auctionID,
			"complainant_id": complainantID,
		},
	})
	return ap, nil
}

// Resolve moves the appeal to a terminal status. Admin only; the
// transition is one-way and a second resolution fails.
func (svc *appealService) Resolve(ctx context.Context, auctionID uuid.UUID, adminID int64, accept bool, resolution string) (*ResolveResult, error) {
	if resolution == "" {
		return nil, fmt.Errorf("%w: resolution notes are required", domerr.ErrInvalidInput)
	}

	a, err := svc.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	sess, err := svc.sessions.GetSession(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	admin, err := svc.sessions.IsAdmin(ctx, adminID, sess.LeagueID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, fmt.Errorf("%w: only a league admin can resolve appeals", domerr.ErrForbidden)
	}

	pending, err := svc.store.FindAppealByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	status := domain.AppealRejected
	if accept {
		status = domain.AppealAccepted
	}
	resolved, err := svc.store.ResolveAppeal(ctx, pending.ID, status, resolution, svc.now())
	if err != nil {
		return nil, err
	}

	actionTaken := "none"
	if accept {
		actionTaken, err = svc.corrective.Apply(ctx, a, resolved)
		if err != nil {
			// the decision is already recorded; the correction failing
			// is reported, not rolled back
			zap.L().Error("appeal_corrective_action",
				zap.String("appeal", resolved.ID.String()), zap.Error(err))
			actionTaken = "correction failed: " + err.Error()
		}
	}

	svc.bus.Publish(ctx, events.Event{
		Type:      events.AppealResolved,
		SessionID: a.SessionID,
		Payload: map[string]any{
			"appeal_id":    resolved.ID,
			"auction_id":   auctionID,
			"status":       resolved.Status,
			"action_taken": actionTaken,
		},
	})
	return &ResolveResult{Appeal: resolved, ActionTaken: actionTaken}, nil
}

func (svc *appealService) Get(ctx context.Context, auctionID uuid.UUID) (*domain.Appeal, error) {
	return svc.store.FindAppealByAuction(ctx, auctionID)
}
