package appeal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fantasta/internal/domain"
	"fantasta/internal/domerr"
	"fantasta/internal/events"
	"fantasta/internal/store/memstore"
)

type fakeSessions struct {
	admins map[int64]bool
}

func (f *fakeSessions) GetSession(_ context.Context, id int64) (*domain.Session, error) {
	return &domain.Session{ID: id, LeagueID: 9, Phase: domain.PhaseAuction, TimerSeconds: 30}, nil
}

func (f *fakeSessions) IsAdmin(_ context.Context, memberID, _ int64) (bool, error) {
	return f.admins[memberID], nil
}

type recordBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

type stubCorrection struct {
	action string
	err    error
	calls  int
}

func (s *stubCorrection) Apply(context.Context, *domain.Auction, *domain.Appeal) (string, error) {
	s.calls++
	return s.action, s.err
}

type fixture struct {
	svc        IAppealService
	store      *memstore.Store
	bus        *recordBus
	corrective *stubCorrection
	auctionID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	a := &domain.Auction{
		ID: uuid.New(), SessionID: 1, PlayerID: 42,
		StartingPrice: 1, CurrentPrice: 15,
		Status: domain.AuctionClosed, TimerSeconds: 30,
		Type: domain.AuctionFree, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Create(context.Background(), a))

	bus := &recordBus{}
	corrective := &stubCorrection{action: "auction reopened"}
	svc := NewAppealService(st, &fakeSessions{admins: map[int64]bool{999: true}}, bus, corrective)
	return &fixture{svc: svc, store: st, bus: bus, corrective: corrective, auctionID: a.ID}
}

const validReason = "the winning bid landed after the timer expired"

func TestCreateAppeal(t *testing.T) {
	f := newFixture(t)

	ap, err := f.svc.Create(context.Background(), f.auctionID, 100, validReason)
	require.NoError(t, err)
	require.Equal(t, domain.AppealPending, ap.Status)
	require.Nil(t, ap.Resolution)
}

func TestCreateAppealRejectsShortReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.auctionID, 100, "unfair")
	require.ErrorIs(t, err, domerr.ErrInvalidReason)
}

func TestCreateAppealOnMissingAuction(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), 100, validReason)
	require.ErrorIs(t, err, domerr.ErrAuctionNotFound)
}

func TestSecondAppealConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.auctionID, 200, "another complaint about the same auction")
	require.ErrorIs(t, err, domerr.ErrAppealExists)

	got, err := f.svc.Get(ctx, f.auctionID)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID, "first appeal is unaffected")
}

func TestResolveAcceptRunsCorrectiveAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)

	res, err := f.svc.Resolve(ctx, f.auctionID, 999, true, "bid log confirms the claim")
	require.NoError(t, err)
	require.Equal(t, domain.AppealAccepted, res.Appeal.Status)
	require.Equal(t, "auction reopened", res.ActionTaken)
	require.Equal(t, 1, f.corrective.calls)
	require.NotNil(t, res.Appeal.ResolvedAt)
}

func TestResolveRejectSkipsCorrectiveAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)

	res, err := f.svc.Resolve(ctx, f.auctionID, 999, false, "no grounds")
	require.NoError(t, err)
	require.Equal(t, domain.AppealRejected, res.Appeal.Status)
	require.Equal(t, "none", res.ActionTaken)
	require.Zero(t, f.corrective.calls)
}

func TestResolveRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, f.auctionID, 100, true, "self-service justice")
	require.ErrorIs(t, err, domerr.ErrForbidden)
}

func TestResolveRequiresNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, f.auctionID, 999, true, "")
	require.ErrorIs(t, err, domerr.ErrInvalidInput)
}

func TestResolveIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, f.auctionID, 999, false, "no grounds")
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, f.auctionID, 999, true, "on second thought")
	require.ErrorIs(t, err, domerr.ErrAppealResolved)
}

func TestResolveRecordsDecisionWhenCorrectionFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.corrective.err = errors.New("reopen failed")

	_, err := f.svc.Create(ctx, f.auctionID, 100, validReason)
	require.NoError(t, err)

	res, err := f.svc.Resolve(ctx, f.auctionID, 999, true, "bid log confirms the claim")
	require.NoError(t, err, "the decision stands even when the correction fails")
	require.Equal(t, domain.AppealAccepted, res.Appeal.Status)
	require.Contains(t, res.ActionTaken, "correction failed")
}
