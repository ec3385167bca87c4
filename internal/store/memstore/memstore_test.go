package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fantasta/internal/domain"
	"fantasta/internal/domerr"
)

func activeAuction(t *testing.T, s *Store, sessionID int64, price int) *domain.Auction {
	t.Helper()
	a := &domain.Auction{
		ID:            uuid.New(),
		SessionID:     sessionID,
		PlayerID:      42,
		StartingPrice: price,
		CurrentPrice:  price,
		Status:        domain.AuctionActive,
		TimerSeconds:  30,
		Type:          domain.AuctionFree,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.Create(context.Background(), a))
	return a
}

func TestSingleActiveAuctionPerSession(t *testing.T) {
	s := New()
	activeAuction(t, s, 1, 10)

	err := s.Create(context.Background(), &domain.Auction{
		ID: uuid.New(), SessionID: 1, Status: domain.AuctionActive,
	})
	require.ErrorIs(t, err, domerr.ErrAuctionExists)

	// a different session is unaffected
	activeAuction(t, s, 2, 5)
}

func TestPlaceBidAdvancesPriceAndSupersedes(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := activeAuction(t, s, 1, 10)
	expires := time.Now().Add(30 * time.Second)

	first, err := s.PlaceBid(ctx, a.ID, 100, 15, expires)
	require.NoError(t, err)
	require.Nil(t, first.PreviousWinnerID)

	second, err := s.PlaceBid(ctx, a.ID, 200, 20, expires)
	require.NoError(t, err)
	require.NotNil(t, second.PreviousWinnerID)
	require.Equal(t, int64(100), *second.PreviousWinnerID)

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 20, got.CurrentPrice)
	require.Equal(t, int64(200), *got.CurrentWinnerID)

	bids, err := s.ListBids(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)

	winning, err := s.WinningBid(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(200), winning.BidderID)
	require.Equal(t, 20, winning.Amount)
}

func TestPlaceBidTooLowLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := activeAuction(t, s, 1, 10)

	_, err := s.PlaceBid(ctx, a.ID, 100, 10, time.Now())
	require.ErrorIs(t, err, domerr.ErrBidTooLow)

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.CurrentPrice)
	require.Nil(t, got.CurrentWinnerID)

	bids, err := s.ListBids(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, bids)
}

// Two concurrent placements of 15 and 20 against a price of 10: at
// most one of them can lose, the final price is always 20, and
// exactly one bid ends up winning.
func TestConcurrentBidsExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := activeAuction(t, s, 1, 10)
	expires := time.Now().Add(30 * time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, amount := range []int{15, 20} {
		wg.Add(1)
		go func(i, amount int) {
			defer wg.Done()
			_, errs[i] = s.PlaceBid(ctx, a.ID, int64(100+i), amount, expires)
		}(i, amount)
	}
	wg.Wait()

	require.NoError(t, errs[1], "the 20 bid always beats a price of 10 or 15")
	if errs[0] != nil {
		require.ErrorIs(t, errs[0], domerr.ErrBidTooLow)
	}

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 20, got.CurrentPrice)

	bids, err := s.ListBids(ctx, a.ID)
	require.NoError(t, err)
	winners := 0
	for _, b := range bids {
		if b.IsWinning {
			winners++
			require.Equal(t, 20, b.Amount)
		}
	}
	require.Equal(t, 1, winners)
}

func TestCloseIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := activeAuction(t, s, 1, 10)

	closed, err := s.Close(ctx, a.ID, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, domain.AuctionClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.Nil(t, closed.TimerExpiresAt)

	_, err = s.Close(ctx, a.ID, time.Now().UTC())
	require.ErrorIs(t, err, domerr.ErrAuctionNotActive)
}

func TestAppealUniquePerAuction(t *testing.T) {
	ctx := context.Background()
	s := New()
	auctionID := uuid.New()

	first := &domain.Appeal{
		ID: uuid.New(), AuctionID: auctionID, ComplainantID: 1,
		Reason: "timer reset was unfair", Status: domain.AppealPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateAppeal(ctx, first))

	dup := &domain.Appeal{ID: uuid.New(), AuctionID: auctionID, ComplainantID: 2}
	require.ErrorIs(t, s.CreateAppeal(ctx, dup), domerr.ErrAppealExists)

	// the original is unaffected
	got, err := s.FindAppealByAuction(ctx, auctionID)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, int64(1), got.ComplainantID)
}

func TestResolveAppealOneWay(t *testing.T) {
	ctx := context.Background()
	s := New()
	ap := &domain.Appeal{
		ID: uuid.New(), AuctionID: uuid.New(), ComplainantID: 1,
		Reason: "timer reset was unfair", Status: domain.AppealPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateAppeal(ctx, ap))

	resolved, err := s.ResolveAppeal(ctx, ap.ID, domain.AppealAccepted, "bid log confirms the claim", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, domain.AppealAccepted, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = s.ResolveAppeal(ctx, ap.ID, domain.AppealRejected, "changed my mind", time.Now().UTC())
	require.ErrorIs(t, err, domerr.ErrAppealResolved)
}

func TestStealOfferLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	o := &domain.StealOffer{
		ID: uuid.New(), SessionID: 1, PlayerID: 42,
		OffererID: 100, OwnerID: 200, Amount: 12,
		Status: domain.OfferOpen, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateOffer(ctx, o))

	dup := &domain.StealOffer{ID: uuid.New(), SessionID: 1, PlayerID: 42, Status: domain.OfferOpen}
	require.ErrorIs(t, s.CreateOffer(ctx, dup), domerr.ErrOfferExists)

	require.NoError(t, s.MarkOffer(ctx, o.ID, domain.OfferAuctioned))
	require.ErrorIs(t, s.MarkOffer(ctx, o.ID, domain.OfferWithdrawn), domerr.ErrOfferNotOpen)

	// terminal offer frees the slot for a new one
	require.NoError(t, s.CreateOffer(ctx, &domain.StealOffer{
		ID: uuid.New(), SessionID: 1, PlayerID: 42, Status: domain.OfferOpen,
	}))
}
