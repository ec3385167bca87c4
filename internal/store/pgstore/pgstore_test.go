package pgstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"fantasta/internal/domain"
	"fantasta/internal/domerr"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func auctionRow(id uuid.UUID, status domain.AuctionStatus, price int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "session_id", "player_id", "starting_price", "current_price",
		"current_winner_id", "status", "timer_seconds", "timer_expires_at",
		"type", "created_at", "closed_at",
	}).AddRow(id.String(), int64(1), int64(42), 1, price, nil, string(status), 30, nil, "FREE", now, nil)
}

func expectBidTx(mock sqlmock.Sqlmock, auctionID uuid.UUID, bidderID int64, amount int, prevBidder *int64) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, current_price FROM auctions").
		WithArgs(auctionID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "current_price"}).AddRow("ACTIVE", 10))
	prevQ := mock.ExpectQuery("UPDATE bids SET is_winning = FALSE").WithArgs(auctionID)
	if prevBidder == nil {
		prevQ.WillReturnError(sql.ErrNoRows)
	} else {
		prevQ.WillReturnRows(sqlmock.NewRows([]string{"bidder_id"}).AddRow(*prevBidder))
	}
	mock.ExpectExec("INSERT INTO bids").
		WithArgs(sqlmock.AnyArg(), auctionID, bidderID, amount, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE auctions").
		WithArgs(auctionID, amount, bidderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestPlaceBidFirstBid(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()

	expectBidTx(mock, auctionID, 5, 15, nil)
	mock.ExpectCommit()

	res, err := st.PlaceBid(context.Background(), auctionID, 5, 15, time.Now().Add(30*time.Second))
	require.NoError(t, err)
	require.Nil(t, res.PreviousWinnerID)
	require.True(t, res.Bid.IsWinning)
	require.Equal(t, 15, res.Bid.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidSupersedesPreviousWinner(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()
	prev := int64(7)

	expectBidTx(mock, auctionID, 5, 20, &prev)
	mock.ExpectCommit()

	res, err := st.PlaceBid(context.Background(), auctionID, 5, 20, time.Now().Add(30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, res.PreviousWinnerID)
	require.Equal(t, prev, *res.PreviousWinnerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidTooLow(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, current_price FROM auctions").
		WithArgs(auctionID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "current_price"}).AddRow("ACTIVE", 20))
	mock.ExpectRollback()

	_, err := st.PlaceBid(context.Background(), auctionID, 5, 15, time.Now())
	require.ErrorIs(t, err, domerr.ErrBidTooLow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidAuctionNotFound(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, current_price FROM auctions").
		WithArgs(auctionID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := st.PlaceBid(context.Background(), auctionID, 5, 15, time.Now())
	require.ErrorIs(t, err, domerr.ErrAuctionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidAuctionNotActive(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, current_price FROM auctions").
		WithArgs(auctionID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "current_price"}).AddRow("CLOSED", 20))
	mock.ExpectRollback()

	_, err := st.PlaceBid(context.Background(), auctionID, 5, 50, time.Now())
	require.ErrorIs(t, err, domerr.ErrAuctionNotActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBidSerializationConflictExhaustsRetries(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()
	serErr := &pgconn.PgError{Code: "40001"}

	for i := 0; i < maxBidRetries; i++ {
		expectBidTx(mock, auctionID, 5, 15, nil)
		mock.ExpectCommit().WillReturnError(serErr)
	}

	_, err := st.PlaceBid(context.Background(), auctionID, 5, 15, time.Now())
	require.ErrorIs(t, err, domerr.ErrConcurrentBid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConflictOnActiveAuction(t *testing.T) {
	st, mock := newMock(t)

	mock.ExpectExec("INSERT INTO auctions").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "auctions_one_active_per_session"})

	now := time.Now().UTC()
	err := st.Create(context.Background(), &domain.Auction{
		ID: uuid.New(), SessionID: 1, PlayerID: 42,
		StartingPrice: 1, CurrentPrice: 1,
		Status: domain.AuctionActive, TimerSeconds: 30,
		Type: domain.AuctionFree, CreatedAt: now,
	})
	require.ErrorIs(t, err, domerr.ErrAuctionExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseReturnsFrozenAuction(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()

	mock.ExpectQuery("UPDATE auctions").
		WithArgs(auctionID, string(domain.AuctionClosed), sqlmock.AnyArg()).
		WillReturnRows(auctionRow(auctionID, domain.AuctionClosed, 15))

	a, err := st.Close(context.Background(), auctionID, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.AuctionClosed, a.Status)
	require.Equal(t, 15, a.CurrentPrice)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAlreadyClosed(t *testing.T) {
	st, mock := newMock(t)
	auctionID := uuid.New()

	mock.ExpectQuery("UPDATE auctions").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM auctions WHERE id").
		WithArgs(auctionID).
		WillReturnRows(auctionRow(auctionID, domain.AuctionClosed, 15))

	_, err := st.Close(context.Background(), auctionID, time.Now())
	require.ErrorIs(t, err, domerr.ErrAuctionNotActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAppealTwiceFails(t *testing.T) {
	st, mock := newMock(t)
	appealID := uuid.New()

	mock.ExpectQuery("UPDATE appeals").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(appealID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := st.ResolveAppeal(context.Background(), appealID, domain.AppealRejected, "no grounds", time.Now())
	require.ErrorIs(t, err, domerr.ErrAppealResolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppealDuplicate(t *testing.T) {
	st, mock := newMock(t)

	mock.ExpectExec("INSERT INTO appeals").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := st.CreateAppeal(context.Background(), &domain.Appeal{
		ID: uuid.New(), AuctionID: uuid.New(), ComplainantID: 3,
		Reason: "the timer was reset unfairly", Status: domain.AppealPending,
		CreatedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domerr.ErrAppealExists)
	require.NoError(t, mock.ExpectationsWereMet())
}
