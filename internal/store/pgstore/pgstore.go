// Package pgstore implements the store contract on PostgreSQL.
// PlaceBid is the only multi-statement write; it runs under
// SERIALIZABLE with the auction row locked FOR UPDATE and retries a
// bounded number of times on serialization failure before surfacing
// the race as a concurrent-bid conflict.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"fantasta/internal/domain"
	"fantasta/internal/domerr"
	"fantasta/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const maxBidRetries = 3

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store { return &Store{db: db} }

// EnsureSchema applies the embedded DDL. Statements are idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isSQLState(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, c := range codes {
		if pgErr.Code == c {
			return true
		}
	}
	return false
}

// serialization_failure and deadlock_detected both mean "lost the
// race, try again".
func isSerializationFailure(err error) bool {
	return isSQLState(err, "40001", "40P01")
}

func isUniqueViolation(err error) bool {
	return isSQLState(err, "23505")
}

const auctionCols = `id, session_id, player_id, starting_price, current_price,
	current_winner_id, status, timer_seconds, timer_expires_at, type, created_at, closed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(r rowScanner) (*domain.Auction, error) {
	var (
		a       domain.Auction
		winner  sql.NullInt64
		expires sql.NullTime
		closed  sql.NullTime
	)
	err := r.Scan(&a.ID, &a.SessionID, &a.PlayerID, &a.StartingPrice, &a.CurrentPrice,
		&winner, &a.Status, &a.TimerSeconds, &expires, &a.Type, &a.CreatedAt, &closed)
	if err != nil {
		return nil, err
	}
	if winner.Valid {
		a.CurrentWinnerID = &winner.Int64
	}
	if expires.Valid {
		t := expires.Time
		a.TimerExpiresAt = &t
	}
	if closed.Valid {
		t := closed.Time
		a.ClosedAt = &t
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *domain.Auction) error {
	const q = `
	INSERT INTO auctions (id, session_id, player_id, starting_price, current_price,
	                      current_winner_id, status, timer_seconds, timer_expires_at,
	                      type, created_at, closed_at)
	     VALUES ($1,$2,$3,$4,$5,NULL,$6,$7,$8,$9,$10,NULL)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.SessionID, a.PlayerID, a.StartingPrice, a.CurrentPrice,
		a.Status, a.TimerSeconds, a.TimerExpiresAt, a.Type, a.CreatedAt)
	if isUniqueViolation(err) {
		return domerr.ErrAuctionExists
	}
	if err != nil {
		return fmt.Errorf("create auction: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrAuctionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find auction: %w", err)
	}
	return a, nil
}

func (s *Store) FindActiveBySession(ctx context.Context, sessionID int64) (*domain.Auction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE session_id = $1 AND status = 'ACTIVE'`,
		sessionID)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrAuctionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active auction: %w", err)
	}
	return a, nil
}

func (s *Store) FindMany(ctx context.Context, f store.AuctionFilter) ([]domain.Auction, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	q := `SELECT ` + auctionCols + ` FROM auctions`
	args := []any{}
	where := ""
	if f.SessionID != 0 {
		args = append(args, f.SessionID)
		where = fmt.Sprintf(" WHERE session_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		if where == "" {
			where = fmt.Sprintf(" WHERE status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
	}
	args = append(args, f.Limit, f.Offset)
	q += where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Auction, 0, f.Limit)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (s *Store) PlaceBid(ctx context.Context, auctionID uuid.UUID, bidderID int64, amount int, expiresAt time.Time) (*store.BidPlacement, error) {
	var lastErr error
	for attempt := 0; attempt < maxBidRetries; attempt++ {
		res, err := s.placeBidOnce(ctx, auctionID, bidderID, amount, expiresAt)
		if err != nil && isSerializationFailure(err) {
			lastErr = err
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("%w: %v", domerr.ErrConcurrentBid, lastErr)
}

func (s *Store) placeBidOnce(ctx context.Context, auctionID uuid.UUID, bidderID int64, amount int, expiresAt time.Time) (*store.BidPlacement, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin bid tx: %w", err)
	}
	defer tx.Rollback()

	var (
		status       domain.AuctionStatus
		currentPrice int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, current_price FROM auctions WHERE id = $1 FOR UPDATE`,
		auctionID).Scan(&status, &currentPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrAuctionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock auction: %w", err)
	}
	if status != domain.AuctionActive {
		return nil, domerr.ErrAuctionNotActive
	}
	if amount <= currentPrice {
		return nil, fmt.Errorf("%w: current price is %d", domerr.ErrBidTooLow, currentPrice)
	}

	var previous sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`UPDATE bids SET is_winning = FALSE
		  WHERE auction_id = $1 AND is_winning
		  RETURNING bidder_id`,
		auctionID).Scan(&previous.Int64)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first bid, nothing to supersede
	case err != nil:
		return nil, fmt.Errorf("supersede winning bid: %w", err)
	default:
		previous.Valid = true
	}

	bid := domain.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		IsWinning: true,
		PlacedAt:  time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bids (id, auction_id, bidder_id, amount, is_winning, placed_at)
		      VALUES ($1,$2,$3,$4,TRUE,$5)`,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt)
	if err != nil {
		return nil, fmt.Errorf("insert bid: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE auctions
		    SET current_price = $2, current_winner_id = $3, timer_expires_at = $4
		  WHERE id = $1`,
		auctionID, amount, bidderID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("advance auction price: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := &store.BidPlacement{Bid: bid}
	if previous.Valid {
		out.PreviousWinnerID = &previous.Int64
	}
	return out, nil
}

// terminate is shared by Close and Cancel: the status guard lives in
// the WHERE clause so a concurrent close loses cleanly.
func (s *Store) terminate(ctx context.Context, id uuid.UUID, status domain.AuctionStatus, at time.Time) (*domain.Auction, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE auctions
		    SET status = $2, closed_at = $3, timer_expires_at = NULL
		  WHERE id = $1 AND status = 'ACTIVE'
		  RETURNING `+auctionCols,
		id, status, at)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		// missing or already terminal; disambiguate for the caller
		if _, ferr := s.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, domerr.ErrAuctionNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("terminate auction: %w", err)
	}
	return a, nil
}

func (s *Store) Close(ctx context.Context, id uuid.UUID, closedAt time.Time) (*domain.Auction, error) {
	return s.terminate(ctx, id, domain.AuctionClosed, closedAt)
}

func (s *Store) Cancel(ctx context.Context, id uuid.UUID, closedAt time.Time) (*domain.Auction, error) {
	return s.terminate(ctx, id, domain.AuctionCancelled, closedAt)
}

func (s *Store) ResetTimer(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE auctions SET timer_expires_at = $2 WHERE id = $1 AND status = 'ACTIVE'`,
		id, expiresAt)
	if err != nil {
		return fmt.Errorf("reset timer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domerr.ErrAuctionNotActive
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AuctionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE auctions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domerr.ErrAuctionNotFound
	}
	return nil
}

func scanBid(r rowScanner) (*domain.Bid, error) {
	var b domain.Bid
	err := r.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.IsWinning, &b.PlacedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const bidCols = `id, auction_id, bidder_id, amount, is_winning, placed_at`

func (s *Store) ListBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bidCols+` FROM bids WHERE auction_id = $1 ORDER BY placed_at`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

func (s *Store) WinningBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bidCols+` FROM bids WHERE auction_id = $1 AND is_winning`, auctionID)
	b, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // unsold auction, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("winning bid: %w", err)
	}
	return b, nil
}

// ─── appeals ────────────────────────────────────────────────────────

func (s *Store) CreateAppeal(ctx context.Context, a *domain.Appeal) error {
	const q = `
	INSERT INTO appeals (id, auction_id, complainant_id, reason, status, created_at)
	     VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.AuctionID, a.ComplainantID, a.Reason, a.Status, a.CreatedAt)
	if isUniqueViolation(err) {
		return domerr.ErrAppealExists
	}
	if err != nil {
		return fmt.Errorf("create appeal: %w", err)
	}
	return nil
}

const appealCols = `id, auction_id, complainant_id, reason, status, resolution, created_at, resolved_at`

func scanAppeal(r rowScanner) (*domain.Appeal, error) {
	var (
		a          domain.Appeal
		resolution sql.NullString
		resolvedAt sql.NullTime
	)
	err := r.Scan(&a.ID, &a.AuctionID, &a.ComplainantID, &a.Reason, &a.Status,
		&resolution, &a.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolution.Valid {
		a.Resolution = &resolution.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func (s *Store) FindAppealByAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Appeal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+appealCols+` FROM appeals WHERE auction_id = $1`, auctionID)
	a, err := scanAppeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrAppealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find appeal: %w", err)
	}
	return a, nil
}

func (s *Store) ResolveAppeal(ctx context.Context, id uuid.UUID, status domain.AppealStatus, resolution string, resolvedAt time.Time) (*domain.Appeal, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE appeals
		    SET status = $2, resolution = $3, resolved_at = $4
		  WHERE id = $1 AND status = 'PENDING'
		  RETURNING `+appealCols,
		id, status, resolution, resolvedAt)
	a, err := scanAppeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if qerr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM appeals WHERE id = $1)`, id).Scan(&exists); qerr != nil {
			return nil, fmt.Errorf("resolve appeal: %w", qerr)
		}
		if !exists {
			return nil, domerr.ErrAppealNotFound
		}
		return nil, domerr.ErrAppealResolved
	}
	if err != nil {
		return nil, fmt.Errorf("resolve appeal: %w", err)
	}
	return a, nil
}

// ─── steal offers ───────────────────────────────────────────────────

const offerCols = `id, session_id, player_id, offerer_id, owner_id, amount, status, created_at`

func scanOffer(r rowScanner) (*domain.StealOffer, error) {
	var o domain.StealOffer
	err := r.Scan(&o.ID, &o.SessionID, &o.PlayerID, &o.OffererID, &o.OwnerID,
		&o.Amount, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateOffer(ctx context.Context, o *domain.StealOffer) error {
	const q = `
	INSERT INTO steal_offers (id, session_id, player_id, offerer_id, owner_id, amount, status, created_at)
	     VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.db.ExecContext(ctx, q,
		o.ID, o.SessionID, o.PlayerID, o.OffererID, o.OwnerID, o.Amount, o.Status, o.CreatedAt)
	if isUniqueViolation(err) {
		return domerr.ErrOfferExists
	}
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	return nil
}

func (s *Store) FindOffer(ctx context.Context, id uuid.UUID) (*domain.StealOffer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerCols+` FROM steal_offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find offer: %w", err)
	}
	return o, nil
}

func (s *Store) ListOffers(ctx context.Context, sessionID int64) ([]domain.StealOffer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerCols+` FROM steal_offers WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.StealOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func (s *Store) MarkOffer(ctx context.Context, id uuid.UUID, status domain.StealOfferStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE steal_offers SET status = $2 WHERE id = $1 AND status = 'OPEN'`,
		id, status)
	if err != nil {
		return fmt.Errorf("mark offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, ferr := s.FindOffer(ctx, id); ferr != nil {
			return ferr
		}
		return domerr.ErrOfferNotOpen
	}
	return nil
}
