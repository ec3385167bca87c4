// Package memstore is a mutex-guarded in-memory implementation of the
// store contract. It backs the service tests and the concurrency
// property tests; the single lock gives PlaceBid the same all-or-
// nothing visibility the SQL store gets from its transaction.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fantasta/internal/domain"
	"fantasta/internal/domerr"
	"fantasta/internal/store"
)

type Store struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]*domain.Bid // auctionID -> bids in placement order
	appeals  map[uuid.UUID]*domain.Appeal
	offers   map[uuid.UUID]*domain.StealOffer
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]*domain.Bid),
		appeals:  make(map[uuid.UUID]*domain.Appeal),
		offers:   make(map[uuid.UUID]*domain.StealOffer),
	}
}

func (s *Store) Create(_ context.Context, a *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.auctions {
		if other.SessionID == a.SessionID && other.Status == domain.AuctionActive {
			return domerr.ErrAuctionExists
		}
	}
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *Store) findLocked(id uuid.UUID) (*domain.Auction, error) {
	a, ok := s.auctions[id]
	if !ok {
		return nil, domerr.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) FindActiveBySession(_ context.Context, sessionID int64) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.auctions {
		if a.SessionID == sessionID && a.Status == domain.AuctionActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domerr.ErrAuctionNotFound
}

func (s *Store) FindMany(_ context.Context, f store.AuctionFilter) ([]domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []domain.Auction
	for _, a := range s.auctions {
		if f.SessionID != 0 && a.SessionID != f.SessionID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return nil, nil
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(list) {
		list = list[:f.Limit]
	}
	return list, nil
}

func (s *Store) PlaceBid(_ context.Context, auctionID uuid.UUID, bidderID int64, amount int, expiresAt time.Time) (*store.BidPlacement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, domerr.ErrAuctionNotFound
	}
	if a.Status != domain.AuctionActive {
		return nil, domerr.ErrAuctionNotActive
	}
	if amount <= a.CurrentPrice {
		return nil, fmt.Errorf("%w: current price is %d", domerr.ErrBidTooLow, a.CurrentPrice)
	}

	var previous *int64
	for _, b := range s.bids[auctionID] {
		if b.IsWinning {
			b.IsWinning = false
			id := b.BidderID
			previous = &id
		}
	}

	bid := &domain.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		IsWinning: true,
		PlacedAt:  time.Now().UTC(),
	}
	s.bids[auctionID] = append(s.bids[auctionID], bid)

	a.CurrentPrice = amount
	a.CurrentWinnerID = &bidderID
	exp := expiresAt
	a.TimerExpiresAt = &exp

	return &store.BidPlacement{Bid: *bid, PreviousWinnerID: previous}, nil
}

func (s *Store) terminate(id uuid.UUID, status domain.AuctionStatus, at time.Time) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, domerr.ErrAuctionNotFound
	}
	if a.Status != domain.AuctionActive {
		return nil, domerr.ErrAuctionNotActive
	}
	a.Status = status
	closed := at
	a.ClosedAt = &closed
	a.TimerExpiresAt = nil
	cp := *a
	return &cp, nil
}

func (s *Store) Close(_ context.Context, id uuid.UUID, closedAt time.Time) (*domain.Auction, error) {
	return s.terminate(id, domain.AuctionClosed, closedAt)
}

func (s *Store) Cancel(_ context.Context, id uuid.UUID, closedAt time.Time) (*domain.Auction, error) {
	return s.terminate(id, domain.AuctionCancelled, closedAt)
}

func (s *Store) ResetTimer(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok || a.Status != domain.AuctionActive {
		return domerr.ErrAuctionNotActive
	}
	exp := expiresAt
	a.TimerExpiresAt = &exp
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, status domain.AuctionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return domerr.ErrAuctionNotFound
	}
	a.Status = status
	return nil
}

func (s *Store) ListBids(_ context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		out = append(out, *b)
	}
	return out, nil
}

func (s *Store) WinningBid(_ context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bids[auctionID] {
		if b.IsWinning {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateAppeal(_ context.Context, a *domain.Appeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.appeals {
		if other.AuctionID == a.AuctionID {
			return domerr.ErrAppealExists
		}
	}
	cp := *a
	s.appeals[a.ID] = &cp
	return nil
}

func (s *Store) FindAppealByAuction(_ context.Context, auctionID uuid.UUID) (*domain.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.appeals {
		if a.AuctionID == auctionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domerr.ErrAppealNotFound
}

func (s *Store) ResolveAppeal(_ context.Context, id uuid.UUID, status domain.AppealStatus, resolution string, resolvedAt time.Time) (*domain.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appeals[id]
	if !ok {
		return nil, domerr.ErrAppealNotFound
	}
	if a.Status != domain.AppealPending {
		return nil, domerr.ErrAppealResolved
	}
	a.Status = status
	res := resolution
	a.Resolution = &res
	at := resolvedAt
	a.ResolvedAt = &at
	cp := *a
	return &cp, nil
}

func (s *Store) CreateOffer(_ context.Context, o *domain.StealOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.offers {
		if other.SessionID == o.SessionID && other.PlayerID == o.PlayerID && other.Status == domain.OfferOpen {
			return domerr.ErrOfferExists
		}
	}
	cp := *o
	s.offers[o.ID] = &cp
	return nil
}

func (s *Store) FindOffer(_ context.Context, id uuid.UUID) (*domain.StealOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return nil, domerr.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Store) ListOffers(_ context.Context, sessionID int64) ([]domain.StealOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.StealOffer
	for _, o := range s.offers {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkOffer(_ context.Context, id uuid.UUID, status domain.StealOfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return domerr.ErrOfferNotFound
	}
	if o.Status != domain.OfferOpen {
		return domerr.ErrOfferNotOpen
	}
	o.Status = status
	return nil
}
