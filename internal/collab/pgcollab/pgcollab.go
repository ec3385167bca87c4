// Package pgcollab backs the collaborator interfaces with the league
// tables. Sessions, members, players and rosters are owned by the
// league side of the system; the auction engine only reads them,
// except for Settle, whose per-auction ledger row guarantees a
// retried close cannot double-spend.
package pgcollab

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fantasta/internal/collab"
	"fantasta/internal/domain"
	"fantasta/internal/domerr"
)

//go:embed schema.sql
var schemaSQL string

// per-role roster limits, classic fantacalcio split
var roleSlots = map[string]int{"P": 3, "D": 8, "C": 8, "A": 6}

type Collab struct {
	db *sql.DB
}

var (
	_ collab.SessionService = (*Collab)(nil)
	_ collab.PlayerService  = (*Collab)(nil)
	_ collab.RosterService  = (*Collab)(nil)
	_ collab.MemberService  = (*Collab)(nil)
)

func New(db *sql.DB) *Collab { return &Collab{db: db} }

func (c *Collab) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply collab schema: %w", err)
	}
	return nil
}

func (c *Collab) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	s := &domain.Session{ID: id}
	err := c.db.QueryRowContext(ctx,
		`SELECT league_id, phase, timer_seconds FROM sessions WHERE id = $1`,
		id).Scan(&s.LeagueID, &s.Phase, &s.TimerSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (c *Collab) IsAdmin(ctx context.Context, memberID, leagueID int64) (bool, error) {
	var admin bool
	err := c.db.QueryRowContext(ctx,
		`SELECT is_admin FROM league_members WHERE member_id = $1 AND league_id = $2`,
		memberID, leagueID).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is admin: %w", err)
	}
	return admin, nil
}

func (c *Collab) GetPlayer(ctx context.Context, id int64) (*domain.Player, error) {
	p := &domain.Player{ID: id}
	err := c.db.QueryRowContext(ctx,
		`SELECT name, role FROM players WHERE id = $1`, id).Scan(&p.Name, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerr.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (c *Collab) IsPlayerAvailable(ctx context.Context, playerID, leagueID int64) (bool, error) {
	var taken bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM rosters WHERE league_id = $1 AND player_id = $2)`,
		leagueID, playerID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("player availability: %w", err)
	}
	return !taken, nil
}

func (c *Collab) OwnerOf(ctx context.Context, playerID, leagueID int64) (int64, error) {
	var owner int64
	err := c.db.QueryRowContext(ctx,
		`SELECT member_id FROM rosters WHERE league_id = $1 AND player_id = $2`,
		leagueID, playerID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("owner of player: %w", err)
	}
	return owner, nil
}

func (c *Collab) Budget(ctx context.Context, memberID int64) (int, error) {
	var budget int
	err := c.db.QueryRowContext(ctx,
		`SELECT budget FROM league_members WHERE member_id = $1 LIMIT 1`,
		memberID).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("member %d: %w", memberID, domerr.ErrForbidden)
	}
	if err != nil {
		return 0, fmt.Errorf("budget: %w", err)
	}
	return budget, nil
}

func (c *Collab) HasSlotAvailable(ctx context.Context, memberID, playerID int64) (bool, error) {
	var role string
	err := c.db.QueryRowContext(ctx,
		`SELECT role FROM players WHERE id = $1`, playerID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domerr.ErrPlayerNotFound
	}
	if err != nil {
		return false, fmt.Errorf("slot check: %w", err)
	}
	limit, ok := roleSlots[role]
	if !ok {
		limit = 25 // unknown role, fall back to total roster cap
	}

	var used int
	err = c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM rosters r JOIN players p ON p.id = r.player_id
		  WHERE r.member_id = $1 AND p.role = $2`,
		memberID, role).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("slot check: %w", err)
	}
	return used < limit, nil
}

// Settle applies the award and the budget deduction exactly once per
// auction. The settlements row is the idempotency gate: its insert,
// the roster upsert and the guarded budget decrement commit together,
// and a second settle for the same auction sees the existing row and
// changes nothing.
func (c *Collab) Settle(ctx context.Context, auctionID uuid.UUID, memberID, playerID int64, price int) error {
	var leagueID int64
	err := c.db.QueryRowContext(ctx,
		`SELECT league_id FROM league_members WHERE member_id = $1 LIMIT 1`,
		memberID).Scan(&leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("member %d: %w", memberID, domerr.ErrForbidden)
	}
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO settlements (auction_id, member_id, player_id, amount)
		      VALUES ($1,$2,$3,$4)
		 ON CONFLICT (auction_id) DO NOTHING`,
		auctionID, memberID, playerID, price)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// already settled; refuse silently only when it was the same winner
		var settled int64
		if err := tx.QueryRowContext(ctx,
			`SELECT member_id FROM settlements WHERE auction_id = $1`,
			auctionID).Scan(&settled); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		if settled != memberID {
			return fmt.Errorf("settle: auction %s already settled for member %d", auctionID, settled)
		}
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rosters (league_id, member_id, player_id, price)
		      VALUES ($1,$2,$3,$4)
		 ON CONFLICT (league_id, player_id) DO NOTHING`,
		leagueID, memberID, playerID, price)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	var owner int64
	if err := tx.QueryRowContext(ctx,
		`SELECT member_id FROM rosters WHERE league_id = $1 AND player_id = $2`,
		leagueID, playerID).Scan(&owner); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if owner != memberID {
		return domerr.ErrPlayerTaken
	}

	dres, err := tx.ExecContext(ctx,
		`UPDATE league_members SET budget = budget - $2
		  WHERE member_id = $1 AND budget >= $2`,
		memberID, price)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if n, _ := dres.RowsAffected(); n == 0 {
		return domerr.ErrInsufficientBudget
	}

	return tx.Commit()
}

func (c *Collab) MemberName(ctx context.Context, memberID int64) (string, error) {
	var name string
	err := c.db.QueryRowContext(ctx,
		`SELECT name FROM league_members WHERE member_id = $1 LIMIT 1`,
		memberID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domerr.ErrForbidden
	}
	if err != nil {
		return "", fmt.Errorf("member name: %w", err)
	}
	return name, nil
}
