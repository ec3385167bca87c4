package domain

// SessionPhase is the explicit market phase of a session. Use cases
// receive it on the Session read model and check it directly instead
// of relying on loose per-session flags.
type SessionPhase string

const (
	PhaseSetup   SessionPhase = "SETUP"
	PhaseAuction SessionPhase = "AUCTION"
	PhaseRubata  SessionPhase = "RUBATA"
	PhaseClosed  SessionPhase = "CLOSED"
)

// Session is the read model the session collaborator returns. The
// engine never writes sessions; it only checks phase and timer config.
type Session struct {
	ID           int64
	LeagueID     int64
	Phase        SessionPhase
	TimerSeconds int
}

// AcceptsAuctions reports whether new auctions may open in this phase.
func (s *Session) AcceptsAuctions() bool {
	return s.Phase == PhaseAuction || s.Phase == PhaseRubata
}

// Player is the read model the player collaborator returns.
type Player struct {
	ID   int64
	Name string
	Role string
}
