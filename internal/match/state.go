// Package match implements the C4 per-match state machine: event ingest,
// ordering, commitment/reveal bookkeeping, timeouts, and the task-per-match
// concurrency model that keeps every MatchId's transitions isolated from
// every other match's.
package match

import (
	"time"

	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/protocol"
)

// Phase is one state of a match's lifecycle.
type Phase uint8

const (
	PhaseChallenged Phase = iota
	PhaseAccepted
	PhaseTokensRevealed
	PhaseInCombat
	PhaseAwaitingClaims
	PhaseCompleted
	PhaseInvalid
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseChallenged:
		return "challenged"
	case PhaseAccepted:
		return "accepted"
	case PhaseTokensRevealed:
		return "tokens_revealed"
	case PhaseInCombat:
		return "in_combat"
	case PhaseAwaitingClaims:
		return "awaiting_claims"
	case PhaseCompleted:
		return "completed"
	case PhaseInvalid:
		return "invalid"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseInvalid || p == PhaseExpired
}

// PlayerTokens is one player's revealed token material for a match: the raw
// token secrets (opaque outside the mint) and the derived combat army.
type PlayerTokens struct {
	Tokens [][]byte
	Army   combat.Army
}

// RoundBookkeeping tracks one round's commitments and reveals for both
// players, keyed by author public key (hex-encoded).
type RoundBookkeeping struct {
	Commitments map[string][32]byte
	Moves       map[string]combat.MoveSet
}

// TerminalResult is recorded once a match reaches Completed, Invalid, or
// Expired, independent of whether a LootDistribution was ever published.
// LootPublished distinguishes a forfeit win (Expired, HasWinner) that has
// already minted its winner's loot from one still waiting for the pipeline
// to do so.
type TerminalResult struct {
	Winner        combat.Winner
	HasWinner     bool
	Reason        string
	InvalidAt     time.Time
	LootPublished bool
}

// State is the full mutable state of one match, mutated only by accepted
// events whose (kind, author, round, predecessor-ref) matches the machine's
// expected next transition.
type State struct {
	MatchID string

	Phase Phase

	Challenger string // hex pubkey
	Acceptor   string // hex pubkey, empty until Accepted

	// WagerAmount is the per-player token count declared in the Challenge.
	// The validator pipeline rejects the match if either side's revealed
	// token set does not match it exactly.
	WagerAmount uint64

	LeagueID  uint8
	ExpiresAt int64

	TokenCommitments map[string][32]byte // author -> commitment
	PlayerTokens     map[string]PlayerTokens

	RoundIndex uint8
	Rounds     map[uint8]*RoundBookkeeping
	RoundLog   []combat.RoundResult

	ClaimedResults map[string]protocol.ClaimedResultContent

	Deadline time.Time

	Terminal *TerminalResult
}

// NewState creates the initial Challenged-phase state for a newly observed
// Challenge event.
func NewState(matchID, challenger string, wager uint64, leagueID uint8, tokenCommitment [32]byte, expiresAt int64, deadline time.Time) *State {
	return &State{
		MatchID:          matchID,
		Phase:            PhaseChallenged,
		Challenger:       challenger,
		WagerAmount:      wager,
		LeagueID:         leagueID,
		ExpiresAt:        expiresAt,
		TokenCommitments: map[string][32]byte{challenger: tokenCommitment},
		PlayerTokens:     map[string]PlayerTokens{},
		Rounds:           map[uint8]*RoundBookkeeping{},
		ClaimedResults:   map[string]protocol.ClaimedResultContent{},
		Deadline:         deadline,
	}
}

func (s *State) roundBookkeeping(round uint8) *RoundBookkeeping {
	rb, ok := s.Rounds[round]
	if !ok {
		rb = &RoundBookkeeping{
			Commitments: map[string][32]byte{},
			Moves:       map[string]combat.MoveSet{},
		}
		s.Rounds[round] = rb
	}
	return rb
}

// Opponent returns the other player's pubkey given one side's, or "" if
// both sides are not yet known.
func (s *State) Opponent(author string) string {
	switch author {
	case s.Challenger:
		return s.Acceptor
	case s.Acceptor:
		return s.Challenger
	default:
		return ""
	}
}
