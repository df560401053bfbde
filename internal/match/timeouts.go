package match

import (
	"time"

	"github.com/manastr/core/internal/combat"
)

// CheckDeadline transitions the machine to Expired if now is past the
// current phase's deadline. On AwaitingClaims expiry, a player who met all
// their obligations (revealed tokens, committed and revealed every round,
// and submitted a ClaimedResult) inherits the win over one who did not;
// if neither or both met their obligations, Expired produces no winner and
// therefore no loot event.
func (m *Machine) CheckDeadline(now time.Time) bool {
	s := m.state
	if s.Phase.Terminal() {
		return false
	}
	if now.Before(s.Deadline) {
		return false
	}

	if s.Phase == PhaseAwaitingClaims {
		m.expireAwaitingClaims(now)
		return true
	}

	s.Phase = PhaseExpired
	s.Terminal = &TerminalResult{Reason: "phase deadline exceeded", InvalidAt: now}
	return true
}

func (m *Machine) expireAwaitingClaims(now time.Time) {
	s := m.state

	challengerMet := m.metObligations(s.Challenger)
	acceptorMet := m.metObligations(s.Acceptor)

	s.Phase = PhaseExpired

	switch {
	case challengerMet && !acceptorMet:
		s.Terminal = &TerminalResult{Winner: combat.WinnerA, HasWinner: true, Reason: "acceptor failed to claim before deadline", InvalidAt: now}
	case acceptorMet && !challengerMet:
		s.Terminal = &TerminalResult{Winner: combat.WinnerB, HasWinner: true, Reason: "challenger failed to claim before deadline", InvalidAt: now}
	default:
		s.Terminal = &TerminalResult{Reason: "neither or both players met claim obligations before deadline", InvalidAt: now}
	}
}

// metObligations reports whether author revealed tokens and, for every
// completed round, both committed and revealed a move.
func (m *Machine) metObligations(author string) bool {
	s := m.state
	if author == "" {
		return false
	}
	if _, ok := s.PlayerTokens[author]; !ok {
		return false
	}
	for round := uint8(0); round < s.RoundIndex; round++ {
		rb, ok := s.Rounds[round]
		if !ok {
			return false
		}
		if _, ok := rb.Commitments[author]; !ok {
			return false
		}
		if _, ok := rb.Moves[author]; !ok {
			return false
		}
	}
	if _, ok := s.ClaimedResults[author]; !ok {
		return false
	}
	return true
}
