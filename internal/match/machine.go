package match

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/commitment"
	"github.com/manastr/core/internal/protocol"
	"github.com/manastr/core/internal/token"
)

// ErrOutOfOrder marks a rejection caused by an event arriving before its
// prerequisite (a reveal before its sibling commitment, or before the
// opponent's commitment). The registry treats it as a possible delivery gap
// and re-queries the relay by match tag rather than assuming the
// prerequisite was never published.
var ErrOutOfOrder = errors.New("prerequisite event not yet observed")

// Config holds the tunables the machine needs from configuration: round
// count, one deadline duration applied to every phase, league table, and the
// minimum total wager below which a match can never be valid.
type Config struct {
	RoundsPerMatch uint8
	PhaseDeadline  time.Duration
	LeagueTable    combat.ModifierTable
	MinTotalWager  uint64
}

// Machine drives one match's State through its lifecycle. It is not
// goroutine-safe by itself — internal/match/registry.go gives each Machine
// its own single-consumer goroutine so that every transition of one
// MatchId is strictly serialized and no two machines ever share memory.
type Machine struct {
	cfg   Config
	state *State
}

// NewMachine starts a fresh machine in the Challenged phase from a verified
// Challenge event.
func NewMachine(cfg Config, e protocol.Event, now time.Time) (*Machine, error) {
	c, err := protocol.DecodeChallenge(e)
	if err != nil {
		return nil, err
	}
	challenger := hex.EncodeToString(e.PubKey)
	st := NewState(e.ID, challenger, c.WagerAmount, c.LeagueID, c.TokenCommitment, c.ExpiresAt, now.Add(cfg.PhaseDeadline))
	return &Machine{cfg: cfg, state: st}, nil
}

// State returns the machine's current state for inspection. Callers must
// not mutate the returned value.
func (m *Machine) State() *State {
	return m.state
}

// Apply ingests one verified, correctly-tagged event for this match. It
// returns an error for any event that cannot be applied in the machine's
// current phase; callers drop the event without altering state on error,
// except where noted (a commitment/reveal mismatch is fatal to the match).
func (m *Machine) Apply(e protocol.Event, now time.Time) error {
	s := m.state
	if s.Phase.Terminal() {
		return errors.Errorf("match %s is terminal (%s): event ignored", s.MatchID, s.Phase)
	}

	author := hex.EncodeToString(e.PubKey)

	var err error
	switch e.Kind {
	case protocol.KindAcceptance:
		err = m.applyAcceptance(e, author, now)
	case protocol.KindTokenReveal:
		err = m.applyTokenReveal(e, author)
	case protocol.KindMoveCommitment:
		err = m.applyMoveCommitment(e, author)
	case protocol.KindMoveReveal:
		err = m.applyMoveReveal(e, author)
	case protocol.KindClaimedResult:
		err = m.applyClaimedResult(e, author)
	default:
		return errors.Errorf("match %s: unexpected event kind %s", s.MatchID, e.Kind)
	}
	if err != nil {
		return err
	}

	// Every accepted event pushes the phase deadline out: the clock measures
	// inactivity from the most recent event, not from phase entry.
	if !s.Phase.Terminal() {
		s.Deadline = now.Add(m.cfg.PhaseDeadline)
	}
	return nil
}

func (m *Machine) applyAcceptance(e protocol.Event, author string, now time.Time) error {
	s := m.state
	if s.Phase != PhaseChallenged {
		return errors.Errorf("acceptance rejected: match %s not in Challenged (phase=%s)", s.MatchID, s.Phase)
	}
	if author == s.Challenger {
		return errors.New("acceptance rejected: challenger cannot accept their own challenge")
	}
	if s.Acceptor != "" {
		return errors.New("acceptance rejected: match already has an acceptor")
	}
	if now.Unix() >= s.ExpiresAt {
		m.invalidate("challenge expired before acceptance", now)
		return errors.New("acceptance rejected: challenge already expired")
	}

	c, err := protocol.DecodeAcceptance(e)
	if err != nil {
		return err
	}
	if c.MatchID != s.MatchID {
		return errors.New("acceptance rejected: match id mismatch")
	}

	s.Acceptor = author
	s.TokenCommitments[author] = c.TokenCommitment
	s.Phase = PhaseAccepted
	return nil
}

func (m *Machine) applyTokenReveal(e protocol.Event, author string) error {
	s := m.state
	if s.Phase != PhaseAccepted {
		return errors.Errorf("token reveal rejected: match %s not in Accepted (phase=%s)", s.MatchID, s.Phase)
	}
	if author != s.Challenger && author != s.Acceptor {
		return errors.New("token reveal rejected: author is not a participant")
	}
	if _, already := s.PlayerTokens[author]; already {
		return errors.New("token reveal rejected: author already revealed")
	}

	c, err := protocol.DecodeTokenReveal(e)
	if err != nil {
		return err
	}
	if c.MatchID != s.MatchID {
		return errors.New("token reveal rejected: match id mismatch")
	}

	tokens := make([]token.Token, 0, len(c.Tokens))
	for _, raw := range c.Tokens {
		tok, ok := token.Decode(raw)
		if !ok {
			return errors.New("token reveal rejected: malformed token")
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return errors.New("token reveal rejected: empty token set")
	}

	payload := commitment.EncodeTokenSet(token.Secrets(tokens))
	commit, ok := s.TokenCommitments[author]
	if !ok {
		return errors.New("token reveal rejected: no prior commitment on file")
	}
	if !commitment.Verify(commitment.Digest(commit), payload, commitment.Nonce(c.Nonce)) {
		m.invalidate("token reveal does not match commitment", time.Time{})
		return errors.New("token reveal rejected: commitment mismatch")
	}

	leagueTable := m.cfg.LeagueTable
	if leagueTable == nil {
		leagueTable = combat.DefaultModifierTable()
	}
	s.PlayerTokens[author] = PlayerTokens{
		Tokens: token.Secrets(tokens),
		Army:   combat.GenerateArmyWithTable(tokens[0].C, s.LeagueID, leagueTable),
	}

	if len(s.PlayerTokens) == 2 {
		s.Phase = PhaseTokensRevealed
	}
	return nil
}

func (m *Machine) applyMoveCommitment(e protocol.Event, author string) error {
	s := m.state
	if s.Phase != PhaseTokensRevealed && s.Phase != PhaseInCombat {
		return errors.Errorf("move commitment rejected: match %s not in combat (phase=%s)", s.MatchID, s.Phase)
	}
	if author != s.Challenger && author != s.Acceptor {
		return errors.New("move commitment rejected: author is not a participant")
	}

	c, err := protocol.DecodeMoveCommitment(e)
	if err != nil {
		return err
	}
	if c.MatchID != s.MatchID {
		return errors.New("move commitment rejected: match id mismatch")
	}
	if c.RoundIndex != s.RoundIndex {
		return errors.Errorf("move commitment rejected: round %d does not match current round %d", c.RoundIndex, s.RoundIndex)
	}

	rb := s.roundBookkeeping(c.RoundIndex)
	if _, already := rb.Commitments[author]; already {
		return errors.New("move commitment rejected: author already committed this round")
	}
	rb.Commitments[author] = c.Commitment
	return nil
}

func (m *Machine) applyMoveReveal(e protocol.Event, author string) error {
	s := m.state
	if s.Phase != PhaseTokensRevealed && s.Phase != PhaseInCombat {
		return errors.Errorf("move reveal rejected: match %s not in combat (phase=%s)", s.MatchID, s.Phase)
	}
	if author != s.Challenger && author != s.Acceptor {
		return errors.New("move reveal rejected: author is not a participant")
	}

	c, err := protocol.DecodeMoveReveal(e)
	if err != nil {
		return err
	}
	if c.MatchID != s.MatchID {
		return errors.New("move reveal rejected: match id mismatch")
	}
	if c.RoundIndex != s.RoundIndex {
		return errors.Errorf("move reveal rejected: round %d does not match current round %d", c.RoundIndex, s.RoundIndex)
	}

	rb := s.roundBookkeeping(c.RoundIndex)
	commit, ok := rb.Commitments[author]
	if !ok {
		return errors.Wrap(ErrOutOfOrder, "move reveal rejected: no sibling commitment on file yet")
	}
	opponent := s.Opponent(author)
	if _, ok := rb.Commitments[opponent]; !ok {
		return errors.Wrap(ErrOutOfOrder, "move reveal rejected: opponent has not committed this round yet")
	}
	if _, already := rb.Moves[author]; already {
		return errors.New("move reveal rejected: author already revealed this round")
	}

	var abilities [4]combat.Ability
	for i, a := range c.Abilities {
		abilities[i] = combat.Ability(a)
	}
	moves := combat.MoveSet{Positions: c.Positions, Abilities: abilities}
	payload := commitment.EncodeMoveSet(c.RoundIndex, c.Positions, c.Abilities)
	if !commitment.Verify(commitment.Digest(commit), payload, commitment.Nonce(c.Nonce)) {
		m.invalidate("move reveal does not match commitment", time.Time{})
		return errors.New("move reveal rejected: commitment mismatch")
	}
	rb.Moves[author] = moves

	if len(rb.Moves) < 2 {
		return nil
	}
	return m.resolveRound(c.RoundIndex)
}

func (m *Machine) resolveRound(round uint8) error {
	s := m.state
	rb := s.Rounds[round]

	challengerTokens := s.PlayerTokens[s.Challenger]
	acceptorTokens := s.PlayerTokens[s.Acceptor]

	challengerPub, _ := hex.DecodeString(s.Challenger)
	acceptorPub, _ := hex.DecodeString(s.Acceptor)

	result := combat.ResolveRound(
		challengerTokens.Army, rb.Moves[s.Challenger], challengerPub,
		acceptorTokens.Army, rb.Moves[s.Acceptor], acceptorPub,
	)

	s.RoundLog = append(s.RoundLog, result)
	challengerTokens.Army = result.ArmyA
	acceptorTokens.Army = result.ArmyB
	s.PlayerTokens[s.Challenger] = challengerTokens
	s.PlayerTokens[s.Acceptor] = acceptorTokens

	s.RoundIndex++
	if s.RoundIndex < m.cfg.RoundsPerMatch {
		s.Phase = PhaseInCombat
	} else {
		s.Phase = PhaseAwaitingClaims
	}
	return nil
}

func (m *Machine) applyClaimedResult(e protocol.Event, author string) error {
	s := m.state
	if s.Phase != PhaseAwaitingClaims {
		return errors.Errorf("claimed result rejected: match %s not AwaitingClaims (phase=%s)", s.MatchID, s.Phase)
	}
	if author != s.Challenger && author != s.Acceptor {
		return errors.New("claimed result rejected: author is not a participant")
	}
	if _, already := s.ClaimedResults[author]; already {
		return errors.New("claimed result rejected: author already claimed")
	}

	c, err := protocol.DecodeClaimedResult(e)
	if err != nil {
		return err
	}
	if c.MatchID != s.MatchID {
		return errors.New("claimed result rejected: match id mismatch")
	}

	s.ClaimedResults[author] = c
	return nil
}

// ReadyForPipeline reports whether both players' ClaimedResult events have
// been observed and the validator pipeline should now run.
func (m *Machine) ReadyForPipeline() bool {
	return m.state.Phase == PhaseAwaitingClaims && len(m.state.ClaimedResults) == 2
}

func (m *Machine) invalidate(reason string, at time.Time) {
	s := m.state
	s.Phase = PhaseInvalid
	s.Terminal = &TerminalResult{Reason: reason, InvalidAt: at}
}
