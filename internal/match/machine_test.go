package match

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/commitment"
	"github.com/manastr/core/internal/protocol"
	"github.com/manastr/core/internal/token"
)

type player struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	hex  string
}

func newPlayer(t *testing.T) player {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return player{pub: pub, priv: priv, hex: hex.EncodeToString(pub)}
}

func testConfig() Config {
	return Config{
		RoundsPerMatch: 2,
		PhaseDeadline:  time.Minute,
		LeagueTable:    combat.DefaultModifierTable(),
		MinTotalWager:  2,
	}
}

func mustToken(seed byte) token.Token {
	var c [32]byte
	for i := range c {
		c[i] = seed + byte(i)
	}
	return token.Token{Kind: token.KindMana, Secret: []byte{seed, seed + 1}, C: c}
}

func signChallenge(t *testing.T, p player, wager uint64, leagueID uint8, commit [32]byte, expiresAt int64) protocol.Event {
	t.Helper()
	content, err := protocol.EncodeContent(protocol.ChallengeContent{
		WagerAmount: wager, LeagueID: leagueID, TokenCommitment: commit, ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	e, err := protocol.Sign(p.priv, protocol.KindChallenge, 1, nil, content)
	require.NoError(t, err)
	return e
}

func signAcceptance(t *testing.T, p player, matchID string, commit [32]byte) protocol.Event {
	t.Helper()
	content, err := protocol.EncodeContent(protocol.AcceptanceContent{MatchID: matchID, TokenCommitment: commit})
	require.NoError(t, err)
	e, err := protocol.Sign(p.priv, protocol.KindAcceptance, 2, protocol.MatchTags(matchID), content)
	require.NoError(t, err)
	return e
}

func signTokenReveal(t *testing.T, p player, matchID string, toks []token.Token, nonce commitment.Nonce) protocol.Event {
	t.Helper()
	raws := make([][]byte, len(toks))
	for i, tok := range toks {
		raws[i] = tok.Encode()
	}
	content, err := protocol.EncodeContent(protocol.TokenRevealContent{MatchID: matchID, Tokens: raws, Nonce: [32]byte(nonce)})
	require.NoError(t, err)
	e, err := protocol.Sign(p.priv, protocol.KindTokenReveal, 3, protocol.MatchTags(matchID), content)
	require.NoError(t, err)
	return e
}

func signMoveCommitment(t *testing.T, p player, matchID string, round uint8, commit [32]byte) protocol.Event {
	t.Helper()
	content, err := protocol.EncodeContent(protocol.MoveCommitmentContent{MatchID: matchID, RoundIndex: round, Commitment: commit})
	require.NoError(t, err)
	e, err := protocol.Sign(p.priv, protocol.KindMoveCommitment, 4, protocol.RoundTags(matchID, round), content)
	require.NoError(t, err)
	return e
}

func signMoveReveal(t *testing.T, p player, matchID string, round uint8, positions, abilities [4]uint8, nonce commitment.Nonce) protocol.Event {
	t.Helper()
	content, err := protocol.EncodeContent(protocol.MoveRevealContent{
		MatchID: matchID, RoundIndex: round, Positions: positions, Abilities: abilities, Nonce: [32]byte(nonce),
	})
	require.NoError(t, err)
	e, err := protocol.Sign(p.priv, protocol.KindMoveReveal, 5, protocol.RoundTags(matchID, round), content)
	require.NoError(t, err)
	return e
}

func signClaimedResult(t *testing.T, p player, matchID, winner string) protocol.Event {
	t.Helper()
	content, err := protocol.EncodeContent(protocol.ClaimedResultContent{MatchID: matchID, ClaimedWinner: winner})
	require.NoError(t, err)
	e, err := protocol.Sign(p.priv, protocol.KindClaimedResult, 6, protocol.MatchTags(matchID), content)
	require.NoError(t, err)
	return e
}

func TestMachine_ChallengeThenAcceptance(t *testing.T) {
	challenger := newPlayer(t)
	acceptor := newPlayer(t)

	challengeEvent := signChallenge(t, challenger, 10, 0, [32]byte{}, time.Now().Add(time.Hour).Unix())
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)
	require.Equal(t, PhaseChallenged, m.State().Phase)

	acceptEvent := signAcceptance(t, acceptor, challengeEvent.ID, [32]byte{1})
	require.NoError(t, m.Apply(acceptEvent, time.Now()))
	require.Equal(t, PhaseAccepted, m.State().Phase)
	require.Equal(t, acceptor.hex, m.State().Acceptor)
}

func TestMachine_AcceptanceRejectsChallengerSelfAccept(t *testing.T) {
	challenger := newPlayer(t)
	challengeEvent := signChallenge(t, challenger, 10, 0, [32]byte{}, time.Now().Add(time.Hour).Unix())
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)

	selfAccept := signAcceptance(t, challenger, challengeEvent.ID, [32]byte{1})
	require.Error(t, m.Apply(selfAccept, time.Now()))
	require.Equal(t, PhaseChallenged, m.State().Phase)
}

func TestMachine_AcceptanceRejectsAfterExpiry(t *testing.T) {
	challenger := newPlayer(t)
	acceptor := newPlayer(t)
	expiresAt := time.Now().Add(time.Second).Unix()
	challengeEvent := signChallenge(t, challenger, 10, 0, [32]byte{}, expiresAt)
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)

	acceptEvent := signAcceptance(t, acceptor, challengeEvent.ID, [32]byte{1})
	late := time.Unix(expiresAt+10, 0)
	require.Error(t, m.Apply(acceptEvent, late))
	require.Equal(t, PhaseInvalid, m.State().Phase)
}

func TestMachine_TokenRevealDerivesArmiesOnBothSides(t *testing.T) {
	challenger := newPlayer(t)
	acceptor := newPlayer(t)

	challengeEvent := signChallenge(t, challenger, 10, 0, [32]byte{}, time.Now().Add(time.Hour).Unix())
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)

	matchID := challengeEvent.ID

	var nonceA, nonceB commitment.Nonce
	nonceA[0], nonceB[0] = 1, 2
	tokA := mustToken(10)
	tokB := mustToken(20)
	commitA := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokA})), nonceA)
	commitB := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokB})), nonceB)

	require.NoError(t, m.Apply(signAcceptance(t, acceptor, matchID, commitB), time.Now()))

	// Re-create machine with challenger's real commitment (NewMachine used a zero commitment above for brevity).
	challengeEvent2 := signChallenge(t, challenger, 10, 0, commitA, time.Now().Add(time.Hour).Unix())
	m2, err := NewMachine(testConfig(), challengeEvent2, time.Now())
	require.NoError(t, err)
	matchID2 := challengeEvent2.ID
	require.NoError(t, m2.Apply(signAcceptance(t, acceptor, matchID2, commitB), time.Now()))

	require.NoError(t, m2.Apply(signTokenReveal(t, challenger, matchID2, []token.Token{tokA}, nonceA), time.Now()))
	require.Equal(t, PhaseAccepted, m2.State().Phase)

	require.NoError(t, m2.Apply(signTokenReveal(t, acceptor, matchID2, []token.Token{tokB}, nonceB), time.Now()))
	require.Equal(t, PhaseTokensRevealed, m2.State().Phase)

	require.NotZero(t, m2.State().PlayerTokens[challenger.hex].Army)
	require.NotZero(t, m2.State().PlayerTokens[acceptor.hex].Army)
}

func TestMachine_TokenRevealMismatchInvalidatesMatch(t *testing.T) {
	challenger := newPlayer(t)
	acceptor := newPlayer(t)

	var nonceA commitment.Nonce
	tokA := mustToken(1)
	commitA := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokA})), nonceA)

	challengeEvent := signChallenge(t, challenger, 10, 0, commitA, time.Now().Add(time.Hour).Unix())
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)
	matchID := challengeEvent.ID

	require.NoError(t, m.Apply(signAcceptance(t, acceptor, matchID, [32]byte{9}), time.Now()))

	wrongToken := mustToken(99)
	require.Error(t, m.Apply(signTokenReveal(t, challenger, matchID, []token.Token{wrongToken}, nonceA), time.Now()))
	require.Equal(t, PhaseInvalid, m.State().Phase)
}

func fullMatchThroughCombat(t *testing.T, rounds uint8) (*Machine, player, player, string) {
	t.Helper()
	challenger := newPlayer(t)
	acceptor := newPlayer(t)

	var nonceA, nonceB commitment.Nonce
	nonceA[0], nonceB[0] = 1, 2
	tokA := mustToken(10)
	tokB := mustToken(20)
	commitA := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokA})), nonceA)
	commitB := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokB})), nonceB)

	challengeEvent := signChallenge(t, challenger, 10, 0, commitA, time.Now().Add(time.Hour).Unix())
	cfg := testConfig()
	cfg.RoundsPerMatch = rounds
	m, err := NewMachine(cfg, challengeEvent, time.Now())
	require.NoError(t, err)
	matchID := challengeEvent.ID

	require.NoError(t, m.Apply(signAcceptance(t, acceptor, matchID, commitB), time.Now()))
	require.NoError(t, m.Apply(signTokenReveal(t, challenger, matchID, []token.Token{tokA}, nonceA), time.Now()))
	require.NoError(t, m.Apply(signTokenReveal(t, acceptor, matchID, []token.Token{tokB}, nonceB), time.Now()))

	positions := [4]uint8{0, 1, 2, 3}
	abilities := [4]uint8{0, 0, 0, 0}

	for round := uint8(0); round < rounds; round++ {
		var moveNonceA, moveNonceB commitment.Nonce
		moveNonceA[0], moveNonceB[0] = byte(round + 1), byte(round + 2)
		payload := commitment.EncodeMoveSet(round, positions, abilities)
		mcA := commitment.Commit(payload, moveNonceA)
		mcB := commitment.Commit(payload, moveNonceB)

		require.NoError(t, m.Apply(signMoveCommitment(t, challenger, matchID, round, mcA), time.Now()))
		require.NoError(t, m.Apply(signMoveCommitment(t, acceptor, matchID, round, mcB), time.Now()))
		require.NoError(t, m.Apply(signMoveReveal(t, challenger, matchID, round, positions, abilities, moveNonceA), time.Now()))
		require.NoError(t, m.Apply(signMoveReveal(t, acceptor, matchID, round, positions, abilities, moveNonceB), time.Now()))
	}

	return m, challenger, acceptor, matchID
}

func TestMachine_CombatRoundsAdvanceToAwaitingClaims(t *testing.T) {
	m, _, _, _ := fullMatchThroughCombat(t, 2)
	require.Equal(t, PhaseAwaitingClaims, m.State().Phase)
	require.Len(t, m.State().RoundLog, 2)
}

func TestMachine_MoveRevealBeforeCommitmentRejected(t *testing.T) {
	challenger := newPlayer(t)
	acceptor := newPlayer(t)

	var nonceA, nonceB commitment.Nonce
	tokA := mustToken(1)
	tokB := mustToken(2)
	commitA := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokA})), nonceA)
	commitB := commitment.Commit(commitment.EncodeTokenSet(token.Secrets([]token.Token{tokB})), nonceB)

	challengeEvent := signChallenge(t, challenger, 10, 0, commitA, time.Now().Add(time.Hour).Unix())
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)
	matchID := challengeEvent.ID

	require.NoError(t, m.Apply(signAcceptance(t, acceptor, matchID, commitB), time.Now()))
	require.NoError(t, m.Apply(signTokenReveal(t, challenger, matchID, []token.Token{tokA}, nonceA), time.Now()))
	require.NoError(t, m.Apply(signTokenReveal(t, acceptor, matchID, []token.Token{tokB}, nonceB), time.Now()))

	var moveNonce commitment.Nonce
	positions := [4]uint8{0, 1, 2, 3}
	abilities := [4]uint8{0, 0, 0, 0}
	revealBeforeCommit := signMoveReveal(t, challenger, matchID, 0, positions, abilities, moveNonce)
	require.Error(t, m.Apply(revealBeforeCommit, time.Now()))
}

func TestMachine_ClaimedResultReadyForPipeline(t *testing.T) {
	m, challenger, acceptor, matchID := fullMatchThroughCombat(t, 1)

	require.NoError(t, m.Apply(signClaimedResult(t, challenger, matchID, "challenger"), time.Now()))
	require.False(t, m.ReadyForPipeline())
	require.NoError(t, m.Apply(signClaimedResult(t, acceptor, matchID, "challenger"), time.Now()))
	require.True(t, m.ReadyForPipeline())
}

func TestMachine_DeadlineExpiryFavorsPlayerWhoMetObligations(t *testing.T) {
	m, challenger, _, matchID := fullMatchThroughCombat(t, 1)
	require.NoError(t, m.Apply(signClaimedResult(t, challenger, matchID, "challenger"), time.Now()))

	past := m.State().Deadline.Add(time.Hour)
	expired := m.CheckDeadline(past)
	require.True(t, expired)
	require.Equal(t, PhaseExpired, m.State().Phase)
	require.True(t, m.State().Terminal.HasWinner)
}

func TestMachine_TerminalPhaseIgnoresFurtherEvents(t *testing.T) {
	challenger := newPlayer(t)
	acceptor := newPlayer(t)
	expiresAt := time.Now().Add(time.Second).Unix()
	challengeEvent := signChallenge(t, challenger, 10, 0, [32]byte{}, expiresAt)
	m, err := NewMachine(testConfig(), challengeEvent, time.Now())
	require.NoError(t, err)

	late := time.Unix(expiresAt+10, 0)
	_ = m.Apply(signAcceptance(t, acceptor, challengeEvent.ID, [32]byte{1}), late)
	require.Equal(t, PhaseInvalid, m.State().Phase)

	err = m.Apply(signAcceptance(t, acceptor, challengeEvent.ID, [32]byte{1}), time.Now())
	require.Error(t, err)
}
