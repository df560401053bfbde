package validatorpipeline

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/manastr/core/internal/match"
	"github.com/manastr/core/internal/mint"
	"github.com/manastr/core/internal/protocol"
)

// MintClient is the subset of mint.Client the pipeline needs, narrowed to an
// interface so it can run against a fake in tests without a live mint. All
// three operations are authority-gated: the spent query must disclose match
// bindings, which the public checkstate endpoint never does.
type MintClient interface {
	QuerySpent(ctx context.Context, req mint.QuerySpentRequest) ([]mint.SpentStatus, error)
	Burn(ctx context.Context, req mint.BurnRequest) error
	MintLoot(ctx context.Context, req mint.MintLootRequest) (mint.LootTokenResponse, error)
}

// Publisher is the relay capability the pipeline needs to emit the
// authoritative kind-7 event.
type Publisher interface {
	Publish(ctx context.Context, e protocol.Event) error
}

// Outcome summarizes a completed pipeline run for logging and tests.
type Outcome struct {
	Valid      bool
	Reason     string
	Winner     string // hex pubkey
	Resolution Resolution
	LootEvent  protocol.Event
}

// Pipeline runs the validator's nine-step check sequence against a match
// that has reached AwaitingClaims with both ClaimedResult events present.
type Pipeline struct {
	econ        Economics
	mintClient  MintClient
	idempotency *mint.IdempotencyStore
	publisher   Publisher
	priv        ed25519.PrivateKey
	validatorID string
	logger      log.Logger
}

// NewPipeline builds a Pipeline. priv is the validator's signing key for the
// LootDistribution event; validatorID is the allow-list identity used for
// mint authority requests and idempotency keys.
func NewPipeline(econ Economics, mintClient MintClient, publisher Publisher, priv ed25519.PrivateKey, validatorID string, logger log.Logger) *Pipeline {
	return &Pipeline{
		econ:        econ,
		mintClient:  mintClient,
		idempotency: mint.NewIdempotencyStore(),
		publisher:   publisher,
		priv:        priv,
		validatorID: validatorID,
		logger:      logger,
	}
}

// Run executes the full pipeline for s, which must be AwaitingClaims with
// both ClaimedResult events present (match.Machine.ReadyForPipeline reports
// this). Any failed check returns a non-nil Outcome with Valid=false and a
// Reason; callers should transition the match to Invalid and publish no
// kind-7 event in that case. A transient mint error returns a plain error
// so the caller can retry the whole run later without side effects beyond
// what the mint itself deduplicates by idempotency key.
func (p *Pipeline) Run(ctx context.Context, s *match.State, now time.Time) (Outcome, error) {
	if len(s.ClaimedResults) != 2 {
		return invalid("missing claimed results"), nil
	}
	challengerClaim, ok := s.ClaimedResults[s.Challenger]
	if !ok {
		return invalid("challenger never submitted a claimed result"), nil
	}
	acceptorClaim, ok := s.ClaimedResults[s.Acceptor]
	if !ok {
		return invalid("acceptor never submitted a claimed result"), nil
	}

	challengerTokens, acceptorTokens, secretsHex, outcome, err := p.checkTokens(ctx, s)
	if err != nil || !outcome.Valid && outcome.Reason != "" {
		return outcome, err
	}

	// Step 4: replay.
	replayed, err := replay(s)
	if err != nil {
		return Outcome{}, err
	}
	if replayed.digest != challengerClaim.FinalStateDigest || replayed.digest != acceptorClaim.FinalStateDigest {
		return invalid("claimed final state digest does not match replay"), nil
	}

	// Step 5: consensus.
	validatorWinner := winnerPubKey(s, replayed.winner)
	if challengerClaim.ClaimedWinner != validatorWinner || acceptorClaim.ClaimedWinner != validatorWinner {
		return invalid("claimed winners disagree with validator replay"), nil
	}

	totalWager := uint64(len(challengerTokens.Tokens) + len(acceptorTokens.Tokens))
	return p.finalize(ctx, s, validatorWinner, secretsHex, totalWager, now,
		"replay, token authenticity, double-spend, and consensus checks passed")
}

// RunForfeit mints loot for a player who met every obligation in a match
// whose opponent let AwaitingClaims expire without submitting a claim. It
// skips Run's claimed-result and consensus checks — by construction at most
// one ClaimedResult exists — but still runs the mint authenticity and
// double-spend check against both sides' revealed tokens, since both are
// already on the table by the time a match reaches AwaitingClaims.
func (p *Pipeline) RunForfeit(ctx context.Context, s *match.State, winner string, now time.Time) (Outcome, error) {
	if winner != s.Challenger && winner != s.Acceptor {
		return invalid("forfeit winner is not a participant in this match"), nil
	}

	challengerTokens, acceptorTokens, secretsHex, outcome, err := p.checkTokens(ctx, s)
	if err != nil || !outcome.Valid && outcome.Reason != "" {
		return outcome, err
	}

	totalWager := uint64(len(challengerTokens.Tokens) + len(acceptorTokens.Tokens))
	return p.finalize(ctx, s, winner, secretsHex, totalWager, now,
		"opponent failed to submit a claimed result before the phase deadline")
}

// checkTokens runs steps 2-3 (token authenticity and double-spend, via the
// signed authority-gated spent query) shared by Run and RunForfeit, plus the
// declared-wager-vs-revealed-count cross-check. An Outcome with Valid set
// and an empty Reason signals success; any non-nil error or populated-Reason
// Outcome should be returned directly by the caller.
func (p *Pipeline) checkTokens(ctx context.Context, s *match.State) (match.PlayerTokens, match.PlayerTokens, []string, Outcome, error) {
	challengerTokens, ok := s.PlayerTokens[s.Challenger]
	if !ok {
		return match.PlayerTokens{}, match.PlayerTokens{}, nil, invalid("challenger never revealed tokens"), nil
	}
	acceptorTokens, ok := s.PlayerTokens[s.Acceptor]
	if !ok {
		return match.PlayerTokens{}, match.PlayerTokens{}, nil, invalid("acceptor never revealed tokens"), nil
	}

	// WagerAmount from the Challenge is the per-player token count; each
	// side's revealed set must match it exactly, since the burn covers
	// exactly the revealed tokens.
	if uint64(len(challengerTokens.Tokens)) != s.WagerAmount {
		return match.PlayerTokens{}, match.PlayerTokens{}, nil, invalid(fmt.Sprintf("challenger revealed %d tokens against a declared wager of %d", len(challengerTokens.Tokens), s.WagerAmount)), nil
	}
	if uint64(len(acceptorTokens.Tokens)) != s.WagerAmount {
		return match.PlayerTokens{}, match.PlayerTokens{}, nil, invalid(fmt.Sprintf("acceptor revealed %d tokens against a declared wager of %d", len(acceptorTokens.Tokens), s.WagerAmount)), nil
	}

	allSecrets := append(append([][]byte{}, challengerTokens.Tokens...), acceptorTokens.Tokens...)
	secretsHex := make([]string, len(allSecrets))
	for i, secret := range allSecrets {
		secretsHex[i] = hex.EncodeToString(secret)
	}

	states, err := p.mintClient.QuerySpent(ctx, mint.QuerySpentRequest{
		MatchID:        s.MatchID,
		Secrets:        secretsHex,
		IdempotencyKey: mint.NewIdempotencyKey(),
	})
	if err != nil {
		return match.PlayerTokens{}, match.PlayerTokens{}, nil, Outcome{}, errors.Wrap(err, "validator pipeline: mint spent query")
	}
	if len(states) != len(secretsHex) {
		return match.PlayerTokens{}, match.PlayerTokens{}, nil, invalid("one or more revealed tokens are unknown to the mint"), nil
	}
	for _, st := range states {
		if st.Spent && st.MatchID != s.MatchID {
			return match.PlayerTokens{}, match.PlayerTokens{}, nil, invalid(fmt.Sprintf("token %s already spent in match %s", st.Secret, st.MatchID)), nil
		}
	}

	return challengerTokens, acceptorTokens, secretsHex, Outcome{Valid: true}, nil
}

// finalize runs steps 6-9 (economics, burn, mint, publish) shared by Run and
// RunForfeit, once a winner has been determined and the revealed tokens have
// cleared the authenticity and double-spend checks.
func (p *Pipeline) finalize(ctx context.Context, s *match.State, winner string, secretsHex []string, totalWager uint64, now time.Time, summary string) (Outcome, error) {
	resolution, err := Resolve(p.econ, totalWager)
	if err != nil {
		return invalid(err.Error()), nil
	}

	idemKey := idempotencyKey(p.validatorID, s.MatchID)

	// A run that already burned and minted under this key skips straight to
	// republishing the cached loot token; the mint's own idempotency by the
	// same key covers the crash-between-steps case this process-local cache
	// cannot see.
	lootToken, done := p.priorLoot(idemKey)
	if !done {
		// Step 7: burn. Idempotent by (validator_id, match_id): a retried
		// run after a crash reuses the same key and the mint treats it as a
		// no-op.
		if err := p.mintClient.Burn(ctx, mint.BurnRequest{
			MatchID:        s.MatchID,
			Secrets:        secretsHex,
			IdempotencyKey: idemKey,
		}); err != nil {
			return Outcome{}, errors.Wrap(err, "validator pipeline: burn")
		}

		// Step 8: mint loot, locked to the winner. Never proceeds past this
		// point without success; callers must re-invoke with the same match
		// state on any transient failure until it succeeds.
		winnerPub, err := hex.DecodeString(winner)
		if err != nil {
			return Outcome{}, errors.Wrap(err, "validator pipeline: decoding winner pubkey")
		}
		lootResp, err := p.mintClient.MintLoot(ctx, mint.MintLootRequest{
			MatchID:        s.MatchID,
			RecipientPub:   winnerPub,
			Amount:         resolution.Loot,
			IdempotencyKey: idemKey,
		})
		if err != nil {
			return Outcome{}, errors.Wrap(err, "validator pipeline: mint loot")
		}
		lootToken = lootResp.Token
		p.idempotency.Record(idemKey, mint.Outcome{Success: true, LootToken: lootToken})
	}

	// Step 9: publish.
	content, err := protocol.EncodeContent(protocol.LootDistributionContent{
		MatchID:           s.MatchID,
		Winner:            winner,
		LootToken:         lootToken,
		Fee:               resolution.Fee,
		ValidationSummary: summary,
	})
	if err != nil {
		return Outcome{}, errors.Wrap(err, "validator pipeline: encoding loot distribution content")
	}
	lootEvent, err := protocol.Sign(p.priv, protocol.KindLootDistribution, now.Unix(), protocol.MatchTags(s.MatchID), content)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "validator pipeline: signing loot distribution event")
	}
	if err := p.publisher.Publish(ctx, lootEvent); err != nil {
		return Outcome{}, errors.Wrap(err, "validator pipeline: publishing loot distribution")
	}

	level.Info(p.logger).Log("msg", "match resolved", "match_id", s.MatchID, "winner", winner, "loot", resolution.Loot, "fee", resolution.Fee)

	return Outcome{
		Valid:      true,
		Winner:     winner,
		Resolution: resolution,
		LootEvent:  lootEvent,
	}, nil
}

// RunForMachine adapts Run to internal/match's PipelineRunner interface, so
// a match.Registry can trigger the pipeline without internal/match ever
// importing this package. It discards everything Run returns beyond what
// the machine needs to finalize its own phase: the richer Outcome (loot
// event, resolution) is available only to callers that invoke Run directly.
func (p *Pipeline) RunForMachine(ctx context.Context, s *match.State, now time.Time) (match.PipelineResult, error) {
	outcome, err := p.Run(ctx, s, now)
	if err != nil {
		return match.PipelineResult{}, err
	}
	return match.PipelineResult{
		Valid:     outcome.Valid,
		Winner:    outcome.Winner,
		HasWinner: outcome.Valid,
		Reason:    outcome.Reason,
	}, nil
}

// MachineRunner adapts a Pipeline to internal/match's PipelineRunner
// interface in full: RunForMachine is the Pipeline method of the same name,
// and RunForfeitForMachine narrows RunForfeit's richer Outcome down to
// match.PipelineResult the same way RunForMachine narrows Run's, so a
// match.Registry can drive both the normal and forfeit paths without this
// package's Outcome type leaking into internal/match.
type MachineRunner struct {
	*Pipeline
}

// RunForfeit adapts Pipeline.RunForfeit to internal/match's PipelineRunner
// interface, mirroring RunForMachine's adaptation of Run.
func (m MachineRunner) RunForfeit(ctx context.Context, s *match.State, winner string, now time.Time) (match.PipelineResult, error) {
	outcome, err := m.Pipeline.RunForfeit(ctx, s, winner, now)
	if err != nil {
		return match.PipelineResult{}, err
	}
	return match.PipelineResult{
		Valid:     outcome.Valid,
		Winner:    outcome.Winner,
		HasWinner: outcome.Valid,
		Reason:    outcome.Reason,
	}, nil
}

// priorLoot reports whether a previous run under key already completed the
// burn and loot mint, returning the minted token if so.
func (p *Pipeline) priorLoot(key string) ([]byte, bool) {
	prior, ok := p.idempotency.Lookup(key)
	if !ok || !prior.Success {
		return nil, false
	}
	return prior.LootToken, true
}

func invalid(reason string) Outcome {
	return Outcome{Valid: false, Reason: reason}
}

func idempotencyKey(validatorID, matchID string) string {
	return validatorID + ":" + matchID
}
