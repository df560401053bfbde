package validatorpipeline

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/match"
)

// replayResult is the validator's own derivation of a completed match's
// outcome, independent of anything either player claims.
type replayResult struct {
	winner combat.Winner
	digest [32]byte
}

// replay re-derives the match outcome purely from state already verified by
// the machine (round log, participant armies) — it does not touch the
// network or the mint. A mismatch here means the machine's own bookkeeping
// disagrees with the kernel, which should never happen for a match that
// reached AwaitingClaims honestly; it is kept as a defensive recheck rather
// than trusted blindly from the machine.
func replay(s *match.State) (replayResult, error) {
	if len(s.RoundLog) == 0 {
		return replayResult{}, errors.New("validator pipeline: no round log to replay")
	}

	challengerPub, err := hex.DecodeString(s.Challenger)
	if err != nil {
		return replayResult{}, errors.Wrap(err, "validator pipeline: decoding challenger pubkey")
	}
	acceptorPub, err := hex.DecodeString(s.Acceptor)
	if err != nil {
		return replayResult{}, errors.Wrap(err, "validator pipeline: decoding acceptor pubkey")
	}

	winner := combat.ResolveMatch(s.RoundLog, challengerPub, acceptorPub)
	digest := combat.FinalStateDigest(s.RoundLog)

	return replayResult{winner: winner, digest: digest}, nil
}
