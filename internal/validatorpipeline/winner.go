// Package validatorpipeline implements the C5 validator pipeline: the nine
// checks a completed match must pass before the validator burns its wagered
// tokens and mints a loot token to the winner.
package validatorpipeline

import (
	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/match"
)

// winnerPubKey resolves a combat.Winner against a match's two hex-encoded
// participant pubkeys.
func winnerPubKey(s *match.State, w combat.Winner) string {
	if w == combat.WinnerA {
		return s.Challenger
	}
	return s.Acceptor
}
