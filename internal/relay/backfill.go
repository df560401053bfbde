package relay

import (
	"github.com/manastr/core/internal/protocol"
)

// Backfill re-queries a single match's full event history by its "match"
// tag. Callers use this on gap detection — for example, internal/match
// observing a MoveReveal whose sibling MoveCommitment never arrived — to
// recover from missed deliveries without waiting for a full reconnect.
func (a *Adapter) Backfill(matchID string, kinds ...protocol.Kind) {
	if len(kinds) == 0 {
		kinds = []protocol.Kind{
			protocol.KindChallenge,
			protocol.KindAcceptance,
			protocol.KindTokenReveal,
			protocol.KindMoveCommitment,
			protocol.KindMoveReveal,
			protocol.KindClaimedResult,
		}
	}

	f := Filter{Kinds: kinds, MatchID: matchID}

	a.connsMu.Lock()
	conns := make([]Conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.connsMu.Unlock()

	for _, c := range conns {
		a.sendSubscribe(c, f)
	}
}
