package combat

import "bytes"

// Winner identifies the side that won a whole match.
type Winner uint8

const (
	WinnerA Winner = iota
	WinnerB
)

// ResolveMatch derives the overall match winner from the sequence of round
// results: the side with more round wins takes the match; ties are broken
// first by higher cumulative damage dealt across all rounds, then by the
// deterministic author-key tie-breaker.
func ResolveMatch(rounds []RoundResult, authorA, authorB []byte) Winner {
	var winsA, winsB int
	var damageA, damageB uint64

	for _, r := range rounds {
		if r.Winner == RoundWinnerA {
			winsA++
		} else {
			winsB++
		}
		damageA += uint64(r.DamageA)
		damageB += uint64(r.DamageB)
	}

	switch {
	case winsA > winsB:
		return WinnerA
	case winsB > winsA:
		return WinnerB
	}

	switch {
	case damageA > damageB:
		return WinnerA
	case damageB > damageA:
		return WinnerB
	}

	if bytes.Compare(authorA, authorB) < 0 {
		return WinnerA
	}
	return WinnerB
}
