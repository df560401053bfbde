package combat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalStateDigest_DeterministicAcrossIdenticalReplays(t *testing.T) {
	armyA := GenerateArmy([32]byte{1}, 0)
	armyB := GenerateArmy([32]byte{2}, 0)
	moves := MoveSet{Positions: [4]uint8{0, 1, 2, 3}}

	r1 := ResolveRound(armyA, moves, []byte("a"), armyB, moves, []byte("b"))
	r2 := ResolveRound(armyA, moves, []byte("a"), armyB, moves, []byte("b"))

	require.Equal(t, FinalStateDigest([]RoundResult{r1}), FinalStateDigest([]RoundResult{r2}))
}

func TestFinalStateDigest_DiffersOnDifferentRoundLogs(t *testing.T) {
	armyA := GenerateArmy([32]byte{1, 5}, 0)
	armyB := GenerateArmy([32]byte{2}, 0)
	movesA := MoveSet{Positions: [4]uint8{0, 1, 2, 3}}
	movesB := MoveSet{Positions: [4]uint8{3, 2, 1, 0}}

	r1 := ResolveRound(armyA, movesA, []byte("a"), armyB, movesA, []byte("b"))
	r2 := ResolveRound(armyA, movesB, []byte("a"), armyB, movesA, []byte("b"))

	require.NotEqual(t, FinalStateDigest([]RoundResult{r1}), FinalStateDigest([]RoundResult{r2}))
}

func TestFinalStateDigest_EmptyRoundsIsStable(t *testing.T) {
	require.Equal(t, FinalStateDigest(nil), FinalStateDigest([]RoundResult{}))
}
