package combat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func identityMoves() MoveSet {
	return MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityNone, AbilityNone, AbilityNone, AbilityNone},
	}
}

func TestResolveRound_PlainDamageIsSaturatingSubtract(t *testing.T) {
	armyA := Army{{Attack: 20, Defense: 5, Health: 30, MaxHealth: 30}}
	armyB := Army{{Attack: 8, Defense: 25, Health: 30, MaxHealth: 30}}
	armyA[1], armyA[2], armyA[3] = armyA[0], armyA[0], armyA[0]
	armyB[1], armyB[2], armyB[3] = armyB[0], armyB[0], armyB[0]

	res := ResolveRound(armyA, identityMoves(), []byte("a"), armyB, identityMoves(), []byte("b"))

	// attackA(20) - defenseB(25) saturates to 0; attackB(8) - defenseA(5) = 3.
	require.Equal(t, uint32(0), res.DamageA)
	require.Equal(t, uint32(12), res.DamageB) // 3 damage * 4 unit pairs
	for _, u := range res.ArmyA {
		require.Equal(t, uint8(27), u.Health)
	}
	for _, u := range res.ArmyB {
		require.Equal(t, uint8(30), u.Health)
	}
}

func TestResolveRound_HealthNeverGoesNegative(t *testing.T) {
	weak := Unit{Attack: 0, Defense: 0, Health: 5, MaxHealth: 30}
	strong := Unit{Attack: 200, Defense: 0, Health: 30, MaxHealth: 30}
	armyA := Army{weak, weak, weak, weak}
	armyB := Army{strong, strong, strong, strong}

	res := ResolveRound(armyA, identityMoves(), []byte("a"), armyB, identityMoves(), []byte("b"))

	for _, u := range res.ArmyA {
		require.Equal(t, uint8(0), u.Health, "health must saturate at zero, never wrap")
	}
}

func TestResolveRound_ShieldNegatesBoostedDamageEntirely(t *testing.T) {
	attacker := Unit{Attack: 40, Defense: 5, Health: 30, MaxHealth: 30, Ability: AbilityBoost}
	defender := Unit{Attack: 5, Defense: 5, Health: 30, MaxHealth: 30, Ability: AbilityShield}
	armyA := Army{attacker, attacker, attacker, attacker}
	armyB := Army{defender, defender, defender, defender}

	movesA := MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityBoost, AbilityBoost, AbilityBoost, AbilityBoost},
	}
	movesB := MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityShield, AbilityShield, AbilityShield, AbilityShield},
	}

	res := ResolveRound(armyA, movesA, []byte("a"), armyB, movesB, []byte("b"))

	require.Equal(t, uint32(0), res.DamageA, "attacker's doubled damage must be fully negated by shield")
	for _, u := range res.ArmyB {
		require.Equal(t, uint8(30), u.Health)
	}
}

func TestResolveRound_BoostDoublesAttackSaturating(t *testing.T) {
	attacker := Unit{Attack: 200, Defense: 0, Health: 30, MaxHealth: 30, Ability: AbilityBoost}
	defender := Unit{Attack: 0, Defense: 0, Health: 255, MaxHealth: 255}
	armyA := Army{attacker, attacker, attacker, attacker}
	armyB := Army{defender, defender, defender, defender}

	movesA := MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityBoost, AbilityBoost, AbilityBoost, AbilityBoost},
	}

	res := ResolveRound(armyA, movesA, []byte("a"), armyB, identityMoves(), []byte("b"))

	// 200*2 = 400, saturates to 255 as attack, then minus defense(0) = 255 dmg per unit.
	require.Equal(t, uint32(255*4), res.DamageA)
}

func TestResolveRound_MismatchedDeclaredAbilityIsNullified(t *testing.T) {
	attacker := Unit{Attack: 20, Defense: 0, Health: 30, MaxHealth: 30, Ability: AbilityHeal}
	defender := Unit{Attack: 0, Defense: 0, Health: 30, MaxHealth: 30}
	armyA := Army{attacker, attacker, attacker, attacker}
	armyB := Army{defender, defender, defender, defender}

	// Declares Boost, but the unit's innate ability is Heal: must be treated as None.
	movesA := MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityBoost, AbilityBoost, AbilityBoost, AbilityBoost},
	}

	res := ResolveRound(armyA, movesA, []byte("a"), armyB, identityMoves(), []byte("b"))

	require.Equal(t, uint32(20*4), res.DamageA, "undeclared-match ability must not boost attack")
}

func TestResolveRound_HealRestoresHalfMaxRoundedUpWhenSurviving(t *testing.T) {
	healer := Unit{Attack: 0, Defense: 0, Health: 10, MaxHealth: 31, Ability: AbilityHeal}
	armyA := Army{healer, healer, healer, healer}
	armyB := Army{{Attack: 0, Defense: 0, Health: 30, MaxHealth: 30}}
	armyB[1], armyB[2], armyB[3] = armyB[0], armyB[0], armyB[0]

	movesA := MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityHeal, AbilityHeal, AbilityHeal, AbilityHeal},
	}

	res := ResolveRound(armyA, movesA, []byte("a"), armyB, identityMoves(), []byte("b"))

	// No incoming damage (attack 0 on both sides), health stays 10, then +ceil(31/2)=16 -> 26.
	for _, u := range res.ArmyA {
		require.Equal(t, uint8(26), u.Health)
	}
}

func TestResolveRound_HealDoesNotReviveEliminatedUnit(t *testing.T) {
	healer := Unit{Attack: 0, Defense: 0, Health: 1, MaxHealth: 30, Ability: AbilityHeal}
	killer := Unit{Attack: 50, Defense: 0, Health: 30, MaxHealth: 30}
	armyA := Army{healer, healer, healer, healer}
	armyB := Army{killer, killer, killer, killer}

	movesA := MoveSet{
		Positions: [4]uint8{0, 1, 2, 3},
		Abilities: [4]Ability{AbilityHeal, AbilityHeal, AbilityHeal, AbilityHeal},
	}

	res := ResolveRound(armyA, movesA, []byte("a"), armyB, identityMoves(), []byte("b"))

	for _, u := range res.ArmyA {
		require.Equal(t, uint8(0), u.Health, "eliminated units must not be healed back up")
	}
}

func TestResolveRound_TieBreaksOnLexicographicAuthorKey(t *testing.T) {
	unit := Unit{Attack: 0, Defense: 0, Health: 20, MaxHealth: 20}
	armyA := Army{unit, unit, unit, unit}
	armyB := Army{unit, unit, unit, unit}

	res := ResolveRound(armyA, identityMoves(), []byte{0x01}, armyB, identityMoves(), []byte{0x02})
	require.Equal(t, RoundWinnerA, res.Winner)

	res2 := ResolveRound(armyA, identityMoves(), []byte{0x02}, armyB, identityMoves(), []byte{0x01})
	require.Equal(t, RoundWinnerB, res2.Winner)
}

func TestResolveRound_HigherRemainingHealthWins(t *testing.T) {
	tanky := Unit{Attack: 0, Defense: 100, Health: 50, MaxHealth: 50}
	fragile := Unit{Attack: 0, Defense: 0, Health: 10, MaxHealth: 10}
	armyA := Army{tanky, tanky, tanky, tanky}
	armyB := Army{fragile, fragile, fragile, fragile}

	res := ResolveRound(armyA, identityMoves(), []byte("a"), armyB, identityMoves(), []byte("b"))
	require.Equal(t, RoundWinnerA, res.Winner)
}
