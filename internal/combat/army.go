package combat

import "encoding/binary"

// GenerateArmy derives the four units of an army from a token's 32-byte
// unblinded signature scalar C, then applies the league modifier for
// leagueID from the package's built-in default table. It is the sole
// source of randomness in the protocol: the same (c, leagueID) pair MUST
// always yield byte-identical units across every implementer.
func GenerateArmy(c [32]byte, leagueID uint8) Army {
	return GenerateArmyWithTable(c, leagueID, DefaultModifierTable())
}

// GenerateArmyWithTable is GenerateArmy parameterized by a caller-supplied
// league modifier table, for callers that load league_modifier_table from
// configuration instead of using the package default.
func GenerateArmyWithTable(c [32]byte, leagueID uint8, table ModifierTable) Army {
	var seeds [4]uint64
	for i := 0; i < 4; i++ {
		seeds[i] = binary.LittleEndian.Uint64(c[i*8 : i*8+8])
	}

	var army Army
	for i, s := range seeds {
		unit := Unit{
			UnitType:  uint8(s % 8),
			Attack:    uint8((s>>8)%20) + 10,
			Defense:   uint8((s>>16)%15) + 5,
			Health:    uint8((s>>24)%30) + 20,
			MaxHealth: uint8((s>>24)%30) + 20,
			Ability:   abilityTable[(s>>32)%16],
		}
		army[i] = ApplyLeagueTable(unit, leagueID, table)
	}
	return army
}
