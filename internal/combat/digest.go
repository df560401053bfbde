package combat

import (
	"crypto/sha256"
	"encoding/binary"
)

// FinalStateDigest hashes a completed match's full round log into the
// 32-byte value both players attest to in their ClaimedResult events and
// the validator recomputes independently during replay. Two independent
// replays of the same move sets from the same armies must always produce
// the same digest, so the encoding here is fixed-width and field-ordered:
// no maps, no varint, no platform-dependent sizes.
func FinalStateDigest(rounds []RoundResult) [32]byte {
	h := sha256.New()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(rounds)))
	h.Write(lenBuf[:])

	for _, r := range rounds {
		writeArmy(h, r.ArmyA)
		writeArmy(h, r.ArmyB)
		var numBuf [8]byte
		binary.LittleEndian.PutUint32(numBuf[0:4], r.DamageA)
		binary.LittleEndian.PutUint32(numBuf[4:8], r.DamageB)
		h.Write(numBuf[:])
		h.Write([]byte{byte(r.Winner)})
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeArmy(h interface{ Write([]byte) (int, error) }, a Army) {
	for _, u := range a {
		h.Write([]byte{u.UnitType, u.Attack, u.Defense, u.Health, u.MaxHealth, byte(u.Ability)})
	}
}
