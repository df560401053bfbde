package commitment

import "encoding/binary"

// EncodeTokenSet builds the canonical payload for a token-set commitment: a
// length-prefixed list of token secrets, concatenated in the author's
// declared order. The order is part of the committed payload — a reveal that
// presents the same tokens in a different order does not verify.
func EncodeTokenSet(tokens [][]byte) []byte {
	out := u32le(uint32(len(tokens)))
	for _, tok := range tokens {
		out = append(out, u32le(uint32(len(tok)))...)
		out = append(out, tok...)
	}
	return out
}

// EncodeMoveSet builds the canonical fixed-width payload for a move-set
// commitment: round_index (1 byte), four board positions (1 byte each), four
// ability selectors (1 byte each). 9 bytes total, always.
func EncodeMoveSet(roundIndex uint8, positions [4]uint8, abilities [4]uint8) []byte {
	out := make([]byte, 0, 10)
	out = append(out, roundIndex)
	out = append(out, positions[:]...)
	out = append(out, abilities[:]...)
	return out
}

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}
