// Package token defines the bearer-token shape Manastr consumes from the
// ecash mint: a unit kind, an opaque secret, and the 32-byte unblinded
// signature scalar that drives army generation. The mint's blind-signature
// cryptography itself is out of scope; this package only needs enough
// structure to extract C and to commit to a set of secrets.
package token

import "encoding/binary"

// Kind distinguishes the two unit types the mint issues.
type Kind uint8

const (
	KindMana Kind = iota
	KindLoot
)

// Token is one bearer credential: a kind, an opaque secret x, and the
// unblinded signature scalar C that is the sole source of randomness for
// army generation. Tokens are opaque outside the mint except for C.
type Token struct {
	Kind   Kind
	Secret []byte
	C      [32]byte
}

// Encode serializes a token to the canonical bytes carried in a
// TokenReveal event's content: kind (1 byte), secret length (u32le),
// secret, then the 32-byte C.
func (t Token) Encode() []byte {
	out := make([]byte, 0, 1+4+len(t.Secret)+32)
	out = append(out, byte(t.Kind))
	out = append(out, u32le(uint32(len(t.Secret)))...)
	out = append(out, t.Secret...)
	out = append(out, t.C[:]...)
	return out
}

// Decode parses a token from the bytes produced by Encode.
func Decode(raw []byte) (Token, bool) {
	if len(raw) < 1+4 {
		return Token{}, false
	}
	kind := Kind(raw[0])
	secretLen := binary.LittleEndian.Uint32(raw[1:5])
	rest := raw[5:]
	if uint32(len(rest)) < secretLen+32 {
		return Token{}, false
	}
	secret := append([]byte(nil), rest[:secretLen]...)
	var c [32]byte
	copy(c[:], rest[secretLen:secretLen+32])
	return Token{Kind: kind, Secret: secret, C: c}, true
}

// Secrets extracts each token's secret, in order, for building a token-set
// commitment payload.
func Secrets(tokens []Token) [][]byte {
	out := make([][]byte, len(tokens))
	for i, t := range tokens {
		out[i] = t.Secret
	}
	return out
}

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}
