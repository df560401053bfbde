// Package commitment implements the hash-based commit/reveal scheme players
// use to hide token sets and move sets until both sides have locked in their
// choice. A commitment is SHA-256 of a canonical, fixed-width encoding of the
// payload concatenated with 32 bytes of player-supplied entropy; nothing here
// ever hashes JSON or any other variable-layout encoding.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Nonce is 32 bytes of player entropy mixed into every commitment so that
// identical payloads committed by different players (or in different
// rounds) do not collide.
type Nonce [32]byte

// Digest is a SHA-256 commitment hash.
type Digest [32]byte

// Commit computes H(payload || nonce) over an already-canonically-encoded
// payload. Callers must encode payload with one of the Encode* functions in
// this package (or an equivalent fixed-width encoding) before calling Commit.
func Commit(payload []byte, nonce Nonce) Digest {
	h := sha256.New()
	h.Write(payload)
	h.Write(nonce[:])
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Verify reports whether payload and nonce reveal commitment, using a
// constant-time comparison so that reveal verification does not leak timing
// information about the prior commitment's true content.
func Verify(commitment Digest, payload []byte, nonce Nonce) bool {
	got := Commit(payload, nonce)
	return subtle.ConstantTimeCompare(got[:], commitment[:]) == 1
}
