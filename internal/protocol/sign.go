package protocol

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign builds a finalized Event from kind, createdAt, tags and content: it
// computes the canonical id, signs the canonical bytes with priv, and fills
// in ID, PubKey, and Sig.
func Sign(priv ed25519.PrivateKey, kind Kind, createdAt int64, tags []Tag, content []byte) (Event, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return Event{}, fmt.Errorf("protocol: invalid private key size %d", len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)

	body := canonicalBytes(pub, createdAt, kind, tags, content)
	sum := sha256.Sum256(body)
	id := hex.EncodeToString(sum[:])

	sig := ed25519.Sign(priv, body)

	return Event{
		ID:        id,
		PubKey:    append([]byte(nil), pub...),
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
		Sig:       sig,
	}, nil
}

// Verify checks that e.ID is the correct content hash for e's fields and
// that e.Sig is a valid Ed25519 signature by e.PubKey over those fields.
// Both checks must pass for the event to be accepted onto a match machine.
func Verify(e Event) error {
	if len(e.PubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("protocol: invalid pubkey size %d", len(e.PubKey))
	}
	if len(e.Sig) != ed25519.SignatureSize {
		return fmt.Errorf("protocol: invalid signature size %d", len(e.Sig))
	}

	body := canonicalBytes(e.PubKey, e.CreatedAt, e.Kind, e.Tags, e.Content)
	sum := sha256.Sum256(body)
	wantID := hex.EncodeToString(sum[:])
	if wantID != e.ID {
		return fmt.Errorf("protocol: id mismatch: got %s want %s", e.ID, wantID)
	}

	if !ed25519.Verify(ed25519.PublicKey(e.PubKey), body, e.Sig) {
		return fmt.Errorf("protocol: invalid signature")
	}
	return nil
}
