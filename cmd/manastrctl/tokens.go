package main

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/commitment"
	"github.com/manastr/core/internal/token"
)

// decodeTokens parses a list of hex-encoded token.Encode() blobs, as
// accepted by the --tokens flag on challenge and accept.
func decodeTokens(hexBlobs []string) ([]token.Token, error) {
	tokens := make([]token.Token, 0, len(hexBlobs))
	for _, h := range hexBlobs {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding token %q", h)
		}
		tok, ok := token.Decode(raw)
		if !ok {
			return nil, errors.Errorf("malformed token %q", h)
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil, errors.New("at least one --tokens value is required")
	}
	return tokens, nil
}

// commitTokenSet computes the commitment over tokens' secrets under a
// freshly drawn nonce, returning both for the caller to persist locally
// until the corresponding TokenReveal.
func commitTokenSet(tokens []token.Token) (commitment.Digest, commitment.Nonce, error) {
	nonce, err := randomNonce()
	if err != nil {
		return commitment.Digest{}, commitment.Nonce{}, err
	}
	payload := commitment.EncodeTokenSet(token.Secrets(tokens))
	return commitment.Commit(payload, commitment.Nonce(nonce)), commitment.Nonce(nonce), nil
}

func tokensToHex(tokens []token.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = hex.EncodeToString(t.Encode())
	}
	return out
}

// parseAbility parses one of "none", "boost", "shield", "heal".
func parseAbility(s string) (combat.Ability, error) {
	switch s {
	case "none":
		return combat.AbilityNone, nil
	case "boost":
		return combat.AbilityBoost, nil
	case "shield":
		return combat.AbilityShield, nil
	case "heal":
		return combat.AbilityHeal, nil
	default:
		return 0, errors.Errorf("unknown ability %q (want none|boost|shield|heal)", s)
	}
}
