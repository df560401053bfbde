package mint

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, priv ed25519.PrivateKey, op Capability, tokenCount int) Request {
	t.Helper()
	req := Request{
		Operation:      op,
		ValidatorID:    "validator-1",
		MatchID:        "match-abc",
		TokenCount:     tokenCount,
		IdempotencyKey: "idem-1",
		Body:           []byte(`{"hello":"world"}`),
	}
	return Sign(priv, req)
}

func TestAuthorize_AcceptsValidCapableSignedRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	entry := ValidatorEntry{
		PubKey:              pub,
		Capabilities:        map[Capability]bool{CapabilityBurn: true},
		MaxTokensPerRequest: 10,
		Active:              true,
	}
	req := signedRequest(t, priv, CapabilityBurn, 4)
	require.NoError(t, Authorize(entry, req))
}

func TestAuthorize_RejectsInactiveValidator(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	entry := ValidatorEntry{
		PubKey:       pub,
		Capabilities: map[Capability]bool{CapabilityBurn: true},
		Active:       false,
	}
	req := signedRequest(t, priv, CapabilityBurn, 1)
	require.Error(t, Authorize(entry, req))
}

func TestAuthorize_RejectsMissingCapability(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	entry := ValidatorEntry{
		PubKey:       pub,
		Capabilities: map[Capability]bool{CapabilityQuery: true},
		Active:       true,
	}
	req := signedRequest(t, priv, CapabilityBurn, 1)
	require.Error(t, Authorize(entry, req))
}

func TestAuthorize_RejectsOverCapRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	entry := ValidatorEntry{
		PubKey:              pub,
		Capabilities:        map[Capability]bool{CapabilityBurn: true},
		MaxTokensPerRequest: 2,
		Active:              true,
	}
	req := signedRequest(t, priv, CapabilityBurn, 3)
	require.Error(t, Authorize(entry, req))
}

func TestAuthorize_RejectsTamperedBody(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	entry := ValidatorEntry{
		PubKey:       pub,
		Capabilities: map[Capability]bool{CapabilityBurn: true},
		Active:       true,
	}
	req := signedRequest(t, priv, CapabilityBurn, 1)
	req.Body = []byte(`{"hello":"tampered"}`)
	require.Error(t, Authorize(entry, req))
}

func TestAuthorize_RejectsWrongSigner(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	entry := ValidatorEntry{
		PubKey:       pub,
		Capabilities: map[Capability]bool{CapabilityBurn: true},
		Active:       true,
	}
	req := signedRequest(t, otherPriv, CapabilityBurn, 1)
	require.Error(t, Authorize(entry, req))
}
