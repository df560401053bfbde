package protocol

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_ = pub

	content, err := EncodeContent(ChallengeContent{WagerAmount: 10, LeagueID: 1, ExpiresAt: 1000})
	require.NoError(t, err)

	e, err := Sign(priv, KindChallenge, 500, nil, content)
	require.NoError(t, err)
	require.NoError(t, Verify(e))
}

func TestVerify_RejectsTamperedContent(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	content, err := EncodeContent(ChallengeContent{WagerAmount: 10})
	require.NoError(t, err)

	e, err := Sign(priv, KindChallenge, 1, nil, content)
	require.NoError(t, err)

	e.Content = []byte(`{"wager_amount":999}`)
	require.Error(t, Verify(e))
}

func TestVerify_RejectsWrongSigner(t *testing.T) {
	_, priv1, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pub2, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	content, err := EncodeContent(AcceptanceContent{MatchID: "abc"})
	require.NoError(t, err)

	e, err := Sign(priv1, KindAcceptance, 1, MatchTags("abc"), content)
	require.NoError(t, err)

	e.PubKey = pub2
	require.Error(t, Verify(e))
}

func TestDecodeEvent_DropsMalformedJSON(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeChallenge_RoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	want := ChallengeContent{WagerAmount: 42, LeagueID: 3, ExpiresAt: 12345}
	content, err := EncodeContent(want)
	require.NoError(t, err)

	e, err := Sign(priv, KindChallenge, 1, nil, content)
	require.NoError(t, err)

	got, err := DecodeChallenge(e)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeChallenge_RejectsWrongKind(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	content, err := EncodeContent(AcceptanceContent{MatchID: "x"})
	require.NoError(t, err)

	e, err := Sign(priv, KindAcceptance, 1, MatchTags("x"), content)
	require.NoError(t, err)

	_, err = DecodeChallenge(e)
	require.Error(t, err)
}

func TestRoundTags_CarryMatchAndRound(t *testing.T) {
	tags := RoundTags("match-1", 2)
	v, ok := Event{Tags: tags}.MatchTag()
	require.True(t, ok)
	require.Equal(t, "match-1", v)

	r, ok := Event{Tags: tags}.RoundTag()
	require.True(t, ok)
	require.Equal(t, "2", r)
}

func TestCanonicalBytes_TagOrderAffectsSignature(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	content, err := EncodeContent(AcceptanceContent{MatchID: "m"})
	require.NoError(t, err)

	e1, err := Sign(priv, KindAcceptance, 1, []Tag{{"match", "m"}, {"round", "1"}}, content)
	require.NoError(t, err)
	e2, err := Sign(priv, KindAcceptance, 1, []Tag{{"round", "1"}, {"match", "m"}}, content)
	require.NoError(t, err)

	require.NotEqual(t, e1.ID, e2.ID)
}
