package commitment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitVerify_RoundTrip(t *testing.T) {
	payload := EncodeMoveSet(2, [4]uint8{3, 2, 1, 0}, [4]uint8{0, 1, 2, 3})
	var nonce Nonce
	for i := range nonce {
		nonce[i] = byte(i)
	}

	d := Commit(payload, nonce)
	require.True(t, Verify(d, payload, nonce))
}

func TestVerify_RejectsWrongPayload(t *testing.T) {
	var nonce Nonce
	payload := EncodeMoveSet(0, [4]uint8{0, 1, 2, 3}, [4]uint8{0, 0, 0, 0})
	d := Commit(payload, nonce)

	tampered := EncodeMoveSet(0, [4]uint8{0, 1, 2, 3}, [4]uint8{1, 0, 0, 0})
	require.False(t, Verify(d, tampered, nonce))
}

func TestVerify_RejectsWrongNonce(t *testing.T) {
	var nonceA, nonceB Nonce
	nonceB[0] = 0xff

	payload := EncodeTokenSet([][]byte{[]byte("secret-1"), []byte("secret-2")})
	d := Commit(payload, nonceA)
	require.False(t, Verify(d, payload, nonceB))
}

func TestEncodeTokenSet_OrderIsSignificant(t *testing.T) {
	a := EncodeTokenSet([][]byte{[]byte("t1"), []byte("t2")})
	b := EncodeTokenSet([][]byte{[]byte("t2"), []byte("t1")})
	require.NotEqual(t, a, b)
}

func TestEncodeMoveSet_FixedWidth(t *testing.T) {
	payload := EncodeMoveSet(255, [4]uint8{0, 1, 2, 3}, [4]uint8{3, 2, 1, 0})
	require.Len(t, payload, 9)
}

func TestCommit_Deterministic(t *testing.T) {
	payload := EncodeTokenSet([][]byte{[]byte("a")})
	var nonce Nonce
	nonce[5] = 7
	require.Equal(t, Commit(payload, nonce), Commit(payload, nonce))
}
