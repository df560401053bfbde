package mint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_RecordThenLookup(t *testing.T) {
	s := NewIdempotencyStore()
	_, ok := s.Lookup("key-1")
	require.False(t, ok)

	s.Record("key-1", Outcome{Success: true})
	out, ok := s.Lookup("key-1")
	require.True(t, ok)
	require.True(t, out.Success)
}

func TestIdempotencyStore_FirstRecordWins(t *testing.T) {
	s := NewIdempotencyStore()
	s.Record("key-1", Outcome{Success: true})
	s.Record("key-1", Outcome{Success: false, Err: "should not overwrite"})

	out, ok := s.Lookup("key-1")
	require.True(t, ok)
	require.True(t, out.Success)
}
