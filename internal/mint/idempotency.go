package mint

import (
	"github.com/sasha-s/go-deadlock"
)

// Outcome is the cached result of a prior authority-gated operation, keyed
// by its idempotency key. A retried request for the same key must receive
// the same outcome without re-executing the burn or mint; LootToken carries
// the minted token forward so a re-run can republish it.
type Outcome struct {
	Success   bool
	Err       string
	LootToken []byte
}

// IdempotencyStore remembers the outcome of every idempotency key it has
// seen so retried burn/mint requests are safe to resend verbatim. It is
// process-local and unbounded by design: one entry per (validator, match)
// pair over the lifetime of a validator process is a negligible footprint.
type IdempotencyStore struct {
	mu       deadlock.Mutex
	outcomes map[string]Outcome
}

// NewIdempotencyStore returns an empty store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{outcomes: make(map[string]Outcome)}
}

// Lookup returns the previously recorded outcome for key, if any.
func (s *IdempotencyStore) Lookup(key string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[key]
	return o, ok
}

// Record stores the outcome for key, overwriting nothing: the first
// recorded outcome for a key is final.
func (s *IdempotencyStore) Record(key string, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, already := s.outcomes[key]; already {
		return
	}
	s.outcomes[key] = outcome
}
