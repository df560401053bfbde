// Package protocol implements the canonical wire format, signing, and
// parsing of the seven player- and validator-authored event kinds that carry
// the Manastr protocol over the relay: Challenge, Acceptance, TokenReveal,
// MoveCommitment, MoveReveal, ClaimedResult, and LootDistribution.
package protocol

import "encoding/json"

// Kind identifies one of the seven event kinds, numbered contiguously from
// the protocol's base kind.
type Kind uint16

const (
	KindChallenge Kind = 30000 + iota
	KindAcceptance
	KindTokenReveal
	KindMoveCommitment
	KindMoveReveal
	KindClaimedResult
	KindLootDistribution
)

func (k Kind) String() string {
	switch k {
	case KindChallenge:
		return "challenge"
	case KindAcceptance:
		return "acceptance"
	case KindTokenReveal:
		return "token_reveal"
	case KindMoveCommitment:
		return "move_commitment"
	case KindMoveReveal:
		return "move_reveal"
	case KindClaimedResult:
		return "claimed_result"
	case KindLootDistribution:
		return "loot_distribution"
	default:
		return "unknown"
	}
}

// Tag is one indexed key/value pair carried alongside an event, in the
// relay's generic tags[][] shape: Tag{"match", id} marshals as ["match", id].
type Tag [2]string

// Event is the generic signed envelope every kind is carried in: an author
// public key, a content object whose schema is fixed per kind, an indexed
// tag set, an advisory timestamp, a content-addressed id, and a signature
// over the canonical encoding of everything but the signature itself.
type Event struct {
	ID        string          `json:"id"`
	PubKey    []byte          `json:"pubkey"`
	CreatedAt int64           `json:"created_at"`
	Kind      Kind            `json:"kind"`
	Tags      []Tag           `json:"tags"`
	Content   json.RawMessage `json:"content"`
	Sig       []byte          `json:"sig"`
}

// TagValue returns the value of the first tag with the given key, and
// whether it was present.
func (e Event) TagValue(key string) (string, bool) {
	for _, t := range e.Tags {
		if t[0] == key {
			return t[1], true
		}
	}
	return "", false
}

// MatchTag returns the event's "match" tag value, if present.
func (e Event) MatchTag() (string, bool) {
	return e.TagValue("match")
}

// RoundTag returns the event's "round" tag value, if present.
func (e Event) RoundTag() (string, bool) {
	return e.TagValue("round")
}

// ---- Content payloads, one struct per kind ----

// ChallengeContent is the content of a Challenge event.
type ChallengeContent struct {
	WagerAmount     uint64 `json:"wager_amount"`
	LeagueID        uint8  `json:"league_id"`
	TokenCommitment [32]byte `json:"token_commitment"`
	ExpiresAt       int64  `json:"expires_at"`
}

// AcceptanceContent is the content of an Acceptance event.
type AcceptanceContent struct {
	MatchID         string   `json:"match_id"`
	TokenCommitment [32]byte `json:"token_commitment"`
}

// TokenRevealContent is the content of a TokenReveal event.
type TokenRevealContent struct {
	MatchID string   `json:"match_id"`
	Tokens  [][]byte `json:"tokens"`
	Nonce   [32]byte `json:"nonce"`
}

// MoveCommitmentContent is the content of a MoveCommitment event.
type MoveCommitmentContent struct {
	MatchID    string   `json:"match_id"`
	RoundIndex uint8    `json:"round_index"`
	Commitment [32]byte `json:"commitment"`
}

// MoveRevealContent is the content of a MoveReveal event.
type MoveRevealContent struct {
	MatchID    string     `json:"match_id"`
	RoundIndex uint8      `json:"round_index"`
	Positions  [4]uint8   `json:"positions"`
	Abilities  [4]uint8   `json:"abilities"`
	Nonce      [32]byte   `json:"nonce"`
}

// ClaimedResultContent is the content of a ClaimedResult event.
type ClaimedResultContent struct {
	MatchID          string   `json:"match_id"`
	ClaimedWinner    string   `json:"claimed_winner"`
	PerRoundDigest   [32]byte `json:"per_round_digest"`
	FinalStateDigest [32]byte `json:"final_state_digest"`
}

// LootDistributionContent is the content of the validator-only
// LootDistribution event.
type LootDistributionContent struct {
	MatchID          string `json:"match_id"`
	Winner           string `json:"winner"`
	LootToken        []byte `json:"loot_token"`
	Fee              uint64 `json:"fee"`
	ValidationSummary string `json:"validation_summary"`
}
