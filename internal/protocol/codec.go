package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodeEvent unmarshals raw relay bytes into an Event and verifies its id
// and signature. Callers on the ingest path drop the event and log on any
// error returned here — a single malformed or forged event must never
// abort processing of the rest of the stream.
func DecodeEvent(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, errors.Wrap(err, "decode event envelope")
	}
	if e.ID == "" {
		return Event{}, errors.New("decode event: missing id")
	}
	if err := Verify(e); err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	return e, nil
}

// DecodeChallenge parses e's content as ChallengeContent. Returns an error
// if e is not a Challenge event or the content is malformed.
func DecodeChallenge(e Event) (ChallengeContent, error) {
	var c ChallengeContent
	if e.Kind != KindChallenge {
		return c, errors.Errorf("decode challenge: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return ChallengeContent{}, errors.Wrap(err, "decode challenge content")
	}
	return c, nil
}

// DecodeAcceptance parses e's content as AcceptanceContent.
func DecodeAcceptance(e Event) (AcceptanceContent, error) {
	var c AcceptanceContent
	if e.Kind != KindAcceptance {
		return c, errors.Errorf("decode acceptance: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return AcceptanceContent{}, errors.Wrap(err, "decode acceptance content")
	}
	return c, nil
}

// DecodeTokenReveal parses e's content as TokenRevealContent.
func DecodeTokenReveal(e Event) (TokenRevealContent, error) {
	var c TokenRevealContent
	if e.Kind != KindTokenReveal {
		return c, errors.Errorf("decode token_reveal: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return TokenRevealContent{}, errors.Wrap(err, "decode token_reveal content")
	}
	return c, nil
}

// DecodeMoveCommitment parses e's content as MoveCommitmentContent.
func DecodeMoveCommitment(e Event) (MoveCommitmentContent, error) {
	var c MoveCommitmentContent
	if e.Kind != KindMoveCommitment {
		return c, errors.Errorf("decode move_commitment: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return MoveCommitmentContent{}, errors.Wrap(err, "decode move_commitment content")
	}
	return c, nil
}

// DecodeMoveReveal parses e's content as MoveRevealContent.
func DecodeMoveReveal(e Event) (MoveRevealContent, error) {
	var c MoveRevealContent
	if e.Kind != KindMoveReveal {
		return c, errors.Errorf("decode move_reveal: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return MoveRevealContent{}, errors.Wrap(err, "decode move_reveal content")
	}
	return c, nil
}

// DecodeClaimedResult parses e's content as ClaimedResultContent.
func DecodeClaimedResult(e Event) (ClaimedResultContent, error) {
	var c ClaimedResultContent
	if e.Kind != KindClaimedResult {
		return c, errors.Errorf("decode claimed_result: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return ClaimedResultContent{}, errors.Wrap(err, "decode claimed_result content")
	}
	return c, nil
}

// DecodeLootDistribution parses e's content as LootDistributionContent.
func DecodeLootDistribution(e Event) (LootDistributionContent, error) {
	var c LootDistributionContent
	if e.Kind != KindLootDistribution {
		return c, errors.Errorf("decode loot_distribution: wrong kind %d", e.Kind)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return LootDistributionContent{}, errors.Wrap(err, "decode loot_distribution content")
	}
	return c, nil
}

// EncodeContent is a small convenience wrapper so callers building events
// don't reach for encoding/json directly; kept here so every content
// marshal in the codebase goes through one place.
func EncodeContent(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode content")
	}
	return b, nil
}
