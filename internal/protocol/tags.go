package protocol

import "strconv"

// MatchTags builds the tag set for an event carrying only a match
// correlation, used by Acceptance, TokenReveal, ClaimedResult, and
// LootDistribution.
func MatchTags(matchID string) []Tag {
	return []Tag{{"match", matchID}}
}

// RoundTags builds the tag set for an event carrying both match and round
// correlation, used by MoveCommitment and MoveReveal.
func RoundTags(matchID string, roundIndex uint8) []Tag {
	return []Tag{
		{"match", matchID},
		{"round", strconv.Itoa(int(roundIndex))},
	}
}
